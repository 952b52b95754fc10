// Package logsink implements the logging collaborator of the toolkit: a
// process-wide sink with verbosity levels, scope-bound hold lines, a worker
// registry and three write schedulers.
package logsink

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/fluxorio/threadkit/pkg/failfast"
)

// ThreadRegistry is implemented by the component owning the pool of workers,
// so the sink can ask whether any workers are alive.
type ThreadRegistry interface {
	HasThreadsRegistered() bool
}

// Scheduler selects how log lines reach the underlying writer.
type Scheduler int

const (
	// SchedulerImmediate writes on the caller's goroutine.
	SchedulerImmediate Scheduler = iota
	// SchedulerBlocking hands lines to a relay goroutine, waiting for the handoff.
	SchedulerBlocking
	// SchedulerNonblocking hands lines to a relay goroutine through a buffered queue.
	SchedulerNonblocking
)

const relayQueueSize = 1024

// Sink is the process-wide log sink.
type Sink struct {
	mu        sync.Mutex
	writer    io.Writer
	verbosity int
	level     int
	threads   map[string]string
	registry  ThreadRegistry
	holds     map[string]string
	holdOrder []string
	scheduler Scheduler
	relay     chan string
	relayWG   sync.WaitGroup
}

var (
	instance *Sink
	once     sync.Once
)

// Instance returns the singleton sink.
func Instance() *Sink {
	once.Do(func() {
		instance = &Sink{
			writer:  os.Stderr,
			threads: make(map[string]string),
			holds:   make(map[string]string),
		}
	})
	return instance
}

// SetWriter redirects output, mainly for tests and embedding applications.
func (s *Sink) SetWriter(w io.Writer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writer = w
}

// RegisterThread records a worker under the given id and name.
func (s *Sink) RegisterThread(id, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.threads[id] = name
}

// UnregisterThread removes a worker registration.
func (s *Sink) UnregisterThread(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.threads, id)
}

// RegisteredThreads returns the number of currently registered workers.
func (s *Sink) RegisteredThreads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.threads)
}

// ThreadName returns the registered name for id, or the empty string.
func (s *Sink) ThreadName(id string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.threads[id]
}

// AttachThreadRegistry attaches the component that owns worker lifecycles.
func (s *Sink) AttachThreadRegistry(r ThreadRegistry) {
	failfast.NotNil(r, "thread registry")
	s.mu.Lock()
	defer s.mu.Unlock()
	s.registry = r
}

// HasThreadRegistryAttached reports whether a registry has been attached.
func (s *Sink) HasThreadRegistryAttached() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.registry != nil
}

// SetVerbosity sets the verbosity threshold. Messages at a level at or above
// the threshold are muted.
func (s *Sink) SetVerbosity(v int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.verbosity = v
}

// Verbosity returns the current verbosity threshold.
func (s *Sink) Verbosity() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.verbosity
}

// CurrentLevel returns the current nesting level.
func (s *Sink) CurrentLevel() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.level
}

// IncreaseLevel raises the nesting level by n.
func (s *Sink) IncreaseLevel(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.level += n
}

// DecreaseLevel lowers the nesting level by n, not below zero.
func (s *Sink) DecreaseLevel(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.level -= n
	if s.level < 0 {
		s.level = 0
	}
}

// AlignLevel sets the nesting level to n, not below zero, as one critical
// section. Concurrent workers aligning with a driver snapshot must not
// compose CurrentLevel with IncreaseLevel/DecreaseLevel, since the two reads
// would interleave.
func (s *Sink) AlignLevel(n int) {
	if n < 0 {
		n = 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.level = n
}

// IsMutedAt reports whether output at the given extra level would be muted
// under the current verbosity.
func (s *Sink) IsMutedAt(level int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.verbosity <= level
}

// Hold sets the tail status line for a scope, replacing any previous one.
func (s *Sink) Hold(scope, text string) {
	s.mu.Lock()
	if _, ok := s.holds[scope]; !ok {
		s.holdOrder = append(s.holdOrder, scope)
	}
	s.holds[scope] = text
	line := s.formatHoldLocked()
	s.mu.Unlock()
	s.emit(line)
}

// ReleaseHold drops the status line held for a scope.
func (s *Sink) ReleaseHold(scope string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.holds, scope)
	for i, sc := range s.holdOrder {
		if sc == scope {
			s.holdOrder = append(s.holdOrder[:i], s.holdOrder[i+1:]...)
			break
		}
	}
}

func (s *Sink) formatHoldLocked() string {
	parts := make([]string, 0, len(s.holdOrder))
	for _, scope := range s.holdOrder {
		parts = append(parts, s.holds[scope])
	}
	return strings.Join(parts, " | ")
}

// Println writes a message at the current level, honoring verbosity.
func (s *Sink) Println(text string) {
	s.mu.Lock()
	muted := s.verbosity <= s.level
	s.mu.Unlock()
	if muted {
		return
	}
	s.emit(text)
}

func (s *Sink) emit(line string) {
	s.mu.Lock()
	scheduler := s.scheduler
	relay := s.relay
	s.mu.Unlock()

	if scheduler == SchedulerImmediate || relay == nil {
		s.write(line)
		return
	}
	relay <- line
}

func (s *Sink) write(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintln(s.writer, line)
}

// UseImmediateScheduler writes every line on the caller's goroutine.
func (s *Sink) UseImmediateScheduler() {
	s.switchScheduler(SchedulerImmediate, 0)
}

// UseBlockingScheduler relays lines through an unbuffered channel.
func (s *Sink) UseBlockingScheduler() {
	s.switchScheduler(SchedulerBlocking, 0)
}

// UseNonblockingScheduler relays lines through a buffered channel.
func (s *Sink) UseNonblockingScheduler() {
	s.switchScheduler(SchedulerNonblocking, relayQueueSize)
}

func (s *Sink) switchScheduler(scheduler Scheduler, queue int) {
	s.mu.Lock()
	old := s.relay
	s.relay = nil
	s.scheduler = scheduler
	s.mu.Unlock()

	if old != nil {
		close(old)
		s.relayWG.Wait()
	}

	if scheduler == SchedulerImmediate {
		return
	}

	relay := make(chan string, queue)
	s.mu.Lock()
	s.relay = relay
	s.mu.Unlock()

	s.relayWG.Add(1)
	go func() {
		defer s.relayWG.Done()
		for line := range relay {
			s.write(line)
		}
	}()
}

// ActiveScheduler returns the scheduler in use.
func (s *Sink) ActiveScheduler() Scheduler {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scheduler
}
