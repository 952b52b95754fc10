// Package dispatch provides the process-wide entry point for task execution,
// routing work to a shared pool or running it inline depending on the
// configured concurrency.
package dispatch

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/fluxorio/threadkit/pkg/concurrency"
	"github.com/fluxorio/threadkit/pkg/config"
	"github.com/fluxorio/threadkit/pkg/failfast"
	"github.com/fluxorio/threadkit/pkg/future"
	"github.com/fluxorio/threadkit/pkg/logsink"
)

// Manager dispatches tasks based on concurrency availability. A concurrency
// of zero means tasks run inline on the caller with no workers involved.
type Manager struct {
	maximumConcurrency int

	mu          sync.Mutex
	concurrency int

	pool *concurrency.ThreadPool
}

var (
	instance *Manager
	once     sync.Once
)

// Instance returns the singleton manager, constructing it on first access and
// attaching it to the log sink as its thread registry.
func Instance() *Manager {
	once.Do(func() {
		instance = &Manager{
			maximumConcurrency: runtime.NumCPU(),
			pool:               concurrency.NewPool(0, ""),
		}
	})
	sink := logsink.Instance()
	if !sink.HasThreadRegistryAttached() {
		sink.AttachThreadRegistry(instance)
	}
	return instance
}

// Apply configures the sink and the manager from a validated configuration.
// The scheduler is switched before any workers exist, while the concurrency is
// still zero.
func (m *Manager) Apply(cfg *config.Config) error {
	if err := config.Validate(cfg,
		config.ConcurrencyValidator(m.maximumConcurrency),
		config.SchedulerValidator()); err != nil {
		return err
	}

	sink := logsink.Instance()
	sink.SetVerbosity(cfg.Verbosity)

	m.SetConcurrency(0)
	switch cfg.Scheduler {
	case config.SchedulerBlocking:
		m.SetLoggingBlockingScheduler()
	case config.SchedulerNonblocking:
		m.SetLoggingNonblockingScheduler()
	default:
		m.SetLoggingImmediateScheduler()
	}

	if cfg.Concurrency < 0 {
		m.SetMaximumConcurrency()
	} else {
		m.SetConcurrency(cfg.Concurrency)
	}
	return nil
}

// HasThreadsRegistered reports whether any pool workers are alive.
func (m *Manager) HasThreadsRegistered() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.concurrency > 0
}

// MaximumConcurrency returns the concurrency allowed by this machine.
func (m *Manager) MaximumConcurrency() int {
	return m.maximumConcurrency
}

// Concurrency returns the preferred concurrency in use.
func (m *Manager) Concurrency() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.concurrency
}

// SetConcurrency updates the preferred concurrency, resizing the pool
// accordingly. The value must not exceed MaximumConcurrency.
func (m *Manager) SetConcurrency(value int) {
	failfast.If(value >= 0 && value <= m.maximumConcurrency,
		"concurrency %d outside [0, %d]", value, m.maximumConcurrency)
	m.mu.Lock()
	m.concurrency = value
	m.mu.Unlock()
	// Resizes are serialized by the pool; shrinking blocks until in-flight
	// tasks drain, and those tasks may read Concurrency.
	m.pool.SetNumThreads(value)
}

// SetMaximumConcurrency sets the concurrency to the machine maximum.
func (m *Manager) SetMaximumConcurrency() {
	m.SetConcurrency(m.maximumConcurrency)
}

// Pool exposes the owned pool, mainly for observability hooks.
func (m *Manager) Pool() *concurrency.ThreadPool {
	return m.pool
}

// SetLoggingImmediateScheduler switches the log sink to the immediate
// scheduler. Fails unless the concurrency is zero.
func (m *Manager) SetLoggingImmediateScheduler() {
	m.requireSequential()
	logsink.Instance().UseImmediateScheduler()
}

// SetLoggingBlockingScheduler switches the log sink to the blocking
// scheduler. Fails unless the concurrency is zero.
func (m *Manager) SetLoggingBlockingScheduler() {
	m.requireSequential()
	logsink.Instance().UseBlockingScheduler()
}

// SetLoggingNonblockingScheduler switches the log sink to the nonblocking
// scheduler. Fails unless the concurrency is zero.
func (m *Manager) SetLoggingNonblockingScheduler() {
	m.requireSequential()
	logsink.Instance().UseNonblockingScheduler()
}

func (m *Manager) requireSequential() {
	m.mu.Lock()
	defer m.mu.Unlock()
	failfast.If(m.concurrency == 0, "log scheduler can only change while the concurrency is zero")
}

// Enqueue submits a task for execution. With zero concurrency the task runs
// inline and the returned future is already settled; otherwise the task is
// forwarded to the pool.
func (m *Manager) Enqueue(f concurrency.TaskFunc) (future.Future, error) {
	m.mu.Lock()
	sequential := m.concurrency == 0
	m.mu.Unlock()

	if sequential {
		value, err := runInline(f)
		if err != nil {
			return future.Failed(err), nil
		}
		return future.Completed(value), nil
	}
	return m.pool.Enqueue(f)
}

// Submit enqueues a typed task on the singleton manager.
func Submit[R any](f func() (R, error)) (*future.FutureT[R], error) {
	fut, err := Instance().Enqueue(func() (interface{}, error) { return f() })
	if err != nil {
		return nil, err
	}
	return future.Wrap[R](fut), nil
}

func runInline(f concurrency.TaskFunc) (value interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			value, err = nil, &inlinePanicError{value: r}
		}
	}()
	return f()
}

type inlinePanicError struct {
	value interface{}
}

func (e *inlinePanicError) Error() string {
	return fmt.Sprintf("task panicked: %v", e.value)
}
