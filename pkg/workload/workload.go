package workload

import (
	"fmt"
	"sync"

	"github.com/fluxorio/threadkit/pkg/dispatch"
	"github.com/fluxorio/threadkit/pkg/logsink"
)

// ProgressFunc acknowledges progress for an element into the shared indicator.
type ProgressFunc[E any] func(e E, indicator *logsink.ProgressIndicator)

// boundPair is a task and its progress acknowledgement, both bound to one
// element.
type boundPair struct {
	task     func() error
	progress func()
}

// base carries the state shared by the static and dynamic drivers: the bound
// task function, the advancement counters, the sequential queue consumed by
// Process, and the availability condition the whole driver synchronises on.
type base[E any] struct {
	taskFunc     func(E) error
	progressFunc ProgressFunc[E]
	advancement  *Advancement
	indicator    *logsink.ProgressIndicator
	scope        string

	loggerLevel int

	appendMu  sync.Mutex
	availMu   sync.Mutex
	availCond *sync.Cond

	queue []boundPair
	err   error
}

func newBase[E any](scope string) *base[E] {
	b := &base[E]{
		advancement: NewAdvancement(0),
		indicator:   logsink.NewProgressIndicator(0),
	}
	b.scope = fmt.Sprintf("%s(%p)", scope, b)
	b.availCond = sync.NewCond(&b.availMu)
	b.progressFunc = b.defaultProgressAcknowledge
	return b
}

func (b *base[E]) defaultProgressAcknowledge(_ E, indicator *logsink.ProgressIndicator) {
	indicator.UpdateCurrent(float64(b.advancement.Completed()))
	indicator.UpdateFinal(float64(b.advancement.Total()))
}

// append binds the task and progress acknowledgement against e and grows the
// sequential queue.
func (b *base[E]) append(e E) {
	b.advancement.AddToWaiting(1)
	pair := b.bind(e)
	b.availMu.Lock()
	b.queue = append(b.queue, pair)
	b.availMu.Unlock()
}

func (b *base[E]) bind(e E) boundPair {
	return boundPair{
		task:     func() error { return b.taskFunc(e) },
		progress: func() { b.progressFunc(e, b.indicator) },
	}
}

// size returns the sequential queue length.
func (b *base[E]) size() int {
	b.availMu.Lock()
	defer b.availMu.Unlock()
	return len(b.queue)
}

func (b *base[E]) usingConcurrency() bool {
	return dispatch.Instance().Concurrency() > 0
}

// process drives the workload until every element has completed or a task has
// failed. Elements are consumed from the sequential queue; under concurrency
// each one is forwarded to the dispatcher and the loop proceeds immediately,
// so several tasks run at once.
func (b *base[E]) process() error {
	sink := logsink.Instance()
	b.loggerLevel = sink.CurrentLevel()
	defer sink.ReleaseHold(b.scope)

	for {
		b.availMu.Lock()
		for !(b.advancement.HasFinished() || len(b.queue) > 0 || b.err != nil) {
			b.availCond.Wait()
		}
		if b.err != nil {
			err := b.err
			b.availMu.Unlock()
			return err
		}
		if b.advancement.HasFinished() {
			b.availMu.Unlock()
			return nil
		}
		pair := b.queue[0]
		b.queue = b.queue[1:]
		b.availMu.Unlock()

		if b.usingConcurrency() {
			if _, err := dispatch.Instance().Enqueue(func() (interface{}, error) {
				b.concurrentTaskWrapper(pair)
				return nil, nil
			}); err != nil {
				return err
			}
		} else {
			b.advancement.AddToProcessing(1)
			if !sink.IsMutedAt(0) {
				pair.progress()
				b.printHold()
			}
			if err := pair.task(); err != nil {
				return err
			}
			b.advancement.AddToCompleted(1)
		}
	}
}

// concurrentTaskWrapper runs on a pool worker. Completion accounting happens
// under the availability mutex so that the driver loop cannot miss the final
// wake-up; a task error stashes the first error observed and wakes the loop.
func (b *base[E]) concurrentTaskWrapper(pair boundPair) {
	sink := logsink.Instance()

	b.advancement.AddToProcessing(1)
	sink.AlignLevel(b.loggerLevel)

	if !sink.IsMutedAt(0) {
		pair.progress()
		b.printHold()
	}

	if err := runBound(pair.task); err != nil {
		b.availMu.Lock()
		if b.err == nil {
			b.err = err
		}
		b.availMu.Unlock()
		b.availCond.Signal()
	}

	b.availMu.Lock()
	b.advancement.AddToCompleted(1)
	b.availMu.Unlock()
	if b.advancement.HasFinished() {
		b.availCond.Signal()
	}
}

// enqueue routes an element appended during processing. Under concurrency it
// goes straight to the pool FIFO, preserving breadth-first expansion; under
// zero concurrency it grows the sequential queue and wakes the driver loop.
func (b *base[E]) enqueue(e E) {
	if b.usingConcurrency() {
		b.advancement.AddToWaiting(1)
		pair := b.bind(e)
		_, _ = dispatch.Instance().Enqueue(func() (interface{}, error) {
			b.concurrentTaskWrapper(pair)
			return nil, nil
		})
	} else {
		b.appendMu.Lock()
		b.append(e)
		b.appendMu.Unlock()
		b.availCond.Signal()
	}
}

// runBound converts a task panic into an error so that completion accounting
// always runs and the driver loop cannot hang on a lost element.
func runBound(task func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panicked: %v", r)
		}
	}()
	return task()
}

func (b *base[E]) printHold() {
	text := fmt.Sprintf("[%c] %d%%  (w=%-2d p=%-2d c=%-3d)",
		b.indicator.Symbol(), b.indicator.Percentage(),
		b.advancement.Waiting(), b.advancement.Processing(), b.advancement.Completed())
	logsink.Instance().Hold(b.scope, text)
}
