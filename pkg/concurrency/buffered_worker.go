package concurrency

import (
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/fluxorio/threadkit/pkg/buffer"
	"github.com/fluxorio/threadkit/pkg/future"
	"github.com/fluxorio/threadkit/pkg/logsink"
)

// BufferedWorker owns one goroutine consuming tasks from a capacity-bounded
// buffer, initially of one element. Compared with Worker it accepts multiple
// tasks over its lifetime, one at a time; compared with ThreadPool it is meant
// to be used in isolation, being functionally equivalent to a pool of one.
type BufferedWorker struct {
	name string
	id   string
	buf  *buffer.Buffer[func()]
	done chan struct{}

	closeOnce sync.Once
}

// NewBufferedWorker spawns a buffered worker. An empty name defaults to the
// worker id.
func NewBufferedWorker(name string) *BufferedWorker {
	w := &BufferedWorker{
		name: name,
		buf:  buffer.New[func()](1),
		done: make(chan struct{}),
	}

	idReady := make(chan string, 1)
	go func() {
		defer close(w.done)
		idReady <- uuid.NewString()
		for {
			task, err := w.buf.Pull()
			if errors.Is(err, buffer.ErrInterrupted) {
				return
			}
			task()
		}
	}()
	w.id = <-idReady

	if w.name == "" {
		w.name = w.id
	}
	logsink.Instance().RegisterThread(w.id, w.name)
	return w
}

// Enqueue submits a task, returning the future carrying its result. Blocks
// while the buffer is full.
func (w *BufferedWorker) Enqueue(f TaskFunc) future.Future {
	fut := future.New()
	w.buf.Push(func() {
		defer func() {
			if r := recover(); r != nil {
				fut.Fail(&panicError{value: r})
			}
		}()
		value, err := f()
		if err != nil {
			fut.Fail(err)
		} else {
			fut.Complete(value)
		}
	})
	return fut
}

// SubmitBuffered enqueues a typed task on worker w.
func SubmitBuffered[R any](w *BufferedWorker, f func() (R, error)) *future.FutureT[R] {
	return future.Wrap[R](w.Enqueue(func() (interface{}, error) { return f() }))
}

// ID returns the worker id, valid as soon as the constructor returns.
func (w *BufferedWorker) ID() string {
	return w.id
}

// Name returns the readable name.
func (w *BufferedWorker) Name() string {
	return w.name
}

// QueueSize returns the number of tasks waiting in the buffer.
func (w *BufferedWorker) QueueSize() int {
	return w.buf.Size()
}

// QueueCapacity returns the buffer capacity.
func (w *BufferedWorker) QueueCapacity() int {
	return w.buf.Capacity()
}

// SetQueueCapacity changes the buffer capacity. Capacity cannot be reduced
// below the current size.
func (w *BufferedWorker) SetQueueCapacity(capacity int) {
	w.buf.SetCapacity(capacity)
}

// Close interrupts consumption and joins the goroutine. Futures of tasks that
// were enqueued but never executed will not complete.
func (w *BufferedWorker) Close() {
	w.closeOnce.Do(func() {
		w.buf.InterruptConsume()
		<-w.done
		logsink.Instance().UnregisterThread(w.id)
	})
}
