// Package concurrency provides the execution primitives of the toolkit:
// single-task workers, a buffered single-goroutine worker and a resizable
// pool over an unbounded task queue.
package concurrency

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/fluxorio/threadkit/pkg/logsink"
)

// Worker owns one goroutine that runs a single task and then exits. The
// constructor returns only after the goroutine has produced its id, so ID()
// never observes an empty value, and the task never starts before the worker
// has been registered with the log sink.
type Worker struct {
	name string
	id   string
	task func() error

	mu     sync.Mutex
	err    error
	active bool

	ready chan struct{}
	done  chan struct{}

	closeOnce sync.Once
}

// NewWorker spawns an active worker running task. An empty name defaults to
// the worker id.
func NewWorker(task func() error, name string) *Worker {
	return newWorker(task, name, true)
}

// NewInactiveWorker spawns a worker whose task will not run until Activate is
// called. Closing a never-activated worker releases the goroutine without
// running the task and without sink registration.
func NewInactiveWorker(task func() error, name string) *Worker {
	return newWorker(task, name, false)
}

func newWorker(task func() error, name string, active bool) *Worker {
	w := &Worker{
		name:   name,
		task:   task,
		active: active,
		ready:  make(chan struct{}),
		done:   make(chan struct{}),
	}

	idReady := make(chan string, 1)
	go w.run(idReady)
	w.id = <-idReady

	if w.name == "" {
		w.name = w.id
	}
	if active {
		logsink.Instance().RegisterThread(w.id, w.name)
		close(w.ready)
	}
	return w
}

func (w *Worker) run(idReady chan<- string) {
	defer close(w.done)
	idReady <- uuid.NewString()

	<-w.ready

	w.mu.Lock()
	active := w.active
	w.mu.Unlock()
	if !active {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			w.mu.Lock()
			w.err = fmt.Errorf("task panicked: %v", r)
			w.mu.Unlock()
		}
	}()
	if err := w.task(); err != nil {
		w.mu.Lock()
		w.err = err
		w.mu.Unlock()
	}
}

// ID returns the worker id, valid as soon as the constructor returns.
func (w *Worker) ID() string {
	return w.id
}

// Name returns the readable name.
func (w *Worker) Name() string {
	return w.name
}

// Activate starts task execution on a worker constructed inactive. Calling it
// on an already active worker does nothing.
func (w *Worker) Activate() {
	w.mu.Lock()
	if w.active {
		w.mu.Unlock()
		return
	}
	w.active = true
	w.mu.Unlock()

	logsink.Instance().RegisterThread(w.id, w.name)
	close(w.ready)
}

// Err returns the error captured from the task, if any.
func (w *Worker) Err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}

// Close joins the goroutine and unregisters from the log sink. A worker that
// was never activated is released without running its task.
func (w *Worker) Close() {
	w.closeOnce.Do(func() {
		w.mu.Lock()
		wasActive := w.active
		w.mu.Unlock()

		if !wasActive {
			close(w.ready)
			<-w.done
			return
		}
		<-w.done
		logsink.Instance().UnregisterThread(w.id)
	})
}
