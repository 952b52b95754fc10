package concurrency

import (
	"errors"
	"fmt"
	"sync"

	"github.com/fluxorio/threadkit/pkg/failfast"
	"github.com/fluxorio/threadkit/pkg/future"
)

// DefaultPoolName is the thread name prefix used when none is given.
const DefaultPoolName = "thr"

// ErrPoolStopped is returned by Enqueue once the pool has begun draining.
var ErrPoolStopped = errors.New("thread pool is stopped")

// TaskFunc is a unit of work submitted to a pool or buffered worker. The
// returned value and error settle the task's future; a panic fails it.
type TaskFunc func() (interface{}, error)

// TaskObserver is notified after each executed task, with the error the task
// settled with (nil on success). Used to hook in metrics without coupling the
// pool to an observability backend.
type TaskObserver func(err error)

// ThreadPool runs tasks from an unbounded FIFO queue on a resizable set of
// workers. Differently from a BufferedWorker, whose buffer is bounded (one
// element unless resized), the task queue of a pool has no upper bound.
type ThreadPool struct {
	name string

	taskMu   sync.Mutex
	taskCond *sync.Cond
	tasks    []func()
	draining bool
	numToUse int

	activeMu         sync.Mutex
	numActive        int
	allExcessStopped chan struct{}

	threadsMu sync.Mutex
	workers   []*Worker

	observer TaskObserver
}

// NewPool creates a pool of numThreads workers. The name, defaulting to
// DefaultPoolName, prefixes the worker names.
func NewPool(numThreads int, name string) *ThreadPool {
	failfast.If(numThreads >= 0, "pool size must be non-negative, got %d", numThreads)
	if name == "" {
		name = DefaultPoolName
	}
	p := &ThreadPool{
		name:             name,
		numToUse:         numThreads,
		numActive:        numThreads,
		allExcessStopped: make(chan struct{}),
	}
	p.taskCond = sync.NewCond(&p.taskMu)
	p.appendWorkerRange(0, numThreads)
	return p
}

// SetTaskObserver installs a per-task completion hook. Pass nil to remove it.
// Must be called before tasks are enqueued.
func (p *ThreadPool) SetTaskObserver(observer TaskObserver) {
	p.taskMu.Lock()
	defer p.taskMu.Unlock()
	p.observer = observer
}

// Enqueue submits a task, returning the future carrying its result. There is
// no limit on the number of queued tasks. Fails with ErrPoolStopped once the
// pool is draining.
func (p *ThreadPool) Enqueue(f TaskFunc) (future.Future, error) {
	fut := future.New()
	thunk := p.packageTask(f, fut)

	p.taskMu.Lock()
	if p.draining {
		p.taskMu.Unlock()
		return nil, ErrPoolStopped
	}
	p.tasks = append(p.tasks, thunk)
	p.taskMu.Unlock()
	p.taskCond.Signal()
	return fut, nil
}

// Submit enqueues a typed task on pool p.
func Submit[R any](p *ThreadPool, f func() (R, error)) (*future.FutureT[R], error) {
	fut, err := p.Enqueue(func() (interface{}, error) { return f() })
	if err != nil {
		return nil, err
	}
	return future.Wrap[R](fut), nil
}

func (p *ThreadPool) packageTask(f TaskFunc, fut future.Future) func() {
	return func() {
		var err error
		defer func() {
			if r := recover(); r != nil {
				err = &panicError{value: r}
				fut.Fail(err)
			}
			if p.observer != nil {
				p.observer(err)
			}
		}()
		var value interface{}
		value, err = f()
		if err != nil {
			fut.Fail(err)
		} else {
			fut.Complete(value)
		}
	}
}

// Name returns the pool name.
func (p *ThreadPool) Name() string {
	return p.name
}

// QueueSize returns the number of tasks not yet claimed by a worker.
func (p *ThreadPool) QueueSize() int {
	p.taskMu.Lock()
	defer p.taskMu.Unlock()
	return len(p.tasks)
}

// NumThreads returns the current number of workers.
func (p *ThreadPool) NumThreads() int {
	p.threadsMu.Lock()
	defer p.threadsMu.Unlock()
	return len(p.workers)
}

// SetNumThreads resizes the pool. Growing spawns workers immediately. When
// reducing the current number, this method blocks until the workers in excess
// have finished their in-flight tasks and stopped; remaining workers keep
// serving the queue meanwhile.
func (p *ThreadPool) SetNumThreads(number int) {
	failfast.If(number >= 0, "pool size must be non-negative, got %d", number)
	p.threadsMu.Lock()
	defer p.threadsMu.Unlock()

	oldSize := len(p.workers)
	p.taskMu.Lock()
	p.numToUse = number
	p.taskMu.Unlock()

	if number > oldSize {
		p.activeMu.Lock()
		p.numActive = number
		p.activeMu.Unlock()
		p.appendWorkerRange(oldSize, number)
	} else if number < oldSize {
		p.taskCond.Broadcast()

		p.activeMu.Lock()
		stopped := p.allExcessStopped
		p.activeMu.Unlock()
		<-stopped

		for _, w := range p.workers[number:] {
			w.Close()
		}
		p.workers = p.workers[:number]

		p.activeMu.Lock()
		p.allExcessStopped = make(chan struct{})
		p.activeMu.Unlock()
	}
}

// Close drains the pool: no further tasks are accepted, queued tasks run to
// completion, then all workers are joined.
func (p *ThreadPool) Close() {
	p.taskMu.Lock()
	p.draining = true
	p.taskMu.Unlock()
	p.taskCond.Broadcast()

	p.threadsMu.Lock()
	defer p.threadsMu.Unlock()
	for _, w := range p.workers {
		w.Close()
	}
	p.workers = nil
}

func (p *ThreadPool) appendWorkerRange(lower, upper int) {
	for i := lower; i < upper; i++ {
		p.workers = append(p.workers, NewWorker(p.workerLoop(i), ConstructName(p.name, i, upper)))
	}
}

// workerLoop is the body of the worker at spawn index i. The index identifies
// the worker when stopping selectively: on shrink, workers at indices at or
// beyond the target count stop once their current task is done.
func (p *ThreadPool) workerLoop(i int) func() error {
	return func() error {
		for {
			var task func()
			got := false

			p.taskMu.Lock()
			for !(p.draining || p.hasExcessActive() || len(p.tasks) > 0) {
				p.taskCond.Wait()
			}
			if p.draining && len(p.tasks) == 0 {
				p.taskMu.Unlock()
				return nil
			}
			if len(p.tasks) > 0 {
				task = p.tasks[0]
				p.tasks = p.tasks[1:]
				got = true
			}
			p.taskMu.Unlock()

			if got {
				task()
			}

			p.taskMu.Lock()
			stop := i >= p.numToUse
			target := p.numToUse
			p.taskMu.Unlock()
			if stop {
				p.activeMu.Lock()
				p.numActive--
				if p.numActive == target {
					close(p.allExcessStopped)
				}
				p.activeMu.Unlock()
				return nil
			}
		}
	}
}

// hasExcessActive reports whether more workers are active than requested,
// i.e. a shrink is in progress. Called with taskMu held.
func (p *ThreadPool) hasExcessActive() bool {
	p.activeMu.Lock()
	defer p.activeMu.Unlock()
	return p.numActive > p.numToUse
}

type panicError struct {
	value interface{}
}

func (e *panicError) Error() string {
	return fmt.Sprintf("task panicked: %v", e.value)
}
