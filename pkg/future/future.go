package future

import (
	"context"
	"sync"
)

// Future represents an asynchronous computation
type Future interface {
	// Complete completes the future with a result
	Complete(result interface{})

	// Fail fails the future with an error
	Fail(err error)

	// Result returns the result channel
	// The channel receives exactly one value when the future settles
	Result() <-chan Result

	// OnSuccess registers a success handler
	OnSuccess(handler func(interface{})) Future

	// OnFailure registers a failure handler
	OnFailure(handler func(error)) Future

	// Map transforms the result
	Map(fn func(interface{}) interface{}) Future

	// Await waits for the future to complete and returns the result
	// Blocks until the future completes or context is cancelled
	// May be called any number of times once settled
	Await(ctx context.Context) (interface{}, error)

	// Then chains a success handler
	// Returns a new Future that completes with the result of the handler
	Then(fn func(interface{}) (interface{}, error)) Future

	// Catch chains an error handler
	// Returns a new Future that completes with the result of the error handler
	Catch(fn func(error) (interface{}, error)) Future

	// IsComplete returns true once the future has settled
	IsComplete() bool
}

// Promise is a writable Future
type Promise interface {
	Future

	// TryComplete attempts to complete the promise
	TryComplete(result interface{}) bool

	// TryFail attempts to fail the promise
	TryFail(err error) bool
}

// Result represents the settled value of a future
type Result struct {
	Value interface{}
	Error error
}

// Error represents a future completion error
type Error struct {
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// future implements Future
type future struct {
	resultChan      chan Result
	done            chan struct{}
	once            sync.Once
	mu              sync.RWMutex
	completed       bool
	result          Result
	successHandlers []func(interface{})
	failureHandlers []func(error)
}

// New creates a new unsettled future
func New() Future {
	return &future{
		resultChan: make(chan Result, 1),
		done:       make(chan struct{}),
	}
}

// Completed creates a future already settled with a value
func Completed(value interface{}) Future {
	f := New()
	f.Complete(value)
	return f
}

// Failed creates a future already settled with an error
func Failed(err error) Future {
	f := New()
	f.Fail(err)
	return f
}

func (f *future) settle(result Result) {
	f.once.Do(func() {
		f.mu.Lock()
		f.completed = true
		f.result = result
		successHandlers := f.successHandlers
		failureHandlers := f.failureHandlers
		f.successHandlers = nil
		f.failureHandlers = nil
		f.mu.Unlock()

		f.resultChan <- result
		close(f.done)

		if result.Error != nil {
			for _, handler := range failureHandlers {
				handler(result.Error)
			}
		} else {
			for _, handler := range successHandlers {
				handler(result.Value)
			}
		}
	})
}

func (f *future) Complete(result interface{}) {
	f.settle(Result{Value: result})
}

func (f *future) Fail(err error) {
	f.settle(Result{Error: err})
}

func (f *future) Result() <-chan Result {
	return f.resultChan
}

func (f *future) IsComplete() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.completed
}

func (f *future) OnSuccess(handler func(interface{})) Future {
	f.mu.Lock()
	if f.completed {
		result := f.result
		f.mu.Unlock()
		if result.Error == nil {
			handler(result.Value)
		}
		return f
	}
	f.successHandlers = append(f.successHandlers, handler)
	f.mu.Unlock()
	return f
}

func (f *future) OnFailure(handler func(error)) Future {
	f.mu.Lock()
	if f.completed {
		result := f.result
		f.mu.Unlock()
		if result.Error != nil {
			handler(result.Error)
		}
		return f
	}
	f.failureHandlers = append(f.failureHandlers, handler)
	f.mu.Unlock()
	return f
}

func (f *future) Map(fn func(interface{}) interface{}) Future {
	mapped := New()

	f.OnSuccess(func(result interface{}) {
		mapped.Complete(fn(result))
	})

	f.OnFailure(func(err error) {
		mapped.Fail(err)
	})

	return mapped
}

// Await waits for the future to settle: result, err := f.Await(ctx)
func (f *future) Await(ctx context.Context) (interface{}, error) {
	select {
	case <-f.done:
		f.mu.RLock()
		result := f.result
		f.mu.RUnlock()
		if result.Error != nil {
			return nil, result.Error
		}
		return result.Value, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (f *future) Then(fn func(interface{}) (interface{}, error)) Future {
	mapped := New()

	f.OnSuccess(func(result interface{}) {
		newResult, err := fn(result)
		if err != nil {
			mapped.Fail(err)
		} else {
			mapped.Complete(newResult)
		}
	})

	f.OnFailure(func(err error) {
		mapped.Fail(err)
	})

	return mapped
}

func (f *future) Catch(fn func(error) (interface{}, error)) Future {
	mapped := New()

	f.OnSuccess(func(result interface{}) {
		mapped.Complete(result)
	})

	f.OnFailure(func(err error) {
		newResult, handlerErr := fn(err)
		if handlerErr != nil {
			mapped.Fail(handlerErr)
		} else {
			mapped.Complete(newResult)
		}
	})

	return mapped
}

// promise implements Promise
type promise struct {
	Future
}

// NewPromise creates a new promise
func NewPromise() Promise {
	return &promise{
		Future: New(),
	}
}

func (p *promise) TryComplete(result interface{}) bool {
	if p.IsComplete() {
		return false
	}
	p.Complete(result)
	return true
}

func (p *promise) TryFail(err error) bool {
	if p.IsComplete() {
		return false
	}
	p.Fail(err)
	return true
}
