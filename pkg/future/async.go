package future

import (
	"context"
)

// FutureT is a type-safe Future using Go generics
// This is a struct, not an interface, because Go doesn't allow type parameters on interface methods
type FutureT[T any] struct {
	future Future
}

// PromiseT is a type-safe Promise using Go generics
type PromiseT[T any] struct {
	FutureT[T]
}

// NewT creates a new type-safe Future
func NewT[T any]() *FutureT[T] {
	return &FutureT[T]{
		future: New(),
	}
}

// NewPromiseT creates a new type-safe Promise
func NewPromiseT[T any]() *PromiseT[T] {
	return &PromiseT[T]{
		FutureT: FutureT[T]{
			future: NewPromise(),
		},
	}
}

// Wrap adapts an untyped Future into a typed one
// The value settled into f must be assignable to T
func Wrap[T any](f Future) *FutureT[T] {
	return &FutureT[T]{future: f}
}

// Await waits for the future to complete and returns the typed result
func (f *FutureT[T]) Await(ctx context.Context) (T, error) {
	var zero T
	result, err := f.future.Await(ctx)
	if err != nil {
		return zero, err
	}

	typed, ok := result.(T)
	if !ok {
		return zero, &Error{Message: "type assertion failed"}
	}
	return typed, nil
}

// OnSuccess registers a typed callback
func (f *FutureT[T]) OnSuccess(handler func(T)) *FutureT[T] {
	f.future.OnSuccess(func(result interface{}) {
		typed, ok := result.(T)
		if ok {
			handler(typed)
		}
	})
	return f
}

// OnFailure registers an error callback
func (f *FutureT[T]) OnFailure(handler func(error)) *FutureT[T] {
	f.future.OnFailure(handler)
	return f
}

// IsComplete returns true once the future has settled
func (f *FutureT[T]) IsComplete() bool {
	return f.future.IsComplete()
}

// Complete completes the promise with a typed value
func (p *PromiseT[T]) Complete(value T) {
	p.future.Complete(value)
}

// Fail fails the promise with an error
func (p *PromiseT[T]) Fail(err error) {
	p.future.Fail(err)
}

// awaitable lets the combinators below accept both FutureT and PromiseT
type awaitable[T any] interface {
	Await(context.Context) (T, error)
}

func underlying[T any](f awaitable[T]) (Future, bool) {
	switch v := f.(type) {
	case *FutureT[T]:
		return v.future, true
	case *PromiseT[T]:
		return v.future, true
	default:
		return nil, false
	}
}

// Then chains a success handler, returning a Future with the transformed type
func Then[T any, R any](f awaitable[T], fn func(T) (R, error)) *FutureT[R] {
	mapped := NewT[R]()

	fut, ok := underlying(f)
	if !ok {
		mapped.future.Fail(&Error{Message: "invalid future type"})
		return mapped
	}

	fut.OnSuccess(func(result interface{}) {
		typed, ok := result.(T)
		if !ok {
			mapped.future.Fail(&Error{Message: "type assertion failed"})
			return
		}

		newResult, err := fn(typed)
		if err != nil {
			mapped.future.Fail(err)
		} else {
			mapped.future.Complete(newResult)
		}
	})

	fut.OnFailure(func(err error) {
		mapped.future.Fail(err)
	})

	return mapped
}

// Catch chains an error handler, returning a Future that recovers from errors
func Catch[T any](f awaitable[T], fn func(error) (T, error)) *FutureT[T] {
	mapped := NewT[T]()

	fut, ok := underlying(f)
	if !ok {
		mapped.future.Fail(&Error{Message: "invalid future type"})
		return mapped
	}

	fut.OnSuccess(func(result interface{}) {
		typed, ok := result.(T)
		if !ok {
			mapped.future.Fail(&Error{Message: "type assertion failed"})
			return
		}
		mapped.future.Complete(typed)
	})

	fut.OnFailure(func(err error) {
		newResult, handlerErr := fn(err)
		if handlerErr != nil {
			mapped.future.Fail(handlerErr)
		} else {
			mapped.future.Complete(newResult)
		}
	})

	return mapped
}

// MapT transforms the result synchronously
func MapT[T any, R any](f awaitable[T], fn func(T) R) *FutureT[R] {
	return Then(f, func(v T) (R, error) { return fn(v), nil })
}

// All waits for all futures to complete
func All[T any](ctx context.Context, futures ...awaitable[T]) *FutureT[[]T] {
	promise := NewPromiseT[[]T]()

	go func() {
		results := make([]T, 0, len(futures))
		for _, f := range futures {
			result, err := f.Await(ctx)
			if err != nil {
				promise.Fail(err)
				return
			}
			results = append(results, result)
		}
		promise.Complete(results)
	}()

	return &promise.FutureT
}

// Race returns the first future that settles
func Race[T any](ctx context.Context, futures ...awaitable[T]) *FutureT[T] {
	promise := NewPromiseT[T]()

	go func() {
		resultChan := make(chan T, 1)
		errChan := make(chan error, 1)

		for _, f := range futures {
			go func(fut awaitable[T]) {
				result, err := fut.Await(ctx)
				if err != nil {
					select {
					case errChan <- err:
					default:
					}
				} else {
					select {
					case resultChan <- result:
					default:
					}
				}
			}(f)
		}

		select {
		case result := <-resultChan:
			promise.Complete(result)
		case err := <-errChan:
			promise.Fail(err)
		case <-ctx.Done():
			promise.Fail(ctx.Err())
		}
	}()

	return &promise.FutureT
}
