package failfast

import (
	"errors"
	"fmt"
	"reflect"
	"runtime/debug"
)

// ErrPrecondition marks a fail-fast violation. Panics raised by this package
// wrap it, so recover sites can match with errors.Is.
var ErrPrecondition = errors.New("precondition violated")

// Err panics if err != nil (fail-fast principle)
// Includes stack trace for debugging
func Err(err error) {
	if err != nil {
		panic(fmt.Errorf("%w: %w\n%s", ErrPrecondition, err, debug.Stack()))
	}
}

// If panics if condition is false
// Allows formatted messages with args
func If(condition bool, message string, args ...interface{}) {
	if !condition {
		panic(fmt.Errorf("%w: %s", ErrPrecondition, fmt.Sprintf(message, args...)))
	}
}

// NotNil panics if ptr is nil
// Handles both untyped nil and typed nil pointers correctly
func NotNil(ptr interface{}, name string) {
	if ptr == nil {
		panic(fmt.Errorf("%w: %s is nil", ErrPrecondition, name))
	}
	v := reflect.ValueOf(ptr)
	if v.Kind() == reflect.Ptr && v.IsNil() {
		panic(fmt.Errorf("%w: %s is nil", ErrPrecondition, name))
	}
	if v.Kind() == reflect.Func && v.IsNil() {
		panic(fmt.Errorf("%w: %s is nil", ErrPrecondition, name))
	}
}
