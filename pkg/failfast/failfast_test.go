package failfast

import (
	"errors"
	"testing"
)

func TestErr(t *testing.T) {
	// Should not panic with nil error
	Err(nil)

	// Should panic with non-nil error
	defer func() {
		r := recover()
		if r == nil {
			t.Error("Err() with non-nil error should panic")
		}
		err, ok := r.(error)
		if !ok {
			t.Fatalf("panic value should be an error, got %T", r)
		}
		if !errors.Is(err, ErrPrecondition) {
			t.Errorf("panic error should wrap ErrPrecondition, got %v", err)
		}
	}()

	Err(errors.New("boom"))
}

func TestIf(t *testing.T) {
	// Should not panic when condition holds
	If(true, "should not fire")

	defer func() {
		r := recover()
		if r == nil {
			t.Error("If() with false condition should panic")
		}
		err, ok := r.(error)
		if !ok {
			t.Fatalf("panic value should be an error, got %T", r)
		}
		if !errors.Is(err, ErrPrecondition) {
			t.Errorf("panic error should wrap ErrPrecondition, got %v", err)
		}
	}()

	If(false, "value %d out of range", 42)
}

func TestNotNil(t *testing.T) {
	NotNil("value", "value")
	NotNil(42, "number")

	tests := []struct {
		name  string
		value interface{}
	}{
		{"untyped nil", nil},
		{"typed nil pointer", (*int)(nil)},
		{"nil function", (func())(nil)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Errorf("NotNil(%s) should panic", tt.name)
				}
			}()
			NotNil(tt.value, tt.name)
		})
	}
}
