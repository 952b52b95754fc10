package future

import (
	"context"
	"errors"
	"testing"
)

func TestFutureT_Await(t *testing.T) {
	p := NewPromiseT[int]()
	go p.Complete(7)

	v, err := p.Await(context.Background())
	if err != nil {
		t.Errorf("Await() error = %v", err)
	}
	if v != 7 {
		t.Errorf("Await() = %d, want 7", v)
	}
}

func TestFutureT_TypeMismatch(t *testing.T) {
	f := Wrap[int](Completed("not an int"))
	_, err := f.Await(context.Background())
	if err == nil {
		t.Error("Await() with mismatched type should fail")
	}
}

func TestThen(t *testing.T) {
	p := NewPromiseT[int]()
	mapped := Then[int, string](p, func(v int) (string, error) {
		if v < 0 {
			return "", errors.New("negative")
		}
		return "ok", nil
	})

	p.Complete(1)
	v, err := mapped.Await(context.Background())
	if err != nil {
		t.Errorf("Await() error = %v", err)
	}
	if v != "ok" {
		t.Errorf("Then() = %q, want ok", v)
	}
}

func TestCatch(t *testing.T) {
	p := NewPromiseT[int]()
	recovered := Catch[int](p, func(err error) (int, error) {
		return -1, nil
	})

	p.Fail(errors.New("boom"))
	v, err := recovered.Await(context.Background())
	if err != nil {
		t.Errorf("Await() error = %v", err)
	}
	if v != -1 {
		t.Errorf("Catch() = %d, want -1", v)
	}
}

func TestMapT(t *testing.T) {
	p := NewPromiseT[int]()
	squared := MapT[int, int](p, func(v int) int { return v * v })

	p.Complete(6)
	v, err := squared.Await(context.Background())
	if err != nil {
		t.Errorf("Await() error = %v", err)
	}
	if v != 36 {
		t.Errorf("MapT() = %d, want 36", v)
	}
}

func TestAll(t *testing.T) {
	p1 := NewPromiseT[int]()
	p2 := NewPromiseT[int]()
	all := All[int](context.Background(), p1, p2)

	p1.Complete(1)
	p2.Complete(2)

	vs, err := all.Await(context.Background())
	if err != nil {
		t.Errorf("Await() error = %v", err)
	}
	if len(vs) != 2 || vs[0] != 1 || vs[1] != 2 {
		t.Errorf("All() = %v, want [1 2]", vs)
	}
}

func TestRace(t *testing.T) {
	p1 := NewPromiseT[string]()
	p2 := NewPromiseT[string]()
	winner := Race[string](context.Background(), p1, p2)

	p2.Complete("fast")

	v, err := winner.Await(context.Background())
	if err != nil {
		t.Errorf("Await() error = %v", err)
	}
	if v != "fast" {
		t.Errorf("Race() = %q, want fast", v)
	}
}
