package future

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestFuture_CompleteAwait(t *testing.T) {
	f := New()
	go f.Complete(42)

	result, err := f.Await(context.Background())
	if err != nil {
		t.Errorf("Await() error = %v", err)
	}
	if result != 42 {
		t.Errorf("Await() = %v, want 42", result)
	}

	// Await again after settlement
	result, err = f.Await(context.Background())
	if err != nil {
		t.Errorf("second Await() error = %v", err)
	}
	if result != 42 {
		t.Errorf("second Await() = %v, want 42", result)
	}
}

func TestFuture_Fail(t *testing.T) {
	f := New()
	wantErr := errors.New("task failed")
	f.Fail(wantErr)

	_, err := f.Await(context.Background())
	if !errors.Is(err, wantErr) {
		t.Errorf("Await() error = %v, want %v", err, wantErr)
	}
}

func TestFuture_SettleOnce(t *testing.T) {
	f := New()
	f.Complete(1)
	f.Complete(2)
	f.Fail(errors.New("too late"))

	result, err := f.Await(context.Background())
	if err != nil {
		t.Errorf("Await() error = %v", err)
	}
	if result != 1 {
		t.Errorf("Await() = %v, want first settlement 1", result)
	}
}

func TestFuture_AwaitCancelled(t *testing.T) {
	f := New()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := f.Await(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Await() error = %v, want deadline exceeded", err)
	}
}

func TestFuture_Handlers(t *testing.T) {
	f := New()

	got := make(chan interface{}, 1)
	f.OnSuccess(func(v interface{}) { got <- v })
	f.Complete("done")

	select {
	case v := <-got:
		if v != "done" {
			t.Errorf("OnSuccess received %v, want done", v)
		}
	case <-time.After(time.Second):
		t.Error("OnSuccess handler not invoked")
	}

	// Handler registered after settlement runs immediately
	late := make(chan interface{}, 1)
	f.OnSuccess(func(v interface{}) { late <- v })
	select {
	case v := <-late:
		if v != "done" {
			t.Errorf("late OnSuccess received %v, want done", v)
		}
	default:
		t.Error("late OnSuccess handler should run synchronously")
	}
}

func TestFuture_OnFailure(t *testing.T) {
	f := New()
	wantErr := errors.New("boom")

	got := make(chan error, 1)
	f.OnFailure(func(err error) { got <- err })
	f.Fail(wantErr)

	select {
	case err := <-got:
		if !errors.Is(err, wantErr) {
			t.Errorf("OnFailure received %v, want %v", err, wantErr)
		}
	case <-time.After(time.Second):
		t.Error("OnFailure handler not invoked")
	}
}

func TestFuture_ThenCatch(t *testing.T) {
	f := New()
	doubled := f.Then(func(v interface{}) (interface{}, error) {
		return v.(int) * 2, nil
	})
	f.Complete(21)

	result, err := doubled.Await(context.Background())
	if err != nil {
		t.Errorf("Await() error = %v", err)
	}
	if result != 42 {
		t.Errorf("Then() result = %v, want 42", result)
	}

	failed := Failed(errors.New("initial failure"))
	recovered := failed.Catch(func(err error) (interface{}, error) {
		return "recovered", nil
	})
	result, err = recovered.Await(context.Background())
	if err != nil {
		t.Errorf("Await() error = %v", err)
	}
	if result != "recovered" {
		t.Errorf("Catch() result = %v, want recovered", result)
	}
}

func TestCompletedFailed(t *testing.T) {
	f := Completed("ready")
	if !f.IsComplete() {
		t.Error("Completed() future should be settled")
	}
	result, err := f.Await(context.Background())
	if err != nil || result != "ready" {
		t.Errorf("Completed() Await = (%v, %v), want (ready, nil)", result, err)
	}

	wantErr := errors.New("bad")
	g := Failed(wantErr)
	if !g.IsComplete() {
		t.Error("Failed() future should be settled")
	}
	if _, err := g.Await(context.Background()); !errors.Is(err, wantErr) {
		t.Errorf("Failed() Await error = %v, want %v", err, wantErr)
	}
}

func TestPromise_TryComplete(t *testing.T) {
	p := NewPromise()
	if !p.TryComplete(1) {
		t.Error("first TryComplete() should succeed")
	}
	if p.TryComplete(2) {
		t.Error("second TryComplete() should fail")
	}
	if p.TryFail(errors.New("late")) {
		t.Error("TryFail() after completion should fail")
	}
}
