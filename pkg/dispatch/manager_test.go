package dispatch

import (
	"context"
	"errors"
	"runtime"
	"testing"

	"github.com/fluxorio/threadkit/pkg/config"
	"github.com/fluxorio/threadkit/pkg/logsink"
)

func TestInstance_Singleton(t *testing.T) {
	m := Instance()
	if m != Instance() {
		t.Error("Instance() should return the same manager")
	}
	if !logsink.Instance().HasThreadRegistryAttached() {
		t.Error("first access should attach the manager to the log sink")
	}
}

func TestMaximumConcurrency(t *testing.T) {
	m := Instance()
	if got := m.MaximumConcurrency(); got != runtime.NumCPU() {
		t.Errorf("MaximumConcurrency() = %d, want %d", got, runtime.NumCPU())
	}
}

func TestSetConcurrency(t *testing.T) {
	m := Instance()
	defer m.SetConcurrency(0)

	if got := m.Concurrency(); got != 0 {
		t.Errorf("initial Concurrency() = %d, want 0", got)
	}
	if m.HasThreadsRegistered() {
		t.Error("HasThreadsRegistered() should be false at zero concurrency")
	}

	m.SetConcurrency(1)
	if got := m.Concurrency(); got != 1 {
		t.Errorf("Concurrency() = %d, want 1", got)
	}
	if got := m.Pool().NumThreads(); got != 1 {
		t.Errorf("pool NumThreads() = %d, want 1", got)
	}
	if !m.HasThreadsRegistered() {
		t.Error("HasThreadsRegistered() should be true at concurrency 1")
	}
}

func TestSetConcurrency_AboveMaximum(t *testing.T) {
	m := Instance()
	defer func() {
		if recover() == nil {
			t.Error("SetConcurrency() above the maximum should panic")
		}
	}()
	m.SetConcurrency(m.MaximumConcurrency() + 1)
}

func TestSetMaximumConcurrency(t *testing.T) {
	m := Instance()
	defer m.SetConcurrency(0)

	m.SetMaximumConcurrency()
	if got := m.Concurrency(); got != m.MaximumConcurrency() {
		t.Errorf("Concurrency() = %d, want %d", got, m.MaximumConcurrency())
	}
}

func TestEnqueue_Inline(t *testing.T) {
	m := Instance()
	m.SetConcurrency(0)

	ran := false
	fut, err := m.Enqueue(func() (interface{}, error) {
		ran = true
		return 42, nil
	})
	if err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}
	if !ran {
		t.Error("zero-concurrency Enqueue() should run the task inline")
	}
	if !fut.IsComplete() {
		t.Error("inline future should be settled on return")
	}
	if v, err := fut.Await(context.Background()); err != nil || v != 42 {
		t.Errorf("Await() = (%v, %v), want (42, nil)", v, err)
	}
}

func TestEnqueue_InlineError(t *testing.T) {
	m := Instance()
	m.SetConcurrency(0)

	wantErr := errors.New("inline failure")
	fut, err := m.Enqueue(func() (interface{}, error) { return nil, wantErr })
	if err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}
	if _, err := fut.Await(context.Background()); !errors.Is(err, wantErr) {
		t.Errorf("Await() error = %v, want %v", err, wantErr)
	}
}

func TestEnqueue_Concurrent(t *testing.T) {
	m := Instance()
	m.SetConcurrency(1)
	defer m.SetConcurrency(0)

	fut, err := Submit(func() (string, error) { return "pooled", nil })
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	v, err := fut.Await(context.Background())
	if err != nil {
		t.Fatalf("Await() error = %v", err)
	}
	if v != "pooled" {
		t.Errorf("Await() = %q, want pooled", v)
	}
}

func TestApply(t *testing.T) {
	m := Instance()
	defer m.SetConcurrency(0)

	cfg := config.Default()
	cfg.Concurrency = 1
	cfg.Verbosity = 0
	if err := m.Apply(cfg); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if got := m.Concurrency(); got != 1 {
		t.Errorf("Concurrency() = %d, want 1", got)
	}

	bad := config.Default()
	bad.Concurrency = m.MaximumConcurrency() + 1
	if err := m.Apply(bad); err == nil {
		t.Error("Apply() with out-of-range concurrency should fail")
	}
}

func TestSchedulerSwitches(t *testing.T) {
	m := Instance()
	m.SetConcurrency(0)

	m.SetLoggingBlockingScheduler()
	m.SetLoggingNonblockingScheduler()
	m.SetLoggingImmediateScheduler()

	m.SetConcurrency(1)
	defer m.SetConcurrency(0)

	defer func() {
		if recover() == nil {
			t.Error("scheduler switch with nonzero concurrency should panic")
		}
	}()
	m.SetLoggingImmediateScheduler()
}
