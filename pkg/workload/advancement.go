// Package workload provides breadth-first drivers that run a user task over a
// stream of elements, with live progress accounting and error propagation.
package workload

import (
	"sync"

	"github.com/fluxorio/threadkit/pkg/failfast"
)

// Advancement tracks the status of multiple elements to process as three
// synchronised counters: waiting, processing and completed. Elements only move
// forward: waiting grows, waiting moves to processing, processing moves to
// completed.
type Advancement struct {
	mu         sync.Mutex
	waiting    int
	processing int
	completed  int
}

// NewAdvancement creates a counter with an initial number of waiting elements.
func NewAdvancement(initial int) *Advancement {
	return &Advancement{waiting: initial}
}

// Waiting returns the elements waiting to be processed.
func (a *Advancement) Waiting() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.waiting
}

// Processing returns the elements under processing.
func (a *Advancement) Processing() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.processing
}

// Completed returns the completed elements.
func (a *Advancement) Completed() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.completed
}

// Total returns the sum of waiting, processing and completed elements.
func (a *Advancement) Total() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.waiting + a.processing + a.completed
}

// AddToWaiting adds n elements to waiting. n must be positive.
func (a *Advancement) AddToWaiting(n int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	failfast.If(n > 0, "waiting increment must be positive, got %d", n)
	a.waiting += n
}

// AddToProcessing moves n waiting elements to processing.
func (a *Advancement) AddToProcessing(n int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	failfast.If(n <= a.waiting, "cannot move %d elements to processing with %d waiting", n, a.waiting)
	a.waiting -= n
	a.processing += n
}

// AddToCompleted moves n processing elements to completed.
func (a *Advancement) AddToCompleted(n int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	failfast.If(n <= a.processing, "cannot move %d elements to completed with %d processing", n, a.processing)
	a.processing -= n
	a.completed += n
}

// CompletionRate returns the rate of completion in [0,1], 0 when there are no
// elements.
func (a *Advancement) CompletionRate() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	total := a.waiting + a.processing + a.completed
	if total == 0 {
		return 0
	}
	return float64(a.completed) / float64(total)
}

// HasFinished reports whether no processing remains, true also in the initial
// state with no elements.
func (a *Advancement) HasFinished() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.processing == 0 && a.waiting == 0
}
