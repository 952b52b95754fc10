package logsink

import "sync"

var workingSymbols = []byte{'\\', '|', '/', '-'}

// ProgressIndicator tracks the advancement of a long-running activity as a
// current/final pair, exposing a percentage and a rotating working symbol.
type ProgressIndicator struct {
	mu      sync.Mutex
	current float64
	final   float64
	step    int
}

// NewProgressIndicator creates an indicator with the given final value.
func NewProgressIndicator(final float64) *ProgressIndicator {
	return &ProgressIndicator{final: final}
}

// UpdateCurrent sets the current value and advances the working symbol.
func (p *ProgressIndicator) UpdateCurrent(current float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if current != p.current {
		p.step++
	}
	p.current = current
}

// UpdateFinal sets the final value.
func (p *ProgressIndicator) UpdateFinal(final float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.final = final
}

// Current returns the current value.
func (p *ProgressIndicator) Current() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// Final returns the final value.
func (p *ProgressIndicator) Final() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.final
}

// Percentage returns the completion percentage in [0,100], 0 when the final
// value is unset.
func (p *ProgressIndicator) Percentage() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.final <= 0 {
		return 0
	}
	pct := int(p.current / p.final * 100)
	if pct > 100 {
		pct = 100
	}
	return pct
}

// Symbol returns the working symbol for the current step.
func (p *ProgressIndicator) Symbol() byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return workingSymbols[p.step%len(workingSymbols)]
}
