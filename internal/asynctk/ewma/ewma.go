// Package ewma implements an exponentially-weighted moving average
// accumulator: P_{t+1} = alpha*P_t + (1-alpha)*x_t, smoothing any
// non-negative float64 sample stream (here: per-item processing latency
// in the batch processor).
package ewma

import "sync"

// Accumulator smooths a stream of non-negative samples with factor alpha.
// alpha close to 1.0 favors history; alpha close to 0.0 tracks the most
// recent sample. Safe for concurrent Update/Value calls.
type Accumulator struct {
	mu    sync.Mutex
	alpha float64
	value float64
}

// New creates an Accumulator. alpha must be in [0.0, 1.0]; panics
// otherwise.
func New(alpha float64) *Accumulator {
	if alpha < 0.0 || alpha > 1.0 {
		panic("ewma: alpha must be in [0.0, 1.0]")
	}
	return &Accumulator{alpha: alpha}
}

// Update applies one EWMA step and returns the new smoothed value.
func (a *Accumulator) Update(sample float64) float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.value = a.alpha*a.value + (1.0-a.alpha)*sample
	return a.value
}

// Value returns the current smoothed value without updating it.
func (a *Accumulator) Value() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.value
}

// Reset sets the smoothed value back to zero.
func (a *Accumulator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.value = 0.0
}
