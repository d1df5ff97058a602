// Package circuitbreaker implements the Circuit Breaker of spec section
// 4.5 as a mutex-guarded state enum with an explicit transition method,
// rather than channels or atomics alone.
package circuitbreaker

import (
	"sync"
	"time"

	"github.com/evildarkarchon/scanner111/internal/scanerrors"
)

// State is one of Closed, Open, HalfOpen.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "closed"
	}
}

// Breaker guards calls to an unreliable operation. Closed counts
// consecutive failures; reaching FailureThreshold opens the breaker.
// Open rejects calls until ResetTimeout elapses, then allows exactly one
// trial call in HalfOpen: success closes it (resetting the failure
// count), failure reopens it.
type Breaker struct {
	mu               sync.Mutex
	state            State
	failureThreshold int
	resetTimeout     time.Duration
	consecutiveFails int
	openedAt         time.Time
	trialInFlight    bool
}

// New constructs a Breaker in the Closed state.
func New(failureThreshold int, resetTimeout time.Duration) *Breaker {
	return &Breaker{failureThreshold: failureThreshold, resetTimeout: resetTimeout}
}

// State returns the breaker's current state, resolving an expired Open
// window to HalfOpen as a side effect: the next call after the reset
// timeout transitions the breaker to HalfOpen.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.maybeTransitionToHalfOpen()
	return b.state
}

func (b *Breaker) maybeTransitionToHalfOpen() {
	if b.state == StateOpen && time.Since(b.openedAt) >= b.resetTimeout {
		b.state = StateHalfOpen
	}
}

// Execute runs op if the breaker permits it, recording the outcome.
// Rejections never invoke op. In HalfOpen, calls made while the trial
// call is still running are rejected like calls in Open.
func (b *Breaker) Execute(op func() error) error {
	b.mu.Lock()
	b.maybeTransitionToHalfOpen()
	if b.state == StateOpen || (b.state == StateHalfOpen && b.trialInFlight) {
		b.mu.Unlock()
		return scanerrors.Wrap(scanerrors.KindCircuitOpen, "circuitbreaker.Execute", nil)
	}
	isTrial := b.state == StateHalfOpen
	if isTrial {
		b.trialInFlight = true
	}
	b.mu.Unlock()

	err := op()

	b.mu.Lock()
	defer b.mu.Unlock()
	if isTrial {
		b.trialInFlight = false
	}
	if err != nil {
		b.recordFailureLocked()
		return err
	}
	b.recordSuccessLocked()
	return nil
}

func (b *Breaker) recordFailureLocked() {
	switch b.state {
	case StateHalfOpen:
		b.open()
	case StateClosed:
		b.consecutiveFails++
		if b.consecutiveFails >= b.failureThreshold {
			b.open()
		}
	}
}

func (b *Breaker) recordSuccessLocked() {
	if b.state == StateHalfOpen {
		b.close()
		return
	}
	b.consecutiveFails = 0
}

func (b *Breaker) open() {
	b.state = StateOpen
	b.openedAt = time.Now()
	b.consecutiveFails = 0
}

func (b *Breaker) close() {
	b.state = StateClosed
	b.consecutiveFails = 0
}

// Reset manually forces the breaker back to Closed.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.close()
}
