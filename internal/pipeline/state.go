// Package pipeline implements the Analysis Pipeline Orchestrator of spec
// section 4.1: a three-stage (Load, Analyze, Compose) engine connected by
// a bounded queue, with selectable execution strategies.
package pipeline

import (
	"fmt"
	"sync"
	"time"
)

// RequestState is the per-request lifecycle state of spec section 4.1's
// state machine: "Created -> Loaded -> Analyzing(k groups remaining) ->
// Composing -> Completed | Failed | Cancelled". It is an enum with a
// String() form, an IsTerminal() predicate, and a per-entity
// mutex-guarded transition holder.
type RequestState uint8

const (
	StateCreated RequestState = iota
	StateLoaded
	StateAnalyzing
	StateComposing
	StateCompleted
	StateFailed
	StateCancelled
)

func (s RequestState) String() string {
	switch s {
	case StateCreated:
		return "Created"
	case StateLoaded:
		return "Loaded"
	case StateAnalyzing:
		return "Analyzing"
	case StateComposing:
		return "Composing"
	case StateCompleted:
		return "Completed"
	case StateFailed:
		return "Failed"
	case StateCancelled:
		return "Cancelled"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(s))
	}
}

// IsTerminal reports whether the state is a fixed point. Completed,
// Failed, and Cancelled never transition further.
func (s RequestState) IsTerminal() bool {
	return s == StateCompleted || s == StateFailed || s == StateCancelled
}

// forward holds the only legal non-terminal transitions. Failed and
// Cancelled are reachable from any non-terminal state, so they are
// checked separately in CanTransition rather than enumerated here.
var forward = map[RequestState]RequestState{
	StateCreated:   StateLoaded,
	StateLoaded:    StateAnalyzing,
	StateAnalyzing: StateComposing,
	StateComposing: StateCompleted,
}

// CanTransition reports whether moving from to to is legal: the one
// designated successor, or an abort into Failed/Cancelled from any
// non-terminal state. Terminal states accept no further transition.
func CanTransition(from, to RequestState) bool {
	if from.IsTerminal() {
		return false
	}
	if to == StateFailed || to == StateCancelled {
		return true
	}
	return forward[from] == to
}

// RequestStateHolder is a mutex-guarded RequestState for one in-flight
// request, mirroring escalation.ProcessState's "do not access fields
// directly" discipline.
type RequestStateHolder struct {
	mu        sync.Mutex
	current   RequestState
	enteredAt time.Time
}

// NewRequestStateHolder creates a holder in StateCreated.
func NewRequestStateHolder() *RequestStateHolder {
	return &RequestStateHolder{current: StateCreated, enteredAt: time.Now()}
}

// Current returns the current state.
func (h *RequestStateHolder) Current() RequestState {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.current
}

// Transition attempts to move to target. Returns false without effect if
// the transition is illegal per CanTransition.
func (h *RequestStateHolder) Transition(target RequestState) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !CanTransition(h.current, target) {
		return false
	}
	h.current = target
	h.enteredAt = time.Now()
	return true
}

// TimeInState returns how long the request has been in its current state.
func (h *RequestStateHolder) TimeInState() time.Duration {
	h.mu.Lock()
	defer h.mu.Unlock()
	return time.Since(h.enteredAt)
}
