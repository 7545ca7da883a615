package persistence

import (
	"context"
	"errors"
	"sync"
	"time"
)

type breakerState int

const (
	stateClosed breakerState = iota
	stateOpen
	stateHalfOpen
)

// ErrCallNotPermitted is returned by CircuitBreaker.Execute when the breaker
// is open (or the half-open trial budget is exhausted).
var ErrCallNotPermitted = errors.New("persistence: call not permitted, circuit open")

// CircuitBreaker protects PersistenceCore's durable-store calls. Any
// non-nil error Execute's fn returns counts toward opening the circuit
// except a recognized data error (isDataError) — those are expected
// per-row conditions, not store failures, and never trip the breaker.
//
// This is a small hand-rolled state machine rather than a pulled-in
// resilience library, per the re-architecture guidance for "circuit-breaker
// library" in the design notes: states Closed/Open/HalfOpen, a rolling
// failure-rate window, and a half-open trial budget.
type CircuitBreaker struct {
	mu sync.Mutex

	state        breakerState
	failureRate  float64
	openDuration time.Duration
	windowSize   int
	halfOpenMax  int

	window       []bool // true = failure
	openedAt     time.Time
	halfOpenUsed int
}

func NewCircuitBreaker(failureRate float64, openDuration time.Duration, windowSize, halfOpenProbes int) *CircuitBreaker {
	return &CircuitBreaker{
		state:        stateClosed,
		failureRate:  failureRate,
		openDuration: openDuration,
		windowSize:   windowSize,
		halfOpenMax:  halfOpenProbes,
	}
}

// SystemFailure marks an error as a store failure rather than a data
// condition. classify() wraps errors in this before they leave the code
// path it classifies, but Execute itself only requires a non-data error,
// so a raw unwrapped error (e.g. from store.RunInTransaction's own
// begin/commit) still trips the breaker correctly.
type SystemFailure struct{ Err error }

func (s *SystemFailure) Error() string { return s.Err.Error() }
func (s *SystemFailure) Unwrap() error { return s.Err }

// Execute runs fn if the breaker permits the call, otherwise returns
// ErrCallNotPermitted immediately without invoking fn.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	if !cb.allow() {
		return ErrCallNotPermitted
	}

	err := fn(ctx)

	// Any non-nil error that isn't a recognized data error counts as a
	// failure, not just *SystemFailure: RunInTransaction's own begin/commit
	// errors (a real connectivity failure) never get wrapped by classify(),
	// since classify only runs inside fn's own body. Requiring the specific
	// *SystemFailure type here let those raw errors record as successes.
	if err != nil && !isDataError(err) {
		cb.recordFailure()
	} else {
		cb.recordSuccess()
	}
	return err
}

func (cb *CircuitBreaker) allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case stateClosed:
		return true
	case stateOpen:
		if time.Since(cb.openedAt) >= cb.openDuration {
			cb.state = stateHalfOpen
			cb.halfOpenUsed = 0
			return cb.allowHalfOpenLocked()
		}
		return false
	case stateHalfOpen:
		return cb.allowHalfOpenLocked()
	default:
		return true
	}
}

func (cb *CircuitBreaker) allowHalfOpenLocked() bool {
	if cb.halfOpenUsed >= cb.halfOpenMax {
		return false
	}
	cb.halfOpenUsed++
	return true
}

func (cb *CircuitBreaker) recordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == stateHalfOpen {
		cb.trip()
		return
	}

	cb.window = append(cb.window, true)
	cb.trimWindowLocked()
	if cb.rateLocked() >= cb.failureRate && len(cb.window) >= cb.windowSize {
		cb.trip()
	}
}

func (cb *CircuitBreaker) recordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == stateHalfOpen {
		cb.state = stateClosed
		cb.window = nil
		return
	}

	cb.window = append(cb.window, false)
	cb.trimWindowLocked()
}

func (cb *CircuitBreaker) trip() {
	cb.state = stateOpen
	cb.openedAt = time.Now()
	cb.window = nil
}

func (cb *CircuitBreaker) trimWindowLocked() {
	if len(cb.window) > cb.windowSize {
		cb.window = cb.window[len(cb.window)-cb.windowSize:]
	}
}

func (cb *CircuitBreaker) rateLocked() float64 {
	if len(cb.window) == 0 {
		return 0
	}
	failures := 0
	for _, f := range cb.window {
		if f {
			failures++
		}
	}
	return float64(failures) / float64(len(cb.window))
}

// State is exposed for tests and for an admin/health endpoint.
func (cb *CircuitBreaker) State() string {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	switch cb.state {
	case stateOpen:
		return "OPEN"
	case stateHalfOpen:
		return "HALF_OPEN"
	default:
		return "CLOSED"
	}
}
