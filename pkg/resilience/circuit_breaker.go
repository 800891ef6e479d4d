package resilience

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mkohler/newsroom/pkg/observability"
)

// State is a circuit breaker state.
type State string

const (
	// StateClosed allows all requests through.
	StateClosed State = "closed"
	// StateOpen rejects all requests until the cooldown elapses.
	StateOpen State = "open"
	// StateHalfOpen lets probe requests through to test recovery.
	StateHalfOpen State = "half_open"
)

// BreakerConfig configures circuit breaker behavior.
type BreakerConfig struct {
	// FailureThreshold is the number of consecutive failures in the
	// closed state that opens the circuit.
	FailureThreshold int
	// SuccessThreshold is the number of consecutive successes in the
	// half-open state that closes the circuit.
	SuccessThreshold int
	// Cooldown is how long the circuit stays open before probing.
	Cooldown time.Duration
	// Timeout bounds a single protected call.
	Timeout time.Duration
}

// DefaultBreakerConfig returns the standard breaker configuration.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		FailureThreshold: 5,
		SuccessThreshold: 3,
		Cooldown:         30 * time.Second,
		Timeout:          30 * time.Second,
	}
}

// BreakerStats tracks call outcomes across the breaker's lifetime.
// Counters accumulate independently of state transitions.
type BreakerStats struct {
	TotalCalls      int64      `json:"total_calls"`
	SuccessfulCalls int64      `json:"successful_calls"`
	FailedCalls     int64      `json:"failed_calls"`
	LastFailureTime *time.Time `json:"last_failure_time,omitempty"`
	LastSuccessTime *time.Time `json:"last_success_time,omitempty"`
}

// FailureRate returns the fraction of calls that failed, or 0 when no
// calls have been recorded.
func (s BreakerStats) FailureRate() float64 {
	if s.TotalCalls == 0 {
		return 0
	}
	return float64(s.FailedCalls) / float64(s.TotalCalls)
}

// StateObserver is notified after a breaker changes state.
type StateObserver func(name string, oldState, newState State)

// CircuitOpenError is returned when a request is rejected because the
// circuit is open.
type CircuitOpenError struct {
	Name string
}

func (e *CircuitOpenError) Error() string {
	return fmt.Sprintf("circuit %q is open, requests blocked until cooldown completes", e.Name)
}

// CircuitTimeoutError is returned when a protected call exceeds the
// configured per-call timeout. The timeout counts as a failure.
type CircuitTimeoutError struct {
	Name    string
	Timeout time.Duration
}

func (e *CircuitTimeoutError) Error() string {
	return fmt.Sprintf("circuit %q call timed out after %s", e.Name, e.Timeout)
}

// CircuitBreaker guards a downstream dependency against cascading
// failures. It opens after a run of consecutive failures, rejects
// requests for a cooldown period, then probes with a limited number of
// half-open requests before closing again.
type CircuitBreaker struct {
	name     string
	config   BreakerConfig
	observer StateObserver
	logger   *observability.StructuredLogger

	mu           sync.Mutex
	state        State
	stats        BreakerStats
	failureCount int
	successCount int
	openedAt     time.Time
}

// NewCircuitBreaker creates a circuit breaker in the closed state.
// Observer may be nil.
func NewCircuitBreaker(name string, config BreakerConfig, observer StateObserver) *CircuitBreaker {
	if config.FailureThreshold < 1 {
		config.FailureThreshold = 1
	}
	if config.SuccessThreshold < 1 {
		config.SuccessThreshold = 1
	}

	return &CircuitBreaker{
		name:     name,
		config:   config,
		observer: observer,
		logger:   observability.NewStructuredLogger("circuit_breaker"),
		state:    StateClosed,
	}
}

// Name returns the breaker identifier.
func (cb *CircuitBreaker) Name() string {
	return cb.name
}

// Config returns the breaker configuration.
func (cb *CircuitBreaker) Config() BreakerConfig {
	return cb.config
}

// transition holds a completed state change for post-unlock notification.
type transition struct {
	old, new State
}

// transitionLocked moves to a new state. Caller holds cb.mu. Returns a
// non-nil transition only when the state actually changed, so repeated
// reads of an expired open circuit notify observers exactly once.
func (cb *CircuitBreaker) transitionLocked(newState State) *transition {
	if cb.state == newState {
		return nil
	}
	t := &transition{old: cb.state, new: newState}
	cb.state = newState
	return t
}

// notify fires logging and the observer outside the lock.
func (cb *CircuitBreaker) notify(t *transition) {
	if t == nil {
		return
	}
	cb.logger.Warn(context.Background(), "circuit state changed", map[string]interface{}{
		"circuit":   cb.name,
		"old_state": string(t.old),
		"new_state": string(t.new),
	})
	if cb.observer != nil {
		cb.observer(cb.name, t.old, t.new)
	}
}

// State returns the current state. Reading the state of an open circuit
// whose cooldown has elapsed transitions it to half-open.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	var t *transition
	if cb.state == StateOpen && !cb.openedAt.IsZero() && time.Since(cb.openedAt) > cb.config.Cooldown {
		t = cb.transitionLocked(StateHalfOpen)
	}
	s := cb.state
	cb.mu.Unlock()

	cb.notify(t)
	return s
}

// Stats returns a snapshot of the breaker's call statistics.
func (cb *CircuitBreaker) Stats() BreakerStats {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.stats
}

// Allow reports whether a request may proceed. Open circuits reject;
// closed and half-open circuits admit.
func (cb *CircuitBreaker) Allow() bool {
	return cb.State() != StateOpen
}

// RecordSuccess records a successful call. A closed-state success
// resets the consecutive-failure counter; enough consecutive half-open
// successes close the circuit and reset both counters.
func (cb *CircuitBreaker) RecordSuccess() {
	now := time.Now().UTC()

	cb.mu.Lock()
	cb.stats.TotalCalls++
	cb.stats.SuccessfulCalls++
	cb.stats.LastSuccessTime = &now

	var t *transition
	if cb.state == StateClosed {
		cb.failureCount = 0
	}
	if cb.state == StateHalfOpen {
		cb.successCount++
		if cb.successCount >= cb.config.SuccessThreshold {
			cb.failureCount = 0
			cb.successCount = 0
			t = cb.transitionLocked(StateClosed)
		}
	}
	cb.mu.Unlock()

	cb.notify(t)
}

// RecordFailure records a failed call. A half-open failure reopens the
// circuit immediately and restarts the cooldown; closed failures open
// the circuit once the failure threshold is reached.
func (cb *CircuitBreaker) RecordFailure() {
	now := time.Now().UTC()

	cb.mu.Lock()
	cb.stats.TotalCalls++
	cb.stats.FailedCalls++
	cb.stats.LastFailureTime = &now

	var t *transition
	switch cb.state {
	case StateHalfOpen:
		cb.openedAt = now
		t = cb.transitionLocked(StateOpen)
	case StateClosed:
		cb.failureCount++
		if cb.failureCount >= cb.config.FailureThreshold {
			cb.openedAt = now
			t = cb.transitionLocked(StateOpen)
		}
	}
	cb.mu.Unlock()

	cb.notify(t)
}

// Reset forces the breaker closed and clears the consecutive counters.
// Lifetime statistics are preserved.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	cb.failureCount = 0
	cb.successCount = 0
	cb.openedAt = time.Time{}
	t := cb.transitionLocked(StateClosed)
	cb.mu.Unlock()

	cb.notify(t)
}

// Call executes fn under circuit breaker protection with the configured
// per-call timeout. An open circuit rejects without recording a call.
func (cb *CircuitBreaker) Call(ctx context.Context, fn func(ctx context.Context) error) error {
	if !cb.Allow() {
		return &CircuitOpenError{Name: cb.name}
	}

	callCtx := ctx
	cancel := func() {}
	if cb.config.Timeout > 0 {
		callCtx, cancel = context.WithTimeout(ctx, cb.config.Timeout)
	}
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- fn(callCtx) }()

	select {
	case err := <-errCh:
		if err != nil {
			cb.RecordFailure()
			return err
		}
		cb.RecordSuccess()
		return nil
	case <-callCtx.Done():
		cb.RecordFailure()
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return &CircuitTimeoutError{Name: cb.name, Timeout: cb.config.Timeout}
		}
		return callCtx.Err()
	}
}
