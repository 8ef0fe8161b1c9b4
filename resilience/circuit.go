package resilience

import (
	"context"
	"sync"
	"time"
)

// State is the circuit breaker's position.
type State int

const (
	// StateClosed admits every call.
	StateClosed State = iota
	// StateOpen rejects every call until the cool-down elapses.
	StateOpen
	// StateHalfOpen admits a bounded number of probe calls.
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreakerConfig tunes when the breaker trips and how it recovers.
type CircuitBreakerConfig struct {
	// FailureThreshold is how many consecutive failures trip the breaker.
	// Default: 5.
	FailureThreshold int

	// CoolDown is how long the breaker stays open before letting probes
	// through. Default: 30s.
	CoolDown time.Duration

	// HalfOpenProbes is how many calls may probe a recovering database
	// concurrently. Default: 1.
	HalfOpenProbes int

	// OnStateChange observes transitions, for logging.
	OnStateChange func(from, to State)

	// IsFailure classifies errors; only classified failures count toward
	// the threshold. Default: every non-nil error counts. The gateway
	// excludes caller cancellation and missing catalog objects here.
	IsFailure func(err error) bool
}

// CircuitBreaker fails fast while the database is down instead of stacking
// doomed calls onto it. Consecutive failures open the circuit; after the
// cool-down a probe call decides whether it closes again.
//
// Safe for concurrent use.
type CircuitBreaker struct {
	config CircuitBreakerConfig

	mu          sync.Mutex
	state       State
	failures    int
	lastFailure time.Time
	probes      int
}

// NewCircuitBreaker builds a closed breaker.
func NewCircuitBreaker(config CircuitBreakerConfig) *CircuitBreaker {
	if config.FailureThreshold <= 0 {
		config.FailureThreshold = 5
	}
	if config.CoolDown <= 0 {
		config.CoolDown = 30 * time.Second
	}
	if config.HalfOpenProbes <= 0 {
		config.HalfOpenProbes = 1
	}
	if config.IsFailure == nil {
		config.IsFailure = func(err error) bool { return err != nil }
	}

	return &CircuitBreaker{config: config, state: StateClosed}
}

// Execute runs op if the breaker admits it and settles the outcome.
func (cb *CircuitBreaker) Execute(ctx context.Context, op func(context.Context) error) error {
	if err := cb.admit(); err != nil {
		return err
	}

	err := op(ctx)
	cb.settle(err)
	return err
}

// State reports the current position, advancing open to half-open when the
// cool-down has elapsed.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.stateLocked()
}

// Reset forces the breaker closed and clears the failure count.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	from := cb.state
	cb.state = StateClosed
	cb.failures = 0
	cb.probes = 0

	if from != StateClosed && cb.config.OnStateChange != nil {
		cb.config.OnStateChange(from, StateClosed)
	}
}

// CircuitSnapshot is a point-in-time view for health reporting.
type CircuitSnapshot struct {
	State               State
	ConsecutiveFailures int
	LastFailure         time.Time
}

// Snapshot reports the breaker's position and failure history.
func (cb *CircuitBreaker) Snapshot() CircuitSnapshot {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	return CircuitSnapshot{
		State:               cb.stateLocked(),
		ConsecutiveFailures: cb.failures,
		LastFailure:         cb.lastFailure,
	}
}

// admit decides whether a call may proceed.
func (cb *CircuitBreaker) admit() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.stateLocked() {
	case StateOpen:
		return ErrCircuitOpen
	case StateHalfOpen:
		if cb.probes >= cb.config.HalfOpenProbes {
			return ErrCircuitOpen
		}
		cb.probes++
	}
	return nil
}

// settle records a call's outcome. Calls that were admitted before the
// breaker opened settle against the open state and are not counted.
func (cb *CircuitBreaker) settle(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	failed := cb.config.IsFailure(err)
	from := cb.state

	switch cb.state {
	case StateClosed:
		if failed {
			cb.failures++
			cb.lastFailure = time.Now()
			if cb.failures >= cb.config.FailureThreshold {
				cb.state = StateOpen
			}
		} else {
			cb.failures = 0
		}

	case StateHalfOpen:
		if failed {
			// The probe failed; restart the cool-down.
			cb.lastFailure = time.Now()
			cb.state = StateOpen
		} else {
			cb.state = StateClosed
			cb.failures = 0
		}
	}

	if from != cb.state && cb.config.OnStateChange != nil {
		cb.config.OnStateChange(from, cb.state)
	}
}

// stateLocked advances open to half-open once the cool-down has elapsed and
// returns the effective state. Callers hold cb.mu.
func (cb *CircuitBreaker) stateLocked() State {
	if cb.state == StateOpen && time.Since(cb.lastFailure) >= cb.config.CoolDown {
		cb.state = StateHalfOpen
		cb.probes = 0
		if cb.config.OnStateChange != nil {
			cb.config.OnStateChange(StateOpen, StateHalfOpen)
		}
	}
	return cb.state
}
