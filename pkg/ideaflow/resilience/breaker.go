package resilience

import (
	"sync"
	"time"
)

// CircuitState is the breaker position for one node.
type CircuitState string

// Breaker states.
const (
	CircuitClosed   CircuitState = "closed"
	CircuitOpen     CircuitState = "open"
	CircuitHalfOpen CircuitState = "half-open"
)

// BreakerConfig tunes the per-node circuit breaker.
type BreakerConfig struct {
	// FailureThreshold is the consecutive-failure count that opens the
	// circuit. The call that would cross the threshold is not
	// attempted: with a threshold of 5, the node is invoked on the
	// first four consecutive failures and the fifth call fails fast.
	// A threshold of 1 still permits the first call and opens after
	// its failure.
	FailureThreshold int

	// ResetTimeout is how long the circuit stays open before a single
	// half-open trial call is permitted.
	ResetTimeout time.Duration
}

// DefaultBreaker is the standard breaker configuration.
var DefaultBreaker = BreakerConfig{
	FailureThreshold: 5,
	ResetTimeout:     60 * time.Second,
}

// breaker is a lazy circuit breaker: instead of background timers it
// compares elapsed time against the reset timeout on each access,
// which keeps its behavior pure with respect to an injected clock.
type breaker struct {
	mu sync.Mutex

	cfg         BreakerConfig
	now         func() time.Time
	state       CircuitState
	failures    int
	lastFailure time.Time
}

func newBreaker(cfg BreakerConfig, now func() time.Time) *breaker {
	if now == nil {
		now = time.Now
	}
	return &breaker{cfg: cfg, now: now, state: CircuitClosed}
}

// Allow reports whether a call may proceed, transitioning state as a
// side effect: open circuits move to half-open once the reset timeout
// has elapsed, and a closed circuit trips open when the next failure
// would cross the threshold.
func (b *breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case CircuitOpen:
		if b.now().Sub(b.lastFailure) >= b.cfg.ResetTimeout {
			b.state = CircuitHalfOpen
			return true
		}
		return false

	case CircuitHalfOpen:
		return true

	default: // closed
		if b.cfg.FailureThreshold > 0 && b.failures > 0 && b.failures+1 >= b.cfg.FailureThreshold {
			b.state = CircuitOpen
			return false
		}
		return true
	}
}

// RecordSuccess closes the circuit and resets the failure streak.
func (b *breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures = 0
	b.state = CircuitClosed
}

// RecordFailure notes a failed invocation. A failure during the
// half-open trial reopens the circuit.
func (b *breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures++
	b.lastFailure = b.now()
	if b.state == CircuitHalfOpen {
		b.state = CircuitOpen
	}
}

// State returns the breaker position, applying the lazy open→half-open
// transition so callers never observe a stale open circuit.
func (b *breaker) State() CircuitState {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == CircuitOpen && b.now().Sub(b.lastFailure) >= b.cfg.ResetTimeout {
		b.state = CircuitHalfOpen
	}
	return b.state
}

// Reset returns the breaker to its initial closed state.
func (b *breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.state = CircuitClosed
	b.failures = 0
	b.lastFailure = time.Time{}
}
