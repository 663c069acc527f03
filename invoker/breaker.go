package invoker

import (
	"sync"
	"time"
)

// breakerState enumerates circuit breaker states.
type breakerState int

const (
	stateClosed breakerState = iota
	stateOpen
	stateHalfOpen
)

// String returns the string representation of the breaker state.
func (s breakerState) String() string {
	switch s {
	case stateClosed:
		return "closed"
	case stateOpen:
		return "open"
	case stateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// circuitBreaker guards one external dependency. It opens after a configured
// number of consecutive failures, short-circuits calls for a cooldown period,
// then half-opens to let exactly one probe through. A successful probe closes
// the breaker; a failed probe reopens it for another cooldown.
//
// Breakers are shared across all concurrent sessions, so every transition
// happens under the mutex.
type circuitBreaker struct {
	mu        sync.Mutex
	state     breakerState
	failures  int // consecutive failures while closed
	threshold int
	cooldown  time.Duration
	openedAt  time.Time
	probing   bool // a half-open probe is in flight
	now       func() time.Time
}

func newCircuitBreaker(threshold int, cooldown time.Duration) *circuitBreaker {
	return &circuitBreaker{
		state:     stateClosed,
		threshold: threshold,
		cooldown:  cooldown,
		now:       time.Now,
	}
}

// allow reports whether a call may proceed, transitioning open breakers to
// half-open once the cooldown has elapsed.
func (cb *circuitBreaker) allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case stateClosed:
		return true
	case stateOpen:
		if cb.now().Sub(cb.openedAt) < cb.cooldown {
			return false
		}
		cb.state = stateHalfOpen
		cb.probing = true
		return true
	case stateHalfOpen:
		if cb.probing {
			return false
		}
		cb.probing = true
		return true
	default:
		return false
	}
}

// recordSuccess closes the breaker and resets failure accounting.
func (cb *circuitBreaker) recordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.state = stateClosed
	cb.failures = 0
	cb.probing = false
}

// recordFailure advances failure accounting: a failed half-open probe reopens
// immediately, a closed breaker opens once consecutive failures reach the
// threshold.
func (cb *circuitBreaker) recordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == stateHalfOpen {
		cb.state = stateOpen
		cb.openedAt = cb.now()
		cb.probing = false
		return
	}

	cb.failures++
	if cb.threshold > 0 && cb.failures >= cb.threshold {
		cb.state = stateOpen
		cb.openedAt = cb.now()
		cb.failures = 0
	}
}

// currentState returns the state under lock.
func (cb *circuitBreaker) currentState() breakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}
