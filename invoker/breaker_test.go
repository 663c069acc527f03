package invoker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	cb := newCircuitBreaker(3, time.Minute)

	for i := 0; i < 3; i++ {
		assert.True(t, cb.allow())
		cb.recordFailure()
	}

	assert.Equal(t, stateOpen, cb.currentState())
	assert.False(t, cb.allow())
}

func TestBreakerSuccessResetsFailureCount(t *testing.T) {
	cb := newCircuitBreaker(3, time.Minute)

	cb.recordFailure()
	cb.recordFailure()
	cb.recordSuccess()
	cb.recordFailure()
	cb.recordFailure()

	// Two failures after the reset do not reach the threshold of three.
	assert.Equal(t, stateClosed, cb.currentState())
	assert.True(t, cb.allow())
}

func TestBreakerHalfOpenSingleProbe(t *testing.T) {
	cb := newCircuitBreaker(1, time.Minute)
	now := time.Now()
	cb.now = func() time.Time { return now }

	cb.recordFailure()
	assert.False(t, cb.allow())

	// Cooldown elapses: exactly one probe goes through.
	now = now.Add(2 * time.Minute)
	assert.True(t, cb.allow())
	assert.Equal(t, stateHalfOpen, cb.currentState())
	assert.False(t, cb.allow())

	// Probe success closes the breaker.
	cb.recordSuccess()
	assert.Equal(t, stateClosed, cb.currentState())
	assert.True(t, cb.allow())
}

func TestBreakerFailedProbeReopens(t *testing.T) {
	cb := newCircuitBreaker(1, time.Minute)
	now := time.Now()
	cb.now = func() time.Time { return now }

	cb.recordFailure()
	now = now.Add(2 * time.Minute)
	assert.True(t, cb.allow())

	cb.recordFailure()
	assert.Equal(t, stateOpen, cb.currentState())
	assert.False(t, cb.allow())

	// A second cooldown yields another single probe.
	now = now.Add(2 * time.Minute)
	assert.True(t, cb.allow())
	assert.False(t, cb.allow())
}

func TestBackoffDelayDoublesAndCaps(t *testing.T) {
	base := 100 * time.Millisecond
	max := 500 * time.Millisecond

	for attempt, want := range map[int]time.Duration{
		1: 100 * time.Millisecond,
		2: 200 * time.Millisecond,
		3: 400 * time.Millisecond,
		4: 500 * time.Millisecond, // capped
		8: 500 * time.Millisecond,
	} {
		d := backoffDelay(base, max, attempt)
		// Jitter is ±25%.
		assert.GreaterOrEqual(t, d, time.Duration(float64(want)*0.74), "attempt %d", attempt)
		assert.LessOrEqual(t, d, time.Duration(float64(want)*1.26), "attempt %d", attempt)
	}

	assert.Equal(t, time.Duration(0), backoffDelay(0, max, 1))
}
