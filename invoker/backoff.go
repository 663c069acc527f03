package invoker

import (
	"math/rand"
	"time"
)

// backoffDelay computes the retry delay before the given attempt (1-based):
// base * 2^(attempt-1), jittered by ±25% and capped at max. Jitter spreads
// retry storms when many sessions hit the same degraded dependency.
func backoffDelay(base, max time.Duration, attempt int) time.Duration {
	if base <= 0 {
		return 0
	}

	d := base
	for i := 1; i < attempt; i++ {
		d *= 2
		if max > 0 && d >= max {
			d = max
			break
		}
	}
	if max > 0 && d > max {
		d = max
	}

	jitter := 1 + (rand.Float64()*0.5 - 0.25) // [0.75, 1.25)
	return time.Duration(float64(d) * jitter)
}
