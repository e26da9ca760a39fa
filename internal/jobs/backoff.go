package jobs

import (
	"math"
	"math/rand"
	"time"
)

const (
	DefaultRetryBase = time.Minute
	DefaultRetryMax  = 24 * time.Hour

	jitterMin = 0.85
	jitterMax = 1.15
)

// RetryDelay returns base·2^(attempt-1) scaled by a jitter in [0.85, 1.15],
// capped at max. rnd returns a value in [0, 1); nil uses math/rand.
func RetryDelay(attempt int, base, max time.Duration, rnd func() float64) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if base <= 0 {
		base = DefaultRetryBase
	}
	if max <= 0 {
		max = DefaultRetryMax
	}
	if rnd == nil {
		rnd = rand.Float64
	}
	jitter := jitterMin + (jitterMax-jitterMin)*rnd()
	delay := float64(base) * math.Pow(2, float64(attempt-1)) * jitter
	if delay >= float64(max) {
		return max
	}
	return time.Duration(delay)
}
