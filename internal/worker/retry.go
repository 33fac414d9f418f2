package worker

import (
	"math"
	"time"
)

// RetryPolicy computes exponential backoff delays for failing scans.
// MaxRetries of 0 means retry forever.
type RetryPolicy struct {
	MaxRetries    int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

// Exhausted reports whether the attempt budget is spent.
func (r RetryPolicy) Exhausted(attempt int) bool {
	return r.MaxRetries > 0 && attempt >= r.MaxRetries
}

// NextDelay returns the delay before the given attempt (1-based),
// clamped to MaxDelay. Zero-value fields fall back to 1s doubling.
func (r RetryPolicy) NextDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	base := r.InitialDelay
	if base <= 0 {
		base = time.Second
	}
	factor := r.BackoffFactor
	if factor <= 0 {
		factor = 2
	}

	delay := time.Duration(float64(base) * math.Pow(factor, float64(attempt-1)))
	if r.MaxDelay > 0 && delay > r.MaxDelay {
		return r.MaxDelay
	}
	if delay <= 0 {
		// Переполнение float64 на больших attempt
		if r.MaxDelay > 0 {
			return r.MaxDelay
		}
		return time.Second
	}
	return delay
}
