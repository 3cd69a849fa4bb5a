package retry

import (
	"math/rand/v2"
	"time"
)

const (
	rateLimitedBase = 1000 * time.Millisecond
	overloadedBase  = 2000 * time.Millisecond
	defaultBase     = 1000 * time.Millisecond

	// maxExponent caps growth at base * 32.
	maxExponent = 5
)

// jitter returns a uniform value in [0, n]. Replaced in tests.
var jitter = func(n int64) int64 {
	if n <= 0 {
		return 0
	}
	return rand.Int64N(n + 1)
}

// BaseDelay returns the attempt-0 delay for an error kind.
func BaseDelay(kind Kind) time.Duration {
	switch kind {
	case KindRateLimited:
		return rateLimitedBase
	case KindOverloaded:
		return overloadedBase
	}
	return defaultBase
}

// CalculateBackoff returns base * 2^min(attempt,5) plus up to 25% of base of
// random jitter, in whole milliseconds.
func CalculateBackoff(err error, attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if attempt > maxExponent {
		attempt = maxExponent
	}

	base := BaseDelay(Classify(err)).Milliseconds()
	ms := base<<attempt + jitter(base/4)
	return time.Duration(ms) * time.Millisecond
}
