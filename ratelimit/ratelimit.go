package ratelimit

import (
	"math"

	"golang.org/x/time/rate"
)

const DefaultBatchConcurrency = 4

// PerSecond returns a limiter allowing rps requests per second with a burst of the same size
// (at least 1). A non-positive rps disables limiting.
func PerSecond(rps float64) *rate.Limiter {
	if rps <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}

	return rate.NewLimiter(rate.Limit(rps), max(1, int(math.Ceil(rps))))
}

// Concurrency clamps a configured batch concurrency to a usable value.
func Concurrency(n int) int {
	if n < 1 {
		return DefaultBatchConcurrency
	}

	return n
}
