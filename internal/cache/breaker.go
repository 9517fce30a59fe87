// Package cache holds the Redis-backed stores used around the transactional core:
// payment idempotency keys and the account status read cache.
package cache

import (
	"time"

	"github.com/sony/gobreaker"
)

// NewBreaker returns the circuit breaker shared by the Redis stores.
func NewBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    30 * time.Second,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 5 && failureRatio >= 0.6
		},
	})
}
