package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
)

const (
	idempotencyPrefix = "idempotency:payment:"
	pendingMarker     = "pending"
)

// ErrInFlight is returned by Claim when another request holds the key and has not finished.
var ErrInFlight = errors.New("idempotency key is being processed")

// IdempotencyStore remembers which payment an Idempotency-Key produced.
// A claim is a short lease; only a completed key is kept for the full TTL, so a
// request that dies mid-flight blocks its key for at most pendingTTL.
type IdempotencyStore struct {
	client     *redis.Client
	cb         *gobreaker.CircuitBreaker
	ttl        time.Duration
	pendingTTL time.Duration
}

func NewIdempotencyStore(client *redis.Client, cb *gobreaker.CircuitBreaker, ttl, pendingTTL time.Duration) *IdempotencyStore {
	return &IdempotencyStore{client: client, cb: cb, ttl: ttl, pendingTTL: pendingTTL}
}

// Claim reserves key for the caller. When the key already completed it returns
// the recorded payment ID and claimed == false.
func (s *IdempotencyStore) Claim(ctx context.Context, key string) (string, bool, error) {
	result, err := s.cb.Execute(func() (any, error) {
		ok, err := s.client.SetNX(ctx, idempotencyPrefix+key, pendingMarker, s.pendingTTL).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			return "", nil
		}

		val, err := s.client.Get(ctx, idempotencyPrefix+key).Result()
		if errors.Is(err, redis.Nil) {
			// expired between SETNX and GET; treat as still in flight
			return pendingMarker, nil
		}
		if err != nil {
			return nil, err
		}
		return val, nil
	})
	if err != nil {
		return "", false, fmt.Errorf("failed to claim idempotency key: %w", err)
	}

	val := result.(string)
	switch val {
	case "":
		return "", true, nil
	case pendingMarker:
		return "", false, ErrInFlight
	default:
		return val, false, nil
	}
}

// Complete records the payment produced under key and keeps it for the full TTL.
func (s *IdempotencyStore) Complete(ctx context.Context, key, paymentID string) error {
	_, err := s.cb.Execute(func() (any, error) {
		return nil, s.client.Set(ctx, idempotencyPrefix+key, paymentID, s.ttl).Err()
	})
	if err != nil {
		return fmt.Errorf("failed to complete idempotency key: %w", err)
	}
	return nil
}

// Release drops a claim so the request can be retried after a failure.
func (s *IdempotencyStore) Release(ctx context.Context, key string) error {
	_, err := s.cb.Execute(func() (any, error) {
		return nil, s.client.Del(ctx, idempotencyPrefix+key).Err()
	})
	if err != nil {
		return fmt.Errorf("failed to release idempotency key: %w", err)
	}
	return nil
}
