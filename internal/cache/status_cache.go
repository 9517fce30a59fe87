package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"

	"github.com/segyhp/credit-engine/internal/domain"
)

const (
	statusPrefix     = "account_status:"
	generationPrefix = "account_status_gen:"
	generationTTL    = 7 * 24 * time.Hour
)

// StatusCache is a read-through cache of account statuses. Writers invalidate,
// they never write through. Every invalidation bumps a per-customer generation;
// a reader may only fill the entry at the generation it saw on its miss, so a
// status read before a write can never be cached after that write's invalidation.
type StatusCache struct {
	client *redis.Client
	cb     *gobreaker.CircuitBreaker
	ttl    time.Duration
}

func NewStatusCache(client *redis.Client, cb *gobreaker.CircuitBreaker, ttl time.Duration) *StatusCache {
	return &StatusCache{client: client, cb: cb, ttl: ttl}
}

type lookup struct {
	raw        []byte
	generation int64
}

// Get returns the cached status, nil on a miss, and the generation Set must be given.
func (c *StatusCache) Get(ctx context.Context, customerID uuid.UUID) (*domain.AccountStatus, int64, error) {
	result, err := c.cb.Execute(func() (any, error) {
		vals, err := c.client.MGet(ctx, statusPrefix+customerID.String(), generationPrefix+customerID.String()).Result()
		if err != nil {
			return nil, err
		}

		var l lookup
		if s, ok := vals[0].(string); ok {
			l.raw = []byte(s)
		}
		if s, ok := vals[1].(string); ok {
			gen, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("corrupt generation %q: %w", s, err)
			}
			l.generation = gen
		}
		return l, nil
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get account status: %w", err)
	}

	l := result.(lookup)
	if l.raw == nil {
		return nil, l.generation, nil
	}

	var status domain.AccountStatus
	if err := json.Unmarshal(l.raw, &status); err != nil {
		return nil, l.generation, fmt.Errorf("failed to unmarshal account status: %w", err)
	}
	return &status, l.generation, nil
}

// Set caches status unless the customer was invalidated after generation was read.
// A skipped write is not an error.
func (c *StatusCache) Set(ctx context.Context, status *domain.AccountStatus, generation int64) error {
	bytes, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("failed to marshal account status: %w", err)
	}

	genKey := generationPrefix + status.CustomerID.String()
	_, err = c.cb.Execute(func() (any, error) {
		err := c.client.Watch(ctx, func(tx *redis.Tx) error {
			current, err := tx.Get(ctx, genKey).Int64()
			if err != nil && !errors.Is(err, redis.Nil) {
				return err
			}
			if current != generation {
				return nil
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, statusPrefix+status.CustomerID.String(), bytes, c.ttl)
				return nil
			})
			return err
		}, genKey)
		if errors.Is(err, redis.TxFailedErr) {
			// invalidated while we were writing
			return nil, nil
		}
		return nil, err
	})
	if err != nil {
		return fmt.Errorf("failed to cache account status: %w", err)
	}
	return nil
}

// Invalidate drops the entry and bumps the generation so in-flight fills are discarded.
func (c *StatusCache) Invalidate(ctx context.Context, customerID uuid.UUID) error {
	genKey := generationPrefix + customerID.String()
	_, err := c.cb.Execute(func() (any, error) {
		_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Incr(ctx, genKey)
			pipe.Expire(ctx, genKey, generationTTL)
			pipe.Del(ctx, statusPrefix+customerID.String())
			return nil
		})
		return nil, err
	})
	if err != nil {
		return fmt.Errorf("failed to invalidate account status: %w", err)
	}
	return nil
}
