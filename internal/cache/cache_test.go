package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/segyhp/credit-engine/internal/domain"
)

func redisClient(t *testing.T) *redis.Client {
	t.Helper()
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { client.Close() })
	return client
}

func TestBreaker_OpensWhenRedisIsDown(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	store := NewIdempotencyStore(client, NewBreaker("test"), time.Hour, time.Minute)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, _, err := store.Claim(ctx, "k")
		require.Error(t, err)
	}

	_, _, err := store.Claim(ctx, "k")
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
}

func TestIdempotencyStore_ClaimCompleteRelease(t *testing.T) {
	client := redisClient(t)
	store := NewIdempotencyStore(client, NewBreaker("test"), time.Hour, time.Minute)
	ctx := context.Background()
	key := uuid.NewString()

	_, claimed, err := store.Claim(ctx, key)
	require.NoError(t, err)
	assert.True(t, claimed)

	_, claimed, err = store.Claim(ctx, key)
	assert.ErrorIs(t, err, ErrInFlight)
	assert.False(t, claimed)

	paymentID := uuid.NewString()
	require.NoError(t, store.Complete(ctx, key, paymentID))

	got, claimed, err := store.Claim(ctx, key)
	require.NoError(t, err)
	assert.False(t, claimed)
	assert.Equal(t, paymentID, got)

	other := uuid.NewString()
	_, _, err = store.Claim(ctx, other)
	require.NoError(t, err)
	require.NoError(t, store.Release(ctx, other))
	_, claimed, err = store.Claim(ctx, other)
	require.NoError(t, err)
	assert.True(t, claimed)
}

func TestIdempotencyStore_PendingClaimIsAShortLease(t *testing.T) {
	client := redisClient(t)
	store := NewIdempotencyStore(client, NewBreaker("test"), time.Hour, 5*time.Second)
	ctx := context.Background()
	key := uuid.NewString()

	_, claimed, err := store.Claim(ctx, key)
	require.NoError(t, err)
	require.True(t, claimed)

	ttl, err := client.TTL(ctx, idempotencyPrefix+key).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
	assert.LessOrEqual(t, ttl, 5*time.Second)

	require.NoError(t, store.Complete(ctx, key, uuid.NewString()))
	ttl, err = client.TTL(ctx, idempotencyPrefix+key).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, 59*time.Minute)
}

func TestStatusCache_RoundTrip(t *testing.T) {
	client := redisClient(t)
	c := NewStatusCache(client, NewBreaker("test"), time.Minute)
	ctx := context.Background()

	status := domain.NewAccountStatus(uuid.New())
	status.TotalDebt = decimal.RequireFromString("666.66")
	status.Classification = domain.ClassificationAtRisk

	miss, gen, err := c.Get(ctx, status.CustomerID)
	require.NoError(t, err)
	assert.Nil(t, miss)

	require.NoError(t, c.Set(ctx, status, gen))
	hit, _, err := c.Get(ctx, status.CustomerID)
	require.NoError(t, err)
	require.NotNil(t, hit)
	assert.Equal(t, domain.ClassificationAtRisk, hit.Classification)
	assert.True(t, hit.TotalDebt.Equal(status.TotalDebt))

	require.NoError(t, c.Invalidate(ctx, status.CustomerID))
	miss, _, err = c.Get(ctx, status.CustomerID)
	require.NoError(t, err)
	assert.Nil(t, miss)
}

func TestStatusCache_FillAfterInvalidationIsDropped(t *testing.T) {
	client := redisClient(t)
	c := NewStatusCache(client, NewBreaker("test"), time.Minute)
	ctx := context.Background()

	stale := domain.NewAccountStatus(uuid.New())

	_, seen, err := c.Get(ctx, stale.CustomerID)
	require.NoError(t, err)

	// a writer commits and invalidates before the reader fills
	require.NoError(t, c.Invalidate(ctx, stale.CustomerID))
	require.NoError(t, c.Set(ctx, stale, seen))

	miss, current, err := c.Get(ctx, stale.CustomerID)
	require.NoError(t, err)
	assert.Nil(t, miss)
	assert.Equal(t, seen+1, current)

	require.NoError(t, c.Set(ctx, stale, current))
	hit, _, err := c.Get(ctx, stale.CustomerID)
	require.NoError(t, err)
	assert.NotNil(t, hit)
}
