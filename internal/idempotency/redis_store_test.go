package idempotency

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketplace/internal/domain"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *RedisStore) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
		mr.Close()
	})

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return mr, NewRedisStore(client, time.Hour, logger)
}

func TestRedisStoreClaimCompleteReplay(t *testing.T) {
	_, store := setupTestRedis(t)
	ctx := context.Background()

	orderID, claimed, err := store.Claim(ctx, 10, "abc")
	require.NoError(t, err)
	assert.True(t, claimed)
	assert.Zero(t, orderID)

	_, _, err = store.Claim(ctx, 10, "abc")
	assert.ErrorIs(t, err, domain.ErrConflict, "in-flight key")

	require.NoError(t, store.Complete(ctx, 10, "abc", 42))

	orderID, claimed, err = store.Claim(ctx, 10, "abc")
	require.NoError(t, err)
	assert.False(t, claimed)
	assert.Equal(t, 42, orderID)
}

func TestRedisStoreKeysAreScopedPerCustomer(t *testing.T) {
	_, store := setupTestRedis(t)
	ctx := context.Background()

	_, claimed, err := store.Claim(ctx, 10, "same")
	require.NoError(t, err)
	assert.True(t, claimed)

	_, claimed, err = store.Claim(ctx, 11, "same")
	require.NoError(t, err)
	assert.True(t, claimed)
}

func TestRedisStoreForgetAndExpiry(t *testing.T) {
	mr, store := setupTestRedis(t)
	ctx := context.Background()

	_, _, err := store.Claim(ctx, 10, "k")
	require.NoError(t, err)
	require.NoError(t, store.Forget(ctx, 10, "k"))

	_, claimed, err := store.Claim(ctx, 10, "k")
	require.NoError(t, err)
	assert.True(t, claimed, "forgotten key can be claimed again")

	require.NoError(t, store.Complete(ctx, 10, "k", 7))
	mr.FastForward(2 * time.Hour)

	_, claimed, err = store.Claim(ctx, 10, "k")
	require.NoError(t, err)
	assert.True(t, claimed, "expired key can be claimed again")
}
