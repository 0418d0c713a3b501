package redisstore

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/andymarkow/botmarket/internal/codestore"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR is not set")
	}

	s, err := New(context.Background(), addr, WithKeyPrefix("botmarket-test:"+uuid.NewString()+":"))
	require.NoError(t, err)

	t.Cleanup(func() { _ = s.Close() })

	return s
}

func TestRedisStore(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.Put(ctx, codestore.VerificationPrefix+"u1", "654321", time.Minute))

	got, err := s.Get(ctx, codestore.VerificationPrefix+"u1")
	require.NoError(t, err)
	assert.Equal(t, "654321", got)

	require.NoError(t, s.Delete(ctx, codestore.VerificationPrefix+"u1"))

	_, err = s.Get(ctx, codestore.VerificationPrefix+"u1")
	assert.ErrorIs(t, err, codestore.ErrNotFound)

	n, err := s.Incr(ctx, codestore.ThrottlePrefix+"u1", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = s.Incr(ctx, codestore.ThrottlePrefix+"u1", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestRedisStoreExpiry(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.Put(ctx, codestore.ResetPrefix+"tok", "u1", 50*time.Millisecond))

	assert.Eventually(t, func() bool {
		_, err := s.Get(ctx, codestore.ResetPrefix+"tok")

		return err != nil
	}, 2*time.Second, 20*time.Millisecond)
}

func TestRedisStoreIncrAlwaysExpires(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	t.Run("first hit sets the window", func(t *testing.T) {
		_, err := s.Incr(ctx, codestore.ThrottlePrefix+"fresh", time.Minute)
		require.NoError(t, err)

		ttl, err := s.client.TTL(ctx, s.key(codestore.ThrottlePrefix+"fresh")).Result()
		require.NoError(t, err)
		assert.Greater(t, ttl, time.Duration(0))
	})

	t.Run("counter left without ttl is repaired", func(t *testing.T) {
		k := s.key(codestore.ThrottlePrefix + "stuck")
		require.NoError(t, s.client.Set(ctx, k, "7", 0).Err())

		n, err := s.Incr(ctx, codestore.ThrottlePrefix+"stuck", time.Minute)
		require.NoError(t, err)
		assert.Equal(t, int64(8), n)

		ttl, err := s.client.TTL(ctx, k).Result()
		require.NoError(t, err)
		assert.Greater(t, ttl, time.Duration(0))
		assert.LessOrEqual(t, ttl, time.Minute)
	})
}
