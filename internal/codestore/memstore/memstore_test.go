package memstore

import (
	"context"
	"testing"
	"time"

	"github.com/andymarkow/botmarket/internal/codestore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func TestPutGetExpire(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	s := New(WithClock(clock.Now))

	require.NoError(t, s.Put(ctx, "verify:u1", "123456", 15*time.Minute))

	got, err := s.Get(ctx, "verify:u1")
	require.NoError(t, err)
	assert.Equal(t, "123456", got)

	clock.now = clock.now.Add(15 * time.Minute)

	_, err = s.Get(ctx, "verify:u1")
	assert.ErrorIs(t, err, codestore.ErrNotFound)

	n, err := s.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	s := New()

	require.NoError(t, s.Put(ctx, "reset:token", "u1", time.Hour))
	require.NoError(t, s.Delete(ctx, "reset:token"))

	_, err := s.Get(ctx, "reset:token")
	assert.ErrorIs(t, err, codestore.ErrNotFound)
}

func TestIncrWindow(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	s := New(WithClock(clock.Now))

	for i := int64(1); i <= 3; i++ {
		n, err := s.Incr(ctx, "throttle:u1", time.Minute)
		require.NoError(t, err)
		assert.Equal(t, i, n)
	}

	clock.now = clock.now.Add(time.Minute)

	n, err := s.Incr(ctx, "throttle:u1", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestSweeperStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	sw := codestore.NewSweeper(New(), codestore.WithInterval(time.Millisecond))

	done := make(chan error, 1)

	go func() { done <- sw.Run(ctx) }()

	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}
