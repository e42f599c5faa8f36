package ratelimit_test

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/boddenberg/client-portal-go/internal/infra/ratelimit"
)

func TestMemory_BlocksAfterLimit(t *testing.T) {
	clock := clockwork.NewFakeClock()
	l := ratelimit.NewMemory(clock, 0)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		d, err := l.Allow(ctx, "login:a@example.com", 3, time.Minute)
		require.NoError(t, err)
		require.True(t, d.Allowed)
		require.Equal(t, 2-i, d.Remaining)
	}

	d, err := l.Allow(ctx, "login:a@example.com", 3, time.Minute)
	require.NoError(t, err)
	require.False(t, d.Allowed)
	require.Equal(t, clock.Now().Add(time.Minute), d.ResetAt)

	// Other keys are unaffected.
	d, err = l.Allow(ctx, "login:b@example.com", 3, time.Minute)
	require.NoError(t, err)
	require.True(t, d.Allowed)
}

func TestMemory_WindowExpires(t *testing.T) {
	clock := clockwork.NewFakeClock()
	l := ratelimit.NewMemory(clock, 0)
	ctx := context.Background()

	_, _ = l.Allow(ctx, "k", 1, time.Minute)
	d, _ := l.Allow(ctx, "k", 1, time.Minute)
	require.False(t, d.Allowed)

	clock.Advance(time.Minute)
	d, err := l.Allow(ctx, "k", 1, time.Minute)
	require.NoError(t, err)
	require.True(t, d.Allowed)
}

func TestMemory_Reset(t *testing.T) {
	l := ratelimit.NewMemory(clockwork.NewFakeClock(), 0)
	ctx := context.Background()

	_, _ = l.Allow(ctx, "k", 1, time.Minute)
	require.NoError(t, l.Reset(ctx, "k"))

	d, err := l.Allow(ctx, "k", 1, time.Minute)
	require.NoError(t, err)
	require.True(t, d.Allowed)
}

func TestMemory_Capacity(t *testing.T) {
	clock := clockwork.NewFakeClock()
	l := ratelimit.NewMemory(clock, 1)
	ctx := context.Background()

	_, err := l.Allow(ctx, "a", 5, time.Minute)
	require.NoError(t, err)

	_, err = l.Allow(ctx, "b", 5, time.Minute)
	require.ErrorIs(t, err, ratelimit.ErrCapacity)

	// Expired windows are swept to make room.
	clock.Advance(2 * time.Minute)
	_, err = l.Allow(ctx, "b", 5, time.Minute)
	require.NoError(t, err)
}

func TestMemory_NonPositiveLimitAllows(t *testing.T) {
	l := ratelimit.NewMemory(nil, 0)
	d, err := l.Allow(context.Background(), "k", 0, time.Minute)
	require.NoError(t, err)
	require.True(t, d.Allowed)
}
