package ratelimit_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/boddenberg/client-portal-go/internal/infra/ratelimit"
)

// Runs against a live server only when REDIS_TEST_ADDR is set.
func newTestRedis(t *testing.T) *ratelimit.Redis {
	t.Helper()
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	r, err := ratelimit.NewRedis(context.Background(), ratelimit.RedisOptions{Addr: addr})
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func TestRedis_BlocksAfterLimitAndResets(t *testing.T) {
	r := newTestRedis(t)
	ctx := context.Background()
	key := "test:" + uuid.NewString()
	t.Cleanup(func() { _ = r.Reset(ctx, key) })

	for i := 0; i < 2; i++ {
		d, err := r.Allow(ctx, key, 2, time.Minute)
		require.NoError(t, err)
		require.True(t, d.Allowed)
	}
	d, err := r.Allow(ctx, key, 2, time.Minute)
	require.NoError(t, err)
	require.False(t, d.Allowed)
	require.Zero(t, d.Remaining)
	require.True(t, d.ResetAt.After(time.Now()))

	require.NoError(t, r.Reset(ctx, key))
	d, err = r.Allow(ctx, key, 2, time.Minute)
	require.NoError(t, err)
	require.True(t, d.Allowed)
}

func TestRedis_Ping(t *testing.T) {
	r := newTestRedis(t)
	require.NoError(t, r.Ping(context.Background()))
}
