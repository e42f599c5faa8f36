package resilience_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/boddenberg/client-portal-go/internal/domain"
	"github.com/boddenberg/client-portal-go/internal/infra/resilience"
)

func TestRetryWithBackoff_RetriesOnFailure(t *testing.T) {
	cfg := resilience.Config{
		MaxRetries:     3,
		InitialBackoff: time.Millisecond,
	}

	callCount := 0
	err := resilience.RetryWithBackoff(context.Background(), cfg, func() error {
		callCount++
		if callCount < 3 {
			return errors.New("temporary error")
		}
		return nil
	})

	require.NoError(t, err)
	require.Equal(t, 3, callCount)
}

func TestRetryWithBackoff_ExhaustsRetries(t *testing.T) {
	cfg := resilience.Config{
		MaxRetries:     2,
		InitialBackoff: time.Millisecond,
	}

	callCount := 0
	err := resilience.RetryWithBackoff(context.Background(), cfg, func() error {
		callCount++
		return errors.New("persistent error")
	})

	require.Error(t, err)
	require.Equal(t, 3, callCount)
}

func TestRetryWithBackoff_PermanentStopsImmediately(t *testing.T) {
	cfg := resilience.Config{
		MaxRetries:     5,
		InitialBackoff: time.Millisecond,
	}
	conflict := &domain.ErrConflict{Message: "email already registered"}

	callCount := 0
	err := resilience.RetryWithBackoff(context.Background(), cfg, func() error {
		callCount++
		return resilience.Permanent(conflict)
	})

	require.Equal(t, 1, callCount)
	var target *domain.ErrConflict
	require.ErrorAs(t, err, &target)
}

func TestRetryWithBackoff_RespectsContext(t *testing.T) {
	cfg := resilience.Config{
		MaxRetries:     5,
		InitialBackoff: time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := resilience.RetryWithBackoff(ctx, cfg, func() error {
		return errors.New("error")
	})

	require.ErrorIs(t, err, context.Canceled)
}

func TestExecutor_OpensAfterFailures(t *testing.T) {
	exec := resilience.NewExecutor("mongo", resilience.Config{})
	failing := func(ctx context.Context) error { return errors.New("connection refused") }

	for i := 0; i < 5; i++ {
		_ = exec.Write(context.Background(), failing)
	}

	err := exec.Write(context.Background(), func(ctx context.Context) error { return nil })
	var open *domain.ErrCircuitOpen
	require.ErrorAs(t, err, &open)
	require.Equal(t, "mongo", open.Service)
}

func TestExecutor_PermanentErrorsKeepBreakerClosed(t *testing.T) {
	exec := resilience.NewExecutor("mongo", resilience.Config{})
	dup := func(ctx context.Context) error {
		return resilience.Permanent(&domain.ErrConflict{Message: "duplicate"})
	}

	for i := 0; i < 10; i++ {
		err := exec.Write(context.Background(), dup)
		var conflict *domain.ErrConflict
		require.ErrorAs(t, err, &conflict)
	}

	require.NoError(t, exec.Write(context.Background(), func(ctx context.Context) error { return nil }))
}

func TestExecutor_ReadRetries(t *testing.T) {
	exec := resilience.NewExecutor("mongo", resilience.Config{MaxRetries: 2, InitialBackoff: time.Millisecond})

	calls := 0
	err := exec.Read(context.Background(), func(ctx context.Context) error {
		calls++
		if calls == 1 {
			return errors.New("socket closed")
		}
		return nil
	})

	require.NoError(t, err)
	require.Equal(t, 2, calls)
}

func TestBulkhead_AcquireRelease(t *testing.T) {
	bh := resilience.NewBulkhead(2)

	require.NoError(t, bh.Acquire(context.Background()))
	require.NoError(t, bh.Acquire(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	require.Error(t, bh.Acquire(ctx), "third acquire should block until timeout")

	bh.Release()
	require.NoError(t, bh.Acquire(context.Background()))
}
