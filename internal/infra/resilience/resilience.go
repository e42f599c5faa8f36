// Package resilience guards calls to backing services (MongoDB, Redis, S3)
// with a circuit breaker, retry with exponential backoff for idempotent
// reads, and a bulkhead for bounded concurrency.
package resilience

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"

	"github.com/sony/gobreaker"

	"github.com/boddenberg/client-portal-go/internal/domain"
)

// Config holds resilience parameters.
type Config struct {
	MaxRetries     int
	InitialBackoff time.Duration
	Timeout        time.Duration // per attempt; zero means no extra deadline
}

// permanentError marks an error that must not be retried.
type permanentError struct{ err error }

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

// Permanent wraps err so RetryWithBackoff returns it immediately.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

func isPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, gobreaker.ErrOpenState) ||
		errors.Is(err, gobreaker.ErrTooManyRequests)
}

// RetryWithBackoff executes fn with exponential backoff + jitter.
// It respects context cancellation and stops on permanent errors.
func RetryWithBackoff(ctx context.Context, cfg Config, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if isPermanent(lastErr) {
			return unwrapPermanent(lastErr)
		}

		if attempt < cfg.MaxRetries {
			backoff := time.Duration(math.Pow(2, float64(attempt))) * cfg.InitialBackoff
			wait := backoff
			if half := int64(backoff / 2); half > 0 {
				wait += time.Duration(rand.Int63n(half))
			}

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
		}
	}
	return unwrapPermanent(lastErr)
}

func unwrapPermanent(err error) error {
	var p *permanentError
	if errors.As(err, &p) {
		return p.err
	}
	return err
}

// NewCircuitBreaker creates a circuit breaker with sensible defaults.
// Permanent errors (e.g. duplicate keys) do not count as failures.
func NewCircuitBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,                // half-open: allow 3 requests
		Interval:    30 * time.Second, // closed: reset counters every 30s
		Timeout:     10 * time.Second, // open -> half-open after 10s
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 5 && failureRatio >= 0.6
		},
		IsSuccessful: func(err error) bool {
			var p *permanentError
			return err == nil || errors.As(err, &p)
		},
	})
}

// Executor runs backend operations through one circuit breaker.
type Executor struct {
	name    string
	cfg     Config
	breaker *gobreaker.CircuitBreaker
}

// NewExecutor creates an Executor for the named backend.
func NewExecutor(name string, cfg Config) *Executor {
	return &Executor{name: name, cfg: cfg, breaker: NewCircuitBreaker(name)}
}

// Read runs an idempotent operation, retrying transient failures.
func (e *Executor) Read(ctx context.Context, fn func(ctx context.Context) error) error {
	return RetryWithBackoff(ctx, e.cfg, func() error {
		return e.once(ctx, fn)
	})
}

// Write runs a non-idempotent operation exactly once.
func (e *Executor) Write(ctx context.Context, fn func(ctx context.Context) error) error {
	return unwrapPermanent(e.once(ctx, fn))
}

// State reports the breaker state, for readiness checks.
func (e *Executor) State() gobreaker.State {
	return e.breaker.State()
}

func (e *Executor) once(ctx context.Context, fn func(ctx context.Context) error) error {
	_, err := e.breaker.Execute(func() (interface{}, error) {
		attemptCtx := ctx
		if e.cfg.Timeout > 0 {
			var cancel context.CancelFunc
			attemptCtx, cancel = context.WithTimeout(ctx, e.cfg.Timeout)
			defer cancel()
		}
		return nil, fn(attemptCtx)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return Permanent(&domain.ErrCircuitOpen{Service: e.name})
	}
	return err
}

// Bulkhead limits concurrent access to a resource.
type Bulkhead struct {
	sem chan struct{}
}

// NewBulkhead creates a bulkhead with the given max concurrency.
func NewBulkhead(maxConcurrency int) *Bulkhead {
	return &Bulkhead{sem: make(chan struct{}, maxConcurrency)}
}

// Acquire blocks until a slot is available or context is cancelled.
func (b *Bulkhead) Acquire(ctx context.Context) error {
	select {
	case b.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release frees a slot.
func (b *Bulkhead) Release() {
	<-b.sem
}
