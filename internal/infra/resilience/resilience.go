// Package resilience provides fault-tolerance patterns:
// retry with exponential backoff, circuit breaker, and bulkhead.
package resilience

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"

	"github.com/boddenberg/carcare-engine/internal/domain"

	"github.com/sony/gobreaker"
	"github.com/zoobzio/clockz"
	"golang.org/x/sync/semaphore"
)

// Config holds resilience parameters.
type Config struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxConcurrency int
	Clock          clockz.Clock // defaults to the wall clock
}

func (c Config) clock() clockz.Clock {
	if c.Clock == nil {
		return clockz.RealClock
	}
	return c.Clock
}

// RetryWithBackoff executes fn with exponential backoff + jitter.
// It respects context cancellation and gives up immediately on errors
// that a retry cannot fix.
func RetryWithBackoff(ctx context.Context, cfg Config, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn()
		if lastErr == nil || !Retryable(lastErr) {
			return lastErr
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
			case <-cfg.clock().After(wait):
			}
		}
	}
	return lastErr
}

// Retryable reports whether err may succeed on another attempt.
func Retryable(err error) bool {
	var (
		invalid      *domain.ErrInvalidInput
		notFound     *domain.ErrNotFound
		unauthorized *domain.ErrUnauthorized
		open         *domain.ErrCircuitOpen
	)
	switch {
	case errors.As(err, &invalid), errors.As(err, &notFound), errors.As(err, &unauthorized), errors.As(err, &open):
		return false
	case errors.Is(err, context.Canceled):
		return false
	}
	return true
}

// NewCircuitBreaker creates a circuit breaker with sensible defaults.
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
		// Caller mistakes say nothing about the dependency's health.
		IsSuccessful: func(err error) bool {
			return err == nil || !Retryable(err)
		},
	})
}

// Execute runs fn through cb and reports an open breaker as ErrCircuitOpen.
func Execute[T any](cb *gobreaker.CircuitBreaker, fn func() (T, error)) (T, error) {
	var zero T
	out, err := cb.Execute(func() (any, error) { return fn() })
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return zero, &domain.ErrCircuitOpen{Service: cb.Name()}
	}
	if err != nil {
		return zero, err
	}
	v, _ := out.(T)
	return v, nil
}

// Bulkhead limits concurrent access to a resource.
type Bulkhead struct {
	sem *semaphore.Weighted
}

// NewBulkhead creates a bulkhead with the given max concurrency.
func NewBulkhead(maxConcurrency int) *Bulkhead {
	if maxConcurrency < 1 {
		maxConcurrency = 1
	}
	return &Bulkhead{sem: semaphore.NewWeighted(int64(maxConcurrency))}
}

// Acquire blocks until a slot is available or context is cancelled.
func (b *Bulkhead) Acquire(ctx context.Context) error {
	return b.sem.Acquire(ctx, 1)
}

// Release frees a slot.
func (b *Bulkhead) Release() {
	b.sem.Release(1)
}

// Do runs fn inside a bulkhead slot.
func (b *Bulkhead) Do(ctx context.Context, fn func() error) error {
	if err := b.Acquire(ctx); err != nil {
		return &domain.ErrTimeout{Operation: "bulkhead acquire"}
	}
	defer b.Release()
	return fn()
}
