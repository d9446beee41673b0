package monitor

import (
	"context"
	"time"
)

// RetryPolicy controls exponential backoff behaviour for adapter calls.
type RetryPolicy struct {
	MaxRetries    int
	InitialDelay  time.Duration
	BackoffFactor float64
}

// DefaultRetryPolicy is the policy the aggregator wraps every source call in.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:    3,
		InitialDelay:  1 * time.Second,
		BackoffFactor: 2,
	}
}

// Retry runs fn up to MaxRetries+1 times, sleeping InitialDelay before the
// first retry and multiplying the delay by BackoffFactor after each one.
// The last error is returned unchanged so callers can inspect the original
// failure. Waits are interruptible via ctx.
func Retry[T any](ctx context.Context, p RetryPolicy, fn func() (T, error)) (T, error) {
	var zero T

	delay := p.InitialDelay
	for attempt := 0; ; attempt++ {
		v, err := fn()
		if err == nil {
			return v, nil
		}
		if attempt >= p.MaxRetries {
			return zero, err
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}

		delay = time.Duration(float64(delay) * p.BackoffFactor)
	}
}
