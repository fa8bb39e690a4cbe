package ai

import (
	"context"
	"time"
)

// RetryObserver is invoked before each retry with the attempt number that
// just failed (1-based) and its error.
type RetryObserver func(attempt int, err error)

// WithRetry runs fn up to attempts times with a fixed delay between attempts.
// The final attempt's error is returned unmodified. onRetry may be nil.
func WithRetry[T any](ctx context.Context, attempts int, delay time.Duration, onRetry RetryObserver, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if attempt == attempts {
			break
		}
		if onRetry != nil {
			onRetry(attempt, err)
		}

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return zero, lastErr
		}
	}

	return zero, lastErr
}
