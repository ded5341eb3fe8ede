package workitem

import (
	"context"
	"time"
)

// RetryPolicy bounds caller-side retries of concurrency conflicts.
type RetryPolicy struct {
	Attempts int
	Backoff  time.Duration
}

const maxRetryBackoff = 2 * time.Second

// Retry runs fn until it succeeds, fails with a non-retryable error, or the
// policy's attempts are exhausted. Only ErrConcurrencyConflict is retried.
// The backoff doubles after each conflict.
func Retry[T any](ctx context.Context, policy RetryPolicy, fn func(context.Context) (T, error)) (T, error) {
	attempts := policy.Attempts
	if attempts < 1 {
		attempts = 1
	}
	delay := policy.Backoff

	var zero T
	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 && delay > 0 {
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return zero, ctx.Err()
			case <-timer.C:
			}
			delay *= 2
			if delay > maxRetryBackoff {
				delay = maxRetryBackoff
			}
		}
		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		if !Retryable(err) {
			return zero, err
		}
		lastErr = err
	}
	return zero, lastErr
}
