package backoff

import (
	"context"
	"errors"
	"time"
)

// ErrAttemptsExhausted is returned when every retry attempt has failed.
var ErrAttemptsExhausted = errors.New("retry attempts exhausted")

// Result holds the outcome of a retried operation.
type Result[T any] struct {
	// Value is the successful result value.
	Value T
	// Attempts is the number of attempts made (1-indexed).
	Attempts int
	// LastError is the last error encountered, if any.
	LastError error
}

// Retry executes fn with exponential backoff, making at most maxRetries
// retries after the initial attempt. The classify predicate decides whether
// an error is worth retrying; a non-retryable error aborts immediately and
// is returned as-is. Context cancellation takes priority between attempts
// and during backoff sleeps.
func Retry[T any](
	ctx context.Context,
	policy Policy,
	maxRetries int,
	classify func(error) bool,
	fn func(attempt int) (T, error),
) (Result[T], error) {
	var result Result[T]
	maxAttempts := maxRetries + 1
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		result.Attempts = attempt

		if err := ctx.Err(); err != nil {
			if result.LastError == nil {
				result.LastError = err
			}
			return result, err
		}

		value, err := fn(attempt)
		if err == nil {
			result.Value = value
			return result, nil
		}
		result.LastError = err

		if classify != nil && !classify(err) {
			return result, err
		}
		if attempt < maxAttempts {
			if err := sleep(ctx, policy.Delay(attempt)); err != nil {
				return result, err
			}
		}
	}

	if result.LastError != nil {
		return result, result.LastError
	}
	return result, ErrAttemptsExhausted
}

// sleep waits for the duration, returning early with ctx.Err() on
// cancellation.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
