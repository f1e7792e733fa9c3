package resilience

import (
	"context"
	"errors"
	"time"
)

// Retry runs fn up to 1+maxRetries times with exponential backoff starting
// at base. It returns the last error when all attempts fail. An open
// breaker aborts immediately: retrying cannot help until the reset window
// elapses. Context cancellation interrupts the backoff wait.
func Retry[T any](ctx context.Context, maxRetries int, base time.Duration, fn func() (T, error)) (T, error) {
	var zero T
	delay := base
	for attempt := 0; ; attempt++ {
		v, err := fn()
		if err == nil {
			return v, nil
		}
		if attempt >= maxRetries || errors.Is(err, ErrBreakerOpen) {
			return zero, err
		}
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
}
