package utils

import (
	"context"
	"time"
)

// RetryWithBackoff calls fn until it succeeds or maxAttempts is reached,
// doubling the delay between attempts. It stops early when ctx is done.
func RetryWithBackoff(ctx context.Context, fn func() error, maxAttempts int, initialDelay time.Duration) error {
	var err error
	delay := initialDelay

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err = fn()
		if err == nil {
			return nil
		}

		if attempt < maxAttempts {
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return err
			case <-timer.C:
			}
			delay *= 2
		}
	}

	return err
}
