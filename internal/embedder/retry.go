package embedder

import (
	"context"
	"time"
)

// RetryConfig configures exponential backoff for provider API calls
type RetryConfig struct {
	MaxRetries int           // Total attempts, not retries after the first
	BaseDelay  time.Duration // Delay before the second attempt
	MaxDelay   time.Duration // Backoff ceiling
	Multiplier float64       // Growth factor per attempt
}

// DefaultRetryConfig returns the backoff schedule used by the HTTP providers
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries: MaxRetries,
		BaseDelay:  time.Duration(InitialBackoffMs) * time.Millisecond,
		MaxDelay:   time.Duration(MaxBackoffMs) * time.Millisecond,
		Multiplier: BackoffMultiplier,
	}
}

// retryWithBackoff runs fn up to config.MaxRetries times, sleeping with
// exponential backoff between failures. A cancelled context stops the loop
// immediately and its error wins over the provider's.
func retryWithBackoff[T any](ctx context.Context, config RetryConfig, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error
	delay := config.BaseDelay

	for attempt := 0; attempt < config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-time.After(delay):
			}
			delay = time.Duration(float64(delay) * config.Multiplier)
			if delay > config.MaxDelay {
				delay = config.MaxDelay
			}
		}

		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
	}

	return zero, lastErr
}
