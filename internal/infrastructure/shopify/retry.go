package shopify

import (
	"context"
	"errors"
	"math"
	"time"

	"storebridge-sync-core/internal/domain"

	"github.com/rs/zerolog"
)

// RetryConfig controls capped exponential backoff for outbound platform
// calls. Only throttling and transient upstream failures are retried;
// authentication and validation failures surface immediately.
type RetryConfig struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Multiplier     float64
}

// DefaultRetryConfig returns the retry policy used when none is configured.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:    5,
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     10 * time.Second,
		Multiplier:     2.0,
	}
}

// BackoffFor returns the delay before the given zero-based retry attempt.
func (c RetryConfig) BackoffFor(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	backoff := float64(c.InitialBackoff) * math.Pow(c.Multiplier, float64(attempt))
	if max := float64(c.MaxBackoff); c.MaxBackoff > 0 && backoff > max {
		backoff = max
	}
	return time.Duration(backoff)
}

func retryable(err error) bool {
	return errors.Is(err, domain.ErrRateLimitExceeded) ||
		errors.Is(err, domain.ErrTransientUpstream)
}

// withRetry runs fn until it succeeds, fails terminally, or the attempt
// budget is spent. The last error is returned unwrapped so callers keep the
// domain classification.
func withRetry(ctx context.Context, cfg RetryConfig, logger zerolog.Logger, op string, fn func() error) error {
	var err error
	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		if attempt > 0 {
			backoff := cfg.BackoffFor(attempt - 1)
			logger.Debug().
				Str("op", op).
				Int("attempt", attempt).
				Dur("backoff", backoff).
				Msg("Retrying platform call")
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return err
			}
		}
		err = fn()
		if err == nil || !retryable(err) {
			return err
		}
		if ctx.Err() != nil {
			return err
		}
	}
	return err
}
