package retry

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
)

// Do runs op up to cfg.MaxAttempts times, sleeping with exponential backoff
// between failed attempts. The final failure is returned wrapped with the
// label, attempt count and last error. Sleeps are context-aware.
func Do[T any](ctx context.Context, logger arbor.ILogger, cfg Config, label string, op func(ctx context.Context) (T, error)) (T, error) {
	return do(ctx, logger, cfg, label, op, nil)
}

// DoTransient is Do restricted to transient errors: a non-transient error
// propagates immediately without consuming remaining attempts.
func DoTransient[T any](ctx context.Context, logger arbor.ILogger, cfg Config, label string, op func(ctx context.Context) (T, error)) (T, error) {
	return do(ctx, logger, cfg, label, op, IsTransient)
}

func do[T any](ctx context.Context, logger arbor.ILogger, cfg Config, label string, op func(ctx context.Context) (T, error), retryable func(error) bool) (T, error) {
	var zero T
	var lastErr error

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		result, err := op(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if retryable != nil && !retryable(err) {
			return zero, err
		}

		if attempt == cfg.MaxAttempts {
			break
		}

		delay := CalculateDelay(attempt, cfg)
		logger.Warn().
			Str("operation", label).
			Int("attempt", attempt).
			Dur("delay", delay).
			Err(err).
			Msg("Retrying after backoff")

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(delay):
		}
	}

	return zero, fmt.Errorf("%s failed after %d attempts: %w", label, cfg.MaxAttempts, lastErr)
}
