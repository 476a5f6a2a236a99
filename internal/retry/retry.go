// Package retry provides a bounded fixed-backoff retry helper shared by
// the browser session's navigation and content-wait steps.
package retry

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Do invokes op up to attempts times, sleeping delay between attempts.
// The first nil error wins. After exhaustion the last error is returned
// wrapped with the attempt count. The delay is context-aware: a
// cancelled context aborts the wait and returns the context error.
func Do(ctx context.Context, attempts int, delay time.Duration, logger *slog.Logger, label string, op func() error) error {
	if attempts < 1 {
		attempts = 1
	}
	if logger == nil {
		logger = slog.Default()
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			logger.Info("retrying", "step", label, "attempt", attempt, "of", attempts)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		if err := op(); err != nil {
			lastErr = err
			logger.Warn("attempt failed", "step", label, "attempt", attempt, "error", err)
			continue
		}
		return nil
	}

	return fmt.Errorf("%s failed after %d attempts: %w", label, attempts, lastErr)
}
