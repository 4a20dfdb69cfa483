// Package retry provides a small, reusable retry policy with exponential
// backoff. It exists so that resilience parameters (attempt count, delays)
// live in one testable object instead of being embedded in call sites.
package retry

import (
	"context"
	"fmt"
	"time"
)

// DefaultPolicy matches the upload resilience policy used at the
// message-send call site: 3 attempts total with 1s and 2s pauses.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:  3,
		InitialDelay: time.Second,
	}
}

// Policy describes a bounded retry loop with doubling backoff.
// The zero value is not usable; MaxAttempts must be at least 1.
type Policy struct {
	// MaxAttempts is the total number of attempts, including the first one.
	MaxAttempts int
	// InitialDelay is the pause before the second attempt; it doubles after
	// every subsequent failure (1s, 2s, 4s, ...).
	InitialDelay time.Duration
	// OnRetry, if set, is called after each failed attempt that will be
	// retried, with the 1-based attempt number, the failure, and the delay
	// before the next attempt. Callers use it to surface countdown UI.
	OnRetry func(attempt int, err error, delay time.Duration)
	// Sleep is the wait function; nil means a context-aware time.Sleep.
	// Injectable so tests can assert the delay sequence without waiting.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Do runs op until it succeeds, the attempts are exhausted, or ctx is done.
// The error of the final attempt is returned wrapped when retries run out.
func (p Policy) Do(ctx context.Context, op func(ctx context.Context) error) error {
	if p.MaxAttempts < 1 {
		return fmt.Errorf("retry: MaxAttempts must be at least 1, got %d", p.MaxAttempts)
	}

	sleep := p.Sleep
	if sleep == nil {
		sleep = sleepContext
	}

	delay := p.InitialDelay
	var lastErr error

	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("retry: aborted before attempt %d: %w", attempt, err)
		}

		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}

		if attempt == p.MaxAttempts {
			break
		}

		if p.OnRetry != nil {
			p.OnRetry(attempt, lastErr, delay)
		}
		if err := sleep(ctx, delay); err != nil {
			return fmt.Errorf("retry: aborted while waiting after attempt %d: %w", attempt, err)
		}
		delay *= 2
	}

	return fmt.Errorf("retry: all %d attempts failed: %w", p.MaxAttempts, lastErr)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
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
