// Package retry provides the bounded-retry wrapper used around flaky
// upstream content-generation calls.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrExhausted marks a failure after the retry budget was consumed. The
// original cause remains reachable through errors.Is / errors.As.
var ErrExhausted = errors.New("retries exhausted")

// Policy bounds the retry behavior for one operation.
type Policy struct {
	// MaxAttempts caps total invocations, including the first.
	MaxAttempts int
	// Delay is the fixed pause between attempts.
	Delay time.Duration
	// Retryable classifies errors; nil retries nothing.
	Retryable func(error) bool
	// Sleep overrides the inter-attempt pause, used in tests.
	Sleep func(context.Context, time.Duration) error
}

func (p Policy) attempts() int {
	if p.MaxAttempts <= 0 {
		return 1
	}
	return p.MaxAttempts
}

func (p Policy) sleep(ctx context.Context, d time.Duration) error {
	if p.Sleep != nil {
		return p.Sleep(ctx, d)
	}
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

// Do invokes op until it succeeds, fails with a non-retryable error, or
// exhausts the attempt budget. Exhaustion surfaces as ErrExhausted
// wrapping the final cause, distinguishable from the cause itself.
func Do[T any](ctx context.Context, policy Policy, op func(context.Context) (T, error)) (T, error) {
	var zero T
	attempts := policy.attempts()

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		result, err := op(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if policy.Retryable == nil || !policy.Retryable(err) {
			return zero, err
		}
		if attempt == attempts {
			break
		}
		if sleepErr := policy.sleep(ctx, policy.Delay); sleepErr != nil {
			return zero, sleepErr
		}
	}
	return zero, fmt.Errorf("%w after %d attempts: %w", ErrExhausted, attempts, lastErr)
}
