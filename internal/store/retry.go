// SignalGuard - Behavioral Signal Burst Detection
// Copyright 2026 SignalGuard Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/signalguard/signalguard

package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/signalguard/signalguard/internal/logging"
	"github.com/signalguard/signalguard/internal/metrics"
)

// Permanent marks an error as non-retryable. Wrap validation-class failures
// with it so the retry policy fails fast instead of burning attempts.
type Permanent struct {
	Err error
}

func (p *Permanent) Error() string { return p.Err.Error() }
func (p *Permanent) Unwrap() error { return p.Err }

// RetryPolicy is an explicit retry policy composed around persistence calls:
// a fixed number of attempts with a fixed backoff between them. Exhaustion
// surfaces the last error to the caller; the operation is never silently
// dropped.
type RetryPolicy struct {
	// Attempts is the total number of tries, including the first.
	Attempts int

	// Backoff is the fixed delay between attempts.
	Backoff time.Duration
}

// DefaultRetryPolicy matches the persistence contract: 3 attempts, 1s apart.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Attempts: 3, Backoff: time.Second}
}

// Do runs op under the policy. Context cancellation aborts the wait between
// attempts; permanent errors abort immediately.
func (p RetryPolicy) Do(ctx context.Context, operation string, op func(ctx context.Context) error) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		err := op(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		var perm *Permanent
		if errors.As(err, &perm) {
			return perm.Err
		}

		if attempt == attempts {
			break
		}

		metrics.PersistenceRetries.WithLabelValues(operation).Inc()
		logging.Ctx(ctx).Warn().
			Err(err).
			Str("operation", operation).
			Int("attempt", attempt).
			Int("max_attempts", attempts).
			Msg("persistence attempt failed, retrying")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.Backoff):
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operation, attempts, lastErr)
}
