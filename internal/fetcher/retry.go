// Resonate - Personalized Video Feed and Recommendation Service
// Copyright 2026 Resonate Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/resonatelabs/resonate

package fetcher

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/resonatelabs/resonate/internal/config"
	"github.com/resonatelabs/resonate/internal/metrics"
)

// RetryPolicy bounds exponential backoff around upstream calls. It is an
// explicit value rather than inlined control flow so tests can exercise
// it with a fake sleep.
type RetryPolicy struct {
	// MaxAttempts is the total attempt ceiling, including the first try.
	MaxAttempts int
	// BaseDelay is the delay before the second attempt; it doubles per
	// attempt up to MaxDelay.
	BaseDelay time.Duration
	MaxDelay  time.Duration
	// Jitter randomizes each delay in [delay/2, delay) to avoid
	// synchronized retry storms.
	Jitter bool
}

// PolicyFromConfig converts the config section into a RetryPolicy.
func PolicyFromConfig(cfg config.RetryConfig) RetryPolicy {
	return RetryPolicy{
		MaxAttempts: cfg.MaxAttempts,
		BaseDelay:   cfg.BaseDelay,
		MaxDelay:    cfg.MaxDelay,
		Jitter:      cfg.Jitter,
	}
}

// sleepFunc waits for d or until the context is done. Production uses
// sleepWithContext; tests inject a recorder.
type sleepFunc func(ctx context.Context, d time.Duration) error

// sleepWithContext is a cancellable time.Sleep.
func sleepWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// delay computes the backoff before attempt n (0-based: delay(0) waits
// before the second attempt).
func (p RetryPolicy) delay(attempt int) time.Duration {
	d := p.BaseDelay << uint(attempt)
	if d > p.MaxDelay || d <= 0 {
		d = p.MaxDelay
	}
	if p.Jitter && d > 0 {
		d = d/2 + time.Duration(rand.Int63n(int64(d/2)+1)) //nolint:gosec // not cryptographic
	}
	return d
}

// do runs fn up to MaxAttempts times, sleeping between attempts. A
// non-retryable error aborts immediately; exhaustion wraps the last
// error in ErrUpstreamUnavailable.
func (p RetryPolicy) do(ctx context.Context, endpoint string, sleep sleepFunc, fn func() error) error {
	var lastErr error

	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if attempt > 0 {
			metrics.UpstreamRetriesTotal.WithLabelValues(endpoint).Inc()
			wait := p.delay(attempt - 1)
			// Honor the server's Retry-After hint over our own backoff.
			var se *statusError
			if errors.As(lastErr, &se) && se.retryAfter > 0 {
				wait = se.retryAfter
			}
			if err := sleep(ctx, wait); err != nil {
				return err
			}
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !retryable(lastErr) {
			return lastErr
		}
	}

	return fmt.Errorf("%w: %d attempts failed, last error: %v",
		ErrUpstreamUnavailable, p.MaxAttempts, lastErr)
}
