// Resonate - Personalized Video Feed and Recommendation Service
// Copyright 2026 Resonate Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/resonatelabs/resonate

package fetcher

import (
	"errors"
	"fmt"
	"time"
)

// ErrUpstreamUnavailable is returned after every retry attempt against
// the content API has been exhausted. Callers decide the fallback; the
// fetcher never swallows it.
var ErrUpstreamUnavailable = errors.New("upstream content API unavailable")

// statusError marks an HTTP response status as the failure cause.
// Retryable distinguishes 5xx/429 (transient) from other 4xx (permanent).
// retryAfter carries the server's Retry-After hint on 429 (RFC 6585).
type statusError struct {
	code       int
	retryable  bool
	retryAfter time.Duration
}

func (e *statusError) Error() string {
	return fmt.Sprintf("upstream returned HTTP %d", e.code)
}

// retryable reports whether an attempt error is worth another try:
// connection errors and timeouts always are, HTTP statuses only when the
// status itself is transient.
func retryable(err error) bool {
	var se *statusError
	if errors.As(err, &se) {
		return se.retryable
	}
	// Connection errors, timeouts, DNS failures.
	return true
}
