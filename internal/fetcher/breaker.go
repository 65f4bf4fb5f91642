// Resonate - Personalized Video Feed and Recommendation Service
// Copyright 2026 Resonate Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/resonatelabs/resonate

package fetcher

import (
	"context"
	"errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/resonatelabs/resonate/internal/logging"
	"github.com/resonatelabs/resonate/internal/metrics"
	"github.com/resonatelabs/resonate/internal/models"
)

// BreakerClient wraps Client with a circuit breaker so a dead upstream
// fails fast instead of burning every request's retry budget.
//
// DETERMINISM NOTE: the breaker uses real time (via sony/gobreaker) for
// its interval and timeout calculations. Unit tests should exercise the
// wrapped Client directly.
type BreakerClient struct {
	client *Client
	cb     *gobreaker.CircuitBreaker[any]
}

// NewBreakerClient wraps client with a breaker that opens at a 60%
// failure rate over at least 10 requests, allows 3 probes in half-open
// state, and waits 2 minutes before probing an open circuit.
func NewBreakerClient(client *Client) *BreakerClient {
	metrics.BreakerState.Set(0) // closed

	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        "upstream-content-api",
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,

		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= 0.6
		},

		OnStateChange: func(_ string, from, to gobreaker.State) {
			fromStr, toStr := stateToString(from), stateToString(to)
			logging.Warn().
				Str("from", fromStr).
				Str("to", toStr).
				Msg("Upstream circuit breaker state change")
			metrics.BreakerState.Set(stateToFloat(to))
			metrics.BreakerTransitionsTotal.WithLabelValues(fromStr, toStr).Inc()
		},
	})

	return &BreakerClient{client: client, cb: cb}
}

// wrapBreakerErr maps breaker rejections onto ErrUpstreamUnavailable so
// callers see one sentinel for "upstream is not answering", whether the
// retries were exhausted or never attempted.
func wrapBreakerErr(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	return err
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// FetchAllPosts walks the post corpus with breaker protection.
func (b *BreakerClient) FetchAllPosts(ctx context.Context) ([]models.Post, error) {
	result, err := b.cb.Execute(func() (any, error) {
		return b.client.FetchAllPosts(ctx)
	})
	if err != nil {
		return nil, wrapBreakerErr(err)
	}
	return result.([]models.Post), nil
}

// FetchPostsPage retrieves one corpus page with breaker protection.
func (b *BreakerClient) FetchPostsPage(ctx context.Context, page, pageSize int) ([]models.Post, error) {
	result, err := b.cb.Execute(func() (any, error) {
		return b.client.FetchPostsPage(ctx, page, pageSize)
	})
	if err != nil {
		return nil, wrapBreakerErr(err)
	}
	return result.([]models.Post), nil
}

// FetchInteractions retrieves one interaction kind with breaker
// protection.
func (b *BreakerClient) FetchInteractions(ctx context.Context, username string, kind models.InteractionKind) ([]models.Interaction, error) {
	result, err := b.cb.Execute(func() (any, error) {
		return b.client.FetchInteractions(ctx, username, kind)
	})
	if err != nil {
		return nil, wrapBreakerErr(err)
	}
	return result.([]models.Interaction), nil
}

// FetchUserInteractions aggregates all kinds with breaker protection.
func (b *BreakerClient) FetchUserInteractions(ctx context.Context, username string) ([]models.Interaction, error) {
	result, err := b.cb.Execute(func() (any, error) {
		return b.client.FetchUserInteractions(ctx, username)
	})
	if err != nil {
		return nil, wrapBreakerErr(err)
	}
	return result.([]models.Interaction), nil
}
