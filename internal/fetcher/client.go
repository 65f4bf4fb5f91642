// Resonate - Personalized Video Feed and Recommendation Service
// Copyright 2026 Resonate Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/resonatelabs/resonate

// Package fetcher is the resilient client for the upstream content API.
// It retrieves the post corpus (paged) and per-user interaction lists,
// with header auth, bounded timeouts, exponential-backoff retries, an
// outbound rate limiter and an optional circuit breaker wrapper.
package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/resonatelabs/resonate/internal/config"
	"github.com/resonatelabs/resonate/internal/logging"
	"github.com/resonatelabs/resonate/internal/metrics"
	"github.com/resonatelabs/resonate/internal/models"
)

// authHeader is the header the upstream expects the API token in.
const authHeader = "Flic-Token"

// Client talks to the upstream content API.
//
// Thread safety: safe for concurrent use; each call creates its own
// request and the limiter and policy are immutable after construction.
type Client struct {
	baseURL  string
	token    string
	pageSize int
	client   *http.Client
	policy   RetryPolicy
	sleep    sleepFunc
	limiter  *rate.Limiter
	logger   zerolog.Logger
}

// NewClient creates a content API client from configuration.
func NewClient(cfg config.UpstreamConfig) *Client {
	return &Client{
		baseURL:  cfg.BaseURL,
		token:    cfg.Token,
		pageSize: cfg.PageSize,
		client:   &http.Client{Timeout: cfg.Timeout},
		policy:   PolicyFromConfig(cfg.Retry),
		sleep:    sleepWithContext,
		limiter:  rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst),
		logger:   logging.With().Str("component", "fetcher").Logger(),
	}
}

// upstreamPost is the wire shape of a post record. It mirrors
// models.Post plus the per-kind interaction fields the interaction list
// endpoints attach (average_rating on the rating list).
type upstreamPost struct {
	models.Post
	AverageRating float64 `json:"average_rating,omitempty"`
}

// postsPage is the envelope the upstream wraps every post list in.
type postsPage struct {
	Posts    []upstreamPost `json:"posts"`
	Page     int            `json:"page"`
	PageSize int            `json:"page_size"`
}

// getJSON performs one retried GET against path, decoding the body into
// out. Every attempt waits on the outbound rate limiter so catalog
// rebuilds cannot hammer the upstream.
func (c *Client) getJSON(ctx context.Context, endpoint, path string, params url.Values, out interface{}) error {
	reqURL := c.baseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	return c.policy.do(ctx, endpoint, c.sleep, func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set(authHeader, c.token)
		req.Header.Set("Accept", "application/json")

		start := time.Now()
		resp, err := c.client.Do(req)
		metrics.RecordUpstreamRequest(endpoint, time.Since(start), err)
		if err != nil {
			return fmt.Errorf("request %s: %w", path, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 512))
			return c.statusError(resp)
		}

		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			// A malformed body is not transient; do not retry.
			return &statusError{code: resp.StatusCode, retryable: false}
		}
		return nil
	})
}

// statusError classifies a non-200 response. 5xx and 429 are transient;
// other 4xx are permanent.
func (c *Client) statusError(resp *http.Response) error {
	se := &statusError{code: resp.StatusCode}
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		se.retryable = true
		if ra := resp.Header.Get("Retry-After"); ra != "" {
			if seconds, err := strconv.Atoi(ra); err == nil {
				se.retryAfter = time.Duration(seconds) * time.Second
			}
		}
	case resp.StatusCode >= 500:
		se.retryable = true
	}
	return se
}

// FetchPostsPage retrieves one page of the post corpus. Pages are
// 1-indexed; a page past the end comes back empty.
func (c *Client) FetchPostsPage(ctx context.Context, page, pageSize int) ([]models.Post, error) {
	params := url.Values{}
	params.Set("page", strconv.Itoa(page))
	params.Set("page_size", strconv.Itoa(pageSize))

	var body postsPage
	if err := c.getJSON(ctx, "posts", "/posts/summary/get", params, &body); err != nil {
		return nil, err
	}

	posts := make([]models.Post, len(body.Posts))
	for i, p := range body.Posts {
		posts[i] = p.Post
	}
	return posts, nil
}

// FetchAllPosts walks the post corpus page by page until a short page
// signals exhaustion, using the upstream's maximum page size.
func (c *Client) FetchAllPosts(ctx context.Context) ([]models.Post, error) {
	var all []models.Post
	for page := 1; ; page++ {
		posts, err := c.FetchPostsPage(ctx, page, c.pageSize)
		if err != nil {
			return nil, err
		}
		all = append(all, posts...)
		if len(posts) < c.pageSize {
			break
		}
	}

	c.logger.Debug().Int("posts", len(all)).Msg("Fetched full post corpus")
	return all, nil
}

// FetchInteractions retrieves the posts a user interacted with via one
// kind (viewed, liked, inspired, rated) and converts them to interaction
// records. For ratings, the upstream attaches the numeric value to each
// post record.
func (c *Client) FetchInteractions(ctx context.Context, username string, kind models.InteractionKind) ([]models.Interaction, error) {
	params := url.Values{}
	params.Set("username", username)
	params.Set("page", "1")
	params.Set("page_size", strconv.Itoa(c.pageSize))

	var body postsPage
	if err := c.getJSON(ctx, string(kind), "/posts/"+string(kind), params, &body); err != nil {
		return nil, err
	}

	interactions := make([]models.Interaction, len(body.Posts))
	for i, p := range body.Posts {
		interactions[i] = models.Interaction{
			Username:    username,
			PostID:      p.ID,
			Kind:        kind,
			RatingValue: p.AverageRating,
		}
	}
	return interactions, nil
}

// kindPriority orders interaction kinds by signal strength, matching the
// default weight table (view < rating < like < inspire).
var kindPriority = map[models.InteractionKind]int{
	models.KindView:    0,
	models.KindRating:  1,
	models.KindLike:    2,
	models.KindInspire: 3,
}

// FetchUserInteractions aggregates all four interaction kinds for a
// user. When the same post appears under several kinds, the strongest
// kind wins so the profile builder sees one signal per post.
func (c *Client) FetchUserInteractions(ctx context.Context, username string) ([]models.Interaction, error) {
	strongest := make(map[int64]models.Interaction)
	order := make([]int64, 0)

	for _, kind := range models.Kinds() {
		interactions, err := c.FetchInteractions(ctx, username, kind)
		if err != nil {
			return nil, err
		}
		for _, in := range interactions {
			prev, seen := strongest[in.PostID]
			if !seen {
				order = append(order, in.PostID)
				strongest[in.PostID] = in
				continue
			}
			if kindPriority[in.Kind] > kindPriority[prev.Kind] {
				strongest[in.PostID] = in
			}
		}
	}

	result := make([]models.Interaction, 0, len(order))
	for _, id := range order {
		result = append(result, strongest[id])
	}

	c.logger.Debug().
		Str("username", username).
		Int("interactions", len(result)).
		Msg("Fetched user interactions")
	return result, nil
}
