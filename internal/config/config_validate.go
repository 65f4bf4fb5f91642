// Resonate - Personalized Video Feed and Recommendation Service
// Copyright 2026 Resonate Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/resonatelabs/resonate

package config

import (
	"fmt"
	"net/url"
	"strings"
)

// Validate checks that required configuration is present and valid.
// Error messages name the environment variable so operators can fix the
// deployment without reading source.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}

	if err := c.validateUpstream(); err != nil {
		return err
	}

	if err := c.validateEmbedding(); err != nil {
		return err
	}

	if err := c.validateRecommend(); err != nil {
		return err
	}

	return c.validateLogging()
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	return nil
}

func (c *Config) validateUpstream() error {
	if c.Upstream.BaseURL == "" {
		return fmt.Errorf("UPSTREAM_BASE_URL is required")
	}
	if err := validateHTTPURL(c.Upstream.BaseURL, "UPSTREAM_BASE_URL"); err != nil {
		return err
	}
	if c.Upstream.Token == "" {
		return fmt.Errorf("UPSTREAM_TOKEN is required")
	}
	if c.Upstream.PageSize < 1 || c.Upstream.PageSize > 1000 {
		return fmt.Errorf("UPSTREAM_PAGE_SIZE must be between 1 and 1000, got %d", c.Upstream.PageSize)
	}
	if c.Upstream.Retry.MaxAttempts < 1 {
		return fmt.Errorf("UPSTREAM_RETRY_MAX_ATTEMPTS must be at least 1, got %d", c.Upstream.Retry.MaxAttempts)
	}
	if c.Upstream.Retry.BaseDelay <= 0 {
		return fmt.Errorf("UPSTREAM_RETRY_BASE_DELAY must be positive, got %s", c.Upstream.Retry.BaseDelay)
	}
	if c.Upstream.Retry.MaxDelay < c.Upstream.Retry.BaseDelay {
		return fmt.Errorf("UPSTREAM_RETRY_MAX_DELAY must be >= base delay")
	}
	if c.Upstream.RateLimitRPS <= 0 {
		return fmt.Errorf("UPSTREAM_RATE_LIMIT_RPS must be positive, got %v", c.Upstream.RateLimitRPS)
	}
	return nil
}

func (c *Config) validateEmbedding() error {
	switch c.Embedding.Provider {
	case "http":
		if c.Embedding.BaseURL == "" {
			return fmt.Errorf("EMBEDDING_BASE_URL is required when EMBEDDING_PROVIDER=http")
		}
		if err := validateHTTPURL(c.Embedding.BaseURL, "EMBEDDING_BASE_URL"); err != nil {
			return err
		}
	case "hash":
		// Local deterministic provider, no endpoint needed.
	default:
		return fmt.Errorf("EMBEDDING_PROVIDER must be \"http\" or \"hash\", got %q", c.Embedding.Provider)
	}

	if c.Embedding.Dimensions < 1 {
		return fmt.Errorf("EMBEDDING_DIMENSIONS must be positive, got %d", c.Embedding.Dimensions)
	}
	if c.Embedding.BatchSize < 1 {
		return fmt.Errorf("EMBEDDING_BATCH_SIZE must be positive, got %d", c.Embedding.BatchSize)
	}
	if c.Embedding.ModelName == "" {
		return fmt.Errorf("EMBEDDING_MODEL_NAME is required")
	}
	return nil
}

func (c *Config) validateRecommend() error {
	w := c.Recommend.Weights
	if w.View < 0 || w.Like < 0 || w.Inspire < 0 || w.RatingFallback < 0 {
		return fmt.Errorf("interaction weights must be non-negative")
	}
	if c.Recommend.Popularity.Factor < 0 {
		return fmt.Errorf("RECOMMEND_POPULARITY_FACTOR must be non-negative, got %v", c.Recommend.Popularity.Factor)
	}
	if c.Recommend.Popularity.Cap < 0 {
		return fmt.Errorf("RECOMMEND_POPULARITY_CAP must be non-negative, got %v", c.Recommend.Popularity.Cap)
	}
	if c.Recommend.Diversity < 0 {
		return fmt.Errorf("RECOMMEND_DIVERSITY must be non-negative, got %v", c.Recommend.Diversity)
	}
	if c.Recommend.DefaultPageSize < 1 {
		return fmt.Errorf("RECOMMEND_DEFAULT_PAGE_SIZE must be positive, got %d", c.Recommend.DefaultPageSize)
	}
	if c.Recommend.MaxPageSize < c.Recommend.DefaultPageSize {
		return fmt.Errorf("RECOMMEND_MAX_PAGE_SIZE must be >= default page size")
	}
	if c.Recommend.SimilarTopK < 1 {
		return fmt.Errorf("RECOMMEND_SIMILAR_TOP_K must be positive, got %d", c.Recommend.SimilarTopK)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Level) {
	case "trace", "debug", "info", "warn", "warning", "error", "fatal", "panic", "disabled":
	default:
		return fmt.Errorf("LOG_LEVEL must be a valid level, got %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("LOG_FORMAT must be \"json\" or \"console\", got %q", c.Logging.Format)
	}
	return nil
}

// validateHTTPURL checks that a URL parses and uses http or https.
func validateHTTPURL(raw, name string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s is not a valid URL: %w", name, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s must use http or https, got %q", name, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%s is missing a host", name)
	}
	return nil
}
