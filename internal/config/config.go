// Resonate - Personalized Video Feed and Recommendation Service
// Copyright 2026 Resonate Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/resonatelabs/resonate

// Package config loads and validates Resonate's configuration from layered
// sources: built-in defaults, an optional YAML file, and environment
// variables (highest priority).
package config

import (
	"fmt"
	"time"
)

// Config is the root configuration for the Resonate service.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Upstream  UpstreamConfig  `koanf:"upstream"`
	Embedding EmbeddingConfig `koanf:"embedding"`
	Recommend RecommendConfig `koanf:"recommend"`
	Catalog   CatalogConfig   `koanf:"catalog"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	RateLimitReqs   int           `koanf:"rate_limit_reqs"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`
}

// Addr returns the host:port listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// UpstreamConfig configures the outbound client for the content API that
// serves posts and per-user interaction lists.
type UpstreamConfig struct {
	BaseURL        string        `koanf:"base_url"`
	Token          string        `koanf:"token"`
	Timeout        time.Duration `koanf:"timeout"`
	PageSize       int           `koanf:"page_size"`
	Retry          RetryConfig   `koanf:"retry"`
	RateLimitRPS   float64       `koanf:"rate_limit_rps"`
	RateLimitBurst int           `koanf:"rate_limit_burst"`
}

// RetryConfig bounds the fetcher's exponential backoff.
type RetryConfig struct {
	MaxAttempts int           `koanf:"max_attempts"`
	BaseDelay   time.Duration `koanf:"base_delay"`
	MaxDelay    time.Duration `koanf:"max_delay"`
	Jitter      bool          `koanf:"jitter"`
}

// EmbeddingConfig selects and configures the embedding provider.
//
// Provider "http" talks to a text-embeddings-inference style server;
// "hash" is a deterministic local embedder for development and tests.
type EmbeddingConfig struct {
	Provider   string        `koanf:"provider"`
	BaseURL    string        `koanf:"base_url"`
	ModelName  string        `koanf:"model_name"`
	Dimensions int           `koanf:"dimensions"`
	BatchSize  int           `koanf:"batch_size"`
	Timeout    time.Duration `koanf:"timeout"`
	// CachePath enables the persistent embedding cache when non-empty.
	CachePath string `koanf:"cache_path"`
}

// RecommendConfig holds the scoring knobs.
type RecommendConfig struct {
	Weights         WeightsConfig    `koanf:"weights"`
	Popularity      PopularityConfig `koanf:"popularity"`
	Diversity       float64          `koanf:"diversity"`
	DefaultPageSize int              `koanf:"default_page_size"`
	MaxPageSize     int              `koanf:"max_page_size"`
	SimilarTopK     int              `koanf:"similar_top_k"`
}

// WeightsConfig is the interaction weight table used by the profile
// builder. RatingFallback applies when a rating record carries no
// positive numeric value.
type WeightsConfig struct {
	View           float64 `koanf:"view"`
	Like           float64 `koanf:"like"`
	Inspire        float64 `koanf:"inspire"`
	RatingFallback float64 `koanf:"rating_fallback"`
}

// PopularityConfig bounds the view-count boost added to cosine scores.
// The boost is min(Cap, Factor * ln(1 + view_count)).
type PopularityConfig struct {
	Factor float64 `koanf:"factor"`
	Cap    float64 `koanf:"cap"`
}

// CatalogConfig configures catalog rebuilds. RefreshInterval of zero
// disables the periodic refresher; rebuilds can still be triggered over
// the API.
type CatalogConfig struct {
	RefreshInterval time.Duration `koanf:"refresh_interval"`
}

// LoggingConfig configures the global logger.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// defaultConfig returns a Config with all default values. Defaults are
// applied first, then overridden by the config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
		},
		Upstream: UpstreamConfig{
			BaseURL:  "",
			Token:    "",
			Timeout:  10 * time.Second,
			PageSize: 1000, // upstream maximum
			Retry: RetryConfig{
				MaxAttempts: 3,
				BaseDelay:   500 * time.Millisecond,
				MaxDelay:    10 * time.Second,
				Jitter:      true,
			},
			RateLimitRPS:   10,
			RateLimitBurst: 20,
		},
		Embedding: EmbeddingConfig{
			Provider:   "http",
			BaseURL:    "",
			ModelName:  "sentence-transformers/all-MiniLM-L6-v2",
			Dimensions: 384,
			BatchSize:  32,
			Timeout:    30 * time.Second,
			CachePath:  "",
		},
		Recommend: RecommendConfig{
			Weights: WeightsConfig{
				View:           1.0,
				Like:           4.0,
				Inspire:        5.0,
				RatingFallback: 2.0,
			},
			Popularity: PopularityConfig{
				Factor: 0.05,
				Cap:    0.5,
			},
			Diversity:       0.1,
			DefaultPageSize: 20,
			MaxPageSize:     100,
			SimilarTopK:     10,
		},
		Catalog: CatalogConfig{
			RefreshInterval: 0, // disabled unless configured
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}
