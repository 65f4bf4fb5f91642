// Resonate - Personalized Video Feed and Recommendation Service
// Copyright 2026 Resonate Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/resonatelabs/resonate

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in
// order of priority. The first file found wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/resonate/config.yaml",
	"/etc/resonate/config.yml",
}

// ConfigPathEnvVar overrides the config file path when set.
const ConfigPathEnvVar = "CONFIG_PATH"

// Load loads configuration using koanf v2 with layered sources:
//  1. Defaults: built-in sensible defaults
//  2. Config file: optional YAML file (if one exists)
//  3. Environment variables: override any setting
//
// Precedence is ENV > file > defaults. The returned config has been
// validated; a non-nil error means the process should not start.
func Load() (*Config, error) {
	k := koanf.New(".")

	// Layer 1: defaults from struct
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: optional config file
	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: environment variables (highest priority)
	// UPSTREAM_BASE_URL -> upstream.base_url
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile searches for a config file in the default paths.
// Returns the path to the first file found, or empty string if none found.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// envTransformFunc maps environment variable names to koanf config paths.
//
// Examples:
//   - UPSTREAM_BASE_URL -> upstream.base_url
//   - EMBEDDING_MODEL_NAME -> embedding.model_name
//   - LOG_LEVEL -> logging.level
func envTransformFunc(key string) string {
	key = strings.ToLower(key)

	envMappings := map[string]string{
		// Server mappings
		"http_host":             "server.host",
		"http_port":             "server.port",
		"http_read_timeout":     "server.read_timeout",
		"http_write_timeout":    "server.write_timeout",
		"http_shutdown_timeout": "server.shutdown_timeout",
		"rate_limit_requests":   "server.rate_limit_reqs",
		"rate_limit_window":     "server.rate_limit_window",

		// Upstream content API mappings
		"upstream_base_url":           "upstream.base_url",
		"upstream_token":              "upstream.token",
		"upstream_timeout":            "upstream.timeout",
		"upstream_page_size":          "upstream.page_size",
		"upstream_retry_max_attempts": "upstream.retry.max_attempts",
		"upstream_retry_base_delay":   "upstream.retry.base_delay",
		"upstream_retry_max_delay":    "upstream.retry.max_delay",
		"upstream_retry_jitter":       "upstream.retry.jitter",
		"upstream_rate_limit_rps":     "upstream.rate_limit_rps",
		"upstream_rate_limit_burst":   "upstream.rate_limit_burst",

		// Embedding provider mappings
		"embedding_provider":   "embedding.provider",
		"embedding_base_url":   "embedding.base_url",
		"embedding_model_name": "embedding.model_name",
		"embedding_dimensions": "embedding.dimensions",
		"embedding_batch_size": "embedding.batch_size",
		"embedding_timeout":    "embedding.timeout",
		"embedding_cache_path": "embedding.cache_path",

		// Recommendation mappings
		"recommend_weight_view":            "recommend.weights.view",
		"recommend_weight_like":            "recommend.weights.like",
		"recommend_weight_inspire":         "recommend.weights.inspire",
		"recommend_weight_rating_fallback": "recommend.weights.rating_fallback",
		"recommend_popularity_factor":      "recommend.popularity.factor",
		"recommend_popularity_cap":         "recommend.popularity.cap",
		"recommend_diversity":              "recommend.diversity",
		"recommend_default_page_size":      "recommend.default_page_size",
		"recommend_max_page_size":          "recommend.max_page_size",
		"recommend_similar_top_k":          "recommend.similar_top_k",

		// Catalog mappings
		"catalog_refresh_interval": "catalog.refresh_interval",

		// Logging mappings
		"log_level":  "logging.level",
		"log_format": "logging.format",
		"log_caller": "logging.caller",
	}

	if mapped, ok := envMappings[key]; ok {
		return mapped
	}

	// Unmapped keys are skipped so random environment variables cannot
	// pollute the config.
	return ""
}
