// Resonate - Personalized Video Feed and Recommendation Service
// Copyright 2026 Resonate Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/resonatelabs/resonate

// Package metrics provides Prometheus instrumentation for Resonate:
//   - API endpoint latency and throughput
//   - Upstream content API calls, retries and circuit breaker state
//   - Embedding batch latency and cache efficiency
//   - Catalog size, version and build outcomes
//   - Feed scoring latency and cold-start rate
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API endpoint metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_rate_limit_hits_total",
			Help: "Total number of rate limit rejections",
		},
		[]string{"endpoint"},
	)

	// Upstream content API metrics
	UpstreamRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upstream_requests_total",
			Help: "Total number of upstream content API requests",
		},
		[]string{"endpoint", "outcome"}, // outcome: "success", "error"
	)

	UpstreamRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "upstream_request_duration_seconds",
			Help:    "Upstream content API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	UpstreamRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upstream_retries_total",
			Help: "Total number of upstream request retries",
		},
		[]string{"endpoint"},
	)

	// Circuit breaker metrics
	BreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "upstream_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
	)

	BreakerTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upstream_breaker_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"from", "to"},
	)

	// Embedding metrics
	EmbedBatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "embed_batch_duration_seconds",
			Help:    "Embedding batch request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	EmbedTextsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "embed_texts_total",
			Help: "Total number of texts embedded",
		},
	)

	EmbedCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "embed_cache_hits_total",
			Help: "Total number of embedding cache hits",
		},
	)

	EmbedCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "embed_cache_misses_total",
			Help: "Total number of embedding cache misses",
		},
	)

	// Catalog metrics
	CatalogPosts = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "catalog_posts",
			Help: "Number of posts in the current catalog snapshot",
		},
	)

	CatalogVersion = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "catalog_version",
			Help: "Current catalog snapshot version (increments on rebuild)",
		},
	)

	CatalogBuildsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_builds_total",
			Help: "Total number of catalog build attempts",
		},
		[]string{"outcome"}, // "success", "error", "conflict"
	)

	CatalogBuildDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "catalog_build_duration_seconds",
			Help:    "Catalog build duration in seconds",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
	)

	// Recommendation metrics
	FeedDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "feed_request_duration_seconds",
			Help:    "End-to-end feed scoring duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	ColdStartTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "feed_cold_start_total",
			Help: "Total number of feed requests served via popularity fallback",
		},
	)
)

// RecordAPIRequest records an API request with its duration.
func RecordAPIRequest(method, endpoint string, statusCode int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(statusCode)).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordUpstreamRequest records one upstream call attempt outcome.
func RecordUpstreamRequest(endpoint string, duration time.Duration, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	UpstreamRequestsTotal.WithLabelValues(endpoint, outcome).Inc()
	UpstreamRequestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// RecordCatalogBuild records the outcome of a catalog build attempt.
// Size and version gauges are only updated on success.
func RecordCatalogBuild(duration time.Duration, size int, version uint64, err error) {
	if err != nil {
		CatalogBuildsTotal.WithLabelValues("error").Inc()
		return
	}
	CatalogBuildsTotal.WithLabelValues("success").Inc()
	CatalogBuildDuration.Observe(duration.Seconds())
	CatalogPosts.Set(float64(size))
	CatalogVersion.Set(float64(version))
}
