// Resonate - Personalized Video Feed and Recommendation Service
// Copyright 2026 Resonate Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/resonatelabs/resonate

package models

import "time"

// APIResponse is the standardized response wrapper used by all HTTP
// endpoints. It provides a consistent structure for both successful and
// error responses, with metadata for observability.
//
// Status field values:
//   - "success": Request completed successfully, see Data field
//   - "error": Request failed, see Error field for details
//
// Example successful response:
//
//	{
//	  "status": "success",
//	  "data": {"total": 45, "posts": [...]},
//	  "metadata": {"timestamp": "2026-08-28T12:00:00Z", "query_time_ms": 12}
//	}
type APIResponse struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata carries response timing for monitoring.
type Metadata struct {
	Timestamp   time.Time `json:"timestamp"`
	QueryTimeMS int64     `json:"query_time_ms,omitempty"`
}

// APIError is the structured error payload inside an error envelope.
//
// Common error codes:
//   - VALIDATION_ERROR: invalid request parameters
//   - NOT_FOUND: referenced post is not in the catalog
//   - NOT_READY: catalog has not completed its first build
//   - UPSTREAM_UNAVAILABLE: content API unreachable after retries
//   - BUILD_IN_PROGRESS: a catalog rebuild is already running
//   - RATE_LIMIT_EXCEEDED: too many requests
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// FeedPage is the payload of GET /api/v1/feed: one page of a ranked feed.
// Total counts the full filtered result set, not the page, so clients can
// derive page counts.
type FeedPage struct {
	Username  string       `json:"username"`
	Page      int          `json:"page"`
	PageSize  int          `json:"page_size"`
	Total     int          `json:"total"`
	ColdStart bool         `json:"cold_start"`
	Posts     []ScoredPost `json:"posts"`
}

// ScoredPost pairs a post with the score that ranked it.
type ScoredPost struct {
	Post  Post    `json:"post"`
	Score float64 `json:"score"`
}

// SimilarResult is the payload of GET /api/v1/similar/{postID}.
type SimilarResult struct {
	PostID int64        `json:"post_id"`
	TopK   int          `json:"top_k"`
	Posts  []ScoredPost `json:"posts"`
}

// HealthStatus is the payload of GET /health.
type HealthStatus struct {
	Ready       bool   `json:"ready"`
	PostsCached int    `json:"posts_cached"`
	ModelLoaded bool   `json:"model_loaded"`
	ModelName   string `json:"model_name"`
	Uptime      string `json:"uptime"`
}

// RefreshAccepted is the payload of POST /api/v1/catalog/refresh.
type RefreshAccepted struct {
	Message string `json:"message"`
	Version uint64 `json:"catalog_version"`
}
