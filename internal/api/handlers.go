// Resonate - Personalized Video Feed and Recommendation Service
// Copyright 2026 Resonate Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/resonatelabs/resonate

package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/resonatelabs/resonate/internal/catalog"
	"github.com/resonatelabs/resonate/internal/config"
	"github.com/resonatelabs/resonate/internal/embed"
	"github.com/resonatelabs/resonate/internal/fetcher"
	"github.com/resonatelabs/resonate/internal/models"
	"github.com/resonatelabs/resonate/internal/recommend"
)

// Recommender is the slice of the recommendation engine the transport
// layer depends on.
type Recommender interface {
	Feed(ctx context.Context, req recommend.FeedRequest) (*models.FeedPage, error)
	Similar(ctx context.Context, postID int64, topK int) (*models.SimilarResult, error)
}

// Handler serves the HTTP endpoints.
type Handler struct {
	engine    Recommender
	catalog   *catalog.Catalog
	embedder  embed.Embedder
	cfg       config.RecommendConfig
	startTime time.Time
}

// NewHandler wires the handler to its collaborators.
func NewHandler(engine Recommender, cat *catalog.Catalog, embedder embed.Embedder, cfg config.RecommendConfig) *Handler {
	return &Handler{
		engine:    engine,
		catalog:   cat,
		embedder:  embedder,
		cfg:       cfg,
		startTime: time.Now(),
	}
}

// Health reports overall service state. Always 200; readiness gating
// belongs to HealthReady.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	modelLoaded := h.embedder != nil
	if p, ok := h.embedder.(embed.Pinger); ok {
		modelLoaded = p.Ping(r.Context()) == nil
	}

	modelName := ""
	if h.embedder != nil {
		modelName = h.embedder.ModelName()
	}

	health := models.HealthStatus{
		Ready:       h.catalog.Ready(),
		PostsCached: h.catalog.Size(),
		ModelLoaded: modelLoaded,
		ModelName:   modelName,
		Uptime:      time.Since(h.startTime).Round(time.Second).String(),
	}

	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status:   "success",
		Data:     health,
		Metadata: models.Metadata{Timestamp: time.Now()},
	})
}

// HealthLive is the Kubernetes-style liveness probe: 200 whenever the
// process is up, regardless of dependencies.
func (h *Handler) HealthLive(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status: "success",
		Data: map[string]interface{}{
			"alive":  true,
			"uptime": time.Since(h.startTime).Seconds(),
		},
		Metadata: models.Metadata{Timestamp: time.Now()},
	})
}

// HealthReady is the readiness probe: 503 until the first catalog build
// lands.
func (h *Handler) HealthReady(w http.ResponseWriter, _ *http.Request) {
	if !h.catalog.Ready() {
		respondError(w, http.StatusServiceUnavailable, "NOT_READY",
			"Catalog has not completed its first build", nil)
		return
	}

	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status: "success",
		Data: map[string]interface{}{
			"ready":           true,
			"posts_cached":    h.catalog.Size(),
			"catalog_version": h.catalog.Version(),
		},
		Metadata: models.Metadata{Timestamp: time.Now()},
	})
}

// Feed serves one ranked page for a user.
func (h *Handler) Feed(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	params := feedParams{
		Username:    r.URL.Query().Get("username"),
		ProjectCode: r.URL.Query().Get("project_code"),
		Page:        getIntParam(r, "page", 1),
		PageSize:    getIntParam(r, "page_size", h.cfg.DefaultPageSize),
	}
	if apiErr := validateRequest(&params); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}
	if params.PageSize > h.cfg.MaxPageSize {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR",
			fmt.Sprintf("page_size must be at most %d", h.cfg.MaxPageSize), nil)
		return
	}

	page, err := h.engine.Feed(r.Context(), recommend.FeedRequest{
		Username:    params.Username,
		ProjectCode: params.ProjectCode,
		Page:        params.Page,
		PageSize:    params.PageSize,
	})
	if err != nil {
		h.respondEngineError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status: "success",
		Data:   page,
		Metadata: models.Metadata{
			Timestamp:   time.Now(),
			QueryTimeMS: time.Since(start).Milliseconds(),
		},
	})
}

// Similar serves the posts most similar to one reference post.
func (h *Handler) Similar(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	rawID := chi.URLParam(r, "postID")
	postID, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR",
			"post ID must be a positive integer", nil)
		return
	}

	params := similarParams{
		PostID: postID,
		TopK:   getIntParam(r, "top_k", 0),
	}
	if apiErr := validateRequest(&params); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	result, err := h.engine.Similar(r.Context(), params.PostID, params.TopK)
	if err != nil {
		h.respondEngineError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status: "success",
		Data:   result,
		Metadata: models.Metadata{
			Timestamp:   time.Now(),
			QueryTimeMS: time.Since(start).Milliseconds(),
		},
	})
}

// Refresh triggers a background catalog rebuild. 202 when accepted,
// 409 when a build is already running.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	// The build must outlive the request; keep values, drop the cancel.
	err := h.catalog.BuildAsync(context.WithoutCancel(r.Context()))
	if err != nil {
		if errors.Is(err, catalog.ErrBuildInProgress) {
			respondError(w, http.StatusConflict, "BUILD_IN_PROGRESS",
				"A catalog rebuild is already running", nil)
			return
		}
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR",
			"Failed to start catalog rebuild", err)
		return
	}

	respondJSON(w, http.StatusAccepted, &models.APIResponse{
		Status: "success",
		Data: models.RefreshAccepted{
			Message: "Catalog rebuild started",
			Version: h.catalog.Version(),
		},
		Metadata: models.Metadata{Timestamp: time.Now()},
	})
}

// respondEngineError maps engine sentinels to envelope codes.
func (h *Handler) respondEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, recommend.ErrNotReady):
		respondError(w, http.StatusServiceUnavailable, "NOT_READY",
			"Catalog has not completed its first build", nil)
	case errors.Is(err, recommend.ErrNotFound):
		respondError(w, http.StatusNotFound, "NOT_FOUND",
			"Post is not in the catalog", nil)
	case errors.Is(err, fetcher.ErrUpstreamUnavailable):
		respondError(w, http.StatusBadGateway, "UPSTREAM_UNAVAILABLE",
			"Content API is unreachable", err)
	default:
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR",
			"Internal server error", err)
	}
}
