// Resonate - Personalized Video Feed and Recommendation Service
// Copyright 2026 Resonate Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/resonatelabs/resonate

package recommend

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/resonatelabs/resonate/internal/catalog"
	"github.com/resonatelabs/resonate/internal/config"
	"github.com/resonatelabs/resonate/internal/logging"
	"github.com/resonatelabs/resonate/internal/metrics"
	"github.com/resonatelabs/resonate/internal/models"
)

// InteractionsFetcher is the slice of the upstream client the engine
// needs per request.
type InteractionsFetcher interface {
	FetchUserInteractions(ctx context.Context, username string) ([]models.Interaction, error)
}

// Engine orchestrates a feed request: fetch interactions, build the
// profile, score (or fall back to popularity), filter, paginate.
type Engine struct {
	fetcher InteractionsFetcher
	catalog *catalog.Catalog
	cfg     config.RecommendConfig
	logger  zerolog.Logger
}

// NewEngine wires the engine to its collaborators.
func NewEngine(fetcher InteractionsFetcher, cat *catalog.Catalog, cfg config.RecommendConfig) *Engine {
	return &Engine{
		fetcher: fetcher,
		catalog: cat,
		cfg:     cfg,
		logger:  logging.With().Str("component", "engine").Logger(),
	}
}

// FeedRequest is a validated feed query. Zero Page or PageSize take the
// configured defaults.
type FeedRequest struct {
	Username    string
	ProjectCode string
	Page        int
	PageSize    int
}

// Feed produces one ranked page for the user. Cold-start users (no
// resolvable interactions) get the popularity ranking, never an error.
// An unreachable upstream surfaces untouched for the handler to map.
func (e *Engine) Feed(ctx context.Context, req FeedRequest) (*models.FeedPage, error) {
	if !e.catalog.Ready() {
		return nil, ErrNotReady
	}

	start := time.Now()
	defer func() {
		metrics.FeedDuration.Observe(time.Since(start).Seconds())
	}()

	page := req.Page
	if page < 1 {
		page = 1
	}
	pageSize := req.PageSize
	if pageSize < 1 {
		pageSize = e.cfg.DefaultPageSize
	}

	interactions, err := e.fetcher.FetchUserInteractions(ctx, req.Username)
	if err != nil {
		return nil, err
	}

	profile := BuildProfile(interactions, e.catalog, e.cfg.Weights)

	var (
		scored    []Scored
		coldStart bool
	)
	if profile == nil {
		coldStart = true
		metrics.ColdStartTotal.Inc()
		scored = RankByPopularity(e.catalog, nil, req.Username, e.cfg)
	} else {
		scored = ScoreByProfile(profile.Vector, e.catalog, profile.Seen, req.Username, e.cfg)
	}

	// Filter before slicing so totals reflect the filtered set.
	if req.ProjectCode != "" {
		scored = e.filterByProjectCode(scored, req.ProjectCode)
	}

	pageScored := paginate(scored, page, pageSize)

	e.logger.Debug().
		Str("username", req.Username).
		Bool("cold_start", coldStart).
		Int("total", len(scored)).
		Int("page", page).
		Msg("Feed served")

	return &models.FeedPage{
		Username:  req.Username,
		Page:      page,
		PageSize:  pageSize,
		Total:     len(scored),
		ColdStart: coldStart,
		Posts:     e.resolve(pageScored),
	}, nil
}

// Similar returns the topK most cosine-similar posts to the referenced
// post. ErrNotFound when the post is not cached.
func (e *Engine) Similar(_ context.Context, postID int64, topK int) (*models.SimilarResult, error) {
	if !e.catalog.Ready() {
		return nil, ErrNotReady
	}

	entry, ok := e.catalog.Get(postID)
	if !ok {
		return nil, ErrNotFound
	}

	if topK < 1 {
		topK = e.cfg.SimilarTopK
	}

	scored := ScoreBySimilarity(entry.Embedding, e.catalog, postID, topK)
	return &models.SimilarResult{
		PostID: postID,
		TopK:   topK,
		Posts:  e.resolve(scored),
	}, nil
}

// filterByProjectCode keeps posts whose topic carries the project code.
func (e *Engine) filterByProjectCode(scored []Scored, projectCode string) []Scored {
	filtered := scored[:0:0]
	for _, s := range scored {
		entry, ok := e.catalog.Get(s.PostID)
		if !ok {
			continue
		}
		if strings.EqualFold(entry.Post.Topic.ProjectCode, projectCode) {
			filtered = append(filtered, s)
		}
	}
	return filtered
}

// paginate slices one 1-indexed page out of the ranked list. Pages past
// the end are empty, not errors.
func paginate(scored []Scored, page, pageSize int) []Scored {
	start := (page - 1) * pageSize
	if start >= len(scored) {
		return nil
	}
	end := start + pageSize
	if end > len(scored) {
		end = len(scored)
	}
	return scored[start:end]
}

// resolve maps ranked IDs back to full posts with their scores.
func (e *Engine) resolve(scored []Scored) []models.ScoredPost {
	posts := make([]models.ScoredPost, 0, len(scored))
	for _, s := range scored {
		entry, ok := e.catalog.Get(s.PostID)
		if !ok {
			// The snapshot is immutable, so a scored ID always resolves;
			// guard anyway.
			continue
		}
		posts = append(posts, models.ScoredPost{Post: entry.Post, Score: s.Score})
	}
	return posts
}
