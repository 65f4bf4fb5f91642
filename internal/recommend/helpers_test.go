// Resonate - Personalized Video Feed and Recommendation Service
// Copyright 2026 Resonate Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/resonatelabs/resonate

package recommend

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/resonatelabs/resonate/internal/catalog"
	"github.com/resonatelabs/resonate/internal/config"
	"github.com/resonatelabs/resonate/internal/models"
)

// stubPostsFetcher serves a fixed corpus to catalog builds.
type stubPostsFetcher struct {
	posts []models.Post
}

func (s *stubPostsFetcher) FetchAllPosts(context.Context) ([]models.Post, error) {
	return s.posts, nil
}

// vecEmbedder maps content text to fixed vectors so tests control the
// geometry exactly.
type vecEmbedder struct {
	dims    int
	vectors map[string][]float32
}

func (v *vecEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if vec, ok := v.vectors[text]; ok {
			out[i] = vec
			continue
		}
		out[i] = make([]float32, v.dims)
	}
	return out, nil
}

func (v *vecEmbedder) Dimensions() int   { return v.dims }
func (v *vecEmbedder) ModelName() string { return "test-vectors" }

// buildCatalog assembles a ready catalog over the given posts and
// text-to-vector mapping.
func buildCatalog(t *testing.T, posts []models.Post, vectors map[string][]float32, dims int) *catalog.Catalog {
	t.Helper()
	cat := catalog.New(&stubPostsFetcher{posts: posts}, &vecEmbedder{dims: dims, vectors: vectors})
	require.NoError(t, cat.Build(context.Background()))
	return cat
}

// testRecommendConfig returns the default scoring knobs used by tests.
func testRecommendConfig() config.RecommendConfig {
	return config.RecommendConfig{
		Weights: config.WeightsConfig{
			View:           1.0,
			Like:           4.0,
			Inspire:        5.0,
			RatingFallback: 2.0,
		},
		Popularity:      config.PopularityConfig{Factor: 0.05, Cap: 0.5},
		Diversity:       0.1,
		DefaultPageSize: 20,
		MaxPageSize:     100,
		SimilarTopK:     10,
	}
}

// stubInteractions serves fixed interactions, or an error.
type stubInteractions struct {
	interactions []models.Interaction
	err          error
}

func (s *stubInteractions) FetchUserInteractions(context.Context, string) ([]models.Interaction, error) {
	return s.interactions, s.err
}
