// Resonate - Personalized Video Feed and Recommendation Service
// Copyright 2026 Resonate Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/resonatelabs/resonate

package recommend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resonatelabs/resonate/internal/models"
)

func TestInteractionWeight(t *testing.T) {
	w := testRecommendConfig().Weights

	tests := []struct {
		name string
		in   models.Interaction
		want float64
	}{
		{"view", models.Interaction{Kind: models.KindView}, 1.0},
		{"like", models.Interaction{Kind: models.KindLike}, 4.0},
		{"inspire", models.Interaction{Kind: models.KindInspire}, 5.0},
		{"rating with value", models.Interaction{Kind: models.KindRating, RatingValue: 8}, 0.8},
		{"rating without value falls back", models.Interaction{Kind: models.KindRating}, 2.0},
		{"negative rating falls back", models.Interaction{Kind: models.KindRating, RatingValue: -3}, 2.0},
		{"unknown kind", models.Interaction{Kind: "share"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, interactionWeight(tt.in, w), 1e-12)
		})
	}
}

func TestBuildProfileWeightedAverage(t *testing.T) {
	posts := []models.Post{
		{ID: 1, Title: "x"},
		{ID: 2, Title: "y"},
	}
	vectors := map[string][]float32{
		"x": {1, 0},
		"y": {0, 1},
	}
	cat := buildCatalog(t, posts, vectors, 2)
	w := testRecommendConfig().Weights

	// view(1.0) on post 1 and like(4.0) on post 2:
	// sum = (1, 0) + (0, 4); total weight 5 -> (0.2, 0.8)
	interactions := []models.Interaction{
		{PostID: 1, Kind: models.KindView},
		{PostID: 2, Kind: models.KindLike},
	}

	p := BuildProfile(interactions, cat, w)
	require.NotNil(t, p)
	assert.Equal(t, 2, p.Resolved)
	assert.InDelta(t, 0.2, float64(p.Vector[0]), 1e-6)
	assert.InDelta(t, 0.8, float64(p.Vector[1]), 1e-6)

	_, seen1 := p.Seen[1]
	_, seen2 := p.Seen[2]
	assert.True(t, seen1)
	assert.True(t, seen2)
}

func TestBuildProfileSkipsUnknownPosts(t *testing.T) {
	posts := []models.Post{{ID: 1, Title: "x"}}
	cat := buildCatalog(t, posts, map[string][]float32{"x": {1, 0}}, 2)
	w := testRecommendConfig().Weights

	interactions := []models.Interaction{
		{PostID: 1, Kind: models.KindView},
		{PostID: 999, Kind: models.KindInspire}, // not cached; skipped, not fatal
	}

	p := BuildProfile(interactions, cat, w)
	require.NotNil(t, p)
	assert.Equal(t, 1, p.Resolved)
	_, seenUnknown := p.Seen[999]
	assert.False(t, seenUnknown)
}

func TestBuildProfileNilIffNothingResolves(t *testing.T) {
	posts := []models.Post{{ID: 1, Title: "x"}}
	cat := buildCatalog(t, posts, map[string][]float32{"x": {1, 0}}, 2)
	w := testRecommendConfig().Weights

	t.Run("no interactions", func(t *testing.T) {
		assert.Nil(t, BuildProfile(nil, cat, w))
	})

	t.Run("only unknown posts", func(t *testing.T) {
		interactions := []models.Interaction{
			{PostID: 50, Kind: models.KindLike},
			{PostID: 51, Kind: models.KindView},
		}
		assert.Nil(t, BuildProfile(interactions, cat, w))
	})

	t.Run("one resolvable interaction suffices", func(t *testing.T) {
		interactions := []models.Interaction{
			{PostID: 50, Kind: models.KindLike},
			{PostID: 1, Kind: models.KindView},
		}
		assert.NotNil(t, BuildProfile(interactions, cat, w))
	})
}

func TestBuildProfileDividesByWeightNotCount(t *testing.T) {
	posts := []models.Post{{ID: 1, Title: "x"}}
	cat := buildCatalog(t, posts, map[string][]float32{"x": {1, 0}}, 2)
	w := testRecommendConfig().Weights

	// A single inspire(5.0): weighted mean must be the embedding itself,
	// not embedding*5.
	p := BuildProfile([]models.Interaction{{PostID: 1, Kind: models.KindInspire}}, cat, w)
	require.NotNil(t, p)
	assert.InDelta(t, 1.0, float64(p.Vector[0]), 1e-6)
	assert.InDelta(t, 0.0, float64(p.Vector[1]), 1e-6)
}
