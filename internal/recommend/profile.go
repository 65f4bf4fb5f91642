// Resonate - Personalized Video Feed and Recommendation Service
// Copyright 2026 Resonate Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/resonatelabs/resonate

// Package recommend implements the scoring engine: user profile vectors
// derived from weighted interaction history, cosine ranking against the
// catalog with a bounded popularity boost and user-seeded jitter, and a
// popularity-only fallback for cold-start users.
package recommend

import (
	"github.com/resonatelabs/resonate/internal/catalog"
	"github.com/resonatelabs/resonate/internal/config"
	"github.com/resonatelabs/resonate/internal/models"
)

// Profile is a user's taste summarized as one vector: the weighted mean
// of the embeddings of the posts they interacted with. Ephemeral, built
// per request.
type Profile struct {
	Vector []float32
	// Resolved counts the interactions that matched a cached post.
	Resolved int
	// Seen holds the interacted post IDs, excluded from the feed.
	Seen map[int64]struct{}
}

// interactionWeight maps an interaction to its profile weight.
//
// Ratings arrive on a 0-10 scale and weigh value/10 of a full rating
// weight band of 10, capped there; a record without a positive value
// falls back to the configured RatingFallback.
func interactionWeight(in models.Interaction, w config.WeightsConfig) float64 {
	switch in.Kind {
	case models.KindView:
		return w.View
	case models.KindLike:
		return w.Like
	case models.KindInspire:
		return w.Inspire
	case models.KindRating:
		if in.RatingValue <= 0 {
			return w.RatingFallback
		}
		weight := in.RatingValue / 10
		if weight > 10 {
			weight = 10
		}
		return weight
	default:
		return 0
	}
}

// BuildProfile computes the weighted average embedding over the user's
// interactions. Interactions referencing posts missing from the catalog
// are skipped, never fatal. Returns nil when zero interactions resolve,
// signaling cold start; a zero vector would bias cosine scores toward
// the origin instead.
func BuildProfile(interactions []models.Interaction, cat *catalog.Catalog, w config.WeightsConfig) *Profile {
	var (
		sum         []float32
		totalWeight float64
		resolved    int
		seen        = make(map[int64]struct{}, len(interactions))
	)

	for _, in := range interactions {
		entry, ok := cat.Get(in.PostID)
		if !ok {
			continue
		}

		weight := interactionWeight(in, w)
		if weight <= 0 {
			// A zero-weight signal still marks the post as seen.
			seen[in.PostID] = struct{}{}
			continue
		}

		if sum == nil {
			sum = make([]float32, len(entry.Embedding))
		}
		for i, x := range entry.Embedding {
			sum[i] += float32(weight) * x
		}
		totalWeight += weight
		resolved++
		seen[in.PostID] = struct{}{}
	}

	if resolved == 0 || totalWeight == 0 {
		return nil
	}

	// Divide by total weight, not count: heavy signals pull harder.
	for i := range sum {
		sum[i] = float32(float64(sum[i]) / totalWeight)
	}

	return &Profile{Vector: sum, Resolved: resolved, Seen: seen}
}
