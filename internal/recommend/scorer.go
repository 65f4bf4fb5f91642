// Resonate - Personalized Video Feed and Recommendation Service
// Copyright 2026 Resonate Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/resonatelabs/resonate

package recommend

import (
	"hash/fnv"
	"math"
	"math/rand"
	"sort"
	"strconv"

	"github.com/resonatelabs/resonate/internal/catalog"
	"github.com/resonatelabs/resonate/internal/config"
)

// Scored pairs a post ID with its adjusted score.
type Scored struct {
	PostID int64
	Score  float64
}

// Cosine returns the normalized dot product of a and b, in [-1, 1].
// Zero-norm input scores 0 rather than failing, keeping ranking total.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// popularityBoost is a bounded log transform of view count, so heavily
// viewed posts get a nudge that can never dominate the cosine term.
func popularityBoost(viewCount int64, p config.PopularityConfig) float64 {
	if viewCount < 0 {
		viewCount = 0
	}
	boost := p.Factor * math.Log1p(float64(viewCount))
	if boost > p.Cap {
		boost = p.Cap
	}
	return boost
}

// jitter returns a Gaussian perturbation with the given stddev, seeded
// from (username, postID, catalog version) via FNV-1a. The same user
// sees a stable ordering across requests until the catalog rebuilds;
// different users see different orderings among near-tied scores.
func jitter(username string, postID int64, version uint64, stddev float64) float64 {
	if stddev <= 0 {
		return 0
	}
	h := fnv.New64a()
	_, _ = h.Write([]byte(username))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(strconv.FormatInt(postID, 10)))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(strconv.FormatUint(version, 10)))

	rng := rand.New(rand.NewSource(int64(h.Sum64()))) //nolint:gosec // not cryptographic
	return rng.NormFloat64() * stddev
}

// sortScored orders descending by score, ties broken by ascending post
// ID for determinism.
func sortScored(scored []Scored) {
	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].PostID < scored[j].PostID
	})
}

// ScoreByProfile ranks every non-excluded cached post against the
// profile vector: cosine similarity plus the popularity boost plus the
// user-seeded jitter.
func ScoreByProfile(profile []float32, cat *catalog.Catalog, exclude map[int64]struct{}, username string, cfg config.RecommendConfig) []Scored {
	entries := cat.All()
	version := cat.Version()

	scored := make([]Scored, 0, len(entries))
	for _, e := range entries {
		if _, skip := exclude[e.Post.ID]; skip {
			continue
		}
		score := Cosine(profile, e.Embedding) +
			popularityBoost(e.Post.ViewCount, cfg.Popularity) +
			jitter(username, e.Post.ID, version, cfg.Diversity)
		scored = append(scored, Scored{PostID: e.Post.ID, Score: score})
	}

	sortScored(scored)
	return scored
}

// ScoreBySimilarity ranks cached posts by pure cosine similarity to the
// reference embedding: no popularity boost, no jitter. The reference
// post itself is excluded and at most topK results return.
func ScoreBySimilarity(ref []float32, cat *catalog.Catalog, refID int64, topK int) []Scored {
	entries := cat.All()

	scored := make([]Scored, 0, len(entries))
	for _, e := range entries {
		if e.Post.ID == refID {
			continue
		}
		scored = append(scored, Scored{PostID: e.Post.ID, Score: Cosine(ref, e.Embedding)})
	}

	sortScored(scored)
	if topK > 0 && len(scored) > topK {
		scored = scored[:topK]
	}
	return scored
}

// RankByPopularity orders non-excluded posts by log view count with the
// same jitter policy as profile scoring, so two cold-start users do not
// see byte-identical pages. This is the cold-start path.
func RankByPopularity(cat *catalog.Catalog, exclude map[int64]struct{}, username string, cfg config.RecommendConfig) []Scored {
	entries := cat.All()
	version := cat.Version()

	scored := make([]Scored, 0, len(entries))
	for _, e := range entries {
		if _, skip := exclude[e.Post.ID]; skip {
			continue
		}
		score := math.Log1p(float64(e.Post.ViewCount)) +
			jitter(username, e.Post.ID, version, cfg.Diversity)
		scored = append(scored, Scored{PostID: e.Post.ID, Score: score})
	}

	sortScored(scored)
	return scored
}
