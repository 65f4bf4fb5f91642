// Resonate - Personalized Video Feed and Recommendation Service
// Copyright 2026 Resonate Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/resonatelabs/resonate

package embed

import (
	"context"
	"hash/fnv"
	"math"
	"math/rand"
)

// HashEmbedder produces deterministic pseudo-random embeddings seeded
// from the text. Identical texts always get identical vectors, so ranking
// logic can be exercised without a model server. Used by tests and
// available in development via embedding.provider "hash".
type HashEmbedder struct {
	dims int
}

// NewHashEmbedder creates a deterministic embedder of the given
// dimensionality.
func NewHashEmbedder(dimensions int) *HashEmbedder {
	return &HashEmbedder{dims: dimensions}
}

// Embed generates one L2-normalized vector per text.
func (e *HashEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = e.embedSingle(text)
	}
	return vectors, nil
}

func (e *HashEmbedder) embedSingle(text string) []float32 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(text))
	rng := rand.New(rand.NewSource(int64(h.Sum64()))) //nolint:gosec // not cryptographic

	vec := make([]float32, e.dims)
	var norm float64
	for i := range vec {
		vec[i] = float32(rng.NormFloat64())
		norm += float64(vec[i]) * float64(vec[i])
	}

	norm = math.Sqrt(norm)
	if norm > 0 {
		for i := range vec {
			vec[i] = float32(float64(vec[i]) / norm)
		}
	}
	return vec
}

// Ping always succeeds; there is no backing server.
func (e *HashEmbedder) Ping(_ context.Context) error { return nil }

// Dimensions returns the configured vector dimensionality.
func (e *HashEmbedder) Dimensions() int { return e.dims }

// ModelName identifies the deterministic provider in /health output.
func (e *HashEmbedder) ModelName() string { return "hash-deterministic" }
