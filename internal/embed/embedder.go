// Resonate - Personalized Video Feed and Recommendation Service
// Copyright 2026 Resonate Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/resonatelabs/resonate

// Package embed provides embedding generation for post content text.
//
// The Embedder interface abstracts over providers: an HTTP client for a
// text-embeddings-inference style server (production) and a deterministic
// hash-seeded embedder (development and tests). A badger-backed
// content-addressed cache can wrap either.
package embed

import "context"

// Embedder generates vector embeddings for text.
//
// All providers are batch-first; for a single text, pass a one-element
// slice. Vectors have fixed dimensionality Dimensions() and are never
// mutated by callers.
type Embedder interface {
	// Embed creates one embedding per input text, in input order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the dimensionality of the produced vectors.
	// For example, all-MiniLM-L6-v2 produces 384-dimensional vectors.
	Dimensions() int

	// ModelName returns the model identifier, for logging and /health.
	ModelName() string
}

// Pinger is implemented by providers that can verify their backing model
// is reachable. Startup treats a ping failure as fatal.
type Pinger interface {
	Ping(ctx context.Context) error
}
