// Resonate - Personalized Video Feed and Recommendation Service
// Copyright 2026 Resonate Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/resonatelabs/resonate

package embed

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog"

	"github.com/resonatelabs/resonate/internal/logging"
	"github.com/resonatelabs/resonate/internal/metrics"
)

// CachingEmbedder wraps an Embedder with a persistent content-addressed
// cache. Keys are sha256(model + text), so a model change never replays
// stale vectors. Only cache misses reach the inner embedder; hits are
// byte-exact replays of earlier answers.
//
// Catalog rebuilds embed the whole corpus; with a warm cache only new or
// edited posts cost an inference call.
type CachingEmbedder struct {
	inner  Embedder
	db     *badger.DB
	logger zerolog.Logger
}

// NewCachingEmbedder opens (or creates) the badger store at path and
// wraps inner with it. The caller owns Close.
func NewCachingEmbedder(inner Embedder, path string) (*CachingEmbedder, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open embedding cache at %s: %w", path, err)
	}
	return &CachingEmbedder{
		inner:  inner,
		db:     db,
		logger: logging.With().Str("component", "embed_cache").Logger(),
	}, nil
}

// Embed serves each text from the cache when possible and batches the
// misses through the inner embedder. Result order matches input order.
func (c *CachingEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	missIdx := make([]int, 0)
	missTexts := make([]string, 0)

	for i, text := range texts {
		vec, err := c.get(c.key(text))
		switch {
		case err == nil:
			vectors[i] = vec
			metrics.EmbedCacheHits.Inc()
		case errors.Is(err, badger.ErrKeyNotFound):
			missIdx = append(missIdx, i)
			missTexts = append(missTexts, text)
			metrics.EmbedCacheMisses.Inc()
		default:
			return nil, fmt.Errorf("embedding cache read: %w", err)
		}
	}

	if len(missTexts) == 0 {
		return vectors, nil
	}

	fresh, err := c.inner.Embed(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	if len(fresh) != len(missTexts) {
		return nil, fmt.Errorf("inner embedder returned %d vectors for %d texts", len(fresh), len(missTexts))
	}

	for j, i := range missIdx {
		vectors[i] = fresh[j]
		if err := c.put(c.key(texts[i]), fresh[j]); err != nil {
			// A failed write only costs a future cache miss.
			c.logger.Warn().Err(err).Msg("Failed to persist embedding")
		}
	}

	c.logger.Debug().
		Int("texts", len(texts)).
		Int("misses", len(missTexts)).
		Msg("Embedding batch served")

	return vectors, nil
}

// key content-addresses a text under the inner embedder's model.
func (c *CachingEmbedder) key(text string) []byte {
	h := sha256.New()
	h.Write([]byte(c.inner.ModelName()))
	h.Write([]byte{0})
	h.Write([]byte(text))
	return h.Sum(nil)
}

func (c *CachingEmbedder) get(key []byte) ([]float32, error) {
	var vec []float32
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			vec = decodeVector(val)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return vec, nil
}

func (c *CachingEmbedder) put(key []byte, vec []float32) error {
	return c.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, encodeVector(vec))
	})
}

// Ping delegates to the inner embedder when it supports pinging.
func (c *CachingEmbedder) Ping(ctx context.Context) error {
	if p, ok := c.inner.(Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

// Dimensions returns the inner embedder's vector dimensionality.
func (c *CachingEmbedder) Dimensions() int { return c.inner.Dimensions() }

// ModelName returns the inner embedder's model identifier.
func (c *CachingEmbedder) ModelName() string { return c.inner.ModelName() }

// Close releases the badger store.
func (c *CachingEmbedder) Close() error {
	return c.db.Close()
}

// encodeVector packs a vector as little-endian float32 bits.
func encodeVector(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, f := range vec {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(f))
	}
	return buf
}

// decodeVector unpacks encodeVector's output.
func decodeVector(buf []byte) []float32 {
	vec := make([]float32, len(buf)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[4*i:]))
	}
	return vec
}
