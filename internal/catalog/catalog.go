// Resonate - Personalized Video Feed and Recommendation Service
// Copyright 2026 Resonate Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/resonatelabs/resonate

// Package catalog owns the authoritative in-memory set of posts and
// their embeddings.
//
// The catalog is read-mostly shared state: a build assembles a complete
// immutable snapshot off to the side and installs it with a single
// atomic pointer swap. Readers never block, never see a half-built
// snapshot, and never observe an embedding-less post once Ready reports
// true. Concurrent builds are serialized; a second caller is refused,
// not queued.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/resonatelabs/resonate/internal/embed"
	"github.com/resonatelabs/resonate/internal/logging"
	"github.com/resonatelabs/resonate/internal/metrics"
	"github.com/resonatelabs/resonate/internal/models"
)

// ErrBuildInProgress is returned when Build is called while another
// build is still running.
var ErrBuildInProgress = errors.New("catalog build already in progress")

// PostsFetcher is the slice of the upstream client the catalog needs.
type PostsFetcher interface {
	FetchAllPosts(ctx context.Context) ([]models.Post, error)
}

// Entry pairs a post with its content embedding. Entries are immutable
// once installed; rebuilds replace them wholesale.
type Entry struct {
	Post      models.Post
	Embedding []float32
}

// snapshot is one immutable generation of the catalog.
type snapshot struct {
	entries map[int64]*Entry
	ordered []*Entry // ascending post ID
	version uint64
	builtAt time.Time
}

// Catalog holds the current snapshot behind an atomic pointer.
type Catalog struct {
	fetcher  PostsFetcher
	embedder embed.Embedder

	snap    atomic.Pointer[snapshot]
	buildMu sync.Mutex
	logger  zerolog.Logger
}

// New creates an empty, not-ready catalog. Call Build before serving.
func New(fetcher PostsFetcher, embedder embed.Embedder) *Catalog {
	c := &Catalog{
		fetcher:  fetcher,
		embedder: embedder,
		logger:   logging.With().Str("component", "catalog").Logger(),
	}
	c.snap.Store(&snapshot{entries: map[int64]*Entry{}})
	return c
}

// Build fetches the full post corpus, embeds every post's content text,
// and atomically installs the new snapshot. Any fetch or embedding
// failure aborts the build and leaves the previous snapshot untouched.
//
// At most one build runs at a time; a concurrent call gets
// ErrBuildInProgress instead of queueing duplicate upstream load.
func (c *Catalog) Build(ctx context.Context) error {
	if !c.buildMu.TryLock() {
		metrics.CatalogBuildsTotal.WithLabelValues("conflict").Inc()
		return ErrBuildInProgress
	}
	defer c.buildMu.Unlock()

	return c.buildLocked(ctx)
}

// BuildAsync acquires the build slot immediately and runs the build in
// the background. The ErrBuildInProgress check is synchronous so
// callers can report the conflict before returning.
func (c *Catalog) BuildAsync(ctx context.Context) error {
	if !c.buildMu.TryLock() {
		metrics.CatalogBuildsTotal.WithLabelValues("conflict").Inc()
		return ErrBuildInProgress
	}
	go func() {
		defer c.buildMu.Unlock()
		if err := c.buildLocked(ctx); err != nil {
			c.logger.Error().Err(err).Msg("Background catalog build failed")
		}
	}()
	return nil
}

func (c *Catalog) buildLocked(ctx context.Context) error {
	start := time.Now()
	next, err := c.assemble(ctx)
	if err != nil {
		metrics.RecordCatalogBuild(time.Since(start), 0, 0, err)
		c.logger.Error().Err(err).Msg("Catalog build failed, keeping previous snapshot")
		return err
	}
	metrics.RecordCatalogBuild(time.Since(start), len(next.ordered), next.version, nil)

	c.snap.Store(next)
	c.logger.Info().
		Int("posts", len(next.ordered)).
		Uint64("version", next.version).
		Dur("took", time.Since(start)).
		Msg("Catalog built")
	return nil
}

// assemble builds the next snapshot without touching the current one.
func (c *Catalog) assemble(ctx context.Context) (*snapshot, error) {
	posts, err := c.fetcher.FetchAllPosts(ctx)
	if err != nil {
		return &snapshot{}, fmt.Errorf("fetch posts: %w", err)
	}

	texts := make([]string, len(posts))
	for i := range posts {
		texts[i] = posts[i].ContentText()
	}

	vectors, err := c.embedder.Embed(ctx, texts)
	if err != nil {
		return &snapshot{}, fmt.Errorf("embed %d posts: %w", len(posts), err)
	}
	if len(vectors) != len(posts) {
		return &snapshot{}, fmt.Errorf("embedder returned %d vectors for %d posts", len(vectors), len(posts))
	}

	dims := c.embedder.Dimensions()
	entries := make(map[int64]*Entry, len(posts))
	ordered := make([]*Entry, 0, len(posts))
	for i := range posts {
		if len(vectors[i]) != dims {
			return &snapshot{}, fmt.Errorf("post %d embedding has dimension %d, expected %d",
				posts[i].ID, len(vectors[i]), dims)
		}
		e := &Entry{Post: posts[i], Embedding: vectors[i]}
		entries[posts[i].ID] = e
		ordered = append(ordered, e)
	}

	// Stable order for deterministic downstream iteration.
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].Post.ID < ordered[j].Post.ID
	})

	return &snapshot{
		entries: entries,
		ordered: ordered,
		version: c.snap.Load().version + 1,
		builtAt: time.Now(),
	}, nil
}

// Get returns the entry for a post ID, if cached.
func (c *Catalog) Get(postID int64) (*Entry, bool) {
	e, ok := c.snap.Load().entries[postID]
	return e, ok
}

// All returns every entry in ascending post ID order. The slice is
// shared with the snapshot; callers must not mutate it.
func (c *Catalog) All() []*Entry {
	return c.snap.Load().ordered
}

// Size returns the number of cached posts.
func (c *Catalog) Size() int {
	return len(c.snap.Load().ordered)
}

// Ready reports whether at least one build has completed.
func (c *Catalog) Ready() bool {
	return c.snap.Load().version > 0
}

// Version returns the current snapshot's generation, starting at 1 for
// the first successful build. Jitter seeding keys off it so per-user
// orderings stay stable between rebuilds.
func (c *Catalog) Version() uint64 {
	return c.snap.Load().version
}

// BuiltAt returns when the current snapshot was installed.
func (c *Catalog) BuiltAt() time.Time {
	return c.snap.Load().builtAt
}
