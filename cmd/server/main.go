// Resonate - Personalized Video Feed and Recommendation Service
// Copyright 2026 Resonate Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/resonatelabs/resonate

// Command server runs the Resonate feed service: it builds the post
// catalog from the upstream content API, embeds every post, and serves
// personalized feed and similarity endpoints over HTTP.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/resonatelabs/resonate/internal/api"
	"github.com/resonatelabs/resonate/internal/catalog"
	"github.com/resonatelabs/resonate/internal/config"
	"github.com/resonatelabs/resonate/internal/embed"
	"github.com/resonatelabs/resonate/internal/fetcher"
	"github.com/resonatelabs/resonate/internal/logging"
	"github.com/resonatelabs/resonate/internal/recommend"
	"github.com/resonatelabs/resonate/internal/supervisor"
)

func main() {
	if err := run(); err != nil {
		logging.Fatal().Err(err).Msg("Service failed")
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
	})
	logging.Info().
		Str("addr", cfg.Server.Addr()).
		Str("embedding_provider", cfg.Embedding.Provider).
		Msg("Starting Resonate")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	embedder, closeEmbedder, err := buildEmbedder(ctx, cfg.Embedding)
	if err != nil {
		return fmt.Errorf("init embedder: %w", err)
	}
	defer closeEmbedder()

	client := fetcher.NewBreakerClient(fetcher.NewClient(cfg.Upstream))
	cat := catalog.New(client, embedder)

	// The first build blocks startup readiness but not the listener;
	// the API answers NOT_READY until it lands.
	go func() {
		buildCtx, cancel := context.WithTimeout(ctx, 10*time.Minute)
		defer cancel()
		if err := cat.Build(buildCtx); err != nil {
			logging.Error().Err(err).Msg("Initial catalog build failed, retrying on refresh schedule")
		}
	}()

	engine := recommend.NewEngine(client, cat, cfg.Recommend)
	handler := api.NewHandler(engine, cat, embedder, cfg.Recommend)
	middleware := api.NewMiddleware(cfg.Server.RateLimitReqs, cfg.Server.RateLimitWindow)
	router := api.NewRouter(handler, middleware)

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	tree.AddAPIService(supervisor.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))
	if cfg.Catalog.RefreshInterval > 0 {
		tree.AddDataService(supervisor.NewCatalogRefreshService(cat, cfg.Catalog.RefreshInterval))
	} else {
		logging.Info().Msg("Periodic catalog refresh disabled")
	}

	logging.Info().Str("addr", cfg.Server.Addr()).Msg("HTTP server listening")
	err = tree.Serve(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("supervisor: %w", err)
	}

	logging.Info().Msg("Shutdown complete")
	return nil
}

// buildEmbedder constructs the configured provider, wraps it in the
// persistent cache when enabled, and verifies it responds.
func buildEmbedder(ctx context.Context, cfg config.EmbeddingConfig) (embed.Embedder, func(), error) {
	var embedder embed.Embedder
	switch cfg.Provider {
	case "hash":
		embedder = embed.NewHashEmbedder(cfg.Dimensions)
	case "http":
		embedder = embed.NewHTTPEmbedder(embed.HTTPConfig{
			BaseURL:    cfg.BaseURL,
			ModelName:  cfg.ModelName,
			Dimensions: cfg.Dimensions,
			BatchSize:  cfg.BatchSize,
			Timeout:    cfg.Timeout,
		})
	default:
		return nil, nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}

	closer := func() {}
	if cfg.CachePath != "" {
		caching, err := embed.NewCachingEmbedder(embedder, cfg.CachePath)
		if err != nil {
			return nil, nil, fmt.Errorf("open embedding cache at %s: %w", cfg.CachePath, err)
		}
		embedder = caching
		closer = func() {
			if err := caching.Close(); err != nil {
				logging.Warn().Err(err).Msg("Closing embedding cache failed")
			}
		}
	}

	if p, ok := embedder.(embed.Pinger); ok {
		pingCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		if err := p.Ping(pingCtx); err != nil {
			closer()
			return nil, nil, fmt.Errorf("embedding provider unreachable: %w", err)
		}
	}

	logging.Info().
		Str("model", embedder.ModelName()).
		Int("dimensions", embedder.Dimensions()).
		Bool("cache", cfg.CachePath != "").
		Msg("Embedding provider ready")
	return embedder, closer, nil
}
