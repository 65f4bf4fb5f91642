// Resonate - Personalized Video Feed and Recommendation Service
// Copyright 2026 Resonate Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/resonatelabs/resonate

package supervisor

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/resonatelabs/resonate/internal/catalog"
	"github.com/resonatelabs/resonate/internal/logging"
)

// CatalogBuilder is the slice of the catalog the refresh loop needs.
type CatalogBuilder interface {
	Build(ctx context.Context) error
}

// CatalogRefreshService rebuilds the catalog on a fixed interval so
// new posts and view counts flow into the rankings without restarts.
type CatalogRefreshService struct {
	builder  CatalogBuilder
	interval time.Duration
	logger   zerolog.Logger
	name     string
}

// NewCatalogRefreshService creates the refresh loop. Callers should
// not add the service at all when refresh is disabled (interval <= 0);
// a non-positive interval falls back to one hour as a guard.
func NewCatalogRefreshService(builder CatalogBuilder, interval time.Duration) *CatalogRefreshService {
	if interval <= 0 {
		interval = time.Hour
	}
	return &CatalogRefreshService{
		builder:  builder,
		interval: interval,
		logger:   logging.With().Str("service", "catalog-refresh").Logger(),
		name:     "catalog-refresh",
	}
}

// Serve implements suture.Service. Failed rebuilds are logged and
// retried on the next tick; the previous snapshot keeps serving in the
// meantime. A rebuild already running (e.g. via the refresh endpoint)
// is not an error.
func (s *CatalogRefreshService) Serve(ctx context.Context) error {
	s.logger.Info().Dur("interval", s.interval).Msg("Catalog refresh loop starting")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("Catalog refresh loop stopping")
			return ctx.Err()
		case <-ticker.C:
			err := s.builder.Build(ctx)
			switch {
			case err == nil:
			case errors.Is(err, catalog.ErrBuildInProgress):
				s.logger.Debug().Msg("Skipping scheduled refresh, build already running")
			case errors.Is(err, context.Canceled):
				return ctx.Err()
			default:
				s.logger.Warn().Err(err).Msg("Scheduled catalog refresh failed, keeping previous snapshot")
			}
		}
	}
}

// String identifies the service in suture's event log.
func (s *CatalogRefreshService) String() string {
	return s.name
}
