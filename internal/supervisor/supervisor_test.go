// Resonate - Personalized Video Feed and Recommendation Service
// Copyright 2026 Resonate Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/resonatelabs/resonate

package supervisor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resonatelabs/resonate/internal/catalog"
)

// mockServer implements HTTPServer with controllable behavior.
type mockServer struct {
	serveErr    error
	stopped     chan struct{}
	shutdownErr error
	shutdowns   atomic.Int32
}

func newMockServer() *mockServer {
	return &mockServer{stopped: make(chan struct{})}
}

func (m *mockServer) ListenAndServe() error {
	if m.serveErr != nil {
		return m.serveErr
	}
	<-m.stopped
	return nil
}

func (m *mockServer) Shutdown(context.Context) error {
	m.shutdowns.Add(1)
	close(m.stopped)
	return m.shutdownErr
}

func TestHTTPServerServiceGracefulShutdown(t *testing.T) {
	srv := newMockServer()
	svc := NewHTTPServerService(srv, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, int32(1), srv.shutdowns.Load())
	case <-time.After(2 * time.Second):
		t.Fatal("service did not stop after cancellation")
	}
}

func TestHTTPServerServiceStartupFailure(t *testing.T) {
	srv := newMockServer()
	srv.serveErr = errors.New("bind: address already in use")
	svc := NewHTTPServerService(srv, time.Second)

	err := svc.Serve(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "address already in use")
}

func TestHTTPServerServiceShutdownFailure(t *testing.T) {
	srv := newMockServer()
	srv.shutdownErr = errors.New("connections still draining")
	svc := NewHTTPServerService(srv, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := svc.Serve(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "shutdown failed")
}

// countingBuilder counts Build calls and can fail or report a build in
// progress.
type countingBuilder struct {
	builds atomic.Int32
	err    error
}

func (b *countingBuilder) Build(context.Context) error {
	b.builds.Add(1)
	return b.err
}

func TestCatalogRefreshServiceTicks(t *testing.T) {
	builder := &countingBuilder{}
	svc := NewCatalogRefreshService(builder, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	require.Eventually(t, func() bool {
		return builder.builds.Load() >= 3
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("refresh loop did not stop")
	}
}

func TestCatalogRefreshServiceSurvivesFailures(t *testing.T) {
	builder := &countingBuilder{err: fmt.Errorf("upstream down")}
	svc := NewCatalogRefreshService(builder, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	// Failures must not end the loop.
	require.Eventually(t, func() bool {
		return builder.builds.Load() >= 2
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	<-done
}

func TestCatalogRefreshServiceToleratesConcurrentBuild(t *testing.T) {
	builder := &countingBuilder{err: catalog.ErrBuildInProgress}
	svc := NewCatalogRefreshService(builder, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	require.Eventually(t, func() bool {
		return builder.builds.Load() >= 2
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	<-done
}

func TestTreeRunsServices(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tree := NewTree(logger, DefaultTreeConfig())

	builder := &countingBuilder{}
	tree.AddDataService(NewCatalogRefreshService(builder, 10*time.Millisecond))

	srv := newMockServer()
	tree.AddAPIService(NewHTTPServerService(srv, time.Second))

	ctx, cancel := context.WithCancel(context.Background())
	errCh := tree.ServeBackground(ctx)

	require.Eventually(t, func() bool {
		return builder.builds.Load() >= 1
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(3 * time.Second):
		t.Fatal("tree did not stop after cancellation")
	}
}

func TestDefaultTreeConfig(t *testing.T) {
	cfg := DefaultTreeConfig()
	assert.Equal(t, 5.0, cfg.FailureThreshold)
	assert.Equal(t, 30.0, cfg.FailureDecay)
	assert.Equal(t, 15*time.Second, cfg.FailureBackoff)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
}
