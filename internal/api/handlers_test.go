// Resonate - Personalized Video Feed and Recommendation Service
// Copyright 2026 Resonate Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/resonatelabs/resonate

package api

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resonatelabs/resonate/internal/catalog"
	"github.com/resonatelabs/resonate/internal/config"
	"github.com/resonatelabs/resonate/internal/embed"
	"github.com/resonatelabs/resonate/internal/fetcher"
	"github.com/resonatelabs/resonate/internal/models"
	"github.com/resonatelabs/resonate/internal/recommend"
)

// stubPostsFetcher serves a fixed corpus to catalog builds.
type stubPostsFetcher struct {
	posts []models.Post
}

func (s *stubPostsFetcher) FetchAllPosts(context.Context) ([]models.Post, error) {
	return s.posts, nil
}

// blockingPostsFetcher parks catalog builds until released.
type blockingPostsFetcher struct {
	started  chan struct{}
	release  chan struct{}
	delegate stubPostsFetcher
}

func (b *blockingPostsFetcher) FetchAllPosts(ctx context.Context) ([]models.Post, error) {
	close(b.started)
	<-b.release
	return b.delegate.FetchAllPosts(ctx)
}

// stubInteractions serves fixed interactions, or an error.
type stubInteractions struct {
	interactions []models.Interaction
	err          error
}

func (s *stubInteractions) FetchUserInteractions(context.Context, string) ([]models.Interaction, error) {
	return s.interactions, s.err
}

func testPosts(n int) []models.Post {
	posts := make([]models.Post, n)
	for i := range posts {
		posts[i] = models.Post{
			ID:        int64(i + 1),
			Title:     fmt.Sprintf("post-%d", i+1),
			ViewCount: int64((n - i) * 10),
		}
	}
	return posts
}

func testRecommendConfig() config.RecommendConfig {
	return config.RecommendConfig{
		Weights: config.WeightsConfig{
			View:           1.0,
			Like:           4.0,
			Inspire:        5.0,
			RatingFallback: 2.0,
		},
		Popularity:      config.PopularityConfig{Factor: 0.05, Cap: 0.5},
		Diversity:       0.1,
		DefaultPageSize: 20,
		MaxPageSize:     100,
		SimilarTopK:     10,
	}
}

// newTestServer wires a full router over a ready catalog and a stub
// interactions fetcher. Rate limiting is disabled unless reqs > 0.
func newTestServer(t *testing.T, posts []models.Post, interactions *stubInteractions, rateLimitReqs int) (*httptest.Server, *catalog.Catalog) {
	t.Helper()

	embedder := embed.NewHashEmbedder(16)
	cat := catalog.New(&stubPostsFetcher{posts: posts}, embedder)
	if len(posts) > 0 {
		require.NoError(t, cat.Build(context.Background()))
	}

	cfg := testRecommendConfig()
	engine := recommend.NewEngine(interactions, cat, cfg)
	handler := NewHandler(engine, cat, embedder, cfg)
	router := NewRouter(handler, NewMiddleware(rateLimitReqs, time.Minute))

	srv := httptest.NewServer(router.Setup())
	t.Cleanup(srv.Close)
	return srv, cat
}

func getEnvelope(t *testing.T, url string) (int, models.APIResponse) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()

	var envelope models.APIResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	return resp.StatusCode, envelope
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t, testPosts(3), &stubInteractions{}, 0)

	status, envelope := getEnvelope(t, srv.URL+"/health")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "success", envelope.Status)

	data, err := json.Marshal(envelope.Data)
	require.NoError(t, err)
	var health models.HealthStatus
	require.NoError(t, json.Unmarshal(data, &health))

	assert.True(t, health.Ready)
	assert.Equal(t, 3, health.PostsCached)
	assert.True(t, health.ModelLoaded)
	assert.Equal(t, "hash-deterministic", health.ModelName)
}

func TestHealthReadyProbe(t *testing.T) {
	t.Run("not ready before first build", func(t *testing.T) {
		srv, _ := newTestServer(t, nil, &stubInteractions{}, 0)
		status, envelope := getEnvelope(t, srv.URL+"/health/ready")
		assert.Equal(t, http.StatusServiceUnavailable, status)
		require.NotNil(t, envelope.Error)
		assert.Equal(t, "NOT_READY", envelope.Error.Code)
	})

	t.Run("ready after build", func(t *testing.T) {
		srv, _ := newTestServer(t, testPosts(2), &stubInteractions{}, 0)
		status, _ := getEnvelope(t, srv.URL+"/health/ready")
		assert.Equal(t, http.StatusOK, status)
	})

	t.Run("live is always up", func(t *testing.T) {
		srv, _ := newTestServer(t, nil, &stubInteractions{}, 0)
		status, _ := getEnvelope(t, srv.URL+"/health/live")
		assert.Equal(t, http.StatusOK, status)
	})
}

func TestFeedEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, testPosts(45), &stubInteractions{}, 0)

	status, envelope := getEnvelope(t, srv.URL+"/api/v1/feed?username=maya&page=1&page_size=20")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "success", envelope.Status)

	data, err := json.Marshal(envelope.Data)
	require.NoError(t, err)
	var page models.FeedPage
	require.NoError(t, json.Unmarshal(data, &page))

	assert.Equal(t, "maya", page.Username)
	assert.Equal(t, 45, page.Total)
	assert.Len(t, page.Posts, 20)
	assert.True(t, page.ColdStart, "no interactions means cold start")
}

func TestFeedEndpointValidation(t *testing.T) {
	srv, _ := newTestServer(t, testPosts(5), &stubInteractions{}, 0)

	tests := []struct {
		name string
		url  string
	}{
		{"missing username", "/api/v1/feed"},
		{"zero page", "/api/v1/feed?username=maya&page=0"},
		{"negative page size", "/api/v1/feed?username=maya&page_size=-1"},
		{"page size over the ceiling", "/api/v1/feed?username=maya&page_size=500"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, envelope := getEnvelope(t, srv.URL+tt.url)
			assert.Equal(t, http.StatusBadRequest, status)
			require.NotNil(t, envelope.Error)
			assert.Equal(t, "VALIDATION_ERROR", envelope.Error.Code)
		})
	}
}

func TestFeedEndpointNotReady(t *testing.T) {
	srv, _ := newTestServer(t, nil, &stubInteractions{}, 0)

	status, envelope := getEnvelope(t, srv.URL+"/api/v1/feed?username=maya")
	assert.Equal(t, http.StatusServiceUnavailable, status)
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "NOT_READY", envelope.Error.Code)
}

func TestFeedEndpointUpstreamDown(t *testing.T) {
	srv, _ := newTestServer(t, testPosts(5), &stubInteractions{
		err: fmt.Errorf("%w: 3 attempts failed", fetcher.ErrUpstreamUnavailable),
	}, 0)

	status, envelope := getEnvelope(t, srv.URL+"/api/v1/feed?username=maya")
	assert.Equal(t, http.StatusBadGateway, status)
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "UPSTREAM_UNAVAILABLE", envelope.Error.Code)
}

func TestSimilarEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, testPosts(8), &stubInteractions{}, 0)

	status, envelope := getEnvelope(t, srv.URL+"/api/v1/similar/3?top_k=5")
	assert.Equal(t, http.StatusOK, status)

	data, err := json.Marshal(envelope.Data)
	require.NoError(t, err)
	var result models.SimilarResult
	require.NoError(t, json.Unmarshal(data, &result))

	assert.Equal(t, int64(3), result.PostID)
	assert.Len(t, result.Posts, 5)
	for _, sp := range result.Posts {
		assert.NotEqual(t, int64(3), sp.Post.ID)
	}
}

func TestSimilarEndpointErrors(t *testing.T) {
	srv, _ := newTestServer(t, testPosts(3), &stubInteractions{}, 0)

	t.Run("unknown post", func(t *testing.T) {
		status, envelope := getEnvelope(t, srv.URL+"/api/v1/similar/999")
		assert.Equal(t, http.StatusNotFound, status)
		require.NotNil(t, envelope.Error)
		assert.Equal(t, "NOT_FOUND", envelope.Error.Code)
	})

	t.Run("non-numeric post id", func(t *testing.T) {
		status, envelope := getEnvelope(t, srv.URL+"/api/v1/similar/abc")
		assert.Equal(t, http.StatusBadRequest, status)
		require.NotNil(t, envelope.Error)
		assert.Equal(t, "VALIDATION_ERROR", envelope.Error.Code)
	})

	t.Run("negative top_k", func(t *testing.T) {
		status, envelope := getEnvelope(t, srv.URL+"/api/v1/similar/1?top_k=-2")
		assert.Equal(t, http.StatusBadRequest, status)
		require.NotNil(t, envelope.Error)
		assert.Equal(t, "VALIDATION_ERROR", envelope.Error.Code)
	})
}

func TestRefreshEndpoint(t *testing.T) {
	srv, cat := newTestServer(t, testPosts(3), &stubInteractions{}, 0)
	require.Equal(t, uint64(1), cat.Version())

	resp, err := http.Post(srv.URL+"/api/v1/catalog/refresh", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	// The build is asynchronous; wait for the version bump.
	require.Eventually(t, func() bool {
		return cat.Version() == 2
	}, 2*time.Second, 10*time.Millisecond)
}

func TestRefreshEndpointConflict(t *testing.T) {
	blocking := &blockingPostsFetcher{
		started:  make(chan struct{}),
		release:  make(chan struct{}),
		delegate: stubPostsFetcher{posts: testPosts(2)},
	}
	embedder := embed.NewHashEmbedder(16)
	cat := catalog.New(blocking, embedder)

	cfg := testRecommendConfig()
	engine := recommend.NewEngine(&stubInteractions{}, cat, cfg)
	handler := NewHandler(engine, cat, embedder, cfg)
	srv := httptest.NewServer(NewRouter(handler, NewMiddleware(0, time.Minute)).Setup())
	t.Cleanup(srv.Close)

	first, err := http.Post(srv.URL+"/api/v1/catalog/refresh", "application/json", nil)
	require.NoError(t, err)
	first.Body.Close()
	assert.Equal(t, http.StatusAccepted, first.StatusCode)

	<-blocking.started // the background build now holds the slot

	second, err := http.Post(srv.URL+"/api/v1/catalog/refresh", "application/json", nil)
	require.NoError(t, err)
	defer second.Body.Close()
	assert.Equal(t, http.StatusConflict, second.StatusCode)

	var envelope models.APIResponse
	require.NoError(t, json.NewDecoder(second.Body).Decode(&envelope))
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "BUILD_IN_PROGRESS", envelope.Error.Code)

	close(blocking.release)
	require.Eventually(t, func() bool { return cat.Ready() }, 2*time.Second, 10*time.Millisecond)
}

func TestRequestIDEcho(t *testing.T) {
	srv, _ := newTestServer(t, testPosts(2), &stubInteractions{}, 0)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/health/live", nil)
	require.NoError(t, err)
	req.Header.Set("X-Request-ID", "trace-123")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "trace-123", resp.Header.Get("X-Request-ID"))

	// A missing request ID gets generated.
	resp2, err := http.Get(srv.URL + "/health/live")
	require.NoError(t, err)
	resp2.Body.Close()
	assert.NotEmpty(t, resp2.Header.Get("X-Request-ID"))
}

func TestRateLimitEnvelope(t *testing.T) {
	srv, _ := newTestServer(t, testPosts(2), &stubInteractions{}, 1)

	first, err := http.Get(srv.URL + "/api/v1/feed?username=maya")
	require.NoError(t, err)
	first.Body.Close()
	require.Equal(t, http.StatusOK, first.StatusCode)

	second, err := http.Get(srv.URL + "/api/v1/feed?username=maya")
	require.NoError(t, err)
	defer second.Body.Close()
	assert.Equal(t, http.StatusTooManyRequests, second.StatusCode)

	var envelope models.APIResponse
	require.NoError(t, json.NewDecoder(second.Body).Decode(&envelope))
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "RATE_LIMIT_EXCEEDED", envelope.Error.Code)

	// Health endpoints sit outside the limiter.
	health, err := http.Get(srv.URL + "/health/live")
	require.NoError(t, err)
	health.Body.Close()
	assert.Equal(t, http.StatusOK, health.StatusCode)
}
