// Resonate - Personalized Video Feed and Recommendation Service
// Copyright 2026 Resonate Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/resonatelabs/resonate

package embed

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/resonatelabs/resonate/internal/logging"
	"github.com/resonatelabs/resonate/internal/metrics"
)

// HTTPEmbedder talks to a text-embeddings-inference style server
// (POST {base}/embed with {"inputs": [...]}). The server loads the model
// once; this client only moves text and vectors.
type HTTPEmbedder struct {
	baseURL   string
	model     string
	dims      int
	batchSize int
	client    *http.Client
	logger    zerolog.Logger
}

// HTTPConfig configures an HTTPEmbedder.
type HTTPConfig struct {
	BaseURL    string
	ModelName  string
	Dimensions int
	BatchSize  int
	Timeout    time.Duration
}

// NewHTTPEmbedder creates an embedding client for the given inference
// server. It does not contact the server; call Ping before serving.
func NewHTTPEmbedder(cfg HTTPConfig) *HTTPEmbedder {
	if cfg.BatchSize < 1 {
		cfg.BatchSize = 32
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &HTTPEmbedder{
		baseURL:   cfg.BaseURL,
		model:     cfg.ModelName,
		dims:      cfg.Dimensions,
		batchSize: cfg.BatchSize,
		client:    &http.Client{Timeout: cfg.Timeout},
		logger:    logging.With().Str("component", "embedder").Logger(),
	}
}

// embedRequest is the inference server's request body.
type embedRequest struct {
	Inputs []string `json:"inputs"`
}

// Embed sends texts to the inference server in fixed-size batches and
// returns one vector per text, in input order.
func (e *HTTPEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += e.batchSize {
		end := start + e.batchSize
		if end > len(texts) {
			end = len(texts)
		}

		batch, err := e.embedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("embed batch [%d:%d]: %w", start, end, err)
		}
		vectors = append(vectors, batch...)
	}

	metrics.EmbedTextsTotal.Add(float64(len(texts)))
	return vectors, nil
}

func (e *HTTPEmbedder) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	body, err := json.Marshal(embedRequest{Inputs: texts})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/embed", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("inference server request: %w", err)
	}
	defer resp.Body.Close()
	metrics.EmbedBatchDuration.Observe(time.Since(start).Seconds())

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("inference server returned %d: %s", resp.StatusCode, snippet)
	}

	var vectors [][]float32
	if err := json.NewDecoder(resp.Body).Decode(&vectors); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("inference server returned %d vectors for %d texts", len(vectors), len(texts))
	}
	for i, v := range vectors {
		if len(v) != e.dims {
			return nil, fmt.Errorf("vector %d has dimension %d, expected %d", i, len(v), e.dims)
		}
	}

	return vectors, nil
}

// Ping embeds a probe text to verify the server is up and serving vectors
// of the expected dimensionality.
func (e *HTTPEmbedder) Ping(ctx context.Context) error {
	vectors, err := e.embedBatch(ctx, []string{"ping"})
	if err != nil {
		return fmt.Errorf("embedding server ping: %w", err)
	}
	e.logger.Info().
		Str("model", e.model).
		Int("dimensions", len(vectors[0])).
		Msg("Embedding server ready")
	return nil
}

// Dimensions returns the configured vector dimensionality.
func (e *HTTPEmbedder) Dimensions() int { return e.dims }

// ModelName returns the model identifier served by the inference server.
func (e *HTTPEmbedder) ModelName() string { return e.model }
