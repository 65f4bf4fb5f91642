// Resonate - Personalized Video Feed and Recommendation Service
// Copyright 2026 Resonate Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/resonatelabs/resonate

package api

import (
	"net/http"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/google/uuid"

	"github.com/resonatelabs/resonate/internal/logging"
	"github.com/resonatelabs/resonate/internal/metrics"
)

// Middleware bundles the per-route middleware built from server config.
type Middleware struct {
	corsHandler     func(http.Handler) http.Handler
	rateLimitReqs   int
	rateLimitWindow time.Duration
}

// NewMiddleware builds the middleware set. Zero rateLimitReqs disables
// rate limiting.
func NewMiddleware(rateLimitReqs int, rateLimitWindow time.Duration) *Middleware {
	return &Middleware{
		corsHandler: cors.Handler(cors.Options{
			AllowedOrigins:   []string{"*"},
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
			AllowCredentials: false,
			MaxAge:           86400,
		}),
		rateLimitReqs:   rateLimitReqs,
		rateLimitWindow: rateLimitWindow,
	}
}

// CORS returns the CORS middleware. Applied globally so OPTIONS
// preflight requests are handled on every route.
func (m *Middleware) CORS() func(http.Handler) http.Handler {
	return m.corsHandler
}

// RateLimit returns per-IP rate limiting middleware. Rejections get the
// standard error envelope and are counted per endpoint.
func (m *Middleware) RateLimit() func(http.Handler) http.Handler {
	if m.rateLimitReqs <= 0 {
		return func(next http.Handler) http.Handler {
			return next
		}
	}

	return httprate.Limit(
		m.rateLimitReqs,
		m.rateLimitWindow,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			metrics.APIRateLimitHits.WithLabelValues(r.URL.Path).Inc()
			respondError(w, http.StatusTooManyRequests, "RATE_LIMIT_EXCEEDED",
				"Too many requests, slow down", nil)
		}),
	)
}

// RequestID ensures every request carries an X-Request-ID, generating a
// UUID when the client did not send one, and echoes it on the response.
func RequestID() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get("X-Request-ID")
			if requestID == "" {
				requestID = uuid.NewString()
				r.Header.Set("X-Request-ID", requestID)
			}
			w.Header().Set("X-Request-ID", requestID)
			next.ServeHTTP(w, r)
		})
	}
}

// RequestLogging logs each request with its outcome and records API
// metrics. Uses chi's WrapResponseWriter to capture the status code.
func RequestLogging() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r)

			took := time.Since(start)
			metrics.RecordAPIRequest(r.Method, r.URL.Path, ww.Status(), took)
			logging.Debug().
				Str("method", r.Method).
				Str("path", sanitizeLogValue(r.URL.Path)).
				Str("request_id", sanitizeLogValue(r.Header.Get("X-Request-ID"))).
				Int("status", ww.Status()).
				Dur("took", took).
				Msg("Request handled")
		})
	}
}
