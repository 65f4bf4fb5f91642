// Resonate - Personalized Video Feed and Recommendation Service
// Copyright 2026 Resonate Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/resonatelabs/resonate

package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordAPIRequest(t *testing.T) {
	before := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/api/v1/feed", "200"))
	RecordAPIRequest("GET", "/api/v1/feed", 200, 25*time.Millisecond)
	after := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/api/v1/feed", "200"))
	assert.Equal(t, before+1, after)
}

func TestRecordUpstreamRequestOutcomes(t *testing.T) {
	okBefore := testutil.ToFloat64(UpstreamRequestsTotal.WithLabelValues("posts", "success"))
	errBefore := testutil.ToFloat64(UpstreamRequestsTotal.WithLabelValues("posts", "error"))

	RecordUpstreamRequest("posts", 10*time.Millisecond, nil)
	RecordUpstreamRequest("posts", 10*time.Millisecond, errors.New("boom"))

	assert.Equal(t, okBefore+1, testutil.ToFloat64(UpstreamRequestsTotal.WithLabelValues("posts", "success")))
	assert.Equal(t, errBefore+1, testutil.ToFloat64(UpstreamRequestsTotal.WithLabelValues("posts", "error")))
}

func TestRecordCatalogBuild(t *testing.T) {
	RecordCatalogBuild(2*time.Second, 120, 3, nil)
	assert.Equal(t, float64(120), testutil.ToFloat64(CatalogPosts))
	assert.Equal(t, float64(3), testutil.ToFloat64(CatalogVersion))

	// Failed builds must not touch the gauges.
	RecordCatalogBuild(time.Second, 0, 0, errors.New("embed failed"))
	assert.Equal(t, float64(120), testutil.ToFloat64(CatalogPosts))
	assert.Equal(t, float64(3), testutil.ToFloat64(CatalogVersion))
}
