// Resonate - Personalized Video Feed and Recommendation Service
// Copyright 2026 Resonate Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/resonatelabs/resonate

package recommend

import "errors"

var (
	// ErrNotReady means the catalog has not completed its first build.
	// Handlers map it to 503.
	ErrNotReady = errors.New("recommendation engine not ready")

	// ErrNotFound means a referenced post is not in the catalog.
	// Handlers map it to 404.
	ErrNotFound = errors.New("post not found")
)
