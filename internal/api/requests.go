// Resonate - Personalized Video Feed and Recommendation Service
// Copyright 2026 Resonate Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/resonatelabs/resonate

package api

// feedParams carries the query parameters of GET /api/v1/feed.
// Page and PageSize have defaults applied before validation; the
// configured page-size ceiling is enforced in the handler because it is
// runtime configuration, not a struct constant.
type feedParams struct {
	Username    string `validate:"required,max=100"`
	ProjectCode string `validate:"omitempty,max=50"`
	Page        int    `validate:"min=1,max=100000"`
	PageSize    int    `validate:"min=1"`
}

// similarParams carries the parameters of GET /api/v1/similar/{postID}.
// TopK zero means "use the configured default".
type similarParams struct {
	PostID int64 `validate:"min=1"`
	TopK   int   `validate:"min=0,max=100"`
}
