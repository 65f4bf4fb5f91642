// Resonate - Personalized Video Feed and Recommendation Service
// Copyright 2026 Resonate Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/resonatelabs/resonate

// Package validation wraps go-playground/validator v10 behind a
// thread-safe singleton with error translation into the API's
// VALIDATION_ERROR envelope.
//
// # Quick Start
//
//	type FeedParams struct {
//	    Username string `validate:"required,max=100"`
//	    Page     int    `validate:"min=1"`
//	    PageSize int    `validate:"min=1,max=100"`
//	}
//
//	if verr := validation.ValidateStruct(&params); verr != nil {
//	    apiErr := verr.ToAPIError()
//	    respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
//	    return
//	}
//
// The singleton caches struct metadata, so repeated validation of the
// same request types is cheap.
package validation
