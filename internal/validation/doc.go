// NetSentry - Industrial Network Anomaly Detection and Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/netsentry

// Package validation provides struct validation using go-playground/validator v10.
//
// This package wraps the go-playground/validator library in a thread-safe
// singleton with user-friendly error messages and conversion to the API's
// VALIDATION_ERROR response format.
//
// # Quick Start
//
//	type HistoryRequest struct {
//	    Limit    int    `validate:"min=1,max=1000"`
//	    Offset   int    `validate:"min=0,max=1000000"`
//	    SourceIP string `validate:"omitempty,ip"`
//	}
//
//	func handler(w http.ResponseWriter, r *http.Request) {
//	    req := HistoryRequest{Limit: getIntParam(r, "limit", 100)}
//	    if verr := validation.ValidateStruct(&req); verr != nil {
//	        apiErr := verr.ToAPIError()
//	        respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
//	        return
//	    }
//	    // proceed with valid request
//	}
//
// # Common Validation Tags
//
// String validations:
//   - required: field must not be empty
//   - ip: valid IPv4 or IPv6 address
//   - datetime=layout: timestamp in the given layout (RFC 3339 in this API)
//   - oneof=a b c: value from a fixed set
//   - max=n: maximum length n characters
//
// Numeric validations:
//   - min=n / max=n: inclusive bounds
//   - gt=n / gte=n / lt=n / lte=n: open and closed comparisons
//
// Field validation failures translate to messages like "Limit must be at
// most 1000" and aggregate into a single VALIDATION_ERROR API response with
// per-field details.
//
// # Thread Safety
//
// GetValidator lazily initializes one validator.Validate behind sync.Once.
// The instance caches struct metadata, so reusing it across goroutines is
// both safe and faster than constructing per call.
package validation
