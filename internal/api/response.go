// Outfitter - Preference Learning and Recommendation Diversification
// Copyright 2026 Maren Hollis (marenhollis)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/marenhollis/outfitter

// Package api provides the HTTP surface: chi routing, middleware and the
// uniform response envelope.
package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/marenhollis/outfitter/internal/logging"
	"github.com/marenhollis/outfitter/internal/models"
	"github.com/marenhollis/outfitter/internal/store"
	"github.com/marenhollis/outfitter/internal/tracker"
	"github.com/marenhollis/outfitter/internal/validation"
)

// Error codes for the response envelope.
const (
	ErrCodeBadRequest       = "BAD_REQUEST"
	ErrCodeValidationFailed = "VALIDATION_FAILED"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeConflict         = "CONFLICT"
	ErrCodeTooManyRequests  = "TOO_MANY_REQUESTS"
	ErrCodeUnavailable      = "SERVICE_UNAVAILABLE"
	ErrCodeInternalError    = "INTERNAL_ERROR"
)

// respondJSON writes a success envelope.
func respondJSON(w http.ResponseWriter, r *http.Request, status int, data interface{}, started time.Time) {
	resp := models.APIResponse{
		Status: "success",
		Data:   data,
		Metadata: models.Metadata{
			Timestamp:   time.Now().UTC(),
			QueryTimeMS: float64(time.Since(started).Microseconds()) / 1000,
			RequestID:   logging.RequestIDFromContext(r.Context()),
		},
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logger := logging.Ctx(r.Context())
		logger.Error().Err(err).Msg("response encode failed")
	}
}

// respondError writes an error envelope.
func respondError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	resp := models.APIResponse{
		Status: "error",
		Metadata: models.Metadata{
			Timestamp: time.Now().UTC(),
			RequestID: logging.RequestIDFromContext(r.Context()),
		},
		Error: &models.APIError{Code: code, Message: message},
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logger := logging.Ctx(r.Context())
		logger.Error().Err(err).Msg("response encode failed")
	}
}

// respondForError maps a domain error onto status and code. Validation
// failures are client errors; transient store failures are 503s the client
// may retry.
func respondForError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *validation.RequestValidationError
	switch {
	case errors.As(err, &verr):
		respondError(w, r, http.StatusBadRequest, ErrCodeValidationFailed, verr.Error())
	case errors.Is(err, store.ErrNotFound):
		respondError(w, r, http.StatusNotFound, ErrCodeNotFound, "resource not found")
	case errors.Is(err, tracker.ErrSessionClosed):
		respondError(w, r, http.StatusConflict, ErrCodeConflict, "session already closed")
	case errors.Is(err, store.ErrConflict):
		respondError(w, r, http.StatusConflict, ErrCodeConflict, "concurrent update conflict, retry")
	case store.IsTransient(err):
		respondError(w, r, http.StatusServiceUnavailable, ErrCodeUnavailable, "storage temporarily unavailable")
	default:
		logger := logging.Ctx(r.Context())
		logger.Error().Err(err).Msg("request failed")
		respondError(w, r, http.StatusInternalServerError, ErrCodeInternalError, "internal error")
	}
}

// decodeBody decodes a JSON request body.
func decodeBody(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		return validation.NewFieldError("body", "invalid JSON: "+err.Error())
	}
	return nil
}
