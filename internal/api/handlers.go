// Outfitter - Preference Learning and Recommendation Diversification
// Copyright 2026 Maren Hollis (marenhollis)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/marenhollis/outfitter

package api

import (
	"bytes"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/marenhollis/outfitter/internal/aggregator"
	"github.com/marenhollis/outfitter/internal/blocklist"
	"github.com/marenhollis/outfitter/internal/config"
	"github.com/marenhollis/outfitter/internal/diversify"
	"github.com/marenhollis/outfitter/internal/models"
	"github.com/marenhollis/outfitter/internal/tracker"
	"github.com/marenhollis/outfitter/internal/validation"
)

// Handler carries the engine components the HTTP surface fronts.
type Handler struct {
	tracker     *tracker.Tracker
	aggregator  *aggregator.Aggregator
	blocklists  *blocklist.Manager
	diversifier *diversify.Diversifier
	limiters    *userLimiters
	logger      zerolog.Logger
}

// NewHandler wires the handler.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewHandler(
	tr *tracker.Tracker,
	agg *aggregator.Aggregator,
	bl *blocklist.Manager,
	div *diversify.Diversifier,
	cfg config.ServerConfig,
	logger zerolog.Logger,
) *Handler {
	return &Handler{
		tracker:     tr,
		aggregator:  agg,
		blocklists:  bl,
		diversifier: div,
		limiters:    newUserLimiters(cfg.IngestPerSecond, cfg.IngestBurst),
		logger:      logger.With().Str("component", "api").Logger(),
	}
}

// IngestEvent handles POST /api/v1/events. The body is either one event
// object or an array of them; a batch is ingested in order and fails fast
// on the first bad event.
func (h *Handler) IngestEvent(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	events, err := decodeEventBody(r)
	if err != nil {
		respondForError(w, r, err)
		return
	}
	ids := make([]string, 0, len(events))
	for i := range events {
		ev := &events[i]
		if ev.UserID != "" && !h.limiters.allow(ev.UserID) {
			respondError(w, r, http.StatusTooManyRequests, ErrCodeTooManyRequests, "event ingestion rate exceeded")
			return
		}
		if err := h.aggregator.Ingest(r.Context(), ev); err != nil {
			respondForError(w, r, err)
			return
		}
		ids = append(ids, ev.ID)
	}
	respondJSON(w, r, http.StatusAccepted, map[string]interface{}{
		"event_ids": ids,
		"count":     len(ids),
	}, started)
}

// decodeEventBody accepts a single event object or a non-empty array.
func decodeEventBody(r *http.Request) ([]models.InteractionEvent, error) {
	var raw json.RawMessage
	if err := decodeBody(r, &raw); err != nil {
		return nil, err
	}
	trimmed := bytes.TrimLeft(raw, " \t\r\n")
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var events []models.InteractionEvent
		if err := json.Unmarshal(raw, &events); err != nil {
			return nil, validation.NewFieldError("body", "invalid event array: "+err.Error())
		}
		if len(events) == 0 {
			return nil, validation.NewFieldError("body", "event array must not be empty")
		}
		return events, nil
	}
	var ev models.InteractionEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		return nil, validation.NewFieldError("body", "invalid event: "+err.Error())
	}
	return []models.InteractionEvent{ev}, nil
}

// StartSession handles POST /api/v1/sessions.
func (h *Handler) StartSession(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	var meta models.SessionMeta
	if err := decodeBody(r, &meta); err != nil {
		respondForError(w, r, err)
		return
	}
	session, err := h.tracker.StartSession(r.Context(), &meta)
	if err != nil {
		respondForError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusCreated, session, started)
}

// GetSession handles GET /api/v1/sessions/{sessionID}.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	session, err := h.tracker.Get(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		respondForError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, session, started)
}

// RecordAction handles POST /api/v1/sessions/{sessionID}/actions.
func (h *Handler) RecordAction(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	var ev models.InteractionEvent
	if err := decodeBody(r, &ev); err != nil {
		respondForError(w, r, err)
		return
	}
	if ev.UserID != "" && !h.limiters.allow(ev.UserID) {
		respondError(w, r, http.StatusTooManyRequests, ErrCodeTooManyRequests, "event ingestion rate exceeded")
		return
	}
	session, err := h.tracker.RecordAction(r.Context(), chi.URLParam(r, "sessionID"), &ev)
	if err != nil {
		respondForError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, session, started)
}

// GetPreferences handles GET /api/v1/users/{userID}/preferences.
func (h *Handler) GetPreferences(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	prefs := h.aggregator.ComputeProfile(r.Context(), chi.URLParam(r, "userID"))
	respondJSON(w, r, http.StatusOK, prefs, started)
}

// GetEvents handles GET /api/v1/users/{userID}/events?from=&to=.
func (h *Handler) GetEvents(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	from, err := parseTimeParam(r, "from")
	if err != nil {
		respondForError(w, r, err)
		return
	}
	to, err := parseTimeParam(r, "to")
	if err != nil {
		respondForError(w, r, err)
		return
	}
	events, err := h.aggregator.Events(r.Context(), chi.URLParam(r, "userID"), from, to)
	if err != nil {
		respondForError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, map[string]interface{}{
		"events": events,
		"count":  len(events),
	}, started)
}

// recommendRequest is the body of POST /api/v1/users/{userID}/recommendations.
type recommendRequest struct {
	Candidates []models.Candidate `json:"candidates" validate:"required,min=1,dive"`
	Limit      int                `json:"limit" validate:"min=0,max=100"`
}

// Recommend handles POST /api/v1/users/{userID}/recommendations.
func (h *Handler) Recommend(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	var req recommendRequest
	if err := decodeBody(r, &req); err != nil {
		respondForError(w, r, err)
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		respondForError(w, r, verr)
		return
	}
	for i := range req.Candidates {
		if verr := validation.NormalizeAttributes(&req.Candidates[i].Attributes); verr != nil {
			respondForError(w, r, verr)
			return
		}
	}
	result, err := h.diversifier.Recommend(r.Context(), chi.URLParam(r, "userID"), req.Candidates, req.Limit)
	if err != nil {
		respondForError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, result, started)
}

// GetBlocklists handles GET /api/v1/users/{userID}/blocklist.
func (h *Handler) GetBlocklists(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	bl, err := h.blocklists.Get(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		respondForError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, bl, started)
}

// blockRequest is the body of POST /api/v1/users/{userID}/blocklist.
type blockRequest struct {
	Tier   string `json:"tier" validate:"required,oneof=hard soft"`
	Value  string `json:"value" validate:"required,max=128"`
	Reason string `json:"reason,omitempty" validate:"omitempty,max=256"`
}

// AddBlock handles POST /api/v1/users/{userID}/blocklist.
func (h *Handler) AddBlock(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	var req blockRequest
	if err := decodeBody(r, &req); err != nil {
		respondForError(w, r, err)
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		respondForError(w, r, verr)
		return
	}
	userID := chi.URLParam(r, "userID")
	var err error
	if req.Tier == "hard" {
		err = h.blocklists.AddHard(r.Context(), userID, req.Value, req.Reason)
	} else {
		err = h.blocklists.AddSoft(r.Context(), userID, req.Value, req.Reason)
	}
	if err != nil {
		respondForError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusCreated, map[string]string{"tier": req.Tier, "value": req.Value}, started)
}

// ResetUserData handles DELETE /api/v1/users/{userID}/data. It removes
// events, the profile, blocklists, sessions and recommendation history.
func (h *Handler) ResetUserData(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	userID := chi.URLParam(r, "userID")
	if err := h.aggregator.Reset(r.Context(), userID); err != nil {
		respondForError(w, r, err)
		return
	}
	if err := h.blocklists.Reset(r.Context(), userID); err != nil {
		respondForError(w, r, err)
		return
	}
	if err := h.diversifier.ResetHistory(r.Context(), userID); err != nil {
		respondForError(w, r, err)
		return
	}
	if err := h.tracker.ResetUser(r.Context(), userID); err != nil {
		respondForError(w, r, err)
		return
	}
	h.logger.Info().Str("user", userID).Msg("user data deleted")
	respondJSON(w, r, http.StatusOK, map[string]string{"user_id": userID, "state": "deleted"}, started)
}

// Health handles GET /health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, r, http.StatusOK, map[string]string{"status": "ok"}, time.Now())
}

// parseTimeParam parses an optional RFC3339 query parameter.
func parseTimeParam(r *http.Request, name string) (time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, validation.NewFieldError(name, "must be RFC3339")
	}
	return t, nil
}
