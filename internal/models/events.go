// Outfitter - Preference Learning and Recommendation Diversification
// Copyright 2026 Maren Hollis (marenhollis)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/marenhollis/outfitter

// Package models defines the domain types shared across the engine:
// interaction events and sessions, preference profiles, blocklists,
// candidates and the API response envelope.
package models

import (
	"sort"
	"strings"
	"time"
)

// EventType classifies a raw user interaction signal.
type EventType string

const (
	// EventViewed indicates an outfit was rendered and seen.
	EventViewed EventType = "viewed"
	// EventHoveredColor indicates the user hovered a color swatch.
	EventHoveredColor EventType = "hovered_color"
	// EventClickedShopping indicates a shopping link was clicked.
	EventClickedShopping EventType = "clicked_shopping"
	// EventSelected indicates an outfit was opened/expanded.
	EventSelected EventType = "selected"
	// EventLiked indicates an explicit like.
	EventLiked EventType = "liked"
	// EventWore indicates the user reported wearing the outfit.
	EventWore EventType = "wore"
	// EventIgnored indicates the outfit was shown and never engaged.
	EventIgnored EventType = "ignored"
	// EventDisliked indicates an explicit "not my style".
	EventDisliked EventType = "disliked"
)

// Valid reports whether t is a known event type.
func (t EventType) Valid() bool {
	switch t {
	case EventViewed, EventHoveredColor, EventClickedShopping, EventSelected,
		EventLiked, EventWore, EventIgnored, EventDisliked:
		return true
	}
	return false
}

// Terminal reports whether t closes an interaction session.
func (t EventType) Terminal() bool {
	switch t {
	case EventLiked, EventWore, EventDisliked:
		return true
	}
	return false
}

// DefaultOutcomeWeights maps event types to their base weight contribution.
// These are configuration defaults, overridable via aggregator.weights.
func DefaultOutcomeWeights() map[EventType]float64 {
	return map[EventType]float64{
		EventWore:            5.0,
		EventSelected:        3.0,
		EventLiked:           2.0,
		EventClickedShopping: 1.0,
		EventHoveredColor:    0.3,
		EventViewed:          0.1,
		EventIgnored:         -0.5,
		EventDisliked:        -2.0,
	}
}

// OutfitAttributes describes the attributes of the outfit an event refers to.
// All values are normalized at the ingestion boundary (lowercase canonical
// hex for colors, closed vocabularies for styles/occasions/seasons).
type OutfitAttributes struct {
	Colors   []string `json:"colors,omitempty"`
	Styles   []string `json:"styles,omitempty"`
	Occasion string   `json:"occasion,omitempty"`
	Season   string   `json:"season,omitempty"`
}

// All returns every attribute value as a flat slice, for blocklist matching.
func (a OutfitAttributes) All() []string {
	out := make([]string, 0, len(a.Colors)+len(a.Styles)+2)
	out = append(out, a.Colors...)
	out = append(out, a.Styles...)
	if a.Occasion != "" {
		out = append(out, a.Occasion)
	}
	if a.Season != "" {
		out = append(out, a.Season)
	}
	return out
}

// Signature returns the normalized sorted attribute combination used for
// anti-repetition bookkeeping. Identical outfits always produce identical
// signatures regardless of attribute ordering.
func (a OutfitAttributes) Signature() string {
	parts := a.All()
	for i, p := range parts {
		parts[i] = strings.ToLower(strings.TrimSpace(p))
	}
	sort.Strings(parts)
	return strings.Join(parts, "|")
}

// InteractionEvent is a single immutable interaction signal. Events are
// deduplicated by the caller-supplied ID and never mutated once recorded.
type InteractionEvent struct {
	// ID is the caller-supplied event identifier used for deduplication.
	ID string `json:"id" validate:"required,max=128"`

	// UserID identifies the user the signal belongs to.
	UserID string `json:"user_id" validate:"required,max=128"`

	// SessionID groups events within a recommendation session.
	SessionID string `json:"session_id,omitempty" validate:"omitempty,max=128"`

	// Type is the interaction classification.
	Type EventType `json:"type" validate:"required"`

	// Timestamp is when the interaction occurred.
	Timestamp time.Time `json:"timestamp" validate:"required"`

	// OutfitPosition is the 1-based slot of the outfit in the response.
	OutfitPosition int `json:"outfit_position,omitempty" validate:"min=0,max=100"`

	// ColorHex is the hovered color for hovered_color events.
	ColorHex string `json:"color_hex,omitempty"`

	// Platform is the shopping platform for clicked_shopping events.
	Platform string `json:"platform,omitempty" validate:"omitempty,max=64"`

	// DurationMS is how long the interaction lasted, when known.
	DurationMS int64 `json:"duration_ms,omitempty" validate:"min=0"`

	// Attributes are the attributes of the outfit interacted with.
	Attributes OutfitAttributes `json:"attributes"`
}

// SessionOutcome summarizes how an interaction session ended.
type SessionOutcome string

const (
	OutcomeInProgress    SessionOutcome = "in_progress"
	OutcomeLikedOne      SessionOutcome = "liked_one"
	OutcomeLikedMultiple SessionOutcome = "liked_multiple"
	OutcomeWoreOne       SessionOutcome = "wore_one"
	OutcomeIgnoredAll    SessionOutcome = "ignored_all"
)

// InteractionSession groups the events of one recommendation request.
type InteractionSession struct {
	ID             string             `json:"id"`
	UserID         string             `json:"user_id"`
	StartedAt      time.Time          `json:"started_at"`
	LastActivityAt time.Time          `json:"last_activity_at"`
	Occasion       string             `json:"occasion,omitempty"`
	Gender         string             `json:"gender,omitempty"`
	Weather        string             `json:"weather,omitempty"`
	Season         string             `json:"season,omitempty"`
	Events         []InteractionEvent `json:"events"`
	Outcome        SessionOutcome     `json:"outcome"`
}

// DeriveOutcome computes the terminal outcome from the recorded events.
// Wearing dominates liking; a dislike without any positive terminal action
// closes the session as ignored_all.
func (s *InteractionSession) DeriveOutcome() SessionOutcome {
	likes := 0
	for i := range s.Events {
		switch s.Events[i].Type {
		case EventWore:
			return OutcomeWoreOne
		case EventLiked:
			likes++
		}
	}
	switch {
	case likes > 1:
		return OutcomeLikedMultiple
	case likes == 1:
		return OutcomeLikedOne
	default:
		return OutcomeIgnoredAll
	}
}

// SessionMeta carries the context a session is started with.
type SessionMeta struct {
	UserID   string `json:"user_id" validate:"required,max=128"`
	Occasion string `json:"occasion,omitempty" validate:"omitempty,max=64"`
	Gender   string `json:"gender,omitempty" validate:"omitempty,max=32"`
	Weather  string `json:"weather,omitempty" validate:"omitempty,max=64"`
	Season   string `json:"season,omitempty" validate:"omitempty,max=32"`
}
