// Outfitter - Preference Learning and Recommendation Diversification
// Copyright 2026 Maren Hollis (marenhollis)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/marenhollis/outfitter

package models

import "time"

// Candidate is one raw recommendation candidate prior to scoring.
type Candidate struct {
	ID          string           `json:"id" validate:"required,max=128"`
	Description string           `json:"description,omitempty" validate:"omitempty,max=512"`
	Attributes  OutfitAttributes `json:"attributes"`
}

// MatchCategory buckets a 0-100 alignment score.
type MatchCategory string

const (
	// CategoryPerfect is a score of 90 or above.
	CategoryPerfect MatchCategory = "perfect"
	// CategoryGreat is a score of 70-89.
	CategoryGreat MatchCategory = "great"
	// CategoryExploring is everything below 70.
	CategoryExploring MatchCategory = "exploring"
)

// AnnotatedCandidate is a scored, categorized, positioned candidate.
type AnnotatedCandidate struct {
	Candidate Candidate `json:"candidate"`

	// MatchScore is the 0-100 alignment score after penalties.
	MatchScore float64 `json:"match_score"`

	// MatchCategory is the score bucket.
	MatchCategory MatchCategory `json:"match_category"`

	// Explanation names the specific preference that drove the score.
	// For cold-start users it must not claim personalization.
	Explanation string `json:"explanation"`

	// Position is the 1-based output slot.
	Position int `json:"position"`

	// SoftPenalized indicates the soft-blocklist multiplier was applied.
	SoftPenalized bool `json:"soft_penalized,omitempty"`
}

// RecommendationResult is the diversifier's annotated, ranked output.
type RecommendationResult struct {
	Candidates []AnnotatedCandidate `json:"candidates"`

	// InsufficientDiversity flags a best-effort subset returned because the
	// eligible pool could not fill the requested slots even after soft
	// penalties were relaxed.
	InsufficientDiversity bool `json:"insufficient_diversity,omitempty"`

	// PatternLocked indicates recent output was too homogeneous and the
	// exploratory slots were forced to diverge.
	PatternLocked bool `json:"pattern_locked,omitempty"`
}

// RecommendationRecord is the anti-repetition bookkeeping entry kept for
// each served recommendation, feeding pattern-lock detection.
type RecommendationRecord struct {
	UserID        string    `json:"user_id"`
	Signature     string    `json:"signature"`
	DominantColor string    `json:"dominant_color,omitempty"`
	DominantStyle string    `json:"dominant_style,omitempty"`
	RecommendedAt time.Time `json:"recommended_at"`
}
