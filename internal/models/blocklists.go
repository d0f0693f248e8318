// Outfitter - Preference Learning and Recommendation Diversification
// Copyright 2026 Maren Hollis (marenhollis)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/marenhollis/outfitter

package models

import "time"

// BlockTier identifies which negative-constraint set matched a candidate.
type BlockTier string

const (
	BlockTierNone      BlockTier = "none"
	BlockTierHard      BlockTier = "hard"
	BlockTierSoft      BlockTier = "soft"
	BlockTierTemporary BlockTier = "temporary"
)

// HardBlockEntry is an attribute that must never appear in output.
type HardBlockEntry struct {
	Value   string    `json:"value"`
	Reason  string    `json:"reason"`
	AddedAt time.Time `json:"added_at"`
}

// SoftBlockEntry is an attribute that is score-penalized but not excluded.
// IgnoreCount accumulates toward auto-promotion into the hard set.
type SoftBlockEntry struct {
	Value       string    `json:"value"`
	Reason      string    `json:"reason"`
	IgnoreCount int       `json:"ignore_count"`
	AddedAt     time.Time `json:"added_at"`
}

// TempBlockEntry prevents an exact attribute combination from resurfacing
// within a rolling window. Entries self-expire; expired entries are treated
// as absent without a separate sweep.
type TempBlockEntry struct {
	Signature     string    `json:"signature"`
	RecommendedAt time.Time `json:"recommended_at"`
	ExpiresAt     time.Time `json:"expires_at"`
}

// Expired reports whether the entry is past its TTL at the given instant.
func (e TempBlockEntry) Expired(now time.Time) bool {
	return e.ExpiresAt.Before(now)
}

// Blocklists is a user's full set of negative constraints.
type Blocklists struct {
	UserID    string           `json:"user_id"`
	Hard      []HardBlockEntry `json:"hard"`
	Soft      []SoftBlockEntry `json:"soft"`
	Temporary []TempBlockEntry `json:"temporary"`
}

// EmptyBlocklists returns an initialized, empty constraint set.
func EmptyBlocklists(userID string) *Blocklists {
	return &Blocklists{UserID: userID}
}

// BlockVerdict is the scoring decision for one candidate's attributes.
type BlockVerdict struct {
	// Excluded means the candidate must not be returned. Hard matches are
	// permanent exclusions; temporary matches are anti-repetition only.
	Excluded bool `json:"excluded"`

	// PenaltyMultiplier is applied to the raw score (1.0 = no penalty).
	PenaltyMultiplier float64 `json:"penalty_multiplier"`

	// MatchedTier names the tier that produced the verdict.
	MatchedTier BlockTier `json:"matched_tier"`

	// MatchedValue is the attribute or signature that matched.
	MatchedValue string `json:"matched_value,omitempty"`
}
