// Outfitter - Preference Learning and Recommendation Diversification
// Copyright 2026 Maren Hollis (marenhollis)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/marenhollis/outfitter

package models

import (
	"sort"
	"time"
)

// ConfidenceTier buckets how statistically reliable a profile is.
// It gates how aggressively personalization is applied versus how much
// exploration the diversifier forces.
type ConfidenceTier string

const (
	TierLow      ConfidenceTier = "low"
	TierMedium   ConfidenceTier = "medium"
	TierHigh     ConfidenceTier = "high"
	TierVeryHigh ConfidenceTier = "very_high"
)

// PreferenceWeight is one learned preference value within a dimension.
type PreferenceWeight struct {
	// Key is the normalized attribute value (canonical hex, style name, ...).
	Key string `json:"key"`

	// Weight is the accumulated recency-decayed score. Never negative.
	Weight float64 `json:"weight"`

	// Frequency counts how many events touched this key.
	Frequency int `json:"frequency"`

	// FirstSeenSeq orders keys by first appearance, for deterministic
	// tie-breaking when weights are equal.
	FirstSeenSeq int64 `json:"first_seen_seq"`

	// LastUpdatedAt is the timestamp of the most recent contributing event.
	LastUpdatedAt time.Time `json:"last_updated_at"`
}

// ColorCombination is a set of colors repeatedly worn together.
type ColorCombination struct {
	Colors    []string  `json:"colors"`
	TimesWorn int       `json:"times_worn"`
	LastWorn  time.Time `json:"last_worn"`
}

// ComprehensivePreferences is the full aggregated preference profile for a
// user, including the derived signals consumers rely on. A zero-interaction
// user gets a well-formed empty profile at TierLow; cold start is a valid
// state, not a failure.
type ComprehensivePreferences struct {
	UserID string `json:"user_id"`

	Colors    map[string]*PreferenceWeight `json:"colors"`
	Styles    map[string]*PreferenceWeight `json:"styles"`
	Occasions map[string]*PreferenceWeight `json:"occasions"`
	Seasons   map[string]*PreferenceWeight `json:"seasons"`

	// ProvenCombinations are color sets seen together in wore events.
	ProvenCombinations []ColorCombination `json:"proven_combinations,omitempty"`

	// TemperatureBias is "warm", "cool" or "neutral", derived from the
	// hue distribution of the top colors.
	TemperatureBias string `json:"temperature_bias,omitempty"`

	// IntensityBias is "bold", "muted" or "balanced", derived from the
	// saturation distribution of the top colors.
	IntensityBias string `json:"intensity_bias,omitempty"`

	// PlatformClicks is the shopping-platform click distribution.
	PlatformClicks map[string]int `json:"platform_clicks,omitempty"`

	// SeasonalColors segments top colors by the season they were learned in.
	SeasonalColors map[string][]string `json:"seasonal_colors,omitempty"`

	// TotalInteractions counts every ingested event, including events past
	// the decay horizon (they contribute ~0 weight but still count here).
	TotalInteractions int `json:"total_interactions"`

	Tier       ConfidenceTier `json:"tier"`
	Confidence float64        `json:"confidence"`

	ComputedAt time.Time `json:"computed_at"`
}

// EmptyPreferences returns the valid cold-start profile for a user.
func EmptyPreferences(userID string) *ComprehensivePreferences {
	return &ComprehensivePreferences{
		UserID:     userID,
		Colors:     map[string]*PreferenceWeight{},
		Styles:     map[string]*PreferenceWeight{},
		Occasions:  map[string]*PreferenceWeight{},
		Seasons:    map[string]*PreferenceWeight{},
		Tier:       TierLow,
		Confidence: 0.20,
		ComputedAt: time.Now().UTC(),
	}
}

// IsCold reports whether the profile has no signal worth personalizing on.
func (p *ComprehensivePreferences) IsCold() bool {
	return p == nil || p.TotalInteractions == 0
}

// TopKeys returns up to n keys of dim ordered by weight descending.
// Ties break by first-seen order, then lexically, so output is deterministic.
func TopKeys(dim map[string]*PreferenceWeight, n int) []string {
	keys := make([]string, 0, len(dim))
	for k := range dim {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := dim[keys[i]], dim[keys[j]]
		if a.Weight != b.Weight {
			return a.Weight > b.Weight
		}
		if a.FirstSeenSeq != b.FirstSeenSeq {
			return a.FirstSeenSeq < b.FirstSeenSeq
		}
		return keys[i] < keys[j]
	})
	if n > 0 && len(keys) > n {
		keys = keys[:n]
	}
	return keys
}

// TopColors returns the user's top n colors.
func (p *ComprehensivePreferences) TopColors(n int) []string {
	return TopKeys(p.Colors, n)
}

// TopStyles returns the user's top n styles.
func (p *ComprehensivePreferences) TopStyles(n int) []string {
	return TopKeys(p.Styles, n)
}

// TopOccasions returns the user's top n occasions.
func (p *ComprehensivePreferences) TopOccasions(n int) []string {
	return TopKeys(p.Occasions, n)
}
