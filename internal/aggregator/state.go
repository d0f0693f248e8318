// Outfitter - Preference Learning and Recommendation Diversification
// Copyright 2026 Maren Hollis (marenhollis)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/marenhollis/outfitter

package aggregator

import (
	"sort"
	"time"

	"github.com/marenhollis/outfitter/internal/models"
)

// profileState is the incrementally-maintained aggregation document stored
// per user. Derived fields (tier, biases, top-N lists) are computed on read;
// only the raw accumulation lives here.
type profileState struct {
	UserID string `json:"user_id"`

	Colors    map[string]*models.PreferenceWeight `json:"colors"`
	Styles    map[string]*models.PreferenceWeight `json:"styles"`
	Occasions map[string]*models.PreferenceWeight `json:"occasions"`
	Seasons   map[string]*models.PreferenceWeight `json:"seasons"`

	// ProvenCombinations accumulates color sets from wore events.
	ProvenCombinations []models.ColorCombination `json:"proven_combinations,omitempty"`

	// PlatformClicks counts clicked_shopping events per platform.
	PlatformClicks map[string]int `json:"platform_clicks,omitempty"`

	// SeasonalColors accumulates color weight per season.
	SeasonalColors map[string]map[string]float64 `json:"seasonal_colors,omitempty"`

	// TotalInteractions counts every ingested event, decayed or not.
	TotalInteractions int `json:"total_interactions"`

	// Seq is the monotonically increasing first-seen counter used for
	// deterministic tie-breaking.
	Seq int64 `json:"seq"`
}

func newProfileState(userID string) *profileState {
	return &profileState{
		UserID:    userID,
		Colors:    map[string]*models.PreferenceWeight{},
		Styles:    map[string]*models.PreferenceWeight{},
		Occasions: map[string]*models.PreferenceWeight{},
		Seasons:   map[string]*models.PreferenceWeight{},
	}
}

// bump applies a weight delta to one key of one dimension. Weights floor
// at zero; they never go negative.
func (s *profileState) bump(dim map[string]*models.PreferenceWeight, key string, delta float64, at time.Time) {
	if key == "" {
		return
	}
	w, ok := dim[key]
	if !ok {
		s.Seq++
		w = &models.PreferenceWeight{Key: key, FirstSeenSeq: s.Seq}
		dim[key] = w
	}
	w.Weight += delta
	if w.Weight < 0 {
		w.Weight = 0
	}
	w.Frequency++
	if at.After(w.LastUpdatedAt) {
		w.LastUpdatedAt = at
	}
}

// apply folds one event into the state. delta is the already-decayed
// weight contribution.
func (s *profileState) apply(ev *models.InteractionEvent, delta float64) {
	at := ev.Timestamp

	for _, c := range ev.Attributes.Colors {
		s.bump(s.Colors, c, delta, at)
	}
	if ev.Type == models.EventHoveredColor && ev.ColorHex != "" {
		s.bump(s.Colors, ev.ColorHex, delta, at)
	}
	for _, st := range ev.Attributes.Styles {
		s.bump(s.Styles, st, delta, at)
	}
	s.bump(s.Occasions, ev.Attributes.Occasion, delta, at)
	s.bump(s.Seasons, ev.Attributes.Season, delta, at)

	if ev.Type == models.EventClickedShopping && ev.Platform != "" {
		if s.PlatformClicks == nil {
			s.PlatformClicks = map[string]int{}
		}
		s.PlatformClicks[ev.Platform]++
	}

	if ev.Type == models.EventWore {
		s.recordWorn(ev, delta)
	}

	if season := ev.Attributes.Season; season != "" && delta > 0 {
		if s.SeasonalColors == nil {
			s.SeasonalColors = map[string]map[string]float64{}
		}
		if s.SeasonalColors[season] == nil {
			s.SeasonalColors[season] = map[string]float64{}
		}
		for _, c := range ev.Attributes.Colors {
			s.SeasonalColors[season][c] += delta
		}
	}

	s.TotalInteractions++
}

// recordWorn tracks color combinations proven by wear events.
func (s *profileState) recordWorn(ev *models.InteractionEvent, _ float64) {
	if len(ev.Attributes.Colors) < 2 {
		return
	}
	colors := append([]string(nil), ev.Attributes.Colors...)
	sort.Strings(colors)

	for i := range s.ProvenCombinations {
		if equalColors(s.ProvenCombinations[i].Colors, colors) {
			s.ProvenCombinations[i].TimesWorn++
			if ev.Timestamp.After(s.ProvenCombinations[i].LastWorn) {
				s.ProvenCombinations[i].LastWorn = ev.Timestamp
			}
			return
		}
	}
	s.ProvenCombinations = append(s.ProvenCombinations, models.ColorCombination{
		Colors:    colors,
		TimesWorn: 1,
		LastWorn:  ev.Timestamp,
	})
}

func equalColors(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
