// Outfitter - Preference Learning and Recommendation Diversification
// Copyright 2026 Maren Hollis (marenhollis)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/marenhollis/outfitter

package aggregator

import (
	"sort"
	"strconv"
	"strings"

	"github.com/marenhollis/outfitter/internal/models"
)

// derive computes the consumer-facing profile from the raw aggregation
// state: confidence tier, color biases, seasonal segmentation and sorted
// proven combinations.
func (a *Aggregator) derive(state *profileState) *models.ComprehensivePreferences {
	tier, confidence := a.tierFor(state.TotalInteractions)

	prefs := &models.ComprehensivePreferences{
		UserID:            state.UserID,
		Colors:            state.Colors,
		Styles:            state.Styles,
		Occasions:         state.Occasions,
		Seasons:           state.Seasons,
		PlatformClicks:    state.PlatformClicks,
		TotalInteractions: state.TotalInteractions,
		Tier:              tier,
		Confidence:        confidence,
		ComputedAt:        a.now().UTC(),
	}

	topN := a.cfg.TopColors
	topColors := models.TopKeys(state.Colors, topN)
	prefs.TemperatureBias = temperatureBias(topColors)
	prefs.IntensityBias = intensityBias(topColors)

	if len(state.SeasonalColors) > 0 {
		prefs.SeasonalColors = make(map[string][]string, len(state.SeasonalColors))
		for season, colors := range state.SeasonalColors {
			prefs.SeasonalColors[season] = topWeighted(colors, topN)
		}
	}

	if len(state.ProvenCombinations) > 0 {
		combos := append([]models.ColorCombination(nil), state.ProvenCombinations...)
		sort.Slice(combos, func(i, j int) bool {
			if combos[i].TimesWorn != combos[j].TimesWorn {
				return combos[i].TimesWorn > combos[j].TimesWorn
			}
			return combos[i].LastWorn.After(combos[j].LastWorn)
		})
		prefs.ProvenCombinations = combos
	}

	return prefs
}

// tierFor maps an interaction count onto a confidence tier.
func (a *Aggregator) tierFor(total int) (models.ConfidenceTier, float64) {
	t := a.cfg.Tiers
	switch {
	case total >= t.VeryHigh:
		return models.TierVeryHigh, t.VeryHighPercent
	case total >= t.High:
		return models.TierHigh, t.HighPercent
	case total >= t.Medium:
		return models.TierMedium, t.MediumPercent
	default:
		return models.TierLow, t.LowPercent
	}
}

// topWeighted returns up to n keys of a weight map, highest first, ties
// broken lexically.
func topWeighted(weights map[string]float64, n int) []string {
	keys := make([]string, 0, len(weights))
	for k := range weights {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if weights[keys[i]] != weights[keys[j]] {
			return weights[keys[i]] > weights[keys[j]]
		}
		return keys[i] < keys[j]
	})
	if n > 0 && len(keys) > n {
		keys = keys[:n]
	}
	return keys
}

// temperatureBias classifies the top colors as warm, cool or neutral by
// comparing red and blue channels. Non-hex values are skipped.
func temperatureBias(colors []string) string {
	var warm, cool int
	for _, c := range colors {
		r, _, b, ok := parseHex(c)
		if !ok {
			continue
		}
		switch {
		case r > b+20:
			warm++
		case b > r+20:
			cool++
		}
	}
	switch {
	case warm == 0 && cool == 0:
		return ""
	case warm > cool:
		return "warm"
	case cool > warm:
		return "cool"
	default:
		return "neutral"
	}
}

// intensityBias classifies the top colors as bold, muted or balanced by
// their channel spread (a cheap saturation proxy).
func intensityBias(colors []string) string {
	var bold, muted int
	for _, c := range colors {
		r, g, b, ok := parseHex(c)
		if !ok {
			continue
		}
		spread := maxChannel(r, g, b) - minChannel(r, g, b)
		switch {
		case spread > 120:
			bold++
		case spread < 50:
			muted++
		}
	}
	switch {
	case bold == 0 && muted == 0:
		return ""
	case bold > muted:
		return "bold"
	case muted > bold:
		return "muted"
	default:
		return "balanced"
	}
}

// parseHex extracts RGB channels from a canonical #rrggbb color.
func parseHex(c string) (r, g, b int, ok bool) {
	c = strings.TrimPrefix(c, "#")
	if len(c) != 6 {
		return 0, 0, 0, false
	}
	v, err := strconv.ParseUint(c, 16, 32)
	if err != nil {
		return 0, 0, 0, false
	}
	return int(v >> 16 & 0xff), int(v >> 8 & 0xff), int(v & 0xff), true
}

func maxChannel(a, b, c int) int {
	m := a
	if b > m {
		m = b
	}
	if c > m {
		m = c
	}
	return m
}

func minChannel(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}
