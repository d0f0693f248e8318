// Outfitter - Preference Learning and Recommendation Diversification
// Copyright 2026 Maren Hollis (marenhollis)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/marenhollis/outfitter

package diversify

import (
	"fmt"

	"github.com/marenhollis/outfitter/internal/models"
)

// neutralComponent is the component score used when a profile carries no
// signal for a dimension. Cold-start candidates land around 50, squarely
// in the exploring category.
const neutralComponent = 0.5

// scored pairs a candidate with its alignment score before partitioning.
type scored struct {
	candidate     models.Candidate
	score         float64
	category      models.MatchCategory
	explanation   string
	softPenalized bool
	order         int
}

// scoreCandidate computes the 0-100 alignment score of a candidate against
// a profile. Each dimension contributes a 0-1 component weighted by the
// configured split; dimensions the profile knows nothing about contribute
// the neutral component so cold users see honest mid-range scores.
func (d *Diversifier) scoreCandidate(c *models.Candidate, prefs *models.ComprehensivePreferences) (float64, string) {
	topColors := prefs.TopColors(d.topN)
	topStyles := prefs.TopStyles(d.topN)
	topOccasions := prefs.TopOccasions(d.topN)

	colorScore, bestColor := matchComponent(c.Attributes.Colors, topColors)
	styleScore, bestStyle := matchComponent(c.Attributes.Styles, topStyles)
	occasionScore, bestOccasion := matchComponent(occasionSlice(c.Attributes.Occasion), topOccasions)

	cw, sw, ow := d.cfg.ColorWeight, d.cfg.StyleWeight, d.cfg.OccasionWeight
	total := cw + sw + ow
	score := 100 * (cw*colorScore + sw*styleScore + ow*occasionScore) / total

	// Proven combinations are the strongest signal: wearing these colors
	// together is direct evidence, so a full match lifts the score.
	if comboBoost(c.Attributes.Colors, prefs.ProvenCombinations) {
		score += 10
		if score > 100 {
			score = 100
		}
		return score, fmt.Sprintf("pairs %s, a combination you have worn before", bestColor)
	}

	return score, d.explain(prefs, bestColor, bestStyle, bestOccasion)
}

// matchComponent returns a 0-1 alignment for candidate values against a
// ranked preference list, plus the best-matching value. Higher-ranked
// preferences count more. An empty preference list is neutral.
func matchComponent(values, ranked []string) (float64, string) {
	if len(ranked) == 0 {
		return neutralComponent, ""
	}
	if len(values) == 0 {
		return 0, ""
	}
	best := 0.0
	bestVal := ""
	for _, v := range values {
		for rank, r := range ranked {
			if v != r {
				continue
			}
			weight := 1.0 - float64(rank)/float64(len(ranked))
			if weight > best {
				best = weight
				bestVal = v
			}
		}
	}
	return best, bestVal
}

// comboBoost reports whether the candidate colors contain a proven
// combination in full.
func comboBoost(colors []string, combos []models.ColorCombination) bool {
	if len(colors) == 0 {
		return false
	}
	set := make(map[string]struct{}, len(colors))
	for _, c := range colors {
		set[c] = struct{}{}
	}
	for _, combo := range combos {
		all := true
		for _, c := range combo.Colors {
			if _, ok := set[c]; !ok {
				all = false
				break
			}
		}
		if all && len(combo.Colors) >= 2 {
			return true
		}
	}
	return false
}

// explain names the specific preference driving the score. Cold profiles
// never get personalization language: there is nothing learned to cite.
func (d *Diversifier) explain(prefs *models.ComprehensivePreferences, color, style, occasion string) string {
	if prefs.IsCold() {
		return "a fresh look to try"
	}
	switch {
	case color != "" && style != "":
		return fmt.Sprintf("features %s in your preferred %s style", color, style)
	case color != "":
		return fmt.Sprintf("features %s, one of your favorite colors", color)
	case style != "":
		return fmt.Sprintf("matches your preferred %s style", style)
	case occasion != "":
		return fmt.Sprintf("suits the %s occasions you favor", occasion)
	default:
		return "something different from your usual picks"
	}
}

// categorize buckets a score by the configured thresholds.
func (d *Diversifier) categorize(score float64) models.MatchCategory {
	switch {
	case score >= d.cfg.PerfectThreshold:
		return models.CategoryPerfect
	case score >= d.cfg.GreatThreshold:
		return models.CategoryGreat
	default:
		return models.CategoryExploring
	}
}

func occasionSlice(o string) []string {
	if o == "" {
		return nil
	}
	return []string{o}
}
