// Outfitter - Preference Learning and Recommendation Diversification
// Copyright 2026 Maren Hollis (marenhollis)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/marenhollis/outfitter

package diversify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/goccy/go-json"

	"github.com/marenhollis/outfitter/internal/models"
	"github.com/marenhollis/outfitter/internal/store"
)

// lockState describes a detected pattern lock: the dominant attribute that
// recent recommendations converged on, plus everything else served across
// the window for measuring how far a candidate actually diverges.
type lockState struct {
	locked    bool
	attribute string
	window    []string
}

// history loads a user's recent-recommendation records, newest last.
// A missing document or transient failure yields an empty history; lock
// detection simply does not trip.
func (d *Diversifier) history(ctx context.Context, userID string) []models.RecommendationRecord {
	doc, err := d.store.Get(ctx, store.HistoryKey(userID))
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			d.logger.Warn().Err(err).Str("user", userID).Msg("history read degraded to empty")
		}
		return nil
	}
	var records []models.RecommendationRecord
	if uerr := json.Unmarshal(doc.Data, &records); uerr != nil {
		d.logger.Error().Err(uerr).Str("user", userID).Msg("corrupt recommendation history, ignoring")
		return nil
	}
	return records
}

// detectLock inspects the last PatternWindow records for a dominant color
// or style. When one attribute accounts for at least PatternThreshold of
// the window, output has converged and the exploratory slots must diverge.
func (d *Diversifier) detectLock(records []models.RecommendationRecord) lockState {
	window := d.cfg.PatternWindow
	if len(records) < window {
		return lockState{}
	}
	recent := records[len(records)-window:]

	colors := map[string]int{}
	styles := map[string]int{}
	for _, r := range recent {
		if r.DominantColor != "" {
			colors[r.DominantColor]++
		}
		if r.DominantStyle != "" {
			styles[r.DominantStyle]++
		}
	}

	threshold := int(float64(window)*d.cfg.PatternThreshold + 0.5)
	for attr, n := range colors {
		if n >= threshold {
			return lockState{locked: true, attribute: attr, window: windowAttributes(recent)}
		}
	}
	for attr, n := range styles {
		if n >= threshold {
			return lockState{locked: true, attribute: attr, window: windowAttributes(recent)}
		}
	}
	return lockState{}
}

// windowAttributes collects every attribute served across the window,
// recovered from the record signatures.
func windowAttributes(recent []models.RecommendationRecord) []string {
	set := map[string]struct{}{}
	for _, r := range recent {
		for _, part := range strings.Split(r.Signature, "|") {
			if part != "" {
				set[part] = struct{}{}
			}
		}
	}
	out := make([]string, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	return out
}

// tooSimilar reports whether a candidate is too close to the locked
// pattern to serve as an exploratory pick. Carrying the locked attribute
// at all disqualifies outright, no matter how many other attributes the
// candidate has; beyond that, similarity is the Jaccard index between the
// candidate's attribute set and everything served across the locked window.
func (d *Diversifier) tooSimilar(c *models.Candidate, lock lockState) bool {
	if !lock.locked {
		return false
	}
	locked := strings.ToLower(strings.TrimSpace(lock.attribute))
	for _, a := range c.Attributes.All() {
		if strings.ToLower(strings.TrimSpace(a)) == locked {
			return true
		}
	}
	return jaccard(c.Attributes.All(), lock.window) > d.cfg.LockSimilarityCeiling
}

// jaccard computes |a∩b| / |a∪b| over normalized attribute values.
func jaccard(a, b []string) float64 {
	setA := make(map[string]struct{}, len(a))
	for _, v := range a {
		setA[strings.ToLower(strings.TrimSpace(v))] = struct{}{}
	}
	setB := make(map[string]struct{}, len(b))
	for _, v := range b {
		setB[strings.ToLower(strings.TrimSpace(v))] = struct{}{}
	}
	if len(setA) == 0 && len(setB) == 0 {
		return 0
	}
	inter := 0
	for v := range setA {
		if _, ok := setB[v]; ok {
			inter++
		}
	}
	union := len(setA) + len(setB) - inter
	return float64(inter) / float64(union)
}

// ResetHistory removes a user's recommendation history.
func (d *Diversifier) ResetHistory(ctx context.Context, userID string) error {
	return d.store.Delete(ctx, store.HistoryKey(userID))
}

// recordServed appends one record per served candidate to the user's
// history, capped at HistoryCap with oldest-first eviction.
func (d *Diversifier) recordServed(ctx context.Context, userID string, served []models.RecommendationRecord) error {
	if len(served) == 0 {
		return nil
	}
	return d.store.ReadModifyWrite(ctx, store.HistoryKey(userID), func(current []byte) ([]byte, error) {
		var records []models.RecommendationRecord
		if current != nil {
			if err := json.Unmarshal(current, &records); err != nil {
				return nil, fmt.Errorf("decode history for %s: %w", userID, err)
			}
		}
		records = append(records, served...)
		if over := len(records) - d.cfg.HistoryCap; over > 0 {
			records = records[over:]
		}
		return json.Marshal(records)
	})
}
