// Outfitter - Preference Learning and Recommendation Diversification
// Copyright 2026 Maren Hollis (marenhollis)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/marenhollis/outfitter

// Package diversify turns a raw candidate pool into an annotated, ranked
// recommendation set.
//
// Selection runs in five steps: hard filtering against the blocklists,
// 0-100 preference scoring, soft penalties, slot partitioning across the
// perfect/great/exploring categories, and annotation. Exploration is
// engineered, not emergent: a fixed share of every response is reserved
// for candidates outside the user's learned comfort zone, and widened when
// confidence is low or recent output has pattern-locked.
package diversify

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/marenhollis/outfitter/internal/config"
	"github.com/marenhollis/outfitter/internal/metrics"
	"github.com/marenhollis/outfitter/internal/models"
	"github.com/marenhollis/outfitter/internal/store"
)

// ProfileSource supplies preference profiles.
type ProfileSource interface {
	ComputeProfile(ctx context.Context, userID string) *models.ComprehensivePreferences
}

// BlocklistSource supplies constraint sets and verdicts, and records
// served combinations for anti-repetition.
type BlocklistSource interface {
	Get(ctx context.Context, userID string) (*models.Blocklists, error)
	Evaluate(bl *models.Blocklists, attributes []string, signature string) models.BlockVerdict
	AddTemporary(ctx context.Context, userID, signature string) error
}

// Diversifier selects and annotates recommendation candidates.
type Diversifier struct {
	profiles   ProfileSource
	blocklists BlocklistSource
	store      store.Store
	cfg        config.DiversifyConfig
	topN       int
	logger     zerolog.Logger
	now        func() time.Time
}

// New creates a diversifier.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func New(profiles ProfileSource, blocklists BlocklistSource, st store.Store, cfg config.DiversifyConfig, topN int, logger zerolog.Logger) *Diversifier {
	return &Diversifier{
		profiles:   profiles,
		blocklists: blocklists,
		store:      st,
		cfg:        cfg,
		topN:       topN,
		logger:     logger.With().Str("component", "diversify").Logger(),
		now:        time.Now,
	}
}

// SetClock overrides the time source. Tests only.
func (d *Diversifier) SetClock(now func() time.Time) { d.now = now }

// Recommend selects up to limit candidates for a user, scores and
// categorizes them, fills the category slots, and records the served
// combinations for anti-repetition and pattern-lock detection.
//
// The hard-blocklist invariant is absolute: no relaxation step ever
// reintroduces a hard-excluded candidate. A pool too thin to fill the
// slots returns a best-effort subset flagged InsufficientDiversity rather
// than an error.
func (d *Diversifier) Recommend(ctx context.Context, userID string, candidates []models.Candidate, limit int) (*models.RecommendationResult, error) {
	metrics.RecommendationRequests.Inc()
	started := d.now()
	defer func() {
		metrics.RecommendationLatency.Observe(time.Since(started).Seconds())
	}()

	if limit <= 0 {
		limit = 10
	}

	prefs := d.profiles.ComputeProfile(ctx, userID)
	bl, err := d.blocklists.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	eligible := make([]scored, 0, len(candidates))
	for i := range candidates {
		c := &candidates[i]
		verdict := d.blocklists.Evaluate(bl, c.Attributes.All(), c.Attributes.Signature())
		if verdict.Excluded {
			if verdict.MatchedTier == models.BlockTierHard {
				metrics.CandidatesHardExcluded.Inc()
			}
			continue
		}
		score, explanation := d.scoreCandidate(c, prefs)
		penalized := verdict.MatchedTier == models.BlockTierSoft
		if penalized {
			score *= verdict.PenaltyMultiplier
		}
		eligible = append(eligible, scored{
			candidate:     *c,
			score:         score,
			category:      d.categorize(score),
			explanation:   explanation,
			softPenalized: penalized,
			order:         i,
		})
	}

	lock := d.detectLock(d.history(ctx, userID))
	if lock.locked {
		metrics.PatternLocksDetected.Inc()
		d.logger.Info().
			Str("user", userID).
			Str("attribute", lock.attribute).
			Msg("pattern lock detected, forcing divergent exploration")
	}

	selected := d.fillSlots(eligible, prefs.Tier, lock, limit)

	result := &models.RecommendationResult{
		Candidates:    make([]models.AnnotatedCandidate, 0, len(selected)),
		PatternLocked: lock.locked,
	}
	served := make([]models.RecommendationRecord, 0, len(selected))
	at := d.now().UTC()
	for i := range selected {
		s := &selected[i]
		result.Candidates = append(result.Candidates, models.AnnotatedCandidate{
			Candidate:     s.candidate,
			MatchScore:    s.score,
			MatchCategory: s.category,
			Explanation:   s.explanation,
			Position:      i + 1,
			SoftPenalized: s.softPenalized,
		})
		served = append(served, models.RecommendationRecord{
			UserID:        userID,
			Signature:     s.candidate.Attributes.Signature(),
			DominantColor: firstOf(s.candidate.Attributes.Colors),
			DominantStyle: firstOf(s.candidate.Attributes.Styles),
			RecommendedAt: at,
		})
	}

	if len(result.Candidates) < limit {
		result.InsufficientDiversity = true
		metrics.InsufficientDiversity.Inc()
	}

	// Serving is recording: every returned combination enters the
	// anti-repetition window and the pattern-lock history. Bookkeeping
	// failures are logged, not surfaced; the response is already chosen.
	for _, r := range served {
		if terr := d.blocklists.AddTemporary(ctx, userID, r.Signature); terr != nil {
			d.logger.Warn().Err(terr).Str("user", userID).Msg("anti-repetition record failed")
		}
	}
	if herr := d.recordServed(ctx, userID, served); herr != nil {
		d.logger.Warn().Err(herr).Str("user", userID).Msg("recommendation history append failed")
	}

	return result, nil
}

// fillSlots partitions limit output positions across the three categories
// and fills them highest-score-first. Low-confidence profiles use the
// exploration-heavy ratios. Shortfalls in one category backfill from the
// others; under a pattern lock the exploratory slots only accept
// candidates sufficiently far from the locked attribute.
func (d *Diversifier) fillSlots(eligible []scored, tier models.ConfidenceTier, lock lockState, limit int) []scored {
	sort.SliceStable(eligible, func(i, j int) bool {
		if eligible[i].score != eligible[j].score {
			return eligible[i].score > eligible[j].score
		}
		return eligible[i].order < eligible[j].order
	})

	ratios := d.cfg.Slots
	if tier == models.TierLow {
		ratios = d.cfg.LowConfidenceSlots
	}
	perfectN := int(float64(limit)*ratios.Perfect + 0.5)
	greatN := int(float64(limit)*ratios.Great + 0.5)
	if perfectN+greatN > limit {
		greatN = limit - perfectN
	}
	exploringN := limit - perfectN - greatN

	buckets := map[models.MatchCategory][]scored{}
	for _, s := range eligible {
		buckets[s.category] = append(buckets[s.category], s)
	}

	used := make(map[int]bool, limit)
	var out []scored

	take := func(bucket []scored, n int, divergent bool) {
		for _, s := range bucket {
			if n <= 0 {
				return
			}
			if used[s.order] {
				continue
			}
			if divergent && d.tooSimilar(&s.candidate, lock) {
				continue
			}
			used[s.order] = true
			out = append(out, s)
			n--
		}
	}

	take(buckets[models.CategoryPerfect], perfectN, false)
	take(buckets[models.CategoryGreat], greatN, false)
	take(buckets[models.CategoryExploring], exploringN, lock.locked)

	// Backfill shortfalls from the whole eligible pool. Exploratory
	// divergence is preserved first; if the pool still cannot fill the
	// response, the similarity constraint is relaxed before giving up.
	// The hard blocklist is never relaxed: excluded candidates are not in
	// the pool at all.
	if len(out) < limit {
		take(eligible, limit-len(out), lock.locked)
	}
	if len(out) < limit {
		take(eligible, limit-len(out), false)
	}

	return out
}

func firstOf(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}
