// Outfitter - Preference Learning and Recommendation Diversification
// Copyright 2026 Maren Hollis (marenhollis)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/marenhollis/outfitter

// Package blocklist maintains the three-tier negative-constraint sets and
// exposes the scoring verdict the diversifier applies.
//
// Tiers: hard entries are never shown, soft entries halve the score and
// accumulate toward auto-promotion, temporary entries suppress exact
// attribute combinations for a rolling window and self-expire.
package blocklist

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/marenhollis/outfitter/internal/config"
	"github.com/marenhollis/outfitter/internal/metrics"
	"github.com/marenhollis/outfitter/internal/models"
	"github.com/marenhollis/outfitter/internal/store"
)

// AutoPromotedReason annotates entries moved from soft to hard.
const AutoPromotedReason = "auto-promoted"

// Manager owns a user's blocklists document.
type Manager struct {
	store  store.Store
	cfg    config.BlocklistConfig
	logger zerolog.Logger
	now    func() time.Time
}

// NewManager creates a blocklist manager.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewManager(st store.Store, cfg config.BlocklistConfig, logger zerolog.Logger) *Manager {
	return &Manager{
		store:  st,
		cfg:    cfg,
		logger: logger.With().Str("component", "blocklist").Logger(),
		now:    time.Now,
	}
}

// update applies fn to the user's blocklists under optimistic concurrency.
func (m *Manager) update(ctx context.Context, userID string, fn func(bl *models.Blocklists)) error {
	key := store.BlocklistKey(userID)
	return m.store.ReadModifyWrite(ctx, key, func(current []byte) ([]byte, error) {
		bl := models.EmptyBlocklists(userID)
		if current != nil {
			if err := json.Unmarshal(current, bl); err != nil {
				return nil, fmt.Errorf("decode blocklists for %s: %w", userID, err)
			}
		}
		fn(bl)
		return json.Marshal(bl)
	})
}

// AddHard adds a value to the hard set. Adding an existing value refreshes
// nothing; the first reason wins.
func (m *Manager) AddHard(ctx context.Context, userID, value, reason string) error {
	value = normalize(value)
	if value == "" {
		return fmt.Errorf("blocklist value must not be empty")
	}
	return m.update(ctx, userID, func(bl *models.Blocklists) {
		addHardEntry(bl, value, reason, m.now())
	})
}

// AddSoft adds a value to the soft set, or increments its ignore count when
// already present. Crossing the promotion threshold moves the entry to the
// hard set immediately; the check runs on every soft add, not on a schedule.
func (m *Manager) AddSoft(ctx context.Context, userID, value, reason string) error {
	value = normalize(value)
	if value == "" {
		return fmt.Errorf("blocklist value must not be empty")
	}
	promoted := false
	err := m.update(ctx, userID, func(bl *models.Blocklists) {
		promoted = false
		now := m.now()
		for i := range bl.Soft {
			if bl.Soft[i].Value != value {
				continue
			}
			bl.Soft[i].IgnoreCount++
			if bl.Soft[i].IgnoreCount >= m.cfg.PromoteAfter {
				addHardEntry(bl, value, AutoPromotedReason, now)
				bl.Soft = append(bl.Soft[:i], bl.Soft[i+1:]...)
				promoted = true
			}
			return
		}
		bl.Soft = append(bl.Soft, models.SoftBlockEntry{
			Value:       value,
			Reason:      reason,
			IgnoreCount: 1,
			AddedAt:     now,
		})
	})
	if err != nil {
		return err
	}
	if promoted {
		metrics.SoftPromotions.Inc()
		m.logger.Info().
			Str("user", userID).
			Str("value", value).
			Msg("soft blocklist entry promoted to hard")
	}
	return nil
}

// AddTemporary records an attribute-combination signature for the
// anti-repetition window. The list is capped; the oldest entries are
// evicted on overflow.
func (m *Manager) AddTemporary(ctx context.Context, userID, signature string) error {
	signature = normalize(signature)
	if signature == "" {
		return fmt.Errorf("blocklist signature must not be empty")
	}
	return m.update(ctx, userID, func(bl *models.Blocklists) {
		now := m.now()
		for i := range bl.Temporary {
			if bl.Temporary[i].Signature == signature {
				bl.Temporary[i].RecommendedAt = now
				bl.Temporary[i].ExpiresAt = now.Add(m.cfg.TemporaryTTL)
				return
			}
		}
		bl.Temporary = append(bl.Temporary, models.TempBlockEntry{
			Signature:     signature,
			RecommendedAt: now,
			ExpiresAt:     now.Add(m.cfg.TemporaryTTL),
		})
		if over := len(bl.Temporary) - m.cfg.TemporaryCap; over > 0 {
			bl.Temporary = bl.Temporary[over:]
		}
	})
}

// Get returns the user's blocklists with expired temporary entries already
// filtered out. A missing document or a transient store failure yields an
// empty set: constraints degrade open rather than blocking recommendations,
// with the exception that hard constraints never degrade silently once
// loaded.
func (m *Manager) Get(ctx context.Context, userID string) (*models.Blocklists, error) {
	doc, err := m.store.Get(ctx, store.BlocklistKey(userID))
	if errors.Is(err, store.ErrNotFound) {
		return models.EmptyBlocklists(userID), nil
	}
	if err != nil {
		if store.IsTransient(err) {
			m.logger.Warn().Err(err).Str("user", userID).Msg("blocklist read degraded to empty")
			return models.EmptyBlocklists(userID), nil
		}
		return nil, err
	}

	bl := models.EmptyBlocklists(userID)
	if err := json.Unmarshal(doc.Data, bl); err != nil {
		return nil, fmt.Errorf("decode blocklists for %s: %w", userID, err)
	}

	// Lazy TTL filter: expired entries are absent without a sweep.
	now := m.now()
	kept := bl.Temporary[:0]
	for _, e := range bl.Temporary {
		if !e.Expired(now) {
			kept = append(kept, e)
		}
	}
	bl.Temporary = kept
	return bl, nil
}

// Reset removes all blocklists for a user.
func (m *Manager) Reset(ctx context.Context, userID string) error {
	return m.store.Delete(ctx, store.BlocklistKey(userID))
}

// Evaluate produces the scoring verdict for a candidate's attributes and
// combination signature against an already-loaded blocklist set. Hard
// matches exclude unconditionally; soft matches halve the score; unexpired
// temporary matches exclude for anti-repetition only.
func (m *Manager) Evaluate(bl *models.Blocklists, attributes []string, signature string) models.BlockVerdict {
	return Evaluate(bl, attributes, signature, m.cfg.SoftPenalty, m.now())
}

// Evaluate is the pure verdict function. Exposed for the diversifier.
func Evaluate(bl *models.Blocklists, attributes []string, signature string, softPenalty float64, now time.Time) models.BlockVerdict {
	verdict := models.BlockVerdict{PenaltyMultiplier: 1.0, MatchedTier: models.BlockTierNone}
	if bl == nil {
		return verdict
	}

	attrSet := make(map[string]struct{}, len(attributes))
	for _, a := range attributes {
		attrSet[normalize(a)] = struct{}{}
	}

	for _, h := range bl.Hard {
		if _, ok := attrSet[h.Value]; ok {
			return models.BlockVerdict{
				Excluded:          true,
				PenaltyMultiplier: 0,
				MatchedTier:       models.BlockTierHard,
				MatchedValue:      h.Value,
			}
		}
	}

	for _, t := range bl.Temporary {
		if t.Signature == normalize(signature) && !t.Expired(now) {
			return models.BlockVerdict{
				Excluded:          true,
				PenaltyMultiplier: 0,
				MatchedTier:       models.BlockTierTemporary,
				MatchedValue:      t.Signature,
			}
		}
	}

	for _, s := range bl.Soft {
		if _, ok := attrSet[s.Value]; ok {
			return models.BlockVerdict{
				Excluded:          false,
				PenaltyMultiplier: softPenalty,
				MatchedTier:       models.BlockTierSoft,
				MatchedValue:      s.Value,
			}
		}
	}

	return verdict
}

func addHardEntry(bl *models.Blocklists, value, reason string, now time.Time) {
	for _, h := range bl.Hard {
		if h.Value == value {
			return
		}
	}
	bl.Hard = append(bl.Hard, models.HardBlockEntry{Value: value, Reason: reason, AddedAt: now})
}

func normalize(v string) string {
	return strings.ToLower(strings.TrimSpace(v))
}
