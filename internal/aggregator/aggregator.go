// Outfitter - Preference Learning and Recommendation Diversification
// Copyright 2026 Maren Hollis (marenhollis)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/marenhollis/outfitter

// Package aggregator turns accumulated interaction events into weighted
// preference profiles with a confidence tier.
//
// Ingestion applies outcomeWeight(type) x recencyMultiplier(age) to every
// attribute the event touched, under optimistic read-modify-write so
// concurrent writers (two browser tabs liking outfits near-simultaneously)
// never silently lose updates. Profile reads are served from a short-TTL
// cache; every write invalidates the cache before it is acknowledged.
//
// "No data" is a valid state here, never an error: cold start returns a
// well-formed empty profile at the low confidence tier, and transient store
// failures degrade to the same rather than blocking the recommendation path.
package aggregator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/marenhollis/outfitter/internal/cache"
	"github.com/marenhollis/outfitter/internal/config"
	"github.com/marenhollis/outfitter/internal/metrics"
	"github.com/marenhollis/outfitter/internal/models"
	"github.com/marenhollis/outfitter/internal/store"
	"github.com/marenhollis/outfitter/internal/validation"
)

// Aggregator maintains per-user preference profiles.
type Aggregator struct {
	store   store.Store
	cfg     config.AggregatorConfig
	weights map[models.EventType]float64
	profile *cache.Cache[*models.ComprehensivePreferences]
	seen    *cache.Cache[struct{}]
	logger  zerolog.Logger
	now     func() time.Time
}

// New creates an aggregator backed by st.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func New(st store.Store, cfg config.AggregatorConfig, logger zerolog.Logger) *Aggregator {
	return &Aggregator{
		store:   st,
		cfg:     cfg,
		weights: cfg.OutcomeWeights(),
		profile: cache.New[*models.ComprehensivePreferences](cfg.ProfileCacheSize, cfg.ProfileCacheTTL),
		seen:    cache.New[struct{}](cfg.DedupCacheSize, 24*time.Hour),
		logger:  logger.With().Str("component", "aggregator").Logger(),
		now:     time.Now,
	}
}

// SetClock overrides the time source. Tests only.
func (a *Aggregator) SetClock(now func() time.Time) { a.now = now }

// ProfileCache exposes the cache for the supervised janitor.
func (a *Aggregator) ProfileCache() *cache.Cache[*models.ComprehensivePreferences] {
	return a.profile
}

// Ingest validates, deduplicates and folds one event into the user's
// profile. Replaying an event id is a no-op: weights are unchanged.
func (a *Aggregator) Ingest(ctx context.Context, ev *models.InteractionEvent) error {
	if verr := validation.ValidateEvent(ev); verr != nil {
		metrics.EventsRejected.Inc()
		return verr
	}

	dedupKey := ev.UserID + ":" + ev.ID
	if _, dup := a.seen.Get(dedupKey); dup {
		metrics.EventsDeduplicated.Inc()
		return nil
	}
	marker := store.MarkerKey(ev.UserID, ev.ID)
	exists, err := a.store.Exists(ctx, marker)
	if err != nil {
		// A failed marker read cannot prove the event is new. Refusing
		// ingestion keeps replays idempotent; the caller retries.
		return fmt.Errorf("check event marker %s: %w", ev.ID, err)
	}
	if exists {
		a.seen.Set(dedupKey, struct{}{})
		metrics.EventsDeduplicated.Inc()
		return nil
	}

	// Invalidate before commit: a stale cached profile must never win a
	// race against this write.
	a.profile.Delete(ev.UserID)

	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event %s: %w", ev.ID, err)
	}
	if err := a.store.Append(ctx, store.EventKey(ev.UserID, ev.Timestamp, ev.ID), payload); err != nil {
		return fmt.Errorf("append event %s: %w", ev.ID, err)
	}
	if err := a.store.Append(ctx, marker, []byte(`{}`)); err != nil {
		return fmt.Errorf("write event marker %s: %w", ev.ID, err)
	}

	delta := a.weights[ev.Type] * a.recencyMultiplier(a.now().Sub(ev.Timestamp))
	err = a.store.ReadModifyWrite(ctx, store.ProfileKey(ev.UserID), func(current []byte) ([]byte, error) {
		state := newProfileState(ev.UserID)
		if current != nil {
			if uerr := json.Unmarshal(current, state); uerr != nil {
				return nil, fmt.Errorf("decode profile state for %s: %w", ev.UserID, uerr)
			}
		}
		state.apply(ev, delta)
		return json.Marshal(state)
	})
	if err != nil {
		return fmt.Errorf("aggregate event %s: %w", ev.ID, err)
	}

	// Invalidate again before acknowledging: a reader may have repopulated
	// the cache from the old state while the write was in flight.
	a.profile.Delete(ev.UserID)
	a.seen.Set(dedupKey, struct{}{})

	metrics.EventsIngested.WithLabelValues(string(ev.Type)).Inc()
	a.logger.Debug().
		Str("user", ev.UserID).
		Str("type", string(ev.Type)).
		Float64("delta", delta).
		Msg("event aggregated")
	return nil
}

// recencyMultiplier returns the tiered decay factor for an event age.
// Events beyond the horizon still count toward interaction totals but
// contribute close to nothing.
func (a *Aggregator) recencyMultiplier(age time.Duration) float64 {
	d := a.cfg.Decay
	days := age.Hours() / 24
	switch {
	case days <= float64(d.RecentDays):
		return d.RecentMultiplier
	case days <= float64(d.MidDays):
		return d.MidMultiplier
	case days <= float64(d.OldDays):
		return d.OldMultiplier
	default:
		return d.HorizonMultiplier
	}
}

// ComputeProfile returns the user's profile, from cache when fresh.
// Every failure mode degrades to a valid cold-start profile; this method
// never blocks the recommendation path on the store.
func (a *Aggregator) ComputeProfile(ctx context.Context, userID string) *models.ComprehensivePreferences {
	if cached, ok := a.profile.Get(userID); ok {
		metrics.ProfileCacheHits.Inc()
		return cached
	}
	metrics.ProfileCacheMisses.Inc()

	doc, err := a.store.Get(ctx, store.ProfileKey(userID))
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			metrics.ProfileColdStarts.Inc()
			a.logger.Warn().Err(err).Str("user", userID).Msg("profile read degraded to cold start")
		}
		// Cold start (or degraded read) is a valid profile, but only the
		// genuine empty state is worth caching.
		empty := models.EmptyPreferences(userID)
		if errors.Is(err, store.ErrNotFound) {
			a.profile.Set(userID, empty)
		}
		return empty
	}

	state := newProfileState(userID)
	if uerr := json.Unmarshal(doc.Data, state); uerr != nil {
		a.logger.Error().Err(uerr).Str("user", userID).Msg("corrupt profile state, serving cold start")
		return models.EmptyPreferences(userID)
	}

	prefs := a.derive(state)
	a.profile.Set(userID, prefs)
	metrics.ProfileComputations.Inc()
	return prefs
}

// Events returns a user's raw events inside [from, to), oldest first.
func (a *Aggregator) Events(ctx context.Context, userID string, from, to time.Time) ([]models.InteractionEvent, error) {
	var events []models.InteractionEvent
	err := a.store.ScanPrefix(ctx, store.EventPrefix(userID), func(_ string, data []byte) error {
		var ev models.InteractionEvent
		if uerr := json.Unmarshal(data, &ev); uerr != nil {
			return fmt.Errorf("decode event: %w", uerr)
		}
		if (from.IsZero() || !ev.Timestamp.Before(from)) && (to.IsZero() || ev.Timestamp.Before(to)) {
			events = append(events, ev)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}

// Reset deletes all preference data for a user. This is the only path that
// removes PreferenceWeight entries.
func (a *Aggregator) Reset(ctx context.Context, userID string) error {
	a.profile.Delete(userID)
	for _, prefix := range []string{store.EventPrefix(userID), store.MarkerPrefix(userID)} {
		if err := a.store.DeletePrefix(ctx, prefix); err != nil {
			return fmt.Errorf("reset %s: %w", userID, err)
		}
	}
	if err := a.store.Delete(ctx, store.ProfileKey(userID)); err != nil {
		return fmt.Errorf("reset profile %s: %w", userID, err)
	}
	a.profile.Delete(userID)
	a.logger.Info().Str("user", userID).Msg("user preference data reset")
	return nil
}
