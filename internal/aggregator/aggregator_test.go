// Outfitter - Preference Learning and Recommendation Diversification
// Copyright 2026 Maren Hollis (marenhollis)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/marenhollis/outfitter

package aggregator

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/marenhollis/outfitter/internal/config"
	"github.com/marenhollis/outfitter/internal/models"
	"github.com/marenhollis/outfitter/internal/store"
)

var testNow = time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

func newTestAggregator(t *testing.T) *Aggregator {
	t.Helper()
	s, err := store.Open(config.StoreConfig{
		InMemory:       true,
		RetryAttempts:  3,
		RetryBaseDelay: time.Millisecond,
	}, zerolog.Nop())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	agg := New(s, config.Default().Aggregator, zerolog.Nop())
	agg.SetClock(func() time.Time { return testNow })
	return agg
}

func event(id string, et models.EventType, age time.Duration) *models.InteractionEvent {
	return &models.InteractionEvent{
		ID:        id,
		UserID:    "u1",
		Type:      et,
		Timestamp: testNow.Add(-age),
		Attributes: models.OutfitAttributes{
			Colors:   []string{"navy"},
			Styles:   []string{"casual"},
			Occasion: "work",
			Season:   "fall",
		},
	}
}

func TestIngestIdempotent(t *testing.T) {
	agg := newTestAggregator(t)
	ctx := context.Background()

	ev := event("ev-1", models.EventLiked, time.Hour)
	if err := agg.Ingest(ctx, ev); err != nil {
		t.Fatalf("ingest: %v", err)
	}
	before := agg.ComputeProfile(ctx, "u1")

	// Replay with the same id: a no-op, weights unchanged.
	if err := agg.Ingest(ctx, event("ev-1", models.EventLiked, time.Hour)); err != nil {
		t.Fatalf("replay ingest: %v", err)
	}
	after := agg.ComputeProfile(ctx, "u1")

	if after.TotalInteractions != before.TotalInteractions {
		t.Errorf("replay changed interaction count: %d -> %d", before.TotalInteractions, after.TotalInteractions)
	}
	if after.Colors["#000080"].Weight != before.Colors["#000080"].Weight {
		t.Errorf("replay changed weight: %f -> %f", before.Colors["#000080"].Weight, after.Colors["#000080"].Weight)
	}
}

// markerFlakyStore fails idempotency-marker reads on demand.
type markerFlakyStore struct {
	store.Store
	fail bool
}

func (m *markerFlakyStore) Exists(ctx context.Context, key string) (bool, error) {
	if m.fail && strings.HasPrefix(key, store.MarkerPrefix("u1")) {
		return false, store.ErrTimeout
	}
	return m.Store.Exists(ctx, key)
}

func TestIngestFailsWhenMarkerCheckDegraded(t *testing.T) {
	s, err := store.Open(config.StoreConfig{
		InMemory:       true,
		RetryAttempts:  3,
		RetryBaseDelay: time.Millisecond,
	}, zerolog.Nop())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	flaky := &markerFlakyStore{Store: s, fail: true}
	agg := New(flaky, config.Default().Aggregator, zerolog.Nop())
	agg.SetClock(func() time.Time { return testNow })
	ctx := context.Background()

	// While the marker read is degraded there is no proof the event is
	// new, so ingestion must refuse rather than risk a double count.
	if err := agg.Ingest(ctx, event("ev-1", models.EventLiked, time.Hour)); err == nil {
		t.Fatal("ingest proceeded with the idempotency check degraded")
	}
	if got := agg.ComputeProfile(ctx, "u1").TotalInteractions; got != 0 {
		t.Fatalf("degraded ingest recorded %d interactions, want 0", got)
	}

	// After recovery the retry lands exactly once and the replay dedups.
	flaky.fail = false
	if err := agg.Ingest(ctx, event("ev-1", models.EventLiked, time.Hour)); err != nil {
		t.Fatalf("retry ingest: %v", err)
	}
	if err := agg.Ingest(ctx, event("ev-1", models.EventLiked, time.Hour)); err != nil {
		t.Fatalf("replay ingest: %v", err)
	}
	if got := agg.ComputeProfile(ctx, "u1").TotalInteractions; got != 1 {
		t.Errorf("interactions after retry and replay = %d, want 1", got)
	}
}

func TestIngestRejectsInvalid(t *testing.T) {
	agg := newTestAggregator(t)
	ev := event("ev-1", "purchased", time.Hour)
	if err := agg.Ingest(context.Background(), ev); err == nil {
		t.Error("invalid event type accepted")
	}
}

func TestRecencyMultiplierTiers(t *testing.T) {
	agg := newTestAggregator(t)
	tests := []struct {
		name string
		age  time.Duration
		want float64
	}{
		{"recent", 10 * 24 * time.Hour, 1.0},
		{"recent boundary", 30 * 24 * time.Hour, 1.0},
		{"mid", 60 * 24 * time.Hour, 0.6},
		{"old", 120 * 24 * time.Hour, 0.2},
		{"horizon", 365 * 24 * time.Hour, 0.05},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := agg.recencyMultiplier(tt.age); got != tt.want {
				t.Errorf("recencyMultiplier(%v) = %f, want %f", tt.age, got, tt.want)
			}
		})
	}
}

func TestDecayAppliedAtIngest(t *testing.T) {
	agg := newTestAggregator(t)
	ctx := context.Background()

	// Same event type, different ages: the older one contributes less.
	if err := agg.Ingest(ctx, event("recent", models.EventLiked, 24*time.Hour)); err != nil {
		t.Fatalf("ingest: %v", err)
	}
	fresh := agg.ComputeProfile(ctx, "u1").Colors["#000080"].Weight

	if err := agg.Ingest(ctx, event("old", models.EventLiked, 120*24*time.Hour)); err != nil {
		t.Fatalf("ingest: %v", err)
	}
	combined := agg.ComputeProfile(ctx, "u1").Colors["#000080"].Weight

	oldContribution := combined - fresh
	if oldContribution >= fresh {
		t.Errorf("old event contributed %f, recent %f; decay not applied", oldContribution, fresh)
	}
	if oldContribution <= 0 {
		t.Errorf("old positive event contributed %f, want > 0", oldContribution)
	}
}

func TestWoreOutweighsViews(t *testing.T) {
	agg := newTestAggregator(t)
	ctx := context.Background()

	// Ten views of orange versus one wear of navy, all recent.
	for i := 0; i < 10; i++ {
		ev := event(fmt.Sprintf("view-%d", i), models.EventViewed, time.Hour)
		ev.Attributes.Colors = []string{"orange"}
		if err := agg.Ingest(ctx, ev); err != nil {
			t.Fatalf("ingest: %v", err)
		}
	}
	if err := agg.Ingest(ctx, event("wore", models.EventWore, time.Hour)); err != nil {
		t.Fatalf("ingest: %v", err)
	}

	prefs := agg.ComputeProfile(ctx, "u1")
	navy := prefs.Colors["#000080"].Weight
	orange := prefs.Colors["#ffa500"].Weight
	if navy <= orange {
		t.Errorf("one wear (%f) must outweigh ten views (%f)", navy, orange)
	}
}

func TestNegativeEventsFloorAtZero(t *testing.T) {
	agg := newTestAggregator(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := agg.Ingest(ctx, event(fmt.Sprintf("dis-%d", i), models.EventDisliked, time.Hour)); err != nil {
			t.Fatalf("ingest: %v", err)
		}
	}
	prefs := agg.ComputeProfile(ctx, "u1")
	if w := prefs.Colors["#000080"].Weight; w != 0 {
		t.Errorf("weight after dislikes = %f, want floor at 0", w)
	}
	if prefs.TotalInteractions != 5 {
		t.Errorf("interactions = %d, want 5 (negative events still count)", prefs.TotalInteractions)
	}
}

func TestConfidenceTiers(t *testing.T) {
	agg := newTestAggregator(t)
	ctx := context.Background()

	ingestN := func(n int) *models.ComprehensivePreferences {
		for i := 0; i < n; i++ {
			ev := event(fmt.Sprintf("tier-%d-%d", n, i), models.EventViewed, time.Hour)
			if err := agg.Ingest(ctx, ev); err != nil {
				t.Fatalf("ingest: %v", err)
			}
		}
		return agg.ComputeProfile(ctx, "u1")
	}

	if p := ingestN(9); p.Tier != models.TierLow || p.Confidence != 0.20 {
		t.Errorf("9 interactions: tier %q confidence %f, want low/0.20", p.Tier, p.Confidence)
	}
	if p := ingestN(1); p.Tier != models.TierMedium {
		t.Errorf("10 interactions: tier %q, want medium", p.Tier)
	}
	if p := ingestN(15); p.Tier != models.TierHigh {
		t.Errorf("25 interactions: tier %q, want high", p.Tier)
	}
	if p := ingestN(25); p.Tier != models.TierVeryHigh || p.Confidence != 0.95 {
		t.Errorf("50 interactions: tier %q confidence %f, want very_high/0.95", p.Tier, p.Confidence)
	}
}

func TestColdStartProfile(t *testing.T) {
	agg := newTestAggregator(t)
	prefs := agg.ComputeProfile(context.Background(), "never-seen")
	if prefs == nil {
		t.Fatal("cold start returned nil")
	}
	if !prefs.IsCold() || prefs.Tier != models.TierLow {
		t.Errorf("cold start profile = tier %q, %d interactions", prefs.Tier, prefs.TotalInteractions)
	}
}

func TestProvenCombinations(t *testing.T) {
	agg := newTestAggregator(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ev := event(fmt.Sprintf("wore-%d", i), models.EventWore, time.Hour)
		ev.Attributes.Colors = []string{"orange", "navy"}
		if err := agg.Ingest(ctx, ev); err != nil {
			t.Fatalf("ingest: %v", err)
		}
	}

	prefs := agg.ComputeProfile(ctx, "u1")
	if len(prefs.ProvenCombinations) != 1 {
		t.Fatalf("combinations = %d, want 1 (same set must accumulate)", len(prefs.ProvenCombinations))
	}
	combo := prefs.ProvenCombinations[0]
	if combo.TimesWorn != 3 {
		t.Errorf("times worn = %d, want 3", combo.TimesWorn)
	}
	if combo.Colors[0] != "#000080" || combo.Colors[1] != "#ffa500" {
		t.Errorf("combination colors not sorted canonical: %v", combo.Colors)
	}
}

func TestDerivedBiases(t *testing.T) {
	agg := newTestAggregator(t)
	ctx := context.Background()

	// Warm bold colors only.
	for i, color := range []string{"red", "orange", "#ff2200"} {
		ev := event(fmt.Sprintf("warm-%d", i), models.EventLiked, time.Hour)
		ev.Attributes.Colors = []string{color}
		if err := agg.Ingest(ctx, ev); err != nil {
			t.Fatalf("ingest: %v", err)
		}
	}

	prefs := agg.ComputeProfile(ctx, "u1")
	if prefs.TemperatureBias != "warm" {
		t.Errorf("temperature bias = %q, want warm", prefs.TemperatureBias)
	}
	if prefs.IntensityBias != "bold" {
		t.Errorf("intensity bias = %q, want bold", prefs.IntensityBias)
	}
	if got := prefs.SeasonalColors["fall"]; len(got) == 0 {
		t.Error("seasonal segmentation missing fall colors")
	}
}

func TestResetRemovesEverything(t *testing.T) {
	agg := newTestAggregator(t)
	ctx := context.Background()

	if err := agg.Ingest(ctx, event("ev-1", models.EventLiked, time.Hour)); err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if err := agg.Reset(ctx, "u1"); err != nil {
		t.Fatalf("reset: %v", err)
	}

	prefs := agg.ComputeProfile(ctx, "u1")
	if !prefs.IsCold() {
		t.Errorf("profile after reset has %d interactions", prefs.TotalInteractions)
	}
	events, err := agg.Events(ctx, "u1", time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("events: %v", err)
	}
	if len(events) != 0 {
		t.Errorf("%d events survived reset", len(events))
	}
}

func TestEventsRangeQuery(t *testing.T) {
	agg := newTestAggregator(t)
	ctx := context.Background()

	if err := agg.Ingest(ctx, event("old", models.EventViewed, 48*time.Hour)); err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if err := agg.Ingest(ctx, event("new", models.EventViewed, time.Hour)); err != nil {
		t.Fatalf("ingest: %v", err)
	}

	events, err := agg.Events(ctx, "u1", testNow.Add(-24*time.Hour), time.Time{})
	if err != nil {
		t.Fatalf("events: %v", err)
	}
	if len(events) != 1 || events[0].ID != "new" {
		t.Errorf("range query returned %d events, want only the recent one", len(events))
	}
}
