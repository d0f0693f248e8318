// Outfitter - Preference Learning and Recommendation Diversification
// Copyright 2026 Maren Hollis (marenhollis)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/marenhollis/outfitter

package blocklist

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/marenhollis/outfitter/internal/config"
	"github.com/marenhollis/outfitter/internal/models"
	"github.com/marenhollis/outfitter/internal/store"
)

func testConfig() config.BlocklistConfig {
	return config.BlocklistConfig{
		PromoteAfter: 3,
		SoftPenalty:  0.5,
		TemporaryTTL: time.Hour,
		TemporaryCap: 5,
	}
}

func newTestManager(t *testing.T) *Manager {
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
	return NewManager(s, testConfig(), zerolog.Nop())
}

func TestAddHardAndEvaluate(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	if err := m.AddHard(ctx, "u1", "#CCFF00", "too bright"); err != nil {
		t.Fatalf("add hard: %v", err)
	}
	bl, err := m.Get(ctx, "u1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	verdict := m.Evaluate(bl, []string{"#ccff00", "casual"}, "casual|#ccff00")
	if !verdict.Excluded || verdict.MatchedTier != models.BlockTierHard {
		t.Errorf("hard-blocked attribute not excluded: %+v", verdict)
	}

	verdict = m.Evaluate(bl, []string{"#000080"}, "#000080")
	if verdict.Excluded || verdict.PenaltyMultiplier != 1.0 {
		t.Errorf("unblocked attribute got verdict %+v", verdict)
	}
}

func TestSoftPenaltyAndPromotion(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	if err := m.AddSoft(ctx, "u1", "bohemian", "rarely engaged"); err != nil {
		t.Fatalf("add soft: %v", err)
	}
	bl, _ := m.Get(ctx, "u1")
	verdict := m.Evaluate(bl, []string{"bohemian"}, "bohemian")
	if verdict.Excluded {
		t.Error("soft match must not exclude")
	}
	if verdict.PenaltyMultiplier != 0.5 {
		t.Errorf("soft penalty = %f, want 0.5", verdict.PenaltyMultiplier)
	}

	// Two more soft adds cross PromoteAfter=3: the entry moves to hard.
	for i := 0; i < 2; i++ {
		if err := m.AddSoft(ctx, "u1", "bohemian", "rarely engaged"); err != nil {
			t.Fatalf("add soft %d: %v", i, err)
		}
	}
	bl, _ = m.Get(ctx, "u1")
	if len(bl.Soft) != 0 {
		t.Errorf("soft list still has %d entries after promotion", len(bl.Soft))
	}
	if len(bl.Hard) != 1 || bl.Hard[0].Value != "bohemian" {
		t.Fatalf("hard list after promotion = %+v", bl.Hard)
	}
	if bl.Hard[0].Reason != AutoPromotedReason {
		t.Errorf("promoted reason = %q, want %q", bl.Hard[0].Reason, AutoPromotedReason)
	}
	verdict = m.Evaluate(bl, []string{"bohemian"}, "bohemian")
	if !verdict.Excluded {
		t.Error("promoted entry no longer excludes")
	}
}

func TestTemporaryExpiry(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	if err := m.AddTemporary(ctx, "u1", "casual|#000080"); err != nil {
		t.Fatalf("add temporary: %v", err)
	}

	bl, _ := m.Get(ctx, "u1")
	verdict := m.Evaluate(bl, []string{"#000080", "casual"}, "casual|#000080")
	if !verdict.Excluded || verdict.MatchedTier != models.BlockTierTemporary {
		t.Errorf("unexpired temporary entry did not exclude: %+v", verdict)
	}

	// Past the TTL the entry has zero effect and is filtered on read.
	now = now.Add(2 * time.Hour)
	bl, _ = m.Get(ctx, "u1")
	if len(bl.Temporary) != 0 {
		t.Errorf("expired entries survived read: %+v", bl.Temporary)
	}
	verdict = m.Evaluate(bl, []string{"#000080", "casual"}, "casual|#000080")
	if verdict.Excluded {
		t.Error("expired temporary entry still excludes")
	}
}

func TestTemporaryCapEvictsOldest(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	sigs := []string{"a", "b", "c", "d", "e", "f", "g"}
	for _, sig := range sigs {
		now = now.Add(time.Minute)
		if err := m.AddTemporary(ctx, "u1", sig); err != nil {
			t.Fatalf("add %q: %v", sig, err)
		}
	}

	bl, _ := m.Get(ctx, "u1")
	if len(bl.Temporary) != 5 {
		t.Fatalf("temporary list length = %d, want cap 5", len(bl.Temporary))
	}
	if bl.Temporary[0].Signature != "c" {
		t.Errorf("oldest surviving entry = %q, want %q (evict oldest first)", bl.Temporary[0].Signature, "c")
	}
}

func TestEvaluatePrecedence(t *testing.T) {
	now := time.Now()
	bl := &models.Blocklists{
		UserID: "u1",
		Hard:   []models.HardBlockEntry{{Value: "#ccff00", AddedAt: now}},
		Soft:   []models.SoftBlockEntry{{Value: "#ccff00", IgnoreCount: 1, AddedAt: now}},
	}
	verdict := Evaluate(bl, []string{"#ccff00"}, "", 0.5, now)
	if verdict.MatchedTier != models.BlockTierHard {
		t.Errorf("hard must win over soft, matched %q", verdict.MatchedTier)
	}
}

func TestGetMissingUserIsEmpty(t *testing.T) {
	m := newTestManager(t)
	bl, err := m.Get(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(bl.Hard)+len(bl.Soft)+len(bl.Temporary) != 0 {
		t.Errorf("missing user blocklists not empty: %+v", bl)
	}
}
