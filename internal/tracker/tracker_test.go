// Outfitter - Preference Learning and Recommendation Diversification
// Copyright 2026 Maren Hollis (marenhollis)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/marenhollis/outfitter

package tracker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/marenhollis/outfitter/internal/config"
	"github.com/marenhollis/outfitter/internal/eventbus"
	"github.com/marenhollis/outfitter/internal/models"
	"github.com/marenhollis/outfitter/internal/store"
)

func newTestTracker(t *testing.T, timeout time.Duration) *Tracker {
	t.Helper()
	s, err := store.Open(config.StoreConfig{
		InMemory:       true,
		RetryAttempts:  3,
		RetryBaseDelay: time.Millisecond,
	}, zerolog.Nop())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	bus := eventbus.New(zerolog.Nop())
	t.Cleanup(func() {
		_ = bus.Close()
		_ = s.Close()
	})

	tr := New(s, bus, config.TrackerConfig{InactivityTimeout: timeout}, zerolog.Nop())
	t.Cleanup(tr.Stop)
	return tr
}

func action(et models.EventType) *models.InteractionEvent {
	return &models.InteractionEvent{
		Type: et,
		Attributes: models.OutfitAttributes{
			Colors: []string{"navy"},
			Styles: []string{"casual"},
		},
	}
}

func TestSessionLifecycle(t *testing.T) {
	tr := newTestTracker(t, time.Minute)
	ctx := context.Background()

	session, err := tr.StartSession(ctx, &models.SessionMeta{UserID: "u1", Occasion: "work"})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if session.Outcome != models.OutcomeInProgress {
		t.Errorf("new session outcome = %q, want in_progress", session.Outcome)
	}

	if _, err := tr.RecordAction(ctx, session.ID, action(models.EventViewed)); err != nil {
		t.Fatalf("record view: %v", err)
	}
	updated, err := tr.RecordAction(ctx, session.ID, action(models.EventLiked))
	if err != nil {
		t.Fatalf("record like: %v", err)
	}

	if updated.Outcome != models.OutcomeLikedOne {
		t.Errorf("outcome after like = %q, want liked_one", updated.Outcome)
	}
	if len(updated.Events) != 2 {
		t.Errorf("session has %d events, want 2", len(updated.Events))
	}
	if updated.Events[1].UserID != "u1" {
		t.Errorf("event user not inherited from session: %q", updated.Events[1].UserID)
	}
}

func TestWoreDominatesOutcome(t *testing.T) {
	tr := newTestTracker(t, time.Minute)
	ctx := context.Background()

	session, err := tr.StartSession(ctx, &models.SessionMeta{UserID: "u1"})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	updated, err := tr.RecordAction(ctx, session.ID, action(models.EventWore))
	if err != nil {
		t.Fatalf("record wore: %v", err)
	}
	if updated.Outcome != models.OutcomeWoreOne {
		t.Errorf("outcome = %q, want wore_one", updated.Outcome)
	}
}

func TestClosedSessionRejectsActions(t *testing.T) {
	tr := newTestTracker(t, time.Minute)
	ctx := context.Background()

	session, err := tr.StartSession(ctx, &models.SessionMeta{UserID: "u1"})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := tr.RecordAction(ctx, session.ID, action(models.EventDisliked)); err != nil {
		t.Fatalf("record dislike: %v", err)
	}
	if _, err := tr.RecordAction(ctx, session.ID, action(models.EventViewed)); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("action on closed session error = %v, want ErrSessionClosed", err)
	}
}

func TestUnknownSessionNotFound(t *testing.T) {
	tr := newTestTracker(t, time.Minute)
	if _, err := tr.RecordAction(context.Background(), "nope", action(models.EventViewed)); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("unknown session error = %v, want ErrNotFound", err)
	}
}

func TestInactivityTimeout(t *testing.T) {
	tr := newTestTracker(t, 30*time.Millisecond)
	ctx := context.Background()

	session, err := tr.StartSession(ctx, &models.SessionMeta{UserID: "u1"})
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	deadline := time.After(2 * time.Second)
	for {
		got, gerr := tr.Get(ctx, session.ID)
		if gerr != nil {
			t.Fatalf("get: %v", gerr)
		}
		if got.Outcome == models.OutcomeIgnoredAll {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("session outcome = %q after timeout window, want ignored_all", got.Outcome)
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestTerminalActionBeatsTimeout(t *testing.T) {
	tr := newTestTracker(t, 50*time.Millisecond)
	ctx := context.Background()

	session, err := tr.StartSession(ctx, &models.SessionMeta{UserID: "u1"})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := tr.RecordAction(ctx, session.ID, action(models.EventLiked)); err != nil {
		t.Fatalf("record like: %v", err)
	}

	time.Sleep(120 * time.Millisecond)
	got, err := tr.Get(ctx, session.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Outcome != models.OutcomeLikedOne {
		t.Errorf("timeout overwrote terminal outcome: %q", got.Outcome)
	}
}
