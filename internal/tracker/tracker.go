// Outfitter - Preference Learning and Recommendation Diversification
// Copyright 2026 Maren Hollis (marenhollis)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/marenhollis/outfitter

// Package tracker groups interaction events into sessions and derives the
// session outcome.
//
// A session closes either on a terminal action (like, wear, dislike) or
// when the inactivity timeout fires, in which case it is recorded as
// ignored_all. Absence of engagement is itself a signal worth learning
// from.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/marenhollis/outfitter/internal/config"
	"github.com/marenhollis/outfitter/internal/eventbus"
	"github.com/marenhollis/outfitter/internal/metrics"
	"github.com/marenhollis/outfitter/internal/models"
	"github.com/marenhollis/outfitter/internal/store"
	"github.com/marenhollis/outfitter/internal/validation"
)

// ErrSessionClosed is returned when an action targets a session that
// already has a terminal outcome.
var ErrSessionClosed = errors.New("session already closed")

// Tracker manages the lifecycle of interaction sessions.
type Tracker struct {
	store  store.Store
	bus    *eventbus.Bus
	cfg    config.TrackerConfig
	logger zerolog.Logger
	now    func() time.Time

	mu     sync.Mutex
	timers map[string]*time.Timer
}

// New creates a session tracker.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func New(st store.Store, bus *eventbus.Bus, cfg config.TrackerConfig, logger zerolog.Logger) *Tracker {
	return &Tracker{
		store:  st,
		bus:    bus,
		cfg:    cfg,
		logger: logger.With().Str("component", "tracker").Logger(),
		now:    time.Now,
		timers: map[string]*time.Timer{},
	}
}

// SetClock overrides the time source. Tests only.
func (t *Tracker) SetClock(now func() time.Time) { t.now = now }

// StartSession opens a new session for a user with the given context.
func (t *Tracker) StartSession(ctx context.Context, meta *models.SessionMeta) (*models.InteractionSession, error) {
	if err := validation.ValidateStruct(meta); err != nil {
		return nil, err
	}

	now := t.now().UTC()
	session := &models.InteractionSession{
		ID:             uuid.New().String(),
		UserID:         meta.UserID,
		StartedAt:      now,
		LastActivityAt: now,
		Occasion:       meta.Occasion,
		Gender:         meta.Gender,
		Weather:        meta.Weather,
		Season:         meta.Season,
		Outcome:        models.OutcomeInProgress,
	}

	payload, err := json.Marshal(session)
	if err != nil {
		return nil, fmt.Errorf("marshal session: %w", err)
	}
	if err := t.store.Append(ctx, store.SessionKey(session.ID), payload); err != nil {
		return nil, fmt.Errorf("persist session: %w", err)
	}

	t.armTimer(session.ID)
	metrics.SessionsStarted.Inc()
	t.logger.Debug().Str("session", session.ID).Str("user", session.UserID).Msg("session started")
	return session, nil
}

// RecordAction appends an event to a session and publishes it for
// aggregation. Terminal actions derive the outcome and close the session;
// any other action resets the inactivity timer.
func (t *Tracker) RecordAction(ctx context.Context, sessionID string, ev *models.InteractionEvent) (*models.InteractionSession, error) {
	if ev.ID == "" {
		ev.ID = uuid.New().String()
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = t.now().UTC()
	}
	ev.SessionID = sessionID

	var session models.InteractionSession
	err := t.store.ReadModifyWrite(ctx, store.SessionKey(sessionID), func(current []byte) ([]byte, error) {
		if current == nil {
			return nil, store.ErrNotFound
		}
		session = models.InteractionSession{}
		if uerr := json.Unmarshal(current, &session); uerr != nil {
			return nil, fmt.Errorf("decode session %s: %w", sessionID, uerr)
		}
		if session.Outcome != models.OutcomeInProgress {
			return nil, ErrSessionClosed
		}
		if ev.UserID == "" {
			ev.UserID = session.UserID
		}
		if verr := validation.ValidateEvent(ev); verr != nil {
			return nil, verr
		}
		session.Events = append(session.Events, *ev)
		session.LastActivityAt = t.now().UTC()
		if ev.Type.Terminal() {
			session.Outcome = session.DeriveOutcome()
		}
		return json.Marshal(&session)
	})
	if err != nil {
		return nil, err
	}

	if session.Outcome != models.OutcomeInProgress {
		t.disarmTimer(sessionID)
		metrics.SessionsCompleted.WithLabelValues(string(session.Outcome)).Inc()
		t.logger.Info().
			Str("session", sessionID).
			Str("outcome", string(session.Outcome)).
			Msg("session closed")
	} else {
		t.armTimer(sessionID)
	}

	if perr := t.bus.PublishEvent(ev); perr != nil {
		t.logger.Error().Err(perr).Str("event", ev.ID).Msg("event publish failed")
	}
	return &session, nil
}

// Get returns a session by id.
func (t *Tracker) Get(ctx context.Context, sessionID string) (*models.InteractionSession, error) {
	doc, err := t.store.Get(ctx, store.SessionKey(sessionID))
	if err != nil {
		return nil, err
	}
	var session models.InteractionSession
	if uerr := json.Unmarshal(doc.Data, &session); uerr != nil {
		return nil, fmt.Errorf("decode session %s: %w", sessionID, uerr)
	}
	return &session, nil
}

// ResetUser deletes every session belonging to a user and cancels their
// inactivity timers. Part of the explicit user data reset.
func (t *Tracker) ResetUser(ctx context.Context, userID string) error {
	var ids []string
	err := t.store.ScanPrefix(ctx, store.SessionPrefix(), func(_ string, data []byte) error {
		var session models.InteractionSession
		if uerr := json.Unmarshal(data, &session); uerr != nil {
			return fmt.Errorf("decode session: %w", uerr)
		}
		if session.UserID == userID {
			ids = append(ids, session.ID)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("scan sessions for %s: %w", userID, err)
	}
	for _, id := range ids {
		t.disarmTimer(id)
		if derr := t.store.Delete(ctx, store.SessionKey(id)); derr != nil {
			return fmt.Errorf("delete session %s: %w", id, derr)
		}
	}
	return nil
}

// armTimer starts or resets the inactivity timer for a session.
func (t *Tracker) armTimer(sessionID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if timer, ok := t.timers[sessionID]; ok {
		timer.Reset(t.cfg.InactivityTimeout)
		return
	}
	t.timers[sessionID] = time.AfterFunc(t.cfg.InactivityTimeout, func() {
		t.timeout(sessionID)
	})
}

func (t *Tracker) disarmTimer(sessionID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if timer, ok := t.timers[sessionID]; ok {
		timer.Stop()
		delete(t.timers, sessionID)
	}
}

// timeout closes an idle session as ignored_all. Losing the race against
// a concurrent terminal action is fine: the closed check inside the
// read-modify-write makes the timeout a no-op.
func (t *Tracker) timeout(sessionID string) {
	t.disarmTimer(sessionID)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	timedOut := false
	err := t.store.ReadModifyWrite(ctx, store.SessionKey(sessionID), func(current []byte) ([]byte, error) {
		timedOut = false
		if current == nil {
			return nil, store.ErrNotFound
		}
		var session models.InteractionSession
		if uerr := json.Unmarshal(current, &session); uerr != nil {
			return nil, fmt.Errorf("decode session %s: %w", sessionID, uerr)
		}
		if session.Outcome != models.OutcomeInProgress {
			return nil, ErrSessionClosed
		}
		session.Outcome = models.OutcomeIgnoredAll
		timedOut = true
		return json.Marshal(&session)
	})
	if err != nil {
		if !errors.Is(err, ErrSessionClosed) && !errors.Is(err, store.ErrNotFound) {
			t.logger.Error().Err(err).Str("session", sessionID).Msg("session timeout close failed")
		}
		return
	}
	if timedOut {
		metrics.SessionsTimedOut.Inc()
		t.logger.Info().Str("session", sessionID).Msg("session timed out as ignored_all")
	}
}

// Stop cancels all inactivity timers. Sessions left in progress are closed
// by their timer on the next start or remain in_progress until touched.
func (t *Tracker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for id, timer := range t.timers {
		timer.Stop()
		delete(t.timers, id)
	}
}
