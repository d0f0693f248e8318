// Outfitter - Preference Learning and Recommendation Diversification
// Copyright 2026 Maren Hollis (marenhollis)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/marenhollis/outfitter

package aggregator

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/marenhollis/outfitter/internal/eventbus"
	"github.com/marenhollis/outfitter/internal/models"
)

func TestConsumerDrainsPublishedEvents(t *testing.T) {
	agg := newTestAggregator(t)
	bus := eventbus.New(zerolog.Nop())
	t.Cleanup(func() { _ = bus.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	consumer := NewConsumer(bus, agg, zerolog.Nop())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = consumer.Serve(ctx)
	}()

	// Give the subscription time to attach before publishing.
	time.Sleep(20 * time.Millisecond)
	if err := bus.PublishEvent(event("bus-ev-1", models.EventLiked, time.Hour)); err != nil {
		t.Fatalf("publish: %v", err)
	}

	deadline := time.After(2 * time.Second)
	for {
		prefs := agg.ComputeProfile(ctx, "u1")
		if prefs.TotalInteractions == 1 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("published event never reached the aggregator")
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Error("consumer did not stop on context cancellation")
	}
}
