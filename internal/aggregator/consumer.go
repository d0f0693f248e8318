// Outfitter - Preference Learning and Recommendation Diversification
// Copyright 2026 Maren Hollis (marenhollis)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/marenhollis/outfitter

package aggregator

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/marenhollis/outfitter/internal/eventbus"
)

// Consumer is the supervised service that drains the interaction-event
// topic into the aggregator. Messages are acked even when aggregation
// fails after retries: the event itself is already durably recorded, and
// re-queueing a poison message would stall the whole in-process channel.
type Consumer struct {
	bus        *eventbus.Bus
	aggregator *Aggregator
	logger     zerolog.Logger
}

// NewConsumer creates the event consumer service.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewConsumer(bus *eventbus.Bus, agg *Aggregator, logger zerolog.Logger) *Consumer {
	return &Consumer{
		bus:        bus,
		aggregator: agg,
		logger:     logger.With().Str("component", "event-consumer").Logger(),
	}
}

// Serve implements suture.Service. It runs until the context is canceled
// or the subscription channel closes.
func (c *Consumer) Serve(ctx context.Context) error {
	messages, err := c.bus.SubscribeEvents(ctx)
	if err != nil {
		return err
	}
	c.logger.Info().Msg("event consumer started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-messages:
			if !ok {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return errors.New("event subscription closed")
			}
			ev, derr := eventbus.DecodeEvent(msg)
			if derr != nil {
				c.logger.Error().Err(derr).Str("message", msg.UUID).Msg("dropping undecodable event message")
				msg.Ack()
				continue
			}
			if ierr := c.aggregator.Ingest(ctx, ev); ierr != nil {
				c.logger.Error().Err(ierr).
					Str("user", ev.UserID).
					Str("event", ev.ID).
					Msg("event aggregation failed")
			}
			msg.Ack()
		}
	}
}

func (c *Consumer) String() string { return "event-consumer" }
