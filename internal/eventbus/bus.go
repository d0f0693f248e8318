// Outfitter - Preference Learning and Recommendation Diversification
// Copyright 2026 Maren Hollis (marenhollis)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/marenhollis/outfitter

// Package eventbus decouples event ingestion from preference aggregation
// with an in-process Watermill pub/sub. Ingestion acknowledges the caller
// as soon as the event is durably recorded; aggregation consumes
// asynchronously so a slow profile write never blocks the ingest path.
package eventbus

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/marenhollis/outfitter/internal/models"
)

// TopicInteractionEvents carries ingested interaction events.
const TopicInteractionEvents = "interaction.events"

// Bus is an in-process event bus.
type Bus struct {
	channel *gochannel.GoChannel
}

// New creates a bus with a bounded output buffer.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func New(logger zerolog.Logger) *Bus {
	return &Bus{
		channel: gochannel.NewGoChannel(
			gochannel.Config{OutputChannelBuffer: 256},
			newLoggerAdapter(logger),
		),
	}
}

// PublishEvent publishes one interaction event.
func (b *Bus) PublishEvent(ev *models.InteractionEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event %s: %w", ev.ID, err)
	}
	msg := message.NewMessage(uuid.New().String(), payload)
	return b.channel.Publish(TopicInteractionEvents, msg)
}

// SubscribeEvents returns the stream of ingested events.
func (b *Bus) SubscribeEvents(ctx context.Context) (<-chan *message.Message, error) {
	return b.channel.Subscribe(ctx, TopicInteractionEvents)
}

// DecodeEvent unmarshals an event message payload.
func DecodeEvent(msg *message.Message) (*models.InteractionEvent, error) {
	var ev models.InteractionEvent
	if err := json.Unmarshal(msg.Payload, &ev); err != nil {
		return nil, fmt.Errorf("decode event message %s: %w", msg.UUID, err)
	}
	return &ev, nil
}

// Close shuts the bus down, closing all subscriber channels.
func (b *Bus) Close() error {
	return b.channel.Close()
}

// loggerAdapter bridges watermill logging into zerolog.
type loggerAdapter struct {
	logger zerolog.Logger
}

//nolint:gocritic // logger passed by value is acceptable for zerolog
func newLoggerAdapter(logger zerolog.Logger) watermill.LoggerAdapter {
	return &loggerAdapter{logger: logger.With().Str("component", "eventbus").Logger()}
}

func (a *loggerAdapter) withFields(e *zerolog.Event, fields watermill.LogFields) *zerolog.Event {
	for k, v := range fields {
		e = e.Interface(k, v)
	}
	return e
}

func (a *loggerAdapter) Error(msg string, err error, fields watermill.LogFields) {
	a.withFields(a.logger.Error().Err(err), fields).Msg(msg)
}

func (a *loggerAdapter) Info(msg string, fields watermill.LogFields) {
	a.withFields(a.logger.Info(), fields).Msg(msg)
}

func (a *loggerAdapter) Debug(msg string, fields watermill.LogFields) {
	a.withFields(a.logger.Debug(), fields).Msg(msg)
}

func (a *loggerAdapter) Trace(msg string, fields watermill.LogFields) {
	a.withFields(a.logger.Trace(), fields).Msg(msg)
}

func (a *loggerAdapter) With(fields watermill.LogFields) watermill.LoggerAdapter {
	logger := a.logger
	for k, v := range fields {
		logger = logger.With().Interface(k, v).Logger()
	}
	return &loggerAdapter{logger: logger}
}
