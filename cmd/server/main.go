// Outfitter - Preference Learning and Recommendation Diversification
// Copyright 2026 Maren Hollis (marenhollis)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/marenhollis/outfitter

// Command server runs the Outfitter engine: event ingestion, preference
// aggregation, blocklist management and recommendation diversification
// behind one HTTP API.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/marenhollis/outfitter/internal/aggregator"
	"github.com/marenhollis/outfitter/internal/api"
	"github.com/marenhollis/outfitter/internal/blocklist"
	"github.com/marenhollis/outfitter/internal/config"
	"github.com/marenhollis/outfitter/internal/diversify"
	"github.com/marenhollis/outfitter/internal/eventbus"
	"github.com/marenhollis/outfitter/internal/logging"
	"github.com/marenhollis/outfitter/internal/store"
	"github.com/marenhollis/outfitter/internal/supervisor"
	"github.com/marenhollis/outfitter/internal/tracker"
)

func main() {
	if err := run(); err != nil {
		logging.Fatal().Err(err).Msg("server failed")
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
	})
	logger := logging.Logger()
	logger.Info().
		Str("addr", fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)).
		Bool("in_memory_store", cfg.Store.InMemory).
		Msg("starting outfitter")

	badgerStore, err := store.Open(cfg.Store, logger)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		if cerr := badgerStore.Close(); cerr != nil {
			logger.Error().Err(cerr).Msg("store close failed")
		}
	}()
	st := store.NewBreakerStore(badgerStore, cfg.Store)

	bus := eventbus.New(logger)
	defer func() {
		if cerr := bus.Close(); cerr != nil {
			logger.Error().Err(cerr).Msg("event bus close failed")
		}
	}()

	agg := aggregator.New(st, cfg.Aggregator, logger)
	blocklists := blocklist.NewManager(st, cfg.Blocklist, logger)
	diversifier := diversify.New(agg, blocklists, st, cfg.Diversify, cfg.Aggregator.TopColors, logger)
	sessions := tracker.New(st, bus, cfg.Tracker, logger)
	defer sessions.Stop()

	handler := api.NewHandler(sessions, agg, blocklists, diversifier, cfg.Server, logger)
	router := api.NewRouter(handler, cfg.Server)
	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	tree.AddProcessingService(aggregator.NewConsumer(bus, agg, logger))
	tree.AddProcessingService(supervisor.NewSweeper("profile-cache-sweeper", time.Minute, agg.ProfileCache().CleanupExpired))
	tree.AddAPIService(supervisor.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := tree.ServeBackground(ctx)
	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
		if serr := <-errCh; serr != nil && !errors.Is(serr, context.Canceled) {
			return serr
		}
		return nil
	case serr := <-errCh:
		return serr
	}
}
