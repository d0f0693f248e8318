// Outfitter - Preference Learning and Recommendation Diversification
// Copyright 2026 Maren Hollis (marenhollis)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/marenhollis/outfitter

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/marenhollis/outfitter/internal/config"
)

// NewRouter builds the chi router for the engine.
func NewRouter(h *Handler, cfg config.ServerConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDWithLogging())
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(cfg.Timeout))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/health", h.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(httprate.LimitByIP(cfg.RateLimitRPM, time.Minute))

		r.Post("/events", h.IngestEvent)

		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", h.StartSession)
			r.Get("/{sessionID}", h.GetSession)
			r.Post("/{sessionID}/actions", h.RecordAction)
		})

		r.Route("/users/{userID}", func(r chi.Router) {
			r.Get("/preferences", h.GetPreferences)
			r.Get("/events", h.GetEvents)
			r.Post("/recommendations", h.Recommend)
			r.Get("/blocklist", h.GetBlocklists)
			r.Post("/blocklist", h.AddBlock)
			r.Delete("/data", h.ResetUserData)
		})
	})

	return r
}
