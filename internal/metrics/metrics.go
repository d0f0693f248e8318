// Outfitter - Preference Learning and Recommendation Diversification
// Copyright 2026 Maren Hollis (marenhollis)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/marenhollis/outfitter

// Package metrics defines the Prometheus metrics exposed on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Ingestion

	EventsIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outfitter_events_ingested_total",
			Help: "Total interaction events ingested, by event type",
		},
		[]string{"type"},
	)

	EventsDeduplicated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "outfitter_events_deduplicated_total",
			Help: "Total events skipped because their id was already seen",
		},
	)

	EventsRejected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "outfitter_events_rejected_total",
			Help: "Total events rejected by validation",
		},
	)

	// Profiles

	ProfileComputations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "outfitter_profile_computations_total",
			Help: "Total preference profile computations",
		},
	)

	ProfileCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "outfitter_profile_cache_hits_total",
			Help: "Total profile reads served from cache",
		},
	)

	ProfileCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "outfitter_profile_cache_misses_total",
			Help: "Total profile reads that missed the cache",
		},
	)

	ProfileColdStarts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "outfitter_profile_cold_starts_total",
			Help: "Total profile reads that degraded to the cold-start profile",
		},
	)

	// Store

	StoreConflictRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "outfitter_store_conflict_retries_total",
			Help: "Total optimistic-concurrency retries on write conflict",
		},
	)

	StoreBreakerOpened = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "outfitter_store_breaker_opened_total",
			Help: "Total transitions of the store circuit breaker to open",
		},
	)

	// Sessions

	SessionsStarted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "outfitter_sessions_started_total",
			Help: "Total interaction sessions started",
		},
	)

	SessionsTimedOut = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "outfitter_sessions_timed_out_total",
			Help: "Total sessions closed as ignored_all by the inactivity timeout",
		},
	)

	SessionsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outfitter_sessions_completed_total",
			Help: "Total sessions closed by a terminal action, by outcome",
		},
		[]string{"outcome"},
	)

	// Diversifier

	RecommendationRequests = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "outfitter_recommendation_requests_total",
			Help: "Total diversifier invocations",
		},
	)

	RecommendationLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "outfitter_recommendation_duration_seconds",
			Help:    "Duration of candidate selection and annotation",
			Buckets: prometheus.DefBuckets,
		},
	)

	CandidatesHardExcluded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "outfitter_candidates_hard_excluded_total",
			Help: "Total candidates dropped by the hard blocklist",
		},
	)

	PatternLocksDetected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "outfitter_pattern_locks_detected_total",
			Help: "Total pattern-lock detections forcing extra exploration",
		},
	)

	InsufficientDiversity = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "outfitter_insufficient_diversity_total",
			Help: "Total best-effort responses returned from a thin candidate pool",
		},
	)

	// Blocklists

	SoftPromotions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "outfitter_soft_promotions_total",
			Help: "Total soft blocklist entries auto-promoted to hard",
		},
	)
)
