// Outfitter - Preference Learning and Recommendation Diversification
// Copyright 2026 Maren Hollis (marenhollis)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/marenhollis/outfitter

// Package config defines and loads the engine configuration.
//
// Configuration layers, lowest to highest precedence: struct defaults,
// YAML config file, OUTFITTER_* environment variables. Validation failures
// are fatal at process startup and never surface at request time.
package config

import (
	"fmt"
	"time"

	"github.com/marenhollis/outfitter/internal/models"
)

// Config is the root configuration for the engine.
type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Store      StoreConfig      `koanf:"store"`
	Logging    LoggingConfig    `koanf:"logging"`
	Aggregator AggregatorConfig `koanf:"aggregator"`
	Blocklist  BlocklistConfig  `koanf:"blocklist"`
	Diversify  DiversifyConfig  `koanf:"diversify"`
	Tracker    TrackerConfig    `koanf:"tracker"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	Timeout         time.Duration `koanf:"timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`

	// RateLimitRPM bounds requests per client IP per minute.
	RateLimitRPM int `koanf:"rate_limit_rpm"`

	// IngestBurst is the per-user token-bucket burst for event ingestion.
	IngestBurst int `koanf:"ingest_burst"`

	// IngestPerSecond is the per-user sustained ingestion rate.
	IngestPerSecond float64 `koanf:"ingest_per_second"`

	CORSOrigins []string `koanf:"cors_origins"`
}

// StoreConfig configures the backing document store.
type StoreConfig struct {
	// Path is the badger data directory. Ignored when InMemory is set.
	Path string `koanf:"path"`

	// InMemory runs the store without disk persistence (tests, ephemeral).
	InMemory bool `koanf:"in_memory"`

	// OpTimeout bounds every store call. Timeouts resolve to cold-start
	// defaults on the read path rather than failing the caller.
	OpTimeout time.Duration `koanf:"op_timeout"`

	// RetryAttempts bounds optimistic-concurrency retries on write conflict.
	RetryAttempts int `koanf:"retry_attempts"`

	// RetryBaseDelay is the initial backoff delay, doubled per attempt.
	RetryBaseDelay time.Duration `koanf:"retry_base_delay"`

	// BreakerFailureThreshold is the consecutive-failure count that opens
	// the read-path circuit breaker.
	BreakerFailureThreshold uint32 `koanf:"breaker_failure_threshold"`

	// BreakerOpenFor is how long the breaker stays open before half-open.
	BreakerOpenFor time.Duration `koanf:"breaker_open_for"`
}

// LoggingConfig configures the global logger.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// DecayConfig defines the tiered recency multiplier. Events inside
// RecentDays get full weight, MidDays partial, OldDays minimal; anything
// older still counts toward interaction totals but contributes
// HorizonMultiplier (~0).
type DecayConfig struct {
	RecentDays int `koanf:"recent_days"`
	MidDays    int `koanf:"mid_days"`
	OldDays    int `koanf:"old_days"`

	RecentMultiplier  float64 `koanf:"recent_multiplier"`
	MidMultiplier     float64 `koanf:"mid_multiplier"`
	OldMultiplier     float64 `koanf:"old_multiplier"`
	HorizonMultiplier float64 `koanf:"horizon_multiplier"`
}

// TierConfig maps total interaction counts to confidence tiers.
// Counts below Medium are low; below High medium; below VeryHigh high.
type TierConfig struct {
	Medium   int `koanf:"medium"`
	High     int `koanf:"high"`
	VeryHigh int `koanf:"very_high"`

	LowPercent      float64 `koanf:"low_percent"`
	MediumPercent   float64 `koanf:"medium_percent"`
	HighPercent     float64 `koanf:"high_percent"`
	VeryHighPercent float64 `koanf:"very_high_percent"`
}

// AggregatorConfig configures preference aggregation.
type AggregatorConfig struct {
	// Weights overrides the per-event-type outcome weights.
	Weights map[string]float64 `koanf:"weights"`

	Decay DecayConfig `koanf:"decay"`
	Tiers TierConfig  `koanf:"tiers"`

	// TopColors is how many colors feed derived signals and scoring.
	TopColors int `koanf:"top_colors"`

	// ProfileCacheTTL bounds how stale a cached profile may be.
	ProfileCacheTTL time.Duration `koanf:"profile_cache_ttl"`

	// ProfileCacheSize bounds the profile cache entry count (LRU).
	ProfileCacheSize int `koanf:"profile_cache_size"`

	// DedupCacheSize bounds the in-memory event-id dedup cache.
	DedupCacheSize int `koanf:"dedup_cache_size"`
}

// OutcomeWeights resolves the configured weights over the defaults.
func (a AggregatorConfig) OutcomeWeights() map[models.EventType]float64 {
	weights := models.DefaultOutcomeWeights()
	for k, v := range a.Weights {
		weights[models.EventType(k)] = v
	}
	return weights
}

// BlocklistConfig configures the negative-constraint sets.
type BlocklistConfig struct {
	// PromoteAfter is the soft-entry ignore count that triggers
	// auto-promotion into the hard set.
	PromoteAfter int `koanf:"promote_after"`

	// SoftPenalty is the score multiplier applied on a soft match.
	SoftPenalty float64 `koanf:"soft_penalty"`

	// TemporaryTTL is the anti-repetition window for exact combinations.
	TemporaryTTL time.Duration `koanf:"temporary_ttl"`

	// TemporaryCap bounds the temporary list; oldest entries are evicted
	// on overflow so a long-lived user cannot grow it unboundedly.
	TemporaryCap int `koanf:"temporary_cap"`
}

// SlotRatios partitions output slots across match categories.
type SlotRatios struct {
	Perfect   float64 `koanf:"perfect"`
	Great     float64 `koanf:"great"`
	Exploring float64 `koanf:"exploring"`
}

// DiversifyConfig configures candidate selection and annotation.
type DiversifyConfig struct {
	// Slots is the default partition (observed 70/20/10).
	Slots SlotRatios `koanf:"slots"`

	// LowConfidenceSlots replaces Slots for low-confidence profiles,
	// shifting toward exploration.
	LowConfidenceSlots SlotRatios `koanf:"low_confidence_slots"`

	// PerfectThreshold and GreatThreshold are the category score floors.
	PerfectThreshold float64 `koanf:"perfect_threshold"`
	GreatThreshold   float64 `koanf:"great_threshold"`

	// Scoring component weights; normalized at use.
	ColorWeight    float64 `koanf:"color_weight"`
	StyleWeight    float64 `koanf:"style_weight"`
	OccasionWeight float64 `koanf:"occasion_weight"`

	// PatternWindow is how many recent recommendations feed
	// pattern-lock detection.
	PatternWindow int `koanf:"pattern_window"`

	// PatternThreshold is the dominant-attribute share that trips the lock.
	PatternThreshold float64 `koanf:"pattern_threshold"`

	// LockSimilarityCeiling bounds how similar an exploratory pick may be
	// to the locked pattern once a lock is detected.
	LockSimilarityCeiling float64 `koanf:"lock_similarity_ceiling"`

	// HistoryCap bounds stored recommendation history per user.
	HistoryCap int `koanf:"history_cap"`
}

// TrackerConfig configures session tracking.
type TrackerConfig struct {
	// InactivityTimeout closes a session as ignored_all when no terminal
	// action arrives within it.
	InactivityTimeout time.Duration `koanf:"inactivity_timeout"`
}

// Default returns the configuration defaults. The decay boundaries,
// promotion threshold and slot ratios mirror observed production values
// but are deliberately configuration, not constants.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8343,
			Timeout:         30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			RateLimitRPM:    600,
			IngestBurst:     50,
			IngestPerSecond: 20,
			CORSOrigins:     []string{"*"},
		},
		Store: StoreConfig{
			Path:                    "/data/outfitter",
			InMemory:                false,
			OpTimeout:               2 * time.Second,
			RetryAttempts:           3,
			RetryBaseDelay:          25 * time.Millisecond,
			BreakerFailureThreshold: 5,
			BreakerOpenFor:          15 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Aggregator: AggregatorConfig{
			Decay: DecayConfig{
				RecentDays:        30,
				MidDays:           90,
				OldDays:           180,
				RecentMultiplier:  1.0,
				MidMultiplier:     0.6,
				OldMultiplier:     0.2,
				HorizonMultiplier: 0.05,
			},
			Tiers: TierConfig{
				Medium:          10,
				High:            25,
				VeryHigh:        50,
				LowPercent:      0.20,
				MediumPercent:   0.50,
				HighPercent:     0.75,
				VeryHighPercent: 0.95,
			},
			TopColors:        5,
			ProfileCacheTTL:  5 * time.Minute,
			ProfileCacheSize: 10000,
			DedupCacheSize:   50000,
		},
		Blocklist: BlocklistConfig{
			PromoteAfter: 10,
			SoftPenalty:  0.5,
			TemporaryTTL: 30 * 24 * time.Hour,
			TemporaryCap: 200,
		},
		Diversify: DiversifyConfig{
			Slots:                 SlotRatios{Perfect: 0.70, Great: 0.20, Exploring: 0.10},
			LowConfidenceSlots:    SlotRatios{Perfect: 0.40, Great: 0.20, Exploring: 0.40},
			PerfectThreshold:      90,
			GreatThreshold:        70,
			ColorWeight:           0.5,
			StyleWeight:           0.3,
			OccasionWeight:        0.2,
			PatternWindow:         10,
			PatternThreshold:      0.8,
			LockSimilarityCeiling: 0.3,
			HistoryCap:            100,
		},
		Tracker: TrackerConfig{
			InactivityTimeout: 5 * time.Minute,
		},
	}
}

// Validate checks the configuration for internal consistency. A non-nil
// error here is a ConfigurationError: fatal at startup, never at request
// time.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be 1-65535, got %d", c.Server.Port)
	}
	if !c.Store.InMemory && c.Store.Path == "" {
		return fmt.Errorf("store.path is required unless store.in_memory is set")
	}
	if c.Store.RetryAttempts < 1 {
		return fmt.Errorf("store.retry_attempts must be >= 1, got %d", c.Store.RetryAttempts)
	}
	if err := c.Aggregator.validate(); err != nil {
		return err
	}
	if err := c.Blocklist.validate(); err != nil {
		return err
	}
	return c.Diversify.validate()
}

func (a *AggregatorConfig) validate() error {
	d := a.Decay
	if d.RecentDays <= 0 || d.MidDays <= d.RecentDays || d.OldDays <= d.MidDays {
		return fmt.Errorf("aggregator.decay day boundaries must be ordered: 0 < recent < mid < old, got %d/%d/%d",
			d.RecentDays, d.MidDays, d.OldDays)
	}
	for name, m := range map[string]float64{
		"recent_multiplier":  d.RecentMultiplier,
		"mid_multiplier":     d.MidMultiplier,
		"old_multiplier":     d.OldMultiplier,
		"horizon_multiplier": d.HorizonMultiplier,
	} {
		if m < 0 || m > 1 {
			return fmt.Errorf("aggregator.decay.%s must be 0-1, got %f", name, m)
		}
	}
	t := a.Tiers
	if t.Medium <= 0 || t.High <= t.Medium || t.VeryHigh <= t.High {
		return fmt.Errorf("aggregator.tiers thresholds must be ordered: 0 < medium < high < very_high, got %d/%d/%d",
			t.Medium, t.High, t.VeryHigh)
	}
	if a.ProfileCacheTTL <= 0 {
		return fmt.Errorf("aggregator.profile_cache_ttl must be positive")
	}
	return nil
}

func (b *BlocklistConfig) validate() error {
	if b.PromoteAfter < 1 {
		return fmt.Errorf("blocklist.promote_after must be >= 1, got %d", b.PromoteAfter)
	}
	if b.SoftPenalty <= 0 || b.SoftPenalty > 1 {
		return fmt.Errorf("blocklist.soft_penalty must be in (0, 1], got %f", b.SoftPenalty)
	}
	if b.TemporaryCap < 1 {
		return fmt.Errorf("blocklist.temporary_cap must be >= 1, got %d", b.TemporaryCap)
	}
	return nil
}

func (d *DiversifyConfig) validate() error {
	for name, s := range map[string]SlotRatios{"slots": d.Slots, "low_confidence_slots": d.LowConfidenceSlots} {
		sum := s.Perfect + s.Great + s.Exploring
		if sum < 0.99 || sum > 1.01 {
			return fmt.Errorf("diversify.%s ratios must sum to 1.0, got %f", name, sum)
		}
	}
	if d.GreatThreshold >= d.PerfectThreshold {
		return fmt.Errorf("diversify.great_threshold must be below perfect_threshold")
	}
	if d.ColorWeight+d.StyleWeight+d.OccasionWeight <= 0 {
		return fmt.Errorf("diversify scoring weights must not all be zero")
	}
	if d.PatternWindow < 2 {
		return fmt.Errorf("diversify.pattern_window must be >= 2, got %d", d.PatternWindow)
	}
	if d.PatternThreshold <= 0 || d.PatternThreshold > 1 {
		return fmt.Errorf("diversify.pattern_threshold must be in (0, 1], got %f", d.PatternThreshold)
	}
	return nil
}
