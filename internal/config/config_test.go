// Outfitter - Preference Learning and Recommendation Diversification
// Copyright 2026 Maren Hollis (marenhollis)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/marenhollis/outfitter

package config

import (
	"testing"

	"github.com/marenhollis/outfitter/internal/models"
)

func TestDefaultConfigValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Errorf("default configuration invalid: %v", err)
	}
}

func TestValidateRejectsBadConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad port", func(c *Config) { c.Server.Port = 0 }},
		{"missing store path", func(c *Config) { c.Store.Path = ""; c.Store.InMemory = false }},
		{"zero retries", func(c *Config) { c.Store.RetryAttempts = 0 }},
		{"unordered decay", func(c *Config) { c.Aggregator.Decay.MidDays = 10 }},
		{"multiplier above one", func(c *Config) { c.Aggregator.Decay.RecentMultiplier = 1.5 }},
		{"unordered tiers", func(c *Config) { c.Aggregator.Tiers.High = 5 }},
		{"zero promote threshold", func(c *Config) { c.Blocklist.PromoteAfter = 0 }},
		{"soft penalty above one", func(c *Config) { c.Blocklist.SoftPenalty = 1.5 }},
		{"ratios not summing", func(c *Config) { c.Diversify.Slots.Perfect = 0.9 }},
		{"thresholds inverted", func(c *Config) { c.Diversify.GreatThreshold = 95 }},
		{"tiny pattern window", func(c *Config) { c.Diversify.PatternWindow = 1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("invalid configuration accepted")
			}
		})
	}
}

func TestOutcomeWeightOverrides(t *testing.T) {
	cfg := AggregatorConfig{Weights: map[string]float64{"wore": 8.0}}
	weights := cfg.OutcomeWeights()
	if weights[models.EventWore] != 8.0 {
		t.Errorf("override ignored: wore = %f", weights[models.EventWore])
	}
	if weights[models.EventLiked] != 2.0 {
		t.Errorf("default lost under override: liked = %f", weights[models.EventLiked])
	}
}
