// Outfitter - Preference Learning and Recommendation Diversification
// Copyright 2026 Maren Hollis (marenhollis)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/marenhollis/outfitter

package validation

import (
	"testing"
	"time"

	"github.com/marenhollis/outfitter/internal/models"
)

func TestNormalizeColor(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{"named color", "navy", "#000080", false},
		{"named mixed case", " Cream ", "#fffdd0", false},
		{"six digit hex", "#CCFF00", "#ccff00", false},
		{"hex without hash", "000080", "#000080", false},
		{"three digit expansion", "#f80", "#ff8800", false},
		{"empty", "", "", true},
		{"unknown name", "sparkle", "", true},
		{"bad hex", "#12345g", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeColor(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NormalizeColor(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("NormalizeColor(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalizeVocabularies(t *testing.T) {
	if _, err := NormalizeStyle("Casual"); err != nil {
		t.Errorf("known style rejected: %v", err)
	}
	if _, err := NormalizeStyle("futuristic"); err == nil {
		t.Error("unknown style accepted")
	}
	if _, err := NormalizeOccasion("WORK"); err != nil {
		t.Errorf("known occasion rejected: %v", err)
	}
	if _, err := NormalizeSeason("fall"); err != nil {
		t.Errorf("known season rejected: %v", err)
	}
	if _, err := NormalizeSeason("monsoon"); err == nil {
		t.Error("unknown season accepted")
	}
}

func validEvent() *models.InteractionEvent {
	return &models.InteractionEvent{
		ID:        "ev-1",
		UserID:    "u1",
		Type:      models.EventLiked,
		Timestamp: time.Now(),
		Attributes: models.OutfitAttributes{
			Colors:   []string{"navy"},
			Styles:   []string{"casual"},
			Occasion: "work",
			Season:   "fall",
		},
	}
}

func TestValidateEvent(t *testing.T) {
	t.Run("normalizes in place", func(t *testing.T) {
		ev := validEvent()
		if verr := ValidateEvent(ev); verr != nil {
			t.Fatalf("valid event rejected: %v", verr)
		}
		if ev.Attributes.Colors[0] != "#000080" {
			t.Errorf("color not normalized: %q", ev.Attributes.Colors[0])
		}
	})

	t.Run("missing id", func(t *testing.T) {
		ev := validEvent()
		ev.ID = ""
		if ValidateEvent(ev) == nil {
			t.Error("event without id accepted")
		}
	})

	t.Run("unknown type", func(t *testing.T) {
		ev := validEvent()
		ev.Type = "purchased"
		if ValidateEvent(ev) == nil {
			t.Error("unknown event type accepted")
		}
	})

	t.Run("bad color rejects whole event", func(t *testing.T) {
		ev := validEvent()
		ev.Attributes.Colors = append(ev.Attributes.Colors, "sparkle")
		if ValidateEvent(ev) == nil {
			t.Error("event with unrecognized color accepted")
		}
	})

	t.Run("hover color normalized", func(t *testing.T) {
		ev := validEvent()
		ev.Type = models.EventHoveredColor
		ev.ColorHex = "CCFF00"
		if verr := ValidateEvent(ev); verr != nil {
			t.Fatalf("hover event rejected: %v", verr)
		}
		if ev.ColorHex != "#ccff00" {
			t.Errorf("hover color not normalized: %q", ev.ColorHex)
		}
	})
}
