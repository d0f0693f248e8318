// Outfitter - Preference Learning and Recommendation Diversification
// Copyright 2026 Maren Hollis (marenhollis)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/marenhollis/outfitter

package validation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/marenhollis/outfitter/internal/models"
)

// hexPattern matches three or six digit hex colors with optional '#'.
var hexPattern = regexp.MustCompile(`^#?([0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// namedColors maps common color names to canonical hex. The UI mostly sends
// hex from pixel extraction, but explicit user actions arrive as names.
var namedColors = map[string]string{
	"black":       "#000000",
	"white":       "#ffffff",
	"navy":        "#000080",
	"blue":        "#0000ff",
	"red":         "#ff0000",
	"green":       "#008000",
	"olive":       "#808000",
	"orange":      "#ffa500",
	"yellow":      "#ffff00",
	"neon-yellow": "#ccff00",
	"purple":      "#800080",
	"pink":        "#ffc0cb",
	"brown":       "#a52a2a",
	"beige":       "#f5f5dc",
	"cream":       "#fffdd0",
	"gray":        "#808080",
	"grey":        "#808080",
	"charcoal":    "#36454f",
	"burgundy":    "#800020",
	"teal":        "#008080",
	"mustard":     "#e1ad01",
	"khaki":       "#c3b091",
}

// knownStyles is the closed style vocabulary.
var knownStyles = map[string]struct{}{
	"casual": {}, "formal": {}, "business": {}, "smart-casual": {},
	"streetwear": {}, "athleisure": {}, "bohemian": {}, "minimalist": {},
	"vintage": {}, "preppy": {}, "edgy": {}, "romantic": {}, "classic": {},
}

// knownOccasions is the closed occasion vocabulary.
var knownOccasions = map[string]struct{}{
	"work": {}, "date": {}, "party": {}, "wedding": {}, "casual": {},
	"interview": {}, "travel": {}, "gym": {}, "brunch": {}, "everyday": {},
}

// knownSeasons is the closed season vocabulary.
var knownSeasons = map[string]struct{}{
	"spring": {}, "summer": {}, "fall": {}, "winter": {},
}

// NormalizeColor converts a color name or hex string to canonical lowercase
// six-digit hex with a leading '#'.
func NormalizeColor(raw string) (string, error) {
	v := strings.ToLower(strings.TrimSpace(raw))
	if v == "" {
		return "", fmt.Errorf("empty color")
	}
	if hex, ok := namedColors[v]; ok {
		return hex, nil
	}
	if !hexPattern.MatchString(v) {
		return "", fmt.Errorf("unrecognized color %q", raw)
	}
	v = strings.TrimPrefix(v, "#")
	if len(v) == 3 {
		v = fmt.Sprintf("%c%c%c%c%c%c", v[0], v[0], v[1], v[1], v[2], v[2])
	}
	return "#" + v, nil
}

// NormalizeStyle lowercases and checks the style against the vocabulary.
func NormalizeStyle(raw string) (string, error) {
	v := strings.ToLower(strings.TrimSpace(raw))
	if _, ok := knownStyles[v]; !ok {
		return "", fmt.Errorf("unknown style %q", raw)
	}
	return v, nil
}

// NormalizeOccasion lowercases and checks the occasion vocabulary.
func NormalizeOccasion(raw string) (string, error) {
	v := strings.ToLower(strings.TrimSpace(raw))
	if _, ok := knownOccasions[v]; !ok {
		return "", fmt.Errorf("unknown occasion %q", raw)
	}
	return v, nil
}

// NormalizeSeason lowercases and checks the season vocabulary.
func NormalizeSeason(raw string) (string, error) {
	v := strings.ToLower(strings.TrimSpace(raw))
	if _, ok := knownSeasons[v]; !ok {
		return "", fmt.Errorf("unknown season %q", raw)
	}
	return v, nil
}

// NormalizeAttributes normalizes every attribute in place, rejecting the
// whole set if any value is unrecognized. Invalid attributes are a
// ValidationError, rejected synchronously and never retried.
func NormalizeAttributes(a *models.OutfitAttributes) *RequestValidationError {
	for i, c := range a.Colors {
		norm, err := NormalizeColor(c)
		if err != nil {
			return NewFieldError("attributes.colors", err.Error())
		}
		a.Colors[i] = norm
	}
	for i, s := range a.Styles {
		norm, err := NormalizeStyle(s)
		if err != nil {
			return NewFieldError("attributes.styles", err.Error())
		}
		a.Styles[i] = norm
	}
	if a.Occasion != "" {
		norm, err := NormalizeOccasion(a.Occasion)
		if err != nil {
			return NewFieldError("attributes.occasion", err.Error())
		}
		a.Occasion = norm
	}
	if a.Season != "" {
		norm, err := NormalizeSeason(a.Season)
		if err != nil {
			return NewFieldError("attributes.season", err.Error())
		}
		a.Season = norm
	}
	return nil
}

// ValidateEvent checks shape and normalizes an interaction event in place.
func ValidateEvent(ev *models.InteractionEvent) *RequestValidationError {
	if verr := ValidateStruct(ev); verr != nil {
		return verr
	}
	if !ev.Type.Valid() {
		return NewFieldError("type", fmt.Sprintf("unknown event type %q", ev.Type))
	}
	if ev.ColorHex != "" {
		norm, err := NormalizeColor(ev.ColorHex)
		if err != nil {
			return NewFieldError("color_hex", err.Error())
		}
		ev.ColorHex = norm
	}
	if ev.Platform != "" {
		ev.Platform = strings.ToLower(strings.TrimSpace(ev.Platform))
	}
	return NormalizeAttributes(&ev.Attributes)
}
