// Outfitter - Preference Learning and Recommendation Diversification
// Copyright 2026 Maren Hollis (marenhollis)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/marenhollis/outfitter

package store

import "time"

// Key prefixes. Events carry a fixed-width UTC timestamp in the key so a
// prefix scan doubles as the (userID, timestamp range) indexed query.
const (
	eventKeyPrefix   = "event:"
	markerKeyPrefix  = "eventid:"
	profileKeyPrefix = "profile:"
	blockKeyPrefix   = "blocklist:"
	sessionKeyPrefix = "session:"
	historyKeyPrefix = "history:"
)

// eventTimeFormat sorts lexicographically in key order.
const eventTimeFormat = "20060102T150405.000000000"

// EventKey returns the key for one interaction event.
func EventKey(userID string, ts time.Time, eventID string) string {
	return eventKeyPrefix + userID + ":" + ts.UTC().Format(eventTimeFormat) + ":" + eventID
}

// EventPrefix returns the scan prefix covering all of a user's events.
func EventPrefix(userID string) string {
	return eventKeyPrefix + userID + ":"
}

// MarkerKey returns the idempotency-marker key for an event id.
func MarkerKey(userID, eventID string) string {
	return markerKeyPrefix + userID + ":" + eventID
}

// MarkerPrefix returns the scan prefix covering a user's event markers.
func MarkerPrefix(userID string) string {
	return markerKeyPrefix + userID + ":"
}

// ProfileKey returns the key for a user's aggregation state document.
func ProfileKey(userID string) string {
	return profileKeyPrefix + userID
}

// BlocklistKey returns the key for a user's blocklists document.
func BlocklistKey(userID string) string {
	return blockKeyPrefix + userID
}

// SessionKey returns the key for an interaction session.
func SessionKey(sessionID string) string {
	return sessionKeyPrefix + sessionID
}

// SessionPrefix returns the scan prefix covering all sessions. Sessions are
// keyed by id alone, so per-user operations filter on the decoded document.
func SessionPrefix() string {
	return sessionKeyPrefix
}

// HistoryKey returns the key for a user's recent-recommendation history.
func HistoryKey(userID string) string {
	return historyKeyPrefix + userID
}
