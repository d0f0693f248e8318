// Outfitter - Preference Learning and Recommendation Diversification
// Copyright 2026 Maren Hollis (marenhollis)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/marenhollis/outfitter

// Package store provides the generic document-store abstraction the engine
// persists through. The engine's logic never sees a vendor API shape: it
// gets keyed documents with optimistic concurrency (a version field), prefix
// scans, and bounded-time operations. The default implementation is BadgerDB.
package store

import (
	"context"
	"errors"
)

// Sentinel errors. TransientStoreError conditions (conflict, timeout,
// unavailable) are retried with bounded backoff by callers; exhaustion
// degrades to cached or empty data, never to a failed recommendation.
var (
	// ErrNotFound indicates the document does not exist.
	ErrNotFound = errors.New("store: document not found")

	// ErrConflict indicates a version mismatch on a conditional write.
	ErrConflict = errors.New("store: version conflict")

	// ErrTimeout indicates the operation exceeded its deadline.
	ErrTimeout = errors.New("store: operation timed out")

	// ErrUnavailable indicates the store is unreachable or the read-path
	// circuit breaker is open.
	ErrUnavailable = errors.New("store: unavailable")
)

// IsTransient reports whether err is worth retrying or degrading around,
// as opposed to a permanent failure like a validation problem.
func IsTransient(err error) bool {
	return errors.Is(err, ErrConflict) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrUnavailable)
}

// Document is a versioned stored value.
type Document struct {
	Key     string
	Version uint64
	Data    []byte
}

// Store is the persistence interface required from the backing store.
type Store interface {
	// Get returns the document at key, or ErrNotFound.
	Get(ctx context.Context, key string) (*Document, error)

	// Put writes data at key when the stored version equals expected.
	// expected 0 requires the key to be absent. Mismatch is ErrConflict.
	Put(ctx context.Context, key string, data []byte, expected uint64) error

	// Append writes an immutable record unconditionally. Used for
	// append-only data where last-write-wins is safe (events, markers).
	Append(ctx context.Context, key string, data []byte) error

	// ReadModifyWrite atomically applies fn to the document at key,
	// retrying version conflicts with bounded exponential backoff.
	// fn receives nil when the document does not exist yet.
	ReadModifyWrite(ctx context.Context, key string, fn func(current []byte) ([]byte, error)) error

	// Delete removes the document at key. Absent keys are a no-op.
	Delete(ctx context.Context, key string) error

	// DeletePrefix removes every document whose key starts with prefix.
	DeletePrefix(ctx context.Context, prefix string) error

	// Exists reports whether key is present.
	Exists(ctx context.Context, key string) (bool, error)

	// ScanPrefix streams documents under prefix in key order. The scan
	// stops when fn returns an error.
	ScanPrefix(ctx context.Context, prefix string, fn func(key string, data []byte) error) error

	// Close releases the store.
	Close() error
}
