// Outfitter - Preference Learning and Recommendation Diversification
// Copyright 2026 Maren Hollis (marenhollis)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/marenhollis/outfitter

package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/sony/gobreaker/v2"

	"github.com/marenhollis/outfitter/internal/config"
	"github.com/marenhollis/outfitter/internal/metrics"
)

// BreakerStore wraps a Store with a circuit breaker on the read path.
// When the store degrades, reads fail fast with ErrUnavailable and callers
// fall back to cached or cold-start data instead of stalling the
// recommendation flow. Writes pass through: they carry user signal that the
// retry machinery already bounds.
type BreakerStore struct {
	inner Store
	cb    *gobreaker.CircuitBreaker[any]
}

// NewBreakerStore wraps inner with a read-path circuit breaker.
func NewBreakerStore(inner Store, cfg config.StoreConfig) *BreakerStore {
	threshold := cfg.BreakerFailureThreshold
	if threshold == 0 {
		threshold = 5
	}
	settings := gobreaker.Settings{
		Name:    "document-store",
		Timeout: cfg.BreakerOpenFor,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			// Missing documents are a normal outcome, not a store failure.
			return err == nil || errors.Is(err, ErrNotFound)
		},
		OnStateChange: func(_ string, _, to gobreaker.State) {
			if to == gobreaker.StateOpen {
				metrics.StoreBreakerOpened.Inc()
			}
		},
	}
	return &BreakerStore{inner: inner, cb: gobreaker.NewCircuitBreaker[any](settings)}
}

func (b *BreakerStore) execute(op func() (any, error)) (any, error) {
	out, err := b.cb.Execute(op)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return out, err
}

// Get returns the document at key, failing fast when the breaker is open.
func (b *BreakerStore) Get(ctx context.Context, key string) (*Document, error) {
	out, err := b.execute(func() (any, error) {
		return b.inner.Get(ctx, key)
	})
	if err != nil {
		return nil, err
	}
	return out.(*Document), nil
}

// Exists reports key presence through the breaker.
func (b *BreakerStore) Exists(ctx context.Context, key string) (bool, error) {
	out, err := b.execute(func() (any, error) {
		return b.inner.Exists(ctx, key)
	})
	if err != nil {
		return false, err
	}
	return out.(bool), nil
}

// ScanPrefix streams documents through the breaker.
func (b *BreakerStore) ScanPrefix(ctx context.Context, prefix string, fn func(key string, data []byte) error) error {
	_, err := b.execute(func() (any, error) {
		return nil, b.inner.ScanPrefix(ctx, prefix, fn)
	})
	return err
}

// Put passes through to the inner store.
func (b *BreakerStore) Put(ctx context.Context, key string, data []byte, expected uint64) error {
	return b.inner.Put(ctx, key, data, expected)
}

// Append passes through to the inner store.
func (b *BreakerStore) Append(ctx context.Context, key string, data []byte) error {
	return b.inner.Append(ctx, key, data)
}

// ReadModifyWrite passes through to the inner store.
func (b *BreakerStore) ReadModifyWrite(ctx context.Context, key string, fn func(current []byte) ([]byte, error)) error {
	return b.inner.ReadModifyWrite(ctx, key, fn)
}

// Delete passes through to the inner store.
func (b *BreakerStore) Delete(ctx context.Context, key string) error {
	return b.inner.Delete(ctx, key)
}

// DeletePrefix passes through to the inner store.
func (b *BreakerStore) DeletePrefix(ctx context.Context, prefix string) error {
	return b.inner.DeletePrefix(ctx, prefix)
}

// Close closes the inner store.
func (b *BreakerStore) Close() error {
	return b.inner.Close()
}

var _ Store = (*BreakerStore)(nil)
