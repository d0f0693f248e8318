// Outfitter - Preference Learning and Recommendation Diversification
// Copyright 2026 Maren Hollis (marenhollis)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/marenhollis/outfitter

package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/marenhollis/outfitter/internal/config"
	"github.com/marenhollis/outfitter/internal/metrics"
)

// envelope wraps stored data with its optimistic-concurrency version.
type envelope struct {
	Version uint64          `json:"version"`
	Data    json.RawMessage `json:"data"`
}

// BadgerStore implements Store on BadgerDB. Badger transactions are
// serializable, so the version check inside Put happens atomically with
// the write.
type BadgerStore struct {
	db     *badger.DB
	cfg    config.StoreConfig
	logger zerolog.Logger
}

// Open opens (or creates) the badger-backed store.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func Open(cfg config.StoreConfig, logger zerolog.Logger) (*BadgerStore, error) {
	opts := badger.DefaultOptions(cfg.Path)
	if cfg.InMemory {
		// Badger rejects disk-less mode when Dir/ValueDir are set.
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts = opts.WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %s: %w", cfg.Path, err)
	}
	return &BadgerStore{
		db:     db,
		cfg:    cfg,
		logger: logger.With().Str("component", "store").Logger(),
	}, nil
}

// Close releases the underlying database.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

// checkCtx maps a context deadline/cancellation to the store taxonomy.
func checkCtx(ctx context.Context) error {
	switch {
	case ctx.Err() == nil:
		return nil
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return ErrTimeout
	default:
		return fmt.Errorf("%w: %v", ErrUnavailable, ctx.Err())
	}
}

// Get returns the document at key.
func (s *BadgerStore) Get(ctx context.Context, key string) (*Document, error) {
	if err := checkCtx(ctx); err != nil {
		return nil, err
	}

	var env envelope
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get %s: %w", key, err)
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &env)
		})
	})
	if err != nil {
		return nil, err
	}
	return &Document{Key: key, Version: env.Version, Data: env.Data}, nil
}

// Put writes data when the stored version matches expected.
func (s *BadgerStore) Put(ctx context.Context, key string, data []byte, expected uint64) error {
	if err := checkCtx(ctx); err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		current := uint64(0)
		item, err := txn.Get([]byte(key))
		switch {
		case errors.Is(err, badger.ErrKeyNotFound):
			// create
		case err != nil:
			return fmt.Errorf("read %s: %w", key, err)
		default:
			var env envelope
			if verr := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &env)
			}); verr != nil {
				return fmt.Errorf("decode %s: %w", key, verr)
			}
			current = env.Version
		}

		if current != expected {
			return fmt.Errorf("%w: %s expected v%d, stored v%d", ErrConflict, key, expected, current)
		}

		out, err := json.Marshal(envelope{Version: current + 1, Data: data})
		if err != nil {
			return fmt.Errorf("encode %s: %w", key, err)
		}
		return txn.Set([]byte(key), out)
	})
}

// Append writes an immutable record without version checking.
func (s *BadgerStore) Append(ctx context.Context, key string, data []byte) error {
	if err := checkCtx(ctx); err != nil {
		return err
	}

	out, err := json.Marshal(envelope{Version: 1, Data: data})
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), out)
	})
}

// ReadModifyWrite applies fn under optimistic concurrency with bounded
// retries and exponential backoff. Concurrent writers never silently lose
// updates: a conflicting write surfaces as ErrConflict and the losing side
// re-reads and reapplies.
func (s *BadgerStore) ReadModifyWrite(ctx context.Context, key string, fn func(current []byte) ([]byte, error)) error {
	delay := s.cfg.RetryBaseDelay
	var lastErr error

	for attempt := 0; attempt < s.cfg.RetryAttempts; attempt++ {
		if attempt > 0 {
			metrics.StoreConflictRetries.Inc()
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return checkCtx(ctx)
			}
			delay *= 2
		}

		doc, err := s.Get(ctx, key)
		version := uint64(0)
		var current []byte
		switch {
		case errors.Is(err, ErrNotFound):
			// first write for this key
		case err != nil:
			return err
		default:
			version = doc.Version
			current = doc.Data
		}

		next, err := fn(current)
		if err != nil {
			return err
		}

		err = s.Put(ctx, key, next, version)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrConflict) {
			return err
		}
		lastErr = err
	}

	return fmt.Errorf("read-modify-write %s exhausted %d attempts: %w", key, s.cfg.RetryAttempts, lastErr)
}

// Delete removes the document at key.
func (s *BadgerStore) Delete(ctx context.Context, key string) error {
	if err := checkCtx(ctx); err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
}

// DeletePrefix removes every document under prefix.
func (s *BadgerStore) DeletePrefix(ctx context.Context, prefix string) error {
	if err := checkCtx(ctx); err != nil {
		return err
	}
	return s.db.DropPrefix([]byte(prefix))
}

// Exists reports whether key is present.
func (s *BadgerStore) Exists(ctx context.Context, key string) (bool, error) {
	if err := checkCtx(ctx); err != nil {
		return false, err
	}
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(key))
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("exists %s: %w", key, err)
	}
	return true, nil
}

// ScanPrefix streams documents under prefix in key order.
func (s *BadgerStore) ScanPrefix(ctx context.Context, prefix string, fn func(key string, data []byte) error) error {
	if err := checkCtx(ctx); err != nil {
		return err
	}

	return s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := checkCtx(ctx); err != nil {
				return err
			}
			item := it.Item()
			key := string(item.Key())
			var env envelope
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &env)
			}); err != nil {
				return fmt.Errorf("decode %s: %w", key, err)
			}
			if err := fn(key, env.Data); err != nil {
				return err
			}
		}
		return nil
	})
}

var _ Store = (*BadgerStore)(nil)
