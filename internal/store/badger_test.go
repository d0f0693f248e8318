// Outfitter - Preference Learning and Recommendation Diversification
// Copyright 2026 Maren Hollis (marenhollis)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/marenhollis/outfitter

package store

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/marenhollis/outfitter/internal/config"
)

func newTestStore(t *testing.T) *BadgerStore {
	t.Helper()
	s, err := Open(config.StoreConfig{
		InMemory:       true,
		RetryAttempts:  3,
		RetryBaseDelay: time.Millisecond,
	}, zerolog.Nop())
	if err != nil {
		t.Fatalf("open in-memory store: %v", err)
	}
	t.Cleanup(func() {
		if cerr := s.Close(); cerr != nil {
			t.Errorf("close store: %v", cerr)
		}
	})
	return s
}

func TestOpenInMemoryIgnoresConfiguredPath(t *testing.T) {
	// A configured disk path must not leak into disk-less mode; badger
	// refuses to open with both set.
	s, err := Open(config.StoreConfig{
		InMemory:       true,
		Path:           "/data/outfitter",
		RetryAttempts:  3,
		RetryBaseDelay: time.Millisecond,
	}, zerolog.Nop())
	if err != nil {
		t.Fatalf("open in-memory store with path configured: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	ctx := context.Background()
	if err := s.Append(ctx, "k", []byte(`"v"`)); err != nil {
		t.Fatalf("append: %v", err)
	}
	if doc, err := s.Get(ctx, "k"); err != nil || string(doc.Data) != `"v"` {
		t.Errorf("get = %v, %v", doc, err)
	}
}

func TestStoreGetNotFound(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Get(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(missing) error = %v, want ErrNotFound", err)
	}
}

func TestStorePutVersioning(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Put(ctx, "k", []byte(`{"n":1}`), 0); err != nil {
		t.Fatalf("initial put: %v", err)
	}
	doc, err := s.Get(ctx, "k")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if doc.Version != 1 {
		t.Errorf("version after create = %d, want 1", doc.Version)
	}

	// Stale expected version must conflict, not overwrite.
	if err := s.Put(ctx, "k", []byte(`{"n":2}`), 0); !errors.Is(err, ErrConflict) {
		t.Errorf("stale put error = %v, want ErrConflict", err)
	}
	if err := s.Put(ctx, "k", []byte(`{"n":2}`), 1); err != nil {
		t.Errorf("put with current version: %v", err)
	}
}

func TestStoreReadModifyWrite(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		err := s.ReadModifyWrite(ctx, "counter", func(current []byte) ([]byte, error) {
			n := 0
			if current != nil {
				var perr error
				if n, perr = strconv.Atoi(string(current)); perr != nil {
					return nil, perr
				}
			}
			return []byte(strconv.Itoa(n + 1)), nil
		})
		if err != nil {
			t.Fatalf("rmw iteration %d: %v", i, err)
		}
	}

	doc, err := s.Get(ctx, "counter")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if doc.Version != 5 {
		t.Errorf("version after 5 writes = %d, want 5", doc.Version)
	}
	if string(doc.Data) != "5" {
		t.Errorf("counter = %s, want 5", doc.Data)
	}
}

func TestStoreScanPrefixOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		key := EventKey("u1", base.Add(time.Duration(i)*time.Hour), "e"+string(rune('a'+i)))
		if err := s.Append(ctx, key, []byte{byte('0' + i)}); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	if err := s.Append(ctx, EventKey("u2", base, "other"), []byte(`"x"`)); err != nil {
		t.Fatalf("append: %v", err)
	}

	var got []string
	err := s.ScanPrefix(ctx, EventPrefix("u1"), func(_ string, data []byte) error {
		got = append(got, string(data))
		return nil
	})
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("scanned %d events, want 3", len(got))
	}
	for i, v := range []string{"0", "1", "2"} {
		if got[i] != v {
			t.Errorf("scan order[%d] = %q, want %q (keys must sort by timestamp)", i, got[i], v)
		}
	}
}

func TestStoreExistsAndDeletePrefix(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	key := MarkerKey("u1", "ev-1")
	if ok, _ := s.Exists(ctx, key); ok {
		t.Error("marker exists before write")
	}
	if err := s.Append(ctx, key, []byte(`{}`)); err != nil {
		t.Fatalf("append: %v", err)
	}
	if ok, _ := s.Exists(ctx, key); !ok {
		t.Error("marker missing after write")
	}

	if err := s.DeletePrefix(ctx, MarkerPrefix("u1")); err != nil {
		t.Fatalf("delete prefix: %v", err)
	}
	if ok, _ := s.Exists(ctx, key); ok {
		t.Error("marker survived prefix delete")
	}
}

func TestStoreContextCancellation(t *testing.T) {
	s := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := s.Get(ctx, "k"); !errors.Is(err, ErrUnavailable) {
		t.Errorf("canceled Get error = %v, want ErrUnavailable", err)
	}

	deadCtx, dcancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer dcancel()
	if err := s.Append(deadCtx, "k", []byte("x")); !errors.Is(err, ErrTimeout) {
		t.Errorf("expired Append error = %v, want ErrTimeout", err)
	}
}
