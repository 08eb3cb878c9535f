package pebble

import (
	"context"
	"errors"
	"testing"

	"github.com/cockroachdb/pebble"

	"ledgerbook/internal/settings"
)

func TestPebbleStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := Open(dir, WithCache(1<<20))
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	v, err := s.GetString(ctx, "data", "[]")
	if err != nil || v != "[]" {
		t.Fatalf("expected default, got %q err=%v", v, err)
	}
	if err := s.SetString(ctx, "data", "first"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := s.SetString(ctx, "data", "second"); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	s, err = Open(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	v, err = s.GetString(ctx, "data", "[]")
	if err != nil || v != "second" {
		t.Fatalf("expected persisted value, got %q err=%v", v, err)
	}
}

func TestPebbleStoreClosed(t *testing.T) {
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second close should be a no-op: %v", err)
	}
	if err := s.SetString(context.Background(), "k", "v"); !errors.Is(err, settings.ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestPebbleStoreLeavesCallerCacheReferenced(t *testing.T) {
	cache := pebble.NewCache(1 << 20)
	s, err := Open(t.TempDir(), WithOptions(&pebble.Options{Cache: cache}))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := s.SetString(context.Background(), "k", "v"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	// Panics if Open had released the caller's reference.
	cache.Unref()
}

func TestPebbleStoreReopenWithOwnCache(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < 5; i++ {
		s, err := Open(dir, WithCache(1<<20))
		if err != nil {
			t.Fatalf("open %d: %v", i, err)
		}
		if err := s.SetString(context.Background(), "k", "v"); err != nil {
			t.Fatalf("set %d: %v", i, err)
		}
		if err := s.Close(); err != nil {
			t.Fatalf("close %d: %v", i, err)
		}
	}
}
