// Package pebble stores settings in a Pebble LSM directory.
package pebble

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/cockroachdb/pebble"

	"ledgerbook/internal/settings"
)

var _ settings.Store = (*Store)(nil)

type Store struct {
	mu        sync.RWMutex
	db        *pebble.DB
	opts      *pebble.Options
	cacheSize int64
}

type Option func(*Store)

// WithCache sets the block cache size in bytes.
func WithCache(size int64) Option {
	return func(s *Store) {
		s.cacheSize = size
	}
}

func WithMemTableSize(size uint64) Option {
	return func(s *Store) {
		s.opts.MemTableSize = size
	}
}

// WithOptions replaces the pebble options entirely, e.g. to use an in-memory vfs.
func WithOptions(opts *pebble.Options) Option {
	return func(s *Store) {
		s.opts = opts
	}
}

// Open opens or creates the database directory at dir.
func Open(dir string, opts ...Option) (*Store, error) {
	s := &Store{
		opts:      &pebble.Options{MemTableSize: 4 << 20},
		cacheSize: 8 << 20,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.opts.Cache == nil && s.cacheSize > 0 {
		cache := pebble.NewCache(s.cacheSize)
		// The open database holds its own reference.
		defer cache.Unref()
		s.opts.Cache = cache
	}

	db, err := pebble.Open(dir, s.opts)
	if err != nil {
		return nil, fmt.Errorf("open pebble: %w", err)
	}
	s.db = db
	return s, nil
}

func (s *Store) GetString(_ context.Context, key, def string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return "", settings.ErrClosed
	}

	v, closer, err := s.db.Get([]byte(key))
	if errors.Is(err, pebble.ErrNotFound) {
		return def, nil
	}
	if err != nil {
		return "", fmt.Errorf("get setting %q: %w", key, err)
	}
	defer closer.Close()

	// v is only valid until closer is closed.
	return string(v), nil
}

func (s *Store) SetString(_ context.Context, key, value string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return settings.ErrClosed
	}
	if err := s.db.Set([]byte(key), []byte(value), pebble.Sync); err != nil {
		return fmt.Errorf("set setting %q: %w", key, err)
	}
	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}
