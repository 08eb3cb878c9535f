package memory

import (
	"context"
	"sync"

	"ledgerbook/internal/settings"
)

var _ settings.Store = (*Store)(nil)

// Store keeps settings in process memory. Useful for tests and the memory
// backend; nothing survives a restart.
type Store struct {
	mu     sync.Mutex
	values map[string]string
	writes int
}

func New() *Store {
	return &Store{values: make(map[string]string)}
}

// NewWithValues seeds the store.
func NewWithValues(values map[string]string) *Store {
	s := New()
	for k, v := range values {
		s.values[k] = v
	}
	return s
}

func (s *Store) GetString(_ context.Context, key, def string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.values[key]; ok {
		return v, nil
	}
	return def, nil
}

func (s *Store) SetString(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	s.writes++
	return nil
}

// Writes reports how many SetString calls completed.
func (s *Store) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}
