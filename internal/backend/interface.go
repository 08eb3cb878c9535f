package backend

import (
	"context"
	"time"

	"ledgerbook/internal/ledger"
)

// CleanupFunc releases resources held by a persister.
type CleanupFunc func() error

// Result contains the persister and an optional cleanup function
type Result struct {
	Persister ledger.Persister
	Cleanup   CleanupFunc
}

// Close runs the cleanup function if there is one.
func (r *Result) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}

// Factory creates persisters based on configuration
type Factory interface {
	CreatePersister(ctx context.Context, config Config) (*Result, error)
}

// Config holds configuration for persister creation
type Config struct {
	Type BackendType

	// Key under which settings-backed stores keep the encoded ledger.
	SettingsKey string
	// AsyncWrites moves saves onto a background single-writer queue.
	AsyncWrites bool

	SQLiteDBPath string
	PebbleDir    string

	RemoteBaseURL    string
	RemoteToken      string
	RemoteTimeout    time.Duration
	RemoteMaxRetries uint
}

// BackendType represents the type of backend
type BackendType string

const (
	MemoryBackend BackendType = "memory"
	SQLiteBackend BackendType = "sqlite"
	PebbleBackend BackendType = "pebble"
	RemoteBackend BackendType = "remote"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case MemoryBackend, SQLiteBackend, PebbleBackend, RemoteBackend:
		return true
	default:
		return false
	}
}
