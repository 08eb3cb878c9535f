package settings

import (
	"context"
	"errors"
)

// ErrClosed is returned by stores used after Close.
var ErrClosed = errors.New("settings store closed")

// Store is a durable string key-value store.
//
// SetString replaces the value of a single key as one unit: readers observe
// either the previous value or the new one, never a mix.
type Store interface {
	// GetString returns the value for key, or def when the key is absent.
	GetString(ctx context.Context, key, def string) (string, error)

	// SetString stores value under key and returns once it is durable.
	SetString(ctx context.Context, key, value string) error
}
