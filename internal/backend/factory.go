package backend

import (
	"context"
	"errors"
	"fmt"

	"ledgerbook/internal/ledger"
	"ledgerbook/internal/log"
	"ledgerbook/internal/remote"
	"ledgerbook/internal/settings/memory"
	"ledgerbook/internal/settings/pebble"
	"ledgerbook/internal/settings/sqlite"
	"ledgerbook/internal/worker"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.Discard()
	}
	return &DefaultFactory{
		logger: logger.WithComponent(log.ComponentBackend),
	}
}

// CreatePersister builds the configured persister. With AsyncWrites the
// persister is wrapped in a started worker.AsyncPersister whose queue is
// drained by Cleanup before the underlying store is closed.
func (f *DefaultFactory) CreatePersister(ctx context.Context, config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if config.SettingsKey == "" {
		config.SettingsKey = ledger.DefaultKey
	}

	var (
		res *Result
		err error
	)
	switch config.Type {
	case MemoryBackend:
		res = f.createMemoryPersister(config)
	case SQLiteBackend:
		res, err = f.createSQLitePersister(config)
	case PebbleBackend:
		res, err = f.createPebblePersister(config)
	case RemoteBackend:
		res, err = f.createRemotePersister(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
	if err != nil {
		return nil, err
	}

	if config.AsyncWrites {
		res = f.wrapAsync(ctx, res)
	}
	return res, nil
}

func (f *DefaultFactory) createMemoryPersister(config Config) *Result {
	store := memory.New()
	f.logger.Info("Initialized memory backend")
	return &Result{Persister: ledger.NewSettingsPersister(store, config.SettingsKey, f.logger)}
}

func (f *DefaultFactory) createSQLitePersister(config Config) (*Result, error) {
	store, err := sqlite.Open(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite store: %w", err)
	}

	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)
	return &Result{
		Persister: ledger.NewSettingsPersister(store, config.SettingsKey, f.logger),
		Cleanup:   store.Close,
	}, nil
}

func (f *DefaultFactory) createPebblePersister(config Config) (*Result, error) {
	store, err := pebble.Open(config.PebbleDir)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Pebble store: %w", err)
	}

	f.logger.Info("Initialized Pebble backend", "dir", config.PebbleDir)
	return &Result{
		Persister: ledger.NewSettingsPersister(store, config.SettingsKey, f.logger),
		Cleanup:   store.Close,
	}, nil
}

func (f *DefaultFactory) createRemotePersister(config Config) (*Result, error) {
	client, err := remote.NewClient(remote.Config{
		BaseURL:    config.RemoteBaseURL,
		Token:      config.RemoteToken,
		Timeout:    config.RemoteTimeout,
		MaxRetries: config.RemoteMaxRetries,
	}, f.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize remote client: %w", err)
	}

	f.logger.Info("Initialized remote backend", "base_url", config.RemoteBaseURL)
	return &Result{Persister: client}, nil
}

func (f *DefaultFactory) wrapAsync(ctx context.Context, res *Result) *Result {
	async := worker.NewAsyncPersister(res.Persister, f.logger)
	// The queue outlives ctx; Cleanup stops it.
	async.Start(context.WithoutCancel(ctx))

	inner := res.Cleanup
	f.logger.Info("Enabled asynchronous writes")
	return &Result{
		Persister: async,
		Cleanup: func() error {
			errs := []error{async.Close()}
			if inner != nil {
				errs = append(errs, inner())
			}
			return errors.Join(errs...)
		},
	}
}
