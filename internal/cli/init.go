// Package cli provides common initialization shared by cmd/ledger and
// cmd/ledgerd.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"ledgerbook/internal/backend"
	"ledgerbook/internal/config"
	"ledgerbook/internal/ledger"
	"ledgerbook/internal/log"
)

// SetupLogger builds the process logger from cfg, writes to out and installs
// it as the slog default.
func SetupLogger(cfg *config.Config, component string, out io.Writer) *log.Logger {
	lc := cfg.LogConfig(component)
	lc.Output = out
	logger := log.New(lc)
	log.SetDefault(logger)
	return logger
}

// LoadAndValidateConfig loads .env plus the environment and validates it.
func LoadAndValidateConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// OpenLedger builds the configured persister and a loaded ledger store.
// The returned cleanup flushes pending writes and releases the backend.
func OpenLedger(ctx context.Context, cfg *config.Config, logger *log.Logger, opts ...ledger.Option) (*ledger.Store, backend.CleanupFunc, error) {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, nil, err
	}
	res, err := backend.NewFactory(logger).CreatePersister(ctx, bcfg)
	if err != nil {
		return nil, nil, fmt.Errorf("create persister: %w", err)
	}

	opts = append([]ledger.Option{ledger.WithLogger(logger)}, opts...)
	store := ledger.New(res.Persister, opts...)
	store.Load(ctx)
	return store, res.Close, nil
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext(logger *log.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	go func() {
		<-ctx.Done()
		logger.Info("Shutdown signal received", log.FieldOperation, log.OpShutdown)
	}()
	return ctx, cancel
}
