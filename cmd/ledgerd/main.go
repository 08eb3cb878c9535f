package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"ledgerbook/internal/amqp"
	"ledgerbook/internal/cli"
	"ledgerbook/internal/config"
	apphttp "ledgerbook/internal/http"
	"ledgerbook/internal/ledger"
	"ledgerbook/internal/log"
	gsheet "ledgerbook/internal/sheets/google"
	"ledgerbook/internal/worker"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger := cli.SetupLogger(cfg, log.ComponentApp, os.Stdout)

	if err := run(cfg, logger); err != nil {
		logger.Error("Server error", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}

func run(cfg *config.Config, logger *log.Logger) error {
	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)

	var observers []ledger.Option
	var closers []func() error

	if cfg.AMQPEnabled() {
		pub, err := amqp.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPRoutingKey, logger)
		if err != nil {
			logger.Warn("Failed to initialize AMQP publisher, continuing without notifications", log.FieldError, err)
		} else {
			logger.Info("Initialized AMQP publisher",
				"exchange", cfg.AMQPExchange,
				"routing_key", cfg.AMQPRoutingKey)
			observers = append(observers, ledger.WithObserver(pub.Notify))
			closers = append(closers, pub.Close)
		}
	}

	if cfg.SheetsEnabled() {
		exporter, err := gsheet.NewExporter(ctx, gsheet.Config{
			SpreadsheetID:   cfg.GoogleSpreadsheetID,
			SheetName:       cfg.GoogleSheetName,
			CredentialsJSON: cfg.GoogleServiceAccountJSON,
			CredentialsFile: cfg.GoogleServiceAccountFile,
		}, logger)
		if err != nil {
			logger.Warn("Failed to initialize Google Sheets exporter, continuing without export", log.FieldError, err)
		} else {
			exports := worker.NewQueue(exporter, logger)
			g.Go(func() error { return exports.Run(ctx) })
			observers = append(observers, ledger.WithObserver(func(ctx context.Context, c ledger.Change) {
				if err := exports.Save(ctx, c.Records); err != nil {
					logger.WarnContext(ctx, "Failed to queue export", log.FieldError, err)
				}
			}))
		}
	}

	store, cleanup, err := cli.OpenLedger(ctx, cfg, logger, observers...)
	if err != nil {
		return err
	}
	closers = append(closers, cleanup)
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				logger.Error("Cleanup failed", log.FieldError, err)
			}
		}
	}()

	srv := apphttp.NewServer(":"+cfg.Port, store,
		apphttp.WithLogger(logger),
		apphttp.WithToken(cfg.APIToken),
		apphttp.WithRateLimit(cfg.RateLimitPerMinute))

	g.Go(func() error {
		logger.Info("Starting ledgerd",
			log.FieldOperation, log.OpStartup,
			"port", cfg.Port,
			log.FieldBackend, cfg.Backend,
			log.FieldCount, store.Len())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
