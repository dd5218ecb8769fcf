package main

import (
	"context"
	"errors"
	"os"

	"golang.org/x/sync/errgroup"

	"finx/internal/amqp"
	"finx/internal/backend"
	"finx/internal/cli"
	"finx/internal/config"
	"finx/internal/log"
	"finx/internal/ports"
	gsheet "finx/internal/sheets/google"
	memsheet "finx/internal/sheets/memory"
	"finx/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL")).WithComponent(log.ComponentWorker)
	logger.Info("Starting finx-worker")

	cfg := cli.LoadAndValidateConfig(logger, func(c *config.Config) error {
		return errors.Join(c.Validate(), c.ValidateWorker())
	})

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	// Read the snapshot blobs and export marks the API server writes.
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	store, err := backend.NewFactory(logger.Logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer store.Close()

	var exporter ports.ProjectionExporter
	switch cfg.ExportTarget {
	case "memory":
		exporter = memsheet.New()
		logger.Info("Exporting to memory - nothing leaves the process")
	default:
		sheetsExporter, err := gsheet.New(ctx, gsheet.Config{
			SpreadsheetID:      cfg.GoogleSpreadsheetID,
			SummarySheet:       cfg.GoogleSummarySheetName,
			ProjectionSheet:    cfg.GoogleProjectionSheetName,
			ServiceAccountJSON: cfg.GoogleServiceAccountJSON,
			ServiceAccountFile: cfg.GoogleServiceAccountFile,
		})
		if err != nil {
			logger.Error("Failed to initialize Google Sheets exporter", log.FieldError, err)
			os.Exit(1)
		}
		exporter = sheetsExporter
		logger.Info("Google Sheets exporter initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	exportWorker := worker.NewExportWorker(store.Store, store.Store, exporter, cfg.ExportMonths)

	// Export anything written while the worker was down.
	if err := exportWorker.StartupSyncCheck(ctx); err != nil {
		logger.Error("Failed startup export check", log.FieldError, err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := amqpClient.ConsumeSnapshotUpdates(gctx, exportWorker.HandleSnapshotUpdated)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		// Periodic catch-up for lost messages.
		exportWorker.Run(gctx, cfg.ExportInterval)
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Message consumption failed", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Worker shutdown complete")
}
