package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"grovq/internal/amqp"
	"grovq/internal/backend"
	"grovq/internal/cli"
	"grovq/internal/log"
	"grovq/internal/metrics"
	"grovq/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentWorker)
	cfg := cli.LoadAndValidateConfig(logger)

	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the export worker")
		os.Exit(1)
	}

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}

	factory := backend.NewFactory(logger.Logger)
	source, err := factory.CreateSource(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to initialize dataset source", log.FieldError, err, log.FieldBackend, cfg.DataBackend)
		os.Exit(1)
	}
	if source.Cleanup != nil {
		defer source.Cleanup()
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	exportWorker := worker.NewExportWorker(source.Source, metrics.DefaultCACMap(), cfg.ExportDir)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return amqpClient.ConsumeExportRequests(gctx, exportWorker.HandleExportRequest)
	})
	g.Go(func() error {
		// Old export files are claim-checked by request ID; after a day
		// nobody is coming back for them.
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return gctx.Err()
			case <-ticker.C:
				if _, err := exportWorker.SweepOldExports(gctx, 24*time.Hour); err != nil {
					logger.Error("Export sweep failed", log.FieldError, err)
				}
			}
		}
	})

	logger.Info("Export worker started",
		"queue", cfg.AMQPQueue,
		log.FieldBackend, cfg.DataBackend,
		"export_dir", cfg.ExportDir)

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Export worker stopped with error", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Export worker stopped gracefully")
}
