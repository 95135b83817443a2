package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"grovq/internal/amqp"
	"grovq/internal/backend"
	"grovq/internal/cli"
	apphttp "grovq/internal/http"
	"grovq/internal/log"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)

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
	logger.Info("Dataset source ready", log.FieldBackend, cfg.DataBackend)

	// The export queue is optional; without it the dashboard still serves
	// synchronous exports.
	var publisher apphttp.ExportPublisher
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", log.FieldError, err)
			os.Exit(1)
		}
		defer amqpClient.Close()
		publisher = amqpClient
		logger.Info("AMQP export queue ready", "queue", cfg.AMQPQueue)
	} else {
		logger.Info("AMQP disabled, async export unavailable")
	}

	srv := apphttp.NewServer(apphttp.Options{
		Addr:                ":" + cfg.Port,
		Source:              source.Source,
		Origin:              cfg.DataBackend,
		Publisher:           publisher,
		MonthlyNewCustomers: cfg.MonthlyNewCustomers,
		CacheSize:           cfg.CacheSize,
		CacheTTL:            cfg.CacheTTL,
	})

	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	// Serving starts only with a usable snapshot.
	loadCtx, loadCancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := srv.RefreshSnapshot(loadCtx); err != nil {
		loadCancel()
		logger.Error("Failed to load dataset snapshot", log.FieldError, err, log.FieldBackend, cfg.DataBackend)
		os.Exit(1)
	}
	loadCancel()
	logger.Info("Dataset snapshot loaded", log.FieldBackend, cfg.DataBackend)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Periodic snapshot refresh keeps long-running instances current
	// without restarts.
	if cfg.RefreshInterval > 0 {
		go func() {
			ticker := time.NewTicker(cfg.RefreshInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					if err := srv.RefreshSnapshot(ctx); err != nil {
						logger.Error("Periodic snapshot refresh failed", log.FieldError, err)
					}
				}
			}
		}()
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		cancel()
	}()

	logger.Info("Starting grovq server", "port", cfg.Port, log.FieldBackend, cfg.DataBackend)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}
