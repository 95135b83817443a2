package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"grovq/assets"
	"grovq/internal/backend"
	"grovq/internal/cli"
	"grovq/internal/config"
	"grovq/internal/dataset/csvfile"
	"grovq/internal/export"
	"grovq/internal/log"
	"grovq/internal/metrics"
)

// grovq-export is a one-shot companion to the dashboard. It seeds a
// fresh installation with the bundled sample dataset, imports a CSV
// file into SQLite, or writes a filtered CSV export without going
// through the HTTP server.
func main() {
	seed := flag.Bool("seed", false, "write the bundled sample dataset to CSV_PATH and exit")
	doImport := flag.Bool("import", false, "import CSV_PATH into the SQLite database and exit")
	name := flag.String("name", "", "export file name without extension (default: timestamped)")
	city := flag.String("city", "", "restrict the export to one city")
	segment := flag.String("segment", "", "restrict the export to one segment")
	zone := flag.String("zone", "", "restrict the export to one zone")
	flag.Parse()

	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentExport)
	cfg := cli.LoadAndValidateConfig(logger)

	ctx := context.Background()

	switch {
	case *seed:
		if err := writeSampleDataset(cfg.CSVPath); err != nil {
			logger.Error("Failed to seed sample dataset", log.FieldError, err, log.FieldPath, cfg.CSVPath)
			os.Exit(1)
		}
		logger.Info("Sample dataset written", log.FieldPath, cfg.CSVPath)

	case *doImport:
		if err := importCSV(ctx, logger, cfg.CSVPath, cfg.SQLiteDBPath); err != nil {
			logger.Error("Import failed", log.FieldError, err)
			os.Exit(1)
		}

	default:
		if err := writeExport(ctx, logger, cfg, *name, metrics.Filter{
			City:    *city,
			Segment: *segment,
			Zone:    *zone,
		}); err != nil {
			logger.Error("Export failed", log.FieldError, err)
			os.Exit(1)
		}
	}
}

func writeSampleDataset(path string) error {
	data, err := assets.SampleDataFS.ReadFile(assets.SampleDataPath)
	if err != nil {
		return fmt.Errorf("read embedded sample: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create data directory: %w", err)
		}
	}
	return os.WriteFile(path, data, 0o644)
}

func importCSV(ctx context.Context, logger *log.Logger, csvPath, dbPath string) error {
	records, err := csvfile.New(csvPath).Load(ctx)
	if err != nil {
		return fmt.Errorf("load %s: %w", csvPath, err)
	}

	repo := cli.InitSQLite(logger, dbPath)
	defer repo.Close()

	if err := repo.ImportRecords(ctx, records); err != nil {
		return fmt.Errorf("import into %s: %w", dbPath, err)
	}
	logger.Info("Imported customer records",
		log.FieldRecords, len(records),
		log.FieldPath, dbPath)
	return nil
}

func writeExport(ctx context.Context, logger *log.Logger, cfg *config.Config, name string, filter metrics.Filter) error {
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}

	factory := backend.NewFactory(logger.Logger)
	source, err := factory.CreateSource(ctx, backendCfg)
	if err != nil {
		return err
	}
	if source.Cleanup != nil {
		defer source.Cleanup()
	}

	records, err := source.Source.Load(ctx)
	if err != nil {
		return fmt.Errorf("load dataset: %w", err)
	}
	rows, err := metrics.Derive(records, metrics.DefaultCACMap())
	if err != nil {
		return fmt.Errorf("derive metrics: %w", err)
	}
	rows = filter.Apply(rows)

	if name == "" {
		name = "customers-" + time.Now().Format("20060102-150405")
	}
	path, err := export.WriteFile(cfg.ExportDir, name, rows)
	if err != nil {
		return err
	}
	logger.Info("Export written",
		log.FieldExportFile, path,
		log.FieldRecords, len(rows))
	return nil
}
