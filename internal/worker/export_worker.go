// Package worker turns queued export requests into CSV files on disk.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"grovq/internal/amqp"
	"grovq/internal/dataset"
	"grovq/internal/export"
	"grovq/internal/metrics"
)

// ExportWorker loads the dataset, derives the metric table, applies the
// requested filter and writes the export file.
type ExportWorker struct {
	source    dataset.Source
	cacMap    metrics.CACMap
	exportDir string
}

func NewExportWorker(source dataset.Source, cacMap metrics.CACMap, exportDir string) *ExportWorker {
	return &ExportWorker{
		source:    source,
		cacMap:    cacMap,
		exportDir: exportDir,
	}
}

// HandleExportRequest processes one queued request. Errors propagate so
// the consumer can nack and requeue.
func (w *ExportWorker) HandleExportRequest(ctx context.Context, msg *amqp.ExportRequestMessage) error {
	if msg.RequestID == "" {
		return fmt.Errorf("export request without request ID")
	}

	slog.InfoContext(ctx, "Processing export request",
		"request_id", msg.RequestID,
		"city", msg.City,
		"segment", msg.Segment,
		"zone", msg.Zone)

	records, err := w.source.Load(ctx)
	if err != nil {
		return fmt.Errorf("load dataset: %w", err)
	}

	rows, err := metrics.Derive(records, w.cacMap)
	if err != nil {
		return fmt.Errorf("derive metrics: %w", err)
	}

	filter := metrics.Filter{City: msg.City, Segment: msg.Segment, Zone: msg.Zone}
	rows = filter.Apply(rows)

	path, err := export.WriteFile(w.exportDir, msg.RequestID, rows)
	if err != nil {
		return fmt.Errorf("write export: %w", err)
	}

	slog.InfoContext(ctx, "Export written",
		"request_id", msg.RequestID,
		"path", path,
		"rows", len(rows))

	return nil
}

// SweepOldExports deletes export files older than maxAge and returns
// how many were removed. A missing export directory is not an error;
// nothing has been exported yet.
func (w *ExportWorker) SweepOldExports(ctx context.Context, maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(w.exportDir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("read export directory: %w", err)
	}

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".csv") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		path := filepath.Join(w.exportDir, entry.Name())
		if err := os.Remove(path); err != nil {
			slog.WarnContext(ctx, "Failed to remove stale export", "path", path, "error", err)
			continue
		}
		removed++
	}

	if removed > 0 {
		slog.InfoContext(ctx, "Removed stale exports", "count", removed)
	}
	return removed, nil
}
