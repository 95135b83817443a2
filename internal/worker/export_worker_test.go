package worker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"grovq/internal/amqp"
	"grovq/internal/core"
	"grovq/internal/dataset"
	"grovq/internal/dataset/memory"
	"grovq/internal/metrics"
)

func TestHandleExportRequestWritesFile(t *testing.T) {
	dir := t.TempDir()
	w := NewExportWorker(memory.NewSeeded(), metrics.DefaultCACMap(), dir)

	msg := amqp.NewExportRequestMessage("req-42", "", "", "")
	if err := w.HandleExportRequest(context.Background(), msg); err != nil {
		t.Fatalf("handle: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "req-42.csv"))
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	if !strings.HasPrefix(string(data), "CustomerID,") {
		t.Fatalf("unexpected export content: %q", string(data[:40]))
	}
}

func TestHandleExportRequestAppliesFilter(t *testing.T) {
	dir := t.TempDir()
	w := NewExportWorker(memory.NewSeeded(), metrics.DefaultCACMap(), dir)

	msg := amqp.NewExportRequestMessage("req-indore", "Indore", "", "")
	if err := w.HandleExportRequest(context.Background(), msg); err != nil {
		t.Fatalf("handle: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "req-indore.csv"))
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	for _, line := range lines[1:] {
		if !strings.Contains(line, "Indore") {
			t.Fatalf("unfiltered row in export: %q", line)
		}
	}
}

func TestHandleExportRequestMissingID(t *testing.T) {
	w := NewExportWorker(memory.NewSeeded(), metrics.DefaultCACMap(), t.TempDir())
	if err := w.HandleExportRequest(context.Background(), &amqp.ExportRequestMessage{}); err == nil {
		t.Fatal("expected error for missing request ID")
	}
}

func TestHandleExportRequestSourceFailure(t *testing.T) {
	failing := dataset.SourceFunc(func(context.Context) ([]core.CustomerRecord, error) {
		return nil, dataset.ErrDataUnavailable
	})
	w := NewExportWorker(failing, metrics.DefaultCACMap(), t.TempDir())

	err := w.HandleExportRequest(context.Background(), amqp.NewExportRequestMessage("req-1", "", "", ""))
	if !errors.Is(err, dataset.ErrDataUnavailable) {
		t.Fatalf("err = %v, want ErrDataUnavailable", err)
	}
}

func TestSweepOldExports(t *testing.T) {
	dir := t.TempDir()
	w := NewExportWorker(memory.NewSeeded(), metrics.DefaultCACMap(), dir)

	stale := filepath.Join(dir, "req-old.csv")
	fresh := filepath.Join(dir, "req-new.csv")
	other := filepath.Join(dir, "notes.txt")
	for _, path := range []string{stale, fresh, other} {
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
	}
	old := time.Now().Add(-48 * time.Hour)
	if err := os.Chtimes(stale, old, old); err != nil {
		t.Fatalf("age stale file: %v", err)
	}
	if err := os.Chtimes(other, old, old); err != nil {
		t.Fatalf("age txt file: %v", err)
	}

	removed, err := w.SweepOldExports(context.Background(), 24*time.Hour)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Error("stale export still present")
	}
	if _, err := os.Stat(fresh); err != nil {
		t.Error("fresh export removed")
	}
	// Only .csv files are swept.
	if _, err := os.Stat(other); err != nil {
		t.Error("non-export file removed")
	}
}

func TestSweepMissingDirectory(t *testing.T) {
	w := NewExportWorker(memory.NewSeeded(), metrics.DefaultCACMap(), filepath.Join(t.TempDir(), "nope"))

	removed, err := w.SweepOldExports(context.Background(), time.Hour)
	if err != nil || removed != 0 {
		t.Fatalf("got (%d, %v), want (0, nil)", removed, err)
	}
}
