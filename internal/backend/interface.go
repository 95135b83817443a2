// Package backend selects and constructs the configured dataset
// source.
package backend

import (
	"context"

	"grovq/internal/dataset"
)

// CleanupFunc releases resources held by a source.
type CleanupFunc func() error

// SourceResult bundles a constructed source with its optional cleanup.
type SourceResult struct {
	Source  dataset.Source
	Cleanup CleanupFunc
}

// Factory creates dataset sources from configuration.
type Factory interface {
	CreateSource(ctx context.Context, config Config) (*SourceResult, error)
}

// BackendType names one of the supported dataset sources.
type BackendType string

const (
	CSVBackend    BackendType = "csv"
	SQLiteBackend BackendType = "sqlite"
	SheetsBackend BackendType = "sheets"
	MemoryBackend BackendType = "memory"
)

func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true for a supported backend type.
func (bt BackendType) IsValid() bool {
	switch bt {
	case CSVBackend, SQLiteBackend, SheetsBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
