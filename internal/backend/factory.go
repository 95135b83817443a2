package backend

import (
	"context"
	"fmt"
	"log/slog"

	"grovq/internal/dataset/csvfile"
	gsheet "grovq/internal/dataset/google"
	"grovq/internal/dataset/memory"
	"grovq/internal/storage"
)

// DefaultFactory implements the Factory interface.
type DefaultFactory struct {
	logger *slog.Logger
}

func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{logger: logger}
}

// CreateSource implements Factory.CreateSource.
func (f *DefaultFactory) CreateSource(ctx context.Context, config Config) (*SourceResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case CSVBackend:
		return f.createCSVSource(config)
	case SQLiteBackend:
		return f.createSQLiteSource(config)
	case SheetsBackend:
		return f.createSheetsSource(ctx, config)
	case MemoryBackend:
		return f.createMemorySource()
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createCSVSource(config Config) (*SourceResult, error) {
	f.logger.Info("Initialized CSV source", "path", config.CSVPath)
	return &SourceResult{Source: csvfile.New(config.CSVPath)}, nil
}

func (f *DefaultFactory) createSQLiteSource(config Config) (*SourceResult, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	f.logger.Info("Initialized SQLite source", "db_path", config.SQLiteDBPath)

	return &SourceResult{Source: repo, Cleanup: repo.Close}, nil
}

func (f *DefaultFactory) createSheetsSource(ctx context.Context, config Config) (*SourceResult, error) {
	cli, err := gsheet.New(ctx, config.GoogleSpreadsheetID, config.GoogleSheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}

	f.logger.Info("Initialized Google Sheets source", "sheet", config.GoogleSheetName)

	return &SourceResult{Source: cli}, nil
}

func (f *DefaultFactory) createMemorySource() (*SourceResult, error) {
	store := memory.NewSeeded()
	f.logger.Info("Initialized in-memory source")
	return &SourceResult{Source: store}, nil
}
