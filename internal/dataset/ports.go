// Package dataset defines the inbound data port and the snapshot the
// dashboard serves from. Concrete sources live in the subpackages
// csvfile, memory and google, plus the SQLite repository in
// internal/storage.
package dataset

import (
	"context"
	"errors"

	"grovq/internal/core"
)

// ErrDataUnavailable reports that a source cannot be found, opened or
// parsed. Consumers halt instead of serving from an empty table.
var ErrDataUnavailable = errors.New("dataset unavailable")

// Source loads the full customer table. Implementations return
// ErrDataUnavailable (wrapped) when the underlying data cannot be read.
type Source interface {
	Load(ctx context.Context) ([]core.CustomerRecord, error)
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc func(ctx context.Context) ([]core.CustomerRecord, error)

func (f SourceFunc) Load(ctx context.Context) ([]core.CustomerRecord, error) {
	return f(ctx)
}
