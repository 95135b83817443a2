package dataset

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"grovq/internal/core"
)

// Snapshot is one immutable load of the customer table. Handlers read
// whole snapshots and never mutate them, so a snapshot can be shared
// across requests without locking.
type Snapshot struct {
	records  []core.CustomerRecord
	origin   string
	loadedAt time.Time
}

// NewSnapshot copies records so later mutation of the caller's slice
// cannot leak into the snapshot.
func NewSnapshot(records []core.CustomerRecord, origin string, loadedAt time.Time) *Snapshot {
	cp := make([]core.CustomerRecord, len(records))
	copy(cp, records)
	return &Snapshot{records: cp, origin: origin, loadedAt: loadedAt}
}

// Records returns the snapshot rows. Callers must treat the slice as
// read-only.
func (s *Snapshot) Records() []core.CustomerRecord { return s.records }

// Len returns the number of customer rows.
func (s *Snapshot) Len() int { return len(s.records) }

// Origin names the source the snapshot was loaded from.
func (s *Snapshot) Origin() string { return s.origin }

// LoadedAt reports when the snapshot was taken.
func (s *Snapshot) LoadedAt() time.Time { return s.loadedAt }

// Holder publishes the current snapshot to concurrent readers. Swaps
// are atomic; a reader always sees either the old or the new snapshot,
// never a partial one.
type Holder struct {
	current atomic.Pointer[Snapshot]
}

// Current returns the published snapshot, or nil before the first
// successful Refresh.
func (h *Holder) Current() *Snapshot {
	return h.current.Load()
}

// Refresh loads from the source and publishes a new snapshot. On error
// the previously published snapshot stays in place.
func (h *Holder) Refresh(ctx context.Context, src Source, origin string) (*Snapshot, error) {
	records, err := src.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("refresh from %s: %w", origin, err)
	}
	snap := NewSnapshot(records, origin, time.Now())
	h.current.Store(snap)
	return snap, nil
}
