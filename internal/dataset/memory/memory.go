// Package memory holds the customer table in process memory, for tests
// and for running the dashboard without external data.
package memory

import (
	"context"
	"fmt"
	"sync"

	"grovq/internal/core"
	"grovq/internal/dataset"
)

// Store is a thread-safe in-memory dataset source.
type Store struct {
	mu      sync.Mutex
	records []core.CustomerRecord
}

var _ dataset.Source = (*Store)(nil)

// New builds a store over a copy of the given records. Invalid records
// are rejected up front so Load never fails afterwards.
func New(records []core.CustomerRecord) (*Store, error) {
	cp := make([]core.CustomerRecord, len(records))
	for i, r := range records {
		if err := r.Validate(); err != nil {
			return nil, fmt.Errorf("record %q: %w", r.ID, err)
		}
		cp[i] = r
	}
	return &Store{records: cp}, nil
}

// NewSeeded builds a store with a small fixed demo dataset.
func NewSeeded() *Store {
	s, err := New(seedRecords())
	if err != nil {
		// The seed is a package constant; a validation failure is a bug.
		panic(err)
	}
	return s
}

// Load returns a copy of the stored records.
func (s *Store) Load(_ context.Context) ([]core.CustomerRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.CustomerRecord, len(s.records))
	copy(out, s.records)
	return out, nil
}

// Append adds one record, validating it first.
func (s *Store) Append(_ context.Context, r core.CustomerRecord) error {
	if err := r.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, r)
	return nil
}

func seedRecords() []core.CustomerRecord {
	mk := func(id, city, zone, segment string, aovCents int64, freq, returned int, sat float64) core.CustomerRecord {
		return core.CustomerRecord{
			ID:                id,
			City:              city,
			Zone:              zone,
			Segment:           segment,
			AvgOrderValue:     core.Money{Cents: aovCents},
			OrderFrequency:    freq,
			ReturnedOrders:    returned,
			SatisfactionScore: sat,
		}
	}
	return []core.CustomerRecord{
		mk("CUST0001", "Indore", "North", core.SegmentPremium, 62000, 5, 1, 4.6),
		mk("CUST0002", "Indore", "South", core.SegmentPremium, 58000, 4, 0, 4.4),
		mk("CUST0003", "Indore", "East", core.SegmentRegular, 41000, 3, 1, 4.1),
		mk("CUST0004", "Indore", "West", core.SegmentRegular, 38500, 2, 0, 3.9),
		mk("CUST0005", "Bhopal", "North", core.SegmentRegular, 36000, 3, 0, 4.0),
		mk("CUST0006", "Bhopal", "South", core.SegmentBudget, 24000, 2, 1, 3.6),
		mk("CUST0007", "Bhopal", "East", core.SegmentBudget, 21500, 1, 0, 3.4),
		mk("CUST0008", "Jaipur", "North", core.SegmentBudget, 22500, 1, 0, 3.5),
		mk("CUST0009", "Jaipur", "West", core.SegmentOccasional, 18000, 1, 0, 3.2),
		mk("CUST0010", "Jaipur", "South", core.SegmentOccasional, 16500, 0, 0, 3.0),
		mk("CUST0011", "Indore", "North", core.SegmentRegular, 44000, 4, 2, 4.2),
		mk("CUST0012", "Bhopal", "West", core.SegmentPremium, 67000, 6, 1, 4.8),
	}
}
