// Package metrics derives per-customer financial metrics from the loaded
// dataset and produces the grouped summaries, funnel stages and scenario
// projections the dashboard sections render.
//
// Every function here is a pure transformation over an immutable slice of
// records: recomputing with the same inputs always yields identical output.
package metrics

import (
	"errors"
	"fmt"
	"math"

	"grovq/internal/core"
)

var (
	// ErrUnmappedSegment is returned when a record's segment has no CAC
	// entry. Silently defaulting would corrupt every downstream mean, so
	// derivation rejects the whole input instead.
	ErrUnmappedSegment = errors.New("customer segment has no CAC entry")

	// ErrNonPositiveCAC rejects CAC mappings with zero or negative
	// amounts, which would make the ROI ratio undefined.
	ErrNonPositiveCAC = errors.New("CAC must be positive")
)

// CACMap maps a customer segment to its acquisition cost.
type CACMap map[string]core.Money

// DefaultCACMap returns the assumed acquisition cost per segment.
// The values are estimates, not tracked spend.
func DefaultCACMap() CACMap {
	return CACMap{
		core.SegmentPremium:    {Cents: 50000},
		core.SegmentRegular:    {Cents: 30000},
		core.SegmentBudget:     {Cents: 20000},
		core.SegmentOccasional: {Cents: 15000},
	}
}

// Validate checks that every mapped amount is positive.
func (m CACMap) Validate() error {
	for segment, amount := range m {
		if amount.Cents <= 0 {
			return fmt.Errorf("segment %q: %w", segment, ErrNonPositiveCAC)
		}
	}
	return nil
}

// Derived holds the computed financial metrics for one customer.
type Derived struct {
	// CLV is AvgOrderValue × OrderFrequency, exact in cents; rounding
	// happens only at display time.
	CLV core.Money

	// ReturnRate is ReturnedOrders / OrderFrequency. It is NaN when the
	// customer never ordered; aggregation excludes such rows from means.
	ReturnRate float64

	CAC      core.Money
	ROI      core.Money
	ROIRatio float64
}

// Row pairs an input record with its derived metrics.
type Row struct {
	core.CustomerRecord
	Derived
}

// Derive computes per-customer metrics for every record. A record whose
// segment is missing from cacMap fails the whole derivation with
// ErrUnmappedSegment; the caller decides whether that is fatal (startup
// with the default mapping) or a rejected request (custom overrides).
func Derive(records []core.CustomerRecord, cacMap CACMap) ([]Row, error) {
	if err := cacMap.Validate(); err != nil {
		return nil, err
	}

	rows := make([]Row, 0, len(records))
	for _, rec := range records {
		cac, ok := cacMap[rec.Segment]
		if !ok {
			return nil, fmt.Errorf("customer %s segment %q: %w", rec.ID, rec.Segment, ErrUnmappedSegment)
		}

		clv := core.Money{Cents: rec.AvgOrderValue.Cents * int64(rec.OrderFrequency)}

		returnRate := math.NaN()
		if rec.OrderFrequency > 0 {
			returnRate = float64(rec.ReturnedOrders) / float64(rec.OrderFrequency)
		}

		rows = append(rows, Row{
			CustomerRecord: rec,
			Derived: Derived{
				CLV:        clv,
				ReturnRate: returnRate,
				CAC:        cac,
				ROI:        core.Money{Cents: clv.Cents - cac.Cents},
				ROIRatio:   float64(clv.Cents) / float64(cac.Cents),
			},
		})
	}
	return rows, nil
}
