package metrics

import (
	"errors"
	"math"
	"testing"

	"grovq/internal/core"
)

func record(id, city, zone, segment string, aovCents int64, freq, returned int, satisfaction float64) core.CustomerRecord {
	return core.CustomerRecord{
		ID:                id,
		City:              city,
		Zone:              zone,
		Segment:           segment,
		AvgOrderValue:     core.Money{Cents: aovCents},
		OrderFrequency:    freq,
		ReturnedOrders:    returned,
		SatisfactionScore: satisfaction,
	}
}

func TestDeriveCLVExact(t *testing.T) {
	rows, err := Derive([]core.CustomerRecord{
		record("C1", "Indore", "North", core.SegmentPremium, 45000, 3, 1, 4.2),
	}, DefaultCACMap())
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	// CLV = AOV × frequency, exact integer cents, no rounding.
	if got := rows[0].CLV.Cents; got != 135000 {
		t.Fatalf("CLV = %d, want 135000", got)
	}
	if got := rows[0].CAC.Cents; got != 50000 {
		t.Fatalf("CAC = %d, want 50000", got)
	}
	if got := rows[0].ROI.Cents; got != 85000 {
		t.Fatalf("ROI = %d, want 85000", got)
	}
	if got := rows[0].ROIRatio; got != 2.7 {
		t.Fatalf("ROIRatio = %v, want 2.7", got)
	}
}

func TestDeriveReturnRateUndefinedOnZeroFrequency(t *testing.T) {
	rows, err := Derive([]core.CustomerRecord{
		record("C1", "Indore", "North", core.SegmentRegular, 30000, 0, 0, 3.5),
		record("C2", "Indore", "North", core.SegmentRegular, 30000, 4, 1, 3.5),
	}, DefaultCACMap())
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	if !math.IsNaN(rows[0].ReturnRate) {
		t.Fatalf("expected NaN return rate for zero frequency, got %v", rows[0].ReturnRate)
	}
	if rows[1].ReturnRate != 0.25 {
		t.Fatalf("return rate = %v, want 0.25", rows[1].ReturnRate)
	}
}

func TestDeriveUnmappedSegment(t *testing.T) {
	_, err := Derive([]core.CustomerRecord{
		record("C1", "Indore", "North", "Enterprise", 30000, 2, 0, 4.0),
	}, DefaultCACMap())
	if !errors.Is(err, ErrUnmappedSegment) {
		t.Fatalf("expected ErrUnmappedSegment, got %v", err)
	}
}

func TestDeriveRejectsNonPositiveCAC(t *testing.T) {
	cacMap := CACMap{core.SegmentPremium: {Cents: 0}}
	_, err := Derive([]core.CustomerRecord{
		record("C1", "Indore", "North", core.SegmentPremium, 30000, 2, 0, 4.0),
	}, cacMap)
	if !errors.Is(err, ErrNonPositiveCAC) {
		t.Fatalf("expected ErrNonPositiveCAC, got %v", err)
	}
}

func TestDeriveIsPure(t *testing.T) {
	records := []core.CustomerRecord{
		record("C1", "Indore", "North", core.SegmentBudget, 20000, 5, 2, 3.9),
	}
	a, err := Derive(records, DefaultCACMap())
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	b, err := Derive(records, DefaultCACMap())
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	if a[0].Derived != b[0].Derived {
		t.Fatalf("derive not deterministic: %+v vs %+v", a[0].Derived, b[0].Derived)
	}
	// The input records are untouched.
	if records[0].AvgOrderValue.Cents != 20000 {
		t.Fatalf("input mutated: %+v", records[0])
	}
}
