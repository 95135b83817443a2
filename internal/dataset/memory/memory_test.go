package memory

import (
	"context"
	"testing"

	"grovq/internal/core"
)

func TestNewRejectsInvalidRecords(t *testing.T) {
	_, err := New([]core.CustomerRecord{{ID: "C1"}})
	if err == nil {
		t.Fatal("expected validation error")
	}
}

func TestLoadReturnsCopy(t *testing.T) {
	store := NewSeeded()

	first, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(first) == 0 {
		t.Fatal("seed dataset is empty")
	}

	first[0].City = "Mutated"

	again, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if again[0].City == "Mutated" {
		t.Fatal("mutation of returned slice leaked into the store")
	}
}

func TestAppend(t *testing.T) {
	store := NewSeeded()
	before, _ := store.Load(context.Background())

	rec := core.CustomerRecord{
		ID:                "CUST9999",
		City:              "Indore",
		Zone:              "North",
		Segment:           core.SegmentRegular,
		AvgOrderValue:     core.Money{Cents: 30000},
		OrderFrequency:    2,
		SatisfactionScore: 4.0,
	}
	if err := store.Append(context.Background(), rec); err != nil {
		t.Fatalf("append: %v", err)
	}

	after, _ := store.Load(context.Background())
	if len(after) != len(before)+1 {
		t.Fatalf("count = %d, want %d", len(after), len(before)+1)
	}

	rec.OrderFrequency = -1
	if err := store.Append(context.Background(), rec); err == nil {
		t.Fatal("expected validation error")
	}
}
