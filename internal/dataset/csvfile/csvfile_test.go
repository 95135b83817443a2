package csvfile

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"grovq/internal/dataset"
)

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "customers.csv")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

const validCSV = `CustomerID,City,Zone,CustomerSegment,AvgOrderValue,OrderFrequency,ReturnedOrders,SatisfactionScore,SignupChannel
CUST001,Indore,North,Premium,620.00,5,1,4.6,App
CUST002,Bhopal,South,Budget,215.50,1,0,3.4,Web
CUST003,Jaipur,West,Occasional,180,0,0,3.2,
`

func TestLoadParsesRecords(t *testing.T) {
	src := New(writeCSV(t, validCSV))

	records, err := src.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("record count = %d, want 3", len(records))
	}

	first := records[0]
	if first.ID != "CUST001" || first.City != "Indore" || first.Zone != "North" || first.Segment != "Premium" {
		t.Fatalf("first record = %+v", first)
	}
	if first.AvgOrderValue.Cents != 62000 {
		t.Fatalf("AOV cents = %d, want 62000", first.AvgOrderValue.Cents)
	}
	if first.OrderFrequency != 5 || first.ReturnedOrders != 1 {
		t.Fatalf("orders = %d/%d", first.OrderFrequency, first.ReturnedOrders)
	}
	if first.SatisfactionScore != 4.6 {
		t.Fatalf("satisfaction = %v", first.SatisfactionScore)
	}

	// Columns outside the required set survive untouched.
	if first.Extra["SignupChannel"] != "App" {
		t.Fatalf("extra = %v", first.Extra)
	}
	if records[2].Extra["SignupChannel"] != "" {
		t.Fatalf("blank extra = %v", records[2].Extra)
	}

	// An integer AvgOrderValue parses as whole rupees.
	if records[2].AvgOrderValue.Cents != 18000 {
		t.Fatalf("integer AOV cents = %d, want 18000", records[2].AvgOrderValue.Cents)
	}
}

func TestLoadMissingFile(t *testing.T) {
	src := New(filepath.Join(t.TempDir(), "nope.csv"))
	_, err := src.Load(context.Background())
	if !errors.Is(err, dataset.ErrDataUnavailable) {
		t.Fatalf("err = %v, want ErrDataUnavailable", err)
	}
}

func TestLoadMissingColumn(t *testing.T) {
	src := New(writeCSV(t, "CustomerID,City\nC1,Indore\n"))
	_, err := src.Load(context.Background())
	if !errors.Is(err, dataset.ErrDataUnavailable) {
		t.Fatalf("err = %v, want ErrDataUnavailable", err)
	}
}

func TestLoadMalformedRow(t *testing.T) {
	bad := `CustomerID,City,Zone,CustomerSegment,AvgOrderValue,OrderFrequency,ReturnedOrders,SatisfactionScore
CUST001,Indore,North,Premium,not-a-number,5,1,4.6
`
	src := New(writeCSV(t, bad))
	_, err := src.Load(context.Background())
	if !errors.Is(err, dataset.ErrDataUnavailable) {
		t.Fatalf("err = %v, want ErrDataUnavailable", err)
	}
}

func TestLoadInvalidRecord(t *testing.T) {
	bad := `CustomerID,City,Zone,CustomerSegment,AvgOrderValue,OrderFrequency,ReturnedOrders,SatisfactionScore
CUST001,Indore,North,Premium,620.00,-2,0,4.6
`
	src := New(writeCSV(t, bad))
	_, err := src.Load(context.Background())
	if !errors.Is(err, dataset.ErrDataUnavailable) {
		t.Fatalf("err = %v, want ErrDataUnavailable", err)
	}
}

func TestLoadCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	src := New(writeCSV(t, validCSV))
	if _, err := src.Load(ctx); err == nil {
		t.Fatal("expected context error")
	}
}
