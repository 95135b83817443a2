package backend

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"grovq/internal/config"
)

func TestFromAppConfig(t *testing.T) {
	cfg := &config.Config{
		DataBackend:  "sqlite",
		CSVPath:      "./data/customers.csv",
		SQLiteDBPath: "./data/grovq.db",
	}

	got, err := FromAppConfig(cfg)
	if err != nil {
		t.Fatalf("FromAppConfig: %v", err)
	}
	if got.Type != SQLiteBackend {
		t.Errorf("type = %s, want sqlite", got.Type)
	}

	cfg.DataBackend = "oracle"
	if _, err := FromAppConfig(cfg); err == nil {
		t.Error("expected error for unsupported backend")
	}

	if _, err := FromAppConfig(nil); err == nil {
		t.Error("expected error for nil config")
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{"csv with path", Config{Type: CSVBackend, CSVPath: "x.csv"}, false},
		{"csv without path", Config{Type: CSVBackend}, true},
		{"sqlite without path", Config{Type: SQLiteBackend}, true},
		{"sheets without spreadsheet", Config{Type: SheetsBackend}, true},
		{"memory", Config{Type: MemoryBackend}, false},
		{"unknown", Config{Type: "oracle"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCreateMemorySource(t *testing.T) {
	factory := NewFactory(nil)

	result, err := factory.CreateSource(context.Background(), Config{Type: MemoryBackend})
	if err != nil {
		t.Fatalf("CreateSource: %v", err)
	}

	records, err := result.Source.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(records) == 0 {
		t.Fatal("seeded memory source returned no records")
	}
}

func TestCreateCSVSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "customers.csv")
	csv := "CustomerID,City,Zone,CustomerSegment,AvgOrderValue,OrderFrequency,ReturnedOrders,SatisfactionScore\n" +
		"CUST0001,Indore,North,Premium,620.00,5,1,4.6\n"
	if err := os.WriteFile(path, []byte(csv), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	factory := NewFactory(nil)
	result, err := factory.CreateSource(context.Background(), Config{Type: CSVBackend, CSVPath: path})
	if err != nil {
		t.Fatalf("CreateSource: %v", err)
	}

	records, err := result.Source.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(records) != 1 || records[0].AvgOrderValue.Cents != 62000 {
		t.Fatalf("records = %+v", records)
	}
}
