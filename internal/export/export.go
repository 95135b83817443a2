// Package export writes the derived customer table as CSV.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"grovq/internal/metrics"
)

var baseColumns = []string{
	"CustomerID", "City", "Zone", "CustomerSegment",
	"AvgOrderValue", "OrderFrequency", "ReturnedOrders", "SatisfactionScore",
}

var derivedColumns = []string{"CLV", "ReturnRate", "CAC", "ROI"}

// WriteCSV writes the full derived table. Input columns round-trip
// losslessly through the CSV loader; the four derived columns follow
// them. Extra columns appear between the two groups in sorted order so
// repeated exports of the same rows are byte-identical.
func WriteCSV(w io.Writer, rows []metrics.Row) error {
	extras := extraColumns(rows)

	cw := csv.NewWriter(w)

	header := make([]string, 0, len(baseColumns)+len(extras)+len(derivedColumns))
	header = append(header, baseColumns...)
	header = append(header, extras...)
	header = append(header, derivedColumns...)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	record := make([]string, 0, len(header))
	for _, row := range rows {
		record = record[:0]
		record = append(record,
			row.ID,
			row.City,
			row.Zone,
			row.Segment,
			formatCents(row.AvgOrderValue.Cents),
			strconv.Itoa(row.OrderFrequency),
			strconv.Itoa(row.ReturnedOrders),
			strconv.FormatFloat(row.SatisfactionScore, 'g', -1, 64),
		)
		for _, name := range extras {
			record = append(record, row.Extra[name])
		}
		record = append(record,
			formatCents(row.CLV.Cents),
			formatRate(row.ReturnRate),
			formatCents(row.CAC.Cents),
			formatCents(row.ROI.Cents),
		)
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write row %s: %w", row.ID, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteFile writes the table to dir/name.csv, creating dir if needed.
// It returns the full path of the written file.
func WriteFile(dir, name string, rows []metrics.Row) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create export directory: %w", err)
	}

	path := filepath.Join(dir, name+".csv")
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create export file: %w", err)
	}

	if err := WriteCSV(f, rows); err != nil {
		f.Close()
		os.Remove(path)
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close export file: %w", err)
	}
	return path, nil
}

func extraColumns(rows []metrics.Row) []string {
	seen := map[string]bool{}
	var names []string
	for _, row := range rows {
		for name := range row.Extra {
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}
	sort.Strings(names)
	return names
}

// formatCents renders cents as decimal rupees with exactly two
// decimals, e.g. 62000 -> "620.00".
func formatCents(cents int64) string {
	neg := cents < 0
	if neg {
		cents = -cents
	}
	s := fmt.Sprintf("%d.%02d", cents/100, cents%100)
	if neg {
		return "-" + s
	}
	return s
}

// formatRate renders a return rate; the undefined rate of a
// zero-frequency customer exports as an empty cell.
func formatRate(rate float64) string {
	if math.IsNaN(rate) {
		return ""
	}
	return strconv.FormatFloat(rate, 'g', -1, 64)
}
