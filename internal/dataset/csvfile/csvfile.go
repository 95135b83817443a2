// Package csvfile loads the customer table from a delimited text file.
package csvfile

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"grovq/internal/core"
	"grovq/internal/dataset"
)

// Required header names, matching the published dataset.
const (
	colCustomerID        = "CustomerID"
	colCity              = "City"
	colZone              = "Zone"
	colCustomerSegment   = "CustomerSegment"
	colAvgOrderValue     = "AvgOrderValue"
	colOrderFrequency    = "OrderFrequency"
	colReturnedOrders    = "ReturnedOrders"
	colSatisfactionScore = "SatisfactionScore"
)

var requiredColumns = []string{
	colCustomerID, colCity, colZone, colCustomerSegment,
	colAvgOrderValue, colOrderFrequency, colReturnedOrders, colSatisfactionScore,
}

// Source reads customer records from a CSV file on each Load.
type Source struct {
	path string
}

var _ dataset.Source = (*Source)(nil)

func New(path string) *Source {
	return &Source{path: path}
}

// Load reads and parses the whole file. A missing or malformed file
// maps to dataset.ErrDataUnavailable so callers can halt uniformly.
func (s *Source) Load(ctx context.Context) ([]core.CustomerRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w: %v", s.path, dataset.ErrDataUnavailable, err)
	}
	defer f.Close()

	return parse(f, s.path)
}

func parse(r io.Reader, name string) ([]core.CustomerRecord, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header of %s: %w: %v", name, dataset.ErrDataUnavailable, err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	cols := map[string]int{}
	for i, h := range header {
		cols[h] = i
	}
	for _, want := range requiredColumns {
		if _, ok := cols[want]; !ok {
			return nil, fmt.Errorf("%s: missing column %q: %w", name, want, dataset.ErrDataUnavailable)
		}
	}
	required := map[string]bool{}
	for _, c := range requiredColumns {
		required[c] = true
	}

	var records []core.CustomerRecord
	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w: %v", name, line, dataset.ErrDataUnavailable, err)
		}

		rec, err := parseRow(header, cols, required, row)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w: %v", name, line, dataset.ErrDataUnavailable, err)
		}
		if err := rec.Validate(); err != nil {
			return nil, fmt.Errorf("%s line %d: %w: %v", name, line, dataset.ErrDataUnavailable, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func parseRow(header []string, cols map[string]int, required map[string]bool, row []string) (core.CustomerRecord, error) {
	get := func(col string) string {
		i := cols[col]
		if i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	aov, err := core.ParseDecimalToCents(get(colAvgOrderValue))
	if err != nil {
		return core.CustomerRecord{}, fmt.Errorf("column %s: %w", colAvgOrderValue, err)
	}
	freq, err := strconv.Atoi(get(colOrderFrequency))
	if err != nil {
		return core.CustomerRecord{}, fmt.Errorf("column %s: %w", colOrderFrequency, err)
	}
	returned, err := strconv.Atoi(get(colReturnedOrders))
	if err != nil {
		return core.CustomerRecord{}, fmt.Errorf("column %s: %w", colReturnedOrders, err)
	}
	satisfaction, err := strconv.ParseFloat(get(colSatisfactionScore), 64)
	if err != nil {
		return core.CustomerRecord{}, fmt.Errorf("column %s: %w", colSatisfactionScore, err)
	}

	rec := core.CustomerRecord{
		ID:                get(colCustomerID),
		City:              get(colCity),
		Zone:              get(colZone),
		Segment:           get(colCustomerSegment),
		AvgOrderValue:     core.Money{Cents: aov},
		OrderFrequency:    freq,
		ReturnedOrders:    returned,
		SatisfactionScore: satisfaction,
	}

	// Unrecognized columns survive the round trip untouched.
	for i, h := range header {
		if required[h] || i >= len(row) {
			continue
		}
		if rec.Extra == nil {
			rec.Extra = map[string]string{}
		}
		rec.Extra[h] = row[i]
	}
	return rec, nil
}
