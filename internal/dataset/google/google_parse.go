package google

import (
	"fmt"
	"strconv"
	"strings"

	"grovq/internal/core"
)

var requiredColumns = []string{
	"CustomerID", "City", "Zone", "CustomerSegment",
	"AvgOrderValue", "OrderFrequency", "ReturnedOrders", "SatisfactionScore",
}

// parseSheet converts the values matrix returned by the Sheets API into
// customer records. The first row is the header.
func parseSheet(values [][]interface{}) ([]core.CustomerRecord, error) {
	if len(values) == 0 {
		return nil, fmt.Errorf("empty sheet")
	}
	header := toStrings(values[0])
	cols := map[string]int{}
	for i, h := range header {
		cols[strings.TrimSpace(h)] = i
	}
	for _, want := range requiredColumns {
		if _, ok := cols[want]; !ok {
			return nil, fmt.Errorf("missing column %q in header %v", want, header)
		}
	}
	required := map[string]bool{}
	for _, c := range requiredColumns {
		required[c] = true
	}

	var records []core.CustomerRecord
	for i := 1; i < len(values); i++ {
		row := toStrings(values[i])
		if isBlank(row) {
			continue
		}
		rec, err := parseRow(header, cols, required, row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		if err := rec.Validate(); err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func parseRow(header []string, cols map[string]int, required map[string]bool, row []string) (core.CustomerRecord, error) {
	get := func(col string) string {
		return strings.TrimSpace(safeGet(row, cols[col]))
	}

	aov, err := core.ParseDecimalToCents(get("AvgOrderValue"))
	if err != nil {
		return core.CustomerRecord{}, fmt.Errorf("column AvgOrderValue: %w", err)
	}
	freq, err := strconv.Atoi(get("OrderFrequency"))
	if err != nil {
		return core.CustomerRecord{}, fmt.Errorf("column OrderFrequency: %w", err)
	}
	returned, err := strconv.Atoi(get("ReturnedOrders"))
	if err != nil {
		return core.CustomerRecord{}, fmt.Errorf("column ReturnedOrders: %w", err)
	}
	sat, err := strconv.ParseFloat(get("SatisfactionScore"), 64)
	if err != nil {
		return core.CustomerRecord{}, fmt.Errorf("column SatisfactionScore: %w", err)
	}

	rec := core.CustomerRecord{
		ID:                get("CustomerID"),
		City:              get("City"),
		Zone:              get("Zone"),
		Segment:           get("CustomerSegment"),
		AvgOrderValue:     core.Money{Cents: aov},
		OrderFrequency:    freq,
		ReturnedOrders:    returned,
		SatisfactionScore: sat,
	}
	for i, h := range header {
		h = strings.TrimSpace(h)
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

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = fmt.Sprintf("%v", v)
	}
	return out
}

func safeGet(arr []string, idx int) string {
	if idx < 0 || idx >= len(arr) {
		return ""
	}
	return arr[idx]
}

func isBlank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
