package http

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"grovq/internal/core"
	"grovq/internal/metrics"
)

// parseFilter reads the optional city/segment/zone query parameters.
func parseFilter(r *http.Request) metrics.Filter {
	q := r.URL.Query()
	return metrics.Filter{
		City:    sanitizeInput(q.Get("city")),
		Segment: sanitizeInput(q.Get("segment")),
		Zone:    sanitizeInput(q.Get("zone")),
	}
}

// parseGroupKey reads the optional "by" query parameter, defaulting to
// segment grouping.
func parseGroupKey(r *http.Request) (metrics.GroupKey, error) {
	v := strings.TrimSpace(r.URL.Query().Get("by"))
	if v == "" {
		return metrics.BySegment, nil
	}
	key := metrics.GroupKey(v)
	if !key.IsValid() {
		return "", fmt.Errorf("unknown group key %q", v)
	}
	return key, nil
}

// parseCACOverrides reads optional per-segment acquisition costs, in
// rupees, from the query string.
func parseCACOverrides(r *http.Request) (metrics.CACMap, error) {
	params := []struct {
		segment string
		name    string
	}{
		{core.SegmentPremium, "cac_premium"},
		{core.SegmentRegular, "cac_regular"},
		{core.SegmentBudget, "cac_budget"},
		{core.SegmentOccasional, "cac_occasional"},
	}

	q := r.URL.Query()
	var overrides metrics.CACMap
	for _, p := range params {
		v := strings.TrimSpace(q.Get(p.name))
		if v == "" {
			continue
		}
		cents, err := core.ParseDecimalToCents(v)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", p.name, err)
		}
		if overrides == nil {
			overrides = metrics.CACMap{}
		}
		overrides[p.segment] = core.Money{Cents: cents}
	}
	return overrides, nil
}

// parseSortOrder reads the optional "order" query parameter.
func parseSortOrder(r *http.Request) (metrics.SortOrder, error) {
	switch v := strings.TrimSpace(r.URL.Query().Get("order")); v {
	case "", "roi":
		return metrics.OrderByROIDesc, nil
	case "name":
		return metrics.OrderByName, nil
	default:
		return "", fmt.Errorf("unknown sort order %q", v)
	}
}

// parseScenarioParams resolves the requested scenario: a named preset,
// optionally with individual levers overridden from the query string.
func parseScenarioParams(r *http.Request) (metrics.ScenarioParams, error) {
	q := r.URL.Query()

	name := strings.TrimSpace(q.Get("name"))
	if name == "" {
		name = metrics.ScenarioBaseCase
	}
	params, err := metrics.ScenarioByName(name)
	if err != nil {
		return metrics.ScenarioParams{}, err
	}

	custom := false
	fraction := func(key string, dst *float64) error {
		v := strings.TrimSpace(q.Get(key))
		if v == "" {
			return nil
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 0 || f > 1 {
			return fmt.Errorf("invalid %s: must be a fraction between 0 and 1", key)
		}
		*dst = f
		custom = true
		return nil
	}
	if err := fraction("cac_reduction", &params.CACReduction); err != nil {
		return metrics.ScenarioParams{}, err
	}
	if err := fraction("retention_increase", &params.RetentionIncrease); err != nil {
		return metrics.ScenarioParams{}, err
	}
	if err := fraction("frequency_increase", &params.FrequencyIncrease); err != nil {
		return metrics.ScenarioParams{}, err
	}
	if err := fraction("aov_increase", &params.AOVIncrease); err != nil {
		return metrics.ScenarioParams{}, err
	}
	if v := strings.TrimSpace(q.Get("horizon_months")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return metrics.ScenarioParams{}, fmt.Errorf("invalid horizon_months: must be a positive integer")
		}
		params.HorizonMonths = n
		custom = true
	}
	if custom {
		params.Name = "Custom"
	}
	return params, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode JSON response", "error", err)
	}
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// generateRequestID creates a unique request ID for tracing.
func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

// formatRupeeCents renders a float cent amount as a rupee string for
// display next to the raw number.
func formatRupeeCents(cents float64) string {
	if math.IsNaN(cents) || math.IsInf(cents, 0) {
		return ""
	}
	return core.FormatRupees(int64(math.Round(cents)))
}

// rateOrNil converts an undefined (NaN) rate to nil so JSON output
// never carries a non-encodable value.
func rateOrNil(rate float64) *float64 {
	if math.IsNaN(rate) || math.IsInf(rate, 0) {
		return nil
	}
	return &rate
}

// round2 keeps view-model floats readable without losing meaning.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
