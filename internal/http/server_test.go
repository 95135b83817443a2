package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"grovq/internal/amqp"
	"grovq/internal/core"
	"grovq/internal/dataset"
	"grovq/internal/dataset/memory"
)

func newTestServer(t *testing.T, opts Options) *Server {
	t.Helper()
	if opts.Source == nil {
		opts.Source = memory.NewSeeded()
		opts.Origin = "memory"
	}
	s := NewServer(opts)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = s.Shutdown(ctx)
	})
	return s
}

func doRequest(t *testing.T, s *Server, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, req)
	return rec
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Fatalf("content type = %q, want application/json", ct)
	}
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestHealthAndReady(t *testing.T) {
	s := newTestServer(t, Options{})

	rec := doRequest(t, s, http.MethodGet, "/healthz")
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz status = %d, want 200", rec.Code)
	}

	rec = doRequest(t, s, http.MethodGet, "/readyz")
	if rec.Code != http.StatusOK {
		t.Fatalf("readyz status = %d, want 200", rec.Code)
	}
	if got := rec.Body.String(); got != "ready" {
		t.Fatalf("readyz body = %q, want %q", got, "ready")
	}
}

func TestReadyFailsWithoutData(t *testing.T) {
	failing := dataset.SourceFunc(func(context.Context) ([]core.CustomerRecord, error) {
		return nil, fmt.Errorf("open source: %w", dataset.ErrDataUnavailable)
	})
	s := newTestServer(t, Options{Source: failing, Origin: "broken"})

	rec := doRequest(t, s, http.MethodGet, "/readyz")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz status = %d, want 503", rec.Code)
	}
}

func TestIndexListsPages(t *testing.T) {
	s := newTestServer(t, Options{})

	rec := doRequest(t, s, http.MethodGet, "/")
	if rec.Code != http.StatusOK {
		t.Fatalf("index status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	for _, page := range []string{"intro", "summary", "explore", "funnel", "roi", "strategy", "scenario", "conclusion"} {
		if !strings.Contains(body, page) {
			t.Errorf("index page missing %q link", page)
		}
	}
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("missing X-Content-Type-Options header")
	}
}

func TestIntro(t *testing.T) {
	s := newTestServer(t, Options{})

	rec := doRequest(t, s, http.MethodGet, "/api/intro")
	if rec.Code != http.StatusOK {
		t.Fatalf("intro status = %d, want 200", rec.Code)
	}

	var got struct {
		Snapshot snapshotView `json:"snapshot"`
		Cities   []string     `json:"cities"`
		Segments []string     `json:"segments"`
	}
	decodeJSON(t, rec, &got)

	if got.Snapshot.Records != 12 {
		t.Errorf("records = %d, want 12", got.Snapshot.Records)
	}
	if got.Snapshot.Origin != "memory" {
		t.Errorf("origin = %q, want memory", got.Snapshot.Origin)
	}
	wantCities := []string{"Bhopal", "Indore", "Jaipur"}
	if len(got.Cities) != len(wantCities) {
		t.Fatalf("cities = %v, want %v", got.Cities, wantCities)
	}
	for i, c := range wantCities {
		if got.Cities[i] != c {
			t.Errorf("cities[%d] = %q, want %q", i, got.Cities[i], c)
		}
	}
	if len(got.Segments) != 4 {
		t.Errorf("segments = %v, want all four", got.Segments)
	}
}

func TestSummaryRanksSegments(t *testing.T) {
	s := newTestServer(t, Options{})

	rec := doRequest(t, s, http.MethodGet, "/api/summary")
	if rec.Code != http.StatusOK {
		t.Fatalf("summary status = %d, want 200", rec.Code)
	}

	var got struct {
		BestSegment  string     `json:"best_segment"`
		WorstSegment string     `json:"worst_segment"`
		Funnel       funnelView `json:"funnel"`
	}
	decodeJSON(t, rec, &got)

	if got.BestSegment != core.SegmentPremium {
		t.Errorf("best segment = %q, want %q", got.BestSegment, core.SegmentPremium)
	}
	if got.WorstSegment != core.SegmentOccasional {
		t.Errorf("worst segment = %q, want %q", got.WorstSegment, core.SegmentOccasional)
	}
	if got.Funnel.Registered != 12 {
		t.Errorf("registered = %d, want 12", got.Funnel.Registered)
	}
}

func TestExploreFilters(t *testing.T) {
	s := newTestServer(t, Options{})

	rec := doRequest(t, s, http.MethodGet, "/api/explore?city=Indore")
	if rec.Code != http.StatusOK {
		t.Fatalf("explore status = %d, want 200", rec.Code)
	}

	var got struct {
		TotalMatching int               `json:"total_matching"`
		Rows          []customerRowView `json:"rows"`
		ByCity        map[string]int    `json:"by_city"`
	}
	decodeJSON(t, rec, &got)

	if got.TotalMatching != 5 {
		t.Errorf("total matching = %d, want 5", got.TotalMatching)
	}
	for _, row := range got.Rows {
		if row.City != "Indore" {
			t.Errorf("row %s city = %q, want Indore", row.CustomerID, row.City)
		}
	}
	if got.ByCity["Indore"] != 5 || len(got.ByCity) != 1 {
		t.Errorf("by_city = %v, want only Indore 5", got.ByCity)
	}
}

func TestExploreLimit(t *testing.T) {
	s := newTestServer(t, Options{})

	rec := doRequest(t, s, http.MethodGet, "/api/explore?limit=3")
	var got struct {
		TotalMatching int               `json:"total_matching"`
		Rows          []customerRowView `json:"rows"`
	}
	decodeJSON(t, rec, &got)
	if got.TotalMatching != 12 || len(got.Rows) != 3 {
		t.Errorf("total = %d rows = %d, want 12 and 3", got.TotalMatching, len(got.Rows))
	}

	rec = doRequest(t, s, http.MethodGet, "/api/explore?limit=zero")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad limit status = %d, want 400", rec.Code)
	}
}

func TestFunnelStages(t *testing.T) {
	s := newTestServer(t, Options{})

	rec := doRequest(t, s, http.MethodGet, "/api/funnel")
	if rec.Code != http.StatusOK {
		t.Fatalf("funnel status = %d, want 200", rec.Code)
	}

	var got struct {
		Overall    funnelView            `json:"overall"`
		PerSegment map[string]funnelView `json:"per_segment"`
	}
	decodeJSON(t, rec, &got)

	want := funnelView{Registered: 12, Active: 11, Engaged: 4, Loyal: 4}
	if got.Overall != want {
		t.Errorf("overall funnel = %+v, want %+v", got.Overall, want)
	}
	if len(got.PerSegment) != 4 {
		t.Errorf("per segment keys = %d, want 4", len(got.PerSegment))
	}
}

func TestROIGrouping(t *testing.T) {
	s := newTestServer(t, Options{})

	rec := doRequest(t, s, http.MethodGet, "/api/roi?by=city")
	if rec.Code != http.StatusOK {
		t.Fatalf("roi status = %d, want 200", rec.Code)
	}

	var got struct {
		GroupedBy string           `json:"grouped_by"`
		Groups    []groupStatsView `json:"groups"`
	}
	decodeJSON(t, rec, &got)

	if got.GroupedBy != "city" {
		t.Errorf("grouped_by = %q, want city", got.GroupedBy)
	}
	if len(got.Groups) != 3 {
		t.Fatalf("groups = %d, want 3", len(got.Groups))
	}
	for i := 1; i < len(got.Groups); i++ {
		if got.Groups[i].MeanROI.Cents > got.Groups[i-1].MeanROI.Cents {
			t.Errorf("groups not sorted by ROI at index %d", i)
		}
	}

	rec = doRequest(t, s, http.MethodGet, "/api/roi?by=planet")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid key status = %d, want 400", rec.Code)
	}

	rec = doRequest(t, s, http.MethodGet, "/api/roi?order=sideways")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid order status = %d, want 400", rec.Code)
	}
}

func TestROISortByName(t *testing.T) {
	s := newTestServer(t, Options{})

	rec := doRequest(t, s, http.MethodGet, "/api/roi?order=name")
	var got struct {
		Groups []groupStatsView `json:"groups"`
	}
	decodeJSON(t, rec, &got)

	for i := 1; i < len(got.Groups); i++ {
		if got.Groups[i].Name < got.Groups[i-1].Name {
			t.Fatalf("groups not sorted by name at index %d", i)
		}
	}
}

func TestROICACOverrides(t *testing.T) {
	s := newTestServer(t, Options{})

	// Premium CAC raised from ₹500 to ₹900.
	rec := doRequest(t, s, http.MethodGet, "/api/roi?cac_premium=900.00")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var got struct {
		Groups []groupStatsView `json:"groups"`
	}
	decodeJSON(t, rec, &got)
	for _, g := range got.Groups {
		if g.Name == "Premium" && g.MeanCAC.Cents != 90000 {
			t.Errorf("premium mean CAC = %v cents, want 90000", g.MeanCAC.Cents)
		}
	}

	rec = doRequest(t, s, http.MethodGet, "/api/roi?cac_premium=not-money")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid override status = %d, want 400", rec.Code)
	}
}

func TestScenarioDefaultsToBaseCase(t *testing.T) {
	s := newTestServer(t, Options{})

	rec := doRequest(t, s, http.MethodGet, "/api/scenario")
	if rec.Code != http.StatusOK {
		t.Fatalf("scenario status = %d, want 200", rec.Code)
	}

	var got struct {
		Params     scenarioParamsView `json:"params"`
		Projected  projectedView      `json:"projected"`
		Comparison []struct {
			Params scenarioParamsView `json:"params"`
		} `json:"comparison"`
	}
	decodeJSON(t, rec, &got)

	if got.Params.Name != "Base Case" {
		t.Errorf("params name = %q, want Base Case", got.Params.Name)
	}
	if len(got.Comparison) != 3 {
		t.Errorf("comparison entries = %d, want 3", len(got.Comparison))
	}
	if got.Projected.Satisfaction > core.SatisfactionMax {
		t.Errorf("projected satisfaction %v exceeds cap", got.Projected.Satisfaction)
	}
}

func TestScenarioCustomLevers(t *testing.T) {
	s := newTestServer(t, Options{})

	rec := doRequest(t, s, http.MethodGet, "/api/scenario?cac_reduction=0.5&horizon_months=6")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var got struct {
		Params           scenarioParamsView  `json:"params"`
		QuarterlyTargets []quarterTargetView `json:"quarterly_targets"`
	}
	decodeJSON(t, rec, &got)

	if got.Params.Name != "Custom" {
		t.Errorf("params name = %q, want Custom", got.Params.Name)
	}
	if got.Params.CACReduction != 0.5 {
		t.Errorf("cac reduction = %v, want 0.5", got.Params.CACReduction)
	}
	if got.Params.HorizonMonths != 6 {
		t.Errorf("horizon = %d, want 6", got.Params.HorizonMonths)
	}
	if len(got.QuarterlyTargets) != 2 {
		t.Errorf("quarterly targets = %d, want 2", len(got.QuarterlyTargets))
	}

	rec = doRequest(t, s, http.MethodGet, "/api/scenario?cac_reduction=1.5")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("out-of-range fraction status = %d, want 400", rec.Code)
	}
}

func TestScenarioUnknownName(t *testing.T) {
	s := newTestServer(t, Options{})

	rec := doRequest(t, s, http.MethodGet, "/api/scenario?name=Miracle")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown scenario status = %d, want 400", rec.Code)
	}
}

func TestStrategyTargetsBestSegment(t *testing.T) {
	s := newTestServer(t, Options{})

	rec := doRequest(t, s, http.MethodGet, "/api/strategy")
	if rec.Code != http.StatusOK {
		t.Fatalf("strategy status = %d, want 200", rec.Code)
	}

	var got struct {
		FocusSegment     string              `json:"focus_segment"`
		QuarterlyTargets []quarterTargetView `json:"quarterly_targets"`
	}
	decodeJSON(t, rec, &got)

	if got.FocusSegment != core.SegmentPremium {
		t.Errorf("focus segment = %q, want %q", got.FocusSegment, core.SegmentPremium)
	}
	if len(got.QuarterlyTargets) != 4 {
		t.Errorf("quarterly targets = %d, want 4", len(got.QuarterlyTargets))
	}
}

func TestConclusionProfitDelta(t *testing.T) {
	s := newTestServer(t, Options{})

	rec := doRequest(t, s, http.MethodGet, "/api/conclusion")
	if rec.Code != http.StatusOK {
		t.Fatalf("conclusion status = %d, want 200", rec.Code)
	}

	var got struct {
		AnnualImpact      annualImpactView `json:"annual_impact"`
		AnnualProfitDelta meanMoneyView    `json:"annual_profit_delta"`
	}
	decodeJSON(t, rec, &got)

	delta := got.AnnualImpact.ProjectedProfit.Cents - got.AnnualImpact.CurrentProfit.Cents
	if diff := got.AnnualProfitDelta.Cents - delta; diff > 0.02 || diff < -0.02 {
		t.Errorf("profit delta = %v, impact difference = %v", got.AnnualProfitDelta.Cents, delta)
	}
}

func TestExportCSV(t *testing.T) {
	s := newTestServer(t, Options{})

	rec := doRequest(t, s, http.MethodGet, "/api/export?segment=Premium")
	if rec.Code != http.StatusOK {
		t.Fatalf("export status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("content type = %q, want text/csv", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "attachment") {
		t.Errorf("content disposition = %q, want attachment", cd)
	}

	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("export lines = %d, want header plus 3 rows", len(lines))
	}
	if !strings.HasPrefix(lines[0], "CustomerID,") {
		t.Errorf("header = %q, want CustomerID first", lines[0])
	}
}

type stubPublisher struct {
	err      error
	lastCity string
}

func (p *stubPublisher) PublishExportRequest(_ context.Context, msg *amqp.ExportRequestMessage) error {
	if p.err != nil {
		return p.err
	}
	p.lastCity = msg.City
	return nil
}

func TestExportAsync(t *testing.T) {
	t.Run("unconfigured", func(t *testing.T) {
		s := newTestServer(t, Options{})
		rec := doRequest(t, s, http.MethodPost, "/api/export/async")
		if rec.Code != http.StatusServiceUnavailable {
			t.Fatalf("status = %d, want 503", rec.Code)
		}
	})

	t.Run("accepted", func(t *testing.T) {
		pub := &stubPublisher{}
		s := newTestServer(t, Options{Publisher: pub})
		rec := doRequest(t, s, http.MethodPost, "/api/export/async?city=Indore")
		if rec.Code != http.StatusAccepted {
			t.Fatalf("status = %d, want 202", rec.Code)
		}

		var got struct {
			RequestID string `json:"request_id"`
			File      string `json:"file"`
		}
		decodeJSON(t, rec, &got)
		if got.RequestID == "" {
			t.Error("empty request_id")
		}
		if got.File != got.RequestID+".csv" {
			t.Errorf("file = %q, want %q", got.File, got.RequestID+".csv")
		}
		if pub.lastCity != "Indore" {
			t.Errorf("published city = %q, want Indore", pub.lastCity)
		}
	})

	t.Run("publish failure", func(t *testing.T) {
		pub := &stubPublisher{err: fmt.Errorf("broker down")}
		s := newTestServer(t, Options{Publisher: pub})
		rec := doRequest(t, s, http.MethodPost, "/api/export/async")
		if rec.Code != http.StatusBadGateway {
			t.Fatalf("status = %d, want 502", rec.Code)
		}
	})
}

func TestRefresh(t *testing.T) {
	s := newTestServer(t, Options{})

	rec := doRequest(t, s, http.MethodGet, "/api/refresh")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("GET refresh status = %d, want 405", rec.Code)
	}

	rec = doRequest(t, s, http.MethodPost, "/api/refresh")
	if rec.Code != http.StatusOK {
		t.Fatalf("POST refresh status = %d, want 200", rec.Code)
	}

	var got struct {
		Origin  string `json:"origin"`
		Records int    `json:"records"`
	}
	decodeJSON(t, rec, &got)
	if got.Records != 12 || got.Origin != "memory" {
		t.Errorf("refresh = %+v, want 12 records from memory", got)
	}
}

func TestDatasetUnavailableMapsTo503(t *testing.T) {
	failing := dataset.SourceFunc(func(context.Context) ([]core.CustomerRecord, error) {
		return nil, fmt.Errorf("open source: %w", dataset.ErrDataUnavailable)
	})
	s := newTestServer(t, Options{Source: failing, Origin: "broken"})

	rec := doRequest(t, s, http.MethodGet, "/api/summary")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}

	var got map[string]string
	decodeJSON(t, rec, &got)
	if got["error"] != "dataset unavailable" {
		t.Errorf("error = %q, want dataset unavailable", got["error"])
	}
}

func TestUnmappedSegmentMapsTo422(t *testing.T) {
	store, err := memory.New([]core.CustomerRecord{{
		ID:                "CUST0001",
		City:              "Indore",
		Zone:              "North",
		Segment:           "VIP",
		AvgOrderValue:     core.Money{Cents: 50000},
		OrderFrequency:    3,
		SatisfactionScore: 4.0,
	}})
	if err != nil {
		t.Fatalf("memory.New: %v", err)
	}
	s := newTestServer(t, Options{Source: store, Origin: "memory"})

	rec := doRequest(t, s, http.MethodGet, "/api/summary")
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
}

func TestMethodNotAllowedOnSlides(t *testing.T) {
	s := newTestServer(t, Options{})

	for _, path := range []string{"/api/intro", "/api/summary", "/api/roi", "/api/export"} {
		rec := doRequest(t, s, http.MethodPost, path)
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("POST %s status = %d, want 405", path, rec.Code)
		}
	}
}
