package http

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"grovq/internal/metrics"
)

// The /api handlers below each build the view model for one dashboard
// page from the current snapshot.

const maxExploreRows = 500

func (s *Server) requireGet(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return false
	}
	return true
}

func (s *Server) handleIntro(w http.ResponseWriter, r *http.Request) {
	if !s.requireGet(w, r) {
		return
	}
	snap, rows, err := s.table(r.Context())
	if err != nil {
		s.writeDatasetError(w, r, err)
		return
	}

	var satSum float64
	for _, row := range rows {
		satSum += row.SatisfactionScore
	}
	meanSat := 0.0
	if len(rows) > 0 {
		meanSat = satSum / float64(len(rows))
	}

	writeJSON(w, http.StatusOK, struct {
		Title            string       `json:"title"`
		Snapshot         snapshotView `json:"snapshot"`
		Cities           []string     `json:"cities"`
		Zones            []string     `json:"zones"`
		Segments         []string     `json:"segments"`
		MeanSatisfaction float64      `json:"mean_satisfaction"`
	}{
		Title: "Hyperlocal Grocery: Customer Economics",
		Snapshot: snapshotView{
			Origin:   snap.Origin(),
			LoadedAt: snap.LoadedAt(),
			Records:  snap.Len(),
		},
		Cities:           distinctValues(rows, func(r metrics.Row) string { return r.City }),
		Zones:            distinctValues(rows, func(r metrics.Row) string { return r.Zone }),
		Segments:         distinctValues(rows, func(r metrics.Row) string { return r.Segment }),
		MeanSatisfaction: round2(meanSat),
	})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	if !s.requireGet(w, r) {
		return
	}
	_, rows, err := s.table(r.Context())
	if err != nil {
		s.writeDatasetError(w, r, err)
		return
	}

	segmentStats, err := metrics.AggregateBy(rows, metrics.BySegment)
	if err != nil {
		s.writeDatasetError(w, r, err)
		return
	}
	cityStats, err := metrics.AggregateBy(rows, metrics.ByCity)
	if err != nil {
		s.writeDatasetError(w, r, err)
		return
	}
	funnel := metrics.ClassifyFunnel(rows)

	writeJSON(w, http.StatusOK, struct {
		Averages       averagesView `json:"averages"`
		MeanReturnRate float64      `json:"mean_return_rate"`
		BestSegment    string       `json:"best_segment"`
		WorstSegment   string       `json:"worst_segment"`
		TopCity        string       `json:"top_city"`
		Funnel         funnelView   `json:"funnel"`
		ActiveRate     float64      `json:"active_rate"`
	}{
		Averages:       newAveragesView(metrics.Averages(rows)),
		MeanReturnRate: round2(metrics.MeanReturnRate(rows)),
		BestSegment:    metrics.BestGroup(rows, metrics.BySegment, segmentStats),
		WorstSegment:   metrics.WorstGroup(rows, metrics.BySegment, segmentStats),
		TopCity:        metrics.BestGroup(rows, metrics.ByCity, cityStats),
		Funnel:         newFunnelView(funnel),
		ActiveRate:     round2(metrics.ConversionRate(funnel.Registered, funnel.Active)),
	})
}

func (s *Server) handleExplore(w http.ResponseWriter, r *http.Request) {
	if !s.requireGet(w, r) {
		return
	}
	_, rows, err := s.table(r.Context())
	if err != nil {
		s.writeDatasetError(w, r, err)
		return
	}

	filter := parseFilter(r)
	filtered := filter.Apply(rows)

	limit := maxExploreRows
	if v := strings.TrimSpace(r.URL.Query().Get("limit")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid limit"})
			return
		}
		if n < limit {
			limit = n
		}
	}

	view := make([]customerRowView, 0, min(limit, len(filtered)))
	for i, row := range filtered {
		if i >= limit {
			break
		}
		view = append(view, newCustomerRowView(row))
	}

	writeJSON(w, http.StatusOK, struct {
		Filter struct {
			City    string `json:"city,omitempty"`
			Segment string `json:"segment,omitempty"`
			Zone    string `json:"zone,omitempty"`
		} `json:"filter"`
		TotalMatching int               `json:"total_matching"`
		Rows          []customerRowView `json:"rows"`
		BySegment     map[string]int    `json:"by_segment"`
		ByCity        map[string]int    `json:"by_city"`
		ByZone        map[string]int    `json:"by_zone"`
	}{
		Filter: struct {
			City    string `json:"city,omitempty"`
			Segment string `json:"segment,omitempty"`
			Zone    string `json:"zone,omitempty"`
		}{City: filter.City, Segment: filter.Segment, Zone: filter.Zone},
		TotalMatching: len(filtered),
		Rows:          view,
		BySegment:     metrics.Distribution(filtered, metrics.BySegment),
		ByCity:        metrics.Distribution(filtered, metrics.ByCity),
		ByZone:        metrics.Distribution(filtered, metrics.ByZone),
	})
}

func (s *Server) handleFunnel(w http.ResponseWriter, r *http.Request) {
	if !s.requireGet(w, r) {
		return
	}
	_, rows, err := s.table(r.Context())
	if err != nil {
		s.writeDatasetError(w, r, err)
		return
	}

	overall := metrics.ClassifyFunnel(rows)
	perSegment := map[string]funnelView{}
	for segment, f := range metrics.FunnelBySegment(rows) {
		perSegment[segment] = newFunnelView(f)
	}

	type stageDrop struct {
		From    string  `json:"from"`
		To      string  `json:"to"`
		DropOff float64 `json:"drop_off"`
	}

	writeJSON(w, http.StatusOK, struct {
		Overall    funnelView            `json:"overall"`
		DropOffs   []stageDrop           `json:"drop_offs"`
		PerSegment map[string]funnelView `json:"per_segment"`
	}{
		Overall: newFunnelView(overall),
		DropOffs: []stageDrop{
			{From: "registered", To: "active", DropOff: round2(metrics.DropOff(overall.Registered, overall.Active))},
			{From: "active", To: "engaged", DropOff: round2(metrics.DropOff(overall.Active, overall.Engaged))},
			{From: "engaged", To: "loyal", DropOff: round2(metrics.DropOff(overall.Engaged, overall.Loyal))},
		},
		PerSegment: perSegment,
	})
}

func (s *Server) handleROI(w http.ResponseWriter, r *http.Request) {
	if !s.requireGet(w, r) {
		return
	}

	key, err := parseGroupKey(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	order, err := parseSortOrder(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	overrides, err := parseCACOverrides(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	_, rows, err := s.tableWith(r.Context(), overrides)
	if err != nil {
		s.writeDatasetError(w, r, err)
		return
	}

	stats, err := metrics.AggregateBy(rows, key)
	if err != nil {
		s.writeDatasetError(w, r, err)
		return
	}

	groups := metrics.SortGroups(stats, order)
	view := make([]groupStatsView, len(groups))
	for i, g := range groups {
		view[i] = newGroupStatsView(g)
	}

	writeJSON(w, http.StatusOK, struct {
		GroupedBy string           `json:"grouped_by"`
		Groups    []groupStatsView `json:"groups"`
		Best      string           `json:"best"`
		Worst     string           `json:"worst"`
		Averages  averagesView     `json:"averages"`
	}{
		GroupedBy: string(key),
		Groups:    view,
		Best:      metrics.BestGroup(rows, key, stats),
		Worst:     metrics.WorstGroup(rows, key, stats),
		Averages:  newAveragesView(metrics.Averages(rows)),
	})
}

func (s *Server) handleStrategy(w http.ResponseWriter, r *http.Request) {
	if !s.requireGet(w, r) {
		return
	}
	_, rows, err := s.table(r.Context())
	if err != nil {
		s.writeDatasetError(w, r, err)
		return
	}

	stats, err := metrics.AggregateBy(rows, metrics.BySegment)
	if err != nil {
		s.writeDatasetError(w, r, err)
		return
	}

	best := metrics.BestGroup(rows, metrics.BySegment, stats)
	worst := metrics.WorstGroup(rows, metrics.BySegment, stats)

	cur := metrics.Averages(rows)
	base, err := metrics.ScenarioByName(metrics.ScenarioBaseCase)
	if err != nil {
		s.writeDatasetError(w, r, err)
		return
	}
	proj := metrics.Project(cur, base)

	presets := metrics.Scenarios()
	presetViews := make([]scenarioParamsView, len(presets))
	for i, p := range presets {
		presetViews[i] = newScenarioParamsView(p)
	}

	// Per-segment unit economics with the base-case CAC target applied.
	type segmentTargetView struct {
		Segment      string        `json:"segment"`
		Count        int           `json:"count"`
		MeanCAC      meanMoneyView `json:"mean_cac"`
		TargetCAC    meanMoneyView `json:"target_cac"`
		MeanCLV      meanMoneyView `json:"mean_clv"`
		MeanROIRatio float64       `json:"mean_roi_ratio"`
	}
	groups := metrics.SortGroups(stats, metrics.OrderByROIDesc)
	segmentTargets := make([]segmentTargetView, len(groups))
	for i, g := range groups {
		segmentTargets[i] = segmentTargetView{
			Segment:      g.Name,
			Count:        g.Count,
			MeanCAC:      newMeanMoneyView(g.MeanCAC),
			TargetCAC:    newMeanMoneyView(g.MeanCAC * (1 - base.CACReduction)),
			MeanCLV:      newMeanMoneyView(g.MeanCLV),
			MeanROIRatio: round2(g.MeanROIRatio),
		}
	}

	writeJSON(w, http.StatusOK, struct {
		FocusSegment     string               `json:"focus_segment"`
		ReduceSegment    string               `json:"reduce_segment"`
		SegmentTargets   []segmentTargetView  `json:"segment_targets"`
		Levers           []scenarioParamsView `json:"levers"`
		QuarterlyTargets []quarterTargetView  `json:"quarterly_targets"`
		Recommendations  []string             `json:"recommendations"`
	}{
		FocusSegment:   best,
		ReduceSegment:  worst,
		SegmentTargets: segmentTargets,
		Levers:         presetViews,
		QuarterlyTargets: newQuarterTargetViews(
			metrics.QuarterlyTargets(cur, proj, base.HorizonMonths)),
		Recommendations: []string{
			"Shift acquisition budget toward the " + best + " segment, which carries the highest return per customer.",
			"Rework onboarding for the " + worst + " segment or reduce its acquisition spend.",
			"Lift repeat-order frequency through delivery-slot subscriptions and basket-size incentives.",
			"Cut acquisition cost with referral programs in high-density zones.",
		},
	})
}

func (s *Server) handleScenario(w http.ResponseWriter, r *http.Request) {
	if !s.requireGet(w, r) {
		return
	}
	params, err := parseScenarioParams(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	overrides, err := parseCACOverrides(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	// CAC overrides re-derive the table before projecting, so the
	// scenario starts from the adjusted economics.
	_, rows, err := s.tableWith(r.Context(), overrides)
	if err != nil {
		s.writeDatasetError(w, r, err)
		return
	}

	cur := metrics.Averages(rows)
	proj := metrics.Project(cur, params)

	outcomes := metrics.CompareScenarios(cur)
	type outcomeView struct {
		Params    scenarioParamsView `json:"params"`
		Projected projectedView      `json:"projected"`
	}
	comparison := make([]outcomeView, len(outcomes))
	for i, o := range outcomes {
		comparison[i] = outcomeView{
			Params:    newScenarioParamsView(o.Params),
			Projected: newProjectedView(o.Projected),
		}
	}

	writeJSON(w, http.StatusOK, struct {
		Params           scenarioParamsView  `json:"params"`
		Current          averagesView        `json:"current"`
		Projected        projectedView       `json:"projected"`
		QuarterlyTargets []quarterTargetView `json:"quarterly_targets"`
		AnnualImpact     annualImpactView    `json:"annual_impact"`
		Comparison       []outcomeView       `json:"comparison"`
	}{
		Params:    newScenarioParamsView(params),
		Current:   newAveragesView(cur),
		Projected: newProjectedView(proj),
		QuarterlyTargets: newQuarterTargetViews(
			metrics.QuarterlyTargets(cur, proj, params.HorizonMonths)),
		AnnualImpact: newAnnualImpactView(
			metrics.ProjectAnnualImpact(cur, proj, len(rows), s.monthlyNewCustomers)),
		Comparison: comparison,
	})
}

func (s *Server) handleConclusion(w http.ResponseWriter, r *http.Request) {
	if !s.requireGet(w, r) {
		return
	}
	snap, rows, err := s.table(r.Context())
	if err != nil {
		s.writeDatasetError(w, r, err)
		return
	}

	stats, err := metrics.AggregateBy(rows, metrics.BySegment)
	if err != nil {
		s.writeDatasetError(w, r, err)
		return
	}

	cur := metrics.Averages(rows)
	base, err := metrics.ScenarioByName(metrics.ScenarioBaseCase)
	if err != nil {
		s.writeDatasetError(w, r, err)
		return
	}
	proj := metrics.Project(cur, base)
	impact := metrics.ProjectAnnualImpact(cur, proj, len(rows), s.monthlyNewCustomers)

	type kpiView struct {
		Name    string  `json:"name"`
		Current float64 `json:"current"`
		Target  float64 `json:"target"`
		Unit    string  `json:"unit"`
	}
	kpis := []kpiView{
		{Name: "CAC", Current: round2(cur.CAC), Target: round2(proj.CAC), Unit: "cents"},
		{Name: "CLV", Current: round2(cur.CLV), Target: round2(proj.CLV), Unit: "cents"},
		{Name: "ROI", Current: round2(cur.ROI), Target: round2(proj.ROI), Unit: "cents"},
		{Name: "Order frequency", Current: round2(cur.Frequency), Target: round2(proj.Frequency), Unit: "orders"},
		{Name: "Satisfaction", Current: round2(cur.Satisfaction), Target: round2(proj.Satisfaction), Unit: "score"},
	}

	writeJSON(w, http.StatusOK, struct {
		GeneratedAt       time.Time        `json:"generated_at"`
		Snapshot          snapshotView     `json:"snapshot"`
		Current           averagesView     `json:"current"`
		Projected         projectedView    `json:"projected"`
		KPIs              []kpiView        `json:"kpis"`
		BestSegment       string           `json:"best_segment"`
		AnnualImpact      annualImpactView `json:"annual_impact"`
		AnnualProfitDelta meanMoneyView    `json:"annual_profit_delta"`
	}{
		GeneratedAt: time.Now(),
		Snapshot: snapshotView{
			Origin:   snap.Origin(),
			LoadedAt: snap.LoadedAt(),
			Records:  snap.Len(),
		},
		Current:           newAveragesView(cur),
		Projected:         newProjectedView(proj),
		KPIs:              kpis,
		BestSegment:       metrics.BestGroup(rows, metrics.BySegment, stats),
		AnnualImpact:      newAnnualImpactView(impact),
		AnnualProfitDelta: newMeanMoneyView(impact.ProjectedProfit - impact.CurrentProfit),
	})
}
