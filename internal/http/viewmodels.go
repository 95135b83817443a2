package http

import (
	"sort"
	"time"

	"grovq/internal/core"
	"grovq/internal/metrics"
)

// moneyView pairs exact cents with a display string.
type moneyView struct {
	Cents   int64  `json:"cents"`
	Display string `json:"display"`
}

func newMoneyView(m core.Money) moneyView {
	return moneyView{Cents: m.Cents, Display: core.FormatRupees(m.Cents)}
}

// meanMoneyView carries a mean monetary value in float cents.
type meanMoneyView struct {
	Cents   float64 `json:"cents"`
	Display string  `json:"display"`
}

func newMeanMoneyView(cents float64) meanMoneyView {
	return meanMoneyView{Cents: round2(cents), Display: formatRupeeCents(cents)}
}

type snapshotView struct {
	Origin   string    `json:"origin"`
	LoadedAt time.Time `json:"loaded_at"`
	Records  int       `json:"records"`
}

type customerRowView struct {
	CustomerID        string            `json:"customer_id"`
	City              string            `json:"city"`
	Zone              string            `json:"zone"`
	Segment           string            `json:"segment"`
	AvgOrderValue     moneyView         `json:"avg_order_value"`
	OrderFrequency    int               `json:"order_frequency"`
	ReturnedOrders    int               `json:"returned_orders"`
	SatisfactionScore float64           `json:"satisfaction_score"`
	CLV               moneyView         `json:"clv"`
	ReturnRate        *float64          `json:"return_rate"`
	CAC               moneyView         `json:"cac"`
	ROI               moneyView         `json:"roi"`
	ROIRatio          *float64          `json:"roi_ratio"`
	Extra             map[string]string `json:"extra,omitempty"`
}

func newCustomerRowView(row metrics.Row) customerRowView {
	ratio := row.ROIRatio
	return customerRowView{
		CustomerID:        row.ID,
		City:              row.City,
		Zone:              row.Zone,
		Segment:           row.Segment,
		AvgOrderValue:     newMoneyView(row.AvgOrderValue),
		OrderFrequency:    row.OrderFrequency,
		ReturnedOrders:    row.ReturnedOrders,
		SatisfactionScore: row.SatisfactionScore,
		CLV:               newMoneyView(row.CLV),
		ReturnRate:        rateOrNil(row.ReturnRate),
		CAC:               newMoneyView(row.CAC),
		ROI:               newMoneyView(row.ROI),
		ROIRatio:          rateOrNil(ratio),
		Extra:             row.Extra,
	}
}

type groupStatsView struct {
	Name             string        `json:"name"`
	Count            int           `json:"count"`
	MeanCLV          meanMoneyView `json:"mean_clv"`
	MeanCAC          meanMoneyView `json:"mean_cac"`
	MeanROI          meanMoneyView `json:"mean_roi"`
	MeanROIRatio     float64       `json:"mean_roi_ratio"`
	MeanAOV          meanMoneyView `json:"mean_aov"`
	MeanFrequency    float64       `json:"mean_frequency"`
	MeanSatisfaction float64       `json:"mean_satisfaction"`
	MeanReturnRate   float64       `json:"mean_return_rate"`
}

func newGroupStatsView(g metrics.Group) groupStatsView {
	return groupStatsView{
		Name:             g.Name,
		Count:            g.Count,
		MeanCLV:          newMeanMoneyView(g.MeanCLV),
		MeanCAC:          newMeanMoneyView(g.MeanCAC),
		MeanROI:          newMeanMoneyView(g.MeanROI),
		MeanROIRatio:     round2(g.MeanROIRatio),
		MeanAOV:          newMeanMoneyView(g.MeanAOV),
		MeanFrequency:    round2(g.MeanFrequency),
		MeanSatisfaction: round2(g.MeanSatisfaction),
		MeanReturnRate:   round2(g.MeanReturnRate),
	}
}

type averagesView struct {
	CAC          meanMoneyView `json:"cac"`
	CLV          meanMoneyView `json:"clv"`
	AOV          meanMoneyView `json:"aov"`
	ROI          meanMoneyView `json:"roi"`
	Frequency    float64       `json:"frequency"`
	Satisfaction float64       `json:"satisfaction"`
}

func newAveragesView(a metrics.CurrentAverages) averagesView {
	return averagesView{
		CAC:          newMeanMoneyView(a.CAC),
		CLV:          newMeanMoneyView(a.CLV),
		AOV:          newMeanMoneyView(a.AOV),
		ROI:          newMeanMoneyView(a.ROI),
		Frequency:    round2(a.Frequency),
		Satisfaction: round2(a.Satisfaction),
	}
}

type projectedView struct {
	CAC          meanMoneyView `json:"cac"`
	CLV          meanMoneyView `json:"clv"`
	AOV          meanMoneyView `json:"aov"`
	ROI          meanMoneyView `json:"roi"`
	Frequency    float64       `json:"frequency"`
	Satisfaction float64       `json:"satisfaction"`
}

func newProjectedView(p metrics.ProjectedMetrics) projectedView {
	return projectedView{
		CAC:          newMeanMoneyView(p.CAC),
		CLV:          newMeanMoneyView(p.CLV),
		AOV:          newMeanMoneyView(p.AOV),
		ROI:          newMeanMoneyView(p.ROI),
		Frequency:    round2(p.Frequency),
		Satisfaction: round2(p.Satisfaction),
	}
}

type scenarioParamsView struct {
	Name              string  `json:"name"`
	CACReduction      float64 `json:"cac_reduction"`
	RetentionIncrease float64 `json:"retention_increase"`
	FrequencyIncrease float64 `json:"frequency_increase"`
	AOVIncrease       float64 `json:"aov_increase"`
	HorizonMonths     int     `json:"horizon_months"`
}

func newScenarioParamsView(p metrics.ScenarioParams) scenarioParamsView {
	return scenarioParamsView{
		Name:              p.Name,
		CACReduction:      p.CACReduction,
		RetentionIncrease: p.RetentionIncrease,
		FrequencyIncrease: p.FrequencyIncrease,
		AOVIncrease:       p.AOVIncrease,
		HorizonMonths:     p.HorizonMonths,
	}
}

type funnelView struct {
	Registered int `json:"registered"`
	Active     int `json:"active"`
	Engaged    int `json:"engaged"`
	Loyal      int `json:"loyal"`
}

func newFunnelView(f metrics.Funnel) funnelView {
	return funnelView{
		Registered: f.Registered,
		Active:     f.Active,
		Engaged:    f.Engaged,
		Loyal:      f.Loyal,
	}
}

type quarterTargetView struct {
	Quarter  int           `json:"quarter"`
	Progress float64       `json:"progress"`
	CAC      meanMoneyView `json:"cac"`
	CLV      meanMoneyView `json:"clv"`
}

func newQuarterTargetViews(targets []metrics.QuarterTarget) []quarterTargetView {
	out := make([]quarterTargetView, len(targets))
	for i, q := range targets {
		out[i] = quarterTargetView{
			Quarter:  q.Quarter,
			Progress: round2(q.Progress),
			CAC:      newMeanMoneyView(q.CAC),
			CLV:      newMeanMoneyView(q.CLV),
		}
	}
	return out
}

type annualImpactView struct {
	CurrentRevenue    meanMoneyView `json:"current_revenue"`
	ProjectedRevenue  meanMoneyView `json:"projected_revenue"`
	CurrentCACSpend   meanMoneyView `json:"current_cac_spend"`
	ProjectedCACSpend meanMoneyView `json:"projected_cac_spend"`
	CurrentProfit     meanMoneyView `json:"current_profit"`
	ProjectedProfit   meanMoneyView `json:"projected_profit"`
}

func newAnnualImpactView(a metrics.AnnualImpact) annualImpactView {
	return annualImpactView{
		CurrentRevenue:    newMeanMoneyView(a.CurrentRevenue),
		ProjectedRevenue:  newMeanMoneyView(a.ProjectedRevenue),
		CurrentCACSpend:   newMeanMoneyView(a.CurrentCACSpend),
		ProjectedCACSpend: newMeanMoneyView(a.ProjectedCACSpend),
		CurrentProfit:     newMeanMoneyView(a.CurrentProfit),
		ProjectedProfit:   newMeanMoneyView(a.ProjectedProfit),
	}
}

// distinctValues collects the sorted distinct values of one column.
func distinctValues(rows []metrics.Row, get func(metrics.Row) string) []string {
	seen := map[string]bool{}
	var out []string
	for _, r := range rows {
		v := get(r)
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	sort.Strings(out)
	return out
}
