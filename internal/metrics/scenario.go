package metrics

import (
	"errors"
	"fmt"

	"grovq/internal/core"
)

// ErrUnknownScenario is returned when a preset name has no definition.
var ErrUnknownScenario = errors.New("unknown scenario")

// ScenarioParams bundles the percentage-change assumptions of one named
// scenario. All fractions are relative changes (0.25 = 25%). Retention is
// carried for display; the projection itself moves frequency and AOV.
type ScenarioParams struct {
	Name              string
	CACReduction      float64
	RetentionIncrease float64
	FrequencyIncrease float64
	AOVIncrease       float64
	HorizonMonths     int
}

// Preset scenario names.
const (
	ScenarioConservative = "Conservative"
	ScenarioBaseCase     = "Base Case"
	ScenarioOptimistic   = "Optimistic"
)

// Scenarios returns the fixed presets in presentation order.
func Scenarios() []ScenarioParams {
	return []ScenarioParams{
		{Name: ScenarioConservative, CACReduction: 0.15, RetentionIncrease: 0.15, FrequencyIncrease: 0.25, AOVIncrease: 0.05, HorizonMonths: 12},
		{Name: ScenarioBaseCase, CACReduction: 0.25, RetentionIncrease: 0.25, FrequencyIncrease: 0.40, AOVIncrease: 0.10, HorizonMonths: 12},
		{Name: ScenarioOptimistic, CACReduction: 0.35, RetentionIncrease: 0.35, FrequencyIncrease: 0.60, AOVIncrease: 0.15, HorizonMonths: 12},
	}
}

// ScenarioByName looks up a preset by its exact name.
func ScenarioByName(name string) (ScenarioParams, error) {
	for _, s := range Scenarios() {
		if s.Name == name {
			return s, nil
		}
	}
	return ScenarioParams{}, fmt.Errorf("%q: %w", name, ErrUnknownScenario)
}

// ProjectedMetrics is the outcome of applying one scenario to the current
// dataset-wide averages. Monetary fields are in cents.
type ProjectedMetrics struct {
	CAC          float64
	Frequency    float64
	AOV          float64
	CLV          float64
	ROI          float64
	Satisfaction float64
}

// Project applies the scenario fractions to the current averages. It is a
// stateless pure function: identical inputs produce bit-identical output,
// and concurrent calls never interfere.
//
// The 10% satisfaction uplift is a heuristic assumption, not a measured
// effect, capped at the top of the scale.
func Project(cur CurrentAverages, p ScenarioParams) ProjectedMetrics {
	projCAC := cur.CAC * (1 - p.CACReduction)
	projFreq := cur.Frequency * (1 + p.FrequencyIncrease)
	projAOV := cur.AOV * (1 + p.AOVIncrease)
	projCLV := projAOV * projFreq
	projSat := cur.Satisfaction * 1.1
	if projSat > core.SatisfactionMax {
		projSat = core.SatisfactionMax
	}
	return ProjectedMetrics{
		CAC:          projCAC,
		Frequency:    projFreq,
		AOV:          projAOV,
		CLV:          projCLV,
		ROI:          projCLV - projCAC,
		Satisfaction: projSat,
	}
}

// ScenarioOutcome pairs a preset with its projection for the
// all-scenarios comparison table.
type ScenarioOutcome struct {
	Params    ScenarioParams
	Projected ProjectedMetrics
}

// CompareScenarios projects every preset against the same averages.
func CompareScenarios(cur CurrentAverages) []ScenarioOutcome {
	presets := Scenarios()
	out := make([]ScenarioOutcome, len(presets))
	for i, p := range presets {
		out[i] = ScenarioOutcome{Params: p, Projected: Project(cur, p)}
	}
	return out
}

// QuarterTarget is one interpolated milestone on the way from current to
// projected metrics.
type QuarterTarget struct {
	Quarter  int
	Progress float64
	CAC      float64
	CLV      float64
}

// QuarterlyTargets interpolates CAC and CLV linearly across the scenario
// horizon, one milestone per quarter. A horizon shorter than a quarter
// yields a single end-state milestone.
func QuarterlyTargets(cur CurrentAverages, proj ProjectedMetrics, horizonMonths int) []QuarterTarget {
	quarters := horizonMonths / 3
	if quarters < 1 {
		quarters = 1
	}
	out := make([]QuarterTarget, quarters)
	for i := 1; i <= quarters; i++ {
		progress := float64(i) / float64(quarters)
		out[i-1] = QuarterTarget{
			Quarter:  i,
			Progress: progress,
			CAC:      cur.CAC - (cur.CAC-proj.CAC)*progress,
			CLV:      cur.CLV + (proj.CLV-cur.CLV)*progress,
		}
	}
	return out
}

// AnnualImpact models the revenue and acquisition-spend effect of a
// scenario over one year, assuming a flat monthly intake of new customers.
type AnnualImpact struct {
	CurrentRevenue    float64
	ProjectedRevenue  float64
	CurrentCACSpend   float64
	ProjectedCACSpend float64
	CurrentProfit     float64
	ProjectedProfit   float64
}

// ProjectAnnualImpact extrapolates dataset averages to annual figures.
// monthlyNewCustomers is an assumption supplied by the caller, not data.
func ProjectAnnualImpact(cur CurrentAverages, proj ProjectedMetrics, baseCustomers, monthlyNewCustomers int) AnnualImpact {
	annualCustomers := float64(baseCustomers + monthlyNewCustomers*12)
	newPerYear := float64(monthlyNewCustomers * 12)

	impact := AnnualImpact{
		CurrentRevenue:    float64(baseCustomers) * cur.CLV,
		ProjectedRevenue:  annualCustomers * proj.CLV,
		CurrentCACSpend:   newPerYear * cur.CAC,
		ProjectedCACSpend: newPerYear * proj.CAC,
	}
	impact.CurrentProfit = impact.CurrentRevenue - impact.CurrentCACSpend
	impact.ProjectedProfit = impact.ProjectedRevenue - impact.ProjectedCACSpend
	return impact
}
