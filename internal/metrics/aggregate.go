package metrics

import (
	"fmt"
	"math"
	"sort"
)

// GroupKey selects the column rows are partitioned by.
type GroupKey string

const (
	BySegment GroupKey = "segment"
	ByCity    GroupKey = "city"
	ByZone    GroupKey = "zone"
)

// IsValid returns true for a known group key.
func (k GroupKey) IsValid() bool {
	switch k {
	case BySegment, ByCity, ByZone:
		return true
	default:
		return false
	}
}

func (k GroupKey) valueOf(r Row) string {
	switch k {
	case ByCity:
		return r.City
	case ByZone:
		return r.Zone
	default:
		return r.Segment
	}
}

// GroupStats holds the per-group means over derived metrics. Monetary means
// are in cents. MeanReturnRate averages only rows whose return rate is
// defined; Count still reflects every row in the group.
type GroupStats struct {
	MeanCLV          float64
	MeanCAC          float64
	MeanROI          float64
	MeanROIRatio     float64
	MeanAOV          float64
	MeanFrequency    float64
	MeanSatisfaction float64
	MeanReturnRate   float64
	Count            int
}

// AggregateBy partitions rows by exact key equality and returns per-group
// means. Groups with zero members are never emitted. The mapping is
// unordered; SortGroups applies a consumer-requested order.
func AggregateBy(rows []Row, key GroupKey) (map[string]GroupStats, error) {
	if !key.IsValid() {
		return nil, fmt.Errorf("unknown group key %q", key)
	}

	type acc struct {
		clv, cac, roi, ratio, aov, freq, sat float64
		returnRate                           float64
		returnRateN                          int
		n                                    int
	}
	accs := map[string]*acc{}

	for _, r := range rows {
		group := key.valueOf(r)
		a, ok := accs[group]
		if !ok {
			a = &acc{}
			accs[group] = a
		}
		a.clv += float64(r.CLV.Cents)
		a.cac += float64(r.CAC.Cents)
		a.roi += float64(r.ROI.Cents)
		a.ratio += r.ROIRatio
		a.aov += float64(r.AvgOrderValue.Cents)
		a.freq += float64(r.OrderFrequency)
		a.sat += r.SatisfactionScore
		if !math.IsNaN(r.ReturnRate) {
			a.returnRate += r.ReturnRate
			a.returnRateN++
		}
		a.n++
	}

	out := make(map[string]GroupStats, len(accs))
	for group, a := range accs {
		n := float64(a.n)
		stats := GroupStats{
			MeanCLV:          a.clv / n,
			MeanCAC:          a.cac / n,
			MeanROI:          a.roi / n,
			MeanROIRatio:     a.ratio / n,
			MeanAOV:          a.aov / n,
			MeanFrequency:    a.freq / n,
			MeanSatisfaction: a.sat / n,
			Count:            a.n,
		}
		// Mean over the defined rows only, 0 when none are defined, so
		// NaN never reaches a rendered view model.
		if a.returnRateN > 0 {
			stats.MeanReturnRate = a.returnRate / float64(a.returnRateN)
		}
		out[group] = stats
	}
	return out, nil
}

// Group pairs a group name with its stats for ordered rendering.
type Group struct {
	Name string
	GroupStats
}

// SortOrder selects how SortGroups orders groups.
type SortOrder string

const (
	OrderByROIDesc SortOrder = "roi"
	OrderByName    SortOrder = "name"
)

// SortGroups flattens the aggregation map into the requested order:
// descending mean ROI or ascending group name.
func SortGroups(stats map[string]GroupStats, order SortOrder) []Group {
	groups := make([]Group, 0, len(stats))
	for name, s := range stats {
		groups = append(groups, Group{Name: name, GroupStats: s})
	}
	switch order {
	case OrderByName:
		sort.Slice(groups, func(i, j int) bool { return groups[i].Name < groups[j].Name })
	default:
		sort.Slice(groups, func(i, j int) bool {
			if groups[i].MeanROI != groups[j].MeanROI {
				return groups[i].MeanROI > groups[j].MeanROI
			}
			return groups[i].Name < groups[j].Name
		})
	}
	return groups
}

// BestGroup returns the group with the highest mean ROI. Ties break by
// first occurrence in row order, which is deterministic for a stable
// input table.
func BestGroup(rows []Row, key GroupKey, stats map[string]GroupStats) string {
	return pickGroup(rows, key, stats, func(candidate, current float64) bool {
		return candidate > current
	})
}

// WorstGroup returns the group with the lowest mean ROI, ties broken by
// first occurrence.
func WorstGroup(rows []Row, key GroupKey, stats map[string]GroupStats) string {
	return pickGroup(rows, key, stats, func(candidate, current float64) bool {
		return candidate < current
	})
}

func pickGroup(rows []Row, key GroupKey, stats map[string]GroupStats, better func(candidate, current float64) bool) string {
	best := ""
	seen := map[string]bool{}
	for _, r := range rows {
		group := key.valueOf(r)
		if seen[group] {
			continue
		}
		seen[group] = true
		s, ok := stats[group]
		if !ok {
			continue
		}
		if best == "" || better(s.MeanROI, stats[best].MeanROI) {
			best = group
		}
	}
	return best
}

// CurrentAverages holds dataset-wide means, the input to scenario
// projection. Monetary fields are in cents.
type CurrentAverages struct {
	CAC          float64
	CLV          float64
	AOV          float64
	Frequency    float64
	Satisfaction float64
	ROI          float64
}

// Averages computes dataset-wide means over every derived row.
func Averages(rows []Row) CurrentAverages {
	if len(rows) == 0 {
		return CurrentAverages{}
	}
	var avg CurrentAverages
	for _, r := range rows {
		avg.CAC += float64(r.CAC.Cents)
		avg.CLV += float64(r.CLV.Cents)
		avg.AOV += float64(r.AvgOrderValue.Cents)
		avg.Frequency += float64(r.OrderFrequency)
		avg.Satisfaction += r.SatisfactionScore
		avg.ROI += float64(r.ROI.Cents)
	}
	n := float64(len(rows))
	avg.CAC /= n
	avg.CLV /= n
	avg.AOV /= n
	avg.Frequency /= n
	avg.Satisfaction /= n
	avg.ROI /= n
	return avg
}

// MeanReturnRate averages the return rate over rows where it is defined,
// skipping zero-frequency customers entirely rather than propagating NaN.
func MeanReturnRate(rows []Row) float64 {
	var sum float64
	var n int
	for _, r := range rows {
		if math.IsNaN(r.ReturnRate) {
			continue
		}
		sum += r.ReturnRate
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// Distribution counts rows per value of the given key, e.g. customers per
// city for the exploration section.
func Distribution(rows []Row, key GroupKey) map[string]int {
	out := map[string]int{}
	for _, r := range rows {
		out[key.valueOf(r)]++
	}
	return out
}
