package metrics

// Funnel buckets customers by order count. Stage boundaries are fixed:
// active is ≥1 order, engaged is 2–3 orders inclusive, loyal is ≥4.
// Engaged and loyal are both subsets of active, so
// Engaged+Loyal ≤ Active always holds.
type Funnel struct {
	Registered int
	Active     int
	Engaged    int
	Loyal      int
}

// ClassifyFunnel counts rows per engagement stage.
func ClassifyFunnel(rows []Row) Funnel {
	f := Funnel{Registered: len(rows)}
	for _, r := range rows {
		switch {
		case r.OrderFrequency >= 4:
			f.Active++
			f.Loyal++
		case r.OrderFrequency >= 2:
			f.Active++
			f.Engaged++
		case r.OrderFrequency >= 1:
			f.Active++
		}
	}
	return f
}

// DropOff is the fraction of customers lost between two adjacent stages.
// It is 0 when the upper stage is empty so the value never renders as NaN.
func DropOff(upper, lower int) float64 {
	if upper == 0 {
		return 0
	}
	return float64(upper-lower) / float64(upper)
}

// ConversionRate is the fraction of the upper stage reaching the lower
// one, 0 when the upper stage is empty.
func ConversionRate(upper, lower int) float64 {
	if upper == 0 {
		return 0
	}
	return float64(lower) / float64(upper)
}

// FunnelBySegment computes a funnel per customer segment for the
// stage-by-segment comparison chart.
func FunnelBySegment(rows []Row) map[string]Funnel {
	bySegment := map[string][]Row{}
	for _, r := range rows {
		bySegment[r.Segment] = append(bySegment[r.Segment], r)
	}
	out := make(map[string]Funnel, len(bySegment))
	for segment, segRows := range bySegment {
		out[segment] = ClassifyFunnel(segRows)
	}
	return out
}
