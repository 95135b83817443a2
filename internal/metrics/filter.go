package metrics

// Filter narrows rows by exact match on city, segment and zone. Empty
// fields match everything, so the zero Filter is a no-op.
type Filter struct {
	City    string
	Segment string
	Zone    string
}

// IsZero reports whether the filter matches every row.
func (f Filter) IsZero() bool {
	return f.City == "" && f.Segment == "" && f.Zone == ""
}

// Apply returns the rows matching the filter. The input slice is never
// mutated; a zero filter returns it unchanged.
func (f Filter) Apply(rows []Row) []Row {
	if f.IsZero() {
		return rows
	}
	out := make([]Row, 0, len(rows))
	for _, r := range rows {
		if f.City != "" && r.City != f.City {
			continue
		}
		if f.Segment != "" && r.Segment != f.Segment {
			continue
		}
		if f.Zone != "" && r.Zone != f.Zone {
			continue
		}
		out = append(out, r)
	}
	return out
}
