package stats

import (
	"sort"

	"github.com/verte-zerg/qc7/internal/model"
	"github.com/verte-zerg/qc7/internal/records"
)

// Group is one grouping key with its summed measures.
type Group struct {
	Key             string `json:"key" yaml:"key"`
	DefectCount     int    `json:"defect_count" yaml:"defect_count"`
	InspectionCount int    `json:"inspection_count" yaml:"inspection_count"`
	Occurrences     int    `json:"occurrences" yaml:"occurrences"`
}

// Rate returns the group defect rate in percent, rounded to 2 decimals.
func (g Group) Rate() float64 {
	return percent(g.DefectCount, g.InspectionCount, 2)
}

func (g Group) measure(m model.Measure) int {
	if m == model.MeasureInspectionCount {
		return g.InspectionCount
	}
	return g.DefectCount
}

// Aggregation is a dataset grouped by one dimension.
type Aggregation struct {
	Dimension model.Dimension `json:"dimension" yaml:"dimension"`
	Groups    []Group         `json:"groups" yaml:"groups"`
}

// Aggregate groups records by exact key match and sums the requested measures.
// Groups are ordered descending by the first measure, ties kept in first-seen order.
func Aggregate(ds model.Dataset, dim model.Dimension, measures ...model.Measure) (Aggregation, error) {
	if len(measures) == 0 {
		measures = []model.Measure{model.MeasureDefectCount}
	}
	required := []model.Field{dim.Field()}
	for _, m := range measures {
		required = append(required, m.Field())
	}
	if err := records.Require(ds, "aggregate "+dim.String(), required...); err != nil {
		return Aggregation{}, err
	}

	index := map[string]int{}
	groups := make([]Group, 0)
	for _, rec := range ds.Records {
		key := dim.Key(rec)
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, Group{Key: key})
		}
		groups[i].DefectCount += rec.DefectCount
		groups[i].InspectionCount += rec.InspectionCount
		groups[i].Occurrences++
	}

	primary := measures[0]
	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].measure(primary) > groups[j].measure(primary)
	})
	return Aggregation{Dimension: dim, Groups: groups}, nil
}

// Chronological returns the groups ordered by key ascending.
func (a Aggregation) Chronological() []Group {
	out := make([]Group, len(a.Groups))
	copy(out, a.Groups)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Key < out[j].Key
	})
	return out
}

// Keys returns the group keys in order.
func (a Aggregation) Keys() []string {
	keys := make([]string, len(a.Groups))
	for i, g := range a.Groups {
		keys[i] = g.Key
	}
	return keys
}

// Total returns the summed measures across all groups.
func (a Aggregation) Total() Group {
	var total Group
	for _, g := range a.Groups {
		total.DefectCount += g.DefectCount
		total.InspectionCount += g.InspectionCount
		total.Occurrences += g.Occurrences
	}
	return total
}

// Lookup returns the group with the given key.
func (a Aggregation) Lookup(key string) (Group, bool) {
	for _, g := range a.Groups {
		if g.Key == key {
			return g, true
		}
	}
	return Group{}, false
}
