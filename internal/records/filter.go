package records

import (
	"time"

	"github.com/verte-zerg/qc7/internal/model"
)

// Filter narrows a dataset. Empty lists and zero dates match everything;
// values are ORed within a list and ANDed across lists.
type Filter struct {
	Products  []string
	Processes []string
	Items     []string
	Causes    []string
	Since     *time.Time
	Until     *time.Time
}

// IsEmpty reports whether the filter matches every record.
func (f Filter) IsEmpty() bool {
	return len(f.Products) == 0 && len(f.Processes) == 0 && len(f.Items) == 0 &&
		len(f.Causes) == 0 && f.Since == nil && f.Until == nil
}

// Apply returns the records matching the filter, preserving order and schema.
func (f Filter) Apply(ds model.Dataset) model.Dataset {
	if f.IsEmpty() {
		return model.Dataset{Columns: ds.Columns, Records: append([]model.DefectRecord(nil), ds.Records...)}
	}
	products := toSet(f.Products)
	processes := toSet(f.Processes)
	items := toSet(f.Items)
	causes := toSet(f.Causes)

	out := make([]model.DefectRecord, 0, len(ds.Records))
	for _, rec := range ds.Records {
		if !matches(products, rec.Product) || !matches(processes, rec.Process) ||
			!matches(items, rec.DefectItem) || !matches(causes, rec.CauseCategory) {
			continue
		}
		if f.Since != nil && rec.Date.Before(*f.Since) {
			continue
		}
		if f.Until != nil && rec.Date.After(*f.Until) {
			continue
		}
		out = append(out, rec)
	}
	return model.Dataset{Columns: ds.Columns, Records: out}
}

func toSet(values []string) map[string]struct{} {
	if len(values) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}

func matches(set map[string]struct{}, value string) bool {
	if set == nil {
		return true
	}
	_, ok := set[value]
	return ok
}
