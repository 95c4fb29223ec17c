package stats

import (
	"sort"

	"github.com/verte-zerg/qc7/internal/model"
	"github.com/verte-zerg/qc7/internal/qcerr"
	"github.com/verte-zerg/qc7/internal/records"
)

// TopCauseCount is the number of causes listed per checklist entry.
const TopCauseCount = 3

// CauseTally counts the rows naming a cause.
type CauseTally struct {
	Cause       string `json:"cause" yaml:"cause"`
	Occurrences int    `json:"occurrences" yaml:"occurrences"`
}

// ChecklistEntry tallies one defect item.
type ChecklistEntry struct {
	Item        string       `json:"item" yaml:"item"`
	Occurrences int          `json:"occurrences" yaml:"occurrences"`
	DefectCount int          `json:"defect_count" yaml:"defect_count"`
	TopCauses   []CauseTally `json:"top_causes" yaml:"top_causes"`
}

// Checklist tallies every defect item in order of first appearance. Top
// causes are counted by rows and left empty when the cause column is absent.
func Checklist(ds model.Dataset) ([]ChecklistEntry, error) {
	if err := records.Require(ds, "checklist", model.FieldDefectItem, model.FieldDefectCount); err != nil {
		return nil, err
	}
	if ds.Len() == 0 {
		return nil, qcerr.New(qcerr.EmptyDataset, "checklist", "", "no records")
	}
	withCauses := ds.Columns.Has(model.FieldCauseCategory)

	index := map[string]int{}
	entries := make([]ChecklistEntry, 0)
	causes := make([][]CauseTally, 0)
	for _, rec := range ds.Records {
		i, ok := index[rec.DefectItem]
		if !ok {
			i = len(entries)
			index[rec.DefectItem] = i
			entries = append(entries, ChecklistEntry{Item: rec.DefectItem})
			causes = append(causes, nil)
		}
		entries[i].Occurrences++
		entries[i].DefectCount += rec.DefectCount
		if withCauses {
			causes[i] = tally(causes[i], rec.CauseCategory)
		}
	}
	for i := range entries {
		c := causes[i]
		sort.SliceStable(c, func(a, b int) bool {
			return c[a].Occurrences > c[b].Occurrences
		})
		if len(c) > TopCauseCount {
			c = c[:TopCauseCount]
		}
		entries[i].TopCauses = c
	}
	return entries, nil
}

func tally(counts []CauseTally, cause string) []CauseTally {
	for i := range counts {
		if counts[i].Cause == cause {
			counts[i].Occurrences++
			return counts
		}
	}
	return append(counts, CauseTally{Cause: cause, Occurrences: 1})
}
