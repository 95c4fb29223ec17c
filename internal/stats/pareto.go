package stats

import (
	"github.com/verte-zerg/qc7/internal/model"
	"github.com/verte-zerg/qc7/internal/qcerr"
)

// ParetoItem is one ranked contributor.
type ParetoItem struct {
	Item            string  `json:"item" yaml:"item"`
	DefectCount     int     `json:"defect_count" yaml:"defect_count"`
	Cumulative      int     `json:"cumulative" yaml:"cumulative"`
	Share           float64 `json:"share" yaml:"share"`
	CumulativeRatio float64 `json:"cumulative_ratio" yaml:"cumulative_ratio"`
}

// ParetoResult is the ranked defect items with the vital few prefix.
type ParetoResult struct {
	Items     []ParetoItem `json:"items" yaml:"items"`
	Total     int          `json:"total" yaml:"total"`
	Threshold float64      `json:"threshold" yaml:"threshold"`
	VitalFew  []ParetoItem `json:"vital_few" yaml:"vital_few"`
}

// Pareto ranks defect items by defect count and marks the vital few: the
// longest prefix whose cumulative ratio stays at or below threshold percent.
func Pareto(ds model.Dataset, threshold float64) (ParetoResult, error) {
	if threshold <= 0 || threshold > 100 {
		threshold = DefaultVitalFewThreshold
	}
	agg, err := Aggregate(ds, model.ByDefectItem, model.MeasureDefectCount)
	if err != nil {
		return ParetoResult{}, err
	}
	total := agg.Total().DefectCount
	if total == 0 {
		return ParetoResult{}, qcerr.New(qcerr.EmptyDataset, "pareto", model.FieldDefectCount.String(), "total defect count is zero")
	}

	result := ParetoResult{
		Items:     make([]ParetoItem, 0, len(agg.Groups)),
		Total:     total,
		Threshold: threshold,
	}
	running := 0
	vital := true
	for _, g := range agg.Groups {
		running += g.DefectCount
		item := ParetoItem{
			Item:            g.Key,
			DefectCount:     g.DefectCount,
			Cumulative:      running,
			Share:           percent(g.DefectCount, total, 1),
			CumulativeRatio: percent(running, total, 1),
		}
		result.Items = append(result.Items, item)
		if vital && item.CumulativeRatio <= threshold {
			result.VitalFew = append(result.VitalFew, item)
		} else {
			vital = false
		}
	}
	return result, nil
}
