package stats

import (
	"github.com/verte-zerg/qc7/internal/model"
	"github.com/verte-zerg/qc7/internal/qcerr"
	"github.com/verte-zerg/qc7/internal/records"
)

// Metric names the value a comparison reports per group.
type Metric uint8

const (
	MetricRate Metric = iota
	MetricShare
)

func (m Metric) String() string {
	if m == MetricShare {
		return "share"
	}
	return "rate"
}

// ComparisonRow is one compared group.
type ComparisonRow struct {
	Key             string  `json:"key" yaml:"key"`
	DefectCount     int     `json:"defect_count" yaml:"defect_count"`
	InspectionCount int     `json:"inspection_count" yaml:"inspection_count"`
	Value           float64 `json:"value" yaml:"value"`
	Smoothed        float64 `json:"smoothed" yaml:"smoothed"`
}

// ComparisonResult compares groups of one dimension.
type ComparisonResult struct {
	Dimension model.Dimension `json:"dimension" yaml:"dimension"`
	Metric    Metric          `json:"metric" yaml:"metric"`
	Rows      []ComparisonRow `json:"rows" yaml:"rows"`
}

// Values returns the row values in order.
func (c ComparisonResult) Values() []float64 {
	out := make([]float64, len(c.Rows))
	for i, r := range c.Rows {
		out[i] = r.Value
	}
	return out
}

// SmoothedValues returns the smoothed row values in order.
func (c ComparisonResult) SmoothedValues() []float64 {
	out := make([]float64, len(c.Rows))
	for i, r := range c.Rows {
		out[i] = r.Smoothed
	}
	return out
}

// Compare reports per-group defect rates in key order, or for causes the
// share of all defects in descending order. A window above one smooths the
// date series with a moving average.
func Compare(ds model.Dataset, dim model.Dimension, window int) (ComparisonResult, error) {
	if dim == model.ByCause {
		return compareShares(ds)
	}
	agg, err := Aggregate(ds, dim, model.MeasureDefectCount, model.MeasureInspectionCount)
	if err != nil {
		return ComparisonResult{}, err
	}
	groups := agg.Chronological()
	if len(groups) == 0 {
		return ComparisonResult{}, qcerr.New(qcerr.EmptyDataset, "compare "+dim.String(), "", "no records")
	}
	result := ComparisonResult{Dimension: dim, Metric: MetricRate, Rows: make([]ComparisonRow, len(groups))}
	values := make([]float64, len(groups))
	for i, g := range groups {
		values[i] = g.Rate()
		result.Rows[i] = ComparisonRow{
			Key:             g.Key,
			DefectCount:     g.DefectCount,
			InspectionCount: g.InspectionCount,
			Value:           values[i],
		}
	}
	smoothed := values
	if dim == model.ByDate && window > 1 {
		smoothed = MovingAverage(values, window)
	}
	for i := range result.Rows {
		result.Rows[i].Smoothed = Round(smoothed[i], 2)
	}
	return result, nil
}

func compareShares(ds model.Dataset) (ComparisonResult, error) {
	if err := records.Require(ds, "compare cause", model.FieldCauseCategory, model.FieldDefectCount); err != nil {
		return ComparisonResult{}, err
	}
	agg, err := Aggregate(ds, model.ByCause, model.MeasureDefectCount)
	if err != nil {
		return ComparisonResult{}, err
	}
	total := agg.Total().DefectCount
	if total == 0 {
		return ComparisonResult{}, qcerr.New(qcerr.EmptyDataset, "compare cause", model.FieldDefectCount.String(), "total defect count is zero")
	}
	result := ComparisonResult{Dimension: model.ByCause, Metric: MetricShare, Rows: make([]ComparisonRow, len(agg.Groups))}
	for i, g := range agg.Groups {
		share := percent(g.DefectCount, total, 1)
		result.Rows[i] = ComparisonRow{
			Key:             g.Key,
			DefectCount:     g.DefectCount,
			InspectionCount: g.InspectionCount,
			Value:           share,
			Smoothed:        share,
		}
	}
	return result, nil
}
