package stats

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/verte-zerg/qc7/internal/model"
	"github.com/verte-zerg/qc7/internal/qcerr"
)

// Direction classifies the movement of a rate series.
type Direction uint8

const (
	Flat Direction = iota
	Improving
	Worsening
)

func (d Direction) String() string {
	switch d {
	case Improving:
		return "improving"
	case Worsening:
		return "worsening"
	default:
		return "flat"
	}
}

// TrendResult summarizes a daily rate series.
type TrendResult struct {
	Dates     []string  `json:"dates" yaml:"dates"`
	Rates     []float64 `json:"rates" yaml:"rates"`
	First     float64   `json:"first" yaml:"first"`
	Last      float64   `json:"last" yaml:"last"`
	Change    float64   `json:"change" yaml:"change"`
	Min       float64   `json:"min" yaml:"min"`
	Max       float64   `json:"max" yaml:"max"`
	Mean      float64   `json:"mean" yaml:"mean"`
	Direction Direction `json:"direction" yaml:"direction"`
}

// Trend summarizes the daily defect rate series of the dataset.
func Trend(ds model.Dataset) (TrendResult, error) {
	agg, err := Aggregate(ds, model.ByDate, model.MeasureDefectCount, model.MeasureInspectionCount)
	if err != nil {
		return TrendResult{}, err
	}
	days := agg.Chronological()
	if len(days) == 0 {
		return TrendResult{}, qcerr.New(qcerr.EmptyDataset, "trend", model.FieldDate.String(), "no date groups")
	}
	dates := make([]string, len(days))
	rates := make([]float64, len(days))
	for i, g := range days {
		dates[i] = g.Key
		rates[i] = g.Rate()
	}
	result := TrendOf(rates)
	result.Dates = dates
	return result, nil
}

// TrendOf summarizes an ordered series; lower is better.
func TrendOf(rates []float64) TrendResult {
	if len(rates) == 0 {
		return TrendResult{}
	}
	first, last := rates[0], rates[len(rates)-1]
	result := TrendResult{
		Rates:  append([]float64(nil), rates...),
		First:  first,
		Last:   last,
		Change: Round(last-first, 2),
		Min:    floats.Min(rates),
		Max:    floats.Max(rates),
		Mean:   Round(stat.Mean(rates, nil), 2),
	}
	switch {
	case result.Change < 0:
		result.Direction = Improving
	case result.Change > 0:
		result.Direction = Worsening
	}
	return result
}
