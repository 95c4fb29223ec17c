package stats

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/verte-zerg/qc7/internal/model"
	"github.com/verte-zerg/qc7/internal/qcerr"
	"github.com/verte-zerg/qc7/internal/records"
)

// ControlPoint is one day of the p-chart.
type ControlPoint struct {
	Date            string  `json:"date" yaml:"date"`
	Rate            float64 `json:"rate" yaml:"rate"`
	DefectCount     int     `json:"defect_count" yaml:"defect_count"`
	InspectionCount int     `json:"inspection_count" yaml:"inspection_count"`
	IsOutlier       bool    `json:"is_outlier" yaml:"is_outlier"`
}

// ControlResult is a p-chart over daily defect rates.
type ControlResult struct {
	Points         []ControlPoint `json:"points" yaml:"points"`
	Center         float64        `json:"center" yaml:"center"`
	MeanInspection float64        `json:"mean_inspection" yaml:"mean_inspection"`
	Sigma          float64        `json:"sigma" yaml:"sigma"`
	UCL            float64        `json:"ucl" yaml:"ucl"`
	LCL            float64        `json:"lcl" yaml:"lcl"`
	Outliers       []ControlPoint `json:"outliers" yaml:"outliers"`
}

// Rates returns the daily rates in date order.
func (c ControlResult) Rates() []float64 {
	out := make([]float64, len(c.Points))
	for i, p := range c.Points {
		out[i] = p.Rate
	}
	return out
}

// Stable reports whether no day fell outside the control limits.
func (c ControlResult) Stable() bool {
	return len(c.Outliers) == 0
}

// ControlChart aggregates records per date and derives p-chart limits
// center ± sigma·sqrt(p̄(100−p̄)/n̄), with the lower limit clamped at zero.
func ControlChart(ds model.Dataset, sigma float64) (ControlResult, error) {
	if sigma <= 0 {
		sigma = DefaultSigma
	}
	if err := records.Require(ds, "control chart", model.FieldDate); err != nil {
		return ControlResult{}, err
	}
	agg, err := Aggregate(ds, model.ByDate, model.MeasureDefectCount, model.MeasureInspectionCount)
	if err != nil {
		return ControlResult{}, err
	}
	days := agg.Chronological()
	if len(days) == 0 {
		return ControlResult{}, qcerr.New(qcerr.EmptyDataset, "control chart", model.FieldDate.String(), "no date groups")
	}

	points := make([]ControlPoint, len(days))
	rates := make([]float64, len(days))
	inspections := make([]float64, len(days))
	for i, g := range days {
		points[i] = ControlPoint{
			Date:            g.Key,
			Rate:            g.Rate(),
			DefectCount:     g.DefectCount,
			InspectionCount: g.InspectionCount,
		}
		rates[i] = points[i].Rate
		inspections[i] = float64(g.InspectionCount)
	}

	pBar := stat.Mean(rates, nil)
	nBar := stat.Mean(inspections, nil)
	variance := pBar * (100 - pBar)
	if variance < 0 || nBar <= 0 {
		variance = 0
	}
	spread := 0.0
	if nBar > 0 {
		spread = sigma * math.Sqrt(variance/nBar)
	}

	result := ControlResult{
		Center:         pBar,
		MeanInspection: nBar,
		Sigma:          sigma,
		UCL:            pBar + spread,
		LCL:            math.Max(0, pBar-spread),
	}
	for i := range points {
		if points[i].Rate > result.UCL || points[i].Rate < result.LCL {
			points[i].IsOutlier = true
			result.Outliers = append(result.Outliers, points[i])
		}
	}
	result.Points = points
	return result, nil
}
