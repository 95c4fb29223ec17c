// Package stats contains the QC seven tools calculations and their text rendering.
package stats

import (
	"math"
	"strings"

	"github.com/verte-zerg/qc7/internal/model"
	"github.com/verte-zerg/qc7/internal/qcerr"
	"github.com/verte-zerg/qc7/internal/records"
)

const sparkChars = " .:-=+*#%@"

const (
	// DefaultBins is the histogram bin count.
	DefaultBins = 20
	// DefaultSigma is the control limit multiplier.
	DefaultSigma = 3.0
	// DefaultVitalFewThreshold is the cumulative percentage bounding the vital few.
	DefaultVitalFewThreshold = 80.0
)

// Options tunes the analyses that have configurable parameters.
type Options struct {
	Bins              int
	Sigma             float64
	VitalFewThreshold float64
	Rules             Rules
}

// DefaultOptions returns the stock parameters with the embedded keyword rules.
func DefaultOptions() Options {
	return Options{
		Bins:              DefaultBins,
		Sigma:             DefaultSigma,
		VitalFewThreshold: DefaultVitalFewThreshold,
		Rules:             DefaultRules(),
	}
}

func (o Options) normalized() Options {
	if o.Bins <= 0 {
		o.Bins = DefaultBins
	}
	if o.Sigma <= 0 {
		o.Sigma = DefaultSigma
	}
	if o.VitalFewThreshold <= 0 || o.VitalFewThreshold > 100 {
		o.VitalFewThreshold = DefaultVitalFewThreshold
	}
	if o.Rules.IsZero() {
		o.Rules = DefaultRules()
	}
	return o
}

// Overview holds dataset-wide totals.
type Overview struct {
	Records         int     `json:"records" yaml:"records"`
	DefectCount     int     `json:"defect_count" yaml:"defect_count"`
	InspectionCount int     `json:"inspection_count" yaml:"inspection_count"`
	Rate            float64 `json:"rate" yaml:"rate"`
	Items           int     `json:"items" yaml:"items"`
	Products        int     `json:"products" yaml:"products"`
	Processes       int     `json:"processes" yaml:"processes"`
	Days            int     `json:"days" yaml:"days"`
}

// Summarize computes totals over the dataset.
func Summarize(ds model.Dataset) (Overview, error) {
	if err := records.Require(ds, "summary", model.FieldDefectCount, model.FieldInspectionCount); err != nil {
		return Overview{}, err
	}
	if ds.Len() == 0 {
		return Overview{}, qcerr.New(qcerr.EmptyDataset, "summary", "", "no records")
	}
	ov := Overview{Records: ds.Len()}
	items := map[string]struct{}{}
	products := map[string]struct{}{}
	processes := map[string]struct{}{}
	days := map[string]struct{}{}
	for _, rec := range ds.Records {
		ov.DefectCount += rec.DefectCount
		ov.InspectionCount += rec.InspectionCount
		if ds.Columns.Has(model.FieldDefectItem) {
			items[rec.DefectItem] = struct{}{}
		}
		if ds.Columns.Has(model.FieldProduct) {
			products[rec.Product] = struct{}{}
		}
		if ds.Columns.Has(model.FieldProcess) {
			processes[rec.Process] = struct{}{}
		}
		if ds.Columns.Has(model.FieldDate) {
			days[rec.DateKey()] = struct{}{}
		}
	}
	ov.Rate = percent(ov.DefectCount, ov.InspectionCount, 2)
	ov.Items = len(items)
	ov.Products = len(products)
	ov.Processes = len(processes)
	ov.Days = len(days)
	return ov, nil
}

// MovingAverage computes a rolling mean over the provided window size.
func MovingAverage(values []float64, window int) []float64 {
	if window <= 1 || len(values) == 0 {
		out := make([]float64, len(values))
		copy(out, values)
		return out
	}
	out := make([]float64, len(values))
	var sum float64
	for i := 0; i < len(values); i++ {
		sum += values[i]
		if i >= window {
			sum -= values[i-window]
		}
		den := float64(i + 1)
		if i >= window {
			den = float64(window)
		}
		out[i] = sum / den
	}
	return out
}

// Sparkline renders a single-line ASCII sparkline for the values.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	minVal := values[0]
	maxVal := values[0]
	for _, v := range values[1:] {
		if v < minVal {
			minVal = v
		}
		if v > maxVal {
			maxVal = v
		}
	}
	if math.Abs(maxVal-minVal) < 1e-9 {
		return strings.Repeat(string(sparkChars[len(sparkChars)/2]), len(values))
	}
	var b strings.Builder
	for _, v := range values {
		pos := (v - minVal) / (maxVal - minVal)
		idx := int(math.Round(pos * float64(len(sparkChars)-1)))
		if idx < 0 {
			idx = 0
		}
		if idx >= len(sparkChars) {
			idx = len(sparkChars) - 1
		}
		b.WriteByte(sparkChars[idx])
	}
	return b.String()
}

// Round rounds half away from zero to the given number of decimals.
func Round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

func percent(part, whole int, places int) float64 {
	if whole == 0 {
		return 0
	}
	return Round(float64(part)/float64(whole)*100, places)
}
