package stats

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/verte-zerg/qc7/internal/model"
	"github.com/verte-zerg/qc7/internal/qcerr"
	"github.com/verte-zerg/qc7/internal/records"
)

// Bin is one equal-width histogram bin; Upper is exclusive except for the last bin.
type Bin struct {
	Lower float64 `json:"lower" yaml:"lower"`
	Upper float64 `json:"upper" yaml:"upper"`
	Count int     `json:"count" yaml:"count"`
}

// DistributionResult describes per-record defect rates. MeanBin is the
// index of the bin holding the mean.
type DistributionResult struct {
	Rates   []float64 `json:"rates" yaml:"rates"`
	Mean    float64   `json:"mean" yaml:"mean"`
	StdDev  float64   `json:"std_dev" yaml:"std_dev"`
	Min     float64   `json:"min" yaml:"min"`
	Max     float64   `json:"max" yaml:"max"`
	Bins    []Bin     `json:"bins" yaml:"bins"`
	MeanBin int       `json:"mean_bin" yaml:"mean_bin"`
}

// Distribution computes per-record rates, their summary statistics and an
// equal-width histogram with the given number of bins.
func Distribution(ds model.Dataset, bins int) (DistributionResult, error) {
	if err := records.Require(ds, "distribution", model.FieldDefectCount, model.FieldInspectionCount); err != nil {
		return DistributionResult{}, err
	}
	if ds.Len() == 0 {
		return DistributionResult{}, qcerr.New(qcerr.EmptyDataset, "distribution", "", "no records")
	}
	if bins <= 0 {
		bins = DefaultBins
	}

	rates := RecordRates(ds)
	sorted := make([]float64, len(rates))
	copy(sorted, rates)
	sort.Float64s(sorted)

	mean := stat.Mean(sorted, nil)
	std := 0.0
	if len(sorted) > 1 {
		std = stat.StdDev(sorted, nil)
	}
	lo, hi := floats.Min(sorted), floats.Max(sorted)

	result := DistributionResult{
		Rates:  rates,
		Mean:   Round(mean, 2),
		StdDev: Round(std, 2),
		Min:    Round(lo, 2),
		Max:    Round(hi, 2),
		Bins:   histogram(sorted, lo, hi, bins),
	}
	result.MeanBin = binIndex(result.Bins, mean)
	return result, nil
}

// RecordRates returns each record's defect rate rounded to 2 decimals, in record order.
func RecordRates(ds model.Dataset) []float64 {
	rates := make([]float64, len(ds.Records))
	for i, rec := range ds.Records {
		rates[i] = Round(rec.Rate(), 2)
	}
	return rates
}

func histogram(sorted []float64, lo, hi float64, bins int) []Bin {
	if hi-lo == 0 {
		lo -= 0.5
		hi += 0.5
	}
	dividers := make([]float64, bins+1)
	floats.Span(dividers, lo, hi)
	// The final divider must exceed the maximum so it lands in the last bin.
	dividers[bins] = math.Nextafter(hi, math.Inf(1))
	counts := stat.Histogram(nil, dividers, sorted, nil)

	out := make([]Bin, bins)
	for i := range out {
		upper := dividers[i+1]
		if i == bins-1 {
			upper = hi
		}
		out[i] = Bin{Lower: dividers[i], Upper: upper, Count: int(counts[i])}
	}
	return out
}

func binIndex(bins []Bin, v float64) int {
	for i, b := range bins {
		if v < b.Upper || i == len(bins)-1 {
			return i
		}
	}
	return 0
}
