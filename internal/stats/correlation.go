package stats

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/stat"

	"github.com/verte-zerg/qc7/internal/model"
	"github.com/verte-zerg/qc7/internal/qcerr"
	"github.com/verte-zerg/qc7/internal/records"
)

// Variable is a per-record numeric series usable in a scatter analysis.
type Variable uint8

const (
	VarInspectionCount Variable = iota
	VarDefectCount
	VarDefectRate
)

var variableNames = [...]string{
	VarInspectionCount: "inspection_count",
	VarDefectCount:     "defect_count",
	VarDefectRate:      "defect_rate",
}

func (v Variable) String() string {
	if int(v) < len(variableNames) {
		return variableNames[v]
	}
	return "unknown"
}

// ParseVariable resolves a variable name.
func ParseVariable(name string) (Variable, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	switch name {
	case "inspection_count", "inspected", "inspection":
		return VarInspectionCount, nil
	case "defect_count", "defects", "defect":
		return VarDefectCount, nil
	case "defect_rate", "rate":
		return VarDefectRate, nil
	}
	return 0, fmt.Errorf("unknown variable %q (expected inspection_count, defect_count or defect_rate)", name)
}

// Values extracts the variable from every record.
func (v Variable) Values(ds model.Dataset) []float64 {
	out := make([]float64, len(ds.Records))
	for i, rec := range ds.Records {
		switch v {
		case VarInspectionCount:
			out[i] = float64(rec.InspectionCount)
		case VarDefectCount:
			out[i] = float64(rec.DefectCount)
		default:
			out[i] = Round(rec.Rate(), 2)
		}
	}
	return out
}

// Strength is the qualitative label for |r|.
type Strength uint8

const (
	Weak Strength = iota
	Moderate
	Strong
)

func (s Strength) String() string {
	switch s {
	case Strong:
		return "strong"
	case Moderate:
		return "moderate"
	default:
		return "weak"
	}
}

// StrengthOf labels a correlation coefficient: strong above 0.7, moderate above 0.3.
func StrengthOf(r float64) Strength {
	a := math.Abs(r)
	switch {
	case a > 0.7:
		return Strong
	case a > 0.3:
		return Moderate
	default:
		return Weak
	}
}

// CorrelationResult is a Pearson coefficient between two record variables.
type CorrelationResult struct {
	X           Variable     `json:"x" yaml:"x"`
	Y           Variable     `json:"y" yaml:"y"`
	Coefficient float64      `json:"coefficient" yaml:"coefficient"`
	Strength    Strength     `json:"strength" yaml:"strength"`
	Points      [][2]float64 `json:"points" yaml:"points"`
}

// Correlation computes Pearson r between x and y across records, rounded to 3 decimals.
func Correlation(ds model.Dataset, x, y Variable) (CorrelationResult, error) {
	if err := records.Require(ds, "correlation", model.FieldDefectCount, model.FieldInspectionCount); err != nil {
		return CorrelationResult{}, err
	}
	if ds.Len() < 2 {
		return CorrelationResult{}, qcerr.New(qcerr.InsufficientVariance, "correlation", "", "at least two records are required")
	}
	xs := x.Values(ds)
	ys := y.Values(ds)
	if constant(xs) {
		return CorrelationResult{}, qcerr.New(qcerr.InsufficientVariance, "correlation", x.String(), "series is constant")
	}
	if constant(ys) {
		return CorrelationResult{}, qcerr.New(qcerr.InsufficientVariance, "correlation", y.String(), "series is constant")
	}
	r := stat.Correlation(xs, ys, nil)
	points := make([][2]float64, len(xs))
	for i := range xs {
		points[i] = [2]float64{xs[i], ys[i]}
	}
	return CorrelationResult{
		X:           x,
		Y:           y,
		Coefficient: Round(r, 3),
		Strength:    StrengthOf(r),
		Points:      points,
	}, nil
}

func constant(values []float64) bool {
	for _, v := range values[1:] {
		if v != values[0] {
			return false
		}
	}
	return true
}
