// Package model defines shared data structures.
package model

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the canonical calendar-date format for records and group keys.
const DateLayout = "2006-01-02"

// DefectRecord captures one inspection-batch observation.
type DefectRecord struct {
	Date            time.Time
	Product         string
	DefectItem      string
	DefectCount     int
	InspectionCount int
	CauseCategory   string
	Process         string
	Remarks         string
}

// Rate returns the defect rate in percent. It is zero when nothing was inspected.
func (r DefectRecord) Rate() float64 {
	if r.InspectionCount <= 0 {
		return 0
	}
	return float64(r.DefectCount) / float64(r.InspectionCount) * 100
}

// DateKey returns the record date formatted as YYYY-MM-DD.
func (r DefectRecord) DateKey() string {
	return r.Date.Format(DateLayout)
}

// Field names one column of the record schema.
type Field uint8

const (
	FieldDate Field = iota
	FieldProduct
	FieldDefectItem
	FieldDefectCount
	FieldInspectionCount
	FieldCauseCategory
	FieldProcess
	FieldRemarks
	fieldCount
)

var fieldNames = [...]string{
	FieldDate:            "date",
	FieldProduct:         "product",
	FieldDefectItem:      "defect_item",
	FieldDefectCount:     "defect_count",
	FieldInspectionCount: "inspection_count",
	FieldCauseCategory:   "cause_category",
	FieldProcess:         "process",
	FieldRemarks:         "remarks",
}

// String returns the snake_case column name.
func (f Field) String() string {
	if int(f) < len(fieldNames) {
		return fieldNames[f]
	}
	return "unknown"
}

// Fields lists every schema field in column order.
func Fields() []Field {
	out := make([]Field, 0, fieldCount)
	for f := Field(0); f < fieldCount; f++ {
		out = append(out, f)
	}
	return out
}

// FieldSet is a bit set of the columns a record source supplied.
type FieldSet uint16

// AllFields contains every schema field.
const AllFields FieldSet = 1<<fieldCount - 1

// NewFieldSet builds a set from the given fields.
func NewFieldSet(fields ...Field) FieldSet {
	var s FieldSet
	for _, f := range fields {
		s = s.With(f)
	}
	return s
}

// With returns a copy of the set including f.
func (s FieldSet) With(f Field) FieldSet {
	return s | 1<<f
}

// Has reports whether f is in the set.
func (s FieldSet) Has(f Field) bool {
	return s&(1<<f) != 0
}

// Missing returns the first of the given fields absent from the set.
func (s FieldSet) Missing(fields ...Field) (Field, bool) {
	for _, f := range fields {
		if !s.Has(f) {
			return f, true
		}
	}
	return 0, false
}

// Dataset is an immutable snapshot of records and the columns they carry.
type Dataset struct {
	Columns FieldSet
	Records []DefectRecord
}

// NewDataset returns a dataset with every column present.
func NewDataset(records ...DefectRecord) Dataset {
	return Dataset{Columns: AllFields, Records: records}
}

// Len returns the number of records.
func (d Dataset) Len() int {
	return len(d.Records)
}

// Dimension is a supported grouping key.
type Dimension uint8

const (
	ByDefectItem Dimension = iota
	ByCause
	ByProcess
	ByProduct
	ByDate
)

var dimensionNames = [...]string{
	ByDefectItem: "defect_item",
	ByCause:      "cause",
	ByProcess:    "process",
	ByProduct:    "product",
	ByDate:       "date",
}

// String returns the dimension name used on the command line.
func (d Dimension) String() string {
	if int(d) < len(dimensionNames) {
		return dimensionNames[d]
	}
	return "unknown"
}

// MarshalText encodes the dimension by name.
func (d Dimension) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Field returns the record field the dimension groups on.
func (d Dimension) Field() Field {
	switch d {
	case ByCause:
		return FieldCauseCategory
	case ByProcess:
		return FieldProcess
	case ByProduct:
		return FieldProduct
	case ByDate:
		return FieldDate
	default:
		return FieldDefectItem
	}
}

// Key extracts the grouping value from a record.
func (d Dimension) Key(r DefectRecord) string {
	switch d {
	case ByCause:
		return r.CauseCategory
	case ByProcess:
		return r.Process
	case ByProduct:
		return r.Product
	case ByDate:
		return r.DateKey()
	default:
		return r.DefectItem
	}
}

// ParseDimension resolves a dimension from its name.
func ParseDimension(name string) (Dimension, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	switch name {
	case "item", "defect_item", "defect-item":
		return ByDefectItem, true
	case "cause", "cause_category", "cause-category":
		return ByCause, true
	case "process":
		return ByProcess, true
	case "product":
		return ByProduct, true
	case "date", "day":
		return ByDate, true
	}
	return 0, false
}

// Measure is a summable record field.
type Measure uint8

const (
	MeasureDefectCount Measure = iota
	MeasureInspectionCount
)

// Field returns the record field backing the measure.
func (m Measure) Field() Field {
	if m == MeasureInspectionCount {
		return FieldInspectionCount
	}
	return FieldDefectCount
}

// Metadata holds the free-text report header fields.
type Metadata struct {
	Company    string
	Department string
	Presenter  string
	Date       time.Time
	Period     string
	Target     string
}

// SectionKind identifies a selectable report section.
type SectionKind uint8

const (
	SectionSummary SectionKind = iota
	SectionPareto
	SectionCausalAnalysis
	SectionControlChart
	SectionTimeSeries
	SectionActionPlan
)

var sectionNames = [...]string{
	SectionSummary:        "summary",
	SectionPareto:         "pareto",
	SectionCausalAnalysis: "causal",
	SectionControlChart:   "control",
	SectionTimeSeries:     "timeseries",
	SectionActionPlan:     "action",
}

// String returns the section name used in config and flags.
func (k SectionKind) String() string {
	if int(k) < len(sectionNames) {
		return sectionNames[k]
	}
	return "unknown"
}

// MarshalText encodes the section by name.
func (k SectionKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// SectionKinds lists every section in report order.
func SectionKinds() []SectionKind {
	return []SectionKind{
		SectionSummary,
		SectionPareto,
		SectionCausalAnalysis,
		SectionControlChart,
		SectionTimeSeries,
		SectionActionPlan,
	}
}

// ParseSectionKind resolves a section from its name.
func ParseSectionKind(name string) (SectionKind, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	switch name {
	case "causalanalysis", "causal-analysis", "fishbone", "4m":
		return SectionCausalAnalysis, true
	case "controlchart", "control-chart":
		return SectionControlChart, true
	case "time-series", "trend":
		return SectionTimeSeries, true
	case "actionplan", "action-plan":
		return SectionActionPlan, true
	}
	for i, n := range sectionNames {
		if n == name {
			return SectionKind(i), true
		}
	}
	return 0, false
}

// ParseSectionKinds resolves a list of section names, dropping duplicates.
func ParseSectionKinds(names []string) ([]SectionKind, error) {
	kinds := make([]SectionKind, 0, len(names))
	seen := map[SectionKind]bool{}
	for _, name := range names {
		if strings.TrimSpace(name) == "" {
			continue
		}
		kind, ok := ParseSectionKind(name)
		if !ok {
			return nil, fmt.Errorf("unknown report section %q", name)
		}
		if seen[kind] {
			continue
		}
		seen[kind] = true
		kinds = append(kinds, kind)
	}
	return kinds, nil
}
