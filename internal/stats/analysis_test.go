package stats

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/verte-zerg/qc7/internal/model"
	"github.com/verte-zerg/qc7/internal/qcerr"
)

func day(d int) time.Time {
	return time.Date(2024, time.January, d, 0, 0, 0, 0, time.UTC)
}

func rec(d int, item, cause string, defects, inspected int) model.DefectRecord {
	return model.DefectRecord{
		Date:            day(d),
		Product:         "Product A",
		DefectItem:      item,
		DefectCount:     defects,
		InspectionCount: inspected,
		CauseCategory:   cause,
		Process:         "lathe",
	}
}

func TestAggregateOrdersByMeasureThenFirstSeen(t *testing.T) {
	ds := model.NewDataset(
		rec(1, "C", "", 5, 100),
		rec(1, "A", "", 10, 100),
		rec(2, "B", "", 5, 100),
		rec(2, "A", "", 2, 100),
	)
	agg, err := Aggregate(ds, model.ByDefectItem)
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	want := []Group{
		{Key: "A", DefectCount: 12, InspectionCount: 200, Occurrences: 2},
		{Key: "C", DefectCount: 5, InspectionCount: 100, Occurrences: 1},
		{Key: "B", DefectCount: 5, InspectionCount: 100, Occurrences: 1},
	}
	if diff := cmp.Diff(want, agg.Groups); diff != "" {
		t.Fatalf("groups mismatch (-want +got):\n%s", diff)
	}
	chrono := agg.Chronological()
	if chrono[0].Key != "A" || chrono[1].Key != "B" || chrono[2].Key != "C" {
		t.Fatalf("unexpected key order: %+v", chrono)
	}
}

func TestAggregateMissingColumn(t *testing.T) {
	ds := model.Dataset{Columns: model.NewFieldSet(model.FieldDefectItem), Records: []model.DefectRecord{{DefectItem: "A"}}}
	_, err := Aggregate(ds, model.ByDefectItem, model.MeasureDefectCount)
	if !errors.Is(err, qcerr.ErrMissingColumn) {
		t.Fatalf("expected missing column, got %v", err)
	}
}

func TestParetoExample(t *testing.T) {
	ds := model.NewDataset(
		rec(1, "A", "", 50, 1000),
		rec(1, "B", "", 30, 1000),
		rec(1, "C", "", 15, 1000),
		rec(1, "D", "", 5, 1000),
	)
	res, err := Pareto(ds, 0)
	if err != nil {
		t.Fatalf("pareto: %v", err)
	}
	var items, vital []string
	var cumulative []float64
	for _, item := range res.Items {
		items = append(items, item.Item)
		cumulative = append(cumulative, item.CumulativeRatio)
	}
	for _, item := range res.VitalFew {
		vital = append(vital, item.Item)
	}
	if diff := cmp.Diff([]string{"A", "B", "C", "D"}, items); diff != "" {
		t.Fatalf("ranking mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]float64{50, 80, 95, 100}, cumulative); diff != "" {
		t.Fatalf("cumulative mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"A", "B"}, vital); diff != "" {
		t.Fatalf("vital few mismatch (-want +got):\n%s", diff)
	}
	if res.Total != 100 || res.Items[0].Share != 50 {
		t.Fatalf("unexpected totals: %+v", res)
	}
}

func TestParetoVitalFewIsPrefixAndEndsAtHundred(t *testing.T) {
	ds := model.NewDataset(
		rec(1, "X", "", 7, 100),
		rec(1, "Y", "", 3, 100),
		rec(1, "Z", "", 1, 100),
	)
	res, err := Pareto(ds, 0)
	if err != nil {
		t.Fatalf("pareto: %v", err)
	}
	if last := res.Items[len(res.Items)-1].CumulativeRatio; last != 100 {
		t.Fatalf("expected final cumulative 100, got %v", last)
	}
	// X alone is 63.6%, X+Y is 90.9%.
	if len(res.VitalFew) != 1 || res.VitalFew[0].Item != "X" {
		t.Fatalf("unexpected vital few: %+v", res.VitalFew)
	}

	dominant := model.NewDataset(rec(1, "X", "", 90, 100), rec(1, "Y", "", 10, 100))
	res, err = Pareto(dominant, 0)
	if err != nil {
		t.Fatalf("pareto: %v", err)
	}
	if len(res.VitalFew) != 0 {
		t.Fatalf("expected empty vital few when top item exceeds threshold, got %+v", res.VitalFew)
	}
}

func TestParetoEmpty(t *testing.T) {
	_, err := Pareto(model.NewDataset(rec(1, "A", "", 0, 10)), 0)
	if !errors.Is(err, qcerr.ErrEmptyDataset) {
		t.Fatalf("expected empty dataset, got %v", err)
	}
	_, err = Pareto(model.NewDataset(), 0)
	if !errors.Is(err, qcerr.ErrEmptyDataset) {
		t.Fatalf("expected empty dataset for no records, got %v", err)
	}
}

func TestClassifyMembership(t *testing.T) {
	ds := model.NewDataset(
		rec(1, "A", "作業者の手順ミス", 8, 100),
		rec(1, "A", "設備故障", 5, 100),
		rec(1, "A", "原因不明", 3, 100),
		rec(1, "A", "material lot", 1, 100),
	)
	res, err := Classify(ds, DefaultRules())
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	man := res.Bucket(Man)
	method := res.Bucket(Method)
	if len(man.Causes) != 1 || man.Causes[0].Cause != "作業者の手順ミス" {
		t.Fatalf("unexpected man bucket: %+v", man)
	}
	if len(method.Causes) != 1 || method.Causes[0].Cause != "作業者の手順ミス" {
		t.Fatalf("expected multi-bucket cause in method: %+v", method)
	}
	if res.Bucket(Machine).Total != 5 {
		t.Fatalf("unexpected machine total: %+v", res.Bucket(Machine))
	}
	if len(res.Bucket(Material).Causes) != 1 {
		t.Fatalf("expected english keyword match: %+v", res.Bucket(Material))
	}
	for _, entry := range res.Buckets {
		for _, c := range entry.Causes {
			if c.Cause == "原因不明" {
				t.Fatalf("unmatched cause leaked into %s", entry.Bucket)
			}
		}
	}
	if len(res.Unclassified) != 1 || res.Unclassified[0].Cause != "原因不明" {
		t.Fatalf("unexpected unclassified: %+v", res.Unclassified)
	}
	if got := res.Causes[0].Buckets.String(); got != "Man,Method" {
		t.Fatalf("unexpected bucket set: %q", got)
	}
}

func TestRulesAreCaseSensitiveAndOverridable(t *testing.T) {
	rules := DefaultRules()
	if !rules.Match("Operator error").Empty() {
		t.Fatalf("expected case-sensitive matching")
	}
	custom := rules.Override(Rules{Man: []string{"Operator"}})
	if !custom.Match("Operator error").Has(Man) {
		t.Fatalf("expected override keyword to match")
	}
	if len(DefaultRules().Man) == 1 {
		t.Fatalf("override mutated default rules")
	}
}

func TestDistribution(t *testing.T) {
	ds := model.NewDataset(
		rec(1, "A", "", 1, 100),
		rec(1, "A", "", 2, 100),
		rec(1, "A", "", 3, 100),
		rec(1, "A", "", 4, 100),
	)
	res, err := Distribution(ds, 3)
	if err != nil {
		t.Fatalf("distribution: %v", err)
	}
	if res.Mean != 2.5 || res.Min != 1 || res.Max != 4 {
		t.Fatalf("unexpected summary: %+v", res)
	}
	if res.StdDev != 1.29 {
		t.Fatalf("expected sample std 1.29, got %v", res.StdDev)
	}
	counts := []int{res.Bins[0].Count, res.Bins[1].Count, res.Bins[2].Count}
	if diff := cmp.Diff([]int{1, 1, 2}, counts); diff != "" {
		t.Fatalf("bin counts mismatch (-want +got):\n%s", diff)
	}
	if res.Bins[2].Upper != 4 || res.MeanBin != 1 {
		t.Fatalf("unexpected bins: %+v mean bin %d", res.Bins, res.MeanBin)
	}
}

func TestDistributionSingleRecord(t *testing.T) {
	res, err := Distribution(model.NewDataset(rec(1, "A", "", 2, 100)), 0)
	if err != nil {
		t.Fatalf("distribution: %v", err)
	}
	if res.StdDev != 0 || len(res.Bins) != DefaultBins {
		t.Fatalf("unexpected result: std=%v bins=%d", res.StdDev, len(res.Bins))
	}
	total := 0
	for _, b := range res.Bins {
		total += b.Count
	}
	if total != 1 {
		t.Fatalf("expected one counted value, got %d", total)
	}
}

func TestCorrelation(t *testing.T) {
	ds := model.NewDataset(
		rec(1, "A", "", 1, 100),
		rec(2, "A", "", 3, 120),
		rec(3, "A", "", 2, 90),
		rec(4, "A", "", 6, 150),
	)
	self, err := Correlation(ds, VarDefectCount, VarDefectCount)
	if err != nil {
		t.Fatalf("correlation: %v", err)
	}
	if self.Coefficient != 1 || self.Strength != Strong {
		t.Fatalf("expected perfect self correlation, got %+v", self)
	}

	constant := model.NewDataset(rec(1, "A", "", 1, 100), rec(2, "A", "", 2, 100))
	if _, err := Correlation(constant, VarInspectionCount, VarDefectCount); !errors.Is(err, qcerr.ErrInsufficientVariance) {
		t.Fatalf("expected insufficient variance, got %v", err)
	}
	if _, err := Correlation(model.NewDataset(rec(1, "A", "", 1, 100)), VarInspectionCount, VarDefectCount); !errors.Is(err, qcerr.ErrInsufficientVariance) {
		t.Fatalf("expected insufficient variance for one record, got %v", err)
	}
}

func TestStrengthOf(t *testing.T) {
	cases := map[float64]Strength{0.71: Strong, -0.8: Strong, 0.7: Moderate, 0.31: Moderate, 0.3: Weak, 0: Weak}
	for r, want := range cases {
		if got := StrengthOf(r); got != want {
			t.Fatalf("StrengthOf(%v) = %s, want %s", r, got, want)
		}
	}
}

func TestControlChartExample(t *testing.T) {
	ds := model.NewDataset(
		rec(1, "A", "", 2, 100),
		rec(2, "A", "", 2, 100),
		rec(3, "A", "", 2, 100),
	)
	res, err := ControlChart(ds, 0)
	if err != nil {
		t.Fatalf("control chart: %v", err)
	}
	if res.Center != 2 || res.MeanInspection != 100 {
		t.Fatalf("unexpected center: %+v", res)
	}
	if math.Abs(res.UCL-6.2) > 1e-9 || res.LCL != 0 {
		t.Fatalf("unexpected limits: UCL=%v LCL=%v", res.UCL, res.LCL)
	}
	if !res.Stable() {
		t.Fatalf("expected no outliers: %+v", res.Outliers)
	}
}

func TestControlChartZeroRateCollapsesBand(t *testing.T) {
	ds := model.NewDataset(rec(1, "A", "", 0, 100), rec(2, "A", "", 0, 50))
	res, err := ControlChart(ds, 3)
	if err != nil {
		t.Fatalf("control chart: %v", err)
	}
	if res.UCL != 0 || res.LCL != 0 || res.Center != 0 || !res.Stable() {
		t.Fatalf("expected zero-width band: %+v", res)
	}
}

func TestControlChartFlagsOutliers(t *testing.T) {
	var recs []model.DefectRecord
	for d := 1; d <= 9; d++ {
		recs = append(recs, rec(d, "A", "", 2, 1000))
	}
	recs = append(recs, rec(10, "A", "", 100, 1000))
	res, err := ControlChart(model.NewDataset(recs...), 3)
	if err != nil {
		t.Fatalf("control chart: %v", err)
	}
	if len(res.Outliers) != 1 || res.Outliers[0].Date != "2024-01-10" || !res.Points[9].IsOutlier {
		t.Fatalf("expected the last day flagged: %+v", res.Outliers)
	}
}

func TestControlChartAggregatesPerDate(t *testing.T) {
	ds := model.NewDataset(
		rec(2, "A", "", 1, 50),
		rec(1, "A", "", 1, 100),
		rec(2, "B", "", 3, 50),
	)
	res, err := ControlChart(ds, 3)
	if err != nil {
		t.Fatalf("control chart: %v", err)
	}
	if len(res.Points) != 2 || res.Points[0].Date != "2024-01-01" || res.Points[1].Rate != 4 {
		t.Fatalf("unexpected points: %+v", res.Points)
	}
	if _, err := ControlChart(model.NewDataset(), 3); !errors.Is(err, qcerr.ErrEmptyDataset) {
		t.Fatalf("expected empty dataset, got %v", err)
	}
}

func TestTrend(t *testing.T) {
	ds := model.NewDataset(
		rec(1, "A", "", 5, 100),
		rec(2, "A", "", 3, 100),
		rec(3, "A", "", 2, 100),
	)
	res, err := Trend(ds)
	if err != nil {
		t.Fatalf("trend: %v", err)
	}
	if res.First != 5 || res.Last != 2 || res.Change != -3 || res.Direction != Improving || res.Max != 5 || res.Min != 2 || res.Mean != 3.33 {
		t.Fatalf("unexpected trend: %+v", res)
	}
	if TrendOf([]float64{1, 1}).Direction != Flat || TrendOf([]float64{1, 2}).Direction != Worsening {
		t.Fatalf("unexpected directions")
	}
}

func TestCompare(t *testing.T) {
	ds := model.NewDataset(
		model.DefectRecord{Date: day(1), Process: "milling", CauseCategory: "tool", DefectCount: 2, InspectionCount: 100},
		model.DefectRecord{Date: day(2), Process: "assembly", CauseCategory: "operator", DefectCount: 6, InspectionCount: 100},
		model.DefectRecord{Date: day(3), Process: "milling", CauseCategory: "tool", DefectCount: 2, InspectionCount: 100},
	)
	byProcess, err := Compare(ds, model.ByProcess, 0)
	if err != nil {
		t.Fatalf("compare: %v", err)
	}
	if byProcess.Rows[0].Key != "assembly" || byProcess.Rows[0].Value != 6 || byProcess.Rows[1].Value != 2 {
		t.Fatalf("unexpected process rows: %+v", byProcess.Rows)
	}
	byCause, err := Compare(ds, model.ByCause, 0)
	if err != nil {
		t.Fatalf("compare: %v", err)
	}
	if byCause.Metric != MetricShare || byCause.Rows[0].Key != "operator" || byCause.Rows[0].Value != 60 {
		t.Fatalf("unexpected cause rows: %+v", byCause.Rows)
	}
	byDate, err := Compare(ds, model.ByDate, 2)
	if err != nil {
		t.Fatalf("compare: %v", err)
	}
	smoothed := []float64{byDate.Rows[0].Smoothed, byDate.Rows[1].Smoothed, byDate.Rows[2].Smoothed}
	if diff := cmp.Diff([]float64{2, 4, 4}, smoothed); diff != "" {
		t.Fatalf("smoothed mismatch (-want +got):\n%s", diff)
	}
}

func TestChecklist(t *testing.T) {
	ds := model.NewDataset(
		rec(1, "Scratch", "tool", 2, 100),
		rec(1, "Chip", "operator", 1, 100),
		rec(2, "Scratch", "operator", 3, 100),
		rec(3, "Scratch", "operator", 1, 100),
		rec(3, "Scratch", "material", 1, 100),
		rec(4, "Scratch", "environment", 1, 100),
	)
	entries, err := Checklist(ds)
	if err != nil {
		t.Fatalf("checklist: %v", err)
	}
	want := []ChecklistEntry{
		{Item: "Scratch", Occurrences: 5, DefectCount: 8, TopCauses: []CauseTally{
			{Cause: "operator", Occurrences: 2},
			{Cause: "tool", Occurrences: 1},
			{Cause: "material", Occurrences: 1},
		}},
		{Item: "Chip", Occurrences: 1, DefectCount: 1, TopCauses: []CauseTally{{Cause: "operator", Occurrences: 1}}},
	}
	if diff := cmp.Diff(want, entries); diff != "" {
		t.Fatalf("checklist mismatch (-want +got):\n%s", diff)
	}
}

func TestSummarize(t *testing.T) {
	ds := model.NewDataset(rec(1, "A", "", 1, 100), rec(2, "B", "", 2, 100))
	ov, err := Summarize(ds)
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	want := Overview{Records: 2, DefectCount: 3, InspectionCount: 200, Rate: 1.5, Items: 2, Products: 1, Processes: 1, Days: 2}
	if diff := cmp.Diff(want, ov); diff != "" {
		t.Fatalf("overview mismatch (-want +got):\n%s", diff)
	}
}

func TestAnalyzeRecordsFailures(t *testing.T) {
	ds := model.Dataset{
		Columns: model.NewFieldSet(model.FieldDefectItem, model.FieldDefectCount, model.FieldInspectionCount),
		Records: []model.DefectRecord{{DefectItem: "A", DefectCount: 1, InspectionCount: 10}},
	}
	r := Analyze(ds, Options{})
	if r.Err(AnalysisPareto) != nil {
		t.Fatalf("unexpected pareto failure: %v", r.Err(AnalysisPareto))
	}
	if !errors.Is(r.Err(AnalysisControl), qcerr.ErrMissingColumn) {
		t.Fatalf("expected control chart to need dates, got %v", r.Err(AnalysisControl))
	}
	if !errors.Is(r.Err(AnalysisCausal), qcerr.ErrMissingColumn) {
		t.Fatalf("expected causal analysis to need causes, got %v", r.Err(AnalysisCausal))
	}
	if r.Options.Bins != DefaultBins || r.Options.Sigma != DefaultSigma {
		t.Fatalf("expected default options, got %+v", r.Options)
	}
}
