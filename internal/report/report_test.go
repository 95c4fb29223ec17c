package report

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/verte-zerg/qc7/internal/model"
)

func testDataset() model.Dataset {
	var recs []model.DefectRecord
	items := []string{"Dimension", "Scratch", "Chip"}
	causes := []string{"加工", "作業者", "原因不明"}
	for d := 1; d <= 5; d++ {
		for i, item := range items {
			recs = append(recs, model.DefectRecord{
				Date:            time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC),
				Product:         "Product A",
				DefectItem:      item,
				DefectCount:     3 - i,
				InspectionCount: 100,
				CauseCategory:   causes[i],
				Process:         "lathe",
			})
		}
	}
	return model.NewDataset(recs...)
}

func testMetadata() model.Metadata {
	return model.Metadata{
		Company:    "Sample Corp",
		Department: "Quality",
		Presenter:  "QC Lead",
		Date:       time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		Period:     "January 2024",
		Target:     "10% fewer defects",
	}
}

func sectionKinds(doc Document) []model.SectionKind {
	kinds := make([]model.SectionKind, len(doc.Sections))
	for i, s := range doc.Sections {
		kinds[i] = s.Kind
	}
	return kinds
}

func factValue(t *testing.T, s Section, label string) string {
	t.Helper()
	for _, f := range s.Facts {
		if f.Label == label {
			return f.Value
		}
	}
	t.Fatalf("fact %q not found in %s", label, s.Title)
	return ""
}

func TestBuildAllSections(t *testing.T) {
	doc := Build(testDataset(), testMetadata(), nil, Options{})
	if diff := cmp.Diff(model.SectionKinds(), sectionKinds(doc)); diff != "" {
		t.Fatalf("section order mismatch (-want +got):\n%s", diff)
	}
	if len(doc.Skipped) != 0 {
		t.Fatalf("unexpected skipped sections: %+v", doc.Skipped)
	}
	if got := factValue(t, Section{Title: "cover", Facts: doc.Cover.Facts}, "Organization"); got != "Sample Corp Quality" {
		t.Fatalf("unexpected organization: %q", got)
	}

	summary, _ := doc.Section(model.SectionSummary)
	if got := factValue(t, summary, "Total inspected"); got != "1,500" {
		t.Fatalf("unexpected total inspected: %q", got)
	}
	if got := factValue(t, summary, "Defect rate"); got != "2.00%" {
		t.Fatalf("unexpected defect rate: %q", got)
	}
	if got := factValue(t, summary, "Main defect items"); got != "Dimension, Scratch, Chip" {
		t.Fatalf("unexpected main items: %q", got)
	}

	action, _ := doc.Section(model.SectionActionPlan)
	if got := factValue(t, action, "Expected effect"); got != "2.00% -> 1.80% (10% reduction)" {
		t.Fatalf("unexpected expected effect: %q", got)
	}
	if got := factValue(t, action, "Next review"); got != "March 2, 2024" {
		t.Fatalf("unexpected next review: %q", got)
	}

	causal, _ := doc.Section(model.SectionCausalAnalysis)
	if got := factValue(t, causal, "Unclassified"); got != "原因不明: 5" {
		t.Fatalf("unexpected unclassified: %q", got)
	}
	control, _ := doc.Section(model.SectionControlChart)
	if got := factValue(t, control, "Out-of-control points"); got != "0" {
		t.Fatalf("unexpected outliers: %q", got)
	}
}

func TestBuildKeepsFixedOrderForSelection(t *testing.T) {
	doc := Build(testDataset(), testMetadata(), []model.SectionKind{model.SectionActionPlan, model.SectionPareto}, Options{})
	want := []model.SectionKind{model.SectionPareto, model.SectionActionPlan}
	if diff := cmp.Diff(want, sectionKinds(doc)); diff != "" {
		t.Fatalf("section order mismatch (-want +got):\n%s", diff)
	}
	empty := Build(testDataset(), testMetadata(), []model.SectionKind{}, Options{})
	if len(empty.Sections) != 0 {
		t.Fatalf("expected no sections for an empty selection")
	}
}

func TestBuildIsolatesSectionFailures(t *testing.T) {
	ds := testDataset()
	ds.Columns = model.NewFieldSet(model.FieldDefectItem, model.FieldDefectCount, model.FieldInspectionCount, model.FieldCauseCategory)
	doc := Build(ds, testMetadata(), nil, Options{})

	want := []model.SectionKind{model.SectionSummary, model.SectionPareto, model.SectionCausalAnalysis, model.SectionActionPlan}
	if diff := cmp.Diff(want, sectionKinds(doc)); diff != "" {
		t.Fatalf("section mismatch (-want +got):\n%s", diff)
	}
	if len(doc.Skipped) != 2 {
		t.Fatalf("expected two skipped sections, got %+v", doc.Skipped)
	}
	for _, s := range doc.Skipped {
		if s.Reason != "missing column" {
			t.Fatalf("unexpected skip reason: %+v", s)
		}
	}
	if doc.Skipped[0].Kind != model.SectionControlChart || doc.Skipped[1].Kind != model.SectionTimeSeries {
		t.Fatalf("unexpected skipped kinds: %+v", doc.Skipped)
	}
}

func TestBuildIsIdempotent(t *testing.T) {
	first := Build(testDataset(), testMetadata(), nil, Options{})
	second := Build(testDataset(), testMetadata(), nil, Options{})
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("documents differ (-first +second):\n%s", diff)
	}
}

func TestBuildWithoutDate(t *testing.T) {
	meta := testMetadata()
	meta.Date = time.Time{}
	doc := Build(testDataset(), meta, []model.SectionKind{model.SectionActionPlan}, Options{})
	action, ok := doc.Section(model.SectionActionPlan)
	if !ok {
		t.Fatalf("expected action plan")
	}
	if got := factValue(t, action, "Next review"); got != "to be scheduled" {
		t.Fatalf("unexpected next review: %q", got)
	}
}

func TestGroupDigits(t *testing.T) {
	cases := map[int]string{0: "0", 999: "999", 1000: "1,000", 1234567: "1,234,567", -4500: "-4,500"}
	for n, want := range cases {
		if got := groupDigits(n); got != want {
			t.Fatalf("groupDigits(%d) = %q, want %q", n, got, want)
		}
	}
}
