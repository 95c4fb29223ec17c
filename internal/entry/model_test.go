package entry

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/go-cmp/cmp"

	"github.com/verte-zerg/qc7/internal/model"
)

type fakeSaver struct {
	name string
	recs []model.DefectRecord
	err  error
}

func (f *fakeSaver) AppendRecords(_ context.Context, name string, recs []model.DefectRecord) error {
	if f.err != nil {
		return f.err
	}
	f.name = name
	f.recs = append(f.recs, recs...)
	return nil
}

func fixedNow() time.Time {
	return time.Date(2024, 3, 5, 14, 30, 0, 0, time.Local)
}

func newTestModel(saver Saver) *Model {
	return NewModel(saver, Options{
		Dataset:  "line-1",
		Defaults: model.DefectRecord{Product: "Product A", Process: "lathe"},
		Now:      fixedNow,
	})
}

func fill(m *Model, values map[model.Field]string) {
	for i, f := range m.fields {
		if v, ok := values[f]; ok {
			m.inputs[i].SetValue(v)
		}
	}
}

func value(m *Model, f model.Field) string {
	for i, field := range m.fields {
		if field == f {
			return m.inputs[i].Value()
		}
	}
	return ""
}

func run(t *testing.T, m *Model, msg tea.Msg) {
	t.Helper()
	_, cmd := m.Update(msg)
	for cmd != nil {
		next := cmd()
		if _, ok := next.(savedMsg); !ok {
			return
		}
		_, cmd = m.Update(next)
	}
}

func TestNewModelPrefillsDefaults(t *testing.T) {
	m := newTestModel(nil)
	if got := value(m, model.FieldDate); got != "2024-03-05" {
		t.Fatalf("unexpected default date %q", got)
	}
	if got := value(m, model.FieldProduct); got != "Product A" {
		t.Fatalf("unexpected default product %q", got)
	}
	if m.focus != 0 || !m.inputs[0].Focused() {
		t.Fatalf("expected first field focused")
	}
}

func TestSubmitSavesAndKeepsStickyFields(t *testing.T) {
	saver := &fakeSaver{}
	m := newTestModel(saver)
	fill(m, map[model.Field]string{
		model.FieldDefectItem:      "Scratch",
		model.FieldDefectCount:     "3",
		model.FieldInspectionCount: "120",
		model.FieldCauseCategory:   "tool wear",
	})
	run(t, m, tea.KeyMsg{Type: tea.KeyCtrlS})

	want := []model.DefectRecord{{
		Date:            time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC),
		Product:         "Product A",
		DefectItem:      "Scratch",
		DefectCount:     3,
		InspectionCount: 120,
		CauseCategory:   "tool wear",
		Process:         "lathe",
	}}
	if diff := cmp.Diff(want, saver.recs); diff != "" {
		t.Fatalf("saved records mismatch (-want +got):\n%s", diff)
	}
	if saver.name != "line-1" {
		t.Fatalf("unexpected dataset %q", saver.name)
	}
	if diff := cmp.Diff(want, m.Saved()); diff != "" {
		t.Fatalf("session records mismatch (-want +got):\n%s", diff)
	}
	if value(m, model.FieldProduct) != "Product A" || value(m, model.FieldDefectItem) != "" {
		t.Fatalf("expected sticky product and cleared item")
	}
	if m.fields[m.focus] != model.FieldDefectItem {
		t.Fatalf("expected focus on defect item, got %v", m.fields[m.focus])
	}
	if m.statusErr || !strings.Contains(m.status, "Saved Product A / Scratch") {
		t.Fatalf("unexpected status %q", m.status)
	}
	footer := m.renderFooter()
	if !strings.Contains(footer, "Saved 1") || !strings.Contains(footer, "3 / 120 · 2.50%") {
		t.Fatalf("unexpected footer %q", footer)
	}
}

func TestSubmitRejectsInvalidRecord(t *testing.T) {
	saver := &fakeSaver{}
	m := newTestModel(saver)
	fill(m, map[model.Field]string{
		model.FieldDefectItem:      "Scratch",
		model.FieldDefectCount:     "30",
		model.FieldInspectionCount: "20",
		model.FieldCauseCategory:   "tool wear",
	})
	run(t, m, tea.KeyMsg{Type: tea.KeyCtrlS})
	if len(saver.recs) != 0 {
		t.Fatalf("expected nothing saved")
	}
	if !m.statusErr || !strings.Contains(m.status, "exceeds inspection_count") {
		t.Fatalf("unexpected status %q", m.status)
	}

	fill(m, map[model.Field]string{model.FieldCauseCategory: ""})
	run(t, m, tea.KeyMsg{Type: tea.KeyCtrlS})
	if !m.statusErr || m.status != "cause is required" {
		t.Fatalf("unexpected status %q", m.status)
	}
}

func TestSubmitReportsSaveFailure(t *testing.T) {
	m := newTestModel(&fakeSaver{err: errors.New("disk full")})
	fill(m, map[model.Field]string{
		model.FieldDefectItem:      "Chip",
		model.FieldDefectCount:     "1",
		model.FieldInspectionCount: "10",
		model.FieldCauseCategory:   "operator",
	})
	run(t, m, tea.KeyMsg{Type: tea.KeyCtrlS})
	if !m.statusErr || !strings.Contains(m.status, "disk full") {
		t.Fatalf("unexpected status %q", m.status)
	}
	if value(m, model.FieldDefectItem) != "Chip" {
		t.Fatalf("form should be kept after a failed save")
	}
	if len(m.Saved()) != 0 {
		t.Fatalf("expected no session records")
	}
}

func TestFocusNavigationWraps(t *testing.T) {
	m := newTestModel(nil)
	run(t, m, tea.KeyMsg{Type: tea.KeyShiftTab})
	if m.focus != len(m.fields)-1 {
		t.Fatalf("expected focus on last field, got %d", m.focus)
	}
	run(t, m, tea.KeyMsg{Type: tea.KeyTab})
	if m.focus != 0 {
		t.Fatalf("expected focus to wrap to first field, got %d", m.focus)
	}
	run(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.focus != 1 {
		t.Fatalf("expected enter to advance focus, got %d", m.focus)
	}
}

func TestViewListsFields(t *testing.T) {
	m := newTestModel(nil)
	out := m.View()
	for _, want := range []string{"New defect record · line-1", "Date", "Defect item", "Inspected", "Remarks", "esc quit"} {
		if !strings.Contains(out, want) {
			t.Fatalf("view missing %q:\n%s", want, out)
		}
	}
}
