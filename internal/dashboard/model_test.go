package dashboard

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/go-cmp/cmp"

	"github.com/verte-zerg/qc7/internal/model"
	"github.com/verte-zerg/qc7/internal/stats"
)

func testDataset() model.Dataset {
	var recs []model.DefectRecord
	items := []string{"Scratch", "Chip", "Dent"}
	causes := []string{"tool wear", "operator", "material lot"}
	for d := 1; d <= 4; d++ {
		for i, item := range items {
			process := "lathe"
			if i == 2 {
				process = "assembly"
			}
			recs = append(recs, model.DefectRecord{
				Date:            time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC),
				Product:         "Product A",
				DefectItem:      item,
				DefectCount:     4 - i,
				InspectionCount: 100,
				CauseCategory:   causes[i],
				Process:         process,
			})
		}
	}
	return model.NewDataset(recs...)
}

type fakeLoader struct {
	ds    model.Dataset
	err   error
	calls int
}

func (f *fakeLoader) LoadDataset(_ context.Context, name string) (model.Dataset, error) {
	f.calls++
	if f.err != nil {
		return model.Dataset{}, f.err
	}
	return f.ds, nil
}

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func sized(m *Model) *Model {
	m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return m
}

func TestViewShowsTabsAndOverview(t *testing.T) {
	m := sized(NewModelFromDataset(testDataset(), Options{}))
	out := m.View()
	for _, want := range []string{"Overview", "Pareto", "4M", "Check Sheet", "Dataset: (file)", "Records", "Time Series", "Highest-rate processes: lathe 3.50%, assembly 2.00%"} {
		if !strings.Contains(out, want) {
			t.Fatalf("view missing %q:\n%s", want, out)
		}
	}
	if got := len(strings.Split(out, "\n")); got != 40 {
		t.Fatalf("expected view to fill 40 lines, got %d", got)
	}
}

func TestParetoTabUsesTable(t *testing.T) {
	m := sized(NewModelFromDataset(testDataset(), Options{}))
	m.Update(key("l"))
	if m.activeTab != tabPareto {
		t.Fatalf("expected pareto tab, got %d", m.activeTab)
	}
	rows := m.paretoTable.Rows()
	if len(rows) != 3 || rows[0][1] != "Scratch" || rows[0][6] != "*" {
		t.Fatalf("unexpected pareto rows: %+v", rows)
	}
	if !strings.Contains(m.View(), "Vital few (<= 80%): Scratch, Chip") {
		t.Fatalf("expected vital few summary:\n%s", m.View())
	}
}

func TestMoveTabWraps(t *testing.T) {
	m := sized(NewModelFromDataset(testDataset(), Options{}))
	m.Update(key("h"))
	if m.activeTab != tabCheckSheet {
		t.Fatalf("expected wrap to last tab, got %d", m.activeTab)
	}
	m.Update(key("l"))
	if m.activeTab != tabOverview {
		t.Fatalf("expected wrap to first tab, got %d", m.activeTab)
	}
}

func TestFilterFormNarrowsDataset(t *testing.T) {
	m := sized(NewModelFromDataset(testDataset(), Options{}))
	m.Update(key("/"))
	if !m.filterMode {
		t.Fatalf("expected filter mode")
	}
	m.filterInputs[inputProcesses].SetValue("lathe")
	m.filterInputs[inputSince].SetValue("2024-01-03")
	m.filterInputs[inputSigma].SetValue("2")
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if m.filterMode {
		t.Fatalf("expected filter applied, error %q", m.filterError)
	}
	if diff := cmp.Diff([]string{"lathe"}, m.filter.Processes); diff != "" {
		t.Fatalf("processes mismatch (-want +got):\n%s", diff)
	}
	if m.report.Overview.Records != 4 || m.analysis.Sigma != 2 || m.report.Control.Sigma != 2 {
		t.Fatalf("unexpected report after filter: %+v sigma=%v", m.report.Overview, m.analysis.Sigma)
	}
	if !strings.Contains(m.renderFilterSummary(), "processes=lathe") {
		t.Fatalf("summary missing filter: %s", m.renderFilterSummary())
	}
}

func TestFilterFormRejectsBadInput(t *testing.T) {
	m := sized(NewModelFromDataset(testDataset(), Options{}))
	m.Update(key("/"))
	m.filterInputs[inputSince].SetValue("03/01/2024x")
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if !m.filterMode || !strings.Contains(m.filterError, "since") {
		t.Fatalf("expected since error, got %q", m.filterError)
	}
	m.filterInputs[inputSince].SetValue("")
	m.filterInputs[inputBins].SetValue("0")
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if !strings.Contains(m.filterError, "bins") {
		t.Fatalf("expected bins error, got %q", m.filterError)
	}
	m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if m.filterMode {
		t.Fatalf("expected esc to leave filter mode")
	}
}

func TestEmptyFilterResultShowsUnavailable(t *testing.T) {
	m := sized(NewModelFromDataset(testDataset(), Options{}))
	m.Update(key("/"))
	m.filterInputs[inputProducts].SetValue("Product Z")
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if err := m.report.Err(stats.AnalysisPareto); err == nil {
		t.Fatalf("expected pareto failure on empty data")
	}
	if !strings.Contains(m.View(), "Overview unavailable") {
		t.Fatalf("expected unavailable message:\n%s", m.View())
	}
}

func TestCompareCyclesDimensionAndWindow(t *testing.T) {
	m := sized(NewModelFromDataset(testDataset(), Options{}))
	m.activeTab = tabCompare
	if m.compare.Dimension != model.ByProcess {
		t.Fatalf("expected process comparison first, got %v", m.compare.Dimension)
	}
	m.Update(key("d"))
	m.Update(key("d"))
	if m.compare.Dimension != model.ByDate || len(m.compare.Rows) != 4 {
		t.Fatalf("expected date comparison, got %+v", m.compare)
	}
	m.Update(key("="))
	if m.window != 3 {
		t.Fatalf("expected window 3, got %d", m.window)
	}
	if !strings.Contains(m.renderCompare(), "Window: 3") {
		t.Fatalf("expected window label: %s", m.renderCompare())
	}
	m.Update(key("-"))
	if m.window != 1 || windowLabel(m.window) != "off" {
		t.Fatalf("expected smoothing off, got %d", m.window)
	}
	m.Update(key("d"))
	if m.compare.Metric != stats.MetricShare {
		t.Fatalf("expected cause shares, got %v", m.compare.Metric)
	}
}

func TestCheckSheetToggle(t *testing.T) {
	m := sized(NewModelFromDataset(testDataset(), Options{Checklist: []string{"Gauge check", "Visual"}}))
	m.activeTab = tabCheckSheet
	m.Update(key("2"))
	if !m.sheet.Items[1].Checked || m.sheet.Done() != 1 {
		t.Fatalf("expected second item checked: %+v", m.sheet.Items)
	}
	out := m.renderCheckSheet()
	if !strings.Contains(out, "(1/2 checked)") || !strings.Contains(out, "[x] 2. Visual") {
		t.Fatalf("unexpected check sheet:\n%s", out)
	}
	m.Update(key("9"))
	if m.sheet.Done() != 1 {
		t.Fatalf("out-of-range toggle should be ignored")
	}
}

func TestLoaderFailureAndReload(t *testing.T) {
	loader := &fakeLoader{err: errors.New("dataset not found: line-9")}
	m := sized(NewModel(loader, Options{Dataset: "line-9"}))
	if m.errMsg == "" || !strings.Contains(m.View(), "dataset not found") {
		t.Fatalf("expected load error in view:\n%s", m.View())
	}
	loader.err = nil
	loader.ds = testDataset()
	m.Update(key("r"))
	if m.errMsg != "" || m.report.Overview.Records != 12 || loader.calls != 2 {
		t.Fatalf("expected reload to succeed: err=%q records=%d calls=%d", m.errMsg, m.report.Overview.Records, loader.calls)
	}
}

func TestWindowSteps(t *testing.T) {
	n := 1
	for _, want := range []int{3, 5, 10, 15} {
		n = nextWindow(n)
		if n != want {
			t.Fatalf("nextWindow produced %d, want %d", n, want)
		}
	}
	for _, want := range []int{10, 5, 3, 1, 1} {
		n = prevWindow(n)
		if n != want {
			t.Fatalf("prevWindow produced %d, want %d", n, want)
		}
	}
	if got := prevWindow(7); got != 5 {
		t.Fatalf("prevWindow(7) = %d", got)
	}
}

func TestTruncateLineUsesDisplayWidth(t *testing.T) {
	if got := truncateLine("abcdef", 5); got != "ab..." {
		t.Fatalf("unexpected truncation %q", got)
	}
	if got := truncateLine("加工不良の原因", 7); got != "加工..." {
		t.Fatalf("unexpected wide truncation %q", got)
	}
	if got := truncateLine("short", 10); got != "short" {
		t.Fatalf("unexpected truncation %q", got)
	}
}
