package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/verte-zerg/qc7/internal/config"
)

const testCSV = `date,product,defect_item,defect_count,inspection_count,cause_category,process,remarks
2024-01-01,Product A,Scratch,4,100,tool wear,lathe,
2024-01-01,Product A,Chip,2,100,operator error,assembly,
2024-01-02,Product A,Scratch,3,100,tool wear,lathe,
2024-01-02,Product B,Dent,1,100,material lot,press,
2024-01-03,Product B,Scratch,5,100,machine vibration,lathe,night shift
2024-01-03,Product B,Chip,1,100,procedure gap,assembly,
`

func writeTestCSV(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "defects.csv")
	if err := os.WriteFile(path, []byte(testCSV), 0o644); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	return path
}

// runCLI executes the root command with an isolated config and database.
func runCLI(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	base := []string{
		"--config", filepath.Join(dir, "config.toml"),
		"--db", filepath.Join(dir, "qc7.db"),
	}
	cmd.SetArgs(append(append([]string{}, args...), base...))
	err := cmd.Execute()
	return out.String(), err
}

func TestParetoFromFile(t *testing.T) {
	dir := t.TempDir()
	out, err := runCLI(t, dir, "pareto", "--file", writeTestCSV(t))
	if err != nil {
		t.Fatalf("pareto: %v\n%s", err, out)
	}
	for _, want := range []string{"Pareto Analysis", "Scratch", "Vital few (cumulative <= 80%): Scratch"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}

func TestCompareJSONWithFilter(t *testing.T) {
	dir := t.TempDir()
	out, err := runCLI(t, dir, "compare", "--file", writeTestCSV(t), "--by", "product", "--process", "lathe", "--format", "json")
	if err != nil {
		t.Fatalf("compare: %v\n%s", err, out)
	}
	var decoded struct {
		Dimension string `json:"dimension"`
		Metric    string `json:"metric"`
		Rows      []struct {
			Key         string  `json:"key"`
			DefectCount int     `json:"defect_count"`
			Value       float64 `json:"value"`
		} `json:"rows"`
	}
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if !strings.Contains(out, `"defect_count": 7`) || strings.Contains(out, "DefectCount") {
		t.Fatalf("expected snake_case keys:\n%s", out)
	}
	if decoded.Dimension != "product" || decoded.Metric != "rate" || len(decoded.Rows) != 2 {
		t.Fatalf("unexpected comparison: %+v", decoded)
	}
	if decoded.Rows[0].Key != "Product A" || decoded.Rows[0].DefectCount != 7 || decoded.Rows[0].Value != 3.5 {
		t.Fatalf("unexpected first row: %+v", decoded.Rows[0])
	}
}

func TestImportListAndReport(t *testing.T) {
	dir := t.TempDir()
	if out, err := runCLI(t, dir, "import", writeTestCSV(t), "--dataset", "line-1"); err != nil {
		t.Fatalf("import: %v\n%s", err, out)
	}
	out, err := runCLI(t, dir, "datasets")
	if err != nil {
		t.Fatalf("datasets: %v", err)
	}
	if !strings.Contains(out, "line-1") || !strings.Contains(out, "2024-01-03") {
		t.Fatalf("unexpected dataset list:\n%s", out)
	}

	out, err = runCLI(t, dir, "report", "--dataset", "line-1", "--format", "json",
		"--date", "2024-02-01", "--company", "Sample Corp", "--sections", "summary,action")
	if err != nil {
		t.Fatalf("report: %v\n%s", err, out)
	}
	var doc struct {
		Title    string `json:"title"`
		Sections []struct {
			Kind string `json:"kind"`
		} `json:"sections"`
	}
	if err := json.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatalf("decode report: %v\n%s", err, out)
	}
	if len(doc.Sections) != 2 || doc.Sections[0].Kind != "summary" || doc.Sections[1].Kind != "action" {
		t.Fatalf("unexpected sections: %+v", doc.Sections)
	}
}

func TestAddLinesAndExport(t *testing.T) {
	dir := t.TempDir()
	out, err := runCLI(t, dir, "add",
		"--line", "2024-03-01,Product A,Scratch,2,50,tool wear,lathe",
		"--line", "2024-03-02,Product A,Chip,1,40,operator,assembly,rework")
	if err != nil {
		t.Fatalf("add: %v\n%s", err, out)
	}
	if !strings.Contains(out, `Added 2 records to "default"`) {
		t.Fatalf("unexpected add output: %s", out)
	}

	path := filepath.Join(dir, "out", "export.csv")
	if out, err := runCLI(t, dir, "export", "--out", path, "--since", "2024-03-02"); err != nil {
		t.Fatalf("export: %v\n%s", err, out)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 || !strings.HasPrefix(lines[1], "2024-03-02,Product A,Chip,1,40") {
		t.Fatalf("unexpected export:\n%s", data)
	}
}

func TestAddRejectsMalformedLine(t *testing.T) {
	dir := t.TempDir()
	_, err := runCLI(t, dir, "add", "--line", "2024-03-01,Product A,Scratch,60,50,tool wear,lathe")
	if err == nil || !strings.Contains(err.Error(), "malformed record") {
		t.Fatalf("expected malformed record error, got %v", err)
	}
}

func TestAnalysisOnMissingDataset(t *testing.T) {
	dir := t.TempDir()
	_, err := runCLI(t, dir, "control", "--dataset", "missing")
	if err == nil || !strings.Contains(err.Error(), "dataset not found") {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestConfigValuesApplyUnlessFlagged(t *testing.T) {
	dir := t.TempDir()
	cfg := "[analysis]\nvital-few-threshold = 50.0\n"
	if err := os.WriteFile(filepath.Join(dir, "config.toml"), []byte(cfg), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	csvPath := writeTestCSV(t)
	out, err := runCLI(t, dir, "pareto", "--file", csvPath)
	if err != nil {
		t.Fatalf("pareto: %v", err)
	}
	if !strings.Contains(out, "Vital few (cumulative <= 50%)") {
		t.Fatalf("expected config threshold:\n%s", out)
	}
	out, err = runCLI(t, dir, "pareto", "--file", csvPath, "--threshold", "90")
	if err != nil {
		t.Fatalf("pareto: %v", err)
	}
	if !strings.Contains(out, "Vital few (cumulative <= 90%)") {
		t.Fatalf("expected flag threshold:\n%s", out)
	}
}

func TestDefaultConfigTemplateDecodes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	uncomment := regexp.MustCompile(`(?m)^# ([a-z-]+ = .*)$`)
	body := uncomment.ReplaceAllString(defaultConfigTemplate(), "$1")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write template: %v", err)
	}
	cfg, err := config.LoadConfig(path)
	if err != nil {
		t.Fatalf("template does not decode: %v\n%s", err, body)
	}
	if cfg.Analysis.Bins == nil || *cfg.Analysis.Bins != 20 {
		t.Fatalf("unexpected bins: %+v", cfg.Analysis)
	}
	if len(cfg.Keywords.Machine) == 0 || len(cfg.Report.Sections) != 6 {
		t.Fatalf("unexpected keywords or sections: %+v", cfg)
	}
}
