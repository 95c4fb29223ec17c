package stats

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/verte-zerg/qc7/internal/model"
)

const (
	histogramBarWidth = 40
	comparePlotHeight = 8
)

// RenderOverview prints dataset totals.
func RenderOverview(w io.Writer, ov Overview) error {
	lines := []string{
		"Overview",
		fmt.Sprintf("Records: %d", ov.Records),
		fmt.Sprintf("Inspected: %d", ov.InspectionCount),
		fmt.Sprintf("Defects: %d", ov.DefectCount),
		fmt.Sprintf("Defect rate: %.2f%%", ov.Rate),
		fmt.Sprintf("Items: %d  Products: %d  Processes: %d  Days: %d", ov.Items, ov.Products, ov.Processes, ov.Days),
		"",
	}
	return writeLines(w, lines)
}

// RenderPareto prints the ranked items and the vital few.
func RenderPareto(w io.Writer, res ParetoResult) error {
	if _, err := fmt.Fprintln(w, "Pareto Analysis"); err != nil {
		return err
	}
	vital := make(map[string]bool, len(res.VitalFew))
	for _, item := range res.VitalFew {
		vital[item.Item] = true
	}
	headers := []string{"#", "Item", "Defects", "Share", "Cumulative", "Cum %", ""}
	rows := make([][]string, 0, len(res.Items))
	for i, item := range res.Items {
		mark := ""
		if vital[item.Item] {
			mark = "*"
		}
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			item.Item,
			strconv.Itoa(item.DefectCount),
			fmt.Sprintf("%.1f%%", item.Share),
			strconv.Itoa(item.Cumulative),
			fmt.Sprintf("%.1f%%", item.CumulativeRatio),
			mark,
		})
	}
	if err := writeLines(w, FormatTable(headers, rows, map[int]bool{0: true, 2: true, 3: true, 4: true, 5: true})); err != nil {
		return err
	}
	summary := fmt.Sprintf("Vital few (cumulative <= %.0f%%): %s", res.Threshold, strings.Join(paretoNames(res.VitalFew), ", "))
	if len(res.VitalFew) == 0 {
		summary = fmt.Sprintf("Vital few (cumulative <= %.0f%%): none, the top item alone exceeds the threshold", res.Threshold)
	}
	return writeLines(w, []string{summary, ""})
}

// RenderCausal prints the 4M buckets.
func RenderCausal(w io.Writer, res CausalResult) error {
	if _, err := fmt.Fprintln(w, "4M Analysis"); err != nil {
		return err
	}
	for _, entry := range res.Buckets {
		if _, err := fmt.Fprintf(w, "%s (%d defects)\n", entry.Bucket, entry.Total); err != nil {
			return err
		}
		if len(entry.Causes) == 0 {
			if _, err := fmt.Fprintln(w, "  (none)"); err != nil {
				return err
			}
			continue
		}
		for _, c := range entry.Causes {
			if _, err := fmt.Fprintf(w, "  - %s: %d\n", c.Cause, c.DefectCount); err != nil {
				return err
			}
		}
	}
	if len(res.Unclassified) > 0 {
		if _, err := fmt.Fprintln(w, "Unclassified"); err != nil {
			return err
		}
		for _, c := range res.Unclassified {
			if _, err := fmt.Fprintf(w, "  - %s: %d\n", c.Cause, c.DefectCount); err != nil {
				return err
			}
		}
	}
	_, err := fmt.Fprintln(w, "")
	return err
}

// RenderDistribution prints the histogram as horizontal bars.
func RenderDistribution(w io.Writer, res DistributionResult) error {
	lines := []string{
		"Defect Rate Distribution",
		fmt.Sprintf("Mean: %.2f%%  Std dev: %.2f%%  Min: %.2f%%  Max: %.2f%%", res.Mean, res.StdDev, res.Min, res.Max),
	}
	maxCount := 0
	for _, b := range res.Bins {
		if b.Count > maxCount {
			maxCount = b.Count
		}
	}
	headers := []string{"Range", "Count", ""}
	rows := make([][]string, 0, len(res.Bins))
	for i, b := range res.Bins {
		bar := ""
		if maxCount > 0 {
			bar = strings.Repeat("#", b.Count*histogramBarWidth/maxCount)
		}
		if i == res.MeanBin {
			bar += " <- mean"
		}
		rows = append(rows, []string{
			fmt.Sprintf("%.2f-%.2f", b.Lower, b.Upper),
			strconv.Itoa(b.Count),
			bar,
		})
	}
	lines = append(lines, FormatTable(headers, rows, map[int]bool{1: true})...)
	lines = append(lines, "")
	return writeLines(w, lines)
}

// RenderCorrelation prints the coefficient and its strength.
func RenderCorrelation(w io.Writer, res CorrelationResult) error {
	return writeLines(w, []string{
		fmt.Sprintf("Scatter: %s vs %s", res.X, res.Y),
		fmt.Sprintf("Records: %d", len(res.Points)),
		fmt.Sprintf("Correlation: %.3f (%s)", res.Coefficient, res.Strength),
		"",
	})
}

// RenderControl prints the control limits, the daily table and a shared-scale chart.
func RenderControl(w io.Writer, res ControlResult, totalWidth, height int, useColor bool) error {
	lines := []string{
		"Control Chart (p-chart)",
		fmt.Sprintf("CL: %.2f%%  UCL: %.2f%%  LCL: %.2f%%  (n̄=%.1f, %.0fσ)", res.Center, res.UCL, res.LCL, res.MeanInspection, res.Sigma),
	}
	headers := []string{"Date", "Defects", "Inspected", "Rate", ""}
	rows := make([][]string, 0, len(res.Points))
	for _, p := range res.Points {
		mark := ""
		if p.IsOutlier {
			mark = "OUT"
		}
		rows = append(rows, []string{
			p.Date,
			strconv.Itoa(p.DefectCount),
			strconv.Itoa(p.InspectionCount),
			fmt.Sprintf("%.2f%%", p.Rate),
			mark,
		})
	}
	lines = append(lines, FormatTable(headers, rows, map[int]bool{1: true, 2: true, 3: true})...)
	if res.Stable() {
		lines = append(lines, "No points outside the control limits.")
	} else {
		lines = append(lines, fmt.Sprintf("%d point(s) outside the control limits.", len(res.Outliers)))
	}
	lines = append(lines, "")
	if err := writeLines(w, lines); err != nil {
		return err
	}

	n := len(res.Points)
	return PlotSeries(w, "Daily Defect Rate", []Series{
		{Name: "Rate", Values: res.Rates()},
		{Name: "UCL", Values: constantSeries(res.UCL, n)},
		{Name: "CL", Values: constantSeries(res.Center, n)},
		{Name: "LCL", Values: constantSeries(res.LCL, n)},
	}, plotOptions(totalWidth, height, useColor))
}

func plotOptions(totalWidth, height int, useColor bool) PlotOptions {
	opts := PlotOptions{Height: height, Color: useColor}
	if totalWidth > 0 {
		opts.Width = PlotWidthFor(totalWidth)
	}
	return opts
}

// RenderChecklist prints per-item tallies and their top causes.
func RenderChecklist(w io.Writer, entries []ChecklistEntry) error {
	if _, err := fmt.Fprintln(w, "Check Sheet by Defect Item"); err != nil {
		return err
	}
	headers := []string{"Item", "Occurrences", "Defects", "Top causes"}
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		causes := make([]string, len(e.TopCauses))
		for i, c := range e.TopCauses {
			causes[i] = fmt.Sprintf("%s (%d)", c.Cause, c.Occurrences)
		}
		rows = append(rows, []string{
			e.Item,
			strconv.Itoa(e.Occurrences),
			strconv.Itoa(e.DefectCount),
			strings.Join(causes, ", "),
		})
	}
	if err := writeLines(w, FormatTable(headers, rows, map[int]bool{1: true, 2: true})); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w, "")
	return err
}

// RenderComparison prints per-group values. Rate series also get a
// sparkline, and the date series is charted with its moving average.
func RenderComparison(w io.Writer, res ComparisonResult, totalWidth int, useColor bool) error {
	title := fmt.Sprintf("Defect rate by %s", res.Dimension)
	valueHeader := "Rate"
	if res.Metric == MetricShare {
		title = fmt.Sprintf("Defect share by %s", res.Dimension)
		valueHeader = "Share"
	}
	headers := []string{strings.ToUpper(res.Dimension.String()[:1]) + res.Dimension.String()[1:], "Defects", "Inspected", valueHeader}
	smoothed := false
	for _, r := range res.Rows {
		if r.Smoothed != r.Value {
			smoothed = true
			break
		}
	}
	if smoothed {
		headers = append(headers, "Smoothed")
	}
	rows := make([][]string, 0, len(res.Rows))
	for _, r := range res.Rows {
		row := []string{
			r.Key,
			strconv.Itoa(r.DefectCount),
			strconv.Itoa(r.InspectionCount),
			fmt.Sprintf("%.2f%%", r.Value),
		}
		if res.Metric == MetricShare {
			row[3] = fmt.Sprintf("%.1f%%", r.Value)
		}
		if smoothed {
			row = append(row, fmt.Sprintf("%.2f%%", r.Smoothed))
		}
		rows = append(rows, row)
	}
	lines := []string{title}
	lines = append(lines, FormatTable(headers, rows, map[int]bool{1: true, 2: true, 3: true, 4: true})...)
	if len(res.Rows) > 1 && res.Metric == MetricRate {
		lines = append(lines, "Trend: "+Sparkline(res.Values()))
	}
	lines = append(lines, "")
	if err := writeLines(w, lines); err != nil {
		return err
	}
	if res.Dimension != model.ByDate || len(res.Rows) < 2 {
		return nil
	}
	series := []Series{{Name: "Rate", Values: res.Values()}}
	if smoothed {
		series = append(series, Series{Name: "Moving average", Values: res.SmoothedValues()})
	}
	return PlotSeries(w, "Daily Defect Rate", series, plotOptions(totalWidth, comparePlotHeight, useColor))
}

// RenderTrend prints the first/last movement of a daily rate series.
func RenderTrend(w io.Writer, res TrendResult) error {
	return writeLines(w, []string{
		"Time Series",
		fmt.Sprintf("First: %.2f%%  Last: %.2f%%  Change: %+.2f%% (%s)", res.First, res.Last, res.Change, res.Direction),
		fmt.Sprintf("Max: %.2f%%  Min: %.2f%%  Mean: %.2f%%", res.Max, res.Min, res.Mean),
		"Trend: " + Sparkline(res.Rates),
		"",
	})
}

func paretoNames(items []ParetoItem) []string {
	names := make([]string, len(items))
	for i, item := range items {
		names[i] = item.Item
	}
	return names
}

func constantSeries(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func writeLines(w io.Writer, lines []string) error {
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}
