package stats

import (
	"bytes"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestPlotWidthFor(t *testing.T) {
	cases := map[int]int{
		0:   minPlotWidth,
		12:  minPlotWidth,
		60:  51,
		80:  71,
		120: 111,
	}
	for total, want := range cases {
		if got := PlotWidthFor(total); got != want {
			t.Fatalf("PlotWidthFor(%d) = %d, want %d", total, got, want)
		}
	}
}

// Plot rows must fit the widths the dashboard and the CLI pass in.
func TestRenderControlFitsWidth(t *testing.T) {
	res := ControlResult{
		Points: []ControlPoint{{Date: "2024-01-01", Rate: 12.5}, {Date: "2024-01-02", Rate: 40}},
		Center: 26.25,
		UCL:    100,
		Sigma:  3,
	}
	for _, total := range []int{60, 80, 120} {
		var buf bytes.Buffer
		if err := RenderControl(&buf, res, total, 5, false); err != nil {
			t.Fatalf("render: %v", err)
		}
		rows := 0
		for _, line := range strings.Split(buf.String(), "\n") {
			if !strings.Contains(line, axisSeparator) {
				continue
			}
			rows++
			if got := utf8.RuneCountInString(line); got != total {
				t.Fatalf("width %d: plot row is %d runes: %q", total, got, line)
			}
		}
		if rows != 5 {
			t.Fatalf("width %d: expected 5 plot rows, got %d", total, rows)
		}
	}
}
