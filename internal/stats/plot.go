package stats

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/term"
)

// Series is a named value series drawn on a plot.
type Series struct {
	Name   string
	Values []float64
}

// PlotOptions sizes a plot. Zero width follows the terminal, zero height
// uses the default. Color forces ANSI colors even when w is not a terminal.
type PlotOptions struct {
	Width  int
	Height int
	Color  bool
}

type lineStyle struct {
	name   string
	period int
	on     int
}

const (
	defaultPlotHeight = 10
	minPlotWidth      = 10
	// valueLabelWidth is reserved left of the axis for labels such as "100.0".
	valueLabelWidth     = 6
	axisSeparator       = " │ "
	colorReset          = "\x1b[0m"
	terminalWidthBackup = 80
)

var lineStyles = []lineStyle{
	{name: "solid", period: 1, on: 1},
	{name: "dashed", period: 6, on: 3},
	{name: "dotted", period: 4, on: 1},
	{name: "dashdot", period: 8, on: 3},
}

var seriesColors = []string{
	"\x1b[36m", // cyan
	"\x1b[35m", // magenta
	"\x1b[33m", // yellow
	"\x1b[32m", // green
	"\x1b[34m", // blue
}

// brailleBits maps a dot at (row%4, col%2) inside a cell to its bit.
var brailleBits = [4][2]uint8{
	{0x01, 0x08},
	{0x02, 0x10},
	{0x04, 0x20},
	{0x40, 0x80},
}

// PlotSeries draws every series as a braille line against one value axis,
// so reference lines such as control limits line up with the data.
func PlotSeries(w io.Writer, title string, series []Series, opts PlotOptions) error {
	series = nonEmptySeries(series)
	if len(series) == 0 {
		return nil
	}
	width, height := opts.Width, opts.Height
	if width <= 0 {
		width = PlotWidthFor(terminalWidth())
	}
	width = max(width, minPlotWidth)
	if height <= 0 {
		height = defaultPlotHeight
	}

	lo, hi := valueRange(series)
	canvases := make([]canvas, len(series))
	for i, s := range series {
		canvases[i] = newCanvas(width, height)
		canvases[i].polyline(resample(s.Values, width), lo, hi, lineStyles[i%len(lineStyles)])
	}

	color := shouldUseColor(w, opts.Color)
	labels := valueLabels(height, lo, hi)
	labelWidth := valueLabelWidth
	for _, l := range labels {
		labelWidth = max(labelWidth, utf8.RuneCountInString(l))
	}

	lines := make([]string, 0, height+3)
	if title != "" {
		lines = append(lines, title)
	}
	for y := 0; y < height; y++ {
		var row strings.Builder
		fmt.Fprintf(&row, "%*s%s", labelWidth, labels[y], axisSeparator)
		for x := 0; x < width; x++ {
			mask, owner := overlay(canvases, x, y)
			ch := rune(0x2800 + int(mask))
			if color && owner >= 0 {
				row.WriteString(seriesColors[owner%len(seriesColors)])
				row.WriteRune(ch)
				row.WriteString(colorReset)
				continue
			}
			row.WriteRune(ch)
		}
		lines = append(lines, row.String())
	}
	lines = append(lines, legend(series, color), "")
	return writeLines(w, lines)
}

// PlotWidthFor returns the plot columns that fit in totalWidth next to the value axis.
func PlotWidthFor(totalWidth int) int {
	if totalWidth <= 0 {
		return minPlotWidth
	}
	return max(totalWidth-valueLabelWidth-utf8.RuneCountInString(axisSeparator), minPlotWidth)
}

// valueRange spans every value of every series. A flat range is widened by
// one unit each way, never below zero for non-negative data.
func valueRange(series []Series) (float64, float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, s := range series {
		for _, v := range s.Values {
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
	}
	if hi-lo < 1e-9 {
		if lo >= 0 {
			lo = math.Max(0, lo-1)
		} else {
			lo--
		}
		hi++
	}
	return lo, hi
}

func valueLabels(height int, lo, hi float64) []string {
	labels := make([]string, height)
	labels[0] = fmt.Sprintf("%.1f", hi)
	if height > 2 {
		labels[height/2] = fmt.Sprintf("%.1f", (lo+hi)/2)
	}
	if height > 1 {
		labels[height-1] = fmt.Sprintf("%.1f", lo)
	}
	return labels
}

func nonEmptySeries(series []Series) []Series {
	out := make([]Series, 0, len(series))
	for _, s := range series {
		if len(s.Values) > 0 {
			out = append(out, s)
		}
	}
	return out
}

// resample stretches or squeezes values to n points: bucket means when
// shrinking, linear interpolation when growing.
func resample(values []float64, n int) []float64 {
	out := make([]float64, n)
	switch {
	case len(values) == n:
		copy(out, values)
	case len(values) > n:
		for i := range out {
			start := i * len(values) / n
			end := max((i+1)*len(values)/n, start+1)
			var sum float64
			for _, v := range values[start:end] {
				sum += v
			}
			out[i] = sum / float64(end-start)
		}
	case len(values) == 1 || n == 1:
		for i := range out {
			out[i] = values[0]
		}
	default:
		last := len(values) - 1
		for i := range out {
			pos := float64(i) * float64(last) / float64(n-1)
			idx := int(pos)
			if idx >= last {
				out[i] = values[last]
				continue
			}
			frac := pos - float64(idx)
			out[i] = values[idx] + (values[idx+1]-values[idx])*frac
		}
	}
	return out
}

// canvas holds braille masks per character cell, [row][column].
// Dot coordinates are twice as wide and four times as tall.
type canvas [][]uint8

func newCanvas(width, height int) canvas {
	c := make(canvas, height)
	for y := range c {
		c[y] = make([]uint8, width)
	}
	return c
}

func (c canvas) dotRows() int {
	return len(c) * 4
}

func (c canvas) set(x, y int) {
	cy, cx := y/4, x/2
	if x < 0 || y < 0 || cy >= len(c) || cx >= len(c[cy]) {
		return
	}
	c[cy][cx] |= brailleBits[y%4][x%2]
}

func (c canvas) polyline(values []float64, lo, hi float64, style lineStyle) {
	rows := c.dotRows()
	toRow := func(v float64) int {
		if rows <= 1 {
			return 0
		}
		row := int(math.Round((1 - (v-lo)/(hi-lo)) * float64(rows-1)))
		return min(max(row, 0), rows-1)
	}
	plot := func(x, y int) {
		if style.draws(x) {
			c.set(x, y)
		}
	}
	for i, v := range values {
		x, y := i*2, toRow(v)
		if i == 0 {
			plot(x, y)
			continue
		}
		bresenham((i-1)*2, toRow(values[i-1]), x, y, plot)
	}
}

func (ls lineStyle) draws(x int) bool {
	if ls.period <= 1 {
		return true
	}
	if x < 0 {
		x = -x
	}
	return x%ls.period < ls.on
}

func bresenham(x0, y0, x1, y1 int, plot func(x, y int)) {
	dx, dy := abs(x1-x0), -abs(y1-y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	e := dx + dy
	for {
		plot(x0, y0)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x0 += sx
		}
		if e2 <= dx {
			e += dx
			y0 += sy
		}
	}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// overlay merges the cell masks of every canvas; owner is the first series
// with a dot in the cell, or -1.
func overlay(canvases []canvas, x, y int) (mask uint8, owner int) {
	owner = -1
	for i, c := range canvases {
		if m := c[y][x]; m != 0 {
			if owner < 0 {
				owner = i
			}
			mask |= m
		}
	}
	return mask, owner
}

func legend(series []Series, color bool) string {
	parts := make([]string, len(series))
	for i, s := range series {
		label := fmt.Sprintf("⠁ %s (%s)", s.Name, lineStyles[i%len(lineStyles)].name)
		if color {
			label = seriesColors[i%len(seriesColors)] + label + colorReset
		}
		parts[i] = label
	}
	return "Legend: " + strings.Join(parts, "  ")
}

func terminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return terminalWidthBackup
	}
	return width
}

func shouldUseColor(w io.Writer, force bool) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if force {
		return true
	}
	file, ok := w.(*os.File)
	return ok && term.IsTerminal(int(file.Fd()))
}
