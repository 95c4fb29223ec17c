// Package dashboard provides the Bubble Tea analysis browser.
package dashboard

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"go.uber.org/zap"

	"github.com/verte-zerg/qc7/internal/checklist"
	"github.com/verte-zerg/qc7/internal/logging"
	"github.com/verte-zerg/qc7/internal/model"
	"github.com/verte-zerg/qc7/internal/records"
	"github.com/verte-zerg/qc7/internal/stats"
)

const (
	tabOverview = iota
	tabPareto
	tabCausal
	tabDistribution
	tabControl
	tabCompare
	tabCheckSheet
)

const (
	plotHeight = 10
)

const (
	inputProducts = iota
	inputProcesses
	inputItems
	inputSince
	inputUntil
	inputSigma
	inputBins
)

var compareDimensions = []model.Dimension{model.ByProcess, model.ByProduct, model.ByDate, model.ByCause}

var (
	activeNavStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F0F0F0")).
			Bold(true).
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#C89A3A"))
	inactiveNavStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#B0B0B0")).
				Padding(0, 1).
				Border(lipgloss.RoundedBorder(), true).
				BorderForeground(lipgloss.Color("#4A4A4A"))
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	cardStyle   = lipgloss.NewStyle().
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#4A4A4A"))
	cardTitleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	cardValueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	tableMutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#B8B8B8"))
)

// Loader fetches a named dataset.
type Loader interface {
	LoadDataset(ctx context.Context, name string) (model.Dataset, error)
}

// Options configures the browser.
type Options struct {
	Dataset   string
	Filter    records.Filter
	Analysis  stats.Options
	Checklist []string
	// Window smooths the date comparison; values below 2 disable it.
	Window int
	Logger *zap.Logger
}

// Model implements the Bubble Tea analysis UI.
type Model struct {
	loader Loader
	name   string
	logger *zap.Logger

	base     model.Dataset
	filter   records.Filter
	analysis stats.Options

	report     stats.Report
	compare    stats.ComparisonResult
	compareErr error
	compareDim int
	window     int
	sheet      checklist.Sheet
	errMsg     string

	tabs        []string
	activeTab   int
	viewports   []viewport.Model
	paretoTable table.Model
	tableLayout tableLayout

	width  int
	height int

	filterMode   bool
	filterInputs []textinput.Model
	filterIndex  int
	filterError  string
}

type tableLayout struct {
	width  int
	height int
}

// NewModel constructs a browser that loads the named dataset through loader.
func NewModel(loader Loader, opts Options) *Model {
	m := newModel(opts)
	m.loader = loader
	m.reload()
	return m
}

// NewModelFromDataset constructs a browser over an in-memory dataset.
func NewModelFromDataset(ds model.Dataset, opts Options) *Model {
	m := newModel(opts)
	m.base = ds
	m.refreshReport()
	return m
}

func newModel(opts Options) *Model {
	items := opts.Checklist
	if len(items) == 0 {
		items = checklist.DefaultItems()
	}
	analysis := opts.Analysis
	if analysis.Rules.IsZero() {
		analysis.Rules = stats.DefaultRules()
	}
	if analysis.Bins <= 0 {
		analysis.Bins = stats.DefaultBins
	}
	if analysis.Sigma <= 0 {
		analysis.Sigma = stats.DefaultSigma
	}
	if analysis.VitalFewThreshold <= 0 {
		analysis.VitalFewThreshold = stats.DefaultVitalFewThreshold
	}
	m := &Model{
		name:     opts.Dataset,
		logger:   logging.Component(opts.Logger, "dashboard"),
		filter:   opts.Filter,
		analysis: analysis,
		window:   opts.Window,
		sheet:    checklist.NewSheet(items),
		tabs:     []string{"Overview", "Pareto", "4M", "Distribution", "Control", "Compare", "Check Sheet"},
	}
	m.initInputs()
	m.paretoTable = buildParetoTable(nil, 0, 1)
	m.initViewports()
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateLayout()
		m.renderTabContents()
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || (!m.filterMode && msg.String() == "q") {
			return m, tea.Quit
		}
		if m.filterMode {
			return m.updateFilter(msg)
		}
		switch msg.String() {
		case "left", "h":
			m.moveTab(-1)
			return m, tea.ClearScreen
		case "right", "l":
			m.moveTab(1)
			return m, tea.ClearScreen
		case "/":
			return m.startFilter()
		case "r":
			m.reload()
			m.updateLayout()
			return m, nil
		case "d":
			if m.activeTab == tabCompare {
				m.compareDim = (m.compareDim + 1) % len(compareDimensions)
				m.refreshCompare()
				m.renderTabContents()
			}
			return m, nil
		case "=":
			m.window = nextWindow(m.window)
			m.refreshCompare()
			m.renderTabContents()
			return m, nil
		case "-":
			m.window = prevWindow(m.window)
			m.refreshCompare()
			m.renderTabContents()
			return m, nil
		case "g", "home":
			if m.activeTab == tabPareto {
				m.paretoTable.GotoTop()
			} else {
				m.viewports[m.activeTab].GotoTop()
			}
			return m, nil
		case "G", "end":
			if m.activeTab == tabPareto {
				m.paretoTable.GotoBottom()
			} else {
				m.viewports[m.activeTab].GotoBottom()
			}
			return m, nil
		}
		if m.activeTab == tabCheckSheet {
			if n, err := strconv.Atoi(msg.String()); err == nil && n >= 1 {
				m.sheet.Toggle(n - 1)
				m.renderTabContents()
				return m, nil
			}
		}
		if m.activeTab == tabPareto {
			var cmd tea.Cmd
			m.paretoTable, cmd = m.paretoTable.Update(msg)
			return m, cmd
		}
		vp := m.viewports[m.activeTab]
		var cmd tea.Cmd
		vp, cmd = vp.Update(msg)
		m.viewports[m.activeTab] = vp
		return m, cmd
	}
	return m, nil
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	headerHeight, bodyHeight, footerHeight := m.layoutHeights()
	header := fitLines(m.renderHeader(), m.width, headerHeight)
	body := fitLines(m.renderBody(bodyHeight), m.width, bodyHeight)
	footer := fitLines(m.renderFooter(), m.width, footerHeight)
	return strings.Join([]string{header, body, footer}, "\n")
}

func (m *Model) initViewports() {
	m.viewports = make([]viewport.Model, len(m.tabs))
	for i := range m.viewports {
		m.viewports[i] = viewport.New(0, 0)
	}
}

func (m *Model) initInputs() {
	m.filterInputs = []textinput.Model{
		inputProducts:  newFilterInput("Products: "),
		inputProcesses: newFilterInput("Processes: "),
		inputItems:     newFilterInput("Defect items: "),
		inputSince:     newFilterInput("Since (YYYY-MM-DD): "),
		inputUntil:     newFilterInput("Until (YYYY-MM-DD): "),
		inputSigma:     newFilterInput("Sigma: "),
		inputBins:      newFilterInput("Histogram bins: "),
	}
	m.setInputsFromFilter()
}

func newFilterInput(prompt string) textinput.Model {
	input := textinput.New()
	input.Prompt = prompt
	input.CharLimit = 0
	input.Cursor.SetMode(cursor.CursorBlink)
	return input
}

func (m *Model) setInputsFromFilter() {
	m.filterInputs[inputProducts].SetValue(strings.Join(m.filter.Products, ", "))
	m.filterInputs[inputProcesses].SetValue(strings.Join(m.filter.Processes, ", "))
	m.filterInputs[inputItems].SetValue(strings.Join(m.filter.Items, ", "))
	m.filterInputs[inputSince].SetValue(formatDate(m.filter.Since))
	m.filterInputs[inputUntil].SetValue(formatDate(m.filter.Until))
	m.filterInputs[inputSigma].SetValue(strconv.FormatFloat(m.analysis.Sigma, 'g', -1, 64))
	m.filterInputs[inputBins].SetValue(strconv.Itoa(m.analysis.Bins))
}

func (m *Model) layoutHeights() (headerHeight, bodyHeight, footerHeight int) {
	tabsHeight := lipgloss.Height(activeNavStyle.Render("X"))
	if tabsHeight < 1 {
		tabsHeight = 1
	}
	headerHeight = tabsHeight + 1
	footerHeight = 1
	if !m.filterMode && m.errMsg != "" {
		footerHeight++
	}
	bodyHeight = m.height - headerHeight - footerHeight
	if bodyHeight < 1 {
		bodyHeight = 1
	}
	return headerHeight, bodyHeight, footerHeight
}

func (m *Model) updateLayout() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	_, vpHeight, _ := m.layoutHeights()
	for i := range m.viewports {
		m.viewports[i].Width = m.width
		m.viewports[i].Height = vpHeight
	}
	m.setTableSize(m.width, vpHeight)
	for i := range m.filterInputs {
		promptWidth := lipgloss.Width(m.filterInputs[i].Prompt)
		m.filterInputs[i].Width = maxInt(10, m.width-promptWidth-2)
	}
}

func (m *Model) moveTab(delta int) {
	count := len(m.tabs)
	if count == 0 {
		return
	}
	next := m.activeTab + delta
	if next < 0 {
		next = count - 1
	}
	if next >= count {
		next = 0
	}
	m.activeTab = next
	if m.activeTab == tabPareto {
		m.paretoTable.Focus()
	} else {
		m.paretoTable.Blur()
	}
}

func (m *Model) renderTabs() string {
	parts := make([]string, 0, len(m.tabs))
	for i, tab := range m.tabs {
		if i == m.activeTab {
			parts = append(parts, activeNavStyle.Render(tab))
		} else {
			parts = append(parts, inactiveNavStyle.Render(tab))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m *Model) renderHeader() string {
	tabs := padLines(m.renderTabs(), m.width)
	filters := padLines(m.renderFilterSummary(), m.width)
	return tabs + "\n" + filters
}

func (m *Model) renderFilterSummary() string {
	name := m.name
	if name == "" {
		name = "(file)"
	}
	summary := fmt.Sprintf("Dataset: %s  products=%s  processes=%s  items=%s  since=%s  until=%s  sigma=%g  bins=%d",
		name,
		listOrAny(m.filter.Products),
		listOrAny(m.filter.Processes),
		listOrAny(m.filter.Items),
		orAny(formatDate(m.filter.Since)),
		orAny(formatDate(m.filter.Until)),
		m.analysis.Sigma,
		m.analysis.Bins,
	)
	summary = truncateLine(summary, m.width)
	return headerStyle.Render(summary)
}

func (m *Model) renderHelp() string {
	help := "Nav: left/right  Scroll: up/down/pgup/pgdn  Filter: /  Reload: r  Quit: q"
	switch m.activeTab {
	case tabCompare:
		help = "Nav: left/right  Scroll: up/down  Dimension: d  Window: -/=  Filter: /  Quit: q"
	case tabCheckSheet:
		help = "Nav: left/right  Scroll: up/down  Toggle item: 1-9  Filter: /  Quit: q"
	}
	return headerStyle.Render(help)
}

func (m *Model) renderFilterHelp() string {
	return headerStyle.Render("tab/shift+tab: next field  enter: apply  esc: cancel  ctrl+c: quit")
}

func (m *Model) renderFooter() string {
	if m.filterMode {
		return m.renderFilterHelp()
	}
	if m.errMsg != "" {
		return m.renderHelp() + "\n" + errorStyle.Render(m.errMsg)
	}
	return m.renderHelp()
}

func (m *Model) renderFilterForm() string {
	lines := []string{"Filter (comma-separated lists; enter to apply, esc to cancel)"}
	for _, input := range m.filterInputs {
		lines = append(lines, input.View())
	}
	if m.filterError != "" {
		lines = append(lines, errorStyle.Render(m.filterError))
	}
	return strings.Join(lines, "\n")
}

func (m *Model) renderBody(height int) string {
	if m.filterMode {
		return fitLines(m.renderFilterForm(), m.width, height)
	}
	if m.activeTab == tabPareto {
		if err := m.report.Err(stats.AnalysisPareto); err != nil {
			return fitLines(unavailable("Pareto analysis", err), m.width, height)
		}
		view := tableMutedStyle.Render(m.paretoTable.View())
		summary := headerStyle.Render(vitalFewLine(m.report.Pareto))
		return fitLines(view+"\n"+summary, m.width, height)
	}
	return fitLines(m.viewports[m.activeTab].View(), m.width, height)
}

// reload fetches the dataset again and recomputes every analysis.
func (m *Model) reload() {
	if m.loader == nil {
		m.refreshReport()
		return
	}
	ds, err := m.loader.LoadDataset(context.Background(), m.name)
	if err != nil {
		m.logger.Warn("failed to load dataset", zap.String("dataset", m.name), zap.Error(err))
		m.errMsg = err.Error()
		m.base = model.Dataset{}
		for i := range m.viewports {
			m.viewports[i].SetContent("Failed to load dataset.")
		}
		return
	}
	m.errMsg = ""
	m.base = ds
	m.refreshReport()
}

func (m *Model) refreshReport() {
	ds := m.filter.Apply(m.base)
	m.report = stats.Analyze(ds, m.analysis)
	for name, err := range m.report.Errors {
		m.logger.Debug("analysis unavailable", zap.String("analysis", name), zap.Error(err))
	}
	m.refreshCompare()
	width := m.width
	if width <= 0 {
		width = 80
	}
	_, bodyHeight, _ := m.layoutHeights()
	m.applyParetoTable(width, bodyHeight)
	m.renderTabContents()
}

func (m *Model) refreshCompare() {
	m.compare, m.compareErr = stats.Compare(m.report.Dataset, compareDimensions[m.compareDim], m.window)
}

func (m *Model) renderTabContents() {
	if len(m.viewports) == 0 || m.errMsg != "" {
		return
	}
	width := m.width
	if width <= 0 {
		width = 80
	}
	m.viewports[tabOverview].SetContent(m.renderOverview(width))
	m.viewports[tabCausal].SetContent(renderAnalysis(m.report, stats.AnalysisCausal, "4M analysis", func(b *bytes.Buffer) error {
		return stats.RenderCausal(b, m.report.Causal)
	}))
	m.viewports[tabDistribution].SetContent(renderAnalysis(m.report, stats.AnalysisDistribution, "Distribution", func(b *bytes.Buffer) error {
		return stats.RenderDistribution(b, m.report.Distribution)
	}))
	m.viewports[tabControl].SetContent(renderAnalysis(m.report, stats.AnalysisControl, "Control chart", func(b *bytes.Buffer) error {
		return stats.RenderControl(b, m.report.Control, width, plotHeight, true)
	}))
	m.viewports[tabCompare].SetContent(m.renderCompare())
	m.viewports[tabCheckSheet].SetContent(m.renderCheckSheet())
}

func (m *Model) renderOverview(width int) string {
	if err := m.report.Err(stats.AnalysisOverview); err != nil {
		return unavailable("Overview", err)
	}
	ov := m.report.Overview
	cards := []string{
		metricCard("Records", strconv.Itoa(ov.Records)),
		metricCard("Inspected", strconv.Itoa(ov.InspectionCount)),
		metricCard("Defects", strconv.Itoa(ov.DefectCount)),
		metricCard("Defect rate", fmt.Sprintf("%.2f%%", ov.Rate)),
		metricCard("Days", strconv.Itoa(ov.Days)),
		metricCard("Items", strconv.Itoa(ov.Items)),
	}
	var summary string
	if width < 80 {
		summary = strings.Join(cards, "\n")
	} else {
		row1 := lipgloss.JoinHorizontal(lipgloss.Top, cards[0], cards[1], cards[2])
		row2 := lipgloss.JoinHorizontal(lipgloss.Top, cards[3], cards[4], cards[5])
		summary = lipgloss.JoinVertical(lipgloss.Left, row1, row2)
	}
	trend := renderAnalysis(m.report, stats.AnalysisTrend, "Time series", func(b *bytes.Buffer) error {
		return stats.RenderTrend(b, m.report.Trend)
	})
	return strings.TrimRight(summary+"\n\n"+m.renderHotspots()+"\n\n"+trend, "\n")
}

func (m *Model) renderHotspots() string {
	if err := m.report.Err(stats.AnalysisHotspots); err != nil {
		return unavailable("Hotspots", err)
	}
	parts := make([]string, len(m.report.Hotspots))
	for i, g := range m.report.Hotspots {
		parts[i] = fmt.Sprintf("%s %.2f%%", g.Key, g.Rate())
	}
	return "Highest-rate processes: " + strings.Join(parts, ", ")
}

func (m *Model) renderCompare() string {
	if m.compareErr != nil {
		return unavailable("Comparison", m.compareErr)
	}
	var buf bytes.Buffer
	width := m.width
	if width <= 0 {
		width = 80
	}
	if err := stats.RenderComparison(&buf, m.compare, width, true); err != nil {
		return fmt.Sprintf("Failed to render comparison: %v", err)
	}
	header := headerStyle.Render(fmt.Sprintf("Dimension: %s  Window: %s", compareDimensions[m.compareDim], windowLabel(m.window)))
	return strings.TrimRight(header+"\n"+buf.String(), "\n")
}

func (m *Model) renderCheckSheet() string {
	tallies := renderAnalysis(m.report, stats.AnalysisChecklist, "Check sheet", func(b *bytes.Buffer) error {
		return stats.RenderChecklist(b, m.report.Checklist)
	})
	var buf bytes.Buffer
	title := fmt.Sprintf("Inspection items (%d/%d checked)", m.sheet.Done(), len(m.sheet.Items))
	if err := checklist.Render(&buf, title, m.sheet); err != nil {
		return fmt.Sprintf("Failed to render check sheet: %v", err)
	}
	return strings.TrimRight(tallies+"\n"+buf.String(), "\n")
}

func renderAnalysis(report stats.Report, name, label string, render func(*bytes.Buffer) error) string {
	if err := report.Err(name); err != nil {
		return unavailable(label, err)
	}
	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		return fmt.Sprintf("Failed to render %s: %v", strings.ToLower(label), err)
	}
	return strings.TrimRight(buf.String(), "\n")
}

func unavailable(label string, err error) string {
	return fmt.Sprintf("%s unavailable: %v", label, err)
}

func metricCard(label, value string) string {
	content := fmt.Sprintf("%s\n%s", cardTitleStyle.Render(label), cardValueStyle.Render(value))
	return cardStyle.Render(content)
}

func vitalFewLine(res stats.ParetoResult) string {
	names := make([]string, len(res.VitalFew))
	for i, item := range res.VitalFew {
		names[i] = item.Item
	}
	if len(names) == 0 {
		return fmt.Sprintf("Vital few (<= %.0f%%): none", res.Threshold)
	}
	return fmt.Sprintf("Vital few (<= %.0f%%): %s", res.Threshold, strings.Join(names, ", "))
}

func paretoColumns(items []stats.ParetoItem) []table.Column {
	itemWidth := 4
	for _, item := range items {
		itemWidth = maxInt(itemWidth, runewidth.StringWidth(item.Item))
	}
	return []table.Column{
		{Title: "#", Width: 3},
		{Title: "Item", Width: minInt(itemWidth, 32)},
		{Title: "Defects", Width: 7},
		{Title: "Share", Width: 7},
		{Title: "Cumulative", Width: 10},
		{Title: "Cum %", Width: 7},
		{Title: "Vital", Width: 5},
	}
}

func paretoRows(res stats.ParetoResult) []table.Row {
	vital := make(map[string]bool, len(res.VitalFew))
	for _, item := range res.VitalFew {
		vital[item.Item] = true
	}
	rows := make([]table.Row, 0, len(res.Items))
	for i, item := range res.Items {
		mark := ""
		if vital[item.Item] {
			mark = "*"
		}
		rows = append(rows, table.Row{
			strconv.Itoa(i + 1),
			item.Item,
			strconv.Itoa(item.DefectCount),
			fmt.Sprintf("%.1f%%", item.Share),
			strconv.Itoa(item.Cumulative),
			fmt.Sprintf("%.1f%%", item.CumulativeRatio),
			mark,
		})
	}
	return rows
}

func buildParetoTable(items []stats.ParetoItem, width, height int) table.Model {
	t := table.New(
		table.WithColumns(paretoColumns(items)),
		table.WithRows(nil),
		table.WithHeight(maxInt(1, height-1)),
	)
	t.SetWidth(width)
	t.SetStyles(tableStyles())
	return t
}

func (m *Model) applyParetoTable(width, height int) {
	rows := paretoRows(m.report.Pareto)
	m.paretoTable.SetColumns(paretoColumns(m.report.Pareto.Items))
	m.paretoTable.SetRows(rows)
	m.tableLayout.width = 0
	m.setTableSize(width, height)
}

// setTableSize leaves one body line for the vital-few summary.
func (m *Model) setTableSize(width, height int) {
	viewportHeight := maxInt(1, height-2)
	if m.tableLayout.width == width && m.tableLayout.height == viewportHeight {
		return
	}
	m.tableLayout.width = width
	m.tableLayout.height = viewportHeight
	m.paretoTable.SetWidth(width)
	m.paretoTable.SetHeight(viewportHeight)
	viewportHeight = m.adjustTableHeight(height - 1)
	if m.tableLayout.height != viewportHeight {
		m.tableLayout.height = viewportHeight
		m.paretoTable.SetHeight(viewportHeight)
	}
}

func tableStyles() table.Styles {
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(lipgloss.Color("#4A4A4A")).
		Foreground(lipgloss.Color("#C0C0C0")).
		Bold(true).
		Padding(0, 1).
		PaddingLeft(0)
	styles.Cell = styles.Cell.
		Padding(0, 1).
		PaddingLeft(0)
	styles.Selected = styles.Cell.
		Foreground(lipgloss.Color("#F0F0F0")).
		Bold(true)
	return styles
}

func (m *Model) adjustTableHeight(bodyHeight int) int {
	target := maxInt(1, bodyHeight)
	height := m.paretoTable.Height()
	viewHeight := lipgloss.Height(m.paretoTable.View())
	if viewHeight == target {
		return height
	}
	height += target - viewHeight
	if height < 1 {
		height = 1
	}
	m.paretoTable.SetHeight(height)
	viewHeight = lipgloss.Height(m.paretoTable.View())
	if viewHeight == target {
		return height
	}
	height += target - viewHeight
	if height < 1 {
		height = 1
	}
	return height
}

func (m *Model) startFilter() (tea.Model, tea.Cmd) {
	m.filterMode = true
	m.filterError = ""
	m.setInputsFromFilter()
	return m, m.setFilterIndex(0)
}

func (m *Model) updateFilter(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.filterMode = false
		m.filterError = ""
		return m, nil
	case tea.KeyEnter:
		if err := m.applyFilter(); err != nil {
			m.filterError = err.Error()
			return m, nil
		}
		m.filterMode = false
		m.filterError = ""
		m.refreshReport()
		m.updateLayout()
		return m, nil
	case tea.KeyTab:
		return m, m.setFilterIndex(m.filterIndex + 1)
	case tea.KeyShiftTab:
		return m, m.setFilterIndex(m.filterIndex - 1)
	}
	var cmd tea.Cmd
	m.filterInputs[m.filterIndex], cmd = m.filterInputs[m.filterIndex].Update(msg)
	return m, cmd
}

func (m *Model) setFilterIndex(idx int) tea.Cmd {
	count := len(m.filterInputs)
	if count == 0 {
		return nil
	}
	if idx < 0 {
		idx = count - 1
	}
	if idx >= count {
		idx = 0
	}
	m.filterIndex = idx
	var cmd tea.Cmd
	for i := range m.filterInputs {
		if i == m.filterIndex {
			cmd = m.filterInputs[i].Focus()
		} else {
			m.filterInputs[i].Blur()
		}
	}
	return cmd
}

func (m *Model) applyFilter() error {
	value := func(i int) string {
		return strings.TrimSpace(m.filterInputs[i].Value())
	}
	since, err := parseOptionalDate(value(inputSince))
	if err != nil {
		return fmt.Errorf("invalid since date (expected YYYY-MM-DD)")
	}
	until, err := parseOptionalDate(value(inputUntil))
	if err != nil {
		return fmt.Errorf("invalid until date (expected YYYY-MM-DD)")
	}
	if since != nil && until != nil && until.Before(*since) {
		return fmt.Errorf("until date is before since date")
	}

	sigma := stats.DefaultSigma
	if v := value(inputSigma); v != "" {
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil || parsed <= 0 {
			return fmt.Errorf("invalid sigma (use a positive number)")
		}
		sigma = parsed
	}
	bins := stats.DefaultBins
	if v := value(inputBins); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 {
			return fmt.Errorf("invalid histogram bins (use integer >= 1)")
		}
		bins = parsed
	}

	m.filter = records.Filter{
		Products:  splitList(value(inputProducts)),
		Processes: splitList(value(inputProcesses)),
		Items:     splitList(value(inputItems)),
		Causes:    m.filter.Causes,
		Since:     since,
		Until:     until,
	}
	m.analysis.Sigma = sigma
	m.analysis.Bins = bins
	return nil
}

func parseOptionalDate(v string) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	t, err := records.ParseDate(v)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func splitList(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(model.DateLayout)
}

func orAny(s string) string {
	if s == "" {
		return "any"
	}
	return s
}

func listOrAny(values []string) string {
	return orAny(strings.Join(values, ","))
}

func windowLabel(n int) string {
	if n < 2 {
		return "off"
	}
	return strconv.Itoa(n)
}

func nextWindow(n int) int {
	switch {
	case n < 3:
		return 3
	case n < 5:
		return 5
	case n%5 == 0:
		return n + 5
	}
	return ((n / 5) + 1) * 5
}

func prevWindow(n int) int {
	switch {
	case n <= 3:
		return 1
	case n <= 5:
		return 3
	case n%5 == 0:
		return n - 5
	}
	return (n / 5) * 5
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func padLines(s string, width int) string {
	if width <= 0 || s == "" {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = padLine(line, width)
	}
	return strings.Join(lines, "\n")
}

func padLine(line string, width int) string {
	lineWidth := lipgloss.Width(line)
	if lineWidth < width {
		return line + strings.Repeat(" ", width-lineWidth)
	}
	return line
}

func fitLines(s string, width, height int) string {
	if width <= 0 || height <= 0 {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = padLine(line, width)
	}
	if len(lines) > height {
		lines = lines[:height]
	}
	for len(lines) < height {
		lines = append(lines, strings.Repeat(" ", width))
	}
	return strings.Join(lines, "\n")
}

// truncateLine cuts s to width display cells, marking the cut with "...".
func truncateLine(s string, width int) string {
	if width <= 0 || runewidth.StringWidth(s) <= width {
		return s
	}
	if width <= 3 {
		return runewidth.Truncate(s, width, "")
	}
	return runewidth.Truncate(s, width, "...")
}
