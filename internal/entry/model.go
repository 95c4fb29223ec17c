// Package entry provides the Bubble Tea form for keying in defect records.
package entry

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"go.uber.org/zap"

	"github.com/verte-zerg/qc7/internal/logging"
	"github.com/verte-zerg/qc7/internal/model"
	"github.com/verte-zerg/qc7/internal/records"
)

// Saver persists entered records.
type Saver interface {
	AppendRecords(ctx context.Context, name string, recs []model.DefectRecord) error
}

// Options configures the entry form.
type Options struct {
	Dataset string
	// Defaults prefills the form. A zero date is replaced by today.
	Defaults model.DefectRecord
	Now      func() time.Time
	Logger   *zap.Logger
}

// sticky fields keep their value after a record is saved.
var sticky = map[model.Field]bool{
	model.FieldDate:    true,
	model.FieldProduct: true,
	model.FieldProcess: true,
}

var fieldLabels = map[model.Field]string{
	model.FieldDate:            "Date",
	model.FieldProduct:         "Product",
	model.FieldDefectItem:      "Defect item",
	model.FieldDefectCount:     "Defects",
	model.FieldInspectionCount: "Inspected",
	model.FieldCauseCategory:   "Cause",
	model.FieldProcess:         "Process",
	model.FieldRemarks:         "Remarks",
}

var fieldPlaceholders = map[model.Field]string{
	model.FieldDate:            "YYYY-MM-DD",
	model.FieldDefectCount:     "0",
	model.FieldInspectionCount: "100",
	model.FieldRemarks:         "optional",
}

type savedMsg struct {
	rec model.DefectRecord
	err error
}

// Model implements the Bubble Tea entry UI.
type Model struct {
	saver   Saver
	dataset string
	logger  *zap.Logger

	fields []model.Field
	inputs []textinput.Model
	focus  int

	width  int
	height int

	saving    bool
	saved     []model.DefectRecord
	status    string
	statusErr bool
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#C89A3A"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	focusStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#52C41A"))
	footerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
)

// NewModel constructs an entry form writing into the named dataset.
func NewModel(saver Saver, opts Options) *Model {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	defaults := opts.Defaults
	if defaults.Date.IsZero() {
		t := now()
		defaults.Date = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	}
	m := &Model{
		saver:   saver,
		dataset: opts.Dataset,
		logger:  logging.Component(opts.Logger, "entry"),
		fields:  model.Fields(),
	}
	m.inputs = make([]textinput.Model, len(m.fields))
	for i, f := range m.fields {
		in := textinput.New()
		in.Prompt = ""
		in.Placeholder = fieldPlaceholders[f]
		in.CharLimit = 128
		in.SetValue(defaultValue(defaults, f))
		m.inputs[i] = in
	}
	m.setFocus(0)
	return m
}

func defaultValue(rec model.DefectRecord, f model.Field) string {
	switch f {
	case model.FieldDate:
		return rec.DateKey()
	case model.FieldProduct:
		return rec.Product
	case model.FieldDefectItem:
		return rec.DefectItem
	case model.FieldDefectCount:
		if rec.DefectCount > 0 {
			return fmt.Sprint(rec.DefectCount)
		}
	case model.FieldInspectionCount:
		if rec.InspectionCount > 0 {
			return fmt.Sprint(rec.InspectionCount)
		}
	case model.FieldCauseCategory:
		return rec.CauseCategory
	case model.FieldProcess:
		return rec.Process
	case model.FieldRemarks:
		return rec.Remarks
	}
	return ""
}

// Saved returns the records stored during this session.
func (m *Model) Saved() []model.DefectRecord {
	return append([]model.DefectRecord(nil), m.saved...)
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case savedMsg:
		m.handleSaved(msg)
		return m, nil
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyTab, tea.KeyDown:
			m.setFocus(m.focus + 1)
			return m, nil
		case tea.KeyShiftTab, tea.KeyUp:
			m.setFocus(m.focus - 1)
			return m, nil
		case tea.KeyCtrlR:
			m.clearForm(false)
			m.setStatus("Form cleared.", false)
			return m, nil
		case tea.KeyCtrlS:
			return m, m.submit()
		case tea.KeyEnter:
			if m.focus < len(m.inputs)-1 {
				m.setFocus(m.focus + 1)
				return m, nil
			}
			return m, m.submit()
		}
	}
	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd
}

// View implements tea.Model.
func (m *Model) View() string {
	var b strings.Builder
	title := "New defect record"
	if m.dataset != "" {
		title += " · " + m.dataset
	}
	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n\n")

	labelWidth := 0
	for _, f := range m.fields {
		if w := runewidth.StringWidth(fieldLabels[f]); w > labelWidth {
			labelWidth = w
		}
	}
	for i, f := range m.fields {
		label := runewidth.FillRight(fieldLabels[f], labelWidth)
		style := labelStyle
		marker := "  "
		if i == m.focus {
			style = focusStyle
			marker = "> "
		}
		b.WriteString(marker + style.Render(label) + "  " + m.inputs[i].View() + "\n")
	}

	if m.status != "" {
		b.WriteString("\n")
		style := okStyle
		if m.statusErr {
			style = errorStyle
		}
		width := m.width - 2
		if width <= 0 {
			width = 72
		}
		for _, line := range wrapText(m.status, width) {
			b.WriteString(style.Render(line) + "\n")
		}
	}
	b.WriteString("\n")
	b.WriteString(m.renderFooter())
	return b.String()
}

func (m *Model) setFocus(i int) {
	if len(m.inputs) == 0 {
		return
	}
	if i < 0 {
		i = len(m.inputs) - 1
	}
	if i >= len(m.inputs) {
		i = 0
	}
	for j := range m.inputs {
		m.inputs[j].Blur()
	}
	m.focus = i
	m.inputs[i].Focus()
}

func (m *Model) setStatus(text string, isErr bool) {
	m.status = text
	m.statusErr = isErr
}

// record parses and validates the current form values.
func (m *Model) record() (model.DefectRecord, error) {
	values := make([]string, len(m.inputs))
	for i, in := range m.inputs {
		values[i] = strings.TrimSpace(in.Value())
	}
	for i, f := range m.fields {
		if f == model.FieldRemarks {
			continue
		}
		if values[i] == "" {
			return model.DefectRecord{}, fmt.Errorf("%s is required", strings.ToLower(fieldLabels[f]))
		}
	}
	rec, err := records.ParseRow(values)
	if err != nil {
		return model.DefectRecord{}, err
	}
	if err := records.Validate(rec, model.AllFields); err != nil {
		return model.DefectRecord{}, err
	}
	return rec, nil
}

func (m *Model) submit() tea.Cmd {
	if m.saving {
		return nil
	}
	rec, err := m.record()
	if err != nil {
		m.setStatus(err.Error(), true)
		return nil
	}
	m.saving = true
	m.setStatus("Saving...", false)
	saver, dataset := m.saver, m.dataset
	return func() tea.Msg {
		if saver == nil {
			return savedMsg{rec: rec}
		}
		return savedMsg{rec: rec, err: saver.AppendRecords(context.Background(), dataset, []model.DefectRecord{rec})}
	}
}

func (m *Model) handleSaved(msg savedMsg) {
	m.saving = false
	if msg.err != nil {
		m.logger.Error("failed to save record", zap.String("dataset", m.dataset), zap.Error(msg.err))
		m.setStatus(fmt.Sprintf("failed to save record: %v", msg.err), true)
		return
	}
	m.saved = append(m.saved, msg.rec)
	m.logger.Debug("record saved",
		zap.String("dataset", m.dataset),
		zap.String("item", msg.rec.DefectItem),
		zap.Int("defects", msg.rec.DefectCount))
	m.setStatus(fmt.Sprintf("Saved %s / %s: %d of %d (%.2f%%).",
		msg.rec.Product, msg.rec.DefectItem, msg.rec.DefectCount, msg.rec.InspectionCount, msg.rec.Rate()), false)
	m.clearForm(true)
}

// clearForm empties the inputs. keepSticky retains date, product and process.
func (m *Model) clearForm(keepSticky bool) {
	first := -1
	for i, f := range m.fields {
		if keepSticky && sticky[f] {
			continue
		}
		m.inputs[i].SetValue("")
		if first < 0 {
			first = i
		}
	}
	if first < 0 {
		first = 0
	}
	m.setFocus(first)
}

func (m *Model) renderFooter() string {
	defects, inspected := 0, 0
	for _, rec := range m.saved {
		defects += rec.DefectCount
		inspected += rec.InspectionCount
	}
	segments := []string{fmt.Sprintf("Saved %d", len(m.saved))}
	if inspected > 0 {
		segments = append(segments, fmt.Sprintf("%d / %d · %.2f%%", defects, inspected, float64(defects)/float64(inspected)*100))
	}
	segments = append(segments, "tab next · enter save · ctrl+r clear · esc quit")
	return footerStyle.Render(strings.Join(segments, "  "))
}
