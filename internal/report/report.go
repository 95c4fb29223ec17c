// Package report assembles analysis results into a presentation document tree.
package report

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/verte-zerg/qc7/internal/model"
	"github.com/verte-zerg/qc7/internal/qcerr"
	"github.com/verte-zerg/qc7/internal/stats"
)

const (
	// Title is the document title.
	Title = "QC Seven Tools Defect Analysis Report"
	// ProjectedReduction scales the current rate into the expected effect of the action plan.
	ProjectedReduction = 0.9
	// ReviewInterval is the time from the report date to the next review.
	ReviewInterval = 30 * 24 * time.Hour
	// TopItems is the number of priority items listed.
	TopItems = 3
)

const displayDateLayout = "January 2, 2006"

// Fact is a labelled value in a section.
type Fact struct {
	Label string `json:"label" yaml:"label"`
	Value string `json:"value" yaml:"value"`
}

// Section is one slide of the report.
type Section struct {
	Kind       model.SectionKind `json:"kind" yaml:"kind"`
	Title      string            `json:"title" yaml:"title"`
	Facts      []Fact            `json:"facts,omitempty" yaml:"facts,omitempty"`
	Paragraphs []string          `json:"paragraphs,omitempty" yaml:"paragraphs,omitempty"`
}

// Skipped records a selected section whose analysis failed.
type Skipped struct {
	Kind    model.SectionKind `json:"kind" yaml:"kind"`
	Reason  string            `json:"reason" yaml:"reason"`
	Message string            `json:"message" yaml:"message"`
}

// Cover holds the title page.
type Cover struct {
	Title string `json:"title" yaml:"title"`
	Facts []Fact `json:"facts" yaml:"facts"`
}

// Document is the full report tree.
type Document struct {
	Title    string    `json:"title" yaml:"title"`
	Cover    Cover     `json:"cover" yaml:"cover"`
	Sections []Section `json:"sections" yaml:"sections"`
	Skipped  []Skipped `json:"skipped,omitempty" yaml:"skipped,omitempty"`
}

// Section returns the emitted section of the given kind.
func (d Document) Section(kind model.SectionKind) (Section, bool) {
	for _, s := range d.Sections {
		if s.Kind == kind {
			return s, true
		}
	}
	return Section{}, false
}

// Options configures report assembly.
type Options struct {
	Analysis stats.Options
	Logger   *zap.Logger
}

type builder struct {
	ds   model.Dataset
	meta model.Metadata
	opts stats.Options
}

// Build renders the selected sections in fixed report order. A section whose
// analysis fails is left out and listed in Skipped. A nil selection means every section.
func Build(ds model.Dataset, meta model.Metadata, selected []model.SectionKind, opts Options) Document {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	want := map[model.SectionKind]bool{}
	if selected == nil {
		selected = model.SectionKinds()
	}
	for _, k := range selected {
		want[k] = true
	}

	b := builder{ds: ds, meta: meta, opts: normalize(opts.Analysis)}
	doc := Document{
		Title:    Title,
		Cover:    b.cover(),
		Sections: []Section{},
	}
	for _, kind := range model.SectionKinds() {
		if !want[kind] {
			continue
		}
		section, err := b.section(kind)
		if err != nil {
			reason := "error"
			if k := qcerr.KindOf(err); k != 0 {
				reason = k.String()
			}
			logger.Warn("skipping report section",
				zap.Stringer("section", kind),
				zap.String("reason", reason),
				zap.Error(err))
			doc.Skipped = append(doc.Skipped, Skipped{Kind: kind, Reason: reason, Message: err.Error()})
			continue
		}
		section.Kind = kind
		doc.Sections = append(doc.Sections, section)
	}
	return doc
}

func normalize(o stats.Options) stats.Options {
	def := stats.DefaultOptions()
	if o.Bins <= 0 {
		o.Bins = def.Bins
	}
	if o.Sigma <= 0 {
		o.Sigma = def.Sigma
	}
	if o.VitalFewThreshold <= 0 {
		o.VitalFewThreshold = def.VitalFewThreshold
	}
	if o.Rules.IsZero() {
		o.Rules = def.Rules
	}
	return o
}

func (b builder) section(kind model.SectionKind) (Section, error) {
	switch kind {
	case model.SectionSummary:
		return b.summary()
	case model.SectionPareto:
		return b.pareto()
	case model.SectionCausalAnalysis:
		return b.causal()
	case model.SectionControlChart:
		return b.control()
	case model.SectionTimeSeries:
		return b.timeSeries()
	case model.SectionActionPlan:
		return b.actionPlan()
	}
	return Section{}, errors.New("unknown section")
}

func (b builder) cover() Cover {
	org := strings.TrimSpace(strings.Join([]string{b.meta.Company, b.meta.Department}, " "))
	return Cover{
		Title: Title,
		Facts: []Fact{
			{Label: "Organization", Value: org},
			{Label: "Presenter", Value: b.meta.Presenter},
			{Label: "Date", Value: formatDate(b.meta.Date)},
			{Label: "Period", Value: b.meta.Period},
		},
	}
}

func (b builder) summary() (Section, error) {
	ov, err := stats.Summarize(b.ds)
	if err != nil {
		return Section{}, err
	}
	facts := []Fact{
		{Label: "Analysis period", Value: b.meta.Period},
		{Label: "Total inspected", Value: groupDigits(ov.InspectionCount)},
		{Label: "Total defects", Value: groupDigits(ov.DefectCount)},
		{Label: "Defect rate", Value: formatPercent(ov.Rate, 2)},
		{Label: "Improvement target", Value: b.meta.Target},
	}
	if agg, err := stats.Aggregate(b.ds, model.ByDefectItem, model.MeasureDefectCount); err == nil {
		facts = append(facts, Fact{Label: "Main defect items", Value: strings.Join(stats.TopKeys(agg, TopItems), ", ")})
	}
	return Section{
		Title: "Overview and Data Summary",
		Facts: facts,
		Paragraphs: []string{
			"Identify the causes of defects and plan countermeasures.",
			"Evaluate the stability of the process.",
			"Measure the effect of improvement activities.",
		},
	}, nil
}

func (b builder) pareto() (Section, error) {
	res, err := stats.Pareto(b.ds, b.opts.VitalFewThreshold)
	if err != nil {
		return Section{}, err
	}
	facts := make([]Fact, 0, len(res.VitalFew)+TopItems)
	for _, item := range res.VitalFew {
		facts = append(facts, Fact{
			Label: "Vital few: " + item.Item,
			Value: fmt.Sprintf("%d defects (%s, cumulative %s)", item.DefectCount, formatPercent(item.Share, 1), formatPercent(item.CumulativeRatio, 1)),
		})
	}
	for i, item := range res.Items {
		if i == TopItems {
			break
		}
		facts = append(facts, Fact{
			Label: fmt.Sprintf("Priority %d", i+1),
			Value: fmt.Sprintf("%s: %d defects", item.Item, item.DefectCount),
		})
	}
	paragraphs := []string{
		fmt.Sprintf("Items up to %s of cumulative defects are managed as the vital few.", formatPercent(res.Threshold, 0)),
		"Focus improvement activities on the top three items to cut the overall defect rate by at least 10%.",
	}
	if len(res.VitalFew) == 0 {
		paragraphs[0] = fmt.Sprintf("%s alone exceeds %s of all defects and is the first improvement target.", res.Items[0].Item, formatPercent(res.Threshold, 0))
	}
	return Section{Title: "Pareto Analysis", Facts: facts, Paragraphs: paragraphs}, nil
}

func (b builder) causal() (Section, error) {
	res, err := stats.Classify(b.ds, b.opts.Rules)
	if err != nil {
		return Section{}, err
	}
	facts := make([]Fact, 0, len(res.Buckets)+1)
	for _, entry := range res.Buckets {
		value := "no matching causes"
		if len(entry.Causes) > 0 {
			parts := make([]string, len(entry.Causes))
			for i, c := range entry.Causes {
				parts[i] = fmt.Sprintf("%s: %d", c.Cause, c.DefectCount)
			}
			value = fmt.Sprintf("%s (total %d)", strings.Join(parts, ", "), entry.Total)
		}
		facts = append(facts, Fact{Label: entry.Bucket.String(), Value: value})
	}
	if len(res.Unclassified) > 0 {
		parts := make([]string, len(res.Unclassified))
		for i, c := range res.Unclassified {
			parts[i] = fmt.Sprintf("%s: %d", c.Cause, c.DefectCount)
		}
		facts = append(facts, Fact{Label: "Unclassified", Value: strings.Join(parts, ", ")})
	}
	return Section{
		Title: "Cause and Effect (4M) Analysis",
		Facts: facts,
		Paragraphs: []string{
			"Plan systematic countermeasures per cause category and build a recurrence prevention system.",
		},
	}, nil
}

func (b builder) control() (Section, error) {
	res, err := stats.ControlChart(b.ds, b.opts.Sigma)
	if err != nil {
		return Section{}, err
	}
	outliers := "none"
	if !res.Stable() {
		dates := make([]string, len(res.Outliers))
		for i, p := range res.Outliers {
			dates[i] = p.Date
		}
		outliers = strings.Join(dates, ", ")
	}
	evaluation := "The process is relatively stable. Continue monitoring."
	if !res.Stable() {
		evaluation = "The process is unstable. Investigate the causes of the out-of-control points."
	}
	return Section{
		Title: "Control Chart Analysis",
		Facts: []Fact{
			{Label: "Center line", Value: formatPercent(res.Center, 2)},
			{Label: "UCL", Value: formatPercent(res.UCL, 2)},
			{Label: "LCL", Value: formatPercent(res.LCL, 2)},
			{Label: "Out-of-control points", Value: strconv.Itoa(len(res.Outliers))},
			{Label: "Out-of-control dates", Value: outliers},
		},
		Paragraphs: []string{
			evaluation,
			"Investigate the days beyond the control limits in detail and stabilize the process.",
		},
	}, nil
}

func (b builder) timeSeries() (Section, error) {
	res, err := stats.Trend(b.ds)
	if err != nil {
		return Section{}, err
	}
	var commentary string
	switch res.Direction {
	case stats.Improving:
		commentary = "The defect rate shows an improving trend."
	case stats.Worsening:
		commentary = "The defect rate is worsening. Urgent countermeasures are required."
	default:
		commentary = "The defect rate is flat. Improvement activities have had limited effect."
	}
	target := "Continue improvement activities."
	if b.meta.Target != "" {
		target = fmt.Sprintf("Continue improvement activities to reach the target: %s.", b.meta.Target)
	}
	return Section{
		Title: "Time Series Analysis",
		Facts: []Fact{
			{Label: "Start of period", Value: formatPercent(res.First, 2)},
			{Label: "End of period", Value: formatPercent(res.Last, 2)},
			{Label: "Change", Value: fmt.Sprintf("%s (%+.2f%%)", res.Direction, res.Change)},
			{Label: "Maximum", Value: formatPercent(res.Max, 2)},
			{Label: "Minimum", Value: formatPercent(res.Min, 2)},
			{Label: "Mean", Value: formatPercent(res.Mean, 2)},
		},
		Paragraphs: []string{commentary, target},
	}, nil
}

func (b builder) actionPlan() (Section, error) {
	ov, err := stats.Summarize(b.ds)
	if err != nil {
		return Section{}, err
	}
	projected := stats.Round(ov.Rate*ProjectedReduction, 2)
	review := "to be scheduled"
	if !b.meta.Date.IsZero() {
		review = formatDate(b.meta.Date.Add(ReviewInterval))
	}
	return Section{
		Title: "Improvement Proposal and Action Plan",
		Facts: []Fact{
			{Label: "Short term (within 1 month)", Value: "Investigate the priority defect items; revise and enforce work standards; increase inspection frequency"},
			{Label: "Mid term (within 3 months)", Value: "Strengthen equipment and tool checks; expand operator training; improve process capability"},
			{Label: "Long term (within 6 months)", Value: "Review process design; evaluate automation; build a quality management system"},
			{Label: "Expected effect", Value: fmt.Sprintf("%s -> %s (%.0f%% reduction)", formatPercent(ov.Rate, 2), formatPercent(projected, 2), (1-ProjectedReduction)*100)},
			{Label: "Owner", Value: b.meta.Presenter},
			{Label: "Period", Value: b.meta.Period},
			{Label: "Next review", Value: review},
		},
	}, nil
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(displayDateLayout)
}

func formatPercent(v float64, places int) string {
	return strconv.FormatFloat(v, 'f', places, 64) + "%"
}

func groupDigits(n int) string {
	s := strconv.Itoa(n)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}
