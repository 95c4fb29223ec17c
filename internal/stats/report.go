package stats

import "github.com/verte-zerg/qc7/internal/model"

// hotspotCount bounds Report.Hotspots.
const hotspotCount = 3

// Analysis names used as keys of Report.Errors.
const (
	AnalysisOverview     = "overview"
	AnalysisPareto       = "pareto"
	AnalysisCausal       = "causal"
	AnalysisDistribution = "distribution"
	AnalysisControl      = "control"
	AnalysisTrend        = "trend"
	AnalysisChecklist    = "checklist"
	AnalysisHotspots     = "hotspots"
)

// Report contains precomputed analyses for rendering.
// An analysis that failed has its zero value and an entry in Errors.
type Report struct {
	Dataset      model.Dataset
	Options      Options
	Overview     Overview
	Pareto       ParetoResult
	Causal       CausalResult
	Distribution DistributionResult
	Control      ControlResult
	Trend        TrendResult
	Checklist    []ChecklistEntry
	Hotspots     []Group
	Errors       map[string]error
}

// Err returns the failure of the named analysis, if any.
func (r Report) Err(name string) error {
	return r.Errors[name]
}

// Analyze runs every analysis over the dataset.
func Analyze(ds model.Dataset, opts Options) Report {
	opts = opts.normalized()
	r := Report{Dataset: ds, Options: opts, Errors: map[string]error{}}
	record := func(name string, err error) {
		if err != nil {
			r.Errors[name] = err
		}
	}
	var err error
	r.Overview, err = Summarize(ds)
	record(AnalysisOverview, err)
	r.Pareto, err = Pareto(ds, opts.VitalFewThreshold)
	record(AnalysisPareto, err)
	r.Causal, err = Classify(ds, opts.Rules)
	record(AnalysisCausal, err)
	r.Distribution, err = Distribution(ds, opts.Bins)
	record(AnalysisDistribution, err)
	r.Control, err = ControlChart(ds, opts.Sigma)
	record(AnalysisControl, err)
	r.Trend, err = Trend(ds)
	record(AnalysisTrend, err)
	r.Checklist, err = Checklist(ds)
	record(AnalysisChecklist, err)
	r.Hotspots, err = Hotspots(ds, hotspotCount)
	record(AnalysisHotspots, err)
	return r
}

// Hotspots returns up to n processes with the highest defect rate.
func Hotspots(ds model.Dataset, n int) ([]Group, error) {
	agg, err := Aggregate(ds, model.ByProcess, model.MeasureDefectCount, model.MeasureInspectionCount)
	if err != nil {
		return nil, err
	}
	return WorstByRate(agg.Groups, n), nil
}
