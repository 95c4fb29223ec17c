package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/verte-zerg/qc7/internal/checklist"
	"github.com/verte-zerg/qc7/internal/config"
	"github.com/verte-zerg/qc7/internal/export"
	"github.com/verte-zerg/qc7/internal/model"
	"github.com/verte-zerg/qc7/internal/stats"
)

const (
	defaultControlHeight = 10
	defaultScatterX      = "inspection_count"
	defaultScatterY      = "defect_count"
)

var (
	outputFormat string

	paretoThreshold float64
	histogramBins   int
	controlSigma    float64
	controlHeight   int
	scatterX        string
	scatterY        string
	compareBy       string
	compareWindow   int
	checklistItems  string
)

func addFormatFlag(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&outputFormat, "format", "f", string(export.FormatText), "output format (text, json, yaml)")
}

// runAnalysis loads the dataset, computes a result and writes it as text or
// a structured encoding.
func runAnalysis[T any](cmd *cobra.Command, compute func(model.Dataset, stats.Options) (T, error), render func(io.Writer, T) error) error {
	format, err := export.ParseFormat(outputFormat)
	if err != nil {
		return err
	}
	if format == export.FormatMarkdown {
		return fmt.Errorf("markdown output is only available for reports")
	}
	ds, err := loadDataset(cmd.Context())
	if err != nil {
		return err
	}
	res, err := compute(ds, analysisOptions(cmd))
	if err != nil {
		return err
	}
	if format == export.FormatText {
		return render(cmd.OutOrStdout(), res)
	}
	return export.WriteValue(cmd.OutOrStdout(), res, format)
}

func newSummaryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Show dataset totals and the daily trend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			type summary struct {
				Overview stats.Overview    `json:"overview" yaml:"overview"`
				Trend    stats.TrendResult `json:"trend" yaml:"trend"`
			}
			return runAnalysis(cmd, func(ds model.Dataset, _ stats.Options) (summary, error) {
				ov, err := stats.Summarize(ds)
				if err != nil {
					return summary{}, err
				}
				trend, err := stats.Trend(ds)
				if err != nil {
					return summary{}, err
				}
				return summary{Overview: ov, Trend: trend}, nil
			}, func(w io.Writer, s summary) error {
				if err := stats.RenderOverview(w, s.Overview); err != nil {
					return err
				}
				return stats.RenderTrend(w, s.Trend)
			})
		},
	}
	addFilterFlags(cmd)
	addFormatFlag(cmd)
	return cmd
}

func newParetoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pareto",
		Short: "Rank defect items and find the vital few",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runAnalysis(cmd, func(ds model.Dataset, opts stats.Options) (stats.ParetoResult, error) {
				return stats.Pareto(ds, opts.VitalFewThreshold)
			}, stats.RenderPareto)
		},
	}
	addFilterFlags(cmd)
	addFormatFlag(cmd)
	cmd.Flags().Float64Var(&paretoThreshold, "threshold", stats.DefaultVitalFewThreshold, "cumulative percentage bounding the vital few")
	return cmd
}

func newCausesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "causes",
		Aliases: []string{"4m", "fishbone"},
		Short:   "Classify causes into Man, Machine, Material and Method",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runAnalysis(cmd, func(ds model.Dataset, opts stats.Options) (stats.CausalResult, error) {
				return stats.Classify(ds, opts.Rules)
			}, stats.RenderCausal)
		},
	}
	addFilterFlags(cmd)
	addFormatFlag(cmd)
	return cmd
}

func newHistogramCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "histogram",
		Short: "Show the distribution of per-record defect rates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("bins") && histogramBins <= 0 {
				return fmt.Errorf("--bins must be > 0")
			}
			return runAnalysis(cmd, func(ds model.Dataset, opts stats.Options) (stats.DistributionResult, error) {
				return stats.Distribution(ds, opts.Bins)
			}, stats.RenderDistribution)
		},
	}
	addFilterFlags(cmd)
	addFormatFlag(cmd)
	cmd.Flags().IntVar(&histogramBins, "bins", stats.DefaultBins, "number of histogram bins")
	return cmd
}

func newScatterCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scatter",
		Short: "Correlate two record variables",
		Long:  "Correlate two of inspection_count, defect_count and defect_rate with Pearson's r.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			x, err := stats.ParseVariable(scatterX)
			if err != nil {
				return fmt.Errorf("invalid --x: %w", err)
			}
			y, err := stats.ParseVariable(scatterY)
			if err != nil {
				return fmt.Errorf("invalid --y: %w", err)
			}
			return runAnalysis(cmd, func(ds model.Dataset, _ stats.Options) (stats.CorrelationResult, error) {
				return stats.Correlation(ds, x, y)
			}, stats.RenderCorrelation)
		},
	}
	addFilterFlags(cmd)
	addFormatFlag(cmd)
	cmd.Flags().StringVar(&scatterX, "x", defaultScatterX, "x variable")
	cmd.Flags().StringVar(&scatterY, "y", defaultScatterY, "y variable")
	return cmd
}

func newControlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "control",
		Short: "Build a p-chart of the daily defect rate",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("sigma") && controlSigma <= 0 {
				return fmt.Errorf("--sigma must be > 0")
			}
			return runAnalysis(cmd, func(ds model.Dataset, opts stats.Options) (stats.ControlResult, error) {
				return stats.ControlChart(ds, opts.Sigma)
			}, func(w io.Writer, res stats.ControlResult) error {
				return stats.RenderControl(w, res, 0, controlHeight, false)
			})
		},
	}
	addFilterFlags(cmd)
	addFormatFlag(cmd)
	cmd.Flags().Float64Var(&controlSigma, "sigma", stats.DefaultSigma, "control limit multiplier")
	cmd.Flags().IntVar(&controlHeight, "height", defaultControlHeight, "chart height in rows")
	return cmd
}

func newChecklistCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "checklist",
		Short: "Tally defect items and print the inspection check sheet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			applyStringConfig(cmd, "items", &checklistItems, fileCfg.Data.Checklist)
			items, err := loadChecklistItems(checklistItems, cmd.Flags().Changed("items"))
			if err != nil {
				return err
			}
			type checkSheet struct {
				Entries []stats.ChecklistEntry
				Items   []string
			}
			return runAnalysis(cmd, func(ds model.Dataset, _ stats.Options) (checkSheet, error) {
				entries, err := stats.Checklist(ds)
				return checkSheet{Entries: entries, Items: items}, err
			}, func(w io.Writer, cs checkSheet) error {
				if err := stats.RenderChecklist(w, cs.Entries); err != nil {
					return err
				}
				return checklist.Render(w, "Inspection items", checklist.NewSheet(cs.Items))
			})
		},
	}
	addFilterFlags(cmd)
	addFormatFlag(cmd)
	cmd.Flags().StringVar(&checklistItems, "items", config.DefaultChecklistPath(), "custom check item file (one item per line)")
	return cmd
}

// loadChecklistItems reads the item file. A missing file falls back to the
// stock items unless it was named explicitly.
func loadChecklistItems(path string, explicit bool) ([]string, error) {
	if path == "" {
		return checklist.DefaultItems(), nil
	}
	items, err := checklist.LoadItems(path)
	if err == nil {
		return items, nil
	}
	if !explicit && isNotExist(err) {
		return checklist.DefaultItems(), nil
	}
	return nil, fmt.Errorf("failed to load check items: %w", err)
}

func newCompareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Compare defect rates across processes, products or dates",
		Long: "Compare per-group defect rates (--by process, product or date), or the share\n" +
			"of defects per cause (--by cause).",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dim, ok := model.ParseDimension(compareBy)
			if !ok || dim == model.ByDefectItem {
				return fmt.Errorf("invalid --by %q (expected process, product, date or cause)", compareBy)
			}
			if compareWindow < 0 {
				return fmt.Errorf("--window must be >= 0")
			}
			return runAnalysis(cmd, func(ds model.Dataset, _ stats.Options) (stats.ComparisonResult, error) {
				return stats.Compare(ds, dim, compareWindow)
			}, func(w io.Writer, res stats.ComparisonResult) error {
				return stats.RenderComparison(w, res, 0, false)
			})
		},
	}
	addFilterFlags(cmd)
	addFormatFlag(cmd)
	cmd.Flags().StringVar(&compareBy, "by", "process", "grouping: process, product, date or cause")
	cmd.Flags().IntVar(&compareWindow, "window", 0, "moving average window for the date series")
	return cmd
}
