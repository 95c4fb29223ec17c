// Package main provides the CLI entrypoint for qc7.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/verte-zerg/qc7/internal/config"
	"github.com/verte-zerg/qc7/internal/logging"
	"github.com/verte-zerg/qc7/internal/model"
	"github.com/verte-zerg/qc7/internal/records"
	"github.com/verte-zerg/qc7/internal/stats"
	"github.com/verte-zerg/qc7/internal/store"
)

const (
	defaultDataset   = "default"
	defaultLogLevel  = "warn"
	defaultLogFormat = logging.FormatConsole
)

var (
	rootConfigPath string
	rootDBPath     string
	rootDataset    string
	rootLogLevel   string
	rootLogFormat  string

	// fileCfg and logger are set by the root pre-run hook.
	fileCfg config.FileConfig
	logger  = zap.NewNop()
)

func main() {
	rootCmd := newRootCmd()
	err := rootCmd.Execute()
	_ = logger.Sync()
	if err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:               "qc7",
		Short:             "QC seven tools defect analysis",
		SilenceUsage:      true,
		SilenceErrors:     false,
		PersistentPreRunE: setup,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&rootConfigPath, "config", config.DefaultConfigPath(), "config file path")
	flags.StringVar(&rootDBPath, "db", config.DefaultDBPath(), "SQLite dataset library path")
	flags.StringVarP(&rootDataset, "dataset", "d", defaultDataset, "stored dataset name")
	flags.StringVar(&rootLogLevel, "log-level", defaultLogLevel, "log level (debug, info, warn, error)")
	flags.StringVar(&rootLogFormat, "log-format", defaultLogFormat, "log format (console or json)")

	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newImportCmd())
	rootCmd.AddCommand(newAddCmd())
	rootCmd.AddCommand(newSampleCmd())
	rootCmd.AddCommand(newDatasetsCmd())
	rootCmd.AddCommand(newDeleteCmd())
	rootCmd.AddCommand(newExportCmd())
	rootCmd.AddCommand(newSummaryCmd())
	rootCmd.AddCommand(newParetoCmd())
	rootCmd.AddCommand(newCausesCmd())
	rootCmd.AddCommand(newHistogramCmd())
	rootCmd.AddCommand(newScatterCmd())
	rootCmd.AddCommand(newControlCmd())
	rootCmd.AddCommand(newChecklistCmd())
	rootCmd.AddCommand(newCompareCmd())
	rootCmd.AddCommand(newReportCmd())
	rootCmd.AddCommand(newBrowseCmd())

	return rootCmd
}

// setup loads the config file and builds the logger before any subcommand runs.
func setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadConfig(rootConfigPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	fileCfg = cfg
	applyStringConfig(cmd, "db", &rootDBPath, cfg.Data.DB)
	applyStringConfig(cmd, "dataset", &rootDataset, cfg.Data.Dataset)
	applyStringConfig(cmd, "log-level", &rootLogLevel, cfg.Log.Level)
	applyStringConfig(cmd, "log-format", &rootLogFormat, cfg.Log.Format)

	l, err := logging.New(rootLogLevel, rootLogFormat)
	if err != nil {
		return err
	}
	logger = l
	logger.Debug("config loaded", zap.String("path", rootConfigPath), zap.String("db", rootDBPath))
	return nil
}

// openStore opens the dataset library. The caller closes it with closeStore.
func openStore() (*store.Store, error) {
	st, err := store.Open(rootDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	return st, nil
}

func closeStore(st *store.Store) {
	if cerr := st.Close(); cerr != nil {
		logger.Warn("failed to close db", zap.Error(cerr))
	}
}

// analysisOptions merges config values with the analysis flags. Flags win
// when set; commands without a flag keep its default.
func analysisOptions(cmd *cobra.Command) stats.Options {
	opts := stats.DefaultOptions()
	opts.Rules = fileCfg.Keywords.Rules()
	opts.Bins = histogramBins
	opts.Sigma = controlSigma
	opts.VitalFewThreshold = paretoThreshold
	applyIntConfig(cmd, "bins", &opts.Bins, fileCfg.Analysis.Bins)
	applyFloatConfig(cmd, "sigma", &opts.Sigma, fileCfg.Analysis.Sigma)
	applyFloatConfig(cmd, "threshold", &opts.VitalFewThreshold, fileCfg.Analysis.VitalFewThreshold)
	return opts
}

// loadDataset reads the analysis input: a CSV file when --file is set,
// otherwise the stored dataset, narrowed by the filter flags.
func loadDataset(ctx context.Context) (model.Dataset, error) {
	filter, err := currentFilter()
	if err != nil {
		return model.Dataset{}, err
	}
	if dataFile != "" {
		st, err := readCSVFile(dataFile, false)
		if err != nil {
			return model.Dataset{}, err
		}
		return filter.Apply(st.Snapshot()), nil
	}
	st, err := openStore()
	if err != nil {
		return model.Dataset{}, err
	}
	defer closeStore(st)
	ds, err := st.LoadDatasetRange(ctx, rootDataset, filter.Since, filter.Until)
	if err != nil {
		return model.Dataset{}, fmt.Errorf("failed to load dataset %q: %w", rootDataset, err)
	}
	return filter.Apply(ds), nil
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyIntConfig(cmd *cobra.Command, name string, target, value *int) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyFloatConfig(cmd *cobra.Command, name string, target, value *float64) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyStringSliceConfig(cmd *cobra.Command, name string, target *[]string, value []string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = append([]string(nil), value...)
}

func ingestSummary(result records.IngestResult) string {
	return fmt.Sprintf("%d rows read, %d accepted, %d rejected", result.Total, result.Accepted, result.Rejected)
}

func logRejections(result records.IngestResult) {
	ingestLog := logging.Component(logger, "ingest")
	for _, rowErr := range result.Errors {
		ingestLog.Warn("row rejected", zap.Int("line", rowErr.Line), zap.Error(rowErr.Err))
	}
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}

func splitNames(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
