package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/verte-zerg/qc7/internal/records"
	"github.com/verte-zerg/qc7/internal/stats"
)

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := rootConfigPath
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func defaultConfigTemplate() string {
	rules := stats.DefaultRules()
	return fmt.Sprintf(`# qc7 configuration
# Uncomment a value to enable it. CLI flags override config values.

[data]
# db = "/path/to/qc7.db"       # Dataset library (default under $XDG_DATA_HOME/qc7)
# dataset = %q            # Dataset used when --dataset is not given
# checklist = "/path/to/checklist.txt"  # Custom check items, one per line

[analysis]
# histogram-bins = %d          # Histogram bin count
# sigma = %.1f                  # Control limit multiplier
# vital-few-threshold = %.1f   # Cumulative percentage bounding the vital few

[keywords]
# Substring keywords per 4M bucket. A list replaces the built-in one.
# man = %s
# machine = %s
# material = %s
# method = %s

[report]
# company = "Sample Corp"
# department = "Quality Assurance"
# presenter = "QC Lead"
# period = "January 2024"
# target = "Reduce the defect rate by 10%%"
# sections = ["summary", "pareto", "causal", "control", "timeseries", "action"]

[log]
# level = %q               # debug, info, warn or error
# format = %q          # console or json
`,
		defaultDataset,
		stats.DefaultBins,
		stats.DefaultSigma,
		stats.DefaultVitalFewThreshold,
		tomlList(rules.Man),
		tomlList(rules.Machine),
		tomlList(rules.Material),
		tomlList(rules.Method),
		defaultLogLevel,
		defaultLogFormat,
	)
}

func tomlList(values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = fmt.Sprintf("%q", v)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

func parseDateFlag(name, value string) (time.Time, error) {
	t, err := records.ParseDate(value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --%s value: %w", name, err)
	}
	return t, nil
}

func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
