package main

import (
	"fmt"
	"io"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/verte-zerg/qc7/internal/config"
	"github.com/verte-zerg/qc7/internal/dashboard"
	"github.com/verte-zerg/qc7/internal/export"
	"github.com/verte-zerg/qc7/internal/logging"
	"github.com/verte-zerg/qc7/internal/model"
	"github.com/verte-zerg/qc7/internal/report"
)

var (
	reportSections   []string
	reportFormat     string
	reportOut        string
	reportCompany    string
	reportDepartment string
	reportPresenter  string
	reportDate       string
	reportPeriod     string
	reportTarget     string

	browseItems  string
	browseWindow int
)

func newReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Assemble the QC report content",
		Long: "Assemble the report sections (summary, pareto, causal, control, timeseries, action)\n" +
			"for export as text, markdown, JSON or YAML. Sections whose analysis fails are\n" +
			"listed as skipped.",
		Args: cobra.NoArgs,
		RunE: runReportCmd,
	}
	addFilterFlags(cmd)
	cmd.Flags().StringVarP(&reportFormat, "format", "f", string(export.FormatMarkdown), "output format (text, markdown, json, yaml)")
	cmd.Flags().StringVarP(&reportOut, "out", "o", "-", "output file (- for stdout)")
	cmd.Flags().StringSliceVar(&reportSections, "sections", nil, "sections to include (default all)")
	cmd.Flags().StringVar(&reportCompany, "company", "", "company name")
	cmd.Flags().StringVar(&reportDepartment, "department", "", "department name")
	cmd.Flags().StringVar(&reportPresenter, "presenter", "", "presenter name")
	cmd.Flags().StringVar(&reportDate, "date", "", "report date (YYYY-MM-DD, default today)")
	cmd.Flags().StringVar(&reportPeriod, "period", "", "analysis period label")
	cmd.Flags().StringVar(&reportTarget, "target", "", "improvement target")
	return cmd
}

func runReportCmd(cmd *cobra.Command, _ []string) error {
	applyStringConfig(cmd, "company", &reportCompany, fileCfg.Report.Company)
	applyStringConfig(cmd, "department", &reportDepartment, fileCfg.Report.Department)
	applyStringConfig(cmd, "presenter", &reportPresenter, fileCfg.Report.Presenter)
	applyStringConfig(cmd, "period", &reportPeriod, fileCfg.Report.Period)
	applyStringConfig(cmd, "target", &reportTarget, fileCfg.Report.Target)
	applyStringSliceConfig(cmd, "sections", &reportSections, fileCfg.Report.Sections)

	format, err := export.ParseFormat(reportFormat)
	if err != nil {
		return err
	}
	var selected []model.SectionKind
	if len(reportSections) > 0 {
		selected, err = model.ParseSectionKinds(reportSections)
		if err != nil {
			return err
		}
	}
	meta, err := reportMetadata()
	if err != nil {
		return err
	}
	ds, err := loadDataset(cmd.Context())
	if err != nil {
		return err
	}

	doc := report.Build(ds, meta, selected, report.Options{
		Analysis: analysisOptions(cmd),
		Logger:   logging.Component(logger, "report"),
	})
	if len(doc.Sections) == 0 && len(doc.Skipped) > 0 {
		logErrf("every selected section was skipped\n")
	}
	return writeOutput(cmd, reportOut, func(w io.Writer) error {
		return export.WriteDocument(w, doc, format)
	})
}

func reportMetadata() (model.Metadata, error) {
	meta := model.Metadata{
		Company:    reportCompany,
		Department: reportDepartment,
		Presenter:  reportPresenter,
		Period:     reportPeriod,
		Target:     reportTarget,
	}
	if reportDate == "" {
		now := time.Now()
		meta.Date = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		return meta, nil
	}
	date, err := parseDateFlag("date", reportDate)
	if err != nil {
		return model.Metadata{}, err
	}
	meta.Date = date
	return meta, nil
}

func newBrowseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "browse",
		Short: "Browse the analyses in a terminal UI",
		Args:  cobra.NoArgs,
		RunE:  runBrowseCmd,
	}
	addFilterFlags(cmd)
	cmd.Flags().StringVar(&browseItems, "items", config.DefaultChecklistPath(), "custom check item file (one item per line)")
	cmd.Flags().IntVar(&browseWindow, "window", 0, "moving average window for the date comparison")
	return cmd
}

func runBrowseCmd(cmd *cobra.Command, _ []string) error {
	applyStringConfig(cmd, "items", &browseItems, fileCfg.Data.Checklist)
	items, err := loadChecklistItems(browseItems, cmd.Flags().Changed("items"))
	if err != nil {
		return err
	}
	filter, err := currentFilter()
	if err != nil {
		return err
	}
	opts := dashboard.Options{
		Dataset:   rootDataset,
		Filter:    filter,
		Analysis:  analysisOptions(cmd),
		Checklist: items,
		Window:    browseWindow,
		Logger:    logger,
	}

	var ui *dashboard.Model
	if dataFile != "" {
		recs, err := readCSVFile(dataFile, false)
		if err != nil {
			return err
		}
		opts.Dataset = ""
		ui = dashboard.NewModelFromDataset(recs.Snapshot(), opts)
	} else {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer closeStore(st)
		ui = dashboard.NewModel(st, opts)
	}
	logger.Debug("starting browser", zap.String("dataset", opts.Dataset), zap.Int("check_items", len(items)))

	program := tea.NewProgram(ui, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run browser: %w", err)
	}
	return nil
}
