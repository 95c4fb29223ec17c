package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/verte-zerg/qc7/internal/entry"
	"github.com/verte-zerg/qc7/internal/generator"
	"github.com/verte-zerg/qc7/internal/model"
	"github.com/verte-zerg/qc7/internal/records"
	"github.com/verte-zerg/qc7/internal/stats"
)

const (
	defaultSampleDays = 31
	defaultSampleSeed = generator.DefaultSeed
)

var (
	dataFile     string
	filterProd   []string
	filterProc   []string
	filterItems  []string
	filterCauses []string
	filterSince  string
	filterUntil  string

	importReplace bool
	importStrict  bool
	importLines   bool

	addDate      string
	addProduct   string
	addItem      string
	addDefects   int
	addInspected int
	addCause     string
	addProcess   string
	addRemarks   string
	addLines     []string

	sampleStart   string
	sampleDays    int
	sampleSeed    int64
	sampleLang    string
	sampleReplace bool
	sampleOut     string

	exportOut string
)

func addFilterFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&dataFile, "file", "", "analyze a CSV file instead of a stored dataset")
	cmd.Flags().StringSliceVar(&filterProd, "product", nil, "only these products")
	cmd.Flags().StringSliceVar(&filterProc, "process", nil, "only these processes")
	cmd.Flags().StringSliceVar(&filterItems, "item", nil, "only these defect items")
	cmd.Flags().StringSliceVar(&filterCauses, "cause", nil, "only these cause categories")
	cmd.Flags().StringVar(&filterSince, "since", "", "start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&filterUntil, "until", "", "end date (YYYY-MM-DD)")
}

func currentFilter() (records.Filter, error) {
	filter := records.Filter{
		Products:  splitNames(filterProd),
		Processes: splitNames(filterProc),
		Items:     splitNames(filterItems),
		Causes:    splitNames(filterCauses),
	}
	if filterSince != "" {
		since, err := records.ParseDate(filterSince)
		if err != nil {
			return records.Filter{}, fmt.Errorf("invalid --since value: %w", err)
		}
		filter.Since = &since
	}
	if filterUntil != "" {
		until, err := records.ParseDate(filterUntil)
		if err != nil {
			return records.Filter{}, fmt.Errorf("invalid --until value: %w", err)
		}
		filter.Until = &until
	}
	if filter.Since != nil && filter.Until != nil && filter.Until.Before(*filter.Since) {
		return records.Filter{}, fmt.Errorf("--until must not be before --since")
	}
	return filter, nil
}

// readCSVFile ingests a CSV file, or bulk entry lines when lines is set.
func readCSVFile(path string, lines bool) (*records.Store, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil {
			// Best-effort close for read-only input.
			_ = cerr
		}
	}()
	return readRecords(file, lines)
}

func readRecords(r io.Reader, lines bool) (*records.Store, error) {
	read := records.ReadCSV
	if lines {
		read = records.ReadLines
	}
	st, result, err := read(r, records.ReadOptions{Strict: importStrict})
	logRejections(result)
	if err != nil {
		return nil, err
	}
	logger.Info("records ingested",
		zap.Int("total", result.Total),
		zap.Int("accepted", result.Accepted),
		zap.Int("rejected", result.Rejected))
	if result.Rejected > 0 {
		logErrf("%s\n", ingestSummary(result))
	}
	return st, nil
}

func newImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Import a CSV file into the dataset library",
		Long: "Import defect records from a CSV file with English (date, product, defect_item, ...)\n" +
			"or Japanese (日付, 製品名, 不良項目, ...) headers. Use - to read standard input.",
		Args: cobra.ExactArgs(1),
		RunE: runImportCmd,
	}
	cmd.Flags().BoolVar(&importReplace, "replace", false, "replace the dataset instead of appending")
	cmd.Flags().BoolVar(&importStrict, "strict", false, "abort on the first rejected row")
	cmd.Flags().BoolVar(&importLines, "lines", false, "input is headerless date,product,item,defects,inspected,cause,process[,remarks] lines")
	return cmd
}

func runImportCmd(cmd *cobra.Command, args []string) error {
	var (
		recs *records.Store
		err  error
	)
	if args[0] == "-" {
		recs, err = readRecords(cmd.InOrStdin(), importLines)
	} else {
		recs, err = readCSVFile(args[0], importLines)
	}
	if err != nil {
		return err
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore(st)

	ctx := cmd.Context()
	ds := recs.Snapshot()
	if importReplace {
		if _, err := st.SaveDataset(ctx, rootDataset, ds, true); err != nil {
			return fmt.Errorf("failed to save dataset: %w", err)
		}
	} else {
		if ds.Columns != model.AllFields {
			return fmt.Errorf("appending requires every column; use --replace to store a partial dataset")
		}
		if err := st.AppendRecords(ctx, rootDataset, ds.Records); err != nil {
			return fmt.Errorf("failed to append records: %w", err)
		}
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "Imported %d records into %q\n", ds.Len(), rootDataset)
	return err
}

func newAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add records from flags, entry lines, or an interactive form",
		Long: "Add one record from flags, several with repeated --line values, or open\n" +
			"the interactive entry form when no record flags are given.",
		Args: cobra.NoArgs,
		RunE: runAddCmd,
	}
	cmd.Flags().StringVar(&addDate, "date", "", "record date (YYYY-MM-DD, default today)")
	cmd.Flags().StringVar(&addProduct, "product", "", "product name")
	cmd.Flags().StringVar(&addItem, "item", "", "defect item")
	cmd.Flags().IntVar(&addDefects, "defects", 0, "defect count")
	cmd.Flags().IntVar(&addInspected, "inspected", 0, "inspection count")
	cmd.Flags().StringVar(&addCause, "cause", "", "cause category")
	cmd.Flags().StringVar(&addProcess, "process", "", "process")
	cmd.Flags().StringVar(&addRemarks, "remarks", "", "remarks")
	cmd.Flags().StringArrayVar(&addLines, "line", nil, "entry line date,product,item,defects,inspected,cause,process[,remarks] (repeatable)")
	return cmd
}

func runAddCmd(cmd *cobra.Command, _ []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore(st)

	recs := records.New(model.AllFields)
	switch {
	case len(addLines) > 0:
		for i, line := range addLines {
			rec, err := records.ParseLine(line)
			if err != nil {
				return fmt.Errorf("--line %d: %w", i+1, err)
			}
			if err := recs.Add(rec); err != nil {
				return fmt.Errorf("--line %d: %w", i+1, err)
			}
		}
	case cmd.Flags().Changed("item"):
		rec, err := recordFromFlags()
		if err != nil {
			return err
		}
		if err := recs.Add(rec); err != nil {
			return err
		}
	default:
		form := entry.NewModel(st, entry.Options{
			Dataset:  rootDataset,
			Defaults: model.DefectRecord{Product: addProduct, Process: addProcess},
			Logger:   logger,
		})
		program := tea.NewProgram(form, tea.WithAltScreen())
		if _, err := program.Run(); err != nil {
			return fmt.Errorf("failed to run entry form: %w", err)
		}
		_, err := fmt.Fprintf(cmd.OutOrStdout(), "Added %d records to %q\n", len(form.Saved()), rootDataset)
		return err
	}

	if err := st.AppendRecords(cmd.Context(), rootDataset, recs.Records()); err != nil {
		return fmt.Errorf("failed to append records: %w", err)
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "Added %d records to %q\n", recs.Len(), rootDataset)
	return err
}

func recordFromFlags() (model.DefectRecord, error) {
	date := time.Now()
	if addDate != "" {
		parsed, err := records.ParseDate(addDate)
		if err != nil {
			return model.DefectRecord{}, fmt.Errorf("invalid --date value: %w", err)
		}
		date = parsed
	}
	return records.ParseRow([]string{
		date.Format(model.DateLayout),
		addProduct,
		addItem,
		strconv.Itoa(addDefects),
		strconv.Itoa(addInspected),
		addCause,
		addProcess,
		addRemarks,
	})
}

func newSampleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sample",
		Short: "Generate a sample dataset",
		Args:  cobra.NoArgs,
		RunE:  runSampleCmd,
	}
	cmd.Flags().StringVar(&sampleStart, "start", "2024-01-01", "first date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&sampleDays, "days", defaultSampleDays, "number of days")
	cmd.Flags().Int64Var(&sampleSeed, "seed", defaultSampleSeed, "random seed (0 for time-based)")
	cmd.Flags().StringVar(&sampleLang, "lang", "en", "label language (en or ja)")
	cmd.Flags().BoolVar(&sampleReplace, "replace", false, "replace an existing dataset")
	cmd.Flags().StringVar(&sampleOut, "out", "", "write CSV to this file (- for stdout) instead of the library")
	return cmd
}

func runSampleCmd(cmd *cobra.Command, _ []string) error {
	if sampleDays <= 0 {
		return fmt.Errorf("--days must be > 0")
	}
	start, err := records.ParseDate(sampleStart)
	if err != nil {
		return fmt.Errorf("invalid --start value: %w", err)
	}
	opts := generator.Options{Start: start, Days: sampleDays}
	switch strings.ToLower(sampleLang) {
	case "en":
		opts.Labels = generator.English
	case "ja":
		opts.Labels = generator.Japanese
	default:
		return fmt.Errorf("unknown --lang %q (expected en or ja)", sampleLang)
	}
	gen := generator.NewSeeded(sampleSeed)
	if sampleSeed == 0 {
		gen = generator.New()
	}
	ds := model.NewDataset(gen.Generate(opts)...)

	if sampleOut != "" {
		return writeCSVOutput(cmd, sampleOut, ds)
	}
	st, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore(st)
	if _, err := st.SaveDataset(cmd.Context(), rootDataset, ds, sampleReplace); err != nil {
		return fmt.Errorf("failed to save dataset: %w", err)
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "Generated %d records into %q\n", ds.Len(), rootDataset)
	return err
}

func newDatasetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "datasets",
		Short: "List stored datasets",
		Args:  cobra.NoArgs,
		RunE:  runDatasetsCmd,
	}
}

func runDatasetsCmd(cmd *cobra.Command, _ []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore(st)
	infos, err := st.ListDatasets(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list datasets: %w", err)
	}
	if len(infos) == 0 {
		logErrf("No datasets found. Import one with: qc7 import FILE, or try: qc7 sample\n")
		return nil
	}
	headers := []string{"Name", "Records", "Defects", "Inspected", "Rate", "From", "To", "Updated"}
	rows := make([][]string, 0, len(infos))
	for _, info := range infos {
		rate := "-"
		if info.InspectionCount > 0 {
			rate = fmt.Sprintf("%.2f%%", float64(info.DefectCount)/float64(info.InspectionCount)*100)
		}
		rows = append(rows, []string{
			info.Name,
			strconv.Itoa(info.Records),
			strconv.Itoa(info.DefectCount),
			strconv.Itoa(info.InspectionCount),
			rate,
			info.FirstDate,
			info.LastDate,
			info.UpdatedAt.Local().Format("2006-01-02 15:04"),
		})
	}
	for _, line := range stats.FormatTable(headers, rows, map[int]bool{1: true, 2: true, 3: true, 4: true}) {
		if _, err := fmt.Fprintln(cmd.OutOrStdout(), line); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return nil
}

func newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete NAME",
		Short: "Delete a stored dataset",
		Args:  cobra.ExactArgs(1),
		RunE:  runDeleteCmd,
	}
}

func runDeleteCmd(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore(st)
	if err := st.DeleteDataset(cmd.Context(), args[0]); err != nil {
		return fmt.Errorf("failed to delete dataset: %w", err)
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "Deleted %q\n", args[0])
	return err
}

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a dataset as CSV",
		Args:  cobra.NoArgs,
		RunE:  runExportCmd,
	}
	addFilterFlags(cmd)
	cmd.Flags().StringVarP(&exportOut, "out", "o", "-", "output file (- for stdout)")
	return cmd
}

func runExportCmd(cmd *cobra.Command, _ []string) error {
	ds, err := loadDataset(cmd.Context())
	if err != nil {
		return err
	}
	return writeCSVOutput(cmd, exportOut, ds)
}

func writeCSVOutput(cmd *cobra.Command, path string, ds model.Dataset) error {
	return writeOutput(cmd, path, func(w io.Writer) error {
		return records.WriteCSV(w, ds)
	})
}

// writeOutput runs write against stdout for "-" or an empty path, otherwise
// against a temp file renamed over path once complete.
func writeOutput(cmd *cobra.Command, path string, write func(io.Writer) error) error {
	if path == "" || path == "-" {
		return write(cmd.OutOrStdout())
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}
	tmpFile, err := os.CreateTemp(filepath.Dir(path), ".qc7-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
	}()

	writer := bufio.NewWriter(tmpFile)
	if err := write(writer); err != nil {
		return err
	}
	if err := writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush %s: %w", path, err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	logger.Info("output written", zap.String("path", path))
	return nil
}
