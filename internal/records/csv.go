package records

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/verte-zerg/qc7/internal/model"
	"github.com/verte-zerg/qc7/internal/qcerr"
)

var headerAliases = map[string]model.Field{
	"date":             model.FieldDate,
	"product":          model.FieldProduct,
	"product_name":     model.FieldProduct,
	"defect_item":      model.FieldDefectItem,
	"defect":           model.FieldDefectItem,
	"defect_count":     model.FieldDefectCount,
	"defects":          model.FieldDefectCount,
	"inspection_count": model.FieldInspectionCount,
	"inspected":        model.FieldInspectionCount,
	"cause_category":   model.FieldCauseCategory,
	"cause":            model.FieldCauseCategory,
	"process":          model.FieldProcess,
	"remarks":          model.FieldRemarks,
	"日付":               model.FieldDate,
	"製品名":              model.FieldProduct,
	"不良項目":             model.FieldDefectItem,
	"不良数":              model.FieldDefectCount,
	"検査数":              model.FieldInspectionCount,
	"原因分類":             model.FieldCauseCategory,
	"発生工程":             model.FieldProcess,
	"備考":               model.FieldRemarks,
}

var dateLayouts = []string{
	model.DateLayout,
	"2006/01/02",
	"2006-1-2",
	"2006/1/2",
	time.RFC3339,
	"2006-01-02 15:04:05",
}

// ReadOptions controls CSV ingestion.
type ReadOptions struct {
	// Strict aborts on the first rejected row instead of skipping it.
	Strict bool
}

// RowError describes a rejected input row.
type RowError struct {
	Line int
	Err  error
}

func (e RowError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e RowError) Unwrap() error {
	return e.Err
}

// IngestResult summarizes an ingestion run.
type IngestResult struct {
	Total    int
	Accepted int
	Rejected int
	Errors   []RowError
}

func (r *IngestResult) reject(line int, err error) {
	r.Rejected++
	r.Errors = append(r.Errors, RowError{Line: line, Err: err})
}

// ReadCSV parses a header-led CSV stream into a new store.
// Columns missing from the header are missing from the store schema.
func ReadCSV(r io.Reader, opts ReadOptions) (*Store, IngestResult, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var result IngestResult
	headers, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return New(0), result, nil
		}
		return nil, result, fmt.Errorf("failed to read csv header: %w", err)
	}

	index := map[model.Field]int{}
	var columns model.FieldSet
	for i, h := range headers {
		f, ok := lookupHeader(h)
		if !ok {
			continue
		}
		if _, dup := index[f]; dup {
			continue
		}
		index[f] = i
		columns = columns.With(f)
	}

	store := New(columns)
	line := 1
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		result.Total++
		if err != nil {
			result.reject(line, err)
			if opts.Strict {
				return nil, result, RowError{Line: line, Err: err}
			}
			continue
		}
		if isBlankRow(row) {
			result.Total--
			continue
		}
		rec, err := parseRow(row, index)
		if err == nil {
			err = store.Add(rec)
		}
		if err != nil {
			result.reject(line, err)
			if opts.Strict {
				return nil, result, RowError{Line: line, Err: err}
			}
			continue
		}
		result.Accepted++
	}
	return store, result, nil
}

// ReadLines parses bulk entry text, one comma-separated record per line.
func ReadLines(r io.Reader, opts ReadOptions) (*Store, IngestResult, error) {
	store := New(model.AllFields)
	var result IngestResult
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		result.Total++
		rec, err := ParseLine(text)
		if err == nil {
			err = store.Add(rec)
		}
		if err != nil {
			result.reject(line, err)
			if opts.Strict {
				return nil, result, RowError{Line: line, Err: err}
			}
			continue
		}
		result.Accepted++
	}
	if err := scanner.Err(); err != nil {
		return nil, result, fmt.Errorf("failed to read lines: %w", err)
	}
	return store, result, nil
}

// ParseLine parses "date,product,item,defects,inspected,cause,process[,remarks]".
func ParseLine(line string) (model.DefectRecord, error) {
	parts := strings.Split(line, ",")
	if len(parts) < 7 || len(parts) > 8 {
		return model.DefectRecord{}, fmt.Errorf("expected 7 or 8 comma-separated fields, got %d", len(parts))
	}
	return ParseRow(parts)
}

// ParseRow parses values given in field order (date first, remarks last).
// Missing trailing values are left empty; the record is not validated.
func ParseRow(values []string) (model.DefectRecord, error) {
	index := map[model.Field]int{}
	for i, f := range model.Fields() {
		if i < len(values) {
			index[f] = i
		}
	}
	return parseRow(values, index)
}

// WriteCSV writes the dataset with an English header of its present columns.
func WriteCSV(w io.Writer, ds model.Dataset) error {
	fields := make([]model.Field, 0, len(model.Fields()))
	for _, f := range model.Fields() {
		if ds.Columns.Has(f) {
			fields = append(fields, f)
		}
	}
	writer := csv.NewWriter(w)
	header := make([]string, len(fields))
	for i, f := range fields {
		header[i] = f.String()
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, rec := range ds.Records {
		row := make([]string, len(fields))
		for i, f := range fields {
			row[i] = formatField(rec, f)
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to flush csv: %w", err)
	}
	return nil
}

// ParseDate parses a calendar date in one of the accepted layouts.
func ParseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q (expected YYYY-MM-DD)", value)
}

func lookupHeader(h string) (model.Field, bool) {
	key := strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	key = strings.ToLower(key)
	key = strings.NewReplacer(" ", "_", "-", "_").Replace(key)
	f, ok := headerAliases[key]
	return f, ok
}

func parseRow(row []string, index map[model.Field]int) (model.DefectRecord, error) {
	get := func(f model.Field) (string, bool) {
		i, ok := index[f]
		if !ok || i >= len(row) {
			return "", false
		}
		return strings.TrimSpace(row[i]), true
	}

	var rec model.DefectRecord
	if v, ok := get(model.FieldDate); ok {
		d, err := ParseDate(v)
		if err != nil {
			return rec, qcerr.New(qcerr.MalformedRecord, "parse", model.FieldDate.String(), err.Error())
		}
		rec.Date = d
	}
	rec.Product, _ = get(model.FieldProduct)
	rec.DefectItem, _ = get(model.FieldDefectItem)
	rec.CauseCategory, _ = get(model.FieldCauseCategory)
	rec.Process, _ = get(model.FieldProcess)
	rec.Remarks, _ = get(model.FieldRemarks)

	if v, ok := get(model.FieldDefectCount); ok {
		n, err := parseCount(v)
		if err != nil {
			return rec, qcerr.New(qcerr.MalformedRecord, "parse", model.FieldDefectCount.String(), err.Error())
		}
		rec.DefectCount = n
	}
	if v, ok := get(model.FieldInspectionCount); ok {
		n, err := parseCount(v)
		if err != nil {
			return rec, qcerr.New(qcerr.MalformedRecord, "parse", model.FieldInspectionCount.String(), err.Error())
		}
		rec.InspectionCount = n
	}
	return rec, nil
}

// maxCount bounds a single count so dataset totals cannot overflow.
const maxCount = math.MaxInt32

func parseCount(value string) (int, error) {
	value = strings.ReplaceAll(value, ",", "")
	f, err := strconv.ParseFloat(value, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) || math.IsNaN(f) || math.Trunc(f) != f {
		return 0, fmt.Errorf("non-numeric count %q", value)
	}
	if math.Abs(f) > maxCount {
		return 0, fmt.Errorf("count out of range %q", value)
	}
	return int(f), nil
}

func formatField(rec model.DefectRecord, f model.Field) string {
	switch f {
	case model.FieldDate:
		return rec.DateKey()
	case model.FieldProduct:
		return rec.Product
	case model.FieldDefectItem:
		return rec.DefectItem
	case model.FieldDefectCount:
		return strconv.Itoa(rec.DefectCount)
	case model.FieldInspectionCount:
		return strconv.Itoa(rec.InspectionCount)
	case model.FieldCauseCategory:
		return rec.CauseCategory
	case model.FieldProcess:
		return rec.Process
	case model.FieldRemarks:
		return rec.Remarks
	}
	return ""
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
