// Package pipeline 提供批量客户流失评分：CSV输入，逐行评分，CSV输出
package pipeline

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/transform"

	"churnsight/logging"
	"churnsight/ml"
)

// CoercionError marks a row whose numeric column could not be parsed.
// These must surface, never silently score as zero.
type CoercionError struct {
	Row    int // 1-based data row number, excluding the header
	Column string
	Value  string
}

func (e *CoercionError) Error() string {
	return fmt.Sprintf("row %d: column %s: cannot parse %q as a number", e.Row, e.Column, e.Value)
}

// BatchError wraps the row failure that aborted a run. The whole batch
// aborts on the first row error; no partial output is produced.
type BatchError struct {
	Row int
	Err error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("batch aborted at row %d: %v", e.Row, e.Err)
}

func (e *BatchError) Unwrap() error { return e.Err }

// Result summarizes a completed run.
type Result struct {
	Rows       [][]string // header + annotated data rows
	RowCount   int
	ChurnCount int
}

// Runner scores tabular customer files sequentially against the
// currently loaded artifacts.
type Runner struct {
	store   *ml.ArtifactStore
	storage *JobStore // optional bookkeeping
	charset string    // "gbk" transcodes legacy exports, default utf-8
}

func NewRunner(store *ml.ArtifactStore, storage *JobStore, charset string) *Runner {
	return &Runner{store: store, storage: storage, charset: charset}
}

// Missing columns fall back to these baselines rather than failing the
// file; partial exports are common.
var columnDefaults = map[string]string{
	"gender":          "Male",
	"SeniorCitizen":   "No",
	"Partner":         "No",
	"Dependents":      "No",
	"tenure":          "0",
	"PhoneService":    "No",
	"InternetService": "No",
	"MonthlyCharges":  "0",
	"TotalCharges":    "0",
}

// Run reads the whole input, scores every row and returns the table
// with Prediction and Churn_Probability appended. Any row failure
// aborts the run with a *BatchError.
func (r *Runner) Run(input io.Reader, name string) (*Result, error) {
	artifacts := r.store.Current()
	if artifacts == nil {
		return nil, fmt.Errorf("classifier artifacts not loaded")
	}

	if strings.EqualFold(r.charset, "gbk") {
		input = transform.NewReader(input, simplifiedchinese.GBK.NewDecoder())
	}

	reader := csv.NewReader(input)
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("input file is empty")
	}

	header := records[0]
	columns := make(map[string]int, len(header))
	for i, col := range header {
		columns[strings.TrimSpace(col)] = i
	}

	out := make([][]string, 0, len(records))
	out = append(out, append(append([]string{}, header...), "Prediction", "Churn_Probability"))

	churnCount := 0
	for i, row := range records[1:] {
		rowNum := i + 1
		record, err := parseRow(columns, row, rowNum)
		if err != nil {
			r.recordJob(name, rowNum, 0, err)
			return nil, &BatchError{Row: rowNum, Err: err}
		}

		vector, err := ml.BuildVector(artifacts.Encoders, record, nil)
		if err != nil {
			r.recordJob(name, rowNum, 0, err)
			return nil, &BatchError{Row: rowNum, Err: err}
		}
		pred, err := artifacts.Model.Classify(vector)
		if err != nil {
			r.recordJob(name, rowNum, 0, err)
			return nil, &BatchError{Row: rowNum, Err: err}
		}

		label := "No Churn"
		if pred.Churn {
			label = "Churn"
			churnCount++
		}
		annotated := append(append([]string{}, row...), label, strconv.FormatFloat(pred.Probability, 'f', 4, 64))
		out = append(out, annotated)
	}

	result := &Result{Rows: out, RowCount: len(records) - 1, ChurnCount: churnCount}
	r.recordJob(name, result.RowCount, churnCount, nil)
	logging.L().Infow("batch scored", "file", name, "rows", result.RowCount, "churn", churnCount)
	return result, nil
}

// Write emits the annotated table as CSV.
func (res *Result) Write(w io.Writer) error {
	writer := csv.NewWriter(w)
	if err := writer.WriteAll(res.Rows); err != nil {
		return err
	}
	writer.Flush()
	return writer.Error()
}

func (r *Runner) recordJob(name string, rows, churn int, runErr error) {
	if r.storage == nil {
		return
	}
	if err := r.storage.RecordJob(name, rows, churn, runErr); err != nil {
		logging.L().Warnw("batch job bookkeeping failed", "error", err)
	}
}

func parseRow(columns map[string]int, row []string, rowNum int) (ml.CustomerRecord, error) {
	cell := func(name string) string {
		idx, ok := columns[name]
		if !ok || idx >= len(row) {
			return columnDefaults[name]
		}
		value := strings.TrimSpace(row[idx])
		if value == "" {
			return columnDefaults[name]
		}
		return value
	}

	tenure, err := parseFloatCell(cell("tenure"), "tenure", rowNum)
	if err != nil {
		return ml.CustomerRecord{}, err
	}
	monthly, err := parseFloatCell(cell("MonthlyCharges"), "MonthlyCharges", rowNum)
	if err != nil {
		return ml.CustomerRecord{}, err
	}
	total, err := parseFloatCell(cell("TotalCharges"), "TotalCharges", rowNum)
	if err != nil {
		return ml.CustomerRecord{}, err
	}

	return ml.CustomerRecord{
		Gender:          cell("gender"),
		SeniorCitizen:   cell("SeniorCitizen") == "1" || strings.EqualFold(cell("SeniorCitizen"), "Yes"),
		Partner:         strings.EqualFold(cell("Partner"), "Yes"),
		Dependents:      strings.EqualFold(cell("Dependents"), "Yes"),
		TenureMonths:    int(tenure),
		PhoneService:    strings.EqualFold(cell("PhoneService"), "Yes"),
		InternetService: cell("InternetService"),
		MonthlyCharges:  monthly,
		TotalCharges:    total,
	}, nil
}

func parseFloatCell(value, column string, rowNum int) (float64, error) {
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, &CoercionError{Row: rowNum, Column: column, Value: value}
	}
	return parsed, nil
}
