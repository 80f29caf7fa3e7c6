package pipeline

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"churnsight/ml"
)

type stubClassifier struct {
	prob float64
}

func (s *stubClassifier) Classify(features []float64) (ml.Prediction, error) {
	return ml.Prediction{Churn: s.prob >= 0.5, Probability: s.prob}, nil
}

func batchStore(prob float64) *ml.ArtifactStore {
	store := ml.NewArtifactStore("forest", "", "")
	store.Install(&ml.Artifacts{
		Model: &stubClassifier{prob: prob},
		Encoders: ml.NewEncoderTable(map[string]map[string]int{
			"gender":          {"Female": 0, "Male": 1},
			"Partner":         {"No": 0, "Yes": 1},
			"InternetService": {"DSL": 0, "Fiber optic": 1, "No": 2},
		}),
	})
	return store
}

const happyCSV = `customerID,gender,SeniorCitizen,Partner,Dependents,tenure,PhoneService,InternetService,MonthlyCharges,TotalCharges
C1,Female,0,Yes,No,3,Yes,Fiber optic,95.0,285.0
C2,Male,1,No,No,40,Yes,DSL,30.5,1220.0
C3,Female,0,No,Yes,12,No,No,20.0,240.0
`

func TestRunAppendsPredictionColumns(t *testing.T) {
	runner := NewRunner(batchStore(0.7321), nil, "")
	result, err := runner.Run(strings.NewReader(happyCSV), "upload.csv")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.RowCount != 3 {
		t.Fatalf("expected 3 rows, got %d", result.RowCount)
	}
	header := result.Rows[0]
	if header[len(header)-2] != "Prediction" || header[len(header)-1] != "Churn_Probability" {
		t.Fatalf("unexpected appended header: %v", header)
	}

	for i, row := range result.Rows[1:] {
		if len(row) != len(header) {
			t.Fatalf("row %d width mismatch: %v", i+1, row)
		}
		if row[len(row)-2] != "Churn" {
			t.Fatalf("expected Churn label, got %q", row[len(row)-2])
		}
		if row[len(row)-1] != "0.7321" {
			t.Fatalf("expected 4-decimal probability, got %q", row[len(row)-1])
		}
	}

	// original columns preserved unchanged
	if result.Rows[1][0] != "C1" || result.Rows[1][1] != "Female" {
		t.Fatalf("original columns altered: %v", result.Rows[1])
	}
	if result.ChurnCount != 3 {
		t.Fatalf("expected churn count 3, got %d", result.ChurnCount)
	}
}

func TestRunAbortsWholeBatchOnCoercionError(t *testing.T) {
	input := `gender,tenure,MonthlyCharges,TotalCharges
Female,3,95.0,285.0
Male,abc,30.5,1220.0
Female,12,20.0,240.0
`
	runner := NewRunner(batchStore(0.2), nil, "")
	result, err := runner.Run(strings.NewReader(input), "upload.csv")
	if result != nil {
		t.Fatalf("expected no partial output, got %d rows", len(result.Rows))
	}

	var batchErr *BatchError
	if !errors.As(err, &batchErr) {
		t.Fatalf("expected BatchError, got %v", err)
	}
	if batchErr.Row != 2 {
		t.Fatalf("expected abort at row 2, got %d", batchErr.Row)
	}
	var coercion *CoercionError
	if !errors.As(err, &coercion) {
		t.Fatalf("expected wrapped CoercionError, got %v", err)
	}
	if coercion.Column != "tenure" || coercion.Value != "abc" {
		t.Fatalf("unexpected coercion detail: %+v", coercion)
	}
}

func TestRunDefaultsMissingColumns(t *testing.T) {
	// only monthly charges given; everything else falls back
	input := "MonthlyCharges\n55.5\n"
	runner := NewRunner(batchStore(0.1), nil, "")
	result, err := runner.Run(strings.NewReader(input), "sparse.csv")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.RowCount != 1 {
		t.Fatalf("expected 1 row, got %d", result.RowCount)
	}
	row := result.Rows[1]
	if row[len(row)-2] != "No Churn" {
		t.Fatalf("expected No Churn, got %q", row[len(row)-2])
	}
}

func TestRunBlankNumericCellUsesDefault(t *testing.T) {
	// blank TotalCharges cells appear in real exports and default to 0;
	// only non-empty garbage is a coercion error
	input := "tenure,MonthlyCharges,TotalCharges\n5,42.0, \n"
	runner := NewRunner(batchStore(0.1), nil, "")
	if _, err := runner.Run(strings.NewReader(input), "blank.csv"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRunEmptyFile(t *testing.T) {
	runner := NewRunner(batchStore(0.1), nil, "")
	if _, err := runner.Run(strings.NewReader(""), "empty.csv"); err == nil {
		t.Fatal("expected error for empty input")
	}
}

func TestResultWriteRoundTrips(t *testing.T) {
	runner := NewRunner(batchStore(0.9), nil, "")
	result, err := runner.Run(strings.NewReader(happyCSV), "upload.csv")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var buf bytes.Buffer
	if err := result.Write(&buf); err != nil {
		t.Fatalf("write: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected header plus 3 rows, got %d lines", len(lines))
	}
	if !strings.HasSuffix(lines[1], ",Churn,0.9000") {
		t.Fatalf("unexpected annotated row: %q", lines[1])
	}
}
