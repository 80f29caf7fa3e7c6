package churn

import (
	"math"
	"testing"

	"churnsight/ml"
)

type stubClassifier struct {
	fn func(features []float64) ml.Prediction
}

func (s *stubClassifier) Classify(features []float64) (ml.Prediction, error) {
	return s.fn(features), nil
}

func simTable() *ml.EncoderTable {
	return ml.NewEncoderTable(map[string]map[string]int{
		"gender":           {"Female": 0, "Male": 1},
		"Partner":          {"No": 0, "Yes": 1},
		"Dependents":       {"No": 0, "Yes": 1},
		"PhoneService":     {"No": 0, "Yes": 1},
		"MultipleLines":    {"No": 0, "Yes": 2},
		"InternetService":  {"DSL": 0, "Fiber optic": 1, "No": 2},
		"OnlineSecurity":   {"No": 0, "Yes": 2},
		"OnlineBackup":     {"No": 0, "Yes": 2},
		"DeviceProtection": {"No": 0, "Yes": 2},
		"TechSupport":      {"No": 0, "Yes": 2},
		"StreamingTV":      {"No": 0, "Yes": 2},
		"StreamingMovies":  {"No": 0, "Yes": 2},
		"Contract":         {"Month-to-month": 0, "One year": 1, "Two year": 2},
		"PaperlessBilling": {"No": 0, "Yes": 1},
		"PaymentMethod":    {"Electronic check": 2, "Mailed check": 3},
	})
}

func simRecord() ml.CustomerRecord {
	return ml.CustomerRecord{
		Gender:          "Female",
		Partner:         true,
		TenureMonths:    3,
		PhoneService:    true,
		InternetService: "Fiber optic",
		MonthlyCharges:  95.0,
		TotalCharges:    285.0,
	}
}

func TestSimulateNotTriggeredAtOrBelowThreshold(t *testing.T) {
	clf := &stubClassifier{fn: func([]float64) ml.Prediction {
		t.Fatal("classifier must not be called below the threshold")
		return ml.Prediction{}
	}}

	for _, base := range []float64{0.0, 0.25, 0.40} {
		result, err := Simulate(clf, simTable(), simRecord(), base)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result != nil {
			t.Fatalf("expected no simulation at base %v", base)
		}
	}
}

func TestSimulateOfferAccepted(t *testing.T) {
	// classifier reads the monthly column: discounted vector scores lower
	clf := &stubClassifier{fn: func(features []float64) ml.Prediction {
		monthly := features[17]
		if math.Abs(monthly-80.75) < 1e-9 {
			return ml.Prediction{Churn: false, Probability: 0.30}
		}
		return ml.Prediction{Churn: true, Probability: 0.55}
	}}

	record := simRecord()
	result, err := Simulate(clf, simTable(), record, 0.55)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result == nil {
		t.Fatal("expected a simulation above the threshold")
	}
	if !result.Recommended {
		t.Fatalf("expected offer to be recommended: %+v", result)
	}
	if result.NewProbability != 0.30 {
		t.Fatalf("expected new probability 0.30, got %v", result.NewProbability)
	}
	if math.Abs(result.Delta-0.25) > 1e-9 {
		t.Fatalf("expected delta 0.25, got %v", result.Delta)
	}
	if result.Message == "" {
		t.Fatal("expected an offer message")
	}

	// the record itself must stay untouched
	if record.MonthlyCharges != 95.0 {
		t.Fatalf("record mutated by simulation: %v", record.MonthlyCharges)
	}
}

func TestSimulateStructuralRisk(t *testing.T) {
	clf := &stubClassifier{fn: func([]float64) ml.Prediction {
		return ml.Prediction{Churn: true, Probability: 0.80}
	}}

	result, err := Simulate(clf, simTable(), simRecord(), 0.55)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result == nil {
		t.Fatal("expected a simulation above the threshold")
	}
	if result.Recommended {
		t.Fatalf("offer must not be recommended when risk does not drop: %+v", result)
	}
	if result.Delta != 0 {
		t.Fatalf("expected zero delta, got %v", result.Delta)
	}
}
