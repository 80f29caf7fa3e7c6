package churn

import (
	"reflect"
	"testing"

	"churnsight/ml"
)

func TestExplainAllThreeDriversInOrder(t *testing.T) {
	record := ml.CustomerRecord{
		Gender:          "Female",
		Partner:         true,
		TenureMonths:    3,
		PhoneService:    true,
		InternetService: "Fiber optic",
		MonthlyCharges:  95.0,
		TotalCharges:    285.0,
	}

	got := Explain(record)
	want := []string{DriverHighMonthly, DriverLowTenure, DriverFiber}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}

	// deterministic: same record, same output, every time
	for i := 0; i < 5; i++ {
		if !reflect.DeepEqual(Explain(record), want) {
			t.Fatal("explainer output is not stable")
		}
	}
}

func TestExplainSingleDrivers(t *testing.T) {
	record := ml.CustomerRecord{TenureMonths: 24, InternetService: "DSL", MonthlyCharges: 85}
	got := Explain(record)
	if !reflect.DeepEqual(got, []string{DriverHighMonthly}) {
		t.Fatalf("expected only high monthly, got %v", got)
	}

	record = ml.CustomerRecord{TenureMonths: 5, InternetService: "DSL", MonthlyCharges: 40}
	got = Explain(record)
	if !reflect.DeepEqual(got, []string{DriverLowTenure}) {
		t.Fatalf("expected only low tenure, got %v", got)
	}

	record = ml.CustomerRecord{TenureMonths: 24, InternetService: "fiber optic", MonthlyCharges: 40}
	got = Explain(record)
	if !reflect.DeepEqual(got, []string{DriverFiber}) {
		t.Fatalf("expected only fiber, got %v", got)
	}
}

func TestExplainBoundaryValues(t *testing.T) {
	// thresholds are strict: 80 exactly and 12 exactly do not fire
	record := ml.CustomerRecord{TenureMonths: 12, InternetService: "DSL", MonthlyCharges: 80}
	got := Explain(record)
	if !reflect.DeepEqual(got, []string{DriverNone}) {
		t.Fatalf("expected default driver, got %v", got)
	}
}

func TestExplainDefaultDriver(t *testing.T) {
	record := ml.CustomerRecord{TenureMonths: 36, InternetService: "No", MonthlyCharges: 25}
	got := Explain(record)
	if len(got) != 1 || got[0] != DriverNone {
		t.Fatalf("expected single default driver, got %v", got)
	}
}
