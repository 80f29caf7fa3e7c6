package ml

import (
	"errors"
	"fmt"
)

// CustomerRecord holds the raw account attributes an analysis starts
// from. Only the fields the intake form exposes are present; the
// remaining columns the model was trained on are defaulted inside
// BuildVector.
type CustomerRecord struct {
	Gender          string  `json:"gender"`
	SeniorCitizen   bool    `json:"senior_citizen"`
	Partner         bool    `json:"partner"`
	Dependents      bool    `json:"dependents"`
	TenureMonths    int     `json:"tenure_months"`
	PhoneService    bool    `json:"phone_service"`
	InternetService string  `json:"internet_service"`
	MonthlyCharges  float64 `json:"monthly_charges"`
	TotalCharges    float64 `json:"total_charges"`
}

// Overrides substitutes simulated values into the vector without
// touching the record itself.
type Overrides struct {
	Contract       *string
	TechSupport    *string
	MonthlyCharges *float64
}

// Baselines for the columns the intake form does not expose.
const (
	DefaultMultipleLines    = "No"
	DefaultOnlineSecurity   = "No"
	DefaultOnlineBackup     = "No"
	DefaultDeviceProtection = "No"
	DefaultTechSupport      = "No"
	DefaultStreamingTV      = "No"
	DefaultStreamingMovies  = "No"
	DefaultContract         = "Month-to-month"
	DefaultPaperlessBilling = "Yes"
	DefaultPaymentMethod    = "Electronic check"
)

// VectorWidth is the column count the classifier was fit on.
const VectorWidth = 19

// FeatureNames returns the training column order. BuildVector must
// emit values in exactly this order or predictions are silently wrong.
func FeatureNames() []string {
	return []string{
		"gender",
		"SeniorCitizen",
		"Partner",
		"Dependents",
		"tenure",
		"PhoneService",
		"MultipleLines",
		"InternetService",
		"OnlineSecurity",
		"OnlineBackup",
		"DeviceProtection",
		"TechSupport",
		"StreamingTV",
		"StreamingMovies",
		"Contract",
		"PaperlessBilling",
		"PaymentMethod",
		"MonthlyCharges",
		"TotalCharges",
	}
}

// Validate rejects records the vector builder cannot represent.
func (r CustomerRecord) Validate() error {
	if r.TenureMonths < 0 {
		return errors.New("tenure must be non-negative")
	}
	if r.MonthlyCharges < 0 {
		return errors.New("monthly charges must be non-negative")
	}
	if r.TotalCharges < 0 {
		return errors.New("total charges must be non-negative")
	}
	return nil
}

// BuildVector assembles the 19-column feature vector for a record,
// applying any simulation overrides. The record is never mutated; an
// overridden build and a plain build from the same record are disjoint.
func BuildVector(table *EncoderTable, record CustomerRecord, overrides *Overrides) ([]float64, error) {
	if err := record.Validate(); err != nil {
		return nil, fmt.Errorf("invalid record: %w", err)
	}

	contract := DefaultContract
	techSupport := DefaultTechSupport
	monthly := record.MonthlyCharges
	if overrides != nil {
		if overrides.Contract != nil {
			contract = *overrides.Contract
		}
		if overrides.TechSupport != nil {
			techSupport = *overrides.TechSupport
		}
		if overrides.MonthlyCharges != nil {
			monthly = *overrides.MonthlyCharges
		}
	}

	vector := []float64{
		float64(table.Encode("gender", record.Gender)),
		boolToFloat(record.SeniorCitizen),
		float64(table.Encode("Partner", yesNo(record.Partner))),
		float64(table.Encode("Dependents", yesNo(record.Dependents))),
		float64(record.TenureMonths),
		float64(table.Encode("PhoneService", yesNo(record.PhoneService))),
		float64(table.Encode("MultipleLines", DefaultMultipleLines)),
		float64(table.Encode("InternetService", record.InternetService)),
		float64(table.Encode("OnlineSecurity", DefaultOnlineSecurity)),
		float64(table.Encode("OnlineBackup", DefaultOnlineBackup)),
		float64(table.Encode("DeviceProtection", DefaultDeviceProtection)),
		float64(table.Encode("TechSupport", techSupport)),
		float64(table.Encode("StreamingTV", DefaultStreamingTV)),
		float64(table.Encode("StreamingMovies", DefaultStreamingMovies)),
		float64(table.Encode("Contract", contract)),
		float64(table.Encode("PaperlessBilling", DefaultPaperlessBilling)),
		float64(table.Encode("PaymentMethod", DefaultPaymentMethod)),
		monthly,
		record.TotalCharges,
	}
	return vector, nil
}

func yesNo(v bool) string {
	if v {
		return "Yes"
	}
	return "No"
}

func boolToFloat(v bool) float64 {
	if v {
		return 1
	}
	return 0
}
