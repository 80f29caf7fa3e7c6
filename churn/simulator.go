package churn

import (
	"fmt"

	"churnsight/ml"
)

// SimulationResult describes the effect of the retention offer.
type SimulationResult struct {
	Recommended    bool    `json:"recommended"`
	NewProbability float64 `json:"new_probability"`
	Delta          float64 `json:"delta"`
	Message        string  `json:"message"`
}

// The offer is fixed: 15% off monthly charges, move to a one-year
// contract, attach tech support. Exactly one candidate intervention is
// tried; this is a single counterfactual, not a search over offers.
const (
	simulationThreshold = 0.40
	offerDiscountFactor = 0.85
	offerContract       = "One year"
	offerTechSupport    = "Yes"
)

// Simulate re-scores the record with the retention offer applied as
// vector overrides. The record itself is never modified. Returns nil
// when the base probability does not clear the trigger threshold.
func Simulate(clf ml.Classifier, table *ml.EncoderTable, record ml.CustomerRecord, baseProbability float64) (*SimulationResult, error) {
	if baseProbability <= simulationThreshold {
		return nil, nil
	}

	contract := offerContract
	techSupport := offerTechSupport
	discounted := record.MonthlyCharges * offerDiscountFactor
	overrides := &ml.Overrides{
		Contract:       &contract,
		TechSupport:    &techSupport,
		MonthlyCharges: &discounted,
	}

	vector, err := ml.BuildVector(table, record, overrides)
	if err != nil {
		return nil, fmt.Errorf("build simulated vector: %w", err)
	}
	pred, err := clf.Classify(vector)
	if err != nil {
		return nil, fmt.Errorf("classify simulated vector: %w", err)
	}

	result := &SimulationResult{NewProbability: pred.Probability}
	if pred.Probability < baseProbability {
		result.Recommended = true
		result.Delta = baseProbability - pred.Probability
		result.Message = fmt.Sprintf(
			"Retention offer accepted: churn risk drops %.1f%% -> %.1f%% (15%% discount, one-year contract, tech support)",
			baseProbability*100, pred.Probability*100)
	} else {
		result.Message = "Retention offer has no effect; churn risk appears structural"
	}
	return result, nil
}
