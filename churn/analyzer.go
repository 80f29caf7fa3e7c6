package churn

import (
	"errors"
	"fmt"
	"strings"

	"churnsight/logging"
	"churnsight/ml"
)

// AnalysisResult is everything a front-end needs to render one
// customer: prediction, drivers, what-if outcome and the prepared
// retention artifacts.
type AnalysisResult struct {
	Prediction     ml.Prediction     `json:"prediction"`
	Drivers        []string          `json:"drivers"`
	Simulation     *SimulationResult `json:"simulation,omitempty"`
	CardSummary    string            `json:"card_summary"`
	Recommendation string            `json:"recommendation"`
	EmailDraft     string            `json:"email_draft,omitempty"`
}

// ErrNotReady is returned while the artifact store has not completed
// its first load.
var ErrNotReady = errors.New("classifier artifacts not loaded")

// Analyzer runs the single-record pipeline: encode, classify, explain,
// simulate. It holds no per-request state; concurrent calls are safe.
type Analyzer struct {
	store *ml.ArtifactStore
	cache *ResultCache
}

func NewAnalyzer(store *ml.ArtifactStore, cache *ResultCache) *Analyzer {
	return &Analyzer{store: store, cache: cache}
}

// Analyze scores one record and assembles the presentation payload.
func (a *Analyzer) Analyze(record ml.CustomerRecord) (*AnalysisResult, error) {
	artifacts := a.store.Current()
	if artifacts == nil {
		return nil, ErrNotReady
	}

	if a.cache != nil {
		if cached, ok := a.cache.Get(record); ok {
			return cached, nil
		}
	}

	vector, err := ml.BuildVector(artifacts.Encoders, record, nil)
	if err != nil {
		return nil, err
	}
	pred, err := artifacts.Model.Classify(vector)
	if err != nil {
		return nil, fmt.Errorf("classify: %w", err)
	}

	result := &AnalysisResult{
		Prediction: pred,
		Drivers:    Explain(record),
	}

	simulation, err := Simulate(artifacts.Model, artifacts.Encoders, record, pred.Probability)
	if err != nil {
		return nil, err
	}
	result.Simulation = simulation

	result.CardSummary = cardSummary(pred)
	result.Recommendation = recommendation(pred, simulation)
	if simulation != nil && simulation.Recommended {
		result.EmailDraft = emailDraft(record)
	}

	if a.cache != nil {
		a.cache.Put(record, result)
	}

	logging.L().Debugw("record analyzed",
		"churn", pred.Churn,
		"probability", pred.Probability,
		"drivers", len(result.Drivers))

	return result, nil
}

// WhatIf exposes the simulator against the current artifacts, for
// callers that already hold a base probability.
func (a *Analyzer) WhatIf(record ml.CustomerRecord, baseProbability float64) (*SimulationResult, error) {
	artifacts := a.store.Current()
	if artifacts == nil {
		return nil, ErrNotReady
	}
	return Simulate(artifacts.Model, artifacts.Encoders, record, baseProbability)
}

func cardSummary(pred ml.Prediction) string {
	if pred.Churn {
		return fmt.Sprintf("HIGH RISK — predicted to churn (%.1f%% probability)", pred.Probability*100)
	}
	return fmt.Sprintf("Stable — predicted to stay (%.1f%% churn probability)", pred.Probability*100)
}

func recommendation(pred ml.Prediction, sim *SimulationResult) string {
	switch {
	case sim != nil && sim.Recommended:
		return fmt.Sprintf("Send retention offer now: estimated risk reduction %.1f%%", sim.Delta*100)
	case sim != nil:
		return "Discount alone will not retain this customer; escalate to account review"
	case pred.Churn:
		return "Monitor account; risk is elevated but below the offer threshold"
	default:
		return "No action needed"
	}
}

func emailDraft(record ml.CustomerRecord) string {
	var b strings.Builder
	b.WriteString("Subject: A thank-you offer on your plan\n\n")
	b.WriteString("Hi,\n\n")
	b.WriteString("We value having you with us and would like to offer you 15% off your monthly charges")
	fmt.Fprintf(&b, " (%.2f instead of %.2f)", record.MonthlyCharges*offerDiscountFactor, record.MonthlyCharges)
	b.WriteString(" when you move to a one-year plan, with complimentary tech support included.\n\n")
	b.WriteString("Reply to this email or call us to activate the offer.\n\nBest regards,\nCustomer Care Team\n")
	return b.String()
}
