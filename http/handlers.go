package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"churnsight/churn"
	"churnsight/db"
	"churnsight/logging"
	"churnsight/ml"
	"churnsight/monitoring"
)

var (
	analyzer *churn.Analyzer
	liveHub  *monitoring.Hub

	// swappable for tests
	savePrediction    = db.SavePrediction
	recentPredictions = db.RecentPredictions
)

// SetAnalyzer wires the analysis service used by the handlers.
func SetAnalyzer(a *churn.Analyzer) {
	analyzer = a
}

// SetHub wires the websocket hub prediction events are published to.
func SetHub(h *monitoring.Hub) {
	liveHub = h
}

func RegisterHandlers(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/health", handleHealth)
	mux.HandleFunc("POST /api/analyze", handleAnalyze)
	mux.HandleFunc("POST /api/simulate", handleSimulate)
	mux.HandleFunc("GET /api/predictions", handlePredictions)
	mux.HandleFunc("GET /api/ws/live", handleLive)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	if analyzer == nil {
		status = "degraded"
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": status})
}

func handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if analyzer == nil {
		http.Error(w, `{"error":"service not ready"}`, http.StatusServiceUnavailable)
		return
	}

	var record ml.CustomerRecord
	if err := json.NewDecoder(r.Body).Decode(&record); err != nil {
		http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
		return
	}

	result, err := analyzer.Analyze(record)
	if err != nil {
		writeAnalysisError(w, err)
		return
	}

	if err := savePrediction(record, result.Prediction, strings.Join(result.Drivers, "; ")); err != nil {
		logging.L().Warnw("prediction history write failed", "error", err)
	}
	if liveHub != nil {
		liveHub.PublishPrediction(monitoring.PredictionMessage{
			Churn:       result.Prediction.Churn,
			Probability: result.Prediction.Probability,
			Drivers:     result.Drivers,
			Recommended: result.Simulation != nil && result.Simulation.Recommended,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

type simulateRequest struct {
	Record          ml.CustomerRecord `json:"record"`
	BaseProbability float64           `json:"base_probability"`
}

func handleSimulate(w http.ResponseWriter, r *http.Request) {
	if analyzer == nil {
		http.Error(w, `{"error":"service not ready"}`, http.StatusServiceUnavailable)
		return
	}

	var req simulateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
		return
	}

	simulation, err := analyzer.WhatIf(req.Record, req.BaseProbability)
	if err != nil {
		writeAnalysisError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if simulation == nil {
		// 低于触发阈值：无需模拟
		json.NewEncoder(w).Encode(map[string]interface{}{
			"triggered": false,
			"message":   "base probability below simulation threshold",
		})
		return
	}
	json.NewEncoder(w).Encode(map[string]interface{}{
		"triggered":  true,
		"simulation": simulation,
	})
}

func handlePredictions(w http.ResponseWriter, r *http.Request) {
	limitStr := r.URL.Query().Get("limit")
	limit := 50
	if limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil {
			limit = l
		}
	}

	rows, err := recentPredictions(limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"data": rows})
}

func handleLive(w http.ResponseWriter, r *http.Request) {
	if liveHub == nil {
		http.Error(w, `{"error":"live feed not enabled"}`, http.StatusNotFound)
		return
	}
	liveHub.HandleWebSocket(w, r)
}

func writeAnalysisError(w http.ResponseWriter, err error) {
	if errors.Is(err, churn.ErrNotReady) {
		http.Error(w, `{"error":"classifier artifacts not loaded"}`, http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnprocessableEntity)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
