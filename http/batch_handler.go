package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"churnsight/logging"
	"churnsight/monitoring"
	"churnsight/pipeline"
)

var (
	batchRunner *pipeline.Runner
	jobStore    *pipeline.JobStore
)

// SetBatchRunner wires the batch scoring pipeline.
func SetBatchRunner(r *pipeline.Runner) {
	batchRunner = r
}

// SetJobStore wires the batch job history store.
func SetJobStore(s *pipeline.JobStore) {
	jobStore = s
}

func RegisterBatchHandlers(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/batch", handleBatch)
	mux.HandleFunc("GET /api/batch/jobs", handleBatchJobs)
}

// handleBatch scores an uploaded CSV and streams the annotated file
// back. Any row failure aborts the whole upload; the response is then a
// structured error naming the offending row, not a partial file.
func handleBatch(w http.ResponseWriter, r *http.Request) {
	if batchRunner == nil {
		http.Error(w, `{"error":"service not ready"}`, http.StatusServiceUnavailable)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, `{"error":"multipart field 'file' is required"}`, http.StatusBadRequest)
		return
	}
	defer file.Close()

	result, err := batchRunner.Run(file, header.Filename)
	if err != nil {
		var batchErr *pipeline.BatchError
		if errors.As(err, &batchErr) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnprocessableEntity)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"error": batchErr.Error(),
				"row":   batchErr.Row,
			})
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if liveHub != nil {
		liveHub.PublishBatch(monitoring.BatchMessage{
			FileName:   header.Filename,
			RowCount:   result.RowCount,
			ChurnCount: result.ChurnCount,
		})
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "scored_"+header.Filename))
	if err := result.Write(w); err != nil {
		// 响应头已发出，只能记录
		logging.L().Warnw("write scored csv failed", "error", err)
	}
}

func handleBatchJobs(w http.ResponseWriter, r *http.Request) {
	if jobStore == nil {
		http.Error(w, `{"error":"job history not enabled"}`, http.StatusNotFound)
		return
	}

	limitStr := r.URL.Query().Get("limit")
	limit := 20
	if limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil {
			limit = l
		}
	}

	jobs, err := jobStore.RecentJobs(limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"data": jobs})
}
