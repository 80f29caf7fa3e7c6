// Package pipeline 的批处理任务记录
package pipeline

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// JobStore keeps a history of batch runs in sqlite.
type JobStore struct {
	db *sql.DB
}

// BatchJob is one recorded run, successful or aborted.
type BatchJob struct {
	ID         int64     `json:"id"`
	FileName   string    `json:"file_name"`
	RowCount   int       `json:"row_count"`
	ChurnCount int       `json:"churn_count"`
	Status     string    `json:"status"` // completed, aborted
	Error      string    `json:"error,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// OpenJobStore opens (creating if needed) the batch job table.
func OpenJobStore(path string) (*JobStore, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open job store: %w", err)
	}

	query := `
    CREATE TABLE IF NOT EXISTS batch_jobs (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        file_name TEXT NOT NULL,
        row_count INTEGER DEFAULT 0,
        churn_count INTEGER DEFAULT 0,
        status TEXT NOT NULL,
        error TEXT,
        created_at DATETIME DEFAULT CURRENT_TIMESTAMP
    );`
	if _, err := db.Exec(query); err != nil {
		db.Close()
		return nil, fmt.Errorf("create batch_jobs table: %w", err)
	}

	return &JobStore{db: db}, nil
}

// RecordJob stores the outcome of a run. runErr nil means completed.
func (s *JobStore) RecordJob(fileName string, rows, churn int, runErr error) error {
	status := "completed"
	errText := ""
	if runErr != nil {
		status = "aborted"
		errText = runErr.Error()
	}
	_, err := s.db.Exec(`
        INSERT INTO batch_jobs (file_name, row_count, churn_count, status, error)
        VALUES (?, ?, ?, ?, ?)`,
		fileName, rows, churn, status, errText)
	return err
}

// RecentJobs returns the latest runs, newest first.
func (s *JobStore) RecentJobs(limit int) ([]BatchJob, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(`
        SELECT id, file_name, row_count, churn_count, status, error, created_at
        FROM batch_jobs
        ORDER BY created_at DESC, id DESC
        LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	jobs := make([]BatchJob, 0)
	for rows.Next() {
		var job BatchJob
		var errText sql.NullString
		if err := rows.Scan(&job.ID, &job.FileName, &job.RowCount, &job.ChurnCount, &job.Status, &errText, &job.CreatedAt); err != nil {
			return nil, err
		}
		if errText.Valid {
			job.Error = errText.String
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// Close releases the underlying database handle.
func (s *JobStore) Close() error {
	return s.db.Close()
}
