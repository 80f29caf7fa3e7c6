package pipeline

import (
	"errors"
	"path/filepath"
	"testing"
)

func TestJobStoreRecordAndList(t *testing.T) {
	store, err := OpenJobStore(filepath.Join(t.TempDir(), "jobs.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer store.Close()

	if err := store.RecordJob("a.csv", 10, 3, nil); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := store.RecordJob("b.csv", 0, 0, errors.New("row 2: bad tenure")); err != nil {
		t.Fatalf("record: %v", err)
	}

	jobs, err := store.RecentJobs(10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(jobs) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(jobs))
	}
	// newest first
	if jobs[0].FileName != "b.csv" || jobs[0].Status != "aborted" || jobs[0].Error == "" {
		t.Fatalf("unexpected first job: %+v", jobs[0])
	}
	if jobs[1].FileName != "a.csv" || jobs[1].Status != "completed" || jobs[1].ChurnCount != 3 {
		t.Fatalf("unexpected second job: %+v", jobs[1])
	}
}
