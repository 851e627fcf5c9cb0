package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/wonny/breadthcore/pkg/logger"
)

type fakeJob struct {
	name     string
	schedule string
	runs     int
	err      error
}

func (j *fakeJob) Name() string     { return j.name }
func (j *fakeJob) Schedule() string { return j.schedule }
func (j *fakeJob) Run(_ context.Context) error {
	j.runs++
	return j.err
}

func TestAddJob(t *testing.T) {
	s := New(logger.NewNop())

	job := &fakeJob{name: "recalc", schedule: "0 30 5 * * *"}
	if err := s.AddJob(job); err != nil {
		t.Fatalf("AddJob failed: %v", err)
	}

	// Duplicate name is rejected
	if err := s.AddJob(&fakeJob{name: "recalc", schedule: "@daily"}); err == nil {
		t.Error("expected duplicate job to be rejected")
	}

	// Invalid cron spec is rejected
	if err := s.AddJob(&fakeJob{name: "bad", schedule: "not a cron spec"}); err == nil {
		t.Error("expected invalid schedule to be rejected")
	}

	jobs := s.JobNames()
	if len(jobs) != 1 || jobs[0] != "recalc" {
		t.Errorf("expected [recalc], got %v", jobs)
	}
}

func TestRemoveJob(t *testing.T) {
	s := New(logger.NewNop())

	if err := s.RemoveJob("missing"); err == nil {
		t.Error("expected error removing unknown job")
	}

	if err := s.AddJob(&fakeJob{name: "recalc", schedule: "@daily"}); err != nil {
		t.Fatalf("AddJob failed: %v", err)
	}
	if err := s.RemoveJob("recalc"); err != nil {
		t.Errorf("RemoveJob failed: %v", err)
	}
	if len(s.JobNames()) != 0 {
		t.Error("expected no jobs after removal")
	}
}

func TestRunNow(t *testing.T) {
	s := New(logger.NewNop())

	job := &fakeJob{name: "recalc", schedule: "@daily"}
	if err := s.AddJob(job); err != nil {
		t.Fatalf("AddJob failed: %v", err)
	}

	if err := s.RunNow("missing"); err == nil {
		t.Error("expected error running unknown job")
	}

	if err := s.RunNow("recalc"); err != nil {
		t.Fatalf("RunNow failed: %v", err)
	}

	// RunNow is asynchronous; wait for the history entry.
	deadline := time.Now().Add(2 * time.Second)
	for {
		history, err := s.History("recalc")
		if err != nil {
			t.Fatalf("History failed: %v", err)
		}
		if len(history.Results) > 0 {
			if !history.Results[0].Success {
				t.Errorf("expected success, got %+v", history.Results[0])
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("job never recorded a result")
		}
		time.Sleep(10 * time.Millisecond)
	}

	if job.runs != 1 {
		t.Errorf("expected 1 run, got %d", job.runs)
	}
}

func TestJobHistory(t *testing.T) {
	h := &JobHistory{}

	if h.SuccessRate() != 0.0 {
		t.Error("expected 0.0 success rate for empty history")
	}

	for i := 0; i < 110; i++ {
		h.AddResult(JobResult{
			JobName: "recalc",
			Success: i%2 == 0,
		})
	}

	// Capped at 100 entries
	if len(h.Results) != 100 {
		t.Errorf("expected history capped at 100, got %d", len(h.Results))
	}

	if rate := h.SuccessRate(); rate != 0.5 {
		t.Errorf("expected 0.5 success rate, got %f", rate)
	}

	latest := h.Latest(10)
	if len(latest) != 10 {
		t.Errorf("expected 10 latest results, got %d", len(latest))
	}

	failed := h.Failed()
	if len(failed) != 50 {
		t.Errorf("expected 50 failures, got %d", len(failed))
	}

	// Asking for more than exists returns everything
	if got := h.Latest(500); len(got) != 100 {
		t.Errorf("expected 100 results, got %d", len(got))
	}
}

func TestJobStats(t *testing.T) {
	s := New(logger.NewNop())

	if err := s.AddJob(&fakeJob{name: "recalc", schedule: "@daily"}); err != nil {
		t.Fatalf("AddJob failed: %v", err)
	}

	s.mu.Lock()
	s.history["recalc"].AddResult(JobResult{JobName: "recalc", StartTime: time.Now(), Success: true})
	s.history["recalc"].AddResult(JobResult{JobName: "recalc", StartTime: time.Now(), Success: false, Error: "boom"})
	s.mu.Unlock()

	stats := s.Stats()
	st, ok := stats["recalc"]
	if !ok {
		t.Fatal("expected stats for recalc")
	}
	if st.TotalRuns != 2 || st.SuccessCount != 1 || st.FailureCount != 1 {
		t.Errorf("unexpected stats: %+v", st)
	}
	if st.Schedule != "@daily" {
		t.Errorf("expected @daily schedule, got %s", st.Schedule)
	}
	if st.LastFailure == nil {
		t.Error("expected a last failure timestamp")
	}
}
