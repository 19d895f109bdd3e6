package queue

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/hibiken/asynq"

	"github.com/timmy/finanalyzer/internal/domain"
	"github.com/timmy/finanalyzer/internal/logger"
)

func newTestBroker(t *testing.T) asynq.RedisConnOpt {
	t.Helper()
	mr := miniredis.RunT(t)
	return asynq.RedisClientOpt{Addr: mr.Addr()}
}

func newTestAsynqQueue(t *testing.T, redisOpt asynq.RedisConnOpt, opts Options) *AsynqQueue {
	t.Helper()
	q := NewAsynqQueue(redisOpt, opts)
	t.Cleanup(func() { q.Close() })
	return q
}

func startTestWorker(t *testing.T, redisOpt asynq.RedisConnOpt, opts Options, runner Runner) {
	t.Helper()
	log := logger.New(&logger.Config{Level: "error", Output: io.Discard, ServiceName: "test"})
	w := NewWorker(redisOpt, opts, runner, log)
	if err := w.Start(); err != nil {
		t.Fatalf("worker Start() error = %v", err)
	}
	t.Cleanup(w.Shutdown)
}

// reportRunner succeeds unless the query is "fail".
var reportRunner = RunnerFunc(func(ctx context.Context, job domain.Job) (string, error) {
	if job.Query == "fail" {
		return "", errors.New("pipeline failed: boom")
	}
	return "report for " + job.FilePath, nil
})

func waitAsynqTerminal(t *testing.T, q *AsynqQueue, id string) domain.JobStatus {
	t.Helper()
	deadline := time.Now().Add(15 * time.Second)
	var last domain.JobStatus
	for time.Now().Before(deadline) {
		st, err := q.Status(context.Background(), id)
		if err == nil && st.State.IsTerminal() {
			return st
		}
		last = st
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatalf("job %s never finished, last status %+v", id, last)
	return last
}

func TestAsynqQueueRoundTrip(t *testing.T) {
	redisOpt := newTestBroker(t)
	opts := Options{Name: "analysis", Concurrency: 2, Retention: time.Hour}
	q := newTestAsynqQueue(t, redisOpt, opts)
	startTestWorker(t, redisOpt, opts, reportRunner)

	tests := []struct {
		name       string
		job        domain.Job
		wantLabel  string
		wantResult string
		wantErr    string
	}{
		{
			name:       "completed",
			job:        domain.Job{FilePath: "data/a.pdf", Query: "What is the revenue?"},
			wantLabel:  "completed",
			wantResult: "report for data/a.pdf",
		},
		{
			name:      "runner error",
			job:       domain.Job{FilePath: "data/b.pdf", Query: "fail"},
			wantLabel: "failed",
			wantErr:   "pipeline failed: boom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := q.Submit(context.Background(), tt.job)
			if err != nil {
				t.Fatalf("Submit() error = %v", err)
			}

			st := waitAsynqTerminal(t, q, id)
			if st.ID != id {
				t.Errorf("ID = %q, want %q", st.ID, id)
			}
			if st.Label() != tt.wantLabel {
				t.Errorf("Label() = %q, want %q", st.Label(), tt.wantLabel)
			}
			if st.Result != tt.wantResult {
				t.Errorf("Result = %q, want %q", st.Result, tt.wantResult)
			}
			if !strings.Contains(st.Error, tt.wantErr) {
				t.Errorf("Error = %q, want it to contain %q", st.Error, tt.wantErr)
			}
		})
	}
}

func TestAsynqQueueZeroRetentionKeepsResult(t *testing.T) {
	redisOpt := newTestBroker(t)
	opts := Options{Concurrency: 1}
	q := newTestAsynqQueue(t, redisOpt, opts)
	startTestWorker(t, redisOpt, opts, reportRunner)

	id, err := q.Submit(context.Background(), domain.Job{FilePath: "data/a.pdf", Query: "q"})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	st := waitAsynqTerminal(t, q, id)
	if st.Label() != "completed" || st.Result != "report for data/a.pdf" {
		t.Errorf("status = %+v, want completed with result", st)
	}
}

func TestAsynqQueueUnknownID(t *testing.T) {
	redisOpt := newTestBroker(t)
	q := newTestAsynqQueue(t, redisOpt, Options{Retention: time.Hour})
	ctx := context.Background()

	check := func(t *testing.T) {
		st, err := q.Status(ctx, "does-not-exist")
		if !errors.Is(err, domain.ErrJobNotFound) {
			t.Errorf("Status() error = %v, want ErrJobNotFound", err)
		}
		if st.Label() != "pending" {
			t.Errorf("Label() = %q, want pending", st.Label())
		}
	}

	t.Run("queue not created yet", check)

	if _, err := q.Submit(ctx, domain.Job{FilePath: "data/a.pdf", Query: "q"}); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	t.Run("queue exists", check)
}

func TestAsynqQueueRejectsDuplicateID(t *testing.T) {
	redisOpt := newTestBroker(t)
	q := newTestAsynqQueue(t, redisOpt, Options{Retention: time.Hour})
	ctx := context.Background()

	job := domain.Job{ID: "job-1", FilePath: "data/a.pdf", Query: "q"}
	id, err := q.Submit(ctx, job)
	if err != nil || id != "job-1" {
		t.Fatalf("Submit() = %q, %v", id, err)
	}

	if _, err := q.Submit(ctx, job); !errors.Is(err, ErrDuplicateID) {
		t.Errorf("second Submit() error = %v, want ErrDuplicateID", err)
	}

	st, err := q.Status(ctx, "job-1")
	if err != nil || st.Label() != "pending" {
		t.Errorf("Status() = %+v, %v, want pending", st, err)
	}
}
