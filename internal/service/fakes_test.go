package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/timmy/finanalyzer/internal/domain"
	"github.com/timmy/finanalyzer/internal/llm"
)

type fakeLLM struct {
	mu    sync.Mutex
	calls int
	fail  bool
}

func (f *fakeLLM) Complete(_ context.Context, req llm.Request) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.fail {
		return "", errors.New("model unavailable")
	}
	return "stage output: " + req.Messages[len(req.Messages)-1].Content, nil
}

func (f *fakeLLM) Model() string { return "fake" }

type savedRecord struct {
	jobID, filename, query, result string
}

type fakeSaver struct {
	mu    sync.Mutex
	saved []savedRecord
	err   error
}

func (f *fakeSaver) Save(_ context.Context, jobID, filename, query, result string) (*domain.AnalysisRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.saved = append(f.saved, savedRecord{jobID, filename, query, result})
	return &domain.AnalysisRecord{ID: uint(len(f.saved)), JobID: jobID}, nil
}

type fakeQueue struct {
	mu        sync.Mutex
	submitted []domain.Job
	statuses  map[string]domain.JobStatus
	err       error
}

func (f *fakeQueue) Submit(_ context.Context, job domain.Job) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.submitted = append(f.submitted, job)
	return "job-" + string(rune('0'+len(f.submitted))), nil
}

func (f *fakeQueue) Status(_ context.Context, id string) (domain.JobStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if st, ok := f.statuses[id]; ok {
		return st, nil
	}
	return domain.JobStatus{ID: id, State: domain.JobStatePending}, domain.ErrJobNotFound
}

// copyFixture copies a PDF from the extract testdata into dir.
func copyFixture(t *testing.T, name, dir string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("..", "extract", "testdata", name))
	if err != nil {
		t.Fatal(err)
	}
	dst := filepath.Join(dir, name)
	if err := os.WriteFile(dst, data, 0644); err != nil {
		t.Fatal(err)
	}
	return dst
}
