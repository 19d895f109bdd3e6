// Package queue dispatches analysis jobs to workers and reports their status.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/timmy/finanalyzer/internal/domain"
)

// TypeAnalyze is the task type name for analysis jobs.
const TypeAnalyze = "analysis:run"

// Runner executes one job and returns its result text.
type Runner interface {
	Run(ctx context.Context, job domain.Job) (string, error)
}

// RunnerFunc adapts a function to Runner.
type RunnerFunc func(ctx context.Context, job domain.Job) (string, error)

func (f RunnerFunc) Run(ctx context.Context, job domain.Job) (string, error) {
	return f(ctx, job)
}

// Options shared by the queue backends.
type Options struct {
	Name        string
	Concurrency int
	Retention   time.Duration
	// TaskTimeout bounds one job. Zero means no timeout in the memory backend;
	// asynq applies its own 30 minute default.
	TaskTimeout time.Duration
}

func (o Options) queueName() string {
	if o.Name == "" {
		return "analysis"
	}
	return o.Name
}

// prepare assigns an id and creation time and encodes the payload.
func prepare(job domain.Job) (domain.Job, []byte, error) {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}
	payload, err := json.Marshal(job)
	if err != nil {
		return job, nil, fmt.Errorf("failed to encode job: %w", err)
	}
	return job, payload, nil
}

func notFound(id string) (domain.JobStatus, error) {
	return domain.JobStatus{ID: id, State: domain.JobStatePending}, fmt.Errorf("%w: %s", domain.ErrJobNotFound, id)
}
