package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/timmy/finanalyzer/internal/domain"
	"github.com/timmy/finanalyzer/internal/logger"
)

var (
	ErrQueueFull   = errors.New("queue is full")
	ErrQueueClosed = errors.New("queue is closed")
	ErrDuplicateID = errors.New("job id already exists")
)

const defaultBacklog = 1024

type memoryEntry struct {
	status     domain.JobStatus
	finishedAt time.Time
}

// MemoryQueue runs jobs on an in-process worker pool. It is meant for
// single-binary deployments and tests; state is lost on restart.
type MemoryQueue struct {
	runner Runner
	opts   Options

	jobs chan domain.Job
	wg   sync.WaitGroup

	mu      sync.RWMutex
	entries map[string]*memoryEntry
	closed  bool

	cancel context.CancelFunc
}

// NewMemoryQueue creates a queue with opts.Concurrency workers. Call Start before Submit.
func NewMemoryQueue(runner Runner, opts Options) *MemoryQueue {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	return &MemoryQueue{
		runner:  runner,
		opts:    opts,
		jobs:    make(chan domain.Job, defaultBacklog),
		entries: make(map[string]*memoryEntry),
	}
}

// Start launches the workers. Cancelling ctx aborts running jobs.
func (q *MemoryQueue) Start(ctx context.Context) {
	ctx, q.cancel = context.WithCancel(ctx)
	logger.With(logger.Fields{logger.FieldQueue: q.opts.queueName()}).WithCount(q.opts.Concurrency).
		Info(ctx, "Starting memory queue workers")

	for i := 0; i < q.opts.Concurrency; i++ {
		q.wg.Add(1)
		go q.worker(ctx)
	}
}

// Submit records job as pending and hands it to the pool without waiting.
func (q *MemoryQueue) Submit(ctx context.Context, job domain.Job) (string, error) {
	job, _, err := prepare(job)
	if err != nil {
		return "", err
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return "", ErrQueueClosed
	}
	if _, ok := q.entries[job.ID]; ok {
		return "", fmt.Errorf("%w: %s", ErrDuplicateID, job.ID)
	}
	q.pruneLocked(time.Now())

	select {
	case q.jobs <- job:
	default:
		return "", ErrQueueFull
	}
	q.entries[job.ID] = &memoryEntry{status: domain.JobStatus{ID: job.ID, State: domain.JobStatePending}}

	logger.With(logger.Fields{logger.FieldJobID: job.ID}).Info(ctx, "Job enqueued")
	return job.ID, nil
}

// Status returns a snapshot of the job. Unknown ids report pending together
// with an error wrapping domain.ErrJobNotFound.
func (q *MemoryQueue) Status(ctx context.Context, id string) (domain.JobStatus, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	e, ok := q.entries[id]
	if !ok {
		return notFound(id)
	}
	return e.status, nil
}

// Close stops accepting jobs and waits for queued and running jobs to finish.
func (q *MemoryQueue) Close() error {
	return q.Shutdown(context.Background())
}

// Shutdown stops accepting jobs and waits for queued and running jobs until
// ctx is done. After that, running jobs are cancelled and jobs still queued
// are marked failed.
func (q *MemoryQueue) Shutdown(ctx context.Context) error {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.jobs)
	}
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	var err error
	select {
	case <-done:
	case <-ctx.Done():
		err = ctx.Err()
		logger.CtxWarn(ctx, "Memory queue shutdown timed out, cancelling running jobs")
		if q.cancel != nil {
			q.cancel()
		}
		<-done
	}
	if q.cancel != nil {
		q.cancel()
	}

	for job := range q.jobs {
		q.setStatus(domain.JobStatus{ID: job.ID, State: domain.JobStateFailed, Error: ErrQueueClosed.Error()})
	}
	return err
}

func (q *MemoryQueue) worker(ctx context.Context) {
	defer q.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-q.jobs:
			if !ok {
				return
			}
			q.execute(ctx, job)
		}
	}
}

func (q *MemoryQueue) execute(ctx context.Context, job domain.Job) {
	q.setStatus(domain.JobStatus{ID: job.ID, State: domain.JobStateRunning})

	runCtx := ctx
	if q.opts.TaskTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, q.opts.TaskTimeout)
		defer cancel()
	}

	result, err := q.safeRun(runCtx, job)
	if err != nil {
		q.setStatus(domain.JobStatus{ID: job.ID, State: domain.JobStateFailed, Error: err.Error()})
		logger.FromContext(ctx).WithField(logger.FieldJobID, job.ID).WithError(err).Error("Job failed")
		return
	}
	q.setStatus(domain.JobStatus{ID: job.ID, State: domain.JobStateSucceeded, Result: result})
}

func (q *MemoryQueue) safeRun(ctx context.Context, job domain.Job) (result string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return q.runner.Run(ctx, job)
}

// setStatus applies a transition. Terminal states are never overwritten.
func (q *MemoryQueue) setStatus(st domain.JobStatus) {
	q.mu.Lock()
	defer q.mu.Unlock()

	e, ok := q.entries[st.ID]
	if !ok {
		e = &memoryEntry{}
		q.entries[st.ID] = e
	}
	if e.status.State.IsTerminal() {
		return
	}
	e.status = st
	if st.State.IsTerminal() {
		e.finishedAt = time.Now()
	}
}

// pruneLocked drops terminal entries older than the retention period.
func (q *MemoryQueue) pruneLocked(now time.Time) {
	if q.opts.Retention <= 0 {
		return
	}
	for id, e := range q.entries {
		if e.status.State.IsTerminal() && now.Sub(e.finishedAt) > q.opts.Retention {
			delete(q.entries, id)
		}
	}
}
