package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/timmy/finanalyzer/internal/domain"
	"github.com/timmy/finanalyzer/internal/logger"
)

// AsynqQueue submits jobs to Redis through asynq and reads their state back
// with the asynq inspector. Completed results are kept for Options.Retention.
type AsynqQueue struct {
	client    *asynq.Client
	inspector *asynq.Inspector
	opts      Options
}

// DefaultRetention is used by the asynq backend when Options.Retention is not
// positive. asynq deletes completed tasks without retention, and their result
// with them.
const DefaultRetention = 24 * time.Hour

// NewAsynqQueue creates a queue client for the given Redis connection.
func NewAsynqQueue(redisOpt asynq.RedisConnOpt, opts Options) *AsynqQueue {
	if opts.Retention <= 0 {
		opts.Retention = DefaultRetention
	}
	return &AsynqQueue{
		client:    asynq.NewClient(redisOpt),
		inspector: asynq.NewInspector(redisOpt),
		opts:      opts,
	}
}

// Submit enqueues job and returns its id. The id doubles as the asynq task id,
// so a second submit with the same id is rejected by the broker.
func (q *AsynqQueue) Submit(ctx context.Context, job domain.Job) (string, error) {
	job, payload, err := prepare(job)
	if err != nil {
		return "", err
	}

	taskOpts := []asynq.Option{
		asynq.TaskID(job.ID),
		asynq.Queue(q.opts.queueName()),
		asynq.MaxRetry(0),
		asynq.Retention(q.opts.Retention),
	}
	if q.opts.TaskTimeout > 0 {
		taskOpts = append(taskOpts, asynq.Timeout(q.opts.TaskTimeout))
	}

	info, err := q.client.EnqueueContext(ctx, asynq.NewTask(TypeAnalyze, payload), taskOpts...)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return "", fmt.Errorf("%w: %s", ErrDuplicateID, job.ID)
	}
	if err != nil {
		return "", fmt.Errorf("failed to enqueue job: %w", err)
	}

	logger.With(logger.Fields{
		logger.FieldJobID: info.ID,
		logger.FieldQueue: info.Queue,
	}).Info(ctx, "Job enqueued")
	return info.ID, nil
}

// Status reports the job's state. Unknown ids report pending together with
// an error wrapping domain.ErrJobNotFound.
func (q *AsynqQueue) Status(ctx context.Context, id string) (domain.JobStatus, error) {
	info, err := q.inspector.GetTaskInfo(q.opts.queueName(), id)
	if err != nil {
		if errors.Is(err, asynq.ErrTaskNotFound) || errors.Is(err, asynq.ErrQueueNotFound) {
			return notFound(id)
		}
		return domain.JobStatus{}, fmt.Errorf("failed to get job status: %w", err)
	}
	return statusFromTaskInfo(info), nil
}

// Shutdown releases the Redis connections. Enqueued jobs stay with the workers.
func (q *AsynqQueue) Shutdown(context.Context) error {
	return q.Close()
}

// Close releases the Redis connections.
func (q *AsynqQueue) Close() error {
	return errors.Join(q.client.Close(), q.inspector.Close())
}

// statusFromTaskInfo maps asynq task states onto job states. Jobs run with
// MaxRetry(0), so a failed task goes straight to archived.
func statusFromTaskInfo(info *asynq.TaskInfo) domain.JobStatus {
	st := domain.JobStatus{ID: info.ID}
	switch info.State {
	case asynq.TaskStatePending:
		st.State = domain.JobStatePending
	case asynq.TaskStateActive:
		st.State = domain.JobStateRunning
	case asynq.TaskStateCompleted:
		st.State = domain.JobStateSucceeded
		st.Result = string(info.Result)
	case asynq.TaskStateArchived:
		st.State = domain.JobStateFailed
		st.Error = info.LastErr
	default:
		st.Raw = info.State.String()
	}
	return st
}
