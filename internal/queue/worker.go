package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/timmy/finanalyzer/internal/domain"
	"github.com/timmy/finanalyzer/internal/logger"
)

// Worker consumes analysis tasks from Redis.
type Worker struct {
	srv *asynq.Server
	mux *asynq.ServeMux
}

// NewWorker creates an asynq server that hands every analysis task to runner.
func NewWorker(redisOpt asynq.RedisConnOpt, opts Options, runner Runner, log *logger.Logger) *Worker {
	if log == nil {
		log = logger.GetDefault()
	}
	log = log.WithField(logger.FieldComponent, "worker")

	srv := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: opts.Concurrency,
		Queues: map[string]int{
			opts.queueName(): 1,
		},
		Logger:          log,
		ShutdownTimeout: 30 * time.Second,
		BaseContext: func() context.Context {
			return log.WithContext(context.Background())
		},
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			id, _ := asynq.GetTaskID(ctx)
			logger.FromContext(ctx).WithField(logger.FieldJobID, id).WithError(err).
				Error("Job failed")
		}),
	})

	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeAnalyze, HandleAnalyzeTask(runner))

	return &Worker{srv: srv, mux: mux}
}

// Run blocks until SIGINT/SIGTERM, then drains active tasks.
func (w *Worker) Run() error {
	return w.srv.Run(w.mux)
}

// Start runs the server in the background.
func (w *Worker) Start() error {
	return w.srv.Start(w.mux)
}

// Shutdown stops fetching tasks and waits for active ones.
func (w *Worker) Shutdown() {
	w.srv.Shutdown()
}

// HandleAnalyzeTask decodes the job payload, runs it and stores the result
// text as the task result.
func HandleAnalyzeTask(runner Runner) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var job domain.Job
		if err := json.Unmarshal(t.Payload(), &job); err != nil {
			return fmt.Errorf("failed to unmarshal payload: %v: %w", err, asynq.SkipRetry)
		}
		if job.ID == "" {
			if id, ok := asynq.GetTaskID(ctx); ok {
				job.ID = id
			}
		}

		result, err := runner.Run(ctx, job)
		if err != nil {
			return err
		}

		// Tasks built outside a server (tests, NewTask) have no result writer.
		if w := t.ResultWriter(); w != nil {
			if _, err := w.Write([]byte(result)); err != nil {
				return fmt.Errorf("failed to write result: %w", err)
			}
		}
		return nil
	}
}
