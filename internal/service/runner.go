package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/timmy/finanalyzer/internal/agent"
	"github.com/timmy/finanalyzer/internal/domain"
	"github.com/timmy/finanalyzer/internal/llm"
	"github.com/timmy/finanalyzer/internal/logger"
	"github.com/timmy/finanalyzer/internal/storage"
)

// RecordSaver persists the outcome of a successful job.
type RecordSaver interface {
	Save(ctx context.Context, jobID, filename, query, result string) (*domain.AnalysisRecord, error)
}

// RunnerConfig controls per-job behavior.
type RunnerConfig struct {
	Pipeline               agent.Config
	CleanupAfterProcessing bool
}

// JobRunner executes analysis jobs for the queue workers.
type JobRunner struct {
	client  llm.Client
	records RecordSaver
	archive storage.ObjectStorage
	cfg     RunnerConfig
}

// NewJobRunner creates a new JobRunner. records and archive may be nil.
func NewJobRunner(client llm.Client, records RecordSaver, archive storage.ObjectStorage, cfg RunnerConfig) *JobRunner {
	return &JobRunner{
		client:  client,
		records: records,
		archive: archive,
		cfg:     cfg,
	}
}

// Run builds a fresh pipeline for job, runs it and persists the report.
// Parameters:
//   - ctx: worker context; cancelled on shutdown or timeout.
//   - job: the queued job.
//
// Returns:
//   - string: the verified report, stored as the job result.
//   - error: the pipeline error; persistence errors are logged only.
func (r *JobRunner) Run(ctx context.Context, job domain.Job) (string, error) {
	ctx = logger.SetJobID(ctx, job.ID)
	start := time.Now()
	logger.CtxInfo(ctx, "Processing document %s", job.FilePath)

	if err := r.ensureLocal(ctx, job); err != nil {
		// The extractor reports the missing file to the model.
		logger.CtxWarn(ctx, "Could not restore %s from archive: %v", job.FilePath, err)
	}

	pipeline := agent.NewFinancialPipeline(r.client, r.cfg.Pipeline)
	res, err := pipeline.Run(ctx, agent.Inputs{
		Query:        job.Query,
		DocumentPath: job.FilePath,
	})
	if err != nil {
		logger.With(logger.Fields{logger.FieldDocument: job.FilePath}).WithStatus(string(domain.JobStateFailed)).
			WithDuration(start).Error(ctx, "Job failed: %v", err)
		return "", err
	}

	if r.records != nil {
		if rec, err := r.records.Save(ctx, job.ID, job.FilePath, job.Query, res.Report); err != nil {
			logger.CtxError(ctx, "Failed to persist analysis result: %v", err)
		} else {
			logger.CtxInfo(ctx, "Analysis result stored as record %d", rec.ID)
		}
	}

	if r.cfg.CleanupAfterProcessing {
		r.cleanup(ctx, job)
	}

	logger.With(logger.Fields{logger.FieldSize: len(res.Report)}).
		WithStatus(string(domain.JobStateSucceeded)).WithDuration(start).Info(ctx, "Job completed")
	return res.Report, nil
}

// ensureLocal downloads the archived copy when the worker does not share the
// API's upload directory.
func (r *JobRunner) ensureLocal(ctx context.Context, job domain.Job) error {
	if _, err := os.Stat(job.FilePath); err == nil {
		return nil
	}
	if r.archive == nil || job.ObjectKey == "" {
		return nil
	}

	rc, err := r.archive.Download(ctx, job.ObjectKey)
	if err != nil {
		return err
	}
	defer rc.Close()

	if err := os.MkdirAll(filepath.Dir(job.FilePath), 0755); err != nil {
		return err
	}
	f, err := os.Create(job.FilePath)
	if err != nil {
		return err
	}
	_, copyErr := io.Copy(f, rc)
	closeErr := f.Close()
	if err := errors.Join(copyErr, closeErr); err != nil {
		os.Remove(job.FilePath)
		return fmt.Errorf("failed to restore document: %w", err)
	}

	logger.CtxInfo(ctx, "Restored %s from archive key %s", job.FilePath, job.ObjectKey)
	return nil
}

func (r *JobRunner) cleanup(ctx context.Context, job domain.Job) {
	if err := os.Remove(job.FilePath); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.CtxWarn(ctx, "Failed to remove %s: %v", job.FilePath, err)
	}
	if r.archive != nil && job.ObjectKey != "" {
		if err := r.archive.Delete(ctx, job.ObjectKey); err != nil {
			logger.CtxWarn(ctx, "Failed to remove archived %s: %v", job.ObjectKey, err)
		}
	}
}
