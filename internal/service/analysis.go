package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/timmy/finanalyzer/internal/domain"
	"github.com/timmy/finanalyzer/internal/logger"
	"github.com/timmy/finanalyzer/internal/storage"
)

// JobQueue is the dispatch side of the queue backends.
type JobQueue interface {
	Submit(ctx context.Context, job domain.Job) (string, error)
	Status(ctx context.Context, id string) (domain.JobStatus, error)
}

// RecordReader reads persisted analysis results.
type RecordReader interface {
	GetByID(ctx context.Context, id uint) (*domain.AnalysisRecord, error)
	List(ctx context.Context, limit, offset int) ([]domain.AnalysisRecord, error)
	Count(ctx context.Context) (int64, error)
}

// AnalysisConfig holds upload rules.
type AnalysisConfig struct {
	MaxUploadBytes    int64
	AllowedExtensions []string
	ArchivePrefix     string
}

// Upload is a document received from a client.
type Upload struct {
	Filename    string
	Size        int64
	ContentType string
	Body        io.Reader
}

// Submission is returned once a job has been queued.
type Submission struct {
	JobID    string
	FilePath string
}

// AnalysisService accepts uploads, queues analysis jobs and answers status queries.
type AnalysisService struct {
	uploads *storage.LocalStorage
	archive storage.ObjectStorage
	queue   JobQueue
	records RecordReader
	cfg     AnalysisConfig
}

// NewAnalysisService creates a new AnalysisService. archive and records may be nil.
func NewAnalysisService(
	uploads *storage.LocalStorage,
	archive storage.ObjectStorage,
	queue JobQueue,
	records RecordReader,
	cfg AnalysisConfig,
) *AnalysisService {
	return &AnalysisService{
		uploads: uploads,
		archive: archive,
		queue:   queue,
		records: records,
		cfg:     cfg,
	}
}

// Analyze saves the upload and queues a job for it. It returns as soon as
// the job is queued.
// Parameters:
//   - ctx: request context.
//   - upload: the document.
//   - query: the user's question.
//
// Returns:
//   - *Submission: job id and stored file path.
//   - error: wraps domain.ErrFileSave or domain.ErrInvalidUpload, or the queue error.
func (s *AnalysisService) Analyze(ctx context.Context, upload Upload, query string) (*Submission, error) {
	filePath, objectKey, err := s.SaveUpload(ctx, upload)
	if err != nil {
		return nil, err
	}

	id, err := s.queue.Submit(ctx, domain.Job{
		FilePath:  filePath,
		Query:     query,
		Filename:  upload.Filename,
		ObjectKey: objectKey,
	})
	if err != nil {
		return nil, err
	}

	logger.CtxInfo(logger.SetJobID(ctx, id), "Analysis queued for %s", filePath)
	return &Submission{JobID: id, FilePath: filePath}, nil
}

// SaveUpload stores the upload as <uuid><original extension> in the upload
// directory and, when an archive is configured, copies it there as well.
// Returns the local path and the archive key (empty without an archive).
func (s *AnalysisService) SaveUpload(ctx context.Context, upload Upload) (string, string, error) {
	ext := filepath.Ext(upload.Filename)
	if err := s.checkUpload(upload, ext); err != nil {
		return "", "", err
	}

	key := uuid.NewString() + ext
	if err := s.uploads.Upload(ctx, key, upload.Body, upload.Size, upload.ContentType); err != nil {
		return "", "", fmt.Errorf("%w: %w", domain.ErrFileSave, err)
	}
	filePath, err := s.uploads.Path(key)
	if err != nil {
		return "", "", fmt.Errorf("%w: %w", domain.ErrFileSave, err)
	}

	logger.With(logger.Fields{
		logger.FieldDocument: filePath,
		logger.FieldSize:     upload.Size,
	}).Info(ctx, "Upload saved")

	if s.archive == nil {
		return filePath, "", nil
	}

	objectKey := archiveKey(s.cfg.ArchivePrefix, key)
	if err := s.archiveFile(ctx, key, objectKey, upload); err != nil {
		// The local copy is enough to run the job.
		logger.CtxWarn(ctx, "Failed to archive upload %s: %v", objectKey, err)
		return filePath, "", nil
	}
	return filePath, objectKey, nil
}

func (s *AnalysisService) archiveFile(ctx context.Context, key, objectKey string, upload Upload) error {
	rc, err := s.uploads.Download(ctx, key)
	if err != nil {
		return err
	}
	defer rc.Close()

	contentType := upload.ContentType
	if contentType == "" {
		contentType = "application/pdf"
	}
	return s.archive.Upload(ctx, objectKey, rc, upload.Size, contentType)
}

func (s *AnalysisService) checkUpload(upload Upload, ext string) error {
	if upload.Body == nil {
		return fmt.Errorf("%w: missing file", domain.ErrInvalidUpload)
	}
	if s.cfg.MaxUploadBytes > 0 && upload.Size > s.cfg.MaxUploadBytes {
		return fmt.Errorf("%w: file exceeds %d bytes", domain.ErrInvalidUpload, s.cfg.MaxUploadBytes)
	}
	if len(s.cfg.AllowedExtensions) == 0 {
		return nil
	}
	for _, allowed := range s.cfg.AllowedExtensions {
		if strings.EqualFold(ext, allowed) || strings.EqualFold(strings.TrimPrefix(ext, "."), strings.TrimPrefix(allowed, ".")) {
			return nil
		}
	}
	return fmt.Errorf("%w: extension %q not allowed", domain.ErrInvalidUpload, ext)
}

// Status returns the job's current status. Unknown ids are reported as pending.
func (s *AnalysisService) Status(ctx context.Context, id string) (domain.JobStatus, error) {
	st, err := s.queue.Status(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrJobNotFound) {
			logger.CtxDebug(ctx, "Status requested for unknown job %s", id)
			return domain.JobStatus{ID: id, State: domain.JobStatePending}, nil
		}
		return domain.JobStatus{}, err
	}
	return st, nil
}

// ListRecords returns a page of persisted results and the total count.
func (s *AnalysisService) ListRecords(ctx context.Context, limit, offset int) ([]domain.AnalysisRecord, int64, error) {
	if s.records == nil {
		return nil, 0, fmt.Errorf("%w: result store not configured", domain.ErrPersistence)
	}
	records, err := s.records.List(ctx, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.records.Count(ctx)
	if err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

// GetRecord returns one persisted result.
func (s *AnalysisService) GetRecord(ctx context.Context, id uint) (*domain.AnalysisRecord, error) {
	if s.records == nil {
		return nil, fmt.Errorf("%w: result store not configured", domain.ErrPersistence)
	}
	return s.records.GetByID(ctx, id)
}

func archiveKey(prefix, key string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return key
	}
	return prefix + "/" + key
}
