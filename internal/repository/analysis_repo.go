package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/timmy/finanalyzer/internal/domain"
)

// AnalysisRepository stores AnalysisRecords. It only inserts and reads.
type AnalysisRepository struct {
	db *gorm.DB
}

// NewAnalysisRepository creates a new AnalysisRepository.
func NewAnalysisRepository(db *gorm.DB) *AnalysisRepository {
	return &AnalysisRepository{db: db}
}

// Save inserts one record for jobID. A second save for the same job is a
// no-op and returns the record that is already stored.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - jobID: queue job identifier.
//   - filename: stored upload path.
//   - query: user query.
//   - result: final pipeline report.
//
// Returns:
//   - *domain.AnalysisRecord: the stored record.
//   - error: wraps domain.ErrPersistence on failure.
func (r *AnalysisRepository) Save(ctx context.Context, jobID, filename, query, result string) (*domain.AnalysisRecord, error) {
	record := &domain.AnalysisRecord{
		JobID:    jobID,
		Filename: filename,
		Query:    query,
		Result:   result,
	}

	tx := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "job_id"}},
		DoNothing: true,
	}).Create(record)
	if tx.Error != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrPersistence, tx.Error)
	}

	if tx.RowsAffected == 0 {
		existing, err := r.GetByJobID(ctx, jobID)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrPersistence, err)
		}
		return existing, nil
	}
	return record, nil
}

// GetByID retrieves a record by its primary key.
func (r *AnalysisRepository) GetByID(ctx context.Context, id uint) (*domain.AnalysisRecord, error) {
	var record domain.AnalysisRecord
	if err := r.db.WithContext(ctx).First(&record, id).Error; err != nil {
		return nil, translate(err)
	}
	return &record, nil
}

// GetByJobID retrieves the record written by a job.
func (r *AnalysisRepository) GetByJobID(ctx context.Context, jobID string) (*domain.AnalysisRecord, error) {
	var record domain.AnalysisRecord
	if err := r.db.WithContext(ctx).First(&record, "job_id = ?", jobID).Error; err != nil {
		return nil, translate(err)
	}
	return &record, nil
}

// List returns records newest first.
func (r *AnalysisRepository) List(ctx context.Context, limit, offset int) ([]domain.AnalysisRecord, error) {
	var records []domain.AnalysisRecord
	err := r.db.WithContext(ctx).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Offset(offset).
		Find(&records).Error
	return records, err
}

// Count returns the total number of records.
func (r *AnalysisRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.AnalysisRecord{}).Count(&count).Error
	return count, err
}

func translate(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.ErrRecordNotFound
	}
	return err
}
