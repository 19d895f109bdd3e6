package domain

import "time"

// AnalysisRecord is the persisted outcome of one successful job.
// Rows are written once and never updated.
type AnalysisRecord struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	JobID     string    `gorm:"type:text;uniqueIndex" json:"job_id"`
	Filename  string    `gorm:"type:text" json:"filename"`
	Query     string    `gorm:"type:text" json:"query"`
	Result    string    `gorm:"type:text" json:"result"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

// TableName returns the database table name for AnalysisRecord.
func (AnalysisRecord) TableName() string {
	return "analysis_results"
}
