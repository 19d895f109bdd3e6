package domain

import "errors"

var (
	ErrFileSave           = errors.New("file save failed")
	ErrExtractionNotFound = errors.New("document not found")
	ErrExtractionFailed   = errors.New("document extraction failed")
	// ErrExtractionEmpty is a soft condition: the pipeline still runs.
	ErrExtractionEmpty = errors.New("document has no readable text")
	ErrPipeline        = errors.New("pipeline failed")
	ErrPersistence     = errors.New("persistence failed")
	ErrJobNotFound     = errors.New("job not found")
	ErrRecordNotFound  = errors.New("record not found")
	ErrInvalidUpload   = errors.New("invalid upload")
)
