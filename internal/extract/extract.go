// Package extract turns a PDF on disk into plain text for the analysis pipeline.
package extract

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"

	"github.com/timmy/finanalyzer/internal/domain"
	"github.com/timmy/finanalyzer/internal/logger"
)

// Kind tags the outcome of an extraction.
type Kind int

const (
	KindText Kind = iota
	KindEmpty
	KindNotFound
	KindFailed
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindEmpty:
		return "empty"
	case KindNotFound:
		return "not_found"
	case KindFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Result is the tagged outcome of Extract. Only Render turns it into the
// string form handed to the model.
type Result struct {
	Kind   Kind
	Path   string
	Text   string
	Pages  int
	Detail string
}

// Render produces the document text, or the warning/error line for non-text results.
func (r Result) Render() string {
	switch r.Kind {
	case KindText:
		return r.Text
	case KindEmpty:
		return "WARNING: No readable text found in the PDF."
	case KindNotFound:
		return "ERROR: File not found at path: " + r.Path
	default:
		return "ERROR: Failed to read PDF. Details: " + r.Detail
	}
}

// Err maps the result kind to a domain error. Text results return nil.
func (r Result) Err() error {
	switch r.Kind {
	case KindText:
		return nil
	case KindEmpty:
		return domain.ErrExtractionEmpty
	case KindNotFound:
		return fmt.Errorf("%w: %s", domain.ErrExtractionNotFound, r.Path)
	default:
		return fmt.Errorf("%w: %s", domain.ErrExtractionFailed, r.Detail)
	}
}

// Extractor reads PDFs page by page.
type Extractor struct {
	// MaxPages limits how many pages are read; 0 reads all.
	MaxPages int
}

// NewExtractor creates an Extractor.
func NewExtractor(maxPages int) *Extractor {
	return &Extractor{MaxPages: maxPages}
}

// Extract reads the document at path. It never returns an error value:
// every failure mode is reported through Result.Kind.
func (e *Extractor) Extract(ctx context.Context, path string) (res Result) {
	start := time.Now()
	res = Result{Path: path}

	if err := checkReadable(path); err != nil {
		res.Kind = KindNotFound
		logger.With(logger.Fields{logger.FieldDocument: path}).
			Warn(ctx, "Document not found: %v", err)
		return res
	}

	defer func() {
		if r := recover(); r != nil {
			res = Result{Kind: KindFailed, Path: path, Detail: fmt.Sprint(r)}
		}
		logger.With(logger.Fields{
			logger.FieldDocument: path,
			logger.FieldSize:     len(res.Text),
		}).WithStatus(res.Kind.String()).WithCount(res.Pages).
			WithDuration(start).Info(ctx, "Document extracted")
	}()

	f, reader, err := pdf.Open(path)
	if err != nil {
		res.Kind = KindFailed
		res.Detail = err.Error()
		return res
	}
	defer f.Close()

	total := reader.NumPage()
	if e.MaxPages > 0 && total > e.MaxPages {
		total = e.MaxPages
	}

	var sb strings.Builder
	for i := 1; i <= total; i++ {
		if err := ctx.Err(); err != nil {
			res.Kind = KindFailed
			res.Detail = err.Error()
			return res
		}

		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			res.Kind = KindFailed
			res.Detail = fmt.Sprintf("page %d: %v", i, err)
			return res
		}
		res.Pages++
		sb.WriteString(normalizePage(text))
		sb.WriteString("\n")
	}

	res.Text = sb.String()
	if strings.TrimSpace(res.Text) == "" {
		res.Kind = KindEmpty
		res.Text = ""
		return res
	}
	res.Kind = KindText
	return res
}

// normalizePage converts CRLF to LF and collapses runs of blank lines into a single newline.
func normalizePage(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	for strings.Contains(text, "\n\n") {
		text = strings.ReplaceAll(text, "\n\n", "\n")
	}
	return text
}

// checkReadable fails unless path is a regular file this process can open.
func checkReadable(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%s is not a regular file", path)
	}
	return nil
}
