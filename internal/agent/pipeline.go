package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/timmy/finanalyzer/internal/domain"
	"github.com/timmy/finanalyzer/internal/extract"
	"github.com/timmy/finanalyzer/internal/llm"
	"github.com/timmy/finanalyzer/internal/logger"
)

// Config is the immutable per-process pipeline configuration.
type Config struct {
	// MaxDocumentChars caps the document text sent to the model; 0 disables.
	MaxDocumentChars int
	// MaxPages caps the pages read from the PDF; 0 reads all.
	MaxPages int
}

// Result carries both stage outputs. Report is the job result.
type Result struct {
	Analysis string
	Report   string
	Document extract.Kind
	Pages    int
}

// Pipeline runs analyze then verify. A Pipeline belongs to one job.
type Pipeline struct {
	analyzer *Analyzer
	verifier *Verifier
}

// NewFinancialPipeline builds fresh agents and stages for one job.
// Only client is shared between jobs.
func NewFinancialPipeline(client llm.Client, cfg Config) *Pipeline {
	reader := NewDocumentReaderTool(extract.NewExtractor(cfg.MaxPages))
	return &Pipeline{
		analyzer: &Analyzer{
			agent:    FinancialAnalyst(),
			client:   client,
			reader:   reader,
			maxChars: cfg.MaxDocumentChars,
		},
		verifier: &Verifier{
			agent:  ReportVerifier(),
			client: client,
		},
	}
}

// Run executes both stages in order. Any stage error is returned wrapped
// in domain.ErrPipeline and no partial result is returned.
func (p *Pipeline) Run(ctx context.Context, in Inputs) (*Result, error) {
	start := time.Now()

	analysis, err := p.analyzer.Analyze(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("%w: analyze: %w", domain.ErrPipeline, err)
	}

	report, err := p.verifier.Verify(ctx, in, analysis)
	if err != nil {
		return nil, fmt.Errorf("%w: verify: %w", domain.ErrPipeline, err)
	}

	logger.With(logger.Fields{logger.FieldDocument: in.DocumentPath}).WithCount(analysis.Pages).
		WithDuration(start).Info(ctx, "Pipeline completed")

	return &Result{
		Analysis: analysis.Text,
		Report:   report,
		Document: analysis.Document,
		Pages:    analysis.Pages,
	}, nil
}
