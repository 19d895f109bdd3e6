package agent

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/timmy/finanalyzer/internal/domain"
	"github.com/timmy/finanalyzer/internal/extract"
	"github.com/timmy/finanalyzer/internal/llm"
)

// fakeLLM records every request and answers from a queue of replies.
type fakeLLM struct {
	mu       sync.Mutex
	requests []llm.Request
	replies  []string
	errAt    int // 1-based call index that fails; 0 never fails
}

func (f *fakeLLM) Complete(_ context.Context, req llm.Request) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	n := len(f.requests)
	if f.errAt == n {
		return "", errors.New("model unavailable")
	}
	if n <= len(f.replies) {
		return f.replies[n-1], nil
	}
	return "reply", nil
}

func (f *fakeLLM) Model() string { return "fake" }

func lastContent(req llm.Request) string {
	return req.Messages[len(req.Messages)-1].Content
}

func TestPipelineRunsStagesInOrder(t *testing.T) {
	fake := &fakeLLM{replies: []string{"ANALYSIS: revenue $100", "VERIFIED: revenue $100"}}
	p := NewFinancialPipeline(fake, Config{})

	res, err := p.Run(context.Background(), Inputs{Query: "What is the revenue?", DocumentPath: "../extract/testdata/revenue.pdf"})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(fake.requests) != 2 {
		t.Fatalf("LLM calls = %d, want 2", len(fake.requests))
	}

	analyze, verify := fake.requests[0], fake.requests[1]
	if !strings.Contains(analyze.System, "Senior Financial Analyst") {
		t.Errorf("first call should be the analyst, system = %q", analyze.System)
	}
	if !strings.Contains(analyze.System, "- financial_document_reader: Reads and extracts text") {
		t.Errorf("analyst system prompt should list the document reader, got %q", analyze.System)
	}
	if strings.Contains(verify.System, "financial_document_reader:") {
		t.Error("verifier has no tools and should not list any")
	}
	if !strings.Contains(verify.System, "Financial Report Verifier") {
		t.Errorf("second call should be the verifier, system = %q", verify.System)
	}

	// The analyst sees the extracted document text.
	if !strings.Contains(lastContent(analyze), "Revenue: $100") {
		t.Errorf("analyst did not receive document text: %q", lastContent(analyze))
	}
	if !strings.Contains(analyze.Messages[0].Content, "What is the revenue?") {
		t.Errorf("analyst task missing query: %q", analyze.Messages[0].Content)
	}

	// The verifier receives the analysis explicitly and never the document.
	if !strings.Contains(lastContent(verify), "ANALYSIS: revenue $100") {
		t.Errorf("verifier did not receive analysis: %q", lastContent(verify))
	}
	if strings.Contains(lastContent(verify), "Revenue: $100") {
		t.Error("verifier should not receive the document text")
	}

	if res.Report != "VERIFIED: revenue $100" || res.Analysis != "ANALYSIS: revenue $100" {
		t.Errorf("unexpected result: %+v", res)
	}
	if res.Document != extract.KindText || res.Pages != 1 {
		t.Errorf("document kind/pages = %v/%d", res.Document, res.Pages)
	}
}

func TestPipelineToleratesUnreadableDocuments(t *testing.T) {
	tests := []struct {
		name string
		path string
		kind extract.Kind
		want string
	}{
		{"missing file", "../extract/testdata/missing.pdf", extract.KindNotFound, "ERROR: File not found at path: ../extract/testdata/missing.pdf"},
		{"blank document", "../extract/testdata/blank.pdf", extract.KindEmpty, "WARNING: No readable text found in the PDF."},
		{"corrupt document", "../extract/testdata/corrupt.pdf", extract.KindFailed, "ERROR: Failed to read PDF. Details:"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeLLM{}
			res, err := NewFinancialPipeline(fake, Config{}).Run(context.Background(), Inputs{Query: "q", DocumentPath: tt.path})
			if err != nil {
				t.Fatalf("Run() error = %v, pipeline should still complete", err)
			}
			if res.Document != tt.kind {
				t.Errorf("Document = %v, want %v", res.Document, tt.kind)
			}
			if !strings.Contains(lastContent(fake.requests[0]), tt.want) {
				t.Errorf("analyst input = %q, want %q", lastContent(fake.requests[0]), tt.want)
			}
		})
	}
}

func TestPipelineStageFailure(t *testing.T) {
	tests := []struct {
		name      string
		errAt     int
		wantStage string
		wantCalls int
	}{
		{"analyze fails", 1, "analyze", 1},
		{"verify fails", 2, "verify", 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeLLM{errAt: tt.errAt}
			res, err := NewFinancialPipeline(fake, Config{}).Run(context.Background(), Inputs{Query: "q", DocumentPath: "../extract/testdata/revenue.pdf"})
			if err == nil {
				t.Fatal("expected error")
			}
			if res != nil {
				t.Errorf("expected no partial result, got %+v", res)
			}
			if !errors.Is(err, domain.ErrPipeline) {
				t.Errorf("error %v should wrap ErrPipeline", err)
			}
			if !strings.Contains(err.Error(), tt.wantStage) || !strings.Contains(err.Error(), "model unavailable") {
				t.Errorf("error = %v", err)
			}
			if len(fake.requests) != tt.wantCalls {
				t.Errorf("LLM calls = %d, want %d", len(fake.requests), tt.wantCalls)
			}
		})
	}
}

func TestPipelineTruncatesDocument(t *testing.T) {
	fake := &fakeLLM{}
	_, err := NewFinancialPipeline(fake, Config{MaxDocumentChars: 5}).Run(context.Background(), Inputs{Query: "q", DocumentPath: "../extract/testdata/revenue.pdf"})
	if err != nil {
		t.Fatal(err)
	}
	got := lastContent(fake.requests[0])
	if !strings.Contains(got, truncationMarker) || strings.Contains(got, "$100") {
		t.Errorf("document not truncated: %q", got)
	}
}

func TestPipelinesAreIndependent(t *testing.T) {
	fake := &fakeLLM{}
	a := NewFinancialPipeline(fake, Config{})
	b := NewFinancialPipeline(fake, Config{})
	if a == b || a.analyzer == b.analyzer || a.verifier == b.verifier {
		t.Error("each job must get its own pipeline and stages")
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"hello", 0, "hello"},
		{"hello", 10, "hello"},
		{"hello", 3, "hel" + truncationMarker},
		{"héllo", 2, "h" + truncationMarker},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.max); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
}
