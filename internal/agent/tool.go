package agent

import (
	"context"
	"strings"

	"github.com/timmy/finanalyzer/internal/extract"
	"github.com/timmy/finanalyzer/internal/prompts"
)

// Tool is a capability an agent invokes before answering.
type Tool interface {
	Name() string
	Description() string
}

var _ Tool = (*DocumentReaderTool)(nil)

// toolsPrompt describes tools for an agent's system prompt.
func toolsPrompt(tools ...Tool) string {
	lines := make([]string, 0, len(tools))
	for _, t := range tools {
		lines = append(lines, "- "+t.Name()+": "+t.Description())
	}
	return prompts.Render(prompts.ToolsPrompt, map[string]string{"tools": strings.Join(lines, "\n")})
}

// DocumentReaderTool exposes the PDF extractor to the analyst.
type DocumentReaderTool struct {
	extractor *extract.Extractor
}

// NewDocumentReaderTool creates a reader backed by extractor.
func NewDocumentReaderTool(extractor *extract.Extractor) *DocumentReaderTool {
	if extractor == nil {
		extractor = extract.NewExtractor(0)
	}
	return &DocumentReaderTool{extractor: extractor}
}

func (t *DocumentReaderTool) Name() string { return "financial_document_reader" }

func (t *DocumentReaderTool) Description() string {
	return "Reads and extracts text from a financial PDF document."
}

// Read extracts the document at path.
func (t *DocumentReaderTool) Read(ctx context.Context, path string) extract.Result {
	return t.extractor.Extract(ctx, path)
}
