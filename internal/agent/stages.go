package agent

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/timmy/finanalyzer/internal/extract"
	"github.com/timmy/finanalyzer/internal/llm"
	"github.com/timmy/finanalyzer/internal/logger"
	"github.com/timmy/finanalyzer/internal/prompts"
)

const truncationMarker = "\n[... document truncated ...]"

// Inputs are shared by both stages of one job.
type Inputs struct {
	Query        string
	DocumentPath string
}

func (in Inputs) vars() map[string]string {
	return map[string]string{"query": in.Query, "path": in.DocumentPath}
}

// Analysis is the analyst's output, handed explicitly to the verifier.
type Analysis struct {
	Text     string
	Document extract.Kind
	Pages    int
}

// Analyzer is the first stage. It always reads the document before calling the model.
type Analyzer struct {
	agent    Agent
	client   llm.Client
	reader   *DocumentReaderTool
	maxChars int
}

// Analyze reads in.DocumentPath with the document reader and asks the analyst to answer in.Query.
func (a *Analyzer) Analyze(ctx context.Context, in Inputs) (Analysis, error) {
	ctx = logger.SetStage(ctx, "analyze")
	start := time.Now()

	doc := a.reader.Read(ctx, in.DocumentPath)
	if err := doc.Err(); err != nil {
		logger.CtxWarn(ctx, "Document reader returned %s: %v", doc.Kind, err)
	}

	vars := in.vars()
	messages := []llm.Message{
		{Role: llm.RoleUser, Content: prompts.Render(prompts.AnalyzeTaskPrompt, vars)},
		{Role: llm.RoleAssistant, Content: fmt.Sprintf("Action: %s\nAction Input: {\"path\": %q}", a.reader.Name(), in.DocumentPath)},
		{Role: llm.RoleUser, Content: prompts.Render(prompts.ToolResultPrompt, map[string]string{
			"tool":     a.reader.Name(),
			"path":     in.DocumentPath,
			"document": truncate(doc.Render(), a.maxChars),
		})},
	}

	out, err := a.client.Complete(ctx, llm.Request{
		System:   a.agent.SystemPrompt(vars) + "\n\n" + toolsPrompt(a.reader),
		Messages: messages,
	})
	if err != nil {
		return Analysis{}, err
	}

	logger.With(logger.Fields{logger.FieldSize: len(out)}).
		WithDuration(start).Info(ctx, "Analysis stage completed")
	return Analysis{Text: out, Document: doc.Kind, Pages: doc.Pages}, nil
}

// Verifier is the second stage. It never reads the document.
type Verifier struct {
	agent  Agent
	client llm.Client
}

// Verify reviews prior and returns the final report.
func (v *Verifier) Verify(ctx context.Context, in Inputs, prior Analysis) (string, error) {
	ctx = logger.SetStage(ctx, "verify")
	start := time.Now()

	vars := in.vars()
	out, err := v.client.Complete(ctx, llm.Request{
		System: v.agent.SystemPrompt(vars),
		Messages: []llm.Message{{
			Role: llm.RoleUser,
			Content: prompts.Render(prompts.VerifyTaskPrompt, map[string]string{
				"query":    in.Query,
				"analysis": prior.Text,
			}),
		}},
	})
	if err != nil {
		return "", err
	}

	logger.With(logger.Fields{logger.FieldSize: len(out)}).
		WithDuration(start).Info(ctx, "Verification stage completed")
	return out, nil
}

// truncate caps s at max bytes on a rune boundary. max <= 0 disables the cap.
func truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + truncationMarker
}
