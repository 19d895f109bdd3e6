// Package agent runs the two-stage financial analysis pipeline:
// an analyst reads the document and answers the query, then a verifier
// reviews that analysis.
package agent

import (
	"github.com/timmy/finanalyzer/internal/prompts"
)

// Agent is an LLM persona. Goal and Backstory may contain {query}.
type Agent struct {
	Role      string
	Goal      string
	Backstory string
}

// SystemPrompt renders the persona for one job.
func (a Agent) SystemPrompt(vars map[string]string) string {
	return prompts.Render(prompts.AgentSystemPrompt, map[string]string{
		"role":      a.Role,
		"goal":      prompts.Render(a.Goal, vars),
		"backstory": prompts.Render(a.Backstory, vars),
	})
}

// FinancialAnalyst returns the analyst persona.
func FinancialAnalyst() Agent {
	return Agent{
		Role:      prompts.AnalystRole,
		Goal:      prompts.AnalystGoal,
		Backstory: prompts.AnalystBackstory,
	}
}

// ReportVerifier returns the verifier persona.
func ReportVerifier() Agent {
	return Agent{
		Role:      prompts.VerifierRole,
		Goal:      prompts.VerifierGoal,
		Backstory: prompts.VerifierBackstory,
	}
}
