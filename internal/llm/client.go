// Package llm provides chat-style completion clients for OpenAI-compatible models.
package llm

import (
	"context"
	"fmt"
	"time"
)

// Role of a message in a conversation.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of a conversation.
type Message struct {
	Role    Role
	Content string
}

// Request is a single completion call. Zero Temperature/MaxTokens fall back
// to the client's configured defaults.
type Request struct {
	System      string
	Messages    []Message
	Temperature float64
	MaxTokens   int
}

// Client produces a completion for a request.
// Implementations are stateless and safe for concurrent use.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
	Model() string
}

// Config holds configuration shared by all providers.
type Config struct {
	Provider    string
	Model       string
	APIKey      string
	BaseURL     string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

const (
	ProviderChat      = "openai-compatible"
	ProviderResponses = "openai-responses"

	defaultBaseURL = "https://api.openai.com/v1"
	defaultTimeout = 120 * time.Second
)

// NewClient creates the client for cfg.Provider. An empty provider selects
// the Chat Completions client.
func NewClient(cfg *Config) (Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("llm: config is nil")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("llm: API key is required")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("llm: model is required")
	}

	switch cfg.Provider {
	case "", ProviderChat:
		return NewChatClient(cfg), nil
	case ProviderResponses:
		return NewResponsesClient(cfg), nil
	default:
		return nil, fmt.Errorf("llm: unsupported provider %q", cfg.Provider)
	}
}
