// Package llm provides a unified interface over completion providers.
package llm

import (
	"context"
	"strings"

	"github.com/HariharanV1992/CrawlChat-sub000/internal/config"
)

// Role identifies a message sender.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one chat turn.
type Message struct {
	Role    Role
	Content string
}

// Usage tracks token consumption for one completion.
type Usage struct {
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
}

// Request is one completion call.
type Request struct {
	Messages    []Message
	MaxTokens   int
	Temperature float64
}

// Response is the provider's answer.
type Response struct {
	Content      string
	FinishReason string
	Usage        Usage
	Model        string
}

// Provider is the abstraction over completion backends.
type Provider interface {
	Complete(ctx context.Context, req Request) (Response, error)
	Name() string
}

// Defaults applied when the configuration leaves fields unset.
const (
	DefaultModel       = "gpt-4o-mini"
	DefaultMaxTokens   = 4000
	DefaultTemperature = 0.1
)

// New selects a provider by model prefix: claude models route to Anthropic,
// everything else to the OpenAI-compatible client.
func New(cfg config.LLMConfig) (Provider, error) {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = DefaultTemperature
	}

	if strings.HasPrefix(strings.ToLower(cfg.Model), "claude") {
		return NewAnthropicProvider(cfg)
	}
	return NewOpenAIProvider(cfg)
}
