// Package answer assembles the grounded prompt for a chat turn and runs
// it through the completion provider. Passages are cheaper than history
// when the context window tightens: document chunks are dropped first,
// oldest conversation turns second, and the system prompt and query are
// never cut.
package answer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/HariharanV1992/CrawlChat-sub000/internal/config"
	"github.com/HariharanV1992/CrawlChat-sub000/internal/domain"
	"github.com/HariharanV1992/CrawlChat-sub000/internal/llm"
	"github.com/HariharanV1992/CrawlChat-sub000/internal/logger"
	"github.com/HariharanV1992/CrawlChat-sub000/internal/metrics"
	"github.com/HariharanV1992/CrawlChat-sub000/internal/tokens"
	"github.com/HariharanV1992/CrawlChat-sub000/internal/vector"
)

// FallbackReply is sent when the provider fails. It is never appended to
// the session history, so the next turn starts clean.
const FallbackReply = "I apologize, but I'm having trouble generating a response right now. Please try again in a moment."

const (
	// historyTurns caps how much conversation context rides along.
	historyTurns = 5

	// promptOverhead reserves tokens for message framing the tokenizer
	// cannot see.
	promptOverhead = 64

	defaultContextWindow = 16000
)

// Input is everything one turn needs.
type Input struct {
	// Query is the effective user query, follow-up prefixing included.
	Query string
	// SystemPrompt comes from the planner's category.
	SystemPrompt string
	// Passages are score-ordered retrieval results, best first.
	Passages []vector.Passage
	// History holds the session's recent messages, oldest first.
	History []domain.Message
}

// Result is the produced assistant message plus accounting.
type Result struct {
	Content          string
	Usage            llm.Usage
	PassagesIncluded int
	HistoryIncluded  int
}

// Answerer turns retrieval output into an assistant reply.
type Answerer struct {
	provider llm.Provider
	cfg      config.LLMConfig
	log      logger.Interface
	metrics  *metrics.Metrics
}

// NewAnswerer wires the prompt assembler to a provider. metrics may be nil.
func NewAnswerer(provider llm.Provider, cfg config.LLMConfig, log logger.Interface, m *metrics.Metrics) (*Answerer, error) {
	if provider == nil {
		return nil, fmt.Errorf("llm provider is required")
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = llm.DefaultMaxTokens
	}
	if cfg.ContextWindow <= 0 {
		cfg.ContextWindow = defaultContextWindow
	}
	return &Answerer{provider: provider, cfg: cfg, log: log, metrics: m}, nil
}

// Answer builds the prompt and completes it. On provider failure the
// Result still carries FallbackReply so the caller can show something,
// alongside the non-nil error that tells it not to persist the turn.
func (a *Answerer) Answer(ctx context.Context, in Input) (Result, error) {
	prompt, included, kept := a.buildPrompt(in)

	messages := make([]llm.Message, 0, 2)
	if in.SystemPrompt != "" {
		messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: in.SystemPrompt})
	}
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: prompt})

	start := time.Now()
	resp, err := a.provider.Complete(ctx, llm.Request{
		Messages:    messages,
		MaxTokens:   a.cfg.MaxTokens,
		Temperature: a.cfg.Temperature,
	})
	if err != nil {
		a.log.Error("completion failed",
			"provider", a.provider.Name(),
			"error", err)
		return Result{Content: FallbackReply}, fmt.Errorf("failed to complete chat turn: %w", err)
	}

	if a.metrics != nil {
		a.metrics.RecordLLMUsage(resp.Usage.InputTokens, resp.Usage.OutputTokens, time.Since(start))
		a.metrics.PassagesServed.Observe(float64(included))
	}
	a.log.Debug("answer generated",
		"provider", a.provider.Name(),
		"model", resp.Model,
		"passages", included,
		"history", kept,
		"input_tokens", resp.Usage.InputTokens,
		"output_tokens", resp.Usage.OutputTokens)

	return Result{
		Content:          strings.TrimSpace(resp.Content),
		Usage:            resp.Usage,
		PassagesIncluded: included,
		HistoryIncluded:  kept,
	}, nil
}

// buildPrompt lays out document content, recent conversation, and the
// query, trimming to the context window. Returns the prompt and how many
// passages and history turns survived.
func (a *Answerer) buildPrompt(in Input) (string, int, int) {
	model := a.cfg.Model
	queryBlock := "Question: " + strings.TrimSpace(in.Query)

	budget := a.cfg.ContextWindow - a.cfg.MaxTokens - promptOverhead
	budget -= tokens.Count(in.SystemPrompt, model)
	budget -= tokens.Count(queryBlock, model)
	if budget < 0 {
		budget = 0
	}

	history := in.History
	if len(history) > historyTurns {
		history = history[len(history)-historyTurns:]
	}
	historyLines := make([]string, 0, len(history))
	for _, msg := range history {
		if msg.Role == domain.RoleSystem {
			continue
		}
		historyLines = append(historyLines, formatTurn(msg))
	}
	historyCost := blockCost(historyLines, model)

	passageBlocks := make([]string, 0, len(in.Passages))
	for _, p := range in.Passages {
		passageBlocks = append(passageBlocks, formatPassage(p))
	}

	// Passages yield first: drop from the tail (lowest score) until the
	// full history fits alongside.
	keep := len(passageBlocks)
	for keep > 0 && blockCost(passageBlocks[:keep], model)+historyCost > budget {
		keep--
	}
	passageBlocks = passageBlocks[:keep]
	passageCost := blockCost(passageBlocks, model)

	// Then history, oldest turns first.
	for len(historyLines) > 0 && passageCost+blockCost(historyLines, model) > budget {
		historyLines = historyLines[1:]
	}

	var b strings.Builder
	if len(passageBlocks) > 0 {
		b.WriteString("Document content to analyze:\n\n")
		b.WriteString(strings.Join(passageBlocks, "\n\n"))
		b.WriteString("\n\n")
	}
	if len(historyLines) > 0 {
		b.WriteString("Recent conversation context:\n")
		b.WriteString(strings.Join(historyLines, "\n"))
		b.WriteString("\n\n")
	}
	b.WriteString(queryBlock)

	return b.String(), len(passageBlocks), len(historyLines)
}

func formatPassage(p vector.Passage) string {
	name := p.Filename
	if name == "" {
		name = p.FileID
	}
	return fmt.Sprintf("From %s:\n%s", name, strings.Join(p.Chunks, "\n\n"))
}

func formatTurn(msg domain.Message) string {
	role := "User"
	if msg.Role == domain.RoleAssistant {
		role = "Assistant"
	}
	return role + ": " + msg.Content
}

func blockCost(blocks []string, model string) int {
	total := 0
	for _, blk := range blocks {
		total += tokens.Count(blk, model)
	}
	return total
}
