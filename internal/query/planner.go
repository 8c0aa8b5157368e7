package query

import (
	"context"
	"strings"

	"github.com/HariharanV1992/CrawlChat-sub000/internal/domain"
	"github.com/HariharanV1992/CrawlChat-sub000/internal/logger"
	"github.com/HariharanV1992/CrawlChat-sub000/internal/metrics"
)

// Plan is the planner's verdict on one user turn.
type Plan struct {
	// Original is the user's input as received.
	Original string

	// Query is what the answerer should answer: the original, prefixed
	// with the previous user turn when this is a follow-up.
	Query string

	// SearchQuery is what the retriever should embed: Query, expanded
	// with canonical terms when the phrasing was too generic to search.
	SearchQuery string

	Category     Category
	SystemPrompt string

	// ShortcutAnswer, when set, is a locally synthesized reply;
	// retrieval and the LLM are skipped.
	ShortcutAnswer string

	IsFollowUp bool
	Rewritten  bool
}

// Planner turns raw user input into a categorized, retrieval-ready plan.
type Planner struct {
	classifier *Classifier
	cache      *NumericContextCache
	log        logger.Interface
	metrics    *metrics.Metrics
}

// NewPlanner builds a planner over the numeric cache. metrics may be nil.
func NewPlanner(cache *NumericContextCache, log logger.Interface, m *metrics.Metrics) *Planner {
	return &Planner{
		classifier: NewClassifier(),
		cache:      cache,
		log:        log,
		metrics:    m,
	}
}

// Plan classifies the turn, expands follow-ups with the previous user
// message, rewrites generic phrasing for retrieval and, for calculation
// intents, tries to answer from cached figures without the LLM.
func (p *Planner) Plan(ctx context.Context, session *domain.Session, content string, filenames []string) Plan {
	original := strings.TrimSpace(content)

	effective := original
	isFollowUp := false
	if IsFollowUp(original) {
		if previous := session.LastUserMessage(); previous != "" {
			effective = PrefixWithPrevious(original, previous)
			isFollowUp = true
		}
	}

	category := p.classifier.Classify(effective)
	searchQuery, rewritten := RewriteForSearch(effective, filenames)

	plan := Plan{
		Original:     original,
		Query:        effective,
		SearchQuery:  searchQuery,
		Category:     category,
		SystemPrompt: SystemPrompt(category),
		IsFollowUp:   isFollowUp,
		Rewritten:    rewritten,
	}

	if CalculationLike(category) {
		if answer, ok := p.cache.TryShortcut(ctx, session.SessionID, effective); ok {
			plan.ShortcutAnswer = answer
			p.log.Info("answered from numeric cache",
				"session_id", session.SessionID,
				"category", string(category))
		}
	}

	if p.metrics != nil {
		p.metrics.RecordQuery(string(category))
	}
	p.log.Debug("planned query",
		"session_id", session.SessionID,
		"category", string(category),
		"follow_up", isFollowUp,
		"rewritten", rewritten,
		"shortcut", plan.ShortcutAnswer != "")
	return plan
}

// RecordResponse caches the finished turn so later follow-ups can reuse
// its figures.
func (p *Planner) RecordResponse(ctx context.Context, sessionID, queryText, response string) {
	p.cache.CaptureResponse(ctx, sessionID, queryText, response)
}
