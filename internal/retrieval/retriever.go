// Package retrieval finds session passages for a query. Strict similarity
// thresholds are tried first and progressively loosened, then broad domain
// fallbacks probe near the floor before the caller is told there is
// nothing to read.
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/HariharanV1992/CrawlChat-sub000/internal/domain"
	"github.com/HariharanV1992/CrawlChat-sub000/internal/logger"
	"github.com/HariharanV1992/CrawlChat-sub000/internal/metrics"
	"github.com/HariharanV1992/CrawlChat-sub000/internal/query"
	"github.com/HariharanV1992/CrawlChat-sub000/internal/vector"
)

// Sentinels for an empty retrieval. Callers translate them into guidance
// messages instead of failing the turn.
var (
	// ErrNoRelevantContent means every attached document is indexed and
	// nothing cleared even the loosest threshold.
	ErrNoRelevantContent = errors.New("no relevant content in session documents")

	// ErrStillIndexing means documents are attached but not yet searchable.
	ErrStillIndexing = errors.New("session documents are still being indexed")
)

// MaxPassages caps what a single retrieval returns.
const MaxPassages = 15

const (
	calculationThreshold = 0.5
	defaultThreshold     = 0.2
	fallbackThreshold    = 0.01
)

// decaySteps follow the category base threshold, loosest last.
var decaySteps = []float32{0.15, 0.10, 0.05}

// fallbackPhrases are broad probes for when the user's own wording finds
// nothing at any rung of the ladder.
var fallbackPhrases = []string{
	"salary income tax deductions",
	"financial summary amounts totals",
	"key points main topics overview",
	"important details figures data",
}

// Searcher is the slice of the vector indexer that retrieval needs.
type Searcher interface {
	Search(ctx context.Context, sessionID, query string, limit int, threshold float32) ([]vector.Passage, error)
	List(ctx context.Context, sessionID string) ([]domain.ProcessedDocument, error)
}

// Retriever walks the threshold ladder over one session's collection.
type Retriever struct {
	searcher Searcher
	log      logger.Interface
	metrics  *metrics.Metrics
}

// NewRetriever builds a retriever. metrics may be nil.
func NewRetriever(searcher Searcher, log logger.Interface, m *metrics.Metrics) *Retriever {
	return &Retriever{searcher: searcher, log: log, metrics: m}
}

// Retrieve returns up to MaxPassages passages for searchQuery.
//
// Calculation-like categories start at 0.5, everything else at 0.2; the
// ladder then decays through 0.15, 0.10 and 0.05, one search per rung,
// stopping at the first non-empty result. If the ladder comes up empty,
// fallback queries built from domain phrases and the session's filename
// tokens are tried at 0.01. An empty outcome is classified by the state
// of the session's documents: outstanding indexing work yields
// ErrStillIndexing, a fully indexed session yields ErrNoRelevantContent.
func (r *Retriever) Retrieve(ctx context.Context, session *domain.Session, searchQuery string, category query.Category) ([]vector.Passage, error) {
	base := float32(defaultThreshold)
	if query.CalculationLike(category) {
		base = calculationThreshold
	}

	passes := 0
	for _, threshold := range append([]float32{base}, decaySteps...) {
		passes++
		passages, err := r.searcher.Search(ctx, session.SessionID, searchQuery, MaxPassages, threshold)
		if err != nil {
			return nil, fmt.Errorf("failed to search session vectors: %w", err)
		}
		if len(passages) > 0 {
			r.observe(session.SessionID, passes, threshold, len(passages))
			return passages, nil
		}
	}

	docs, err := r.searcher.List(ctx, session.SessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list processed documents: %w", err)
	}

	for _, fq := range fallbackQueries(docs) {
		passes++
		passages, err := r.searcher.Search(ctx, session.SessionID, fq, MaxPassages, fallbackThreshold)
		if err != nil {
			return nil, fmt.Errorf("failed to search session vectors: %w", err)
		}
		if len(passages) > 0 {
			r.log.Debug("fallback query matched",
				"session_id", session.SessionID,
				"fallback_query", fq)
			r.observe(session.SessionID, passes, fallbackThreshold, len(passages))
			return passages, nil
		}
	}

	if session.ProcessingStatus == domain.ProcessingStatusProcessing || len(docs) < session.DocumentCount {
		return nil, ErrStillIndexing
	}
	return nil, ErrNoRelevantContent
}

func (r *Retriever) observe(sessionID string, passes int, threshold float32, hits int) {
	r.log.Debug("retrieval succeeded",
		"session_id", sessionID,
		"passes", passes,
		"threshold", threshold,
		"passages", hits)
	if r.metrics != nil {
		label := strconv.FormatFloat(float64(threshold), 'f', 2, 32)
		r.metrics.RetrievalPass.WithLabelValues(label).Observe(float64(passes))
	}
}

// fallbackQueries joins the fixed domain phrases with one query built
// from the session's filename tokens, when any exist.
func fallbackQueries(docs []domain.ProcessedDocument) []string {
	queries := append([]string(nil), fallbackPhrases...)
	names := make([]string, 0, len(docs))
	for _, d := range docs {
		if d.Filename != "" {
			names = append(names, d.Filename)
		}
	}
	if tokens := query.FilenameTokens(names); len(tokens) > 0 {
		queries = append(queries, strings.Join(tokens, " "))
	}
	return queries
}
