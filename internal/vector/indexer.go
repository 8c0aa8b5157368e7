package vector

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/HariharanV1992/CrawlChat-sub000/internal/database"
	"github.com/HariharanV1992/CrawlChat-sub000/internal/dedup"
	"github.com/HariharanV1992/CrawlChat-sub000/internal/domain"
	"github.com/HariharanV1992/CrawlChat-sub000/internal/logger"
	"github.com/HariharanV1992/CrawlChat-sub000/internal/metrics"
)

// Embeddings is the slice of the embedding client the indexer uses.
type Embeddings interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	Dimension() int
}

// ProcessedStore persists the per-document index outcomes.
type ProcessedStore interface {
	Upsert(ctx context.Context, rec *domain.ProcessedDocument) error
	ListBySession(ctx context.Context, sessionID string) ([]domain.ProcessedDocument, error)
	Delete(ctx context.Context, sessionID, docID string) error
	DeleteBySession(ctx context.Context, sessionID string) (int64, error)
	Stats(ctx context.Context, sessionID string) (database.ProcessedStats, error)
}

// Document is the unit of indexing: extracted text plus the identifiers
// the payload and the processed record carry.
type Document struct {
	DocID       string
	SessionID   string
	UserID      string
	Filename    string
	Source      string
	ContentType domain.ContentType
	Text        string
}

// Passage is one document's matching chunks from a search, best chunk
// first. Score is the best chunk's similarity.
type Passage struct {
	FileID   string
	Filename string
	Score    float32
	Chunks   []string
}

// SessionStats summarizes a session's index for diagnostics.
type SessionStats struct {
	database.ProcessedStats
	Points   uint64 `json:"points"`
	Provider string `json:"provider"`
}

// Indexer owns the ProcessedDocument lifecycle. It chunks, embeds and
// upserts document text, skipping content a session has already indexed.
type Indexer struct {
	provider Provider
	embedder Embeddings
	chunker  *Chunker
	dedup    *dedup.Index
	store    ProcessedStore
	log      logger.Interface
	metrics  *metrics.Metrics
}

// NewIndexer wires the indexing pipeline. metrics may be nil.
func NewIndexer(provider Provider, embedder Embeddings, chunker *Chunker, dedupIndex *dedup.Index, store ProcessedStore, log logger.Interface, m *metrics.Metrics) (*Indexer, error) {
	switch {
	case provider == nil:
		return nil, fmt.Errorf("vector provider is required")
	case embedder == nil:
		return nil, fmt.Errorf("embedder is required")
	case chunker == nil:
		return nil, fmt.Errorf("chunker is required")
	case dedupIndex == nil:
		return nil, fmt.Errorf("dedup index is required")
	case store == nil:
		return nil, fmt.Errorf("processed store is required")
	}
	return &Indexer{
		provider: provider,
		embedder: embedder,
		chunker:  chunker,
		dedup:    dedupIndex,
		store:    store,
		log:      log,
		metrics:  m,
	}, nil
}

// Process indexes one document into its session's collection and records
// the outcome. Content conditions come back as record statuses rather
// than errors: empty text yields a record with status error, previously
// indexed content yields status duplicate_skipped reusing the original's
// vector file ID. An error return means nothing durable happened and the
// document can be retried.
//
// The record is written only after the vectors are upserted, so a
// processed record never points at missing chunks.
func (ix *Indexer) Process(ctx context.Context, doc Document) (*domain.ProcessedDocument, error) {
	if doc.DocID == "" || doc.SessionID == "" {
		return nil, fmt.Errorf("doc id and session id are required")
	}

	text := strings.TrimSpace(doc.Text)
	if text == "" {
		rec := ix.newRecord(doc, domain.ProcessedStatusError)
		if err := ix.store.Upsert(ctx, rec); err != nil {
			return nil, fmt.Errorf("failed to record empty document: %w", err)
		}
		ix.log.Warn("document has no indexable text", "doc_id", doc.DocID, "filename", doc.Filename)
		return rec, nil
	}

	hash := dedup.Hash(text)
	original, release, err := ix.dedup.Acquire(ctx, doc.SessionID, hash)
	if err != nil {
		return nil, err
	}

	if original != nil {
		rec := ix.newRecord(doc, domain.ProcessedStatusDuplicateSkipped)
		rec.ContentHash = hash
		rec.IsDuplicate = true
		rec.OriginalDocID = original.DocID
		rec.VectorFileID = original.VectorFileID
		rec.VectorStoreID = original.VectorStoreID
		if err := ix.store.Upsert(ctx, rec); err != nil {
			return nil, fmt.Errorf("failed to record duplicate: %w", err)
		}
		if ix.metrics != nil {
			ix.metrics.DuplicatesSkipped.Inc()
		}
		ix.log.Info("skipped duplicate content",
			"doc_id", doc.DocID,
			"original_doc_id", original.DocID,
			"session_id", doc.SessionID)
		return rec, nil
	}
	defer release()

	collection := CollectionForSession(doc.SessionID)
	if err := ix.provider.EnsureCollection(ctx, collection, ix.embedder.Dimension()); err != nil {
		return nil, err
	}

	chunks := ix.chunker.Split(text)
	vectors, err := ix.embedder.Embed(ctx, chunks)
	if err != nil {
		return nil, fmt.Errorf("failed to embed %s: %w", doc.DocID, err)
	}

	fileID := uuid.New().String()
	points := make([]Point, len(chunks))
	for i, chunk := range chunks {
		points[i] = Point{
			ID:     chunkPointID(doc.SessionID, doc.DocID, i),
			Vector: vectors[i],
			Payload: map[string]any{
				"doc_id":         doc.DocID,
				"session_id":     doc.SessionID,
				"vector_file_id": fileID,
				"filename":       doc.Filename,
				"chunk":          i,
				"content":        chunk,
			},
		}
	}
	if err := ix.provider.Upsert(ctx, collection, points); err != nil {
		return nil, err
	}

	rec := ix.newRecord(doc, domain.ProcessedStatusProcessed)
	rec.ContentHash = hash
	rec.VectorFileID = fileID
	rec.VectorStoreID = collection
	if err := ix.store.Upsert(ctx, rec); err != nil {
		return nil, fmt.Errorf("failed to record processed document: %w", err)
	}

	if ix.metrics != nil {
		ix.metrics.ChunksIndexed.Add(float64(len(points)))
	}
	ix.log.Info("indexed document",
		"doc_id", doc.DocID,
		"session_id", doc.SessionID,
		"chunks", len(points),
		"vector_file_id", fileID)
	return rec, nil
}

// Search embeds the query and runs one similarity call, grouping hits
// into per-document passages. Callers own any threshold-decay retries.
func (ix *Indexer) Search(ctx context.Context, sessionID, query string, limit int, threshold float32) ([]Passage, error) {
	vector, err := ix.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	hits, err := ix.provider.Search(ctx, CollectionForSession(sessionID), vector, limit, threshold)
	if err != nil {
		return nil, err
	}
	return groupPassages(hits), nil
}

// Delete removes the document's vectors and its record. For a duplicate
// record the doc filter matches no points, so only the record goes.
func (ix *Indexer) Delete(ctx context.Context, sessionID, docID string) error {
	if err := ix.provider.DeleteByDoc(ctx, CollectionForSession(sessionID), docID); err != nil {
		return err
	}
	if err := ix.store.Delete(ctx, sessionID, docID); err != nil {
		return fmt.Errorf("failed to delete processed record: %w", err)
	}
	return nil
}

// DropSession removes the session's collection and all its records.
func (ix *Indexer) DropSession(ctx context.Context, sessionID string) error {
	if err := ix.provider.DropCollection(ctx, CollectionForSession(sessionID)); err != nil {
		return err
	}
	if _, err := ix.store.DeleteBySession(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete processed records: %w", err)
	}
	return nil
}

// List returns the session's processed records.
func (ix *Indexer) List(ctx context.Context, sessionID string) ([]domain.ProcessedDocument, error) {
	return ix.store.ListBySession(ctx, sessionID)
}

// Stats reports record counts plus the live point count.
func (ix *Indexer) Stats(ctx context.Context, sessionID string) (SessionStats, error) {
	recStats, err := ix.store.Stats(ctx, sessionID)
	if err != nil {
		return SessionStats{}, err
	}
	points, err := ix.provider.Count(ctx, CollectionForSession(sessionID))
	if err != nil {
		return SessionStats{}, err
	}
	return SessionStats{
		ProcessedStats: recStats,
		Points:         points,
		Provider:       ix.provider.Name(),
	}, nil
}

func (ix *Indexer) newRecord(doc Document, status domain.ProcessedStatus) *domain.ProcessedDocument {
	return &domain.ProcessedDocument{
		DocID:         doc.DocID,
		SessionID:     doc.SessionID,
		UserID:        doc.UserID,
		Filename:      doc.Filename,
		Source:        doc.Source,
		ContentType:   doc.ContentType,
		ContentLength: len(doc.Text),
		ProcessedAt:   time.Now().UTC(),
		Status:        status,
	}
}

// chunkPointID derives a stable UUID for a chunk so re-indexing the same
// document replaces its points instead of accumulating new ones.
func chunkPointID(sessionID, docID string, chunk int) string {
	name := fmt.Sprintf("%s/%s#%d", sessionID, docID, chunk)
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(name)).String()
}

// groupPassages folds score-ordered hits into per-file passages,
// preserving best-first order across files.
func groupPassages(hits []Hit) []Passage {
	if len(hits) == 0 {
		return nil
	}

	order := make([]string, 0, len(hits))
	byFile := make(map[string]*Passage, len(hits))
	for _, hit := range hits {
		fileID := payloadString(hit.Payload, "vector_file_id")
		if fileID == "" {
			fileID = payloadString(hit.Payload, "doc_id")
		}
		p, ok := byFile[fileID]
		if !ok {
			p = &Passage{
				FileID:   fileID,
				Filename: payloadString(hit.Payload, "filename"),
				Score:    hit.Score,
			}
			byFile[fileID] = p
			order = append(order, fileID)
		}
		if hit.Content != "" {
			p.Chunks = append(p.Chunks, hit.Content)
		}
	}

	passages := make([]Passage, 0, len(order))
	for _, fileID := range order {
		passages = append(passages, *byFile[fileID])
	}
	return passages
}
