package vector

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"sync"

	chromem "github.com/philippgille/chromem-go"

	"github.com/HariharanV1992/CrawlChat-sub000/internal/logger"
)

// ChromemProvider stores vectors in-process with chromem-go. It needs no
// external service, which makes it the default for development and the
// backend the tests run against. With a persist path the database
// survives restarts; without one it is memory only.
type ChromemProvider struct {
	db  *chromem.DB
	log logger.Interface

	mu          sync.RWMutex
	collections map[string]*chromem.Collection

	// Vectors arrive pre-computed from the embedder, so the embedding
	// func chromem requires must never run.
	embeddingFunc chromem.EmbeddingFunc
}

// NewChromemProvider opens an embedded vector database. persistPath may
// be empty for a memory-only database.
func NewChromemProvider(persistPath string, log logger.Interface) (*ChromemProvider, error) {
	var db *chromem.DB
	if persistPath != "" {
		if err := os.MkdirAll(persistPath, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create persist directory: %w", err)
		}
		var err error
		db, err = chromem.NewPersistentDB(persistPath, false)
		if err != nil {
			return nil, fmt.Errorf("failed to open vector database at %s: %w", persistPath, err)
		}
		log.Info("opened persistent vector database", "path", persistPath)
	} else {
		db = chromem.NewDB()
		log.Info("opened in-memory vector database")
	}

	identity := func(ctx context.Context, text string) ([]float32, error) {
		return nil, fmt.Errorf("embedding function called but vectors are pre-computed")
	}

	return &ChromemProvider{
		db:            db,
		log:           log,
		collections:   make(map[string]*chromem.Collection),
		embeddingFunc: identity,
	}, nil
}

func (p *ChromemProvider) Name() string { return "chromem" }

func (p *ChromemProvider) getCollection(name string) (*chromem.Collection, error) {
	p.mu.RLock()
	if col, ok := p.collections[name]; ok {
		p.mu.RUnlock()
		return col, nil
	}
	p.mu.RUnlock()

	p.mu.Lock()
	defer p.mu.Unlock()
	if col, ok := p.collections[name]; ok {
		return col, nil
	}

	col, err := p.db.GetOrCreateCollection(name, nil, p.embeddingFunc)
	if err != nil {
		return nil, fmt.Errorf("failed to open collection %q: %w", name, err)
	}
	p.collections[name] = col
	return col, nil
}

// EnsureCollection opens the collection; chromem creates implicitly.
// The dimension is fixed by the vectors themselves.
func (p *ChromemProvider) EnsureCollection(ctx context.Context, collection string, dimension int) error {
	_, err := p.getCollection(collection)
	return err
}

func (p *ChromemProvider) Upsert(ctx context.Context, collection string, points []Point) error {
	if len(points) == 0 {
		return nil
	}
	col, err := p.getCollection(collection)
	if err != nil {
		return err
	}

	docs := make([]chromem.Document, 0, len(points))
	for _, pt := range points {
		// chromem metadata is string-valued.
		meta := make(map[string]string, len(pt.Payload))
		for k, v := range pt.Payload {
			meta[k] = fmt.Sprint(v)
		}
		docs = append(docs, chromem.Document{
			ID:        pt.ID,
			Content:   payloadString(pt.Payload, "content"),
			Metadata:  meta,
			Embedding: pt.Vector,
		})
	}

	if err := col.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("failed to upsert %d points: %w", len(docs), err)
	}
	return nil
}

// Search queries by embedding and applies the score threshold in-process.
// chromem rejects requests for more results than documents, so the limit
// is capped at the collection size.
func (p *ChromemProvider) Search(ctx context.Context, collection string, vector []float32, limit int, threshold float32) ([]Hit, error) {
	col, err := p.getCollection(collection)
	if err != nil {
		return nil, err
	}

	n := limit
	if count := col.Count(); n > count {
		n = count
	}
	if n <= 0 {
		return nil, nil
	}

	results, err := col.QueryEmbedding(ctx, vector, n, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to search collection %q: %w", collection, err)
	}

	hits := make([]Hit, 0, len(results))
	for _, r := range results {
		if r.Similarity < threshold {
			continue
		}
		payload := make(map[string]any, len(r.Metadata))
		for k, v := range r.Metadata {
			payload[k] = v
		}
		hits = append(hits, Hit{
			ID:      r.ID,
			Score:   r.Similarity,
			Content: r.Content,
			Payload: payload,
		})
	}
	return hits, nil
}

func (p *ChromemProvider) DeleteByDoc(ctx context.Context, collection, docID string) error {
	col, err := p.getCollection(collection)
	if err != nil {
		return err
	}
	if col.Count() == 0 {
		return nil
	}
	if err := col.Delete(ctx, map[string]string{"doc_id": docID}, nil); err != nil {
		return fmt.Errorf("failed to delete points for doc %s: %w", docID, err)
	}
	return nil
}

func (p *ChromemProvider) DropCollection(ctx context.Context, collection string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.db.DeleteCollection(collection); err != nil {
		return fmt.Errorf("failed to delete collection %q: %w", collection, err)
	}
	delete(p.collections, collection)
	return nil
}

func (p *ChromemProvider) Count(ctx context.Context, collection string) (uint64, error) {
	col, err := p.getCollection(collection)
	if err != nil {
		return 0, err
	}
	return uint64(col.Count()), nil
}

// Ping always succeeds; the database lives in process.
func (p *ChromemProvider) Ping(context.Context) error { return nil }

// Close is a no-op; the persistent database writes through on every
// mutation.
func (p *ChromemProvider) Close() error { return nil }

var _ Provider = (*ChromemProvider)(nil)
