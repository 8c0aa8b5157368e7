// Package vector turns extracted document text into searchable embeddings.
//
// Each chat session owns one collection named cc_<session>. The Indexer
// chunks and embeds text, deduplicates identical content within a session,
// and keeps the processed-document records in step with the vectors: a
// record is only written after its vectors are durably upserted, so a
// record with status "processed" always has searchable chunks behind it.
package vector

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/HariharanV1992/CrawlChat-sub000/internal/config"
	"github.com/HariharanV1992/CrawlChat-sub000/internal/logger"
)

// ErrUnknownProvider is returned for an unrecognized provider name.
var ErrUnknownProvider = errors.New("unknown vector provider")

// Point is one chunk of a document ready for storage.
type Point struct {
	// ID must be a UUID string; qdrant rejects arbitrary point IDs.
	ID      string
	Vector  []float32
	Payload map[string]any
}

// Hit is one search result. Score is cosine similarity in [-1, 1];
// both backends report the same scale.
type Hit struct {
	ID      string
	Score   float32
	Content string
	Payload map[string]any
}

// Provider is the vector storage backend. Implementations must treat
// Upsert with an existing point ID as a replace so re-indexing a
// document is idempotent.
type Provider interface {
	// EnsureCollection creates the collection if it does not exist.
	EnsureCollection(ctx context.Context, collection string, dimension int) error

	// Upsert writes points, replacing any with the same ID.
	Upsert(ctx context.Context, collection string, points []Point) error

	// Search returns up to limit hits with score >= threshold, best first.
	Search(ctx context.Context, collection string, vector []float32, limit int, threshold float32) ([]Hit, error)

	// DeleteByDoc removes every point whose payload doc_id matches.
	DeleteByDoc(ctx context.Context, collection, docID string) error

	// DropCollection removes the collection and all its points.
	// Dropping a collection that does not exist is not an error.
	DropCollection(ctx context.Context, collection string) error

	// Count reports the number of points in the collection.
	Count(ctx context.Context, collection string) (uint64, error)

	// Ping verifies the backing store is reachable.
	Ping(ctx context.Context) error

	Name() string
	Close() error
}

// New builds the provider selected by cfg.Provider. An empty provider
// name selects chromem, which needs no external service.
func New(cfg config.VectorConfig, log logger.Interface) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "qdrant":
		return NewQdrantProvider(cfg, log)
	case "chromem", "":
		return NewChromemProvider(cfg.PersistPath, log)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Provider)
	}
}

// CollectionForSession names the per-session collection. Session IDs are
// UUIDs, but the name is sanitized anyway so externally supplied IDs
// cannot produce names the backends reject.
func CollectionForSession(sessionID string) string {
	var b strings.Builder
	b.Grow(len(sessionID) + 3)
	b.WriteString("cc_")
	for _, r := range sessionID {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

// payloadString reads a string payload field, tolerating the any-typed
// maps both backends return.
func payloadString(payload map[string]any, key string) string {
	if payload == nil {
		return ""
	}
	if s, ok := payload[key].(string); ok {
		return s
	}
	return ""
}
