package database

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/HariharanV1992/CrawlChat-sub000/internal/domain"
)

// ProcessedStats aggregates a session's index records.
type ProcessedStats struct {
	Total      int `json:"total"`
	Processed  int `json:"processed"`
	Duplicates int `json:"duplicates"`
	Errors     int `json:"errors"`
}

// ProcessedRepository persists the per-session index records that map
// documents to their vector-store entries and carry the dedup bookkeeping.
type ProcessedRepository struct {
	coll *mongo.Collection
}

// NewProcessedRepository creates a processed-document repository backed by
// the shared client.
func NewProcessedRepository(client *Client) *ProcessedRepository {
	return &ProcessedRepository{coll: client.Collection(processedCollection)}
}

// Upsert writes the record, replacing any previous version for the same
// (doc_id, session_id).
func (r *ProcessedRepository) Upsert(ctx context.Context, rec *domain.ProcessedDocument) error {
	filter := bson.M{"doc_id": rec.DocID, "session_id": rec.SessionID}
	opts := options.Replace().SetUpsert(true)
	if _, err := r.coll.ReplaceOne(ctx, filter, rec, opts); err != nil {
		return fmt.Errorf("failed to upsert processed record %s: %w", rec.DocID, err)
	}
	return nil
}

// GetByID fetches a record within a session.
func (r *ProcessedRepository) GetByID(ctx context.Context, sessionID, docID string) (*domain.ProcessedDocument, error) {
	var rec domain.ProcessedDocument
	err := r.coll.FindOne(ctx, bson.M{"doc_id": docID, "session_id": sessionID}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("processed record %s: %w", docID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get processed record %s: %w", docID, err)
	}
	return &rec, nil
}

// FindOriginal returns the non-duplicate record holding a content hash in a
// session, or ErrNotFound if the hash is new to the session.
func (r *ProcessedRepository) FindOriginal(ctx context.Context, sessionID, contentHash string) (*domain.ProcessedDocument, error) {
	var rec domain.ProcessedDocument
	err := r.coll.FindOne(ctx, bson.M{
		"session_id":   sessionID,
		"content_hash": contentHash,
		"is_duplicate": false,
	}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("content hash %s: %w", contentHash, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find original for hash %s: %w", contentHash, err)
	}
	return &rec, nil
}

// ListBySession returns every record in a session, newest first.
func (r *ProcessedRepository) ListBySession(ctx context.Context, sessionID string) ([]domain.ProcessedDocument, error) {
	opts := options.Find().SetSort(bson.D{{Key: "processed_at", Value: -1}})
	cursor, err := r.coll.Find(ctx, bson.M{"session_id": sessionID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list processed records for session %s: %w", sessionID, err)
	}
	defer cursor.Close(ctx)

	var recs []domain.ProcessedDocument
	if err := cursor.All(ctx, &recs); err != nil {
		return nil, fmt.Errorf("failed to decode processed records: %w", err)
	}
	return recs, nil
}

// Delete removes one record from a session.
func (r *ProcessedRepository) Delete(ctx context.Context, sessionID, docID string) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"doc_id": docID, "session_id": sessionID})
	if err != nil {
		return fmt.Errorf("failed to delete processed record %s: %w", docID, err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("processed record %s: %w", docID, ErrNotFound)
	}
	return nil
}

// DeleteByDocIDs removes the records for the given documents across all
// sessions. Task deletion purges its index records this way.
func (r *ProcessedRepository) DeleteByDocIDs(ctx context.Context, docIDs []string) (int64, error) {
	if len(docIDs) == 0 {
		return 0, nil
	}
	res, err := r.coll.DeleteMany(ctx, bson.M{"doc_id": bson.M{"$in": docIDs}})
	if err != nil {
		return 0, fmt.Errorf("failed to delete processed records by doc ids: %w", err)
	}
	return res.DeletedCount, nil
}

// DeleteBySession removes all records for a session.
func (r *ProcessedRepository) DeleteBySession(ctx context.Context, sessionID string) (int64, error) {
	res, err := r.coll.DeleteMany(ctx, bson.M{"session_id": sessionID})
	if err != nil {
		return 0, fmt.Errorf("failed to delete processed records for session %s: %w", sessionID, err)
	}
	return res.DeletedCount, nil
}

// Stats tallies a session's records by status.
func (r *ProcessedRepository) Stats(ctx context.Context, sessionID string) (ProcessedStats, error) {
	recs, err := r.ListBySession(ctx, sessionID)
	if err != nil {
		return ProcessedStats{}, err
	}

	stats := ProcessedStats{Total: len(recs)}
	for _, rec := range recs {
		switch rec.Status {
		case domain.ProcessedStatusProcessed:
			stats.Processed++
		case domain.ProcessedStatusDuplicateSkipped:
			stats.Duplicates++
		case domain.ProcessedStatusError:
			stats.Errors++
		}
	}
	return stats, nil
}
