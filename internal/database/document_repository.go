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

// DocumentRepository persists crawled-document metadata. Blob bytes live in
// the object store; this collection holds the searchable record.
type DocumentRepository struct {
	coll *mongo.Collection
}

// NewDocumentRepository creates a document repository backed by the shared client.
func NewDocumentRepository(client *Client) *DocumentRepository {
	return &DocumentRepository{coll: client.Collection(documentsCollection)}
}

// Upsert writes the document record, replacing any previous version for the
// same (doc_id, task_id). Re-crawling a URL within a task is idempotent.
func (r *DocumentRepository) Upsert(ctx context.Context, doc *domain.CrawledDocument) error {
	filter := bson.M{"doc_id": doc.DocID, "task_id": doc.TaskID}
	opts := options.Replace().SetUpsert(true)
	if _, err := r.coll.ReplaceOne(ctx, filter, doc, opts); err != nil {
		return fmt.Errorf("failed to upsert document %s: %w", doc.DocID, err)
	}
	return nil
}

// GetByID fetches a document record within a task.
func (r *DocumentRepository) GetByID(ctx context.Context, taskID, docID string) (*domain.CrawledDocument, error) {
	var doc domain.CrawledDocument
	err := r.coll.FindOne(ctx, bson.M{"doc_id": docID, "task_id": taskID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("document %s: %w", docID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document %s: %w", docID, err)
	}
	return &doc, nil
}

// ListByTask returns all documents acquired by one task, newest first.
func (r *DocumentRepository) ListByTask(ctx context.Context, taskID string) ([]domain.CrawledDocument, error) {
	opts := options.Find().SetSort(bson.D{{Key: "fetched_at", Value: -1}})
	cursor, err := r.coll.Find(ctx, bson.M{"task_id": taskID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents for task %s: %w", taskID, err)
	}
	defer cursor.Close(ctx)

	var docs []domain.CrawledDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode documents: %w", err)
	}
	return docs, nil
}

// DeleteByTask removes every document record owned by a task and reports
// how many were removed.
func (r *DocumentRepository) DeleteByTask(ctx context.Context, taskID string) (int64, error) {
	res, err := r.coll.DeleteMany(ctx, bson.M{"task_id": taskID})
	if err != nil {
		return 0, fmt.Errorf("failed to delete documents for task %s: %w", taskID, err)
	}
	return res.DeletedCount, nil
}
