package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/HariharanV1992/CrawlChat-sub000/internal/domain"
)

// SessionRepository persists chat sessions. Message history is append-only;
// every mutation bumps updated_at so idle-session sweeps can find stale ones.
type SessionRepository struct {
	coll *mongo.Collection
}

// NewSessionRepository creates a session repository backed by the shared client.
func NewSessionRepository(client *Client) *SessionRepository {
	return &SessionRepository{coll: client.Collection(sessionsCollection)}
}

// Create inserts a new session.
func (r *SessionRepository) Create(ctx context.Context, s *domain.Session) error {
	if _, err := r.coll.InsertOne(ctx, s); err != nil {
		return fmt.Errorf("failed to create session %s: %w", s.SessionID, err)
	}
	return nil
}

// GetByID fetches one session.
func (r *SessionRepository) GetByID(ctx context.Context, sessionID string) (*domain.Session, error) {
	var s domain.Session
	err := r.coll.FindOne(ctx, bson.M{"session_id": sessionID}).Decode(&s)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("session %s: %w", sessionID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session %s: %w", sessionID, err)
	}
	return &s, nil
}

// ListByUser returns a user's sessions, most recently active first.
func (r *SessionRepository) ListByUser(ctx context.Context, userID string, limit int) ([]domain.Session, error) {
	if limit <= 0 {
		limit = 50
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "updated_at", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := r.coll.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer cursor.Close(ctx)

	var sessions []domain.Session
	if err := cursor.All(ctx, &sessions); err != nil {
		return nil, fmt.Errorf("failed to decode sessions: %w", err)
	}
	return sessions, nil
}

// AppendMessages appends turns to the session history in order.
func (r *SessionRepository) AppendMessages(ctx context.Context, sessionID string, msgs ...domain.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"session_id": sessionID},
		bson.M{
			"$push": bson.M{"messages": bson.M{"$each": msgs}},
			"$set":  bson.M{"updated_at": time.Now().UTC()},
		},
	)
	if err != nil {
		return fmt.Errorf("failed to append messages to session %s: %w", sessionID, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("session %s: %w", sessionID, ErrNotFound)
	}
	return nil
}

// LinkTask attaches a crawl task to the session.
func (r *SessionRepository) LinkTask(ctx context.Context, sessionID, taskID string) error {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"session_id": sessionID},
		bson.M{
			"$addToSet": bson.M{"crawl_tasks": taskID},
			"$set":      bson.M{"updated_at": time.Now().UTC()},
		},
	)
	if err != nil {
		return fmt.Errorf("failed to link task %s to session %s: %w", taskID, sessionID, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("session %s: %w", sessionID, ErrNotFound)
	}
	return nil
}

// AddUpload records an uploaded document id on the session.
func (r *SessionRepository) AddUpload(ctx context.Context, sessionID, docID string) error {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"session_id": sessionID},
		bson.M{
			"$addToSet": bson.M{"uploaded_documents": docID},
			"$set":      bson.M{"updated_at": time.Now().UTC()},
		},
	)
	if err != nil {
		return fmt.Errorf("failed to add upload %s to session %s: %w", docID, sessionID, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("session %s: %w", sessionID, ErrNotFound)
	}
	return nil
}

// UpdateProcessingStatus sets the background-processing indicator.
func (r *SessionRepository) UpdateProcessingStatus(ctx context.Context, sessionID string, status domain.ProcessingStatus) error {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"session_id": sessionID},
		bson.M{"$set": bson.M{
			"processing_status": status,
			"updated_at":        time.Now().UTC(),
		}},
	)
	if err != nil {
		return fmt.Errorf("failed to update session %s processing status: %w", sessionID, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("session %s: %w", sessionID, ErrNotFound)
	}
	return nil
}

// SetVectorStore records the session's vector collection id and bumps the
// document counter.
func (r *SessionRepository) SetVectorStore(ctx context.Context, sessionID, vectorStoreID string, docDelta int) error {
	update := bson.M{
		"$set": bson.M{
			"vector_store_id": vectorStoreID,
			"updated_at":      time.Now().UTC(),
		},
	}
	if docDelta != 0 {
		update["$inc"] = bson.M{"document_count": docDelta}
	}
	res, err := r.coll.UpdateOne(ctx, bson.M{"session_id": sessionID}, update)
	if err != nil {
		return fmt.Errorf("failed to set session %s vector store: %w", sessionID, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("session %s: %w", sessionID, ErrNotFound)
	}
	return nil
}

// ListIdleSince returns sessions whose last activity predates the cutoff.
func (r *SessionRepository) ListIdleSince(ctx context.Context, cutoff time.Time, limit int) ([]domain.Session, error) {
	if limit <= 0 {
		limit = 100
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "updated_at", Value: 1}}).
		SetLimit(int64(limit))

	cursor, err := r.coll.Find(ctx, bson.M{"updated_at": bson.M{"$lt": cutoff}}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list idle sessions: %w", err)
	}
	defer cursor.Close(ctx)

	var sessions []domain.Session
	if err := cursor.All(ctx, &sessions); err != nil {
		return nil, fmt.Errorf("failed to decode idle sessions: %w", err)
	}
	return sessions, nil
}

// Delete removes the session record.
func (r *SessionRepository) Delete(ctx context.Context, sessionID string) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"session_id": sessionID})
	if err != nil {
		return fmt.Errorf("failed to delete session %s: %w", sessionID, err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("session %s: %w", sessionID, ErrNotFound)
	}
	return nil
}
