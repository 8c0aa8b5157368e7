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

// TaskRepository persists crawl tasks.
type TaskRepository struct {
	coll *mongo.Collection
}

// NewTaskRepository creates a task repository backed by the shared client.
func NewTaskRepository(client *Client) *TaskRepository {
	return &TaskRepository{coll: client.Collection(tasksCollection)}
}

// Create inserts a new task record.
func (r *TaskRepository) Create(ctx context.Context, task *domain.CrawlTask) error {
	if _, err := r.coll.InsertOne(ctx, task); err != nil {
		return fmt.Errorf("failed to create task %s: %w", task.TaskID, err)
	}
	return nil
}

// GetByID fetches one task by its id.
func (r *TaskRepository) GetByID(ctx context.Context, taskID string) (*domain.CrawlTask, error) {
	var task domain.CrawlTask
	err := r.coll.FindOne(ctx, bson.M{"task_id": taskID}).Decode(&task)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("task %s: %w", taskID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task %s: %w", taskID, err)
	}
	return &task, nil
}

// List returns a user's tasks newest first, optionally filtered by status.
func (r *TaskRepository) List(ctx context.Context, userID string, status domain.TaskStatus, limit, offset int) ([]domain.CrawlTask, error) {
	filter := bson.M{"user_id": userID}
	if status != "" {
		filter["status"] = status
	}
	if limit <= 0 {
		limit = 50
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit)).
		SetSkip(int64(offset))

	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer cursor.Close(ctx)

	var tasks []domain.CrawlTask
	if err := cursor.All(ctx, &tasks); err != nil {
		return nil, fmt.Errorf("failed to decode tasks: %w", err)
	}
	return tasks, nil
}

// UpdateStatus moves a task to the next lifecycle state. The current status
// is re-read and checked so concurrent writers cannot skip a transition or
// resurrect a terminal task.
func (r *TaskRepository) UpdateStatus(ctx context.Context, taskID string, next domain.TaskStatus, taskErr string) error {
	task, err := r.GetByID(ctx, taskID)
	if err != nil {
		return err
	}
	if !task.Status.CanTransition(next) {
		return fmt.Errorf("%s -> %s: %w", task.Status, next, ErrInvalidTransition)
	}

	update := bson.M{
		"status":     next,
		"updated_at": time.Now().UTC(),
	}
	if taskErr != "" {
		update["error"] = taskErr
	}

	// The status guard is repeated in the filter so a lost race turns into
	// a no-op rather than an illegal overwrite.
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"task_id": taskID, "status": task.Status},
		bson.M{"$set": update},
	)
	if err != nil {
		return fmt.Errorf("failed to update task %s status: %w", taskID, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("task %s status changed concurrently: %w", taskID, ErrInvalidTransition)
	}
	return nil
}

// UpdateProgress overwrites the progress counters for a running task.
func (r *TaskRepository) UpdateProgress(ctx context.Context, taskID string, p domain.Progress) error {
	_, err := r.coll.UpdateOne(ctx,
		bson.M{"task_id": taskID},
		bson.M{"$set": bson.M{
			"progress":   p,
			"updated_at": time.Now().UTC(),
		}},
	)
	if err != nil {
		return fmt.Errorf("failed to update task %s progress: %w", taskID, err)
	}
	return nil
}

// SetResult records the stored document ids and failed URLs of a finished crawl.
func (r *TaskRepository) SetResult(ctx context.Context, taskID string, docIDs, failedURLs []string) error {
	_, err := r.coll.UpdateOne(ctx,
		bson.M{"task_id": taskID},
		bson.M{"$set": bson.M{
			"result":      docIDs,
			"failed_urls": failedURLs,
			"updated_at":  time.Now().UTC(),
		}},
	)
	if err != nil {
		return fmt.Errorf("failed to set task %s result: %w", taskID, err)
	}
	return nil
}

// Delete removes the task record.
func (r *TaskRepository) Delete(ctx context.Context, taskID string) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"task_id": taskID})
	if err != nil {
		return fmt.Errorf("failed to delete task %s: %w", taskID, err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("task %s: %w", taskID, ErrNotFound)
	}
	return nil
}
