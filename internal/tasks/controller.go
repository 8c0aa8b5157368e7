// Package tasks is the control-plane service for the crawl task
// lifecycle: create, dispatch, observe, and purge.
package tasks

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/HariharanV1992/CrawlChat-sub000/internal/database"
	"github.com/HariharanV1992/CrawlChat-sub000/internal/domain"
	"github.com/HariharanV1992/CrawlChat-sub000/internal/logger"
	"github.com/HariharanV1992/CrawlChat-sub000/internal/metrics"
	"github.com/HariharanV1992/CrawlChat-sub000/internal/objectstore"
	"github.com/HariharanV1992/CrawlChat-sub000/internal/queue"
)

// ErrTaskTerminal is returned when an operation needs a live task but the
// task has already finished. The API maps it to 409.
var ErrTaskTerminal = errors.New("task is already terminal")

// DefaultUserID owns tasks created without an explicit user.
const DefaultUserID = "default"

// TaskStore is the task persistence surface the controller drives.
type TaskStore interface {
	Create(ctx context.Context, task *domain.CrawlTask) error
	GetByID(ctx context.Context, taskID string) (*domain.CrawlTask, error)
	List(ctx context.Context, userID string, status domain.TaskStatus, limit, offset int) ([]domain.CrawlTask, error)
	UpdateStatus(ctx context.Context, taskID string, next domain.TaskStatus, taskErr string) error
	UpdateProgress(ctx context.Context, taskID string, p domain.Progress) error
	Delete(ctx context.Context, taskID string) error
}

// DocumentStore reads and purges crawled document records.
type DocumentStore interface {
	GetByID(ctx context.Context, taskID, docID string) (*domain.CrawledDocument, error)
	ListByTask(ctx context.Context, taskID string) ([]domain.CrawledDocument, error)
	DeleteByTask(ctx context.Context, taskID string) (int64, error)
}

// ProcessedPurger removes index records when their documents go away.
type ProcessedPurger interface {
	DeleteByDocIDs(ctx context.Context, docIDs []string) (int64, error)
}

// Artifacts is the object-store surface task deletion and document
// retrieval need.
type Artifacts interface {
	FetchDocument(ctx context.Context, userID, taskID, docID string) ([]byte, *objectstore.Sidecar, error)
	DeleteTask(ctx context.Context, userID, taskID string) (int, error)
}

// Dispatcher hands a started task to the worker fleet.
type Dispatcher interface {
	Enqueue(ctx context.Context, d *queue.Dispatch) (string, error)
}

// EventSink receives progress events for live subscribers. Delivery is
// best-effort.
type EventSink interface {
	Publish(event domain.ProgressEvent) error
}

// Controller owns task lifecycle decisions. Workers write their own
// results; the controller handles everything initiated by the API.
type Controller struct {
	store     TaskStore
	docs      DocumentStore
	processed ProcessedPurger
	artifacts Artifacts
	queue     Dispatcher
	events    EventSink
	log       logger.Interface
	metrics   *metrics.Metrics
}

// Deps wires a Controller. Events and Metrics may be nil.
type Deps struct {
	Store     TaskStore
	Docs      DocumentStore
	Processed ProcessedPurger
	Artifacts Artifacts
	Queue     Dispatcher
	Events    EventSink
	Log       logger.Interface
	Metrics   *metrics.Metrics
}

// NewController validates dependencies and builds a controller.
func NewController(deps Deps) (*Controller, error) {
	switch {
	case deps.Store == nil:
		return nil, errors.New("task store is required")
	case deps.Docs == nil:
		return nil, errors.New("document store is required")
	case deps.Processed == nil:
		return nil, errors.New("processed purger is required")
	case deps.Artifacts == nil:
		return nil, errors.New("artifact store is required")
	case deps.Queue == nil:
		return nil, errors.New("dispatcher is required")
	case deps.Log == nil:
		return nil, errors.New("logger is required")
	}
	return &Controller{
		store:     deps.Store,
		docs:      deps.Docs,
		processed: deps.Processed,
		artifacts: deps.Artifacts,
		queue:     deps.Queue,
		events:    deps.Events,
		log:       deps.Log,
		metrics:   deps.Metrics,
	}, nil
}

// CreateRequest carries the task creation parameters.
type CreateRequest struct {
	URL          string `json:"url"`
	UserID       string `json:"user_id"`
	MaxDocuments int    `json:"max_documents"`
	RenderJS     bool   `json:"render_js"`
}

// Create validates and persists a new task in status created. Nothing is
// dispatched until Start.
func (c *Controller) Create(ctx context.Context, req CreateRequest) (*domain.CrawlTask, error) {
	seedURL := strings.TrimSpace(req.URL)
	if err := domain.ValidateSeedURL(seedURL); err != nil {
		return nil, err
	}
	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		userID = DefaultUserID
	}

	cfg := domain.CrawlConfig{
		MaxDocuments: req.MaxDocuments,
		RenderJS:     req.RenderJS,
	}
	cfg.Normalize()

	now := time.Now().UTC()
	task := &domain.CrawlTask{
		TaskID:    uuid.NewString(),
		UserID:    userID,
		SeedURL:   seedURL,
		Status:    domain.TaskStatusCreated,
		Config:    cfg,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := c.store.Create(ctx, task); err != nil {
		return nil, err
	}

	c.log.Info("task created",
		"task_id", task.TaskID,
		"user_id", userID,
		"seed_url", seedURL,
		"max_documents", cfg.MaxDocuments)
	return task, nil
}

// Start transitions a created task to running and dispatches it. Starting
// a running task is a no-op returning the current record; starting a
// terminal task returns the record alongside ErrTaskTerminal.
func (c *Controller) Start(ctx context.Context, taskID string) (*domain.CrawlTask, error) {
	task, err := c.store.GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.Status.Terminal() {
		return task, ErrTaskTerminal
	}
	if task.Status == domain.TaskStatusRunning {
		return task, nil
	}

	if err := c.store.UpdateStatus(ctx, taskID, domain.TaskStatusRunning, ""); err != nil {
		// A concurrent Start winning the transition is a success from the
		// caller's point of view.
		if errors.Is(err, database.ErrInvalidTransition) {
			return c.store.GetByID(ctx, taskID)
		}
		return nil, err
	}
	task.Status = domain.TaskStatusRunning

	if _, err := c.queue.Enqueue(ctx, &queue.Dispatch{
		TaskID:  task.TaskID,
		UserID:  task.UserID,
		SeedURL: task.SeedURL,
		Config:  task.Config,
	}); err != nil {
		reason := fmt.Sprintf("dispatch failed: %v", err)
		if stErr := c.store.UpdateStatus(ctx, taskID, domain.TaskStatusFailed, reason); stErr != nil {
			c.log.Error("failed to mark undispatched task failed", "task_id", taskID, "error", stErr)
		}
		return nil, fmt.Errorf("failed to dispatch task %s: %w", taskID, err)
	}

	c.log.Info("task started", "task_id", taskID)
	return task, nil
}

// Get returns one task.
func (c *Controller) Get(ctx context.Context, taskID string) (*domain.CrawlTask, error) {
	return c.store.GetByID(ctx, taskID)
}

// List returns a user's tasks, newest first.
func (c *Controller) List(ctx context.Context, userID string, status domain.TaskStatus, limit, offset int) ([]domain.CrawlTask, error) {
	if strings.TrimSpace(userID) == "" {
		userID = DefaultUserID
	}
	return c.store.List(ctx, userID, status, limit, offset)
}

// Cancel asks a live task to stop. Workers observe the status flip
// between fetch and store and wind the crawl down.
func (c *Controller) Cancel(ctx context.Context, taskID string) (*domain.CrawlTask, error) {
	task, err := c.store.GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.Status.Terminal() {
		return task, ErrTaskTerminal
	}
	if err := c.store.UpdateStatus(ctx, taskID, domain.TaskStatusCancelled, ""); err != nil {
		return nil, err
	}
	task.Status = domain.TaskStatusCancelled
	if c.metrics != nil {
		c.metrics.CrawlTasks.WithLabelValues(string(domain.TaskStatusCancelled)).Inc()
	}
	c.log.Info("task cancelled", "task_id", taskID)
	return task, nil
}

// Delete purges a task: its object-store artifacts, document records,
// processed index records, and finally the task itself. Live tasks are
// cancelled first so workers stop writing into the space being removed.
func (c *Controller) Delete(ctx context.Context, taskID string) error {
	task, err := c.store.GetByID(ctx, taskID)
	if err != nil {
		return err
	}

	if !task.Status.Terminal() {
		if _, err := c.Cancel(ctx, taskID); err != nil && !errors.Is(err, ErrTaskTerminal) {
			c.log.Warn("failed to cancel task before delete", "task_id", taskID, "error", err)
		}
	}

	docs, err := c.docs.ListByTask(ctx, taskID)
	if err != nil {
		return err
	}
	docIDs := make([]string, 0, len(docs))
	for _, d := range docs {
		docIDs = append(docIDs, d.DocID)
	}

	removed, err := c.artifacts.DeleteTask(ctx, task.UserID, taskID)
	if err != nil {
		return fmt.Errorf("failed to purge task artifacts: %w", err)
	}
	deletedDocs, err := c.docs.DeleteByTask(ctx, taskID)
	if err != nil {
		return err
	}
	deletedRecords, err := c.processed.DeleteByDocIDs(ctx, docIDs)
	if err != nil {
		return err
	}
	if err := c.store.Delete(ctx, taskID); err != nil {
		return err
	}

	c.log.Info("task deleted",
		"task_id", taskID,
		"artifacts", removed,
		"documents", deletedDocs,
		"processed_records", deletedRecords)
	return nil
}

// Documents lists a task's stored documents as summaries.
func (c *Controller) Documents(ctx context.Context, taskID string) ([]domain.DocumentSummary, error) {
	if _, err := c.store.GetByID(ctx, taskID); err != nil {
		return nil, err
	}
	docs, err := c.docs.ListByTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	summaries := make([]domain.DocumentSummary, 0, len(docs))
	for i := range docs {
		summaries = append(summaries, docs[i].Summary())
	}
	return summaries, nil
}

// Content encodings for document retrieval.
const (
	EncodingText   = "text"
	EncodingBase64 = "base64"
)

// DocumentContent is a full document: the record plus its content, as
// text when extraction produced any and base64 of the raw bytes
// otherwise.
type DocumentContent struct {
	Document *domain.CrawledDocument `json:"document"`
	Content  string                  `json:"content"`
	Encoding string                  `json:"encoding"`
}

// Document fetches one document with its content.
func (c *Controller) Document(ctx context.Context, taskID, docID string) (*DocumentContent, error) {
	doc, err := c.docs.GetByID(ctx, taskID, docID)
	if err != nil {
		return nil, err
	}

	if !doc.IsBinary && strings.TrimSpace(doc.ContentText) != "" {
		return &DocumentContent{Document: doc, Content: doc.ContentText, Encoding: EncodingText}, nil
	}

	body, _, err := c.artifacts.FetchDocument(ctx, doc.UserID, taskID, docID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch document body: %w", err)
	}
	return &DocumentContent{
		Document: doc,
		Content:  base64.StdEncoding.EncodeToString(body),
		Encoding: EncodingBase64,
	}, nil
}

// ApplyProgress persists a progress event and forwards it to live
// subscribers. It is the events.Handler for the progress stream; replays
// are harmless because counters are absolute.
func (c *Controller) ApplyProgress(ctx context.Context, event domain.ProgressEvent) {
	err := c.store.UpdateProgress(ctx, event.TaskID, domain.Progress{
		DocumentsFound:      event.DocumentsFound,
		DocumentsDownloaded: event.DocumentsDownloaded,
		PagesCrawled:        event.PagesCrawled,
	})
	if err != nil {
		c.log.Warn("failed to persist progress", "task_id", event.TaskID, "error", err)
	}

	if c.events != nil {
		if err := c.events.Publish(event); err != nil {
			c.log.Debug("progress fan-out skipped", "task_id", event.TaskID, "error", err)
		}
	}
}
