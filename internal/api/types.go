package api

import (
	"time"

	"github.com/HariharanV1992/CrawlChat-sub000/internal/domain"
)

// CreateTaskRequest is the body of POST /crawl/tasks.
type CreateTaskRequest struct {
	URL          string `json:"url" binding:"required"`
	UserID       string `json:"user_id"`
	MaxDocuments int    `json:"max_documents"`
	RenderJS     bool   `json:"render_js"`
}

// TaskStatusResponse acknowledges a lifecycle transition.
type TaskStatusResponse struct {
	TaskID string            `json:"task_id"`
	Status domain.TaskStatus `json:"status"`
}

// TaskSummary is the listing view of a crawl task.
type TaskSummary struct {
	TaskID    string            `json:"task_id"`
	UserID    string            `json:"user_id"`
	SeedURL   string            `json:"seed_url"`
	Status    domain.TaskStatus `json:"status"`
	Progress  domain.Progress   `json:"progress"`
	Error     string            `json:"error,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

func summarizeTask(t *domain.CrawlTask) TaskSummary {
	return TaskSummary{
		TaskID:    t.TaskID,
		UserID:    t.UserID,
		SeedURL:   t.SeedURL,
		Status:    t.Status,
		Progress:  t.Progress,
		Error:     t.Error,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
}

// TaskListResponse is the body of GET /crawl/tasks.
type TaskListResponse struct {
	Tasks []TaskSummary `json:"tasks"`
	Total int           `json:"total"`
}

// DocumentListResponse is the body of GET /crawl/tasks/:id/documents.
type DocumentListResponse struct {
	TaskID    string                   `json:"task_id"`
	Documents []domain.DocumentSummary `json:"documents"`
	Total     int                      `json:"total"`
}

// CreateSessionRequest is the body of POST /chat/sessions.
type CreateSessionRequest struct {
	UserID string `json:"user_id"`
}

// MessageRequest is the body of POST /chat/sessions/:id/messages.
type MessageRequest struct {
	Content string `json:"content" binding:"required"`
}

// LinkTaskRequest is the body of POST /chat/sessions/:id/link-task.
type LinkTaskRequest struct {
	TaskID string `json:"task_id" binding:"required"`
}

// UploadResponse is the body of POST /chat/sessions/:id/upload.
type UploadResponse struct {
	DocID       string `json:"doc_id"`
	Filename    string `json:"filename"`
	Key         string `json:"key"`
	Status      string `json:"status"`
	Placeholder bool   `json:"placeholder,omitempty"`
}
