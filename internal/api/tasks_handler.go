// Package api implements the control-plane HTTP surface: crawl task
// lifecycle, document retrieval, progress streaming, and chat.
package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/HariharanV1992/CrawlChat-sub000/internal/domain"
	"github.com/HariharanV1992/CrawlChat-sub000/internal/logger"
	"github.com/HariharanV1992/CrawlChat-sub000/internal/tasks"
)

// TaskService is the slice of the task controller the handlers drive.
type TaskService interface {
	Create(ctx context.Context, req tasks.CreateRequest) (*domain.CrawlTask, error)
	Start(ctx context.Context, taskID string) (*domain.CrawlTask, error)
	Get(ctx context.Context, taskID string) (*domain.CrawlTask, error)
	List(ctx context.Context, userID string, status domain.TaskStatus, limit, offset int) ([]domain.CrawlTask, error)
	Delete(ctx context.Context, taskID string) error
	Documents(ctx context.Context, taskID string) ([]domain.DocumentSummary, error)
	Document(ctx context.Context, taskID, docID string) (*tasks.DocumentContent, error)
}

// TasksHandler serves the /crawl/tasks routes.
type TasksHandler struct {
	service TaskService
	log     logger.Interface
}

// NewTasksHandler creates the crawl-task handler.
func NewTasksHandler(service TaskService, log logger.Interface) *TasksHandler {
	return &TasksHandler{service: service, log: log}
}

// Create handles POST /crawl/tasks.
func (h *TasksHandler) Create(c *gin.Context) {
	var req CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}
	if err := domain.ValidateSeedURL(req.URL); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	task, err := h.service.Create(c.Request.Context(), tasks.CreateRequest{
		URL:          req.URL,
		UserID:       req.UserID,
		MaxDocuments: req.MaxDocuments,
		RenderJS:     req.RenderJS,
	})
	if err != nil {
		h.log.Error("failed to create task", "error", err)
		respondServiceError(c, err, "failed to create task")
		return
	}

	c.JSON(http.StatusCreated, TaskStatusResponse{TaskID: task.TaskID, Status: task.Status})
}

// Start handles POST /crawl/tasks/:id/start. Starting a terminal task is
// a conflict carrying the unchanged record so the caller sees its state.
func (h *TasksHandler) Start(c *gin.Context) {
	id := c.Param("id")

	task, err := h.service.Start(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, tasks.ErrTaskTerminal) {
			c.JSON(http.StatusConflict, task)
			return
		}
		h.log.Error("failed to start task", "task_id", id, "error", err)
		respondServiceError(c, err, "failed to start task")
		return
	}

	c.JSON(http.StatusOK, TaskStatusResponse{TaskID: task.TaskID, Status: task.Status})
}

// Get handles GET /crawl/tasks/:id.
func (h *TasksHandler) Get(c *gin.Context) {
	task, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondServiceError(c, err, "failed to load task")
		return
	}
	c.JSON(http.StatusOK, task)
}

// List handles GET /crawl/tasks. Results come back newest first.
func (h *TasksHandler) List(c *gin.Context) {
	limit, offset := parseLimitOffset(c)
	status := domain.TaskStatus(strings.TrimSpace(c.Query("status")))

	list, err := h.service.List(c.Request.Context(), c.Query("user_id"), status, limit, offset)
	if err != nil {
		h.log.Error("failed to list tasks", "error", err)
		respondServiceError(c, err, "failed to list tasks")
		return
	}

	summaries := make([]TaskSummary, 0, len(list))
	for i := range list {
		summaries = append(summaries, summarizeTask(&list[i]))
	}
	c.JSON(http.StatusOK, TaskListResponse{Tasks: summaries, Total: len(summaries)})
}

// Delete handles DELETE /crawl/tasks/:id. Deletion purges the task's
// artifacts, document records, and index records before the task itself.
func (h *TasksHandler) Delete(c *gin.Context) {
	id := c.Param("id")
	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		h.log.Error("failed to delete task", "task_id", id, "error", err)
		respondServiceError(c, err, "failed to delete task")
		return
	}
	c.Status(http.StatusNoContent)
}

// Documents handles GET /crawl/tasks/:id/documents.
func (h *TasksHandler) Documents(c *gin.Context) {
	id := c.Param("id")
	docs, err := h.service.Documents(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err, "failed to list documents")
		return
	}
	c.JSON(http.StatusOK, DocumentListResponse{TaskID: id, Documents: docs, Total: len(docs)})
}

// Document handles GET /crawl/tasks/:id/documents/:doc_id. Text documents
// return their extracted text; binaries return base64 of the stored bytes.
func (h *TasksHandler) Document(c *gin.Context) {
	content, err := h.service.Document(c.Request.Context(), c.Param("id"), c.Param("doc_id"))
	if err != nil {
		respondServiceError(c, err, "failed to load document")
		return
	}
	c.JSON(http.StatusOK, content)
}
