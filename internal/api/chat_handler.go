package api

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/HariharanV1992/CrawlChat-sub000/internal/chat"
	"github.com/HariharanV1992/CrawlChat-sub000/internal/domain"
	"github.com/HariharanV1992/CrawlChat-sub000/internal/logger"
	"github.com/HariharanV1992/CrawlChat-sub000/internal/pipeline"
)

// maxUploadBytes caps one multipart upload. Documents past this size defeat
// the synchronous extraction tiers anyway.
const maxUploadBytes = 50 << 20

// ChatService is the slice of the chat orchestrator the handlers drive.
type ChatService interface {
	NewSession(ctx context.Context, userID string) (*domain.Session, error)
	Get(ctx context.Context, sessionID string) (*domain.Session, error)
	Ask(ctx context.Context, sessionID, content string) (*chat.Reply, error)
	LinkTask(ctx context.Context, sessionID, taskID string) (*domain.Session, error)
	Upload(ctx context.Context, sessionID, filename string, data []byte) (*pipeline.UploadResult, error)
}

// ChatHandler serves the /chat/sessions routes.
type ChatHandler struct {
	service ChatService
	log     logger.Interface
}

// NewChatHandler creates the chat handler.
func NewChatHandler(service ChatService, log logger.Interface) *ChatHandler {
	return &ChatHandler{service: service, log: log}
}

// CreateSession handles POST /chat/sessions.
func (h *ChatHandler) CreateSession(c *gin.Context) {
	var req CreateSessionRequest
	// The body is optional; an empty one creates a session for the
	// default user.
	if err := c.ShouldBindJSON(&req); err != nil && err != io.EOF {
		respondError(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	session, err := h.service.NewSession(c.Request.Context(), req.UserID)
	if err != nil {
		h.log.Error("failed to create session", "error", err)
		respondServiceError(c, err, "failed to create session")
		return
	}
	c.JSON(http.StatusCreated, session)
}

// GetSession handles GET /chat/sessions/:id.
func (h *ChatHandler) GetSession(c *gin.Context) {
	session, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondServiceError(c, err, "failed to load session")
		return
	}
	c.JSON(http.StatusOK, session)
}

// Message handles POST /chat/sessions/:id/messages: one full ask turn,
// answered synchronously.
func (h *ChatHandler) Message(c *gin.Context) {
	var req MessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	id := c.Param("id")
	reply, err := h.service.Ask(c.Request.Context(), id, req.Content)
	if err != nil {
		h.log.Error("ask failed", "session_id", id, "error", err)
		respondServiceError(c, err, "failed to answer message")
		return
	}
	c.JSON(http.StatusOK, reply)
}

// LinkTask handles POST /chat/sessions/:id/link-task. The task's documents
// index in the background; the session comes back immediately with
// processing_status reflecting the work in flight.
func (h *ChatHandler) LinkTask(c *gin.Context) {
	var req LinkTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	id := c.Param("id")
	session, err := h.service.LinkTask(c.Request.Context(), id, req.TaskID)
	if err != nil {
		h.log.Error("failed to link task", "session_id", id, "task_id", req.TaskID, "error", err)
		respondServiceError(c, err, "failed to link task")
		return
	}
	c.JSON(http.StatusOK, session)
}

// Upload handles POST /chat/sessions/:id/upload (multipart, field "file").
func (h *ChatHandler) Upload(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		respondError(c, http.StatusBadRequest, "multipart field 'file' is required")
		return
	}
	if header.Size > maxUploadBytes {
		respondError(c, http.StatusBadRequest, "file exceeds upload size limit")
		return
	}

	file, err := header.Open()
	if err != nil {
		respondError(c, http.StatusBadRequest, "failed to open upload: "+err.Error())
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
	if err != nil {
		respondError(c, http.StatusBadRequest, "failed to read upload: "+err.Error())
		return
	}
	if len(data) > maxUploadBytes {
		respondError(c, http.StatusBadRequest, "file exceeds upload size limit")
		return
	}

	id := c.Param("id")
	res, err := h.service.Upload(c.Request.Context(), id, header.Filename, data)
	if err != nil {
		h.log.Error("upload failed", "session_id", id, "filename", header.Filename, "error", err)
		respondServiceError(c, err, "failed to process upload")
		return
	}

	status := string(res.Record.Status)
	c.JSON(http.StatusCreated, UploadResponse{
		DocID:       res.Record.DocID,
		Filename:    header.Filename,
		Key:         res.Key,
		Status:      status,
		Placeholder: res.Placeholder,
	})
}
