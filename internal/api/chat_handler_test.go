package api_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/HariharanV1992/CrawlChat-sub000/internal/api"
	"github.com/HariharanV1992/CrawlChat-sub000/internal/chat"
	"github.com/HariharanV1992/CrawlChat-sub000/internal/database"
	"github.com/HariharanV1992/CrawlChat-sub000/internal/domain"
	"github.com/HariharanV1992/CrawlChat-sub000/internal/pipeline"
	"github.com/HariharanV1992/CrawlChat-sub000/internal/query"
)

func TestCreateSession(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.chatSvc.newSession = func(userID string) (*domain.Session, error) {
		return &domain.Session{SessionID: "s-1", UserID: userID}, nil
	}

	// An empty body is fine; the service applies the default user.
	w := f.do(http.MethodPost, "/chat/sessions", nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d: %s", w.Code, http.StatusCreated, w.Body.String())
	}

	w = f.do(http.MethodPost, "/chat/sessions", strings.NewReader(`{"user_id":"u-1"}`))
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusCreated)
	}
	var session domain.Session
	if err := json.Unmarshal(w.Body.Bytes(), &session); err != nil {
		t.Fatalf("response is not JSON: %v", err)
	}
	if session.UserID != "u-1" {
		t.Errorf("user = %q, want u-1", session.UserID)
	}

	w = f.do(http.MethodPost, "/chat/sessions", strings.NewReader(`{{{`))
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestGetSession(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.chatSvc.get = func(sessionID string) (*domain.Session, error) {
		if sessionID != "s-1" {
			return nil, fmt.Errorf("session %s: %w", sessionID, database.ErrNotFound)
		}
		return &domain.Session{SessionID: "s-1"}, nil
	}

	w := f.do(http.MethodGet, "/chat/sessions/s-1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	w = f.do(http.MethodGet, "/chat/sessions/missing", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestMessage(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.chatSvc.ask = func(sessionID, content string) (*chat.Reply, error) {
		if content != "what is the revenue?" {
			t.Errorf("content = %q", content)
		}
		return &chat.Reply{
			SessionID: sessionID,
			Content:   "Revenue was $12M.",
			Category:  query.CategoryStockAnalysis,
			Sources:   []string{"report.pdf"},
		}, nil
	}

	w := f.do(http.MethodPost, "/chat/sessions/s-1/messages",
		strings.NewReader(`{"content":"what is the revenue?"}`))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", w.Code, http.StatusOK, w.Body.String())
	}
	var reply chat.Reply
	if err := json.Unmarshal(w.Body.Bytes(), &reply); err != nil {
		t.Fatalf("response is not JSON: %v", err)
	}
	if reply.Content != "Revenue was $12M." || len(reply.Sources) != 1 {
		t.Errorf("reply = %+v", reply)
	}
}

func TestMessageRejectsMissingContent(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	w := f.do(http.MethodPost, "/chat/sessions/s-1/messages", strings.NewReader(`{}`))
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestMessageBlankContentIsBadRequest(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.chatSvc.ask = func(string, string) (*chat.Reply, error) {
		return nil, chat.ErrEmptyMessage
	}

	// Whitespace passes binding but the service rejects it.
	w := f.do(http.MethodPost, "/chat/sessions/s-1/messages", strings.NewReader(`{"content":"   "}`))
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestLinkTask(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.chatSvc.linkTask = func(sessionID, taskID string) (*domain.Session, error) {
		return &domain.Session{
			SessionID:        sessionID,
			CrawlTasks:       []string{taskID},
			ProcessingStatus: domain.ProcessingStatusProcessing,
		}, nil
	}

	w := f.do(http.MethodPost, "/chat/sessions/s-1/link-task",
		strings.NewReader(`{"task_id":"t-1"}`))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	var session domain.Session
	if err := json.Unmarshal(w.Body.Bytes(), &session); err != nil {
		t.Fatalf("response is not JSON: %v", err)
	}
	if session.ProcessingStatus != domain.ProcessingStatusProcessing {
		t.Errorf("processing status = %q", session.ProcessingStatus)
	}

	w = f.do(http.MethodPost, "/chat/sessions/s-1/link-task", strings.NewReader(`{}`))
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestUpload(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.chatSvc.upload = func(sessionID, filename string, data []byte) (*pipeline.UploadResult, error) {
		if filename != "report.pdf" || string(data) != "%PDF-1.4 fake" {
			t.Errorf("upload = %q (%d bytes)", filename, len(data))
		}
		return &pipeline.UploadResult{
			Record: &domain.ProcessedDocument{DocID: "d-1", Status: domain.ProcessedStatusProcessed},
			Key:    "uploads/s-1/d-1/report.pdf",
		}, nil
	}

	w := f.doMultipart(t, "/chat/sessions/s-1/upload", "file", "report.pdf", []byte("%PDF-1.4 fake"))

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d: %s", w.Code, http.StatusCreated, w.Body.String())
	}
	var resp api.UploadResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("response is not JSON: %v", err)
	}
	if resp.DocID != "d-1" || resp.Filename != "report.pdf" || resp.Key == "" {
		t.Errorf("response = %+v", resp)
	}
}

func TestUploadRequiresFileField(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	w := f.doMultipart(t, "/chat/sessions/s-1/upload", "attachment", "report.pdf", []byte("data"))
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

// doMultipart posts one file under the given field name.
func (f *fixture) doMultipart(t *testing.T, path, field, filename string, data []byte) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(field, filename)
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	if _, err := part.Write(data); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	f.router.ServeHTTP(w, req)
	return w
}
