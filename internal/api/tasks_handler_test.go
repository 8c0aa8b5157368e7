package api_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/HariharanV1992/CrawlChat-sub000/internal/api"
	"github.com/HariharanV1992/CrawlChat-sub000/internal/database"
	"github.com/HariharanV1992/CrawlChat-sub000/internal/domain"
	"github.com/HariharanV1992/CrawlChat-sub000/internal/tasks"
)

func TestCreateTask(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.taskSvc.create = func(req tasks.CreateRequest) (*domain.CrawlTask, error) {
		if req.URL != "https://example.com/docs" || req.MaxDocuments != 5 {
			t.Errorf("unexpected request: %+v", req)
		}
		return &domain.CrawlTask{TaskID: "t-1", Status: domain.TaskStatusCreated}, nil
	}

	w := f.do(http.MethodPost, "/crawl/tasks",
		strings.NewReader(`{"url":"https://example.com/docs","max_documents":5}`))

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d: %s", w.Code, http.StatusCreated, w.Body.String())
	}
	var resp api.TaskStatusResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("response is not JSON: %v", err)
	}
	if resp.TaskID != "t-1" || resp.Status != domain.TaskStatusCreated {
		t.Errorf("response = %+v", resp)
	}
}

func TestCreateTaskRejectsBadInput(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	tests := []struct {
		name string
		body string
	}{
		{"missing url", `{}`},
		{"not json", `{{{`},
		{"relative url", `{"url":"/docs"}`},
		{"unsupported scheme", `{"url":"ftp://example.com"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.do(http.MethodPost, "/crawl/tasks", strings.NewReader(tt.body))
			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
			}
		})
	}
}

func TestStartTask(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.taskSvc.start = func(taskID string) (*domain.CrawlTask, error) {
		return &domain.CrawlTask{TaskID: taskID, Status: domain.TaskStatusRunning}, nil
	}

	w := f.do(http.MethodPost, "/crawl/tasks/t-1/start", nil)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	var resp api.TaskStatusResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("response is not JSON: %v", err)
	}
	if resp.Status != domain.TaskStatusRunning {
		t.Errorf("status = %s, want running", resp.Status)
	}
}

func TestStartTerminalTaskConflicts(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.taskSvc.start = func(taskID string) (*domain.CrawlTask, error) {
		return &domain.CrawlTask{TaskID: taskID, Status: domain.TaskStatusCompleted}, tasks.ErrTaskTerminal
	}

	w := f.do(http.MethodPost, "/crawl/tasks/t-1/start", nil)

	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusConflict)
	}
	// The conflict body carries the unchanged record.
	if !strings.Contains(w.Body.String(), `"completed"`) {
		t.Errorf("conflict body missing record: %s", w.Body.String())
	}
}

func TestGetTask(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.taskSvc.get = func(taskID string) (*domain.CrawlTask, error) {
		if taskID != "t-1" {
			return nil, fmt.Errorf("task %s: %w", taskID, database.ErrNotFound)
		}
		return &domain.CrawlTask{TaskID: "t-1", SeedURL: "https://example.com", Status: domain.TaskStatusRunning}, nil
	}

	w := f.do(http.MethodGet, "/crawl/tasks/t-1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	w = f.do(http.MethodGet, "/crawl/tasks/missing", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestListTasks(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.taskSvc.list = func(userID string, status domain.TaskStatus, limit, offset int) ([]domain.CrawlTask, error) {
		if userID != "u-1" || status != domain.TaskStatusCompleted {
			t.Errorf("filter = %q/%q", userID, status)
		}
		if limit != 10 || offset != 5 {
			t.Errorf("paging = %d/%d", limit, offset)
		}
		return []domain.CrawlTask{
			{TaskID: "t-1", Status: domain.TaskStatusCompleted, CreatedAt: time.Now()},
			{TaskID: "t-2", Status: domain.TaskStatusCompleted, CreatedAt: time.Now()},
		}, nil
	}

	w := f.do(http.MethodGet, "/crawl/tasks?user_id=u-1&status=completed&limit=10&offset=5", nil)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	var resp api.TaskListResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("response is not JSON: %v", err)
	}
	if resp.Total != 2 || len(resp.Tasks) != 2 {
		t.Errorf("total = %d, tasks = %d", resp.Total, len(resp.Tasks))
	}
}

func TestListTasksDefaultsPaging(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.taskSvc.list = func(_ string, _ domain.TaskStatus, limit, offset int) ([]domain.CrawlTask, error) {
		if limit != 50 || offset != 0 {
			t.Errorf("paging = %d/%d, want 50/0", limit, offset)
		}
		return nil, nil
	}

	w := f.do(http.MethodGet, "/crawl/tasks?limit=-3&offset=-1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestDeleteTask(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.taskSvc.remove = func(taskID string) error {
		if taskID == "t-1" {
			return nil
		}
		return fmt.Errorf("task %s: %w", taskID, database.ErrNotFound)
	}

	w := f.do(http.MethodDelete, "/crawl/tasks/t-1", nil)
	if w.Code != http.StatusNoContent {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNoContent)
	}

	w = f.do(http.MethodDelete, "/crawl/tasks/missing", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestListDocuments(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.taskSvc.documents = func(taskID string) ([]domain.DocumentSummary, error) {
		return []domain.DocumentSummary{
			{DocID: "d-1", URL: "https://example.com/a.pdf", ContentType: domain.ContentTypePDF},
		}, nil
	}

	w := f.do(http.MethodGet, "/crawl/tasks/t-1/documents", nil)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	var resp api.DocumentListResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("response is not JSON: %v", err)
	}
	if resp.TaskID != "t-1" || resp.Total != 1 {
		t.Errorf("response = %+v", resp)
	}
}

func TestGetDocument(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.taskSvc.document = func(taskID, docID string) (*tasks.DocumentContent, error) {
		if docID != "d-1" {
			return nil, fmt.Errorf("document %s: %w", docID, database.ErrNotFound)
		}
		return &tasks.DocumentContent{
			Document: &domain.CrawledDocument{DocID: "d-1"},
			Content:  "extracted text",
			Encoding: "text",
		}, nil
	}

	w := f.do(http.MethodGet, "/crawl/tasks/t-1/documents/d-1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if !strings.Contains(w.Body.String(), "extracted text") {
		t.Errorf("body missing content: %s", w.Body.String())
	}

	w = f.do(http.MethodGet, "/crawl/tasks/t-1/documents/missing", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestServiceFailuresAreOpaque(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.taskSvc.get = func(string) (*domain.CrawlTask, error) {
		return nil, errors.New("mongo: connection reset by peer")
	}

	w := f.do(http.MethodGet, "/crawl/tasks/t-1", nil)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
	if strings.Contains(w.Body.String(), "mongo") {
		t.Errorf("internal detail leaked: %s", w.Body.String())
	}
}
