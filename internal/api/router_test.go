package api_test

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/HariharanV1992/CrawlChat-sub000/internal/api"
	"github.com/HariharanV1992/CrawlChat-sub000/internal/chat"
	"github.com/HariharanV1992/CrawlChat-sub000/internal/domain"
	"github.com/HariharanV1992/CrawlChat-sub000/internal/logger"
	"github.com/HariharanV1992/CrawlChat-sub000/internal/pipeline"
	"github.com/HariharanV1992/CrawlChat-sub000/internal/tasks"
)

var errUnexpectedCall = errors.New("unexpected service call")

// fakeTaskService delegates to per-test funcs; unset methods fail loudly.
type fakeTaskService struct {
	create    func(req tasks.CreateRequest) (*domain.CrawlTask, error)
	start     func(taskID string) (*domain.CrawlTask, error)
	get       func(taskID string) (*domain.CrawlTask, error)
	list      func(userID string, status domain.TaskStatus, limit, offset int) ([]domain.CrawlTask, error)
	remove    func(taskID string) error
	documents func(taskID string) ([]domain.DocumentSummary, error)
	document  func(taskID, docID string) (*tasks.DocumentContent, error)
}

func (f *fakeTaskService) Create(_ context.Context, req tasks.CreateRequest) (*domain.CrawlTask, error) {
	if f.create == nil {
		return nil, errUnexpectedCall
	}
	return f.create(req)
}

func (f *fakeTaskService) Start(_ context.Context, taskID string) (*domain.CrawlTask, error) {
	if f.start == nil {
		return nil, errUnexpectedCall
	}
	return f.start(taskID)
}

func (f *fakeTaskService) Get(_ context.Context, taskID string) (*domain.CrawlTask, error) {
	if f.get == nil {
		return nil, errUnexpectedCall
	}
	return f.get(taskID)
}

func (f *fakeTaskService) List(_ context.Context, userID string, status domain.TaskStatus, limit, offset int) ([]domain.CrawlTask, error) {
	if f.list == nil {
		return nil, errUnexpectedCall
	}
	return f.list(userID, status, limit, offset)
}

func (f *fakeTaskService) Delete(_ context.Context, taskID string) error {
	if f.remove == nil {
		return errUnexpectedCall
	}
	return f.remove(taskID)
}

func (f *fakeTaskService) Documents(_ context.Context, taskID string) ([]domain.DocumentSummary, error) {
	if f.documents == nil {
		return nil, errUnexpectedCall
	}
	return f.documents(taskID)
}

func (f *fakeTaskService) Document(_ context.Context, taskID, docID string) (*tasks.DocumentContent, error) {
	if f.document == nil {
		return nil, errUnexpectedCall
	}
	return f.document(taskID, docID)
}

// fakeChatService mirrors fakeTaskService for the chat routes.
type fakeChatService struct {
	newSession func(userID string) (*domain.Session, error)
	get        func(sessionID string) (*domain.Session, error)
	ask        func(sessionID, content string) (*chat.Reply, error)
	linkTask   func(sessionID, taskID string) (*domain.Session, error)
	upload     func(sessionID, filename string, data []byte) (*pipeline.UploadResult, error)
}

func (f *fakeChatService) NewSession(_ context.Context, userID string) (*domain.Session, error) {
	if f.newSession == nil {
		return nil, errUnexpectedCall
	}
	return f.newSession(userID)
}

func (f *fakeChatService) Get(_ context.Context, sessionID string) (*domain.Session, error) {
	if f.get == nil {
		return nil, errUnexpectedCall
	}
	return f.get(sessionID)
}

func (f *fakeChatService) Ask(_ context.Context, sessionID, content string) (*chat.Reply, error) {
	if f.ask == nil {
		return nil, errUnexpectedCall
	}
	return f.ask(sessionID, content)
}

func (f *fakeChatService) LinkTask(_ context.Context, sessionID, taskID string) (*domain.Session, error) {
	if f.linkTask == nil {
		return nil, errUnexpectedCall
	}
	return f.linkTask(sessionID, taskID)
}

func (f *fakeChatService) Upload(_ context.Context, sessionID, filename string, data []byte) (*pipeline.UploadResult, error) {
	if f.upload == nil {
		return nil, errUnexpectedCall
	}
	return f.upload(sessionID, filename, data)
}

// fixture mounts the full route table over the fakes, so every test also
// exercises the registered paths.
type fixture struct {
	taskSvc *fakeTaskService
	chatSvc *fakeChatService
	router  *gin.Engine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	f := &fixture{
		taskSvc: &fakeTaskService{},
		chatSvc: &fakeChatService{},
	}
	handlers := api.Handlers{
		Tasks: api.NewTasksHandler(f.taskSvc, logger.NewNoop()),
		Chat:  api.NewChatHandler(f.chatSvc, logger.NewNoop()),
	}
	f.router = gin.New()
	handlers.Register(f.router)
	return f
}

func (f *fixture) do(method, path string, body io.Reader) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	f.router.ServeHTTP(w, req)
	return w
}
