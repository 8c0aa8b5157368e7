// Package chat orchestrates conversations over a session's documents:
// plan the query, retrieve passages, answer with the LLM, and persist
// the turn. It also owns attaching documents to sessions, both crawl
// tasks and direct uploads.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/HariharanV1992/CrawlChat-sub000/internal/answer"
	"github.com/HariharanV1992/CrawlChat-sub000/internal/domain"
	"github.com/HariharanV1992/CrawlChat-sub000/internal/llm"
	"github.com/HariharanV1992/CrawlChat-sub000/internal/logger"
	"github.com/HariharanV1992/CrawlChat-sub000/internal/pipeline"
	"github.com/HariharanV1992/CrawlChat-sub000/internal/query"
	"github.com/HariharanV1992/CrawlChat-sub000/internal/retrieval"
	"github.com/HariharanV1992/CrawlChat-sub000/internal/vector"
)

// Guidance replies cover the outcomes where nothing useful can be
// answered yet. They are appended to history like any assistant turn so
// the transcript matches what the user saw.
const (
	GuidanceStillIndexing = "Your documents are still processing embeddings. " +
		"Please wait 30-60 seconds and ask again."
	GuidanceNoRelevantContent = "I found no relevant content in your documents for that question. " +
		"Try rephrasing it, or attach a document that covers the topic."
)

// ErrEmptyMessage rejects blank chat turns before any planning work.
var ErrEmptyMessage = errors.New("message content is empty")

const (
	defaultUserID       = "default"
	defaultIndexTimeout = 10 * time.Minute
)

// SessionStore is the session persistence the service needs.
type SessionStore interface {
	Create(ctx context.Context, s *domain.Session) error
	GetByID(ctx context.Context, sessionID string) (*domain.Session, error)
	AppendMessages(ctx context.Context, sessionID string, msgs ...domain.Message) error
	LinkTask(ctx context.Context, sessionID, taskID string) error
	AddUpload(ctx context.Context, sessionID, docID string) error
	UpdateProcessingStatus(ctx context.Context, sessionID string, status domain.ProcessingStatus) error
	SetVectorStore(ctx context.Context, sessionID, vectorStoreID string, docDelta int) error
}

// TaskReader resolves crawl tasks being linked into a session.
type TaskReader interface {
	GetByID(ctx context.Context, taskID string) (*domain.CrawlTask, error)
}

// Planner turns raw user content into an executable query plan.
type Planner interface {
	Plan(ctx context.Context, session *domain.Session, content string, filenames []string) query.Plan
	RecordResponse(ctx context.Context, sessionID, queryText, response string)
}

// Retriever finds passages for a planned query.
type Retriever interface {
	Retrieve(ctx context.Context, session *domain.Session, searchQuery string, category query.Category) ([]vector.Passage, error)
}

// Answerer produces the assistant reply from query, passages and history.
type Answerer interface {
	Answer(ctx context.Context, in answer.Input) (answer.Result, error)
}

// Ingestor feeds documents into the session's vector store.
type Ingestor interface {
	IndexTask(ctx context.Context, session *domain.Session, taskID string) (pipeline.TaskIndexReport, error)
	IndexUpload(ctx context.Context, session *domain.Session, filename string, data []byte) (*pipeline.UploadResult, error)
}

// RecordLister exposes a session's processed-document records.
type RecordLister interface {
	List(ctx context.Context, sessionID string) ([]domain.ProcessedDocument, error)
}

// Service is the chat orchestrator.
type Service struct {
	sessions  SessionStore
	tasks     TaskReader
	planner   Planner
	retriever Retriever
	answerer  Answerer
	ingest    Ingestor
	records   RecordLister
	log       logger.Interface

	indexTimeout time.Duration

	// locks serializes turn appends per session so concurrent asks
	// cannot interleave user/assistant pairs.
	locks keyedLocks
	bg    sync.WaitGroup
}

// Deps carries the service's collaborators.
type Deps struct {
	Sessions  SessionStore
	Tasks     TaskReader
	Planner   Planner
	Retriever Retriever
	Answerer  Answerer
	Ingest    Ingestor
	Records   RecordLister
	Log       logger.Interface

	// IndexTimeout bounds background task indexing. Zero means the
	// default of ten minutes.
	IndexTimeout time.Duration
}

// NewService wires the chat orchestrator.
func NewService(deps Deps) (*Service, error) {
	switch {
	case deps.Sessions == nil:
		return nil, errors.New("chat: session store is required")
	case deps.Tasks == nil:
		return nil, errors.New("chat: task reader is required")
	case deps.Planner == nil:
		return nil, errors.New("chat: planner is required")
	case deps.Retriever == nil:
		return nil, errors.New("chat: retriever is required")
	case deps.Answerer == nil:
		return nil, errors.New("chat: answerer is required")
	case deps.Ingest == nil:
		return nil, errors.New("chat: ingestor is required")
	case deps.Records == nil:
		return nil, errors.New("chat: record lister is required")
	case deps.Log == nil:
		return nil, errors.New("chat: logger is required")
	}
	timeout := deps.IndexTimeout
	if timeout <= 0 {
		timeout = defaultIndexTimeout
	}
	return &Service{
		sessions:     deps.Sessions,
		tasks:        deps.Tasks,
		planner:      deps.Planner,
		retriever:    deps.Retriever,
		answerer:     deps.Answerer,
		ingest:       deps.Ingest,
		records:      deps.Records,
		log:          deps.Log,
		indexTimeout: timeout,
	}, nil
}

// NewSession creates an empty session for a user.
func (s *Service) NewSession(ctx context.Context, userID string) (*domain.Session, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		userID = defaultUserID
	}
	now := time.Now().UTC()
	session := &domain.Session{
		SessionID:        uuid.NewString(),
		UserID:           userID,
		CreatedAt:        now,
		UpdatedAt:        now,
		ProcessingStatus: domain.ProcessingStatusIdle,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, err
	}
	s.log.Info("session created", "session_id", session.SessionID, "user_id", userID)
	return session, nil
}

// Get returns one session with its full history.
func (s *Service) Get(ctx context.Context, sessionID string) (*domain.Session, error) {
	return s.sessions.GetByID(ctx, sessionID)
}

// Reply is the outcome of one chat turn.
type Reply struct {
	SessionID string         `json:"session_id"`
	Content   string         `json:"content"`
	Category  query.Category `json:"category"`
	Sources   []string       `json:"sources,omitempty"`
	Shortcut  bool           `json:"shortcut,omitempty"`
	Usage     llm.Usage      `json:"usage"`
}

// Ask runs one conversational turn: plan, retrieve, answer, persist.
// Retrieval dead ends come back as guidance replies, and an LLM failure
// comes back as the canned apology without touching history so a retry
// sees the conversation as it was.
func (s *Service) Ask(ctx context.Context, sessionID, content string) (*Reply, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyMessage
	}

	unlock := s.locks.lock(sessionID)
	defer unlock()

	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	plan := s.planner.Plan(ctx, session, content, s.sessionFilenames(ctx, session))

	if plan.ShortcutAnswer != "" {
		if err := s.appendTurn(ctx, sessionID, content, plan.ShortcutAnswer); err != nil {
			return nil, err
		}
		s.log.Info("answered from numeric context",
			"session_id", sessionID,
			"category", string(plan.Category))
		return &Reply{
			SessionID: sessionID,
			Content:   plan.ShortcutAnswer,
			Category:  plan.Category,
			Shortcut:  true,
		}, nil
	}

	passages, err := s.retriever.Retrieve(ctx, session, plan.SearchQuery, plan.Category)
	if err != nil {
		guidance := guidanceFor(err)
		if guidance == "" {
			return nil, fmt.Errorf("failed to retrieve passages: %w", err)
		}
		if err := s.appendTurn(ctx, sessionID, content, guidance); err != nil {
			return nil, err
		}
		return &Reply{SessionID: sessionID, Content: guidance, Category: plan.Category}, nil
	}

	result, err := s.answerer.Answer(ctx, answer.Input{
		Query:        plan.Query,
		SystemPrompt: plan.SystemPrompt,
		Passages:     passages,
		History:      session.Messages,
	})
	if err != nil {
		s.log.Error("chat turn failed", "session_id", sessionID, "error", err)
		return &Reply{SessionID: sessionID, Content: result.Content, Category: plan.Category}, nil
	}

	s.planner.RecordResponse(ctx, sessionID, plan.Query, result.Content)
	if err := s.appendTurn(ctx, sessionID, content, result.Content); err != nil {
		return nil, err
	}

	return &Reply{
		SessionID: sessionID,
		Content:   result.Content,
		Category:  plan.Category,
		Sources:   sourceNames(passages),
		Usage:     result.Usage,
	}, nil
}

// LinkTask attaches a crawl task's documents to the session and indexes
// them in the background. The session reads processing until the run
// finishes; it ends in error only when every document failed.
func (s *Service) LinkTask(ctx context.Context, sessionID, taskID string) (*domain.Session, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}

	if err := s.sessions.LinkTask(ctx, sessionID, task.TaskID); err != nil {
		return nil, err
	}
	if err := s.sessions.UpdateProcessingStatus(ctx, sessionID, domain.ProcessingStatusProcessing); err != nil {
		return nil, err
	}

	s.bg.Add(1)
	go s.indexTask(session, task.TaskID)

	session.CrawlTasks = append(session.CrawlTasks, task.TaskID)
	session.ProcessingStatus = domain.ProcessingStatusProcessing
	return session, nil
}

func (s *Service) indexTask(session *domain.Session, taskID string) {
	defer s.bg.Done()
	ctx, cancel := context.WithTimeout(context.Background(), s.indexTimeout)
	defer cancel()

	report, err := s.ingest.IndexTask(ctx, session, taskID)

	status := domain.ProcessingStatusCompleted
	switch {
	case err != nil:
		s.log.Error("failed to index task documents",
			"session_id", session.SessionID,
			"task_id", taskID,
			"error", err)
		status = domain.ProcessingStatusError
	case report.AllFailed():
		s.log.Error("every task document failed to index",
			"session_id", session.SessionID,
			"task_id", taskID,
			"failed", report.Failed)
		status = domain.ProcessingStatusError
	default:
		// Failures write no index record, so only the rest count
		// toward the session's document total.
		if written := report.Total - report.Failed; written > 0 {
			collection := vector.CollectionForSession(session.SessionID)
			if err := s.sessions.SetVectorStore(ctx, session.SessionID, collection, written); err != nil {
				s.log.Warn("failed to update session vector store",
					"session_id", session.SessionID,
					"error", err)
			}
		}
		s.log.Info("task documents indexed",
			"session_id", session.SessionID,
			"task_id", taskID,
			"indexed", report.Indexed,
			"duplicates", report.Duplicates,
			"empty", report.Empty,
			"failed", report.Failed)
	}

	if err := s.sessions.UpdateProcessingStatus(ctx, session.SessionID, status); err != nil {
		s.log.Warn("failed to update session processing status",
			"session_id", session.SessionID,
			"error", err)
	}
}

// Upload stores a user-provided file, indexes it into the session, and
// warns in the transcript when extraction produced only a placeholder.
func (s *Service) Upload(ctx context.Context, sessionID, filename string, data []byte) (*pipeline.UploadResult, error) {
	filename = strings.TrimSpace(filename)
	if filename == "" {
		return nil, errors.New("upload filename is empty")
	}
	if len(data) == 0 {
		return nil, errors.New("upload is empty")
	}

	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	res, err := s.ingest.IndexUpload(ctx, session, filename, data)
	if err != nil {
		return nil, err
	}

	if err := s.sessions.AddUpload(ctx, sessionID, res.Record.DocID); err != nil {
		return nil, err
	}
	collection := vector.CollectionForSession(sessionID)
	if err := s.sessions.SetVectorStore(ctx, sessionID, collection, 1); err != nil {
		s.log.Warn("failed to update session vector store", "session_id", sessionID, "error", err)
	}
	// A background task-indexing run owns the status while it is
	// processing; leave it alone in that case.
	if session.ProcessingStatus != domain.ProcessingStatusProcessing {
		if err := s.sessions.UpdateProcessingStatus(ctx, sessionID, domain.ProcessingStatusCompleted); err != nil {
			s.log.Warn("failed to update session processing status", "session_id", sessionID, "error", err)
		}
	}

	if res.Placeholder {
		notice := fmt.Sprintf("The document %q could not be extracted. Please try a standard text-based PDF or document.", filename)
		if err := s.sessions.AppendMessages(ctx, sessionID, domain.Message{
			Role:      domain.RoleSystem,
			Content:   notice,
			Timestamp: time.Now().UTC(),
		}); err != nil {
			s.log.Warn("failed to append extraction notice", "session_id", sessionID, "error", err)
		}
	}

	return res, nil
}

// Wait blocks until background indexing has drained. Shutdown calls it
// after the HTTP server stops accepting work.
func (s *Service) Wait() { s.bg.Wait() }

func (s *Service) appendTurn(ctx context.Context, sessionID, userContent, assistantContent string) error {
	now := time.Now().UTC()
	return s.sessions.AppendMessages(ctx, sessionID,
		domain.Message{Role: domain.RoleUser, Content: userContent, Timestamp: now},
		domain.Message{Role: domain.RoleAssistant, Content: assistantContent, Timestamp: now},
	)
}

// sessionFilenames feeds the planner's rewrite. Missing names only cost
// rewrite quality, so listing failures degrade to none.
func (s *Service) sessionFilenames(ctx context.Context, session *domain.Session) []string {
	if session.DocumentCount == 0 && len(session.CrawlTasks) == 0 && len(session.UploadedDocuments) == 0 {
		return nil
	}
	records, err := s.records.List(ctx, session.SessionID)
	if err != nil {
		s.log.Warn("failed to list session documents", "session_id", session.SessionID, "error", err)
		return nil
	}
	seen := make(map[string]struct{}, len(records))
	names := make([]string, 0, len(records))
	for _, rec := range records {
		if rec.Filename == "" {
			continue
		}
		if _, ok := seen[rec.Filename]; ok {
			continue
		}
		seen[rec.Filename] = struct{}{}
		names = append(names, rec.Filename)
	}
	return names
}

func guidanceFor(err error) string {
	switch {
	case errors.Is(err, retrieval.ErrStillIndexing):
		return GuidanceStillIndexing
	case errors.Is(err, retrieval.ErrNoRelevantContent):
		return GuidanceNoRelevantContent
	default:
		return ""
	}
}

func sourceNames(passages []vector.Passage) []string {
	if len(passages) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(passages))
	names := make([]string, 0, len(passages))
	for _, p := range passages {
		name := p.Filename
		if name == "" {
			name = p.FileID
		}
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	return names
}

// keyedLocks hands out one mutex per key. Entries live for the process;
// sessions are few enough that reaping is not worth the bookkeeping.
type keyedLocks struct {
	m sync.Map
}

func (k *keyedLocks) lock(key string) func() {
	v, _ := k.m.LoadOrStore(key, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}
