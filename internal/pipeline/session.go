package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/HariharanV1992/CrawlChat-sub000/internal/domain"
	"github.com/HariharanV1992/CrawlChat-sub000/internal/extract"
	"github.com/HariharanV1992/CrawlChat-sub000/internal/logger"
	"github.com/HariharanV1992/CrawlChat-sub000/internal/objectstore"
	"github.com/HariharanV1992/CrawlChat-sub000/internal/vector"
)

// defaultIndexWorkers bounds the indexing fan-out when no limit is set.
const defaultIndexWorkers = 3

// Source labels on processed documents.
const (
	SourceCrawl  = "crawl"
	SourceUpload = "upload"
)

// DocumentReader lists a task's crawled documents.
type DocumentReader interface {
	ListByTask(ctx context.Context, taskID string) ([]domain.CrawledDocument, error)
}

// DocumentIndexer is the vector indexing surface the pipeline drives.
type DocumentIndexer interface {
	Process(ctx context.Context, doc vector.Document) (*domain.ProcessedDocument, error)
}

// TaskIndexReport tallies one task's indexing run into a session.
type TaskIndexReport struct {
	Total      int `json:"total"`
	Indexed    int `json:"indexed"`
	Duplicates int `json:"duplicates"`
	Empty      int `json:"empty"`
	Failed     int `json:"failed"`
}

// AllFailed reports whether nothing at all was recorded.
func (r TaskIndexReport) AllFailed() bool {
	return r.Total > 0 && r.Failed == r.Total
}

// SessionIndexer feeds stored documents into a session's vector
// collection with a bounded fan-out.
type SessionIndexer struct {
	indexer   DocumentIndexer
	docs      DocumentReader
	store     *objectstore.Documents
	extractor *extract.Extractor
	workers   int
	log       logger.Interface
}

// NewSessionIndexer wires the session indexing path. workers <= 0 uses
// the default bound.
func NewSessionIndexer(indexer DocumentIndexer, docs DocumentReader, store *objectstore.Documents, extractor *extract.Extractor, workers int, log logger.Interface) (*SessionIndexer, error) {
	switch {
	case indexer == nil:
		return nil, fmt.Errorf("document indexer is required")
	case docs == nil:
		return nil, fmt.Errorf("document reader is required")
	case store == nil:
		return nil, fmt.Errorf("document store is required")
	case extractor == nil:
		return nil, fmt.Errorf("extractor is required")
	}
	if workers <= 0 {
		workers = defaultIndexWorkers
	}
	return &SessionIndexer{
		indexer:   indexer,
		docs:      docs,
		store:     store,
		extractor: extractor,
		workers:   workers,
		log:       log,
	}, nil
}

// IndexTask indexes every stored document of a task into the session's
// collection. Per-document failures are tallied, never fatal: one bad
// artifact must not strand the rest of a crawl. The returned error is
// non-nil only when the document listing fails or ctx is cancelled.
func (s *SessionIndexer) IndexTask(ctx context.Context, session *domain.Session, taskID string) (TaskIndexReport, error) {
	docs, err := s.docs.ListByTask(ctx, taskID)
	if err != nil {
		return TaskIndexReport{}, fmt.Errorf("failed to list task documents: %w", err)
	}

	report := TaskIndexReport{Total: len(docs)}
	if len(docs) == 0 {
		return report, nil
	}

	var (
		g, gctx = errgroup.WithContext(ctx)
		results = make([]indexOutcome, len(docs))
	)
	g.SetLimit(s.workers)
	for i := range docs {
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			results[i] = s.indexOne(gctx, session, &docs[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return report, err
	}

	for _, out := range results {
		switch {
		case out.err != nil:
			report.Failed++
		case out.status == domain.ProcessedStatusDuplicateSkipped:
			report.Duplicates++
		case out.status == domain.ProcessedStatusError:
			report.Empty++
		default:
			report.Indexed++
		}
	}

	s.log.Info("task indexed into session",
		"task_id", taskID,
		"session_id", session.SessionID,
		"total", report.Total,
		"indexed", report.Indexed,
		"duplicates", report.Duplicates,
		"empty", report.Empty,
		"failed", report.Failed)
	return report, nil
}

type indexOutcome struct {
	status domain.ProcessedStatus
	err    error
}

func (s *SessionIndexer) indexOne(ctx context.Context, session *domain.Session, doc *domain.CrawledDocument) indexOutcome {
	text := doc.ContentText
	if strings.TrimSpace(text) == "" {
		reextracted, err := s.reextract(ctx, doc)
		if err != nil {
			s.log.Warn("re-extraction failed",
				"doc_id", doc.DocID,
				"task_id", doc.TaskID,
				"error", err)
			return indexOutcome{err: err}
		}
		text = reextracted
	}

	record, err := s.indexer.Process(ctx, vector.Document{
		DocID:       doc.DocID,
		SessionID:   session.SessionID,
		UserID:      session.UserID,
		Filename:    displayName(doc),
		Source:      SourceCrawl,
		ContentType: doc.ContentType,
		Text:        text,
	})
	if err != nil {
		s.log.Warn("indexing failed",
			"doc_id", doc.DocID,
			"session_id", session.SessionID,
			"error", err)
		return indexOutcome{err: err}
	}
	return indexOutcome{status: record.Status}
}

// reextract pulls the raw bytes back out of the object store and runs
// extraction again. Records written before extraction succeeded, or by
// older writers, have no content text.
func (s *SessionIndexer) reextract(ctx context.Context, doc *domain.CrawledDocument) (string, error) {
	body, sc, err := s.store.FetchDocument(ctx, doc.UserID, doc.TaskID, doc.DocID)
	if err != nil {
		return "", fmt.Errorf("failed to fetch document body: %w", err)
	}
	name := sc.Filename
	if name == "" {
		name = displayName(doc)
	}
	result, err := s.extractor.Extract(ctx, name, body)
	if err != nil {
		return "", err
	}
	return result.Text, nil
}

// UploadResult describes one ingested upload. Placeholder is set when
// extraction produced only a descriptive stand-in for the bytes, which
// callers surface to the user as an extraction warning.
type UploadResult struct {
	Record      *domain.ProcessedDocument `json:"record"`
	Key         string                    `json:"key"`
	Placeholder bool                      `json:"placeholder"`
}

// IndexUpload stores a user-uploaded file and indexes it into the
// session. The upload is preserved in the object store even when its
// text defeats extraction.
func (s *SessionIndexer) IndexUpload(ctx context.Context, session *domain.Session, filename string, data []byte) (*UploadResult, error) {
	fileID := uuid.NewString()
	ct := extract.DetectContentType(filename, data)

	key, err := s.store.StoreUpload(ctx, session.UserID, fileID, filename, data, ct.MIME())
	if err != nil {
		return nil, fmt.Errorf("failed to store upload: %w", err)
	}

	result, err := s.extractor.Extract(ctx, filename, data)
	if err != nil {
		return nil, fmt.Errorf("failed to extract upload: %w", err)
	}

	record, err := s.indexer.Process(ctx, vector.Document{
		DocID:       fileID,
		SessionID:   session.SessionID,
		UserID:      session.UserID,
		Filename:    filename,
		Source:      SourceUpload,
		ContentType: result.ContentType,
		Text:        result.Text,
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("upload indexed",
		"session_id", session.SessionID,
		"file_id", fileID,
		"filename", filename,
		"key", key,
		"status", string(record.Status))
	return &UploadResult{Record: record, Key: key, Placeholder: result.IsBinary}, nil
}

// displayName picks what retrieval shows as the passage source.
func displayName(doc *domain.CrawledDocument) string {
	if name := filenameFromURL(doc.URL); name != "index.html" {
		return name
	}
	if doc.Title != "" {
		return doc.Title
	}
	if doc.Domain != "" {
		return doc.Domain
	}
	return doc.DocID
}
