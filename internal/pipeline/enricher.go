// Package pipeline joins the acquisition and indexing halves of the
// system: crawled responses become stored, text-bearing documents, and
// stored documents become vectors in a session's collection.
package pipeline

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/HariharanV1992/CrawlChat-sub000/internal/domain"
	"github.com/HariharanV1992/CrawlChat-sub000/internal/extract"
	"github.com/HariharanV1992/CrawlChat-sub000/internal/logger"
	"github.com/HariharanV1992/CrawlChat-sub000/internal/objectstore"
	"github.com/HariharanV1992/CrawlChat-sub000/internal/proxy"
)

// DocumentWriter persists crawled document records.
type DocumentWriter interface {
	Upsert(ctx context.Context, doc *domain.CrawledDocument) error
}

// Enricher turns one fetched response into a stored crawl artifact: text
// extracted, bytes and sidecar written to the object store, record
// upserted. It is the crawler engine's Processor.
type Enricher struct {
	extractor *extract.Extractor
	store     *objectstore.Documents
	docs      DocumentWriter
	log       logger.Interface
}

// NewEnricher wires the enrichment path.
func NewEnricher(extractor *extract.Extractor, store *objectstore.Documents, docs DocumentWriter, log logger.Interface) (*Enricher, error) {
	switch {
	case extractor == nil:
		return nil, fmt.Errorf("extractor is required")
	case store == nil:
		return nil, fmt.Errorf("document store is required")
	case docs == nil:
		return nil, fmt.Errorf("document writer is required")
	}
	return &Enricher{extractor: extractor, store: store, docs: docs, log: log}, nil
}

// Process extracts, stores, and records one response. The raw bytes are
// kept even when extraction yields only a placeholder, so a later tier
// (or a reprocess) can try again. Doc IDs derive from the URL, so a
// re-crawl of the same page overwrites its artifact instead of
// duplicating it.
func (p *Enricher) Process(ctx context.Context, taskID, userID string, resp *proxy.Response) (*domain.CrawledDocument, error) {
	docID := domain.DocIDFromURL(resp.URL)
	filename := filenameFromURL(resp.URL)

	result, err := p.extractor.Extract(ctx, filename, resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to extract %s: %w", resp.URL, err)
	}

	fetchedAt := resp.FetchedAt
	if fetchedAt.IsZero() {
		fetchedAt = time.Now().UTC()
	}

	doc := &domain.CrawledDocument{
		DocID:       docID,
		TaskID:      taskID,
		UserID:      userID,
		URL:         resp.URL,
		Title:       result.Title,
		ContentType: result.ContentType,
		IsBinary:    result.IsBinary,
		ContentText: result.Text,
		StatusCode:  resp.StatusCode,
		FetchedAt:   fetchedAt,
		Domain:      hostOf(resp.URL),
		PageCount:   result.PageCount,
	}

	if _, err := p.store.StoreDocument(ctx, doc, resp.Body, firstHeaderValues(resp.Headers)); err != nil {
		return nil, fmt.Errorf("failed to store %s: %w", resp.URL, err)
	}
	if err := p.docs.Upsert(ctx, doc); err != nil {
		return nil, fmt.Errorf("failed to record document %s: %w", docID, err)
	}

	p.log.Debug("document enriched",
		"doc_id", docID,
		"task_id", taskID,
		"url", resp.URL,
		"content_type", string(doc.ContentType),
		"text_length", len(doc.ContentText))
	return doc, nil
}

// filenameFromURL derives the name extraction uses for type detection.
func filenameFromURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Path == "" || parsed.Path == "/" {
		return "index.html"
	}
	base := path.Base(parsed.Path)
	if base == "." || base == "/" || base == "" {
		return "index.html"
	}
	return objectstore.SanitizeComponent(base)
}

func firstHeaderValues(h http.Header) map[string]string {
	if len(h) == 0 {
		return nil
	}
	out := make(map[string]string, len(h))
	for key, values := range h {
		if len(values) > 0 {
			out[key] = values[0]
		}
	}
	return out
}

func hostOf(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(parsed.Host)
}
