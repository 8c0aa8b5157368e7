package objectstore

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/HariharanV1992/CrawlChat-sub000/internal/domain"
	"github.com/HariharanV1992/CrawlChat-sub000/internal/logger"
)

// Blobs is the blob-level contract the document layer builds on. *Store
// satisfies it; tests substitute a memory-backed fake.
type Blobs interface {
	Put(ctx context.Context, key string, body []byte, contentType string, userMeta map[string]string) error
	Get(ctx context.Context, key string) ([]byte, error)
	Exists(ctx context.Context, key string) (bool, error)
	List(ctx context.Context, prefix string) ([]string, error)
	Delete(ctx context.Context, keys ...string) error
}

// Documents applies the crawl artifact layout on top of raw blob storage:
// one body plus one sidecar per doc_id.
type Documents struct {
	blobs Blobs
	log   logger.Interface
}

func NewDocuments(blobs Blobs, log logger.Interface) *Documents {
	return &Documents{blobs: blobs, log: log}
}

// StoreDocument writes the body and sidecar for a crawled document and fills
// in its storage keys. The body is stored byte-faithfully even when text
// extraction later fails.
func (d *Documents) StoreDocument(ctx context.Context, doc *domain.CrawledDocument, body []byte, headers map[string]string) (*Sidecar, error) {
	bodyKey := DocumentKey(doc.UserID, doc.TaskID, doc.DocID, doc.ContentType.Ext())
	metaKey := MetadataKey(doc.UserID, doc.TaskID, doc.DocID)

	sc := &Sidecar{
		DocID:            doc.DocID,
		URL:              doc.URL,
		Title:            doc.Title,
		ContentType:      string(doc.ContentType),
		ContentLength:    len(doc.ContentText),
		RawContentLength: len(body),
		FetchedAt:        doc.FetchedAt,
		StatusCode:       doc.StatusCode,
		Headers:          headers,
		Domain:           doc.Domain,
		Filename:         filenameFromURL(doc.URL, doc.ContentType),
		StoredAt:         time.Now().UTC(),
		BodyKey:          bodyKey,
		MetadataKey:      metaKey,
		UserID:           doc.UserID,
		TaskID:           doc.TaskID,
	}

	if err := d.blobs.Put(ctx, bodyKey, body, doc.ContentType.MIME(), map[string]string{
		"url":         doc.URL,
		"doc-id":      doc.DocID,
		"fetched-at":  doc.FetchedAt.Format(time.RFC3339),
		"status-code": fmt.Sprintf("%d", doc.StatusCode),
	}); err != nil {
		return nil, err
	}

	sidecarJSON, err := EncodeSidecar(sc)
	if err != nil {
		return nil, err
	}
	if err := d.blobs.Put(ctx, metaKey, sidecarJSON, "application/json", nil); err != nil {
		return nil, err
	}

	doc.ContentBytesKey = bodyKey
	doc.MetadataKey = metaKey
	doc.SizeBytes = int64(len(body))

	d.log.Debug("stored document",
		"doc_id", doc.DocID,
		"body_key", bodyKey,
		"size", len(body),
	)
	return sc, nil
}

// FetchDocument retrieves a document body. It reads the sidecar first; when
// the sidecar is missing it probes candidate extensions in priority order.
func (d *Documents) FetchDocument(ctx context.Context, userID, taskID, docID string) ([]byte, *Sidecar, error) {
	metaKey := MetadataKey(userID, taskID, docID)
	metaBlob, err := d.blobs.Get(ctx, metaKey)
	if err == nil {
		sc, decodeErr := DecodeSidecar(metaBlob)
		if decodeErr != nil {
			return nil, nil, decodeErr
		}
		body, getErr := d.blobs.Get(ctx, sc.BodyKey)
		if getErr != nil {
			return nil, nil, getErr
		}
		return body, sc, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, nil, err
	}

	for _, ext := range ExtensionProbeOrder {
		bodyKey := DocumentKey(userID, taskID, docID, ext)
		body, getErr := d.blobs.Get(ctx, bodyKey)
		if errors.Is(getErr, ErrNotFound) {
			continue
		}
		if getErr != nil {
			return nil, nil, getErr
		}
		sc := &Sidecar{
			DocID:       docID,
			ContentType: string(domain.ContentTypeFromExt(ext)),
			BodyKey:     bodyKey,
			UserID:      userID,
			TaskID:      taskID,
		}
		return body, sc, nil
	}

	return nil, nil, fmt.Errorf("document %s: %w", docID, ErrNotFound)
}

// DeleteTask removes every artifact stored for a task.
func (d *Documents) DeleteTask(ctx context.Context, userID, taskID string) (int, error) {
	keys, err := d.blobs.List(ctx, TaskPrefix(userID, taskID))
	if err != nil {
		return 0, err
	}
	if len(keys) == 0 {
		return 0, nil
	}
	if err := d.blobs.Delete(ctx, keys...); err != nil {
		return 0, err
	}
	return len(keys), nil
}

// StoreUpload writes a user-uploaded file.
func (d *Documents) StoreUpload(ctx context.Context, userID, fileID, filename string, body []byte, contentType string) (string, error) {
	key := UploadKey(userID, fileID, filename)
	if err := d.blobs.Put(ctx, key, body, contentType, map[string]string{
		"file-id":  fileID,
		"filename": filename,
	}); err != nil {
		return "", err
	}
	return key, nil
}

// StoreTemp writes an intermediate artifact like a rendered page image.
func (d *Documents) StoreTemp(ctx context.Context, fileID, filename string, body []byte, contentType string) (string, error) {
	key := TempKey(fileID, filename)
	if err := d.blobs.Put(ctx, key, body, contentType, nil); err != nil {
		return "", err
	}
	return key, nil
}

// CleanupTemp deletes everything under one temp file id.
func (d *Documents) CleanupTemp(ctx context.Context, fileID string) error {
	keys, err := d.blobs.List(ctx, tempPrefix+"/"+SanitizeComponent(fileID)+"/")
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return d.blobs.Delete(ctx, keys...)
}

// filenameFromURL derives a human-readable filename for the sidecar.
func filenameFromURL(rawURL string, ct domain.ContentType) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Path == "" || parsed.Path == "/" {
		return "index." + ct.Ext()
	}
	segments := parsed.Path
	if i := lastSlash(segments); i >= 0 {
		segments = segments[i+1:]
	}
	if segments == "" {
		return "index." + ct.Ext()
	}
	return SanitizeComponent(segments)
}

func lastSlash(s string) int {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == '/' {
			return i
		}
	}
	return -1
}
