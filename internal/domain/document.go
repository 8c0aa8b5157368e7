package domain

import "time"

// ContentType classifies an acquired artifact.
type ContentType string

const (
	ContentTypeHTML   ContentType = "html"
	ContentTypePDF    ContentType = "pdf"
	ContentTypeDOCX   ContentType = "docx"
	ContentTypeXLSX   ContentType = "xlsx"
	ContentTypePPTX   ContentType = "pptx"
	ContentTypeCSV    ContentType = "csv"
	ContentTypeImage  ContentType = "image"
	ContentTypeText   ContentType = "text"
	ContentTypeBinary ContentType = "binary"
)

// Ext returns the object-store file extension for the content type.
func (c ContentType) Ext() string {
	switch c {
	case ContentTypeHTML:
		return "html"
	case ContentTypePDF:
		return "pdf"
	case ContentTypeDOCX:
		return "docx"
	case ContentTypeXLSX:
		return "xlsx"
	case ContentTypePPTX:
		return "pptx"
	case ContentTypeCSV:
		return "csv"
	case ContentTypeImage:
		return "png"
	case ContentTypeText:
		return "txt"
	default:
		return "bin"
	}
}

// MIME returns the content type header value used when storing the body.
func (c ContentType) MIME() string {
	switch c {
	case ContentTypeHTML:
		return "text/html; charset=utf-8"
	case ContentTypePDF:
		return "application/pdf"
	case ContentTypeDOCX:
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case ContentTypeXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case ContentTypePPTX:
		return "application/vnd.openxmlformats-officedocument.presentationml.presentation"
	case ContentTypeCSV:
		return "text/csv"
	case ContentTypeImage:
		return "image/png"
	case ContentTypeText:
		return "text/plain; charset=utf-8"
	default:
		return "application/octet-stream"
	}
}

// ContentTypeFromExt maps a file extension back to a content type.
func ContentTypeFromExt(ext string) ContentType {
	switch ext {
	case "html", "htm":
		return ContentTypeHTML
	case "pdf":
		return ContentTypePDF
	case "docx", "doc":
		return ContentTypeDOCX
	case "xlsx", "xls":
		return ContentTypeXLSX
	case "pptx", "ppt":
		return ContentTypePPTX
	case "csv":
		return ContentTypeCSV
	case "png", "jpg", "jpeg", "gif", "webp":
		return ContentTypeImage
	case "txt", "text", "json":
		return ContentTypeText
	default:
		return ContentTypeBinary
	}
}

// CrawledDocument is one artifact acquired by a crawl: stored byte-faithfully
// in the object store plus the text extracted from it.
type CrawledDocument struct {
	DocID           string      `bson:"doc_id" json:"doc_id"`
	TaskID          string      `bson:"task_id" json:"task_id"`
	UserID          string      `bson:"user_id" json:"user_id"`
	URL             string      `bson:"url" json:"url"`
	Title           string      `bson:"title,omitempty" json:"title,omitempty"`
	ContentType     ContentType `bson:"content_type" json:"content_type"`
	IsBinary        bool        `bson:"is_binary" json:"is_binary"`
	ContentText     string      `bson:"content_text,omitempty" json:"content_text,omitempty"`
	ContentBytesKey string      `bson:"content_bytes_key,omitempty" json:"content_bytes_key,omitempty"`
	MetadataKey     string      `bson:"metadata_key" json:"metadata_key"`
	SizeBytes       int64       `bson:"size_bytes" json:"size_bytes"`
	StatusCode      int         `bson:"status_code" json:"status_code"`
	FetchedAt       time.Time   `bson:"fetched_at" json:"fetched_at"`
	Domain          string      `bson:"domain" json:"domain"`
	PageCount       int         `bson:"page_count,omitempty" json:"page_count,omitempty"`
}

// DocumentSummary is the listing view of a crawled document.
type DocumentSummary struct {
	DocID       string      `json:"doc_id"`
	URL         string      `json:"url"`
	Title       string      `json:"title,omitempty"`
	ContentType ContentType `json:"content_type"`
	SizeBytes   int64       `json:"size_bytes"`
	FetchedAt   time.Time   `json:"fetched_at"`
}

// Summary projects the document to its listing view.
func (d *CrawledDocument) Summary() DocumentSummary {
	return DocumentSummary{
		DocID:       d.DocID,
		URL:         d.URL,
		Title:       d.Title,
		ContentType: d.ContentType,
		SizeBytes:   d.SizeBytes,
		FetchedAt:   d.FetchedAt,
	}
}
