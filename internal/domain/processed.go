package domain

import "time"

// ProcessedStatus is the index-layer outcome for one document.
type ProcessedStatus string

const (
	ProcessedStatusProcessed        ProcessedStatus = "processed"
	ProcessedStatusDuplicateSkipped ProcessedStatus = "duplicate_skipped"
	ProcessedStatusError            ProcessedStatus = "error"
)

// ProcessedDocument links a document to its entry in the vector store.
// Records are immutable once written except for Status.
//
// For a given (session_id, content_hash) there is at most one record with
// IsDuplicate == false; duplicates reuse the original's VectorFileID.
type ProcessedDocument struct {
	DocID         string          `bson:"doc_id" json:"doc_id"`
	SessionID     string          `bson:"session_id" json:"session_id"`
	UserID        string          `bson:"user_id" json:"user_id"`
	Filename      string          `bson:"filename" json:"filename"`
	Source        string          `bson:"source,omitempty" json:"source,omitempty"`
	ContentType   ContentType     `bson:"content_type,omitempty" json:"content_type,omitempty"`
	VectorFileID  string          `bson:"vector_file_id,omitempty" json:"vector_file_id,omitempty"`
	VectorStoreID string          `bson:"vector_store_id,omitempty" json:"vector_store_id,omitempty"`
	ContentHash   string          `bson:"content_hash" json:"content_hash"`
	IsDuplicate   bool            `bson:"is_duplicate" json:"is_duplicate"`
	OriginalDocID string          `bson:"original_doc_id,omitempty" json:"original_doc_id,omitempty"`
	ContentLength int             `bson:"content_length" json:"content_length"`
	ProcessedAt   time.Time       `bson:"processed_at" json:"processed_at"`
	Status        ProcessedStatus `bson:"status" json:"status"`
}
