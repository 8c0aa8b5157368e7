package domain

import "time"

// Role identifies the author of a chat message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Message is one turn in a session. Messages are append-only and totally
// ordered by insertion.
type Message struct {
	Role      Role      `bson:"role" json:"role"`
	Content   string    `bson:"content" json:"content"`
	Timestamp time.Time `bson:"timestamp" json:"timestamp"`
}

// ProcessingStatus tracks background document processing for a session.
type ProcessingStatus string

const (
	ProcessingStatusIdle       ProcessingStatus = "idle"
	ProcessingStatusProcessing ProcessingStatus = "processing"
	ProcessingStatusCompleted  ProcessingStatus = "completed"
	ProcessingStatusError      ProcessingStatus = "error"
)

// Session is the conversational context: message history plus the documents
// attached to it and the private vector store they are indexed into.
type Session struct {
	SessionID         string           `bson:"session_id" json:"session_id"`
	UserID            string           `bson:"user_id" json:"user_id"`
	CreatedAt         time.Time        `bson:"created_at" json:"created_at"`
	UpdatedAt         time.Time        `bson:"updated_at" json:"updated_at"`
	Messages          []Message        `bson:"messages" json:"messages"`
	CrawlTasks        []string         `bson:"crawl_tasks,omitempty" json:"crawl_tasks,omitempty"`
	UploadedDocuments []string         `bson:"uploaded_documents,omitempty" json:"uploaded_documents,omitempty"`
	DocumentCount     int              `bson:"document_count" json:"document_count"`
	ProcessingStatus  ProcessingStatus `bson:"processing_status" json:"processing_status"`
	VectorStoreID     string           `bson:"vector_store_id,omitempty" json:"vector_store_id,omitempty"`
}

// LastMessages returns up to n most recent messages in insertion order.
func (s *Session) LastMessages(n int) []Message {
	if n <= 0 || len(s.Messages) == 0 {
		return nil
	}
	if len(s.Messages) <= n {
		return s.Messages
	}
	return s.Messages[len(s.Messages)-n:]
}

// LastUserMessage returns the most recent user turn, or empty.
func (s *Session) LastUserMessage() string {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role == RoleUser {
			return s.Messages[i].Content
		}
	}
	return ""
}
