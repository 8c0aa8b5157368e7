package domain

import "time"

// ProgressEvent is emitted by the crawler on every stored or failed document.
// Delivery is at-least-once; consumers must tolerate replays.
type ProgressEvent struct {
	TaskID              string    `json:"task_id"`
	DocumentsFound      int       `json:"documents_found"`
	DocumentsDownloaded int       `json:"documents_downloaded"`
	PagesCrawled        int       `json:"pages_crawled"`
	StatusMessage       string    `json:"status_message"`
	UpdatedAt           time.Time `json:"updated_at"`
}
