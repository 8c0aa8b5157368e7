// Package domain defines the core entities shared across CrawlChat services.
package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// TaskStatus is the lifecycle state of a crawl task.
type TaskStatus string

const (
	TaskStatusCreated   TaskStatus = "created"
	TaskStatusRunning   TaskStatus = "running"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusFailed    TaskStatus = "failed"
	TaskStatusCancelled TaskStatus = "cancelled"
)

// Terminal reports whether the status permits no further transitions.
func (s TaskStatus) Terminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusFailed || s == TaskStatusCancelled
}

// CanTransition reports whether moving from s to next is a legal transition.
// Allowed: created → {running, cancelled}; running → {completed, failed, cancelled}.
func (s TaskStatus) CanTransition(next TaskStatus) bool {
	switch s {
	case TaskStatusCreated:
		return next == TaskStatusRunning || next == TaskStatusCancelled
	case TaskStatusRunning:
		return next == TaskStatusCompleted || next == TaskStatusFailed || next == TaskStatusCancelled
	default:
		return false
	}
}

// Default crawl bounds applied when a task config leaves them unset.
const (
	DefaultMaxDocuments      = 10
	DefaultMaxDepth          = 2
	DefaultMaxPages          = 50
	DefaultMaxThreads        = 3
	DefaultRequestTimeoutSec = 60
	DefaultTotalTimeoutSec   = 600
	DefaultBatchDelaySec     = 3
)

// CrawlConfig bounds a single crawl task. Timeouts are seconds so the
// struct serializes cleanly in dispatch payloads and task records.
type CrawlConfig struct {
	MaxDocuments      int  `bson:"max_documents" json:"max_documents"`
	MaxDepth          int  `bson:"max_depth" json:"max_depth"`
	MaxPages          int  `bson:"max_pages" json:"max_pages"`
	MaxThreads        int  `bson:"max_threads" json:"max_threads"`
	RenderJS          bool `bson:"render_js" json:"render_js"`
	RequestTimeoutSec int  `bson:"request_timeout_sec" json:"request_timeout_sec"`
	TotalTimeoutSec   int  `bson:"total_timeout_sec" json:"total_timeout_sec"`
	BatchDelaySec     int  `bson:"batch_delay_sec" json:"batch_delay_sec"`
}

// Normalize fills unset fields with defaults and clamps negatives.
func (c *CrawlConfig) Normalize() {
	if c.MaxDocuments <= 0 {
		c.MaxDocuments = DefaultMaxDocuments
	}
	if c.MaxDepth < 0 {
		c.MaxDepth = DefaultMaxDepth
	}
	if c.MaxPages <= 0 {
		c.MaxPages = DefaultMaxPages
	}
	if c.MaxThreads <= 0 {
		c.MaxThreads = DefaultMaxThreads
	}
	if c.RequestTimeoutSec <= 0 {
		c.RequestTimeoutSec = DefaultRequestTimeoutSec
	}
	if c.TotalTimeoutSec <= 0 {
		c.TotalTimeoutSec = DefaultTotalTimeoutSec
	}
	if c.BatchDelaySec < 0 {
		c.BatchDelaySec = DefaultBatchDelaySec
	}
}

// RequestTimeout returns the per-request timeout as a duration.
func (c CrawlConfig) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSec) * time.Second
}

// TotalTimeout returns the per-task deadline as a duration.
func (c CrawlConfig) TotalTimeout() time.Duration {
	return time.Duration(c.TotalTimeoutSec) * time.Second
}

// BatchDelay returns the inter-batch pause as a duration.
func (c CrawlConfig) BatchDelay() time.Duration {
	return time.Duration(c.BatchDelaySec) * time.Second
}

// Progress counts what a crawl has accomplished so far. Counters are
// monotonically non-decreasing while the task runs.
type Progress struct {
	DocumentsFound      int `bson:"documents_found" json:"documents_found"`
	DocumentsDownloaded int `bson:"documents_downloaded" json:"documents_downloaded"`
	PagesCrawled        int `bson:"pages_crawled" json:"pages_crawled"`
}

// CrawlTask is one end-to-end crawl job owned by one user.
type CrawlTask struct {
	TaskID     string      `bson:"task_id" json:"task_id"`
	UserID     string      `bson:"user_id" json:"user_id"`
	SeedURL    string      `bson:"seed_url" json:"seed_url"`
	Status     TaskStatus  `bson:"status" json:"status"`
	Config     CrawlConfig `bson:"config" json:"config"`
	Progress   Progress    `bson:"progress" json:"progress"`
	Result     []string    `bson:"result,omitempty" json:"result,omitempty"`
	FailedURLs []string    `bson:"failed_urls,omitempty" json:"failed_urls,omitempty"`
	Error      string      `bson:"error,omitempty" json:"error,omitempty"`
	CreatedAt  time.Time   `bson:"created_at" json:"created_at"`
	UpdatedAt  time.Time   `bson:"updated_at" json:"updated_at"`
}

// ValidateSeedURL checks that a seed URL is absolute http(s) with a host.
func ValidateSeedURL(raw string) error {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid seed url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("seed url must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("seed url has no host")
	}
	return nil
}

// DocIDFromURL derives the stable 16-hex document id for a URL.
// The same URL always maps to the same id.
func DocIDFromURL(rawURL string) string {
	sum := sha256.Sum256([]byte(rawURL))
	return hex.EncodeToString(sum[:])[:16]
}
