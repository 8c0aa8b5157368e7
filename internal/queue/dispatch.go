package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/HariharanV1992/CrawlChat-sub000/internal/domain"
)

// Stream message field names.
const (
	JobDataField    = "job"
	EnqueuedAtField = "enqueued_at"
)

// Dispatch tells a worker to run one crawl task. The full config rides
// along so the worker never needs a metadata-store round trip to start.
type Dispatch struct {
	TaskID  string             `json:"task_id"`
	UserID  string             `json:"user_id"`
	SeedURL string             `json:"seed_url"`
	Config  domain.CrawlConfig `json:"config"`
}

// Validate checks the fields a worker cannot proceed without.
func (d *Dispatch) Validate() error {
	if d.TaskID == "" {
		return errors.New("dispatch missing task_id")
	}
	if d.SeedURL == "" {
		return errors.New("dispatch missing seed_url")
	}
	return nil
}

// ConsumedDispatch is a dispatch read from the stream, carrying the message
// id needed to acknowledge it.
type ConsumedDispatch struct {
	MessageID  string
	Dispatch   *Dispatch
	EnqueuedAt time.Time
	Reclaimed  bool
}

// encodeDispatch serializes a dispatch into stream message fields.
func encodeDispatch(d *Dispatch) (map[string]any, error) {
	data, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize dispatch: %w", err)
	}
	return map[string]any{
		JobDataField:    string(data),
		EnqueuedAtField: time.Now().UTC().Format(time.RFC3339),
	}, nil
}

// decodeDispatch parses one stream message back into a dispatch.
func decodeDispatch(msg redis.XMessage) (*ConsumedDispatch, error) {
	raw, ok := msg.Values[JobDataField].(string)
	if !ok {
		return nil, errors.New("missing or invalid job data")
	}

	var d Dispatch
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		return nil, fmt.Errorf("failed to unmarshal dispatch: %w", err)
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}

	consumed := &ConsumedDispatch{MessageID: msg.ID, Dispatch: &d}
	if enqueued, ok := msg.Values[EnqueuedAtField].(string); ok {
		if t, err := time.Parse(time.RFC3339, enqueued); err == nil {
			consumed.EnqueuedAt = t
		}
	}
	return consumed, nil
}
