// Package events moves crawl progress from workers to the control plane:
// workers publish ProgressEvents to a Redis stream, the control plane
// consumes them, persists progress, and fans updates out to SSE subscribers.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/HariharanV1992/CrawlChat-sub000/internal/domain"
	"github.com/HariharanV1992/CrawlChat-sub000/internal/logger"
	"github.com/HariharanV1992/CrawlChat-sub000/internal/queue"
)

// EventField is the stream field carrying the serialized event.
const EventField = "event"

// defaultMaxStreamLen bounds the progress stream; events are ephemeral and
// old ones are worthless once read.
const defaultMaxStreamLen = 50000

// Publisher emits progress events from the worker side.
type Publisher struct {
	client *queue.StreamsClient
	maxLen int64
	log    logger.Interface
}

// NewPublisher creates a progress publisher.
func NewPublisher(client *queue.StreamsClient, log logger.Interface) *Publisher {
	return &Publisher{client: client, maxLen: defaultMaxStreamLen, log: log}
}

// Publish appends one progress event. Publishing is best-effort from the
// caller's point of view: a progress loss must never fail a crawl, so
// callers typically log and continue on error.
func (p *Publisher) Publish(ctx context.Context, event domain.ProgressEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to serialize progress event: %w", err)
	}

	_, err = p.client.XAdd(ctx, p.client.ProgressStream(), p.maxLen, map[string]any{
		EventField: string(data),
	})
	if err != nil {
		return fmt.Errorf("failed to publish progress for task %s: %w", event.TaskID, err)
	}
	return nil
}

// decodeEvent parses one stream message back into a progress event.
func decodeEvent(msg redis.XMessage) (domain.ProgressEvent, error) {
	raw, ok := msg.Values[EventField].(string)
	if !ok {
		return domain.ProgressEvent{}, errors.New("missing or invalid event data")
	}
	var event domain.ProgressEvent
	if err := json.Unmarshal([]byte(raw), &event); err != nil {
		return domain.ProgressEvent{}, fmt.Errorf("failed to unmarshal progress event: %w", err)
	}
	if event.TaskID == "" {
		return domain.ProgressEvent{}, errors.New("progress event missing task_id")
	}
	return event, nil
}
