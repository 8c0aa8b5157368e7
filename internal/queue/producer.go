package queue

import (
	"context"
	"errors"
	"fmt"

	"github.com/HariharanV1992/CrawlChat-sub000/internal/logger"
	"github.com/HariharanV1992/CrawlChat-sub000/internal/metrics"
)

// defaultMaxStreamLen caps the job stream so an unattended backlog cannot
// grow without bound.
const defaultMaxStreamLen = 10000

// Producer enqueues crawl dispatches.
type Producer struct {
	client       *StreamsClient
	maxStreamLen int64
	log          logger.Interface
	metrics      *metrics.Metrics
}

// ProducerConfig holds producer tuning.
type ProducerConfig struct {
	MaxStreamLen int64
}

// NewProducer creates a dispatch producer.
func NewProducer(client *StreamsClient, cfg ProducerConfig, log logger.Interface, m *metrics.Metrics) *Producer {
	maxLen := cfg.MaxStreamLen
	if maxLen <= 0 {
		maxLen = defaultMaxStreamLen
	}
	return &Producer{client: client, maxStreamLen: maxLen, log: log, metrics: m}
}

// Enqueue appends one dispatch to the job stream and returns its message id.
func (p *Producer) Enqueue(ctx context.Context, d *Dispatch) (string, error) {
	if d == nil {
		return "", errors.New("dispatch cannot be nil")
	}
	if err := d.Validate(); err != nil {
		return "", err
	}

	values, err := encodeDispatch(d)
	if err != nil {
		return "", err
	}

	messageID, err := p.client.XAdd(ctx, p.client.JobStream(), p.maxStreamLen, values)
	if err != nil {
		return "", fmt.Errorf("failed to enqueue dispatch for task %s: %w", d.TaskID, err)
	}

	if p.metrics != nil {
		p.metrics.JobsDispatched.Inc()
	}
	p.log.Info("dispatch enqueued", "task_id", d.TaskID, "message_id", messageID)
	return messageID, nil
}

// QueueDepth reports how many messages sit in the job stream.
func (p *Producer) QueueDepth(ctx context.Context) (int64, error) {
	return p.client.XLen(ctx, p.client.JobStream())
}
