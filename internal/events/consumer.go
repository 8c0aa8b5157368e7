package events

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/HariharanV1992/CrawlChat-sub000/internal/domain"
	"github.com/HariharanV1992/CrawlChat-sub000/internal/logger"
	"github.com/HariharanV1992/CrawlChat-sub000/internal/queue"
)

// DefaultConsumerGroup is the consumer group for control-plane progress readers.
const DefaultConsumerGroup = "crawlchat-progress"

const (
	defaultBlockTimeout = 5 * time.Second
	defaultBatchSize    = 32
	defaultClaimMinIdle = time.Minute
)

// Handler receives each decoded progress event. Delivery is at-least-once:
// handlers must tolerate replays, which is natural here since progress
// counters are absolute values rather than increments.
type Handler func(ctx context.Context, event domain.ProgressEvent)

// Consumer reads progress events from the stream and hands them to a Handler.
type Consumer struct {
	client       *queue.StreamsClient
	group        string
	consumerID   string
	blockTimeout time.Duration
	batchSize    int64
	claimMinIdle time.Duration
	handler      Handler
	log          logger.Interface
}

// ConsumerConfig tunes the progress consumer.
type ConsumerConfig struct {
	Group        string
	ConsumerID   string
	BlockTimeout time.Duration
	BatchSize    int64
	ClaimMinIdle time.Duration
}

// NewConsumer creates a progress consumer. ConsumerID must be unique per
// process within the group.
func NewConsumer(client *queue.StreamsClient, cfg ConsumerConfig, handler Handler, log logger.Interface) (*Consumer, error) {
	if cfg.ConsumerID == "" {
		return nil, errors.New("consumer ID is required")
	}
	if handler == nil {
		return nil, errors.New("handler is required")
	}
	c := &Consumer{
		client:       client,
		group:        cfg.Group,
		consumerID:   cfg.ConsumerID,
		blockTimeout: cfg.BlockTimeout,
		batchSize:    cfg.BatchSize,
		claimMinIdle: cfg.ClaimMinIdle,
		handler:      handler,
		log:          log,
	}
	if c.group == "" {
		c.group = DefaultConsumerGroup
	}
	if c.blockTimeout <= 0 {
		c.blockTimeout = defaultBlockTimeout
	}
	if c.batchSize <= 0 {
		c.batchSize = defaultBatchSize
	}
	if c.claimMinIdle <= 0 {
		c.claimMinIdle = defaultClaimMinIdle
	}
	return c, nil
}

// Run consumes progress events until the context is canceled. It creates the
// consumer group on first use and reclaims events abandoned by dead readers.
func (c *Consumer) Run(ctx context.Context) error {
	stream := c.client.ProgressStream()
	if err := c.client.CreateConsumerGroup(ctx, stream, c.group); err != nil {
		return fmt.Errorf("failed to create progress consumer group: %w", err)
	}

	c.log.Info("progress consumer started",
		"stream", stream,
		"group", c.group,
		"consumer", c.consumerID)

	for {
		if ctx.Err() != nil {
			return nil
		}

		c.reclaimStalled(ctx, stream)

		streams, err := c.client.XReadGroup(ctx, c.group, c.consumerID, stream, c.batchSize, c.blockTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, redis.Nil) {
				// Block timeout with nothing new; keep polling.
				continue
			}
			c.log.Error("failed to read progress stream", "error", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
			}
			continue
		}

		for _, s := range streams {
			for _, msg := range s.Messages {
				c.dispatch(ctx, stream, msg)
			}
		}
	}
}

func (c *Consumer) dispatch(ctx context.Context, stream string, msg redis.XMessage) {
	event, err := decodeEvent(msg)
	if err != nil {
		// Undecodable events can never succeed; ack them away.
		c.log.Error("dropping malformed progress event", "message_id", msg.ID, "error", err)
		c.ack(ctx, stream, msg.ID)
		return
	}

	c.handler(ctx, event)
	c.ack(ctx, stream, msg.ID)
}

func (c *Consumer) ack(ctx context.Context, stream, messageID string) {
	if err := c.client.XAck(ctx, stream, c.group, messageID); err != nil {
		c.log.Warn("failed to ack progress event", "message_id", messageID, "error", err)
	}
}

// reclaimStalled takes over events left pending by crashed consumers so
// progress keeps flowing after a control-plane restart.
func (c *Consumer) reclaimStalled(ctx context.Context, stream string) {
	msgs, err := c.client.XAutoClaim(ctx, stream, c.group, c.consumerID, c.claimMinIdle, c.batchSize)
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn("failed to reclaim stalled progress events", "error", err)
		}
		return
	}
	for _, msg := range msgs {
		c.dispatch(ctx, stream, msg)
	}
}
