package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/HariharanV1992/CrawlChat-sub000/internal/logger"
)

const (
	// DefaultConsumerGroup is shared by every crawl worker; Redis fans
	// each message out to exactly one member.
	DefaultConsumerGroup = "crawlchat-workers"

	defaultBlockTimeout = 5 * time.Second
	defaultBatchSize    = 1

	// defaultClaimMinIdle is how long a claimed dispatch may sit
	// unacknowledged before another worker may steal it.
	defaultClaimMinIdle = 30 * time.Second

	maxReclaimBatch = 10
)

// Consumer reads crawl dispatches for one worker.
type Consumer struct {
	client       *StreamsClient
	group        string
	consumerID   string
	blockTimeout time.Duration
	batchSize    int64
	claimMinIdle time.Duration
	log          logger.Interface
}

// ConsumerConfig holds consumer tuning.
type ConsumerConfig struct {
	Group        string
	ConsumerID   string
	BlockTimeout time.Duration
	BatchSize    int64
	ClaimMinIdle time.Duration
}

// NewConsumer creates a dispatch consumer.
func NewConsumer(client *StreamsClient, cfg ConsumerConfig, log logger.Interface) (*Consumer, error) {
	if cfg.ConsumerID == "" {
		return nil, errors.New("consumer ID is required")
	}

	c := &Consumer{
		client:       client,
		group:        cfg.Group,
		consumerID:   cfg.ConsumerID,
		blockTimeout: cfg.BlockTimeout,
		batchSize:    cfg.BatchSize,
		claimMinIdle: cfg.ClaimMinIdle,
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

// Initialize creates the consumer group. Idempotent.
func (c *Consumer) Initialize(ctx context.Context) error {
	if err := c.client.CreateConsumerGroup(ctx, c.client.JobStream(), c.group); err != nil {
		return fmt.Errorf("failed to create consumer group for %s: %w", c.client.JobStream(), err)
	}
	return nil
}

// Read returns the next batch of dispatches. Stalled messages abandoned by
// dead workers are reclaimed before new ones are read; an empty result
// after the block timeout is (nil, nil).
func (c *Consumer) Read(ctx context.Context) ([]*ConsumedDispatch, error) {
	if reclaimed := c.reclaimStalled(ctx); len(reclaimed) > 0 {
		return reclaimed, nil
	}

	streams, err := c.client.XReadGroup(ctx, c.group, c.consumerID, c.client.JobStream(), c.batchSize, c.blockTimeout)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read from %s: %w", c.client.JobStream(), err)
	}

	var out []*ConsumedDispatch
	for _, stream := range streams {
		for _, msg := range stream.Messages {
			consumed, err := decodeDispatch(msg)
			if err != nil {
				// Poison messages are acknowledged away so they
				// cannot wedge the group.
				c.log.Error("dropping malformed dispatch", "message_id", msg.ID, "error", err)
				_ = c.client.XAck(ctx, c.client.JobStream(), c.group, msg.ID)
				continue
			}
			out = append(out, consumed)
		}
	}
	return out, nil
}

// Acknowledge marks a dispatch as fully processed.
func (c *Consumer) Acknowledge(ctx context.Context, messageID string) error {
	if err := c.client.XAck(ctx, c.client.JobStream(), c.group, messageID); err != nil {
		return fmt.Errorf("failed to acknowledge %s: %w", messageID, err)
	}
	return nil
}

// PendingCount reports delivered-but-unacknowledged dispatches.
func (c *Consumer) PendingCount(ctx context.Context) (int64, error) {
	count, err := c.client.XPendingCount(ctx, c.client.JobStream(), c.group)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get pending count: %w", err)
	}
	return count, nil
}

// reclaimStalled transfers messages whose owner has gone quiet. Errors are
// logged, not returned: reclaim is opportunistic and the normal read path
// must proceed regardless.
func (c *Consumer) reclaimStalled(ctx context.Context) []*ConsumedDispatch {
	msgs, err := c.client.XAutoClaim(ctx, c.client.JobStream(), c.group, c.consumerID, c.claimMinIdle, maxReclaimBatch)
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn("reclaim scan failed", "error", err)
		}
		return nil
	}

	var out []*ConsumedDispatch
	for _, msg := range msgs {
		consumed, err := decodeDispatch(msg)
		if err != nil {
			c.log.Error("dropping malformed reclaimed dispatch", "message_id", msg.ID, "error", err)
			_ = c.client.XAck(ctx, c.client.JobStream(), c.group, msg.ID)
			continue
		}
		consumed.Reclaimed = true
		c.log.Warn("reclaimed stalled dispatch", "task_id", consumed.Dispatch.TaskID, "message_id", msg.ID)
		out = append(out, consumed)
	}
	return out
}
