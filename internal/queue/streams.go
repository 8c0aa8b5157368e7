// Package queue is the Redis Streams job queue between the control plane
// and crawl workers: the API dispatches one message per started task, a
// worker claims it, and stalled claims are re-delivered to live consumers.
package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/HariharanV1992/CrawlChat-sub000/internal/config"
)

const (
	defaultConnectTimeout = 2 * time.Second
	defaultPrefix         = "crawlchat"
)

// StreamsClient wraps a Redis client with the stream operations the queue
// and the progress bus share.
type StreamsClient struct {
	client *redis.Client
	prefix string
}

// NewStreamsClient connects to Redis and verifies the connection.
func NewStreamsClient(cfg config.RedisConfig) (*StreamsClient, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), defaultConnectTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	prefix := cfg.StreamPrefix
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &StreamsClient{client: client, prefix: prefix}, nil
}

// NewStreamsClientFromRedis wraps an existing Redis client.
func NewStreamsClientFromRedis(client *redis.Client, prefix string) *StreamsClient {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &StreamsClient{client: client, prefix: prefix}
}

// JobStream is the crawl-dispatch stream name.
func (c *StreamsClient) JobStream() string {
	return c.prefix + ":jobs"
}

// ProgressStream is the crawl-progress event stream name.
func (c *StreamsClient) ProgressStream() string {
	return c.prefix + ":progress"
}

// Close closes the underlying Redis client.
func (c *StreamsClient) Close() error {
	return c.client.Close()
}

// Ping checks Redis reachability.
func (c *StreamsClient) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Client exposes the underlying Redis client for components that share the
// connection (numeric cache, progress bus).
func (c *StreamsClient) Client() *redis.Client {
	return c.client
}

// CreateConsumerGroup creates a consumer group if it does not exist.
func (c *StreamsClient) CreateConsumerGroup(ctx context.Context, stream, group string) error {
	err := c.client.XGroupCreateMkStream(ctx, stream, group, "0").Err()
	if err != nil && err.Error() != "BUSYGROUP Consumer Group name already exists" {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}
	return nil
}

// XAdd appends a message, trimming the stream approximately to maxLen when
// maxLen > 0.
func (c *StreamsClient) XAdd(ctx context.Context, stream string, maxLen int64, values map[string]any) (string, error) {
	return c.client.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		MaxLen: maxLen,
		Approx: maxLen > 0,
		Values: values,
	}).Result()
}

// XReadGroup reads new messages for a consumer group.
func (c *StreamsClient) XReadGroup(
	ctx context.Context, group, consumer, stream string, count int64, block time.Duration,
) ([]redis.XStream, error) {
	return c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    group,
		Consumer: consumer,
		Streams:  []string{stream, ">"},
		Count:    count,
		Block:    block,
	}).Result()
}

// XAck acknowledges processed messages.
func (c *StreamsClient) XAck(ctx context.Context, stream, group string, ids ...string) error {
	return c.client.XAck(ctx, stream, group, ids...).Err()
}

// XAutoClaim transfers ownership of messages idle longer than minIdle to
// the calling consumer.
func (c *StreamsClient) XAutoClaim(
	ctx context.Context, stream, group, consumer string, minIdle time.Duration, count int64,
) ([]redis.XMessage, error) {
	msgs, _, err := c.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   stream,
		Group:    group,
		Consumer: consumer,
		MinIdle:  minIdle,
		Start:    "0-0",
		Count:    count,
	}).Result()
	return msgs, err
}

// XPendingCount returns the number of delivered-but-unacknowledged messages.
func (c *StreamsClient) XPendingCount(ctx context.Context, stream, group string) (int64, error) {
	pending, err := c.client.XPending(ctx, stream, group).Result()
	if err != nil {
		return 0, err
	}
	return pending.Count, nil
}

// XLen returns the stream length.
func (c *StreamsClient) XLen(ctx context.Context, stream string) (int64, error) {
	return c.client.XLen(ctx, stream).Result()
}
