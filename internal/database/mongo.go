// Package database provides the MongoDB-backed metadata store: crawl tasks,
// crawled documents, processed-document index records, and chat sessions.
package database

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/HariharanV1992/CrawlChat-sub000/internal/config"
	"github.com/HariharanV1992/CrawlChat-sub000/internal/logger"
)

const (
	connectTimeout = 10 * time.Second
	pingTimeout    = 2 * time.Second

	tasksCollection     = "crawl_tasks"
	documentsCollection = "crawled_documents"
	processedCollection = "processed_documents"
	sessionsCollection  = "chat_sessions"
)

// Client wraps the Mongo connection all repositories share.
type Client struct {
	client *mongo.Client
	db     *mongo.Database
	log    logger.Interface
}

// Connect establishes the connection and verifies it with a ping.
func Connect(ctx context.Context, cfg config.MetadataConfig, log logger.Interface) (*Client, error) {
	connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("connect metadata store: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		return nil, fmt.Errorf("ping metadata store: %w", err)
	}

	log.Info("metadata store connected", "database", cfg.Database)

	return &Client{
		client: client,
		db:     client.Database(cfg.Database),
		log:    log,
	}, nil
}

// Ping verifies connectivity for readiness checks.
func (c *Client) Ping(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := c.client.Ping(pingCtx, nil); err != nil {
		return fmt.Errorf("metadata store ping: %w", err)
	}
	return nil
}

// Close disconnects from the metadata store.
func (c *Client) Close(ctx context.Context) error {
	if err := c.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("disconnect metadata store: %w", err)
	}
	return nil
}

// Collection exposes a raw collection handle for repositories.
func (c *Client) Collection(name string) *mongo.Collection {
	return c.db.Collection(name)
}

// EnsureIndexes creates the indexes the repositories query on. Safe to call
// on every startup; existing indexes are left alone.
func (c *Client) EnsureIndexes(ctx context.Context) error {
	specs := map[string][]mongo.IndexModel{
		tasksCollection: {
			{Keys: map[string]int{"task_id": 1}, Options: options.Index().SetUnique(true)},
			{Keys: map[string]int{"user_id": 1, "created_at": -1}},
		},
		documentsCollection: {
			{Keys: map[string]int{"doc_id": 1, "task_id": 1}, Options: options.Index().SetUnique(true)},
			{Keys: map[string]int{"task_id": 1}},
		},
		processedCollection: {
			{Keys: map[string]int{"doc_id": 1, "session_id": 1}, Options: options.Index().SetUnique(true)},
			{Keys: map[string]int{"session_id": 1, "content_hash": 1, "is_duplicate": 1}},
		},
		sessionsCollection: {
			{Keys: map[string]int{"session_id": 1}, Options: options.Index().SetUnique(true)},
			{Keys: map[string]int{"user_id": 1, "updated_at": -1}},
		},
	}

	for collection, models := range specs {
		if _, err := c.db.Collection(collection).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create indexes on %s: %w", collection, err)
		}
	}
	return nil
}
