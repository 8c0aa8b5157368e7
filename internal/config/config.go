// Package config loads and validates CrawlChat configuration from defaults,
// an optional YAML file, and environment variables.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/HariharanV1992/CrawlChat-sub000/internal/logger"
)

// Config is the root configuration shared by the control plane and workers.
type Config struct {
	App         AppConfig         `mapstructure:"app"`
	Logger      logger.Config     `mapstructure:"logger"`
	Server      ServerConfig      `mapstructure:"server"`
	Proxy       ProxyConfig       `mapstructure:"proxy"`
	ObjectStore ObjectStoreConfig `mapstructure:"object_store"`
	Metadata    MetadataConfig    `mapstructure:"metadata"`
	Redis       RedisConfig       `mapstructure:"redis"`
	Vector      VectorConfig      `mapstructure:"vector"`
	Embedding   EmbeddingConfig   `mapstructure:"embedding"`
	LLM         LLMConfig         `mapstructure:"llm"`
	OCR         OCRConfig         `mapstructure:"ocr"`
	Crawler     CrawlerConfig     `mapstructure:"crawler"`
	Chat        ChatConfig        `mapstructure:"chat"`
	Worker      WorkerConfig      `mapstructure:"worker"`
}

// AppConfig identifies the process and environment.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
	Debug       bool   `mapstructure:"debug"`
}

// ServerConfig configures the control-plane HTTP server.
type ServerConfig struct {
	Address         string        `mapstructure:"address"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
}

// ProxyConfig configures the fetch-proxy provider.
type ProxyConfig struct {
	APIKey      string        `mapstructure:"api_key"`
	BaseURL     string        `mapstructure:"base_url"`
	CountryCode string        `mapstructure:"country_code"`
	Timeout     time.Duration `mapstructure:"timeout"`
	CacheTTL    time.Duration `mapstructure:"cache_ttl"`
	UserAgent   string        `mapstructure:"user_agent"`
}

// ObjectStoreConfig configures the S3-compatible object store.
type ObjectStoreConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	Region    string `mapstructure:"region"`
	Bucket    string `mapstructure:"bucket"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
}

// MetadataConfig configures the document-oriented metadata store.
type MetadataConfig struct {
	URI      string `mapstructure:"uri"`
	Database string `mapstructure:"database"`
}

// RedisConfig configures the Redis backing the job queue, the progress
// stream, and the numeric context cache.
type RedisConfig struct {
	URL          string `mapstructure:"url"`
	StreamPrefix string `mapstructure:"stream_prefix"`
}

// VectorConfig selects and configures the vector-store provider.
type VectorConfig struct {
	Provider    string `mapstructure:"provider"` // qdrant or chromem
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	APIKey      string `mapstructure:"api_key"`
	UseTLS      bool   `mapstructure:"use_tls"`
	PersistPath string `mapstructure:"persist_path"` // chromem only
}

// EmbeddingConfig configures the embeddings client.
type EmbeddingConfig struct {
	APIKey    string        `mapstructure:"api_key"`
	BaseURL   string        `mapstructure:"base_url"`
	Model     string        `mapstructure:"model"`
	Dimension int           `mapstructure:"dimension"`
	BatchSize int           `mapstructure:"batch_size"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// LLMConfig configures the completion provider.
type LLMConfig struct {
	APIKey      string  `mapstructure:"api_key"`
	BaseURL     string  `mapstructure:"base_url"`
	Model       string  `mapstructure:"model"`
	MaxTokens   int     `mapstructure:"max_tokens"`
	Temperature float64 `mapstructure:"temperature"`
	// ContextWindow bounds the assembled prompt in tokens.
	ContextWindow int `mapstructure:"context_window"`
}

// OCRConfig configures the managed OCR provider.
type OCRConfig struct {
	Region   string `mapstructure:"region"`
	Disabled bool   `mapstructure:"disabled"`
}

// CrawlerConfig holds crawl defaults applied to tasks that leave them unset.
type CrawlerConfig struct {
	MaxDocuments  int           `mapstructure:"max_documents"`
	MaxDepth      int           `mapstructure:"max_depth"`
	MaxPages      int           `mapstructure:"max_pages"`
	MaxThreads    int           `mapstructure:"max_threads"`
	BatchDelay    time.Duration `mapstructure:"batch_delay"`
	RespectRobots bool          `mapstructure:"respect_robots"`
}

// ChatConfig bounds the chat pipeline.
type ChatConfig struct {
	HistoryLimit    int           `mapstructure:"history_limit"`
	MaxPassages     int           `mapstructure:"max_passages"`
	NumericCacheTTL time.Duration `mapstructure:"numeric_cache_ttl"`
}

// WorkerConfig configures the crawl-worker process.
type WorkerConfig struct {
	Concurrency  int           `mapstructure:"concurrency"`
	ClaimIdle    time.Duration `mapstructure:"claim_idle"`
	BlockTimeout time.Duration `mapstructure:"block_timeout"`
}

// Validate checks the parts of the configuration every process needs.
// Provider credentials are validated lazily by the components that use them
// so development mode can run with a partial environment.
func (c *Config) Validate() error {
	var errs []error
	if c.ObjectStore.Bucket == "" {
		errs = append(errs, errors.New("object_store.bucket is required"))
	}
	if c.Metadata.URI == "" {
		errs = append(errs, errors.New("metadata.uri is required"))
	}
	if c.Metadata.Database == "" {
		errs = append(errs, errors.New("metadata.database is required"))
	}
	if c.Vector.Provider != "qdrant" && c.Vector.Provider != "chromem" {
		errs = append(errs, fmt.Errorf("vector.provider must be qdrant or chromem, got %q", c.Vector.Provider))
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		errs = append(errs, fmt.Errorf("llm.temperature out of range: %v", c.LLM.Temperature))
	}
	return errors.Join(errs...)
}
