package vector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/HariharanV1992/CrawlChat-sub000/internal/config"
	"github.com/HariharanV1992/CrawlChat-sub000/internal/logger"
	"github.com/HariharanV1992/CrawlChat-sub000/internal/metrics"
)

const (
	// DefaultEmbeddingModel balances quality and cost for passage search.
	DefaultEmbeddingModel = "text-embedding-3-small"

	// DefaultEmbeddingDimension matches text-embedding-3-small.
	DefaultEmbeddingDimension = 1536

	defaultEmbeddingBaseURL = "https://api.openai.com/v1"
	defaultEmbedBatchSize   = 100
	defaultEmbedTimeout     = 30 * time.Second
)

// Embedder calls an OpenAI-compatible embeddings endpoint. Inputs are
// batched and results are reassembled into input order regardless of the
// order the API returns them in.
type Embedder struct {
	httpClient *http.Client
	apiKey     string
	baseURL    string
	model      string
	dimension  int
	batchSize  int
	log        logger.Interface
	metrics    *metrics.Metrics
}

// NewEmbedder builds an embeddings client from cfg. Only the API key is
// required; everything else defaults to text-embedding-3-small against
// the OpenAI endpoint.
func NewEmbedder(cfg config.EmbeddingConfig, log logger.Interface, m *metrics.Metrics) (*Embedder, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("embedding api key is required")
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultEmbeddingBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = DefaultEmbeddingModel
	}
	dimension := cfg.Dimension
	if dimension <= 0 {
		dimension = DefaultEmbeddingDimension
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = defaultEmbedBatchSize
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultEmbedTimeout
	}

	return &Embedder{
		httpClient: &http.Client{Timeout: timeout},
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		model:      model,
		dimension:  dimension,
		batchSize:  batchSize,
		log:        log,
		metrics:    m,
	}, nil
}

// Dimension reports the vector width collections must be created with.
func (e *Embedder) Dimension() int { return e.dimension }

// Embed returns one vector per input text, in input order.
func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	out := make([][]float32, len(texts))
	for start := 0; start < len(texts); start += e.batchSize {
		end := start + e.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		if err := e.embedBatch(ctx, texts[start:end], out[start:end]); err != nil {
			return nil, err
		}
	}

	for i, vec := range out {
		if vec == nil {
			return nil, fmt.Errorf("embedding response missing vector for input %d", i)
		}
	}
	return out, nil
}

// EmbedQuery embeds a single query string.
func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

type embeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Usage struct {
		PromptTokens int `json:"prompt_tokens"`
		TotalTokens  int `json:"total_tokens"`
	} `json:"usage"`
}

type embeddingError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// embedBatch fills out, which aliases the caller's slice for this batch.
func (e *Embedder) embedBatch(ctx context.Context, batch []string, out [][]float32) error {
	body, err := json.Marshal(embeddingRequest{Model: e.model, Input: batch})
	if err != nil {
		return fmt.Errorf("failed to encode embedding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build embedding request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.apiKey)

	started := time.Now()
	resp, err := e.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("embedding request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 8<<10))
		var apiErr embeddingError
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error.Message != "" {
			return fmt.Errorf("embedding api error (status %d): %s", resp.StatusCode, apiErr.Error.Message)
		}
		return fmt.Errorf("embedding api error (status %d): %s", resp.StatusCode, string(raw))
	}

	var parsed embeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return fmt.Errorf("failed to decode embedding response: %w", err)
	}
	if len(parsed.Data) != len(batch) {
		return fmt.Errorf("embedding response has %d vectors for %d inputs", len(parsed.Data), len(batch))
	}

	for _, item := range parsed.Data {
		if item.Index < 0 || item.Index >= len(out) {
			return fmt.Errorf("embedding response index %d out of range", item.Index)
		}
		if len(item.Embedding) != e.dimension {
			return fmt.Errorf("embedding has dimension %d, expected %d", len(item.Embedding), e.dimension)
		}
		out[item.Index] = item.Embedding
	}

	if e.metrics != nil {
		e.metrics.EmbeddingBatches.Inc()
		e.metrics.EmbeddingDuration.Observe(time.Since(started).Seconds())
	}
	e.log.Debug("embedded batch",
		"inputs", len(batch),
		"prompt_tokens", parsed.Usage.PromptTokens,
		"duration_ms", time.Since(started).Milliseconds())
	return nil
}
