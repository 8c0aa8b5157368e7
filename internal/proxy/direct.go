package proxy

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/HariharanV1992/CrawlChat-sub000/internal/logger"
)

// NewProvider selects the fetch provider for cfg. Without an API key there
// is no proxy account to spend, so fetches go direct and the gateway's
// ladder collapses to the plain tier.
func NewProvider(cfg ClientConfig, log logger.Interface) Provider {
	if strings.TrimSpace(cfg.APIKey) == "" {
		log.Warn("proxy api key not set, fetching direct without js rendering")
		return NewDirectClient(cfg)
	}
	return NewClient(cfg)
}

// DirectClient fetches URLs with a plain HTTP client. It stands in for the
// proxy provider in development, where no API key is configured.
type DirectClient struct {
	cfg        ClientConfig
	httpClient *http.Client
}

// NewDirectClient builds the direct fetcher.
func NewDirectClient(cfg ClientConfig) *DirectClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 90 * time.Second
	}
	return &DirectClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

// MaxMode reports that direct fetches cannot render JS or switch IP pools.
func (c *DirectClient) MaxMode() Mode { return ModeNoJS }

// Fetch performs one plain GET.
func (c *DirectClient) Fetch(ctx context.Context, req Request) (*Response, error) {
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("build direct request: %w", err)
	}
	if c.cfg.UserAgent != "" {
		httpReq.Header.Set("User-Agent", c.cfg.UserAgent)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errRetryable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", errRetryable, err)
	}

	return &Response{
		URL:         req.URL,
		StatusCode:  resp.StatusCode,
		Body:        body,
		ContentType: resp.Header.Get("Content-Type"),
		Headers:     resp.Header,
		Mode:        req.Mode,
		FetchedAt:   time.Now().UTC(),
	}, nil
}
