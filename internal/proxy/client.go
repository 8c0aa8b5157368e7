package proxy

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Instruction is one opaque js_scenario step (click, scroll, wait). It is
// passed through to the provider without interpretation.
type Instruction map[string]any

// Request is one provider call at a specific tier.
type Request struct {
	URL  string
	Mode Mode
	// DisableJS turns rendering off even on tiers that support it. Binary
	// fetches use it so only the IP pool escalates.
	DisableJS     bool
	Timeout       time.Duration
	WaitAfterLoad time.Duration
	BlockAds      bool
	BlockRes      bool
	CountryCode   string
	JSScenario    []Instruction
}

// Response is the fetched result.
type Response struct {
	URL         string
	StatusCode  int
	Body        []byte
	ContentType string
	Headers     http.Header
	Mode        Mode
	FetchedAt   time.Time
}

// Provider executes a single fetch attempt at a fixed tier.
type Provider interface {
	Fetch(ctx context.Context, req Request) (*Response, error)
}

// ClientConfig configures the HTTP fetch-proxy provider.
type ClientConfig struct {
	APIKey      string
	BaseURL     string
	CountryCode string
	Timeout     time.Duration
	UserAgent   string
}

// Client talks to the fetch-proxy provider over its query-parameter API.
type Client struct {
	cfg        ClientConfig
	httpClient *http.Client
}

// NewClient builds the provider client. The HTTP timeout leaves headroom
// above the per-request timeout because the provider itself may spend most
// of the budget rendering.
func NewClient(cfg ClientConfig) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 90 * time.Second
	}
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout + 30*time.Second,
		},
	}
}

// Fetch performs one proxied fetch attempt.
func (c *Client) Fetch(ctx context.Context, req Request) (*Response, error) {
	endpoint, err := c.buildURL(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("build proxy request: %w", err)
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

func (c *Client) buildURL(req Request) (string, error) {
	base, err := url.Parse(c.cfg.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parse proxy base url: %w", err)
	}

	params := url.Values{}
	params.Set("api_key", c.cfg.APIKey)
	params.Set("url", req.URL)
	params.Set("render_js", strconv.FormatBool(req.Mode.renders() && !req.DisableJS))

	switch req.Mode {
	case ModePremium:
		params.Set("premium_proxy", "true")
	case ModeStealth:
		params.Set("stealth_proxy", "true")
	}

	country := req.CountryCode
	if country == "" {
		country = c.cfg.CountryCode
	}
	if country != "" {
		params.Set("country_code", country)
	}
	if req.Timeout > 0 {
		params.Set("timeout", strconv.FormatInt(req.Timeout.Milliseconds(), 10))
	}
	if req.WaitAfterLoad > 0 {
		params.Set("wait", strconv.FormatInt(req.WaitAfterLoad.Milliseconds(), 10))
	}
	if req.BlockAds {
		params.Set("block_ads", "true")
	}
	if req.BlockRes {
		params.Set("block_resources", "true")
	}
	if len(req.JSScenario) > 0 {
		scenario, err := json.Marshal(map[string]any{"instructions": req.JSScenario})
		if err != nil {
			return "", fmt.Errorf("marshal js scenario: %w", err)
		}
		params.Set("js_scenario", string(scenario))
	}

	base.RawQuery = params.Encode()
	return base.String(), nil
}
