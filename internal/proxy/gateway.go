package proxy

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/HariharanV1992/CrawlChat-sub000/internal/logger"
	"github.com/HariharanV1992/CrawlChat-sub000/internal/metrics"
	"github.com/HariharanV1992/CrawlChat-sub000/internal/retry"
)

// Validator inspects a fetched body and reports whether it is acceptable.
// Rejection escalates to the next tier.
type Validator func(body []byte, url string) bool

// Options controls a single Fetch.
type Options struct {
	// Validator, when set, must accept the body or the gateway escalates.
	Validator Validator
	// ForceMode skips the ladder and fetches at exactly this tier.
	ForceMode *Mode
	// RenderJS mandates JS rendering, starting the ladder at ModeStandard.
	RenderJS bool
	// Binary fetches skip rendering entirely and accept any content type.
	Binary        bool
	Timeout       time.Duration
	WaitAfterLoad time.Duration
	BlockAds      bool
	BlockRes      bool
	CountryCode   string
	JSScenario    []Instruction
}

// Gateway escalates fetches through proxy tiers, remembering per host which
// tier first worked.
type Gateway struct {
	provider Provider
	cache    *HostCache
	stats    *Stats
	log      logger.Interface
	metrics  *metrics.Metrics
	backoff  time.Duration
	ceiling  Mode
}

// tierCeiling is implemented by providers that cannot serve every tier,
// like the direct fetcher.
type tierCeiling interface {
	MaxMode() Mode
}

// NewGateway wires a gateway around a provider. metrics may be nil.
func NewGateway(provider Provider, cache *HostCache, log logger.Interface, m *metrics.Metrics) *Gateway {
	if cache == nil {
		cache = NewHostCache(0)
	}
	ceiling := ModeStealth
	if c, ok := provider.(tierCeiling); ok {
		ceiling = c.MaxMode()
	}
	return &Gateway{
		provider: provider,
		cache:    cache,
		stats:    &Stats{},
		log:      log,
		metrics:  m,
		backoff:  time.Second,
		ceiling:  ceiling,
	}
}

// Stats exposes per-mode counters.
func (g *Gateway) Stats() *Stats {
	return g.stats
}

// Cache exposes the host capability cache.
func (g *Gateway) Cache() *HostCache {
	return g.cache
}

// Fetch retrieves a URL, starting at the cheapest viable tier and escalating
// until a tier succeeds, a permanent failure surfaces, or the ladder is
// exhausted.
func (g *Gateway) Fetch(ctx context.Context, rawURL string, opts Options) (*Response, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return nil, fmt.Errorf("%w: invalid url %q", ErrPermanent, rawURL)
	}
	host := parsed.Host

	var ladder []Mode
	switch {
	case opts.ForceMode != nil:
		ladder = []Mode{*opts.ForceMode}
	default:
		startAt := ModeNoJS
		if cached, ok := g.cache.Get(host); ok {
			startAt = cached
			g.log.Debug("using cached proxy mode", "host", host, "mode", cached.String())
		}
		ladder = ladderFor(opts, startAt)
	}
	ladder = capLadder(ladder, g.ceiling)

	var lastErr error
	for i, mode := range ladder {
		resp, err := g.fetchMode(ctx, rawURL, mode, opts)
		if err == nil {
			g.cache.Set(host, mode)
			return resp, nil
		}
		lastErr = err

		if errors.Is(err, ErrPermanent) {
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, fmt.Errorf("fetch %s: %w", rawURL, ctx.Err())
		}
		if i+1 < len(ladder) {
			g.log.Debug("escalating proxy mode",
				"url", rawURL,
				"from", mode.String(),
				"to", ladder[i+1].String(),
				"error", err,
			)
			if g.metrics != nil {
				g.metrics.RecordEscalation(mode.String(), ladder[i+1].String())
			}
		}
	}

	return nil, fmt.Errorf("%w: %s: %w", ErrAllModesExhausted, host, lastErr)
}

// fetchMode runs the in-mode attempt budget. Transient failures are retried
// with a fixed backoff; anything else is returned to the ladder.
func (g *Gateway) fetchMode(ctx context.Context, rawURL string, mode Mode, opts Options) (*Response, error) {
	req := Request{
		URL:           rawURL,
		Mode:          mode,
		DisableJS:     opts.Binary,
		Timeout:       opts.Timeout,
		WaitAfterLoad: opts.WaitAfterLoad,
		BlockAds:      opts.BlockAds,
		BlockRes:      opts.BlockRes,
		CountryCode:   opts.CountryCode,
		JSScenario:    opts.JSScenario,
	}

	cfg := retry.Fixed(mode.attempts(), g.backoff)
	cfg.IsRetryable = func(err error) bool {
		return errors.Is(err, errRetryable)
	}

	var resp *Response
	err := retry.Do(ctx, cfg, func() error {
		attemptStart := time.Now()
		g.stats.recordRequest(mode)

		r, err := g.provider.Fetch(ctx, req)
		if err == nil {
			err = classifyStatus(r.StatusCode)
		}
		if err == nil && opts.Validator != nil && !opts.Validator(r.Body, rawURL) {
			err = fmt.Errorf("%w: %w: %s", errEscalate, ErrInvalidContent, rawURL)
		}

		if err != nil {
			g.stats.recordFailure(mode)
			g.recordFetch(mode, "failure", time.Since(attemptStart))
			return err
		}

		g.stats.recordSuccess(mode)
		g.recordFetch(mode, "success", time.Since(attemptStart))
		resp = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (g *Gateway) recordFetch(mode Mode, outcome string, d time.Duration) {
	if g.metrics != nil {
		g.metrics.RecordFetch(mode.String(), outcome, d)
	}
}
