package proxy

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/HariharanV1992/CrawlChat-sub000/internal/logger"
)

type scriptedProvider struct {
	statuses []int
	calls    int
}

func (p *scriptedProvider) Fetch(_ context.Context, req Request) (*Response, error) {
	status := p.statuses[p.calls]
	p.calls++
	return &Response{URL: req.URL, StatusCode: status, Body: []byte("body"), Mode: req.Mode}, nil
}

func TestFetchMode_RetriesTransientWithinMode(t *testing.T) {
	t.Parallel()

	// First attempt 503, second 200, both within the nojs budget of 2.
	provider := &scriptedProvider{statuses: []int{http.StatusServiceUnavailable, http.StatusOK}}
	gw := NewGateway(provider, nil, logger.NewNoop(), nil)
	gw.backoff = time.Millisecond

	resp, err := gw.Fetch(context.Background(), "https://flaky.example.com/", Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Mode != ModeNoJS {
		t.Errorf("mode = %s, want nojs (no escalation for in-budget transient)", resp.Mode)
	}
	if provider.calls != 2 {
		t.Errorf("provider calls = %d, want 2", provider.calls)
	}
}

func TestFetchMode_TransientExhaustionEscalates(t *testing.T) {
	t.Parallel()

	// nojs budget (2) exhausted on 503s, then standard succeeds first try.
	provider := &scriptedProvider{statuses: []int{
		http.StatusServiceUnavailable,
		http.StatusServiceUnavailable,
		http.StatusOK,
	}}
	gw := NewGateway(provider, nil, logger.NewNoop(), nil)
	gw.backoff = time.Millisecond

	resp, err := gw.Fetch(context.Background(), "https://flaky.example.com/", Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Mode != ModeStandard {
		t.Errorf("mode = %s, want standard after nojs budget exhausted", resp.Mode)
	}
	if provider.calls != 3 {
		t.Errorf("provider calls = %d, want 3", provider.calls)
	}
}

func TestLadderFor_StartsAtCachedMode(t *testing.T) {
	t.Parallel()

	ladder := ladderFor(Options{}, ModePremium)
	if len(ladder) != 2 || ladder[0] != ModePremium || ladder[1] != ModeStealth {
		t.Errorf("ladder = %v, want [premium stealth]", ladder)
	}
}

func TestLadderFor_RenderJSStartsAtStandard(t *testing.T) {
	t.Parallel()

	ladder := ladderFor(Options{RenderJS: true}, ModeNoJS)
	if len(ladder) != 3 || ladder[0] != ModeStandard {
		t.Errorf("ladder = %v, want [standard premium stealth]", ladder)
	}
}

func TestCapLadder(t *testing.T) {
	t.Parallel()

	full := []Mode{ModeNoJS, ModeStandard, ModePremium, ModeStealth}
	if got := capLadder(full, ModeStealth); len(got) != 4 {
		t.Errorf("stealth ceiling should keep the full ladder, got %v", got)
	}
	if got := capLadder(full, ModeNoJS); len(got) != 1 || got[0] != ModeNoJS {
		t.Errorf("nojs ceiling: got %v, want [nojs]", got)
	}
	// A ladder entirely above the ceiling collapses to the ceiling.
	if got := capLadder([]Mode{ModeStandard, ModePremium}, ModeNoJS); len(got) != 1 || got[0] != ModeNoJS {
		t.Errorf("render ladder under nojs ceiling: got %v, want [nojs]", got)
	}
}
