package proxy_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/HariharanV1992/CrawlChat-sub000/internal/logger"
	"github.com/HariharanV1992/CrawlChat-sub000/internal/proxy"
)

type fakeProvider struct {
	fetchFunc func(ctx context.Context, req proxy.Request) (*proxy.Response, error)
}

func (f *fakeProvider) Fetch(ctx context.Context, req proxy.Request) (*proxy.Response, error) {
	return f.fetchFunc(ctx, req)
}

func respond(req proxy.Request, status int, body string) *proxy.Response {
	return &proxy.Response{
		URL:        req.URL,
		StatusCode: status,
		Body:       []byte(body),
		Mode:       req.Mode,
		FetchedAt:  time.Now(),
	}
}

func TestGateway_EscalatesUntilSuccess(t *testing.T) {
	t.Parallel()

	var calls []proxy.Mode
	provider := &fakeProvider{
		fetchFunc: func(_ context.Context, req proxy.Request) (*proxy.Response, error) {
			calls = append(calls, req.Mode)
			if req.Mode == proxy.ModePremium {
				return respond(req, http.StatusOK, "<html><body>ok</body></html>"), nil
			}
			return respond(req, http.StatusForbidden, "blocked"), nil
		},
	}
	gw := proxy.NewGateway(provider, nil, logger.NewNoop(), nil)

	resp, err := gw.Fetch(context.Background(), "https://blocked.example.com/page", proxy.Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Mode != proxy.ModePremium {
		t.Errorf("winning mode = %s, want premium", resp.Mode)
	}

	wantCalls := []proxy.Mode{proxy.ModeNoJS, proxy.ModeStandard, proxy.ModePremium}
	if len(calls) != len(wantCalls) {
		t.Fatalf("calls = %v, want %v", calls, wantCalls)
	}
	for i, mode := range wantCalls {
		if calls[i] != mode {
			t.Errorf("call %d = %s, want %s", i, calls[i], mode)
		}
	}

	stats := gw.Stats().Snapshot()
	if stats["nojs"].Failures != 1 || stats["standard"].Failures != 1 {
		t.Errorf("failure counters = %+v, want one failure each for nojs and standard", stats)
	}
	if stats["premium"].Successes != 1 {
		t.Errorf("premium successes = %d, want 1", stats["premium"].Successes)
	}
	if stats["stealth"].Requests != 0 {
		t.Errorf("stealth requests = %d, want 0", stats["stealth"].Requests)
	}
}

func TestGateway_CachedModeSkipsCheaperTiers(t *testing.T) {
	t.Parallel()

	var calls []proxy.Mode
	provider := &fakeProvider{
		fetchFunc: func(_ context.Context, req proxy.Request) (*proxy.Response, error) {
			calls = append(calls, req.Mode)
			if req.Mode >= proxy.ModePremium {
				return respond(req, http.StatusOK, "ok"), nil
			}
			return respond(req, http.StatusForbidden, "blocked"), nil
		},
	}
	gw := proxy.NewGateway(provider, nil, logger.NewNoop(), nil)

	if _, err := gw.Fetch(context.Background(), "https://host.example.com/a", proxy.Options{}); err != nil {
		t.Fatalf("first fetch: %v", err)
	}

	calls = nil
	if _, err := gw.Fetch(context.Background(), "https://host.example.com/b", proxy.Options{}); err != nil {
		t.Fatalf("second fetch: %v", err)
	}
	if len(calls) != 1 || calls[0] != proxy.ModePremium {
		t.Errorf("second fetch calls = %v, want exactly one premium call", calls)
	}
}

func TestGateway_PermanentFailureDoesNotEscalate(t *testing.T) {
	t.Parallel()

	var calls int
	provider := &fakeProvider{
		fetchFunc: func(_ context.Context, req proxy.Request) (*proxy.Response, error) {
			calls++
			return respond(req, http.StatusNotFound, "not found"), nil
		},
	}
	gw := proxy.NewGateway(provider, nil, logger.NewNoop(), nil)

	_, err := gw.Fetch(context.Background(), "https://gone.example.com/missing", proxy.Options{})
	if !errors.Is(err, proxy.ErrPermanent) {
		t.Fatalf("error = %v, want ErrPermanent", err)
	}
	if calls != 1 {
		t.Errorf("provider calls = %d, want 1", calls)
	}
}

func TestGateway_ValidatorRejectionEscalates(t *testing.T) {
	t.Parallel()

	var calls []proxy.Mode
	provider := &fakeProvider{
		fetchFunc: func(_ context.Context, req proxy.Request) (*proxy.Response, error) {
			calls = append(calls, req.Mode)
			if req.Mode == proxy.ModeStandard {
				return respond(req, http.StatusOK, "<html><body>full page</body></html>"), nil
			}
			return respond(req, http.StatusOK, "stub"), nil
		},
	}
	gw := proxy.NewGateway(provider, nil, logger.NewNoop(), nil)

	opts := proxy.Options{
		Validator: func(body []byte, _ string) bool {
			return len(body) > 10
		},
	}
	resp, err := gw.Fetch(context.Background(), "https://js.example.com/page", opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Mode != proxy.ModeStandard {
		t.Errorf("winning mode = %s, want standard after validator rejected nojs body", resp.Mode)
	}
	if len(calls) != 2 {
		t.Errorf("calls = %v, want nojs then standard", calls)
	}
}

func TestGateway_AllModesExhausted(t *testing.T) {
	t.Parallel()

	provider := &fakeProvider{
		fetchFunc: func(_ context.Context, req proxy.Request) (*proxy.Response, error) {
			return respond(req, http.StatusForbidden, "blocked"), nil
		},
	}
	gw := proxy.NewGateway(provider, nil, logger.NewNoop(), nil)

	_, err := gw.Fetch(context.Background(), "https://fort.example.com/", proxy.Options{})
	if !errors.Is(err, proxy.ErrAllModesExhausted) {
		t.Fatalf("error = %v, want ErrAllModesExhausted", err)
	}
}

func TestGateway_ForceModeSkipsLadder(t *testing.T) {
	t.Parallel()

	var calls []proxy.Mode
	provider := &fakeProvider{
		fetchFunc: func(_ context.Context, req proxy.Request) (*proxy.Response, error) {
			calls = append(calls, req.Mode)
			return respond(req, http.StatusOK, "ok"), nil
		},
	}
	gw := proxy.NewGateway(provider, nil, logger.NewNoop(), nil)

	mode := proxy.ModeStealth
	_, err := gw.Fetch(context.Background(), "https://any.example.com/", proxy.Options{ForceMode: &mode})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(calls) != 1 || calls[0] != proxy.ModeStealth {
		t.Errorf("calls = %v, want exactly one stealth call", calls)
	}
}

func TestGateway_BinarySkipsRenderingTier(t *testing.T) {
	t.Parallel()

	var calls []proxy.Request
	provider := &fakeProvider{
		fetchFunc: func(_ context.Context, req proxy.Request) (*proxy.Response, error) {
			calls = append(calls, req)
			if req.Mode == proxy.ModePremium {
				return respond(req, http.StatusOK, "%PDF-1.4 ..."), nil
			}
			return respond(req, http.StatusForbidden, "blocked"), nil
		},
	}
	gw := proxy.NewGateway(provider, nil, logger.NewNoop(), nil)

	_, err := gw.Fetch(context.Background(), "https://files.example.com/report.pdf", proxy.Options{Binary: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(calls) != 2 {
		t.Fatalf("calls = %d, want 2 (nojs then premium, no standard)", len(calls))
	}
	if calls[0].Mode != proxy.ModeNoJS || calls[1].Mode != proxy.ModePremium {
		t.Errorf("ladder = [%s %s], want [nojs premium]", calls[0].Mode, calls[1].Mode)
	}
	for _, call := range calls {
		if !call.DisableJS {
			t.Errorf("binary fetch at %s should disable JS", call.Mode)
		}
	}
}

func TestGateway_ContextCancellationAborts(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	provider := &fakeProvider{
		fetchFunc: func(_ context.Context, req proxy.Request) (*proxy.Response, error) {
			cancel()
			return respond(req, http.StatusForbidden, "blocked"), nil
		},
	}
	gw := proxy.NewGateway(provider, nil, logger.NewNoop(), nil)

	_, err := gw.Fetch(ctx, "https://slow.example.com/", proxy.Options{})
	if err == nil {
		t.Fatal("expected error after context cancellation")
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled in chain", err)
	}
}

func TestHostCache_Expiry(t *testing.T) {
	t.Parallel()

	cache := proxy.NewHostCache(10 * time.Millisecond)
	cache.Set("example.com", proxy.ModeStealth)

	if mode, ok := cache.Get("example.com"); !ok || mode != proxy.ModeStealth {
		t.Fatalf("fresh entry = (%v, %v), want (stealth, true)", mode, ok)
	}

	time.Sleep(20 * time.Millisecond)
	if _, ok := cache.Get("example.com"); ok {
		t.Error("expired entry still returned")
	}
}

func TestParseMode_RoundTrip(t *testing.T) {
	t.Parallel()

	for _, mode := range []proxy.Mode{proxy.ModeNoJS, proxy.ModeStandard, proxy.ModePremium, proxy.ModeStealth} {
		if got := proxy.ParseMode(mode.String()); got != mode {
			t.Errorf("ParseMode(%q) = %v, want %v", mode.String(), got, mode)
		}
	}
	if got := proxy.ParseMode("bogus"); got != proxy.ModeNoJS {
		t.Errorf("ParseMode(bogus) = %v, want nojs fallback", got)
	}
}
