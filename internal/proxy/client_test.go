package proxy_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/HariharanV1992/CrawlChat-sub000/internal/proxy"
)

func TestClient_BuildsProviderQuery(t *testing.T) {
	t.Parallel()

	var gotQuery url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html></html>"))
	}))
	defer srv.Close()

	client := proxy.NewClient(proxy.ClientConfig{
		APIKey:      "test-key",
		BaseURL:     srv.URL,
		CountryCode: "usa",
	})

	resp, err := client.Fetch(context.Background(), proxy.Request{
		URL:           "https://target.example.com/page",
		Mode:          proxy.ModePremium,
		Timeout:       30 * time.Second,
		WaitAfterLoad: 2 * time.Second,
		BlockAds:      true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}

	checks := map[string]string{
		"api_key":       "test-key",
		"url":           "https://target.example.com/page",
		"render_js":     "true",
		"premium_proxy": "true",
		"country_code":  "usa",
		"timeout":       "30000",
		"wait":          "2000",
		"block_ads":     "true",
	}
	for param, want := range checks {
		if got := gotQuery.Get(param); got != want {
			t.Errorf("query %s = %q, want %q", param, got, want)
		}
	}
	if gotQuery.Get("stealth_proxy") != "" {
		t.Error("premium request should not set stealth_proxy")
	}
}

func TestClient_NoJSModeDisablesRendering(t *testing.T) {
	t.Parallel()

	var gotQuery url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	client := proxy.NewClient(proxy.ClientConfig{APIKey: "k", BaseURL: srv.URL})
	_, err := client.Fetch(context.Background(), proxy.Request{
		URL:  "https://target.example.com/doc.pdf",
		Mode: proxy.ModeNoJS,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := gotQuery.Get("render_js"); got != "false" {
		t.Errorf("render_js = %q, want false", got)
	}
}

func TestClient_StealthBinaryDisablesRendering(t *testing.T) {
	t.Parallel()

	var gotQuery url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		_, _ = w.Write([]byte("%PDF-"))
	}))
	defer srv.Close()

	client := proxy.NewClient(proxy.ClientConfig{APIKey: "k", BaseURL: srv.URL})
	_, err := client.Fetch(context.Background(), proxy.Request{
		URL:       "https://target.example.com/doc.pdf",
		Mode:      proxy.ModeStealth,
		DisableJS: true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := gotQuery.Get("render_js"); got != "false" {
		t.Errorf("render_js = %q, want false for binary stealth fetch", got)
	}
	if got := gotQuery.Get("stealth_proxy"); got != "true" {
		t.Errorf("stealth_proxy = %q, want true", got)
	}
}

func TestClient_JSScenarioSerialized(t *testing.T) {
	t.Parallel()

	var gotQuery url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	client := proxy.NewClient(proxy.ClientConfig{APIKey: "k", BaseURL: srv.URL})
	_, err := client.Fetch(context.Background(), proxy.Request{
		URL:  "https://target.example.com/",
		Mode: proxy.ModeStandard,
		JSScenario: []proxy.Instruction{
			{"click": "#load-more"},
			{"wait": 500},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	scenario := gotQuery.Get("js_scenario")
	if scenario == "" {
		t.Fatal("js_scenario param missing")
	}
	for _, want := range []string{"instructions", "click", "#load-more", "wait"} {
		if !strings.Contains(scenario, want) {
			t.Errorf("js_scenario %q missing %q", scenario, want)
		}
	}
}
