package crawler_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/HariharanV1992/CrawlChat-sub000/internal/crawler"
	"github.com/HariharanV1992/CrawlChat-sub000/internal/logger"
)

func robotsFetch(body string, status int, err error) (crawler.RobotsFetchFunc, *atomic.Int64) {
	var calls atomic.Int64
	return func(_ context.Context, _ string) ([]byte, int, error) {
		calls.Add(1)
		return []byte(body), status, err
	}, &calls
}

func TestRobotsDisallowedPath(t *testing.T) {
	t.Parallel()

	fetch, _ := robotsFetch("User-agent: *\nDisallow: /admin\nDisallow: /reports/\n", 200, nil)
	checker := crawler.NewRobotsChecker(fetch, "", 0, logger.NewNoop())

	tests := []struct {
		url  string
		want bool
	}{
		{"https://example.com/admin/settings", false},
		{"https://example.com/reports/q1", false},
		{"https://example.com/news/today", true},
		{"https://example.com/", true},
	}
	for _, tt := range tests {
		if got := checker.IsAllowed(context.Background(), tt.url); got != tt.want {
			t.Errorf("IsAllowed(%s) = %v, want %v", tt.url, got, tt.want)
		}
	}
}

func TestRobotsMissingAllowsAll(t *testing.T) {
	t.Parallel()

	fetch, _ := robotsFetch("", 404, nil)
	checker := crawler.NewRobotsChecker(fetch, "", 0, logger.NewNoop())

	if !checker.IsAllowed(context.Background(), "https://example.com/anything") {
		t.Error("404 robots.txt should allow all")
	}
}

func TestRobotsFetchErrorAllowsAll(t *testing.T) {
	t.Parallel()

	fetch, _ := robotsFetch("", 0, errors.New("connection refused"))
	checker := crawler.NewRobotsChecker(fetch, "", 0, logger.NewNoop())

	if !checker.IsAllowed(context.Background(), "https://example.com/anything") {
		t.Error("unfetchable robots.txt should allow all")
	}
}

func TestRobotsCachedPerHost(t *testing.T) {
	t.Parallel()

	fetch, calls := robotsFetch("User-agent: *\nDisallow: /x\n", 200, nil)
	checker := crawler.NewRobotsChecker(fetch, "", 0, logger.NewNoop())

	checker.IsAllowed(context.Background(), "https://example.com/a")
	checker.IsAllowed(context.Background(), "https://example.com/b")
	checker.IsAllowed(context.Background(), "https://example.com/x")

	if got := calls.Load(); got != 1 {
		t.Errorf("robots.txt fetched %d times for one host, want 1", got)
	}

	checker.IsAllowed(context.Background(), "https://other.com/a")
	if got := calls.Load(); got != 2 {
		t.Errorf("robots.txt fetched %d times for two hosts, want 2", got)
	}
}

func TestRobotsAgentSpecificGroup(t *testing.T) {
	t.Parallel()

	body := "User-agent: CrawlChatBot\nDisallow: /blocked\n\nUser-agent: *\nDisallow: /\n"
	fetch, _ := robotsFetch(body, 200, nil)
	checker := crawler.NewRobotsChecker(fetch, "CrawlChatBot", 0, logger.NewNoop())

	if checker.IsAllowed(context.Background(), "https://example.com/blocked/page") {
		t.Error("agent-specific disallow was ignored")
	}
	if !checker.IsAllowed(context.Background(), "https://example.com/open") {
		t.Error("agent-specific group should take precedence over the wildcard deny")
	}
}
