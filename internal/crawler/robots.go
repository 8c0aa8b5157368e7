package crawler

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/temoto/robotstxt"

	"github.com/HariharanV1992/CrawlChat-sub000/internal/logger"
)

const (
	defaultRobotsCacheTTL = 24 * time.Hour
	robotsTxtPath         = "/robots.txt"
	maxRobotsBodyBytes    = 512 * 1024
	// DefaultUserAgent identifies the crawler to robots.txt groups.
	DefaultUserAgent = "CrawlChatBot"
)

// RobotsFetchFunc retrieves a robots.txt URL. The engine wires this to the
// proxy gateway's cheapest tier; robots files never need JS rendering.
type RobotsFetchFunc func(ctx context.Context, robotsURL string) (body []byte, statusCode int, err error)

// RobotsChecker checks and caches robots.txt rules per host. Missing,
// non-2xx, or unfetchable robots.txt means allow-all.
type RobotsChecker struct {
	fetch     RobotsFetchFunc
	userAgent string
	cacheTTL  time.Duration
	log       logger.Interface

	mu    sync.RWMutex
	cache map[string]*robotsEntry
}

type robotsEntry struct {
	data      *robotstxt.RobotsData
	fetchedAt time.Time
	allowAll  bool
}

// NewRobotsChecker creates a checker that fetches robots.txt through fetch.
func NewRobotsChecker(fetch RobotsFetchFunc, userAgent string, cacheTTL time.Duration, log logger.Interface) *RobotsChecker {
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	if cacheTTL <= 0 {
		cacheTTL = defaultRobotsCacheTTL
	}
	return &RobotsChecker{
		fetch:     fetch,
		userAgent: userAgent,
		cacheTTL:  cacheTTL,
		log:       log,
		cache:     make(map[string]*robotsEntry),
	}
}

// IsAllowed reports whether rawURL may be crawled under its host's
// robots.txt. Lookup and parse failures degrade to allow.
func (r *RobotsChecker) IsAllowed(ctx context.Context, rawURL string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return true
	}
	host := strings.ToLower(parsed.Host)

	entry := r.getEntry(ctx, host, parsed.Scheme)
	if entry.allowAll {
		return true
	}
	path := parsed.Path
	if path == "" {
		path = "/"
	}
	return entry.data.TestAgent(path, r.userAgent)
}

func (r *RobotsChecker) getEntry(ctx context.Context, host, scheme string) *robotsEntry {
	r.mu.RLock()
	entry, ok := r.cache[host]
	r.mu.RUnlock()
	if ok && time.Since(entry.fetchedAt) <= r.cacheTTL {
		return entry
	}
	return r.fetchAndCache(ctx, host, scheme)
}

func (r *RobotsChecker) fetchAndCache(ctx context.Context, host, scheme string) *robotsEntry {
	if scheme == "" {
		scheme = "https"
	}
	robotsURL := fmt.Sprintf("%s://%s%s", scheme, host, robotsTxtPath)

	entry := &robotsEntry{fetchedAt: time.Now(), allowAll: true}

	body, status, err := r.fetch(ctx, robotsURL)
	if err != nil {
		r.log.Debug("robots.txt fetch failed, allowing all", "host", host, "error", err)
	} else if status >= 200 && status < 300 {
		if len(body) > maxRobotsBodyBytes {
			body = body[:maxRobotsBodyBytes]
		}
		if data, parseErr := robotstxt.FromBytes(body); parseErr == nil {
			entry.data = data
			entry.allowAll = false
		} else {
			r.log.Debug("robots.txt unparseable, allowing all", "host", host, "error", parseErr)
		}
	}

	r.mu.Lock()
	r.cache[host] = entry
	r.mu.Unlock()
	return entry
}
