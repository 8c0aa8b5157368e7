package query

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/HariharanV1992/CrawlChat-sub000/internal/logger"
)

// Cache keys. Monetary keys store a canonical digit string (commas
// stripped); their _currency companions hold the symbol as it appeared.
const (
	KeyTakeHomeSalary = "take_home_salary"
	KeyGrossSalary    = "gross_salary"
	KeyLastQuery      = "last_query"
	KeyLastResponse   = "last_response"

	currencySuffix = "_currency"

	// DefaultNumericTTL bounds how long a cached figure can answer
	// follow-ups; stale salary math is worse than a fresh LLM call.
	DefaultNumericTTL = 30 * time.Minute
)

// knownNumericKeys is the full key set, used to purge a session.
var knownNumericKeys = []string{
	KeyTakeHomeSalary, KeyTakeHomeSalary + currencySuffix,
	KeyGrossSalary, KeyGrossSalary + currencySuffix,
	KeyLastQuery, KeyLastResponse,
}

// NumericContextCache holds per-session numeric values extracted from
// assistant replies so arithmetic follow-ups can be answered locally.
// Values live in Redis with a TTL; a process-local map takes over when
// Redis is unavailable, trading cross-process visibility for liveness.
type NumericContextCache struct {
	client *redis.Client
	ttl    time.Duration
	log    logger.Interface

	mu  sync.Mutex
	mem map[string]memEntry
}

type memEntry struct {
	value   string
	expires time.Time
}

// NewNumericContextCache builds the cache. client may be nil for a
// memory-only cache (tests, single-process deployments).
func NewNumericContextCache(client *redis.Client, ttl time.Duration, log logger.Interface) *NumericContextCache {
	if ttl <= 0 {
		ttl = DefaultNumericTTL
	}
	return &NumericContextCache{
		client: client,
		ttl:    ttl,
		log:    log,
		mem:    make(map[string]memEntry),
	}
}

func numericRedisKey(sessionID, key string) string {
	return "numctx:" + sessionID + ":" + key
}

func numericMemKey(sessionID, key string) string {
	return sessionID + "\x00" + key
}

// Set stores a value under the session with the cache TTL.
func (c *NumericContextCache) Set(ctx context.Context, sessionID, key, value string) {
	if c.client != nil {
		err := c.client.Set(ctx, numericRedisKey(sessionID, key), value, c.ttl).Err()
		if err == nil {
			return
		}
		c.log.Warn("numeric cache redis set failed, using memory", "key", key, "error", err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mem[numericMemKey(sessionID, key)] = memEntry{value: value, expires: time.Now().Add(c.ttl)}
}

// Get returns the cached value if present and unexpired.
func (c *NumericContextCache) Get(ctx context.Context, sessionID, key string) (string, bool) {
	if c.client != nil {
		value, err := c.client.Get(ctx, numericRedisKey(sessionID, key)).Result()
		if err == nil {
			return value, true
		}
		if !errors.Is(err, redis.Nil) {
			c.log.Warn("numeric cache redis get failed, using memory", "key", key, "error", err)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.mem[numericMemKey(sessionID, key)]
	if !ok {
		return "", false
	}
	if time.Now().After(entry.expires) {
		delete(c.mem, numericMemKey(sessionID, key))
		return "", false
	}
	return entry.value, true
}

// Purge removes every cached value for the session.
func (c *NumericContextCache) Purge(ctx context.Context, sessionID string) {
	if c.client != nil {
		keys := make([]string, len(knownNumericKeys))
		for i, key := range knownNumericKeys {
			keys[i] = numericRedisKey(sessionID, key)
		}
		if err := c.client.Del(ctx, keys...).Err(); err != nil {
			c.log.Warn("numeric cache redis purge failed", "session_id", sessionID, "error", err)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	prefix := sessionID + "\x00"
	for key := range c.mem {
		if strings.HasPrefix(key, prefix) {
			delete(c.mem, key)
		}
	}
}

// Sweep evicts expired memory entries and reports how many were removed.
// Redis entries expire on their own; this covers the fallback map.
func (c *NumericContextCache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	removed := 0
	for key, entry := range c.mem {
		if now.After(entry.expires) {
			delete(c.mem, key)
			removed++
		}
	}
	return removed
}

// Labelled-amount extraction. The gap between the label and the figure
// tolerates filler words but never digits or currency symbols, so the
// captured symbol is the one attached to the figure.
var (
	takeHomePattern = regexp.MustCompile(`(?i)take[\s-]*home\s+(?:salary|pay|income)[^\d\p{Sc}]{0,60}(\p{Sc}?)\s*([0-9][0-9,]*(?:\.[0-9]+)?)`)
	grossPattern    = regexp.MustCompile(`(?i)gross\s+(?:salary|pay|income)[^\d\p{Sc}]{0,60}(\p{Sc}?)\s*([0-9][0-9,]*(?:\.[0-9]+)?)`)
)

// CaptureResponse records the turn and harvests labelled monetary figures
// from the assistant reply for later arithmetic shortcuts.
func (c *NumericContextCache) CaptureResponse(ctx context.Context, sessionID, queryText, response string) {
	c.Set(ctx, sessionID, KeyLastQuery, queryText)
	c.Set(ctx, sessionID, KeyLastResponse, response)

	if m := takeHomePattern.FindStringSubmatch(response); m != nil {
		c.Set(ctx, sessionID, KeyTakeHomeSalary, strings.ReplaceAll(m[2], ",", ""))
		c.Set(ctx, sessionID, KeyTakeHomeSalary+currencySuffix, m[1])
		c.log.Debug("cached take-home figure", "session_id", sessionID)
	}
	if m := grossPattern.FindStringSubmatch(response); m != nil {
		c.Set(ctx, sessionID, KeyGrossSalary, strings.ReplaceAll(m[2], ",", ""))
		c.Set(ctx, sessionID, KeyGrossSalary+currencySuffix, m[1])
		c.log.Debug("cached gross figure", "session_id", sessionID)
	}
}
