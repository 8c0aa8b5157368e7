package proxy

import (
	"sync"
	"time"
)

// HostCache remembers the cheapest mode known to work per host. Entries
// expire so a host that stops requiring an expensive tier gets re-probed.
type HostCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]hostEntry
}

type hostEntry struct {
	mode      Mode
	expiresAt time.Time
}

// NewHostCache creates a cache whose entries live for ttl. A zero ttl keeps
// entries for one hour.
func NewHostCache(ttl time.Duration) *HostCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &HostCache{
		ttl:     ttl,
		entries: make(map[string]hostEntry),
	}
}

// Get returns the cached mode for host, if present and fresh.
func (c *HostCache) Get(host string) (Mode, bool) {
	c.mu.RLock()
	entry, ok := c.entries[host]
	c.mu.RUnlock()
	if !ok || time.Now().After(entry.expiresAt) {
		return ModeNoJS, false
	}
	return entry.mode, true
}

// Set records the winning mode for host. Writes are idempotent.
func (c *HostCache) Set(host string, mode Mode) {
	c.mu.Lock()
	c.entries[host] = hostEntry{mode: mode, expiresAt: time.Now().Add(c.ttl)}
	c.mu.Unlock()
}

// Len reports live entries, expired ones included until their next Get.
func (c *HostCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
