// Package cache holds rendered public listings (team lists, schedules) in
// memory, keyed by prefix so writers can drop a whole family at once.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"slices"
	"strings"
	"sync"
	"time"
)

const (
	TTLTeams    = 5 * time.Minute
	TTLSchedule = 2 * time.Minute

	PrefixTeams    = "teams:"
	PrefixSchedule = "schedule:"

	sweepEvery = 5 * time.Minute
)

type item struct {
	body    []byte
	etag    string
	expires time.Time
}

// Cache maps keys to response bodies until their TTL passes. A disabled
// Cache stores nothing but still computes ETags.
type Cache struct {
	mu        sync.Mutex
	items     map[string]item
	lastSweep time.Time
	now       func() time.Time
}

// Stats is the snapshot reported on the health endpoint.
type Stats struct {
	Enabled bool `json:"enabled"`
	Keys    int  `json:"total_keys"`
	Live    int  `json:"active_keys"`
	Stale   int  `json:"expired_keys"`
}

// New returns a cache; with enabled false every Get misses.
func New(enabled bool) *Cache {
	c := &Cache{now: time.Now}
	if enabled {
		c.items = map[string]item{}
		c.lastSweep = c.now()
	}
	return c
}

// Get returns the body and ETag stored under key while it is fresh.
func (c *Cache) Get(key string) ([]byte, string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	it, ok := c.items[key]
	if !ok {
		return nil, "", false
	}
	if !c.now().Before(it.expires) {
		delete(c.items, key)
		return nil, "", false
	}
	return it.body, it.etag, true
}

// Set stores body for ttl and returns its ETag. Expired entries are swept
// here at most once per sweepEvery.
func (c *Cache) Set(key string, body []byte, ttl time.Duration) string {
	tag := ComputeETag(body)
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.items == nil {
		return tag
	}
	now := c.now()
	if now.Sub(c.lastSweep) >= sweepEvery {
		for k, it := range c.items {
			if !now.Before(it.expires) {
				delete(c.items, k)
			}
		}
		c.lastSweep = now
	}
	c.items[key] = item{body: body, etag: tag, expires: now.Add(ttl)}
	return tag
}

// Invalidate removes every key with the given prefix and reports the count.
func (c *Cache) Invalidate(prefix string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for k := range c.items {
		if strings.HasPrefix(k, prefix) {
			delete(c.items, k)
			n++
		}
	}
	return n
}

func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := Stats{Enabled: c.items != nil, Keys: len(c.items)}
	now := c.now()
	for _, it := range c.items {
		if now.Before(it.expires) {
			s.Live++
		}
	}
	s.Stale = s.Keys - s.Live
	return s
}

// ComputeETag returns a weak validator derived from the body.
func ComputeETag(body []byte) string {
	sum := sha256.Sum256(body)
	return `W/"` + hex.EncodeToString(sum[:8]) + `"`
}

// CheckETagMatch reports whether an If-None-Match header names etag or "*".
func CheckETagMatch(ifNoneMatch, etag string) bool {
	tags := strings.Split(ifNoneMatch, ",")
	for i := range tags {
		tags[i] = strings.TrimSpace(tags[i])
	}
	return ifNoneMatch != "" && (slices.Contains(tags, "*") || slices.Contains(tags, etag))
}
