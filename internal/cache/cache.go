// CivicVoice | 2026
// cache.go

package cache

import (
	"log/slog"
	"sync"
	"time"
)

// Cache is a process-local key/value store with per-entry TTLs. It is a
// performance accelerator, never a store of record: a miss is always a
// safe answer, and internal faults degrade to misses. Eviction is
// TTL-only (periodic janitor sweep), with no size bound.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]entry

	defaultTTL time.Duration
	now        func() time.Time
	stopJanitor chan struct{}

	hits   uint64
	misses uint64
}

type entry struct {
	value     any
	expiresAt time.Time
}

const (
	DefaultTTL           = 600 * time.Second
	DefaultSweepInterval = 120 * time.Second
)

// Options configures a Cache. The zero value gives the production
// defaults; tests inject Clock and disable the janitor with a zero
// SweepInterval plus DisableJanitor.
type Options struct {
	DefaultTTL     time.Duration
	SweepInterval  time.Duration
	Clock          func() time.Time
	DisableJanitor bool
}

func New(opts Options) *Cache {
	if opts.DefaultTTL <= 0 {
		opts.DefaultTTL = DefaultTTL
	}
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = DefaultSweepInterval
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}

	c := &Cache{
		entries:     make(map[string]entry),
		defaultTTL:  opts.DefaultTTL,
		now:         opts.Clock,
		stopJanitor: make(chan struct{}),
	}

	if !opts.DisableJanitor {
		go c.janitor(opts.SweepInterval)
	}

	return c
}

// Close stops the janitor goroutine. Entries remain readable until they
// expire lazily on access.
func (c *Cache) Close() {
	select {
	case <-c.stopJanitor:
	default:
		close(c.stopJanitor)
	}
}

// Get returns the live value for key, or (nil, false) on a miss or an
// expired entry.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok || c.expired(e) {
		c.mu.Lock()
		c.misses++
		c.mu.Unlock()
		return nil, false
	}

	c.mu.Lock()
	c.hits++
	c.mu.Unlock()
	return e.value, true
}

// Set stores value under key with the default TTL.
func (c *Cache) Set(key string, value any) {
	c.SetTTL(key, value, c.defaultTTL)
}

// SetTTL stores value under key, replacing any live entry. A
// non-positive ttl falls back to the default.
func (c *Cache) SetTTL(key string, value any, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	c.mu.Lock()
	c.entries[key] = entry{
		value:     value,
		expiresAt: c.now().Add(ttl),
	}
	c.mu.Unlock()
}

// Delete removes the given keys and returns how many live entries were
// removed.
func (c *Cache) Delete(keys ...string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for _, key := range keys {
		if e, ok := c.entries[key]; ok {
			if !c.expired(e) {
				removed++
			}
			delete(c.entries, key)
		}
	}
	return removed
}

// FlushAll drops every entry.
func (c *Cache) FlushAll() {
	c.mu.Lock()
	c.entries = make(map[string]entry)
	c.mu.Unlock()
	slog.Debug("cache flushed")
}

// Has reports whether a live entry exists for key without counting a
// hit or miss.
func (c *Cache) Has(key string) bool {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	return ok && !c.expired(e)
}

// Keys returns the keys of all live entries, in no particular order.
func (c *Cache) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	keys := make([]string, 0, len(c.entries))
	for key, e := range c.entries {
		if !c.expired(e) {
			keys = append(keys, key)
		}
	}
	return keys
}

type Stats struct {
	Hits   uint64 `json:"hits"`
	Misses uint64 `json:"misses"`
	Keys   int    `json:"keys"`
}

func (c *Cache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	keys := 0
	for _, e := range c.entries {
		if !c.expired(e) {
			keys++
		}
	}

	return Stats{Hits: c.hits, Misses: c.misses, Keys: keys}
}

func (c *Cache) expired(e entry) bool {
	return c.now().After(e.expiresAt)
}

func (c *Cache) janitor(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.sweep()
		case <-c.stopJanitor:
			return
		}
	}
}

// sweep deletes expired entries. Exported behavior is unaffected by
// sweep timing: Get and Has treat expired entries as absent regardless.
func (c *Cache) sweep() {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, e := range c.entries {
		if c.expired(e) {
			delete(c.entries, key)
			removed++
		}
	}

	if removed > 0 {
		slog.Debug("cache sweep", "expired", removed)
	}
}
