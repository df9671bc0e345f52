// CivicVoice | 2026
// cache_test.go

package cache

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock lets tests move time forward without sleeping.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func newTestCache(clock *fakeClock) *Cache {
	return New(Options{
		DefaultTTL:     600 * time.Second,
		Clock:          clock.Now,
		DisableJanitor: true,
	})
}

func TestSetGet(t *testing.T) {
	t.Parallel()

	c := newTestCache(newFakeClock())

	c.Set("user:1", "alice")

	got, ok := c.Get("user:1")
	require.True(t, ok)
	assert.Equal(t, "alice", got)
}

func TestGetMiss(t *testing.T) {
	t.Parallel()

	c := newTestCache(newFakeClock())

	got, ok := c.Get("user:missing")
	assert.False(t, ok)
	assert.Nil(t, got)
}

func TestEntryExpiresAfterTTL(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	c := newTestCache(clock)

	c.SetTTL("user:1", "alice", 300*time.Second)

	clock.Advance(299 * time.Second)
	_, ok := c.Get("user:1")
	require.True(t, ok, "entry must be live just before TTL")

	clock.Advance(2 * time.Second)
	_, ok = c.Get("user:1")
	assert.False(t, ok, "entry must be gone after TTL")
}

func TestSetOverwritesAndRefreshesTTL(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	c := newTestCache(clock)

	c.SetTTL("user:1", "old", 300*time.Second)
	clock.Advance(200 * time.Second)
	c.SetTTL("user:1", "new", 300*time.Second)

	clock.Advance(200 * time.Second)
	got, ok := c.Get("user:1")
	require.True(t, ok)
	assert.Equal(t, "new", got)
}

func TestDeleteReturnsCount(t *testing.T) {
	t.Parallel()

	c := newTestCache(newFakeClock())

	c.Set("a", 1)
	c.Set("b", 2)

	assert.Equal(t, 2, c.Delete("a", "b", "c"))
	assert.False(t, c.Has("a"))
}

func TestFlushAll(t *testing.T) {
	t.Parallel()

	c := newTestCache(newFakeClock())

	c.Set("a", 1)
	c.Set("b", 2)
	c.FlushAll()

	assert.Empty(t, c.Keys())
}

func TestKeysSkipsExpired(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	c := newTestCache(clock)

	c.SetTTL("short", 1, 10*time.Second)
	c.SetTTL("long", 2, 600*time.Second)

	clock.Advance(60 * time.Second)

	keys := c.Keys()
	assert.Equal(t, []string{"long"}, keys)
}

func TestSweepRemovesExpiredEntries(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	c := newTestCache(clock)

	c.SetTTL("a", 1, 10*time.Second)
	c.SetTTL("b", 2, 600*time.Second)

	clock.Advance(30 * time.Second)
	c.sweep()

	stats := c.Stats()
	assert.Equal(t, 1, stats.Keys)
	assert.True(t, c.Has("b"))
}

func TestStatsCountsHitsAndMisses(t *testing.T) {
	t.Parallel()

	c := newTestCache(newFakeClock())

	c.Set("a", 1)
	c.Get("a")
	c.Get("a")
	c.Get("nope")

	stats := c.Stats()
	assert.Equal(t, uint64(2), stats.Hits)
	assert.Equal(t, uint64(1), stats.Misses)
	assert.Equal(t, 1, stats.Keys)
}

func TestCloseIsIdempotent(t *testing.T) {
	t.Parallel()

	c := New(Options{Clock: newFakeClock().Now})
	c.Close()
	c.Close()
}

func TestConcurrentAccess(t *testing.T) {
	t.Parallel()

	c := newTestCache(newFakeClock())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.Set("shared", j)
				c.Get("shared")
				c.Has("shared")
			}
		}()
	}
	wg.Wait()

	_, ok := c.Get("shared")
	assert.True(t, ok)
}
