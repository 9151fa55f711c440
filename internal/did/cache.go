package did

import (
	"sync"
	"time"

	"github.com/alechenninger/trustreg/internal/clock"
)

// DefaultCacheTTL is how long a successful resolution is reused
const DefaultCacheTTL = time.Hour

// Cache stores resolution results keyed by the raw DID string
type Cache interface {
	Get(did string) (*ResolutionResult, bool)
	Set(did string, result *ResolutionResult)
	Stats() CacheStats
	Clear()
}

// CacheStats describes the contents of a resolution cache
type CacheStats struct {
	Size int           `json:"size"`
	TTL  time.Duration `json:"ttl"`
	Type string        `json:"type"`
}

type cacheEntry struct {
	result    *ResolutionResult
	expiresAt time.Time
}

// MemoryCache is a process-local TTL cache. Expired entries are evicted
// when they are next looked up; there is no background sweep.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
	ttl     time.Duration
	clock   clock.Clock
}

// NewMemoryCache creates an in-memory cache. A zero ttl uses DefaultCacheTTL
// and a nil clock uses the system clock.
func NewMemoryCache(ttl time.Duration, clk clock.Clock) *MemoryCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if clk == nil {
		clk = clock.NewSystemClock()
	}
	return &MemoryCache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
		clock:   clk,
	}
}

func (c *MemoryCache) Get(did string) (*ResolutionResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[did]
	if !ok {
		return nil, false
	}
	if !c.clock.Now().Before(entry.expiresAt) {
		delete(c.entries, did)
		return nil, false
	}
	return entry.result, true
}

func (c *MemoryCache) Set(did string, result *ResolutionResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[did] = cacheEntry{
		result:    result,
		expiresAt: c.clock.Now().Add(c.ttl),
	}
}

// Stats counts stored entries, including expired ones not yet looked up
func (c *MemoryCache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return CacheStats{Size: len(c.entries), TTL: c.ttl, Type: "in_memory"}
}

func (c *MemoryCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.entries)
}
