package did

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang/groupcache"

	"github.com/alechenninger/trustreg/internal/clock"
)

// DistributedConfig configures a DistributedResolver
type DistributedConfig struct {
	// GroupName is the groupcache group name, unique per process
	GroupName string

	// CacheSizeBytes is the maximum size of the cache in bytes.
	// Default: 16MB
	CacheSizeBytes int64

	// TTL is the width of the time bucket results are cached under.
	// Default: DefaultCacheTTL
	TTL time.Duration

	Clock clock.Clock
}

// DistributedResolver caches another resolver's valid results in a
// groupcache group, so peers in a pool share resolutions.
//
// groupcache has no expiry, so keys carry the current TTL bucket and a
// result is reused until the bucket rolls over. ClearCache bumps a key
// generation; old entries are left for the LRU to evict.
type DistributedResolver struct {
	inner Resolver
	group *groupcache.Group
	ttl   time.Duration
	clock clock.Clock

	mu         sync.Mutex
	generation uint64
	// seen tracks locally requested DIDs and when their bucket ends, for Stats
	seen map[string]time.Time
}

var _ Resolver = (*DistributedResolver)(nil)

// notCacheableError carries a result that must not be stored
// (an invalid DID) back out of the groupcache getter
type notCacheableError struct {
	result *ResolutionResult
}

func (e *notCacheableError) Error() string {
	return "resolution not cacheable: " + e.result.Error
}

// NewDistributedResolver wraps inner, which should not cache itself
func NewDistributedResolver(inner Resolver, cfg DistributedConfig) (*DistributedResolver, error) {
	if cfg.GroupName == "" {
		cfg.GroupName = "did-resolution"
	}
	if cfg.CacheSizeBytes <= 0 {
		cfg.CacheSizeBytes = 16 << 20
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultCacheTTL
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.NewSystemClock()
	}
	if groupcache.GetGroup(cfg.GroupName) != nil {
		return nil, fmt.Errorf("groupcache group %q already registered", cfg.GroupName)
	}

	d := &DistributedResolver{
		inner: inner,
		ttl:   cfg.TTL,
		clock: cfg.Clock,
		seen:  make(map[string]time.Time),
	}

	// May run on a different peer than the one that received the request
	getter := groupcache.GetterFunc(func(ctx context.Context, key string, dest groupcache.Sink) error {
		did, err := didFromCacheKey(key)
		if err != nil {
			return err
		}
		result := inner.Resolve(ctx, did)
		if !result.Valid {
			return &notCacheableError{result: result}
		}
		data, err := json.Marshal(result)
		if err != nil {
			return fmt.Errorf("failed to marshal resolution result: %w", err)
		}
		return dest.SetBytes(data)
	})

	d.group = groupcache.NewGroup(cfg.GroupName, cfg.CacheSizeBytes, getter)
	return d, nil
}

func (d *DistributedResolver) Resolve(ctx context.Context, did string) *ResolutionResult {
	now := d.clock.Now()
	bucket := roundTimeToInterval(now, d.ttl)

	d.mu.Lock()
	key := cacheKey(d.generation, bucket, did)
	d.mu.Unlock()

	var data []byte
	err := d.group.Get(ctx, key, groupcache.AllocatingByteSliceSink(&data))

	var nc *notCacheableError
	if errors.As(err, &nc) {
		return nc.result
	}
	if err != nil {
		// Peer failure; resolve locally without caching
		return d.inner.Resolve(ctx, did)
	}

	var result ResolutionResult
	if err := json.Unmarshal(data, &result); err != nil {
		return d.inner.Resolve(ctx, did)
	}

	d.mu.Lock()
	d.seen[did] = bucket.Add(d.ttl)
	d.mu.Unlock()

	return &result
}

// CacheStats reports entries this process has requested in the current
// bucket. Entries held on behalf of peers are not counted.
func (d *DistributedResolver) CacheStats() CacheStats {
	now := d.clock.Now()

	d.mu.Lock()
	defer d.mu.Unlock()

	size := 0
	for did, expires := range d.seen {
		if now.Before(expires) {
			size++
		} else {
			delete(d.seen, did)
		}
	}
	return CacheStats{Size: size, TTL: d.ttl, Type: "distributed"}
}

// GroupStats exposes groupcache's main cache counters
func (d *DistributedResolver) GroupStats() groupcache.CacheStats {
	return d.group.CacheStats(groupcache.MainCache)
}

func (d *DistributedResolver) ClearCache() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.generation++
	clear(d.seen)
}

// roundTimeToInterval rounds t down to the start of its interval
func roundTimeToInterval(t time.Time, interval time.Duration) time.Time {
	if interval <= 0 {
		return t
	}
	intervalSeconds := int64(interval.Seconds())
	if intervalSeconds == 0 {
		return t
	}
	rounded := (t.Unix() / intervalSeconds) * intervalSeconds
	return time.Unix(rounded, 0).UTC()
}

// cacheKey is "<generation>|<bucket>|<did>"
func cacheKey(generation uint64, bucket time.Time, did string) string {
	return strconv.FormatUint(generation, 10) + "|" + bucket.Format(time.RFC3339) + "|" + did
}

func didFromCacheKey(key string) (string, error) {
	parts := strings.SplitN(key, "|", 3)
	if len(parts) != 3 || parts[2] == "" {
		return "", fmt.Errorf("malformed cache key %q", key)
	}
	return parts[2], nil
}
