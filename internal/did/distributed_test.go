package did

import (
	"context"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alechenninger/trustreg/internal/clock"
	"github.com/alechenninger/trustreg/internal/httpfixture"
)

func groupName(t *testing.T) string {
	return "test:" + strings.ReplaceAll(t.Name(), "/", ":")
}

func TestRoundTimeToInterval(t *testing.T) {
	at := time.Date(2025, 10, 8, 14, 37, 42, 0, time.UTC)

	tests := []struct {
		name     string
		interval time.Duration
		want     time.Time
	}{
		{"1 hour interval", time.Hour, time.Date(2025, 10, 8, 14, 0, 0, 0, time.UTC)},
		{"24 hour interval", 24 * time.Hour, time.Date(2025, 10, 8, 0, 0, 0, 0, time.UTC)},
		{"15 minute interval", 15 * time.Minute, time.Date(2025, 10, 8, 14, 30, 0, 0, time.UTC)},
		{"zero interval returns original time", 0, at},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, roundTimeToInterval(at, tt.interval).Equal(tt.want))
		})
	}
}

func TestDistributedResolver(t *testing.T) {
	ctx := context.Background()
	clk := clock.NewFixtureClock(time.Date(2025, 1, 1, 10, 5, 0, 0, time.UTC))

	var fetches atomic.Int32
	transport := httpfixture.NewTransport(httpfixture.FuncProvider(func(req *http.Request) *httpfixture.Fixture {
		fetches.Add(1)
		return httpfixture.JSONFixture(200, universityDoc("did:web:university.edu"))
	}))
	inner := NewResolver(Config{HTTPClient: &http.Client{Transport: transport}, Clock: clk})

	d, err := NewDistributedResolver(inner, DistributedConfig{GroupName: groupName(t), TTL: time.Hour, Clock: clk})
	require.NoError(t, err)

	first := d.Resolve(ctx, "did:web:university.edu")
	require.True(t, first.Valid)
	require.NotNil(t, first.Document)
	assert.Equal(t, "did:web:university.edu#key-1", first.Document.VerificationMethod[0].ID)
	assert.Equal(t, 1, d.CacheStats().Size)
	assert.Equal(t, "distributed", d.CacheStats().Type)

	second := d.Resolve(ctx, "did:web:university.edu")
	assert.True(t, second.Valid)
	assert.Equal(t, int32(1), fetches.Load(), "second resolution served by groupcache")
	assert.Equal(t, 1, d.CacheStats().Size)
	assert.GreaterOrEqual(t, d.GroupStats().Items, int64(1))

	t.Run("invalid results pass through uncached", func(t *testing.T) {
		result := d.Resolve(ctx, "did:example:123")
		assert.False(t, result.Valid)
		assert.Contains(t, result.Error, "unsupported")
		assert.Equal(t, 1, d.CacheStats().Size)
	})

	t.Run("next bucket refetches", func(t *testing.T) {
		clk.Advance(time.Hour)
		assert.Equal(t, 0, d.CacheStats().Size)

		d.Resolve(ctx, "did:web:university.edu")
		assert.Equal(t, int32(2), fetches.Load())
		assert.Equal(t, 1, d.CacheStats().Size)
	})

	t.Run("clear starts a new generation", func(t *testing.T) {
		d.ClearCache()
		assert.Equal(t, 0, d.CacheStats().Size)

		d.Resolve(ctx, "did:web:university.edu")
		assert.Equal(t, int32(3), fetches.Load())
	})
}

func TestDistributedResolver_DuplicateGroup(t *testing.T) {
	inner := NewResolver(Config{})
	_, err := NewDistributedResolver(inner, DistributedConfig{GroupName: groupName(t)})
	require.NoError(t, err)

	_, err = NewDistributedResolver(inner, DistributedConfig{GroupName: groupName(t)})
	assert.Error(t, err)
}

func TestDidFromCacheKey(t *testing.T) {
	key := cacheKey(3, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), "did:web:a.example")
	did, err := didFromCacheKey(key)
	require.NoError(t, err)
	assert.Equal(t, "did:web:a.example", did)

	_, err = didFromCacheKey("garbage")
	assert.Error(t, err)
}
