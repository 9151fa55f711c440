package did

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alechenninger/trustreg/internal/clock"
	"github.com/alechenninger/trustreg/internal/httpfixture"
)

func universityDoc(id string) map[string]any {
	return map[string]any{
		"@context": []string{ContextV1},
		"id":       id,
		"verificationMethod": []map[string]any{{
			"id":                 id + "#key-1",
			"type":               TypeEd25519VerificationKey2020,
			"controller":         id,
			"publicKeyMultibase": "z6MkhaXgBZDvotDkL5257faiztiGiC2QtKLGpbnnEGta2doK",
		}},
		"authentication": []string{id + "#key-1"},
	}
}

func fixtureResolver(t *testing.T, fixtures map[string]*httpfixture.Fixture, cfg Config) *MethodResolver {
	t.Helper()
	cfg.HTTPClient = &http.Client{Transport: httpfixture.NewTransport(httpfixture.NewMapProvider(fixtures))}
	return NewResolver(cfg)
}

func TestWebURL(t *testing.T) {
	tests := []struct {
		did     string
		want    string
		wantErr bool
	}{
		{"did:web:university.edu", "https://university.edu/.well-known/did.json", false},
		{"did:web:issuer.example:orgs:acme", "https://issuer.example/orgs/acme/did.json", false},
		{"did:web:localhost%3A8443", "https://localhost:8443/.well-known/did.json", false},
		{"did:web:localhost%3A8443:user:alice", "https://localhost:8443/user/alice/did.json", false},
		{"did:web:example.com::a", "", true},
		{"did:web:example.com%2Fevil", "", true},
		{"did:web:bad%zz", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.did, func(t *testing.T) {
			id, err := Parse(tt.did)
			require.NoError(t, err)

			got, err := WebURL(id)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolve_Web(t *testing.T) {
	ctx := context.Background()

	t.Run("fetches the document", func(t *testing.T) {
		r := fixtureResolver(t, map[string]*httpfixture.Fixture{
			"GET https://university.edu/.well-known/did.json": httpfixture.JSONFixture(200, universityDoc("did:web:university.edu")),
		}, Config{})

		result := r.Resolve(ctx, "did:web:university.edu")
		require.True(t, result.Valid, result.Error)
		assert.False(t, result.Placeholder)
		assert.Equal(t, "web", result.Method)
		require.NotNil(t, result.Document)
		require.Len(t, result.Document.VerificationMethod, 1)
		assert.Equal(t, "did:web:university.edu#key-1", result.Document.VerificationMethod[0].ID)
	})

	t.Run("path based did", func(t *testing.T) {
		r := fixtureResolver(t, map[string]*httpfixture.Fixture{
			"GET https://issuer.example/orgs/acme/did.json": httpfixture.JSONFixture(200, universityDoc("did:web:issuer.example:orgs:acme")),
		}, Config{})

		result := r.Resolve(ctx, "did:web:issuer.example:orgs:acme")
		assert.True(t, result.Valid)
		assert.False(t, result.Placeholder)
	})

	t.Run("mismatched id is invalid", func(t *testing.T) {
		r := fixtureResolver(t, map[string]*httpfixture.Fixture{
			"GET https://university.edu/.well-known/did.json": httpfixture.JSONFixture(200, universityDoc("did:web:imposter.example")),
		}, Config{Cache: NewMemoryCache(0, nil)})

		result := r.Resolve(ctx, "did:web:university.edu")
		assert.False(t, result.Valid)
		assert.Contains(t, result.Error, "does not match")
		assert.Equal(t, 0, r.CacheStats().Size, "invalid results are not cached")
	})

	fallbacks := []struct {
		name    string
		fixture *httpfixture.Fixture
	}{
		{"not found", &httpfixture.Fixture{StatusCode: 404, Body: "not found"}},
		{"server error", &httpfixture.Fixture{StatusCode: 503}},
		{"undecodable body", &httpfixture.Fixture{StatusCode: 200, Body: "<html>"}},
	}
	for _, tt := range fallbacks {
		t.Run(tt.name+" falls back to placeholder", func(t *testing.T) {
			r := fixtureResolver(t, map[string]*httpfixture.Fixture{
				"GET https://university.edu/.well-known/did.json": tt.fixture,
			}, Config{})

			result := r.Resolve(ctx, "did:web:university.edu")
			assert.True(t, result.Valid)
			assert.True(t, result.Placeholder)
			require.NotNil(t, result.Document)
			assert.Equal(t, "did:web:university.edu", result.Document.ID)
			assert.Empty(t, result.Document.VerificationMethod)
		})
	}

	t.Run("network error falls back to placeholder", func(t *testing.T) {
		r := fixtureResolver(t, nil, Config{})
		result := r.Resolve(ctx, "did:web:unreachable.example")
		assert.True(t, result.Valid)
		assert.True(t, result.Placeholder)
	})

	t.Run("slow server falls back within the timeout", func(t *testing.T) {
		delay := 5 * time.Second
		r := fixtureResolver(t, map[string]*httpfixture.Fixture{
			"GET https://slow.example/.well-known/did.json": {StatusCode: 200, Delay: &delay},
		}, Config{Timeout: 20 * time.Millisecond})

		start := time.Now()
		result := r.Resolve(ctx, "did:web:slow.example")
		assert.Less(t, time.Since(start), time.Second)
		assert.True(t, result.Valid)
		assert.True(t, result.Placeholder)
	})

	t.Run("malformed identifier is invalid without a fetch", func(t *testing.T) {
		r := fixtureResolver(t, nil, Config{})
		result := r.Resolve(ctx, "did:web:example.com::x")
		assert.False(t, result.Valid)
		assert.NotEmpty(t, result.Error)
	})
}

func TestResolve_Web_RealServer(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/.well-known/did.json":
			w.Header().Set("Content-Type", "application/did+json")
			_, _ = w.Write([]byte(`{"@context": "https://www.w3.org/ns/did/v1", "id": "did:web:` + strings.ReplaceAll(r.Host, ":", "%3A") + `"}`))
		case "/slow/did.json":
			select {
			case <-release:
			case <-r.Context().Done():
			}
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()
	defer close(release)

	u, err := url.Parse(server.URL)
	require.NoError(t, err)
	encodedHost := strings.ReplaceAll(u.Host, ":", "%3A")

	r := NewResolver(Config{HTTPClient: server.Client(), Timeout: 50 * time.Millisecond})

	t.Run("fetches over TLS", func(t *testing.T) {
		did := "did:web:" + encodedHost
		result := r.Resolve(context.Background(), did)
		assert.True(t, result.Valid, result.Error)
		assert.False(t, result.Placeholder)
	})

	t.Run("timeout yields placeholder", func(t *testing.T) {
		result := r.Resolve(context.Background(), "did:web:"+encodedHost+":slow")
		assert.True(t, result.Valid)
		assert.True(t, result.Placeholder)
	})
}

func TestResolve_Key(t *testing.T) {
	ctx := context.Background()
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	encoded, err := EncodeEd25519Multibase(pub)
	require.NoError(t, err)
	did := "did:key:" + encoded

	r := NewResolver(Config{Cache: NewMemoryCache(0, nil)})

	t.Run("synthesizes an ed25519 document", func(t *testing.T) {
		result := r.Resolve(ctx, did)
		require.True(t, result.Valid, result.Error)
		require.Len(t, result.Document.VerificationMethod, 1)
		vm := result.Document.VerificationMethod[0]
		assert.Equal(t, did+"#"+encoded, vm.ID)
		assert.Equal(t, TypeEd25519VerificationKey2020, vm.Type)
		assert.Equal(t, encoded, vm.PublicKeyMultibase)
		assert.Equal(t, did, vm.Controller)
		assert.Equal(t, []Reference{RefTo(vm.ID)}, result.Document.Authentication)

		decoded, err := DecodeEd25519Multibase(vm.PublicKeyMultibase)
		require.NoError(t, err)
		assert.Equal(t, pub, decoded)
	})

	t.Run("is pure", func(t *testing.T) {
		r.ClearCache()
		first := r.Resolve(ctx, did)
		r.ClearCache()
		second := r.Resolve(ctx, did)
		assert.Equal(t, first.Document, second.Document)
	})

	t.Run("non ed25519 keys use Multikey", func(t *testing.T) {
		result := r.Resolve(ctx, "did:key:zQ3shokFTS3brHcDQrn82RUDfCZESWL1ZdCEJwekUDPQiYBme")
		require.True(t, result.Valid)
		assert.Equal(t, TypeMultikey, result.Document.VerificationMethod[0].Type)
	})

	t.Run("requires the z prefix", func(t *testing.T) {
		result := r.Resolve(ctx, "did:key:f01ed0102")
		assert.False(t, result.Valid)
		assert.Contains(t, result.Error, "'z'")
	})
}

func TestResolve_Indy(t *testing.T) {
	ctx := context.Background()
	did := "did:indy:sovrin:WRfXPg8dantKVubE3HX8pw"
	endpoint := "https://dev.uniresolver.io/1.0/identifiers/" + did

	t.Run("uses didDocument from the resolver envelope", func(t *testing.T) {
		r := fixtureResolver(t, map[string]*httpfixture.Fixture{
			"GET " + endpoint: httpfixture.JSONFixture(200, map[string]any{
				"didDocument":           universityDoc(did),
				"didResolutionMetadata": map[string]any{"contentType": "application/did+ld+json"},
			}),
		}, Config{})

		result := r.Resolve(ctx, did)
		require.True(t, result.Valid)
		assert.False(t, result.Placeholder)
		assert.Equal(t, did+"#key-1", result.Document.VerificationMethod[0].ID)
	})

	t.Run("accepts a bare document", func(t *testing.T) {
		r := fixtureResolver(t, map[string]*httpfixture.Fixture{
			"GET " + endpoint: httpfixture.JSONFixture(200, universityDoc(did)),
		}, Config{})

		result := r.Resolve(ctx, did)
		assert.True(t, result.Valid)
		assert.False(t, result.Placeholder)
	})

	t.Run("sub-namespace", func(t *testing.T) {
		stagingDID := "did:indy:sovrin:staging:WRfXPg8dantKVubE3HX8pw"
		r := fixtureResolver(t, map[string]*httpfixture.Fixture{
			"GET https://dev.uniresolver.io/1.0/identifiers/" + stagingDID: httpfixture.JSONFixture(200, universityDoc(stagingDID)),
		}, Config{})

		result := r.Resolve(ctx, stagingDID)
		assert.True(t, result.Valid)
		assert.False(t, result.Placeholder)
	})

	placeholders := []struct {
		name    string
		fixture *httpfixture.Fixture
	}{
		{"ledger unavailable", &httpfixture.Fixture{StatusCode: 500}},
		{"document for another did", httpfixture.JSONFixture(200, universityDoc("did:indy:sovrin:other"))},
	}
	for _, tt := range placeholders {
		t.Run(tt.name+" synthesizes verkey document", func(t *testing.T) {
			r := fixtureResolver(t, map[string]*httpfixture.Fixture{"GET " + endpoint: tt.fixture}, Config{})

			result := r.Resolve(ctx, did)
			require.True(t, result.Valid)
			assert.True(t, result.Placeholder)
			require.Len(t, result.Document.VerificationMethod, 1)
			vm := result.Document.VerificationMethod[0]
			assert.Equal(t, did+"#verkey", vm.ID)
			assert.Equal(t, TypeEd25519VerificationKey2018, vm.Type)
			assert.Equal(t, "WRfXPg8dantKVubE3HX8pw", vm.PublicKeyBase58)
		})
	}

	t.Run("unknown namespace does not fetch", func(t *testing.T) {
		r := fixtureResolver(t, nil, Config{})
		result := r.Resolve(ctx, "did:indy:privatenet:WRfXPg8dantKVubE3HX8pw")
		assert.True(t, result.Valid)
		assert.True(t, result.Placeholder)
	})

	t.Run("custom endpoint table", func(t *testing.T) {
		r := fixtureResolver(t, map[string]*httpfixture.Fixture{
			"GET https://resolver.internal/1.0/identifiers/did:indy:privatenet:abc": httpfixture.JSONFixture(200, universityDoc("did:indy:privatenet:abc")),
		}, Config{IndyEndpoints: map[string]string{"privatenet": "https://resolver.internal/"}})

		result := r.Resolve(ctx, "did:indy:privatenet:abc")
		assert.True(t, result.Valid)
		assert.False(t, result.Placeholder)
	})

	t.Run("malformed identifier", func(t *testing.T) {
		r := fixtureResolver(t, nil, Config{})
		for _, bad := range []string{"did:indy:WRfXPg8dantKVubE3HX8pw", "did:indy:sovrin:", "did:indy::abc"} {
			result := r.Resolve(ctx, bad)
			assert.False(t, result.Valid, bad)
			assert.Contains(t, result.Error, "<namespace>:<nym>", bad)
		}
	})
}

func TestResolve_OtherMethods(t *testing.T) {
	r := NewResolver(Config{})
	for _, did := range []string{"did:ion:EiClkZMDxPKqC9c", "did:ethr:0xb9c5714089478a327f09197987f16f9e5d936e8a", "did:sov:WRfXPg8dantKVubE3HX8pw"} {
		t.Run(did, func(t *testing.T) {
			result := r.Resolve(context.Background(), did)
			assert.True(t, result.Valid)
			assert.True(t, result.Placeholder)
			assert.Equal(t, did, result.Document.ID)
		})
	}

	t.Run("unsupported method", func(t *testing.T) {
		result := r.Resolve(context.Background(), "did:example:123")
		assert.False(t, result.Valid)
		assert.Contains(t, result.Error, "unsupported DID method")
	})
}

func TestResolve_Cache(t *testing.T) {
	ctx := context.Background()
	clk := clock.NewFixtureClock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))

	calls := 0
	transport := httpfixture.NewTransport(httpfixture.FuncProvider(func(req *http.Request) *httpfixture.Fixture {
		calls++
		return httpfixture.JSONFixture(200, universityDoc("did:web:university.edu"))
	}))
	r := NewResolver(Config{
		HTTPClient: &http.Client{Transport: transport},
		Cache:      NewMemoryCache(time.Hour, clk),
		Clock:      clk,
	})

	first := r.Resolve(ctx, "did:web:university.edu")
	require.True(t, first.Valid)
	assert.Equal(t, 1, r.CacheStats().Size)
	assert.Equal(t, time.Hour, r.CacheStats().TTL)

	clk.Advance(59 * time.Minute)
	second := r.Resolve(ctx, "did:web:university.edu")
	assert.Equal(t, 1, r.CacheStats().Size)
	assert.Equal(t, 1, calls, "second resolution is served from cache")
	assert.Equal(t, first.ResolvedAt, second.ResolvedAt)

	t.Run("callers cannot mutate the cached result", func(t *testing.T) {
		second.Valid = false
		second.Document.ID = "did:web:evil.example"
		second.Document.VerificationMethod[0].PublicKeyMultibase = "zTAMPERED"
		second.Document.Authentication[0].ID = "did:web:evil.example#key-1"

		again := r.Resolve(ctx, "did:web:university.edu")
		assert.True(t, again.Valid)
		require.NotNil(t, again.Document)
		assert.Equal(t, "did:web:university.edu", again.Document.ID)
		assert.Equal(t, "z6MkhaXgBZDvotDkL5257faiztiGiC2QtKLGpbnnEGta2doK", again.Document.VerificationMethod[0].PublicKeyMultibase)
		assert.Equal(t, "did:web:university.edu#key-1", again.Document.Authentication[0].ID)
		assert.Equal(t, 1, calls)
	})

	t.Run("the first caller's result is not the cached copy", func(t *testing.T) {
		r.ClearCache()
		fresh := r.Resolve(ctx, "did:key:z6MkhaXgBZDvotDkL5257faiztiGiC2QtKLGpbnnEGta2doK")
		require.True(t, fresh.Valid)
		fresh.Document.ID = "did:web:evil.example"
		fresh.Document.VerificationMethod[0].PublicKeyMultibase = "zTAMPERED"

		cached := r.Resolve(ctx, "did:key:z6MkhaXgBZDvotDkL5257faiztiGiC2QtKLGpbnnEGta2doK")
		assert.Equal(t, "did:key:z6MkhaXgBZDvotDkL5257faiztiGiC2QtKLGpbnnEGta2doK", cached.Document.ID)
		assert.Equal(t, "z6MkhaXgBZDvotDkL5257faiztiGiC2QtKLGpbnnEGta2doK", cached.Document.VerificationMethod[0].PublicKeyMultibase)
		r.ClearCache()
	})

	t.Run("expired entries are refetched", func(t *testing.T) {
		clk.Advance(2 * time.Minute)
		third := r.Resolve(ctx, "did:web:university.edu")
		assert.Equal(t, 2, calls)
		assert.True(t, third.ResolvedAt.After(first.ResolvedAt))
		assert.Equal(t, 1, r.CacheStats().Size)
	})

	t.Run("placeholders are cached", func(t *testing.T) {
		r.Resolve(ctx, "did:ion:abc")
		assert.Equal(t, 2, r.CacheStats().Size)
	})

	t.Run("invalid results are not cached", func(t *testing.T) {
		r.Resolve(ctx, "did:example:abc")
		assert.Equal(t, 2, r.CacheStats().Size)
	})

	t.Run("clear", func(t *testing.T) {
		r.ClearCache()
		assert.Equal(t, 0, r.CacheStats().Size)
	})
}

func TestResolve_NoCache(t *testing.T) {
	r := NewResolver(Config{})
	r.Resolve(context.Background(), "did:ion:abc")
	stats := r.CacheStats()
	assert.Equal(t, 0, stats.Size)
	assert.Equal(t, "none", stats.Type)
}
