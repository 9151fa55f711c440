package did

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/alechenninger/trustreg/internal/clock"
)

// DefaultTimeout bounds each remote document fetch
const DefaultTimeout = 2 * time.Second

// maxDocumentSize caps how much of a fetched document is read
const maxDocumentSize = 1 << 20

// Resolver resolves DIDs to documents
type Resolver interface {
	// Resolve never returns nil. Network failures produce a valid
	// placeholder result rather than an error.
	Resolve(ctx context.Context, did string) *ResolutionResult

	CacheStats() CacheStats

	// ClearCache drops every cached result
	ClearCache()
}

// ResolutionResult is the outcome of resolving one DID
type ResolutionResult struct {
	DID         string    `json:"did"`
	Valid       bool      `json:"valid"`
	Method      string    `json:"method,omitempty"`
	Document    *Document `json:"document,omitempty"`
	Error       string    `json:"error,omitempty"`
	Placeholder bool      `json:"placeholder,omitempty"`
	ResolvedAt  time.Time `json:"resolvedAt"`
}

// clone copies the result and its document, so cached entries and the
// results handed to callers never share state
func (r *ResolutionResult) clone() *ResolutionResult {
	c := *r
	c.Document = r.Document.Clone()
	return &c
}

// Config configures a MethodResolver
type Config struct {
	// HTTPClient is used for did:web and did:indy fetches.
	// Default: http.DefaultClient
	HTTPClient *http.Client

	// Timeout bounds each fetch. Default: DefaultTimeout
	Timeout time.Duration

	// Cache holds successful results. Nil disables caching.
	Cache Cache

	// Clock stamps results. Default: system clock
	Clock clock.Clock

	// Observer receives resolution events. Default: no-op
	Observer ResolverObserver

	// IndyEndpoints maps did:indy namespaces to universal resolver base URLs.
	// Default: DefaultIndyEndpoints
	IndyEndpoints map[string]string
}

// MethodResolver dispatches resolution by DID method
type MethodResolver struct {
	client        *http.Client
	timeout       time.Duration
	cache         Cache
	clock         clock.Clock
	observer      ResolverObserver
	indyEndpoints map[string]string
}

var _ Resolver = (*MethodResolver)(nil)

// NewResolver creates a resolver from cfg, filling in defaults
func NewResolver(cfg Config) *MethodResolver {
	r := &MethodResolver{
		client:        cfg.HTTPClient,
		timeout:       cfg.Timeout,
		cache:         cfg.Cache,
		clock:         cfg.Clock,
		observer:      cfg.Observer,
		indyEndpoints: cfg.IndyEndpoints,
	}
	if r.client == nil {
		r.client = http.DefaultClient
	}
	if r.timeout <= 0 {
		r.timeout = DefaultTimeout
	}
	if r.clock == nil {
		r.clock = clock.NewSystemClock()
	}
	if r.observer == nil {
		r.observer = NoOpResolverObserver{}
	}
	if r.indyEndpoints == nil {
		r.indyEndpoints = DefaultIndyEndpoints
	}
	return r
}

// Resolve checks the cache, then resolves by method. Only valid results are cached.
func (r *MethodResolver) Resolve(ctx context.Context, did string) *ResolutionResult {
	ctx, probe := r.observer.ResolutionStarted(ctx, did)

	if r.cache != nil {
		if cached, ok := r.cache.Get(did); ok {
			probe.CacheHit()
			result := cached.clone()
			probe.End(result)
			return result
		}
		probe.CacheMiss()
	}

	result := r.resolve(ctx, did, probe)
	if result.Valid && r.cache != nil {
		r.cache.Set(did, result.clone())
	}

	probe.End(result)
	return result
}

func (r *MethodResolver) CacheStats() CacheStats {
	if r.cache == nil {
		return CacheStats{Type: "none"}
	}
	return r.cache.Stats()
}

func (r *MethodResolver) ClearCache() {
	if r.cache != nil {
		r.cache.Clear()
	}
}

func (r *MethodResolver) resolve(ctx context.Context, did string, probe ResolutionProbe) *ResolutionResult {
	validation := ValidateFormat(did)
	if !validation.Valid {
		return r.invalid(did, validation.Method, validation.Err())
	}

	// ValidateFormat already parsed successfully
	id, _ := Parse(did)

	switch id.Method {
	case MethodWeb:
		return r.resolveWeb(ctx, did, id, probe)
	case MethodKey:
		return r.resolveKey(did, id)
	case MethodIndy:
		return r.resolveIndy(ctx, did, id, probe)
	default:
		probe.PlaceholderUsed("no resolver for method " + id.Method)
		return r.placeholder(did, id.Method, PlaceholderDocument(did))
	}
}

func (r *MethodResolver) resolved(did, method string, doc *Document) *ResolutionResult {
	return &ResolutionResult{
		DID:        did,
		Valid:      true,
		Method:     method,
		Document:   doc,
		ResolvedAt: r.clock.Now(),
	}
}

func (r *MethodResolver) placeholder(did, method string, doc *Document) *ResolutionResult {
	result := r.resolved(did, method, doc)
	result.Placeholder = true
	return result
}

func (r *MethodResolver) invalid(did, method string, err error) *ResolutionResult {
	return &ResolutionResult{
		DID:        did,
		Method:     method,
		Error:      err.Error(),
		ResolvedAt: r.clock.Now(),
	}
}

// fetch GETs target within the resolver timeout and returns the body of a 2xx response
func (r *MethodResolver) fetch(ctx context.Context, target string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/did+json, application/did+ld+json, application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return body, nil
}
