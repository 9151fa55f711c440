package config

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/alechenninger/trustreg/internal/clock"
	"github.com/alechenninger/trustreg/internal/delegation"
	"github.com/alechenninger/trustreg/internal/did"
	"github.com/alechenninger/trustreg/internal/fs"
	"github.com/alechenninger/trustreg/internal/httpfixture"
	"github.com/alechenninger/trustreg/internal/keymanager"
	"github.com/alechenninger/trustreg/internal/probe"
	"github.com/alechenninger/trustreg/internal/store"
	"github.com/alechenninger/trustreg/internal/store/gormstore"
	"github.com/alechenninger/trustreg/internal/trqp"
)

// NewStore creates the configured record store and applies its seed file
func NewStore(ctx context.Context, cfg StoreConfig, fsys fs.FileSystem, clk clock.Clock) (store.Store, io.Closer, error) {
	var (
		st     store.Store
		closer io.Closer = nopCloser{}
	)

	switch cfg.Type {
	case "", "memory":
		st = store.NewMemory()
	case "sqlite":
		if cfg.DSN == "" {
			return nil, nil, fmt.Errorf("sqlite store requires dsn")
		}
		gs, err := gormstore.Open(cfg.DSN)
		if err != nil {
			return nil, nil, err
		}
		st, closer = gs, gs
	default:
		return nil, nil, fmt.Errorf("unknown store type: %s", cfg.Type)
	}

	if cfg.SeedFile != "" {
		if err := store.LoadSeed(ctx, fsys, cfg.SeedFile, st, clk.Now()); err != nil {
			closer.Close()
			return nil, nil, fmt.Errorf("failed to seed store: %w", err)
		}
	}
	return st, closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// NewResolver creates the configured DID resolver
func NewResolver(cfg DIDConfig, fixtures httpfixture.FixtureProvider, clk clock.Clock, observer did.ResolverObserver) (did.Resolver, error) {
	timeout, err := parseDuration("did.timeout", cfg.Timeout, did.DefaultTimeout)
	if err != nil {
		return nil, err
	}
	ttl, err := parseDuration("did.cache.ttl", cfg.Cache.TTL, did.DefaultCacheTTL)
	if err != nil {
		return nil, err
	}

	client := http.DefaultClient
	if fixtures != nil {
		client = &http.Client{Transport: httpfixture.NewTransport(fixtures)}
	}

	resolverCfg := did.Config{
		HTTPClient:    client,
		Timeout:       timeout,
		Clock:         clk,
		Observer:      observer,
		IndyEndpoints: cfg.IndyEndpoints,
	}

	switch cfg.Cache.Type {
	case "", "in_memory":
		resolverCfg.Cache = did.NewMemoryCache(ttl, clk)
		return did.NewResolver(resolverCfg), nil
	case "none":
		return did.NewResolver(resolverCfg), nil
	case "distributed":
		return did.NewDistributedResolver(did.NewResolver(resolverCfg), did.DistributedConfig{
			GroupName:      cfg.Cache.GroupName,
			CacheSizeBytes: cfg.Cache.CacheSize,
			TTL:            ttl,
			Clock:          clk,
		})
	default:
		return nil, fmt.Errorf("unknown DID cache type: %s", cfg.Cache.Type)
	}
}

// NewKeyManager creates the configured key manager. Keys are always Ed25519.
func NewKeyManager(cfg KeyManagerConfig, fsys fs.FileSystem) (keymanager.KeyManager, error) {
	switch cfg.Type {
	case "", "memory":
		return keymanager.NewInMemoryKeyManager(keymanager.KeyTypeEd25519)
	case "disk":
		return keymanager.NewDiskKeyManager(keymanager.DiskKeyManagerConfig{
			KeyType:    keymanager.KeyTypeEd25519,
			KeysPath:   cfg.KeysPath,
			FileSystem: fsys,
		})
	default:
		return nil, fmt.Errorf("unknown key manager type: %s", cfg.Type)
	}
}

// Observers bundles the observer for each component
type Observers struct {
	Resolver   did.ResolverObserver
	Delegation delegation.Observer
	Query      trqp.QueryObserver
}

// NewObservers creates observers for the configured observability type,
// logging to w
func NewObservers(cfg *ObservabilityConfig, w io.Writer) (*Observers, *slog.Logger, error) {
	if cfg == nil {
		cfg = &ObservabilityConfig{}
	}

	logger, err := probe.NewLogger(w, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, nil, err
	}

	switch cfg.Type {
	case "", "logging":
		return &Observers{
			Resolver:   probe.NewLoggingResolverObserver(logger),
			Delegation: probe.NewLoggingDelegationObserver(logger),
			Query:      probe.NewLoggingQueryObserver(logger),
		}, logger, nil
	case "noop":
		return &Observers{
			Resolver:   did.NoOpResolverObserver{},
			Delegation: delegation.NoOpObserver{},
			Query:      trqp.NoOpQueryObserver{},
		}, logger, nil
	default:
		return nil, nil, fmt.Errorf("unknown observability type: %s", cfg.Type)
	}
}

func parseDuration(field, value string, def time.Duration) (time.Duration, error) {
	if value == "" {
		return def, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", field, value, err)
	}
	return d, nil
}
