package config

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/alechenninger/trustreg/internal/clock"
	"github.com/alechenninger/trustreg/internal/delegation"
	"github.com/alechenninger/trustreg/internal/did"
	"github.com/alechenninger/trustreg/internal/entry"
	"github.com/alechenninger/trustreg/internal/fs"
	"github.com/alechenninger/trustreg/internal/store"
	"github.com/alechenninger/trustreg/internal/trqp"
)

// Provider constructs all application components from configuration.
// This is the main entry point for building a configured trustreg instance.
type Provider struct {
	config *Config
	clock  clock.Clock
	fs     fs.FileSystem
	logOut io.Writer

	// Lazily constructed components (cached after first call)
	observers   *Observers
	logger      *slog.Logger
	store       store.Store
	storeCloser io.Closer
	resolver    did.Resolver
	engine      *delegation.Engine
	evaluator   *trqp.Evaluator
	entries     *entry.Service
}

// ProviderOption customizes a Provider
type ProviderOption func(*Provider)

// WithClock overrides the system clock
func WithClock(clk clock.Clock) ProviderOption {
	return func(p *Provider) { p.clock = clk }
}

// WithFileSystem overrides the OS filesystem used for seed files and keys
func WithFileSystem(fsys fs.FileSystem) ProviderOption {
	return func(p *Provider) { p.fs = fsys }
}

// WithLogOutput sets where logs are written. Default: stderr
func WithLogOutput(w io.Writer) ProviderOption {
	return func(p *Provider) { p.logOut = w }
}

// NewProvider creates a new provider from configuration
func NewProvider(config *Config, opts ...ProviderOption) *Provider {
	p := &Provider{
		config: config,
		clock:  clock.NewSystemClock(),
		fs:     fs.NewOSFileSystem(),
		logOut: os.Stderr,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Config returns the configuration the provider was built from
func (p *Provider) Config() *Config {
	return p.config
}

// Observers returns the configured observers
func (p *Provider) Observers() (*Observers, error) {
	if p.observers != nil {
		return p.observers, nil
	}

	observers, logger, err := NewObservers(p.config.Observability, p.logOut)
	if err != nil {
		return nil, fmt.Errorf("failed to create observers: %w", err)
	}

	p.observers, p.logger = observers, logger
	return observers, nil
}

// Logger returns the application logger
func (p *Provider) Logger() (*slog.Logger, error) {
	if _, err := p.Observers(); err != nil {
		return nil, err
	}
	return p.logger, nil
}

// Store returns the configured record store, seeded on first use
func (p *Provider) Store(ctx context.Context) (store.Store, error) {
	if p.store != nil {
		return p.store, nil
	}

	st, closer, err := NewStore(ctx, p.config.Store, p.fs, p.clock)
	if err != nil {
		return nil, fmt.Errorf("failed to create store: %w", err)
	}

	p.store, p.storeCloser = st, closer
	return st, nil
}

// Resolver returns the configured DID resolver
func (p *Provider) Resolver() (did.Resolver, error) {
	if p.resolver != nil {
		return p.resolver, nil
	}

	observers, err := p.Observers()
	if err != nil {
		return nil, err
	}

	fixtures, err := BuildHTTPFixtureProvider(p.config.Fixtures, p.config.DID)
	if err != nil {
		return nil, fmt.Errorf("failed to load fixtures: %w", err)
	}

	resolver, err := NewResolver(p.config.DID, fixtures, p.clock, observers.Resolver)
	if err != nil {
		return nil, fmt.Errorf("failed to create resolver: %w", err)
	}

	p.resolver = resolver
	return resolver, nil
}

// DelegationEngine returns the configured delegation engine
func (p *Provider) DelegationEngine(ctx context.Context) (*delegation.Engine, error) {
	if p.engine != nil {
		return p.engine, nil
	}

	st, err := p.Store(ctx)
	if err != nil {
		return nil, err
	}
	observers, err := p.Observers()
	if err != nil {
		return nil, err
	}

	engine, err := delegation.NewEngine(delegation.Config{
		Store:    st,
		Clock:    p.clock,
		MaxDepth: p.config.Delegation.MaxDepth,
		Observer: observers.Delegation,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create delegation engine: %w", err)
	}

	p.engine = engine
	return engine, nil
}

// Evaluator returns the configured TRQP evaluator
func (p *Provider) Evaluator(ctx context.Context) (*trqp.Evaluator, error) {
	if p.evaluator != nil {
		return p.evaluator, nil
	}

	st, err := p.Store(ctx)
	if err != nil {
		return nil, err
	}
	observers, err := p.Observers()
	if err != nil {
		return nil, err
	}

	evaluator, err := trqp.NewEvaluator(trqp.Config{
		Store:    st,
		Clock:    p.clock,
		Observer: observers.Query,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create evaluator: %w", err)
	}

	p.evaluator = evaluator
	return evaluator, nil
}

// EntryService returns the configured signed entry service
func (p *Provider) EntryService(ctx context.Context) (*entry.Service, error) {
	if p.entries != nil {
		return p.entries, nil
	}

	st, err := p.Store(ctx)
	if err != nil {
		return nil, err
	}

	km, err := NewKeyManager(p.config.Signing.KeyManager, p.fs)
	if err != nil {
		return nil, fmt.Errorf("failed to create key manager: %w", err)
	}

	svc, err := entry.NewService(entry.Config{
		RegistryDID: p.config.RegistryDID,
		Store:       st,
		KeyManager:  km,
		Clock:       p.clock,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create entry service: %w", err)
	}

	p.entries = svc
	return svc, nil
}

// Close releases the store
func (p *Provider) Close() error {
	var errs []error
	if p.storeCloser != nil {
		errs = append(errs, p.storeCloser.Close())
		p.storeCloser = nil
	}
	return errors.Join(errs...)
}
