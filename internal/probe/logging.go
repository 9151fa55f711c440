package probe

import (
	"context"
	"log/slog"
	"time"

	"github.com/alechenninger/trustreg/internal/delegation"
	"github.com/alechenninger/trustreg/internal/did"
	"github.com/alechenninger/trustreg/internal/store"
	"github.com/alechenninger/trustreg/internal/trqp"
)

// loggingResolverObserver creates request-scoped logging probes for DID resolution
type loggingResolverObserver struct {
	logger *slog.Logger
}

// NewLoggingResolverObserver creates an observer that logs DID resolution events
// using structured logging with slog.
func NewLoggingResolverObserver(logger *slog.Logger) did.ResolverObserver {
	if logger == nil {
		logger = slog.Default()
	}
	return &loggingResolverObserver{logger: logger}
}

func (o *loggingResolverObserver) ResolutionStarted(ctx context.Context, didStr string) (context.Context, did.ResolutionProbe) {
	o.logger.LogAttrs(ctx, slog.LevelDebug, "Resolving DID", slog.String("did", didStr))
	return ctx, &loggingResolutionProbe{
		ctx:    ctx,
		logger: o.logger.With(slog.String("did", didStr)),
		start:  time.Now(),
	}
}

// loggingResolutionProbe logs events for a single resolution
type loggingResolutionProbe struct {
	ctx    context.Context
	logger *slog.Logger
	start  time.Time
	cached bool
}

func (p *loggingResolutionProbe) CacheHit() {
	p.cached = true
}

func (p *loggingResolutionProbe) CacheMiss() {}

func (p *loggingResolutionProbe) FetchFailed(url string, err error) {
	p.logger.LogAttrs(p.ctx, slog.LevelWarn,
		"DID document fetch failed",
		slog.String("url", url),
		slog.String("error", err.Error()),
	)
}

func (p *loggingResolutionProbe) PlaceholderUsed(reason string) {
	p.logger.LogAttrs(p.ctx, slog.LevelInfo,
		"Using placeholder DID document",
		slog.String("reason", reason),
	)
}

func (p *loggingResolutionProbe) End(result *did.ResolutionResult) {
	attrs := []slog.Attr{
		slog.Bool("cached", p.cached),
		slog.Duration("duration", time.Since(p.start)),
	}
	if result != nil {
		attrs = append(attrs,
			slog.Bool("valid", result.Valid),
			slog.String("method", result.Method),
			slog.Bool("placeholder", result.Placeholder),
		)
		if result.Error != "" {
			attrs = append(attrs, slog.String("error", result.Error))
		}
	}
	p.logger.LogAttrs(p.ctx, slog.LevelDebug, "DID resolution completed", attrs...)
}

// loggingDelegationObserver creates request-scoped logging probes for delegation operations
type loggingDelegationObserver struct {
	logger *slog.Logger
}

// NewLoggingDelegationObserver creates an observer that logs delegation events.
func NewLoggingDelegationObserver(logger *slog.Logger) delegation.Observer {
	if logger == nil {
		logger = slog.Default()
	}
	return &loggingDelegationObserver{logger: logger}
}

func (o *loggingDelegationObserver) OperationStarted(ctx context.Context, op delegation.Operation, rootDID, delegateDID string) (context.Context, delegation.Probe) {
	logger := o.logger.With(slog.String("operation", string(op)))
	if rootDID != "" {
		logger = logger.With(slog.String("root_did", rootDID))
	}
	if delegateDID != "" {
		logger = logger.With(slog.String("delegate_did", delegateDID))
	}
	logger.LogAttrs(ctx, slog.LevelDebug, "Starting delegation operation")
	return ctx, &loggingDelegationProbe{ctx: ctx, logger: logger}
}

type loggingDelegationProbe struct {
	ctx    context.Context
	logger *slog.Logger
	failed bool
}

func (p *loggingDelegationProbe) DelegateIssuerCreated(issuer *store.Entity) {
	p.logger.LogAttrs(p.ctx, slog.LevelInfo,
		"Created delegate issuer",
		slog.String("issuer_did", issuer.DID),
		slog.String("registry_id", issuer.RegistryID),
	)
}

func (p *loggingDelegationProbe) ChainTruncated(at string) {
	p.logger.LogAttrs(p.ctx, slog.LevelWarn,
		"Delegation chain exceeds maximum depth",
		slog.String("truncated_at", at),
	)
}

func (p *loggingDelegationProbe) Failed(err error) {
	p.failed = true
	p.logger.LogAttrs(p.ctx, slog.LevelWarn,
		"Delegation operation failed",
		slog.String("error", err.Error()),
	)
}

func (p *loggingDelegationProbe) End() {
	if p.failed {
		return
	}
	p.logger.LogAttrs(p.ctx, slog.LevelInfo, "Delegation operation completed")
}

// loggingQueryObserver creates request-scoped logging probes for TRQP queries
type loggingQueryObserver struct {
	logger *slog.Logger
}

// NewLoggingQueryObserver creates an observer that logs trust query decisions.
func NewLoggingQueryObserver(logger *slog.Logger) trqp.QueryObserver {
	if logger == nil {
		logger = slog.Default()
	}
	return &loggingQueryObserver{logger: logger}
}

func (o *loggingQueryObserver) QueryStarted(ctx context.Context, query trqp.QueryType, req *trqp.Request) (context.Context, trqp.QueryProbe) {
	logger := o.logger.With(
		slog.String("query", string(query)),
		slog.String("entity_id", req.EntityID),
		slog.String("authority_id", req.AuthorityID),
		slog.String("action", req.Action),
		slog.String("resource", req.Resource),
	)
	logger.LogAttrs(ctx, slog.LevelDebug, "Evaluating trust query")
	return ctx, &loggingQueryProbe{ctx: ctx, logger: logger}
}

type loggingQueryProbe struct {
	ctx    context.Context
	logger *slog.Logger
}

func (p *loggingQueryProbe) Decided(allowed bool, message string) {
	p.logger.LogAttrs(p.ctx, slog.LevelInfo,
		"Trust query decided",
		slog.Bool("allowed", allowed),
		slog.String("message", message),
	)
}

func (p *loggingQueryProbe) Failed(err error) {
	p.logger.LogAttrs(p.ctx, slog.LevelError,
		"Trust query failed",
		slog.String("error", err.Error()),
	)
}

func (p *loggingQueryProbe) End() {}
