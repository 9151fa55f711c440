// Package delegation creates, revokes, and walks delegations of issuing
// authority between issuers.
//
// Delegations form a forest rooted at issuers that were not themselves
// delegated to. Chains are capped at DefaultMaxDepth levels; every walk
// uses an explicit iteration bound rather than recursion.
package delegation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/alechenninger/trustreg/internal/clock"
	"github.com/alechenninger/trustreg/internal/did"
	"github.com/alechenninger/trustreg/internal/store"
)

// DefaultMaxDepth is the maximum number of levels in a chain, root included
const DefaultMaxDepth = 3

// Config configures an Engine
type Config struct {
	Store store.Store

	// Clock defaults to the system clock
	Clock clock.Clock

	// MaxDepth is the maximum number of chain levels. Default: DefaultMaxDepth
	MaxDepth int

	Observer Observer
}

// Engine manages delegations against a record store
type Engine struct {
	store    store.Store
	clock    clock.Clock
	maxDepth int
	observer Observer
}

// NewEngine creates a delegation engine
func NewEngine(cfg Config) (*Engine, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.NewSystemClock()
	}
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = DefaultMaxDepth
	}
	if cfg.Observer == nil {
		cfg.Observer = NoOpObserver{}
	}
	return &Engine{
		store:    cfg.Store,
		clock:    cfg.Clock,
		maxDepth: cfg.MaxDepth,
		observer: cfg.Observer,
	}, nil
}

// CreateRequest asks for a new delegation from RootDID to DelegateDID
type CreateRequest struct {
	RootDID     string                `json:"rootIssuerDid"`
	DelegateDID string                `json:"delegateDid"`
	Scope       store.DelegationScope `json:"scope"`
	Proof       string                `json:"delegationProof"`
	ValidUntil  *time.Time            `json:"validUntil,omitempty"`
}

func (r *CreateRequest) validate() error {
	if strings.TrimSpace(r.RootDID) == "" {
		return &ValidationError{Field: "rootIssuerDid", Reason: "required"}
	}
	if strings.TrimSpace(r.DelegateDID) == "" {
		return &ValidationError{Field: "delegateDid", Reason: "required"}
	}
	if strings.TrimSpace(r.Proof) == "" {
		return &ValidationError{Field: "delegationProof", Reason: "required"}
	}
	if v := did.ValidateFormat(r.DelegateDID); !v.Valid {
		return &ValidationError{Field: "delegateDid", Reason: v.Error}
	}
	if r.RootDID == r.DelegateDID {
		return &ValidationError{Field: "delegateDid", Reason: "an issuer cannot delegate to itself"}
	}
	return nil
}

// Create records a delegation. The delegate becomes an active issuer in the
// root's registry if it is not one already. The scope is stored as supplied
// and is not checked against the root's own authorizations.
//
// Creation is refused with ErrDepthExceeded when the root already sits at
// MaxDepth levels. This is stricter than Chain, which only stops walking at
// the cap and would otherwise report a truncated chain.
//
// The delegation is stored before the delegate issuer so that a lost race
// on the delegation leaves no issuer behind. If the issuer cannot be
// created the new delegation is revoked again.
func (e *Engine) Create(ctx context.Context, req CreateRequest) (_ *store.Delegation, err error) {
	ctx, probe := e.observer.OperationStarted(ctx, OperationCreate, req.RootDID, req.DelegateDID)
	defer func() {
		if err != nil {
			probe.Failed(err)
		}
		probe.End()
	}()

	if err := req.validate(); err != nil {
		return nil, err
	}

	root, err := e.store.GetEntity(ctx, store.KindIssuer, req.RootDID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrRootNotFound, req.RootDID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up root issuer: %w", err)
	}
	if root.Status != store.EntityActive {
		return nil, fmt.Errorf("%w: %s is %s", ErrRootInactive, root.DID, root.Status)
	}

	if _, err := e.store.FindActiveDelegation(ctx, req.RootDID, req.DelegateDID); err == nil {
		return nil, fmt.Errorf("%w: active delegation from %s to %s already exists", ErrConflict, req.RootDID, req.DelegateDID)
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("failed to look up existing delegation: %w", err)
	}

	ancestors, truncated, err := e.ancestors(ctx, req.RootDID)
	if err != nil {
		return nil, err
	}
	for _, a := range ancestors {
		if a == req.DelegateDID {
			return nil, fmt.Errorf("%w: %s already delegates to %s", ErrCycle, req.DelegateDID, req.RootDID)
		}
	}
	if truncated || len(ancestors) >= e.maxDepth {
		return nil, fmt.Errorf("%w: %s is already %d levels deep", ErrDepthExceeded, req.RootDID, len(ancestors))
	}

	now := e.clock.Now().UTC()

	d := &store.Delegation{
		RootIssuerDID:     req.RootDID,
		DelegateIssuerDID: req.DelegateDID,
		Scope:             req.Scope,
		Proof:             req.Proof,
		Status:            store.DelegationActive,
		ValidUntil:        req.ValidUntil,
		CreatedAt:         now,
	}
	if err := e.store.CreateDelegation(ctx, d); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, fmt.Errorf("%w: active delegation from %s to %s already exists", ErrConflict, req.RootDID, req.DelegateDID)
		}
		return nil, fmt.Errorf("failed to create delegation: %w", err)
	}

	if err := e.ensureDelegateIssuer(ctx, root, req.DelegateDID, now, probe); err != nil {
		d.Status = store.DelegationRevoked
		d.RevokedAt = &now
		if uerr := e.store.UpdateDelegation(ctx, d); uerr != nil {
			return nil, errors.Join(err, fmt.Errorf("failed to revoke orphaned delegation %s: %w", d.ID, uerr))
		}
		return nil, err
	}
	return d, nil
}

// ensureDelegateIssuer creates the delegate as an issuer in the root's
// registry when no issuer record exists for it
func (e *Engine) ensureDelegateIssuer(ctx context.Context, root *store.Entity, delegateDID string, now time.Time, probe Probe) error {
	_, err := e.store.GetEntity(ctx, store.KindIssuer, delegateDID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("failed to look up delegate issuer: %w", err)
	}

	issuer := &store.Entity{
		Kind:             store.KindIssuer,
		DID:              delegateDID,
		Name:             delegateDID,
		RegistryID:       root.RegistryID,
		TrustFrameworkID: root.TrustFrameworkID,
		Status:           store.EntityActive,
		CreatedBy:        "delegation:" + root.DID,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := e.store.CreateEntity(ctx, issuer); err != nil {
		// Lost a race with another creator
		if errors.Is(err, store.ErrConflict) {
			return nil
		}
		return fmt.Errorf("failed to create delegate issuer: %w", err)
	}
	probe.DelegateIssuerCreated(issuer)
	return nil
}

// ancestors returns issuerDID followed by each issuer above it, nearest
// first. truncated is set if the walk stopped at the depth bound with
// further delegations above.
func (e *Engine) ancestors(ctx context.Context, issuerDID string) ([]string, bool, error) {
	dids := []string{issuerDID}
	current := issuerDID
	for i := 0; i < e.maxDepth; i++ {
		d, err := e.store.FindActiveDelegationByDelegate(ctx, current)
		if errors.Is(err, store.ErrNotFound) {
			return dids, false, nil
		}
		if err != nil {
			return nil, false, fmt.Errorf("failed to walk delegation chain: %w", err)
		}
		current = d.RootIssuerDID
		dids = append(dids, current)
	}
	return dids, true, nil
}

// DelegateList is one page of a root's delegations
type DelegateList struct {
	RootIssuerDID string              `json:"rootIssuerDid"`
	Delegations   []*store.Delegation `json:"delegations"`
	Total         int                 `json:"total"`
	Limit         int                 `json:"limit"`
	Offset        int                 `json:"offset"`
}

// ListDelegates lists delegations made by rootDID, newest first.
// status, when non-nil, filters by delegation status.
func (e *Engine) ListDelegates(ctx context.Context, rootDID string, status *store.DelegationStatus, page store.Page) (*DelegateList, error) {
	if _, err := e.store.GetEntity(ctx, store.KindIssuer, rootDID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrRootNotFound, rootDID)
		}
		return nil, fmt.Errorf("failed to look up root issuer: %w", err)
	}

	page = page.Normalize()
	delegations, total, err := e.store.ListDelegations(ctx, store.DelegationFilter{
		RootIssuerDID: rootDID,
		Status:        status,
	}, page)
	if err != nil {
		return nil, fmt.Errorf("failed to list delegations: %w", err)
	}
	if delegations == nil {
		delegations = []*store.Delegation{}
	}
	return &DelegateList{
		RootIssuerDID: rootDID,
		Delegations:   delegations,
		Total:         total,
		Limit:         page.Limit,
		Offset:        page.Offset,
	}, nil
}

// Revoke revokes the active delegation from rootDID to delegateDID.
// Delegations made by the delegate are left untouched.
func (e *Engine) Revoke(ctx context.Context, rootDID, delegateDID string) (_ *store.Delegation, err error) {
	ctx, probe := e.observer.OperationStarted(ctx, OperationRevoke, rootDID, delegateDID)
	defer func() {
		if err != nil {
			probe.Failed(err)
		}
		probe.End()
	}()

	d, err := e.store.FindActiveDelegation(ctx, rootDID, delegateDID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: no active delegation from %s to %s", ErrNotFound, rootDID, delegateDID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up delegation: %w", err)
	}

	now := e.clock.Now().UTC()
	d.Status = store.DelegationRevoked
	d.RevokedAt = &now
	if err := e.store.UpdateDelegation(ctx, d); err != nil {
		return nil, fmt.Errorf("failed to revoke delegation: %w", err)
	}
	return d, nil
}

// IsExpired reports whether d has a ValidUntil before t
func IsExpired(d *store.Delegation, t time.Time) bool {
	return d.ValidUntil != nil && d.ValidUntil.Before(t)
}
