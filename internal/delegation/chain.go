package delegation

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/alechenninger/trustreg/internal/store"
)

// IssuerSummary identifies an issuer in a chain. Only DID is set for an
// issuer with no record in the store.
type IssuerSummary struct {
	DID        string             `json:"did"`
	Name       string             `json:"name,omitempty"`
	Status     store.EntityStatus `json:"status,omitempty"`
	RegistryID string             `json:"registryId,omitempty"`
}

// DelegationSummary describes the delegation linking a node to its parent
type DelegationSummary struct {
	ID            string                 `json:"id"`
	RootIssuerDID string                 `json:"rootIssuerDid"`
	Scope         store.DelegationScope  `json:"scope"`
	Status        store.DelegationStatus `json:"status"`
	ValidUntil    *time.Time             `json:"validUntil,omitempty"`
	CreatedAt     time.Time              `json:"createdAt"`
	// Expired is set when ValidUntil has passed. The walk still follows
	// expired links; only revocation breaks a chain.
	Expired bool `json:"expired"`
}

// Node is one level of a chain
type Node struct {
	Level      int                `json:"level"`
	Issuer     IssuerSummary      `json:"issuer"`
	Delegation *DelegationSummary `json:"delegation"`
}

// Chain is ordered from the root (level 0) to the queried issuer
type Chain struct {
	IssuerDID string `json:"issuerDid"`
	Nodes     []Node `json:"chain"`
	Length    int    `json:"chainLength"`
}

// Chain walks from issuerDID up to its root through active delegations.
// The walk stops after the engine's maximum depth even if delegations remain.
func (e *Engine) Chain(ctx context.Context, issuerDID string) (_ *Chain, err error) {
	ctx, probe := e.observer.OperationStarted(ctx, OperationChain, "", issuerDID)
	defer func() {
		if err != nil {
			probe.Failed(err)
		}
		probe.End()
	}()

	if _, err := e.store.GetEntity(ctx, store.KindIssuer, issuerDID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrIssuerNotFound, issuerDID)
		}
		return nil, fmt.Errorf("failed to look up issuer: %w", err)
	}

	now := e.clock.Now()

	// Built leaf first, reversed at the end
	var nodes []Node
	current := issuerDID
	reachedRoot := false
	for i := 0; i < e.maxDepth; i++ {
		issuer, err := e.summarizeIssuer(ctx, current)
		if err != nil {
			return nil, err
		}

		d, err := e.store.FindActiveDelegationByDelegate(ctx, current)
		if errors.Is(err, store.ErrNotFound) {
			nodes = append(nodes, Node{Issuer: issuer})
			reachedRoot = true
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to walk delegation chain: %w", err)
		}

		nodes = append(nodes, Node{Issuer: issuer, Delegation: summarize(d, now)})
		current = d.RootIssuerDID
	}
	if !reachedRoot {
		probe.ChainTruncated(current)
	}

	slices.Reverse(nodes)
	for i := range nodes {
		nodes[i].Level = i
	}

	return &Chain{
		IssuerDID: issuerDID,
		Nodes:     nodes,
		Length:    len(nodes),
	}, nil
}

func (e *Engine) summarizeIssuer(ctx context.Context, issuerDID string) (IssuerSummary, error) {
	issuer, err := e.store.GetEntity(ctx, store.KindIssuer, issuerDID)
	if errors.Is(err, store.ErrNotFound) {
		return IssuerSummary{DID: issuerDID}, nil
	}
	if err != nil {
		return IssuerSummary{}, fmt.Errorf("failed to look up issuer: %w", err)
	}
	return IssuerSummary{
		DID:        issuer.DID,
		Name:       issuer.Name,
		Status:     issuer.Status,
		RegistryID: issuer.RegistryID,
	}, nil
}

func summarize(d *store.Delegation, now time.Time) *DelegationSummary {
	return &DelegationSummary{
		ID:            d.ID,
		RootIssuerDID: d.RootIssuerDID,
		Scope:         d.Scope,
		Status:        d.Status,
		ValidUntil:    d.ValidUntil,
		CreatedAt:     d.CreatedAt,
		Expired:       IsExpired(d, now),
	}
}
