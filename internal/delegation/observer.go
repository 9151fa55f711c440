package delegation

import (
	"context"

	"github.com/alechenninger/trustreg/internal/store"
)

// Operation names an engine operation for observers
type Operation string

const (
	OperationCreate Operation = "create"
	OperationRevoke Operation = "revoke"
	OperationChain  Operation = "chain"
)

// Observer creates request-scoped probes for engine operations.
// For OperationChain, rootDID is empty and delegateDID is the queried issuer.
type Observer interface {
	OperationStarted(ctx context.Context, op Operation, rootDID, delegateDID string) (context.Context, Probe)
}

// Probe receives the events of a single operation. End is always called last.
type Probe interface {
	DelegateIssuerCreated(issuer *store.Entity)
	ChainTruncated(at string)
	Failed(err error)
	End()
}

// NoOpObserver discards all events
type NoOpObserver struct{}

func (NoOpObserver) OperationStarted(ctx context.Context, op Operation, rootDID, delegateDID string) (context.Context, Probe) {
	return ctx, noOpProbe{}
}

type noOpProbe struct{}

func (noOpProbe) DelegateIssuerCreated(issuer *store.Entity) {}
func (noOpProbe) ChainTruncated(at string) {}
func (noOpProbe) Failed(err error) {}
func (noOpProbe) End() {}
