package store

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when a record does not exist
	ErrNotFound = errors.New("record not found")

	// ErrConflict is returned when a write would violate a uniqueness rule,
	// such as a second active delegation for the same root and delegate
	ErrConflict = errors.New("record conflict")
)

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// Page selects a slice of a list result
type Page struct {
	Limit  int
	Offset int
}

// Normalize applies the default and maximum limit and clamps a negative offset
func (p Page) Normalize() Page {
	if p.Limit <= 0 {
		p.Limit = DefaultPageLimit
	}
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

// DelegationFilter narrows ListDelegations
type DelegationFilter struct {
	RootIssuerDID string
	// Status, when set, restricts results to that status
	Status *DelegationStatus
}

// Store is the record store the trust engine reads and writes.
// Lookups that find nothing return ErrNotFound.
type Store interface {
	CreateTrustFramework(ctx context.Context, tf *TrustFramework) error
	GetTrustFramework(ctx context.Context, id string) (*TrustFramework, error)

	CreateRegistry(ctx context.Context, r *Registry) error
	GetRegistry(ctx context.Context, id string) (*Registry, error)
	GetRegistryByDID(ctx context.Context, ecosystemDID string) (*Registry, error)
	ListRegistries(ctx context.Context) ([]*Registry, error)

	CreateSchema(ctx context.Context, s *CredentialSchema) error
	GetSchema(ctx context.Context, id string) (*CredentialSchema, error)
	ListSchemas(ctx context.Context, registryID string) ([]*CredentialSchema, error)

	// CreateEntity returns ErrConflict if an entity of the same kind already has the DID
	CreateEntity(ctx context.Context, e *Entity) error
	GetEntity(ctx context.Context, kind EntityKind, did string) (*Entity, error)
	UpdateEntity(ctx context.Context, e *Entity) error
	ListEntities(ctx context.Context, kind EntityKind, registryID string) ([]*Entity, error)

	// CreateDelegation returns ErrConflict if an active delegation already
	// exists for the same root and delegate
	CreateDelegation(ctx context.Context, d *Delegation) error
	FindActiveDelegation(ctx context.Context, rootDID, delegateDID string) (*Delegation, error)
	// FindActiveDelegationByDelegate returns the newest active delegation naming delegateDID
	FindActiveDelegationByDelegate(ctx context.Context, delegateDID string) (*Delegation, error)
	UpdateDelegation(ctx context.Context, d *Delegation) error
	// ListDelegations returns matching delegations newest first, and the unpaged total
	ListDelegations(ctx context.Context, filter DelegationFilter, page Page) ([]*Delegation, int, error)

	CreateRecognition(ctx context.Context, r *Recognition) error
	ListRecognitions(ctx context.Context, registryID, entityDID string) ([]*Recognition, error)
}
