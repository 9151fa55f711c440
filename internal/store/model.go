package store

import (
	"time"
)

// RegistryStatus is the lifecycle state of an ecosystem registry
type RegistryStatus string

const (
	RegistryActive     RegistryStatus = "active"
	RegistryInactive   RegistryStatus = "inactive"
	RegistryDeprecated RegistryStatus = "deprecated"
)

// EntityStatus is the lifecycle state of an issuer or verifier.
// Revoked is terminal.
type EntityStatus string

const (
	EntityPending   EntityStatus = "pending"
	EntityActive    EntityStatus = "active"
	EntitySuspended EntityStatus = "suspended"
	EntityRevoked   EntityStatus = "revoked"
)

// DelegationStatus is the lifecycle state of a delegation.
// Revoked is terminal.
type DelegationStatus string

const (
	DelegationActive  DelegationStatus = "active"
	DelegationRevoked DelegationStatus = "revoked"
)

// EntityKind distinguishes issuers from verifiers.
// The same DID may be registered once per kind.
type EntityKind string

const (
	KindIssuer   EntityKind = "issuer"
	KindVerifier EntityKind = "verifier"
)

// TrustFramework is the governance framework a registry operates under
type TrustFramework struct {
	ID                     string `json:"id"`
	Name                   string `json:"name"`
	Version                string `json:"version,omitempty"`
	GovernanceFrameworkURL string `json:"governanceFrameworkUrl,omitempty"`
}

// Registry is an ecosystem authority, the "authority" side of every trust query
type Registry struct {
	ID               string         `json:"id"`
	EcosystemDID     string         `json:"ecosystemDid"`
	Name             string         `json:"name"`
	Description      string         `json:"description,omitempty"`
	Status           RegistryStatus `json:"status"`
	TrustFrameworkID string         `json:"trustFrameworkId,omitempty"`
	CreatedAt        time.Time      `json:"createdAt"`
}

// CredentialSchema is a credential type that issuers and verifiers are linked to
type CredentialSchema struct {
	ID         string `json:"id"`
	RegistryID string `json:"registryId"`
	Name       string `json:"name"`
	Type       string `json:"type"`
	Version    string `json:"version,omitempty"`
}

// Entity is an issuer or verifier belonging to exactly one registry
type Entity struct {
	ID               string            `json:"id"`
	Kind             EntityKind        `json:"kind"`
	DID              string            `json:"did"`
	Name             string            `json:"name"`
	RegistryID       string            `json:"registryId"`
	TrustFrameworkID string            `json:"trustFrameworkId,omitempty"`
	Status           EntityStatus      `json:"status"`
	ValidFrom        *time.Time        `json:"validFrom,omitempty"`
	ValidUntil       *time.Time        `json:"validUntil,omitempty"`
	Jurisdictions    []string          `json:"jurisdictions,omitempty"`
	Contexts         []string          `json:"contexts,omitempty"`
	Accreditation    map[string]string `json:"accreditation,omitempty"`
	// CredentialTypes holds the IDs of linked CredentialSchema records
	CredentialTypes []string  `json:"credentialTypes,omitempty"`
	CreatedBy       string    `json:"createdBy,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// Window returns the entity's validity window
func (e *Entity) Window() ValidityWindow {
	return ValidityWindow{From: e.ValidFrom, Until: e.ValidUntil}
}

// DelegationScope limits what a delegate may issue. It is recorded as
// supplied; delegation creation does not check it against the root's scope.
type DelegationScope struct {
	Jurisdictions   []string `json:"jurisdictions,omitempty"`
	CredentialTypes []string `json:"credentialTypes,omitempty"`
	Contexts        []string `json:"contexts,omitempty"`
}

// Delegation is a directed grant of issuing authority from a root issuer to a delegate
type Delegation struct {
	ID                string           `json:"id"`
	RootIssuerDID     string           `json:"rootIssuerDid"`
	DelegateIssuerDID string           `json:"delegateIssuerDid"`
	Scope             DelegationScope  `json:"scope"`
	Proof             string           `json:"delegationProof"`
	Status            DelegationStatus `json:"status"`
	ValidUntil        *time.Time       `json:"validUntil,omitempty"`
	CreatedAt         time.Time        `json:"createdAt"`
	RevokedAt         *time.Time       `json:"revokedAt,omitempty"`
}

// Recognition is a scoped trust assertion from an authority registry to an entity DID
type Recognition struct {
	ID                  string     `json:"id"`
	AuthorityRegistryID string     `json:"authorityRegistryId"`
	EntityDID           string     `json:"entityDid"`
	Action              string     `json:"action"`
	Resource            string     `json:"resource"`
	Recognized          bool       `json:"recognized"`
	ValidFrom           *time.Time `json:"validFrom,omitempty"`
	ValidUntil          *time.Time `json:"validUntil,omitempty"`
	CreatedAt           time.Time  `json:"createdAt"`
}

// Window returns the recognition's validity window
func (r *Recognition) Window() ValidityWindow {
	return ValidityWindow{From: r.ValidFrom, Until: r.ValidUntil}
}

// ValidityWindow is an inclusive time range; a nil bound is unbounded
type ValidityWindow struct {
	From  *time.Time
	Until *time.Time
}

// Contains reports whether t lies within the window, bounds inclusive
func (w ValidityWindow) Contains(t time.Time) bool {
	if w.From != nil && t.Before(*w.From) {
		return false
	}
	if w.Until != nil && t.After(*w.Until) {
		return false
	}
	return true
}
