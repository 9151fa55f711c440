package gormstore

import (
	"time"

	"github.com/alechenninger/trustreg/internal/store"
)

type trustFrameworkModel struct {
	ID                     string `gorm:"primaryKey"`
	Name                   string
	Version                string
	GovernanceFrameworkURL string
}

func (trustFrameworkModel) TableName() string { return "trust_frameworks" }

type registryModel struct {
	ID               string `gorm:"primaryKey"`
	EcosystemDID     string `gorm:"uniqueIndex"`
	Name             string
	Description      string `gorm:"type:text"`
	Status           string `gorm:"index"`
	TrustFrameworkID string
	CreatedAt        time.Time `gorm:"autoCreateTime:false"`
}

func (registryModel) TableName() string { return "registries" }

type schemaModel struct {
	ID         string `gorm:"primaryKey"`
	RegistryID string `gorm:"index"`
	Name       string
	Type       string
	Version    string
}

func (schemaModel) TableName() string { return "credential_schemas" }

type entityModel struct {
	ID               string `gorm:"primaryKey"`
	Kind             string `gorm:"index:,unique,composite:kind_did"`
	DID              string `gorm:"index:,unique,composite:kind_did"`
	Name             string
	RegistryID       string `gorm:"index"`
	TrustFrameworkID string
	Status           string
	ValidFrom        *time.Time
	ValidUntil       *time.Time
	Jurisdictions    []string          `gorm:"serializer:json"`
	Contexts         []string          `gorm:"serializer:json"`
	Accreditation    map[string]string `gorm:"serializer:json"`
	CredentialTypes  []string          `gorm:"serializer:json"`
	CreatedBy        string
	CreatedAt        time.Time `gorm:"autoCreateTime:false"`
	UpdatedAt        time.Time `gorm:"autoUpdateTime:false"`
}

func (entityModel) TableName() string { return "entities" }

type delegationModel struct {
	ID                string                `gorm:"primaryKey"`
	RootIssuerDID     string                `gorm:"index"`
	DelegateIssuerDID string                `gorm:"index"`
	Scope             store.DelegationScope `gorm:"serializer:json"`
	Proof             string                `gorm:"type:text"`
	Status            string                `gorm:"index"`
	ValidUntil        *time.Time
	CreatedAt         time.Time `gorm:"autoCreateTime:false"`
	RevokedAt         *time.Time
}

func (delegationModel) TableName() string { return "delegations" }

type recognitionModel struct {
	ID                  string `gorm:"primaryKey"`
	AuthorityRegistryID string `gorm:"index:,composite:registry_entity"`
	EntityDID           string `gorm:"index:,composite:registry_entity"`
	Action              string
	Resource            string
	Recognized          bool
	ValidFrom           *time.Time
	ValidUntil          *time.Time
	CreatedAt           time.Time `gorm:"autoCreateTime:false"`
}

func (recognitionModel) TableName() string { return "recognitions" }

func fromRegistry(r *store.Registry) *registryModel {
	return &registryModel{
		ID:               r.ID,
		EcosystemDID:     r.EcosystemDID,
		Name:             r.Name,
		Description:      r.Description,
		Status:           string(r.Status),
		TrustFrameworkID: r.TrustFrameworkID,
		CreatedAt:        r.CreatedAt,
	}
}

func (m *registryModel) toStore() *store.Registry {
	return &store.Registry{
		ID:               m.ID,
		EcosystemDID:     m.EcosystemDID,
		Name:             m.Name,
		Description:      m.Description,
		Status:           store.RegistryStatus(m.Status),
		TrustFrameworkID: m.TrustFrameworkID,
		CreatedAt:        m.CreatedAt,
	}
}

func fromEntity(e *store.Entity) *entityModel {
	return &entityModel{
		ID:               e.ID,
		Kind:             string(e.Kind),
		DID:              e.DID,
		Name:             e.Name,
		RegistryID:       e.RegistryID,
		TrustFrameworkID: e.TrustFrameworkID,
		Status:           string(e.Status),
		ValidFrom:        e.ValidFrom,
		ValidUntil:       e.ValidUntil,
		Jurisdictions:    e.Jurisdictions,
		Contexts:         e.Contexts,
		Accreditation:    e.Accreditation,
		CredentialTypes:  e.CredentialTypes,
		CreatedBy:        e.CreatedBy,
		CreatedAt:        e.CreatedAt,
		UpdatedAt:        e.UpdatedAt,
	}
}

func (m *entityModel) toStore() *store.Entity {
	return &store.Entity{
		ID:               m.ID,
		Kind:             store.EntityKind(m.Kind),
		DID:              m.DID,
		Name:             m.Name,
		RegistryID:       m.RegistryID,
		TrustFrameworkID: m.TrustFrameworkID,
		Status:           store.EntityStatus(m.Status),
		ValidFrom:        m.ValidFrom,
		ValidUntil:       m.ValidUntil,
		Jurisdictions:    m.Jurisdictions,
		Contexts:         m.Contexts,
		Accreditation:    m.Accreditation,
		CredentialTypes:  m.CredentialTypes,
		CreatedBy:        m.CreatedBy,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}

func fromDelegation(d *store.Delegation) *delegationModel {
	return &delegationModel{
		ID:                d.ID,
		RootIssuerDID:     d.RootIssuerDID,
		DelegateIssuerDID: d.DelegateIssuerDID,
		Scope:             d.Scope,
		Proof:             d.Proof,
		Status:            string(d.Status),
		ValidUntil:        d.ValidUntil,
		CreatedAt:         d.CreatedAt,
		RevokedAt:         d.RevokedAt,
	}
}

func (m *delegationModel) toStore() *store.Delegation {
	return &store.Delegation{
		ID:                m.ID,
		RootIssuerDID:     m.RootIssuerDID,
		DelegateIssuerDID: m.DelegateIssuerDID,
		Scope:             m.Scope,
		Proof:             m.Proof,
		Status:            store.DelegationStatus(m.Status),
		ValidUntil:        m.ValidUntil,
		CreatedAt:         m.CreatedAt,
		RevokedAt:         m.RevokedAt,
	}
}

func fromRecognition(r *store.Recognition) *recognitionModel {
	return &recognitionModel{
		ID:                  r.ID,
		AuthorityRegistryID: r.AuthorityRegistryID,
		EntityDID:           r.EntityDID,
		Action:              r.Action,
		Resource:            r.Resource,
		Recognized:          r.Recognized,
		ValidFrom:           r.ValidFrom,
		ValidUntil:          r.ValidUntil,
		CreatedAt:           r.CreatedAt,
	}
}

func (m *recognitionModel) toStore() *store.Recognition {
	return &store.Recognition{
		ID:                  m.ID,
		AuthorityRegistryID: m.AuthorityRegistryID,
		EntityDID:           m.EntityDID,
		Action:              m.Action,
		Resource:            m.Resource,
		Recognized:          m.Recognized,
		ValidFrom:           m.ValidFrom,
		ValidUntil:          m.ValidUntil,
		CreatedAt:           m.CreatedAt,
	}
}
