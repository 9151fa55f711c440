package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-yaml"

	"github.com/alechenninger/trustreg/internal/fs"
)

// Seed is the YAML document used to populate a Store at startup.
// Timestamps are RFC3339 strings.
type Seed struct {
	TrustFrameworks []TrustFramework   `yaml:"trust_frameworks"`
	Registries      []SeedRegistry     `yaml:"registries"`
	Schemas         []CredentialSchema `yaml:"schemas"`
	Issuers         []SeedEntity       `yaml:"issuers"`
	Verifiers       []SeedEntity       `yaml:"verifiers"`
	Delegations     []SeedDelegation   `yaml:"delegations"`
	Recognitions    []SeedRecognition  `yaml:"recognitions"`
}

type SeedRegistry struct {
	ID               string `yaml:"id"`
	EcosystemDID     string `yaml:"ecosystem_did"`
	Name             string `yaml:"name"`
	Description      string `yaml:"description"`
	Status           string `yaml:"status"`
	TrustFrameworkID string `yaml:"trust_framework_id"`
}

type SeedEntity struct {
	ID               string            `yaml:"id"`
	DID              string            `yaml:"did"`
	Name             string            `yaml:"name"`
	RegistryID       string            `yaml:"registry_id"`
	TrustFrameworkID string            `yaml:"trust_framework_id"`
	Status           string            `yaml:"status"`
	ValidFrom        string            `yaml:"valid_from"`
	ValidUntil       string            `yaml:"valid_until"`
	Jurisdictions    []string          `yaml:"jurisdictions"`
	Contexts         []string          `yaml:"contexts"`
	Accreditation    map[string]string `yaml:"accreditation"`
	CredentialTypes  []string          `yaml:"credential_types"`
}

type SeedDelegation struct {
	ID          string          `yaml:"id"`
	RootDID     string          `yaml:"root_did"`
	DelegateDID string          `yaml:"delegate_did"`
	Scope       DelegationScope `yaml:"scope"`
	Proof       string          `yaml:"proof"`
	ValidUntil  string          `yaml:"valid_until"`
}

type SeedRecognition struct {
	ID         string `yaml:"id"`
	RegistryID string `yaml:"registry_id"`
	EntityDID  string `yaml:"entity_did"`
	Action     string `yaml:"action"`
	Resource   string `yaml:"resource"`
	Recognized *bool  `yaml:"recognized"`
	ValidFrom  string `yaml:"valid_from"`
	ValidUntil string `yaml:"valid_until"`
}

// ParseSeed decodes a YAML seed document
func ParseSeed(data []byte) (*Seed, error) {
	var seed Seed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("failed to parse seed: %w", err)
	}
	return &seed, nil
}

// LoadSeed reads the seed file at path and applies it to st
func LoadSeed(ctx context.Context, fsys fs.FileSystem, path string, st Store, now time.Time) error {
	data, err := fsys.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read seed file %s: %w", path, err)
	}
	seed, err := ParseSeed(data)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return seed.Apply(ctx, st, now)
}

// Apply writes the seed's records to st. Records that already exist are
// skipped, so applying the same seed twice is harmless.
func (s *Seed) Apply(ctx context.Context, st Store, now time.Time) error {
	for i := range s.TrustFrameworks {
		tf := s.TrustFrameworks[i]
		if err := ignoreConflict(st.CreateTrustFramework(ctx, &tf)); err != nil {
			return err
		}
	}

	for _, r := range s.Registries {
		status := RegistryStatus(r.Status)
		if status == "" {
			status = RegistryActive
		}
		reg := &Registry{
			ID:               r.ID,
			EcosystemDID:     r.EcosystemDID,
			Name:             r.Name,
			Description:      r.Description,
			Status:           status,
			TrustFrameworkID: r.TrustFrameworkID,
			CreatedAt:        now,
		}
		if err := ignoreConflict(st.CreateRegistry(ctx, reg)); err != nil {
			return err
		}
	}

	for i := range s.Schemas {
		schema := s.Schemas[i]
		if err := ignoreConflict(st.CreateSchema(ctx, &schema)); err != nil {
			return err
		}
	}

	for _, group := range []struct {
		kind     EntityKind
		entities []SeedEntity
	}{
		{KindIssuer, s.Issuers},
		{KindVerifier, s.Verifiers},
	} {
		for _, se := range group.entities {
			e, err := se.toEntity(group.kind, now)
			if err != nil {
				return err
			}
			if err := ignoreConflict(st.CreateEntity(ctx, e)); err != nil {
				return err
			}
		}
	}

	for _, sd := range s.Delegations {
		until, err := parseSeedTime(sd.ValidUntil)
		if err != nil {
			return fmt.Errorf("delegation %s -> %s: %w", sd.RootDID, sd.DelegateDID, err)
		}
		d := &Delegation{
			ID:                sd.ID,
			RootIssuerDID:     sd.RootDID,
			DelegateIssuerDID: sd.DelegateDID,
			Scope:             sd.Scope,
			Proof:             sd.Proof,
			Status:            DelegationActive,
			ValidUntil:        until,
			CreatedAt:         now,
		}
		if err := ignoreConflict(st.CreateDelegation(ctx, d)); err != nil {
			return err
		}
	}

	for _, sr := range s.Recognitions {
		from, err := parseSeedTime(sr.ValidFrom)
		if err != nil {
			return fmt.Errorf("recognition of %s: %w", sr.EntityDID, err)
		}
		until, err := parseSeedTime(sr.ValidUntil)
		if err != nil {
			return fmt.Errorf("recognition of %s: %w", sr.EntityDID, err)
		}
		recognized := true
		if sr.Recognized != nil {
			recognized = *sr.Recognized
		}
		r := &Recognition{
			ID:                  sr.ID,
			AuthorityRegistryID: sr.RegistryID,
			EntityDID:           sr.EntityDID,
			Action:              sr.Action,
			Resource:            sr.Resource,
			Recognized:          recognized,
			ValidFrom:           from,
			ValidUntil:          until,
			CreatedAt:           now,
		}
		if err := ignoreConflict(st.CreateRecognition(ctx, r)); err != nil {
			return err
		}
	}

	return nil
}

func (se SeedEntity) toEntity(kind EntityKind, now time.Time) (*Entity, error) {
	from, err := parseSeedTime(se.ValidFrom)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", kind, se.DID, err)
	}
	until, err := parseSeedTime(se.ValidUntil)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", kind, se.DID, err)
	}
	status := EntityStatus(se.Status)
	if status == "" {
		status = EntityActive
	}
	return &Entity{
		ID:               se.ID,
		Kind:             kind,
		DID:              se.DID,
		Name:             se.Name,
		RegistryID:       se.RegistryID,
		TrustFrameworkID: se.TrustFrameworkID,
		Status:           status,
		ValidFrom:        from,
		ValidUntil:       until,
		Jurisdictions:    se.Jurisdictions,
		Contexts:         se.Contexts,
		Accreditation:    se.Accreditation,
		CredentialTypes:  se.CredentialTypes,
		CreatedBy:        "seed",
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

func parseSeedTime(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	return &t, nil
}

func ignoreConflict(err error) error {
	if errors.Is(err, ErrConflict) {
		return nil
	}
	return err
}
