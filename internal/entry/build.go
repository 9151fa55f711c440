package entry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alechenninger/trustreg/internal/store"
)

// Entry types
const (
	TypeIssuer   = "issuer"
	TypeVerifier = "verifier"
	TypeRegistry = "registry"
)

// BuildIssuerEntry assembles the entry payload for the issuer with the given DID
func (s *Service) BuildIssuerEntry(ctx context.Context, issuerDID string) (Entry, error) {
	return s.buildEntityEntry(ctx, store.KindIssuer, issuerDID)
}

// BuildVerifierEntry assembles the entry payload for the verifier with the given DID
func (s *Service) BuildVerifierEntry(ctx context.Context, verifierDID string) (Entry, error) {
	return s.buildEntityEntry(ctx, store.KindVerifier, verifierDID)
}

func (s *Service) buildEntityEntry(ctx context.Context, kind store.EntityKind, entityDID string) (Entry, error) {
	if s.store == nil {
		return nil, fmt.Errorf("no record store configured")
	}
	e, err := s.store.GetEntity(ctx, kind, entityDID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up %s %s: %w", kind, entityDID, err)
	}
	reg, err := s.store.GetRegistry(ctx, e.RegistryID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up registry of %s: %w", entityDID, err)
	}

	credentialTypes, err := s.schemaTypes(ctx, e.CredentialTypes)
	if err != nil {
		return nil, err
	}

	tfID := e.TrustFrameworkID
	if tfID == "" {
		tfID = reg.TrustFrameworkID
	}
	tf, err := s.trustFramework(ctx, tfID)
	if err != nil {
		return nil, err
	}

	accreditation := map[string]any{}
	for k, v := range e.Accreditation {
		accreditation[k] = v
	}

	return Entry{
		"type":            string(kind),
		"did":             e.DID,
		"name":            e.Name,
		"status":          string(e.Status),
		"jurisdictions":   orEmpty(e.Jurisdictions),
		"contexts":        orEmpty(e.Contexts),
		"accreditation":   accreditation,
		"validFrom":       formatTime(e.ValidFrom),
		"validUntil":      formatTime(e.ValidUntil),
		"credentialTypes": credentialTypes,
		"registry":        registrySummary(reg),
		"trustFramework":  tf,
		"generatedAt":     s.clock.Now().UTC().Format(time.RFC3339),
	}, nil
}

// BuildRegistryEntry assembles the entry payload for a registry, looked up
// by ID or by ecosystem DID
func (s *Service) BuildRegistryEntry(ctx context.Context, idOrDID string) (Entry, error) {
	if s.store == nil {
		return nil, fmt.Errorf("no record store configured")
	}
	reg, err := s.store.GetRegistry(ctx, idOrDID)
	if errors.Is(err, store.ErrNotFound) {
		reg, err = s.store.GetRegistryByDID(ctx, idOrDID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up registry %s: %w", idOrDID, err)
	}

	schemas, err := s.store.ListSchemas(ctx, reg.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list schemas: %w", err)
	}
	credentialTypes := make([]string, 0, len(schemas))
	for _, schema := range schemas {
		credentialTypes = append(credentialTypes, schema.Type)
	}

	tf, err := s.trustFramework(ctx, reg.TrustFrameworkID)
	if err != nil {
		return nil, err
	}

	return Entry{
		"type":            TypeRegistry,
		"did":             reg.EcosystemDID,
		"name":            reg.Name,
		"description":     reg.Description,
		"status":          string(reg.Status),
		"credentialTypes": credentialTypes,
		"registry":        registrySummary(reg),
		"trustFramework":  tf,
		"generatedAt":     s.clock.Now().UTC().Format(time.RFC3339),
	}, nil
}

// schemaTypes resolves linked schema IDs to their credential types.
// Links to missing schemas are dropped.
func (s *Service) schemaTypes(ctx context.Context, ids []string) ([]string, error) {
	types := make([]string, 0, len(ids))
	for _, id := range ids {
		schema, err := s.store.GetSchema(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to look up credential schema: %w", err)
		}
		types = append(types, schema.Type)
	}
	return types, nil
}

// trustFramework returns the framework summary, or nil if none is linked
func (s *Service) trustFramework(ctx context.Context, id string) (map[string]any, error) {
	if id == "" {
		return nil, nil
	}
	tf, err := s.store.GetTrustFramework(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up trust framework: %w", err)
	}
	return map[string]any{
		"id":      tf.ID,
		"name":    tf.Name,
		"version": tf.Version,
	}, nil
}

func registrySummary(reg *store.Registry) map[string]any {
	return map[string]any{
		"id":           reg.ID,
		"ecosystemDid": reg.EcosystemDID,
		"name":         reg.Name,
	}
}

func formatTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
