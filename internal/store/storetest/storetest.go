// Package storetest holds behaviour tests shared by every store.Store implementation.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alechenninger/trustreg/internal/store"
)

// Run exercises a Store implementation. newStore must return an empty store
// on each call.
func Run(t *testing.T, newStore func(t *testing.T) store.Store) {
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	t.Run("registries", func(t *testing.T) {
		st := newStore(t)

		reg := &store.Registry{EcosystemDID: "did:web:education-trust.org", Name: "Education", Status: store.RegistryActive, CreatedAt: base}
		require.NoError(t, st.CreateRegistry(ctx, reg))
		assert.NotEmpty(t, reg.ID)

		got, err := st.GetRegistryByDID(ctx, "did:web:education-trust.org")
		require.NoError(t, err)
		assert.Equal(t, reg.ID, got.ID)
		assert.Equal(t, "Education", got.Name)

		got, err = st.GetRegistry(ctx, reg.ID)
		require.NoError(t, err)
		assert.Equal(t, "did:web:education-trust.org", got.EcosystemDID)

		err = st.CreateRegistry(ctx, &store.Registry{EcosystemDID: "did:web:education-trust.org", Status: store.RegistryActive})
		assert.ErrorIs(t, err, store.ErrConflict)

		_, err = st.GetRegistryByDID(ctx, "did:web:unknown.example")
		assert.ErrorIs(t, err, store.ErrNotFound)

		all, err := st.ListRegistries(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 1)
	})

	t.Run("frameworks and schemas", func(t *testing.T) {
		st := newStore(t)

		tf := &store.TrustFramework{ID: "tf-1", Name: "EduFramework", Version: "1.0"}
		require.NoError(t, st.CreateTrustFramework(ctx, tf))
		got, err := st.GetTrustFramework(ctx, "tf-1")
		require.NoError(t, err)
		assert.Equal(t, "EduFramework", got.Name)

		require.NoError(t, st.CreateSchema(ctx, &store.CredentialSchema{ID: "s-1", RegistryID: "r-1", Name: "Degree", Type: "UniversityDegree"}))
		require.NoError(t, st.CreateSchema(ctx, &store.CredentialSchema{ID: "s-2", RegistryID: "r-2", Name: "License", Type: "MedicalLicense"}))

		schema, err := st.GetSchema(ctx, "s-1")
		require.NoError(t, err)
		assert.Equal(t, "UniversityDegree", schema.Type)

		schemas, err := st.ListSchemas(ctx, "r-2")
		require.NoError(t, err)
		require.Len(t, schemas, 1)
		assert.Equal(t, "s-2", schemas[0].ID)

		_, err = st.GetSchema(ctx, "missing")
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("entities", func(t *testing.T) {
		st := newStore(t)
		from := base
		until := base.Add(24 * time.Hour)

		issuer := &store.Entity{
			Kind:            store.KindIssuer,
			DID:             "did:web:university.edu",
			Name:            "University",
			RegistryID:      "r-1",
			Status:          store.EntityActive,
			ValidFrom:       &from,
			ValidUntil:      &until,
			Jurisdictions:   []string{"US"},
			Accreditation:   map[string]string{"body": "ABET"},
			CredentialTypes: []string{"s-1"},
			CreatedAt:       base,
			UpdatedAt:       base,
		}
		require.NoError(t, st.CreateEntity(ctx, issuer))
		assert.NotEmpty(t, issuer.ID)

		err := st.CreateEntity(ctx, &store.Entity{Kind: store.KindIssuer, DID: "did:web:university.edu", RegistryID: "r-1", Status: store.EntityActive})
		assert.ErrorIs(t, err, store.ErrConflict)

		// the same DID may also be registered as a verifier
		require.NoError(t, st.CreateEntity(ctx, &store.Entity{Kind: store.KindVerifier, DID: "did:web:university.edu", RegistryID: "r-1", Status: store.EntityActive}))

		got, err := st.GetEntity(ctx, store.KindIssuer, "did:web:university.edu")
		require.NoError(t, err)
		assert.Equal(t, "University", got.Name)
		assert.Equal(t, []string{"US"}, got.Jurisdictions)
		assert.Equal(t, []string{"s-1"}, got.CredentialTypes)
		assert.Equal(t, "ABET", got.Accreditation["body"])
		require.NotNil(t, got.ValidUntil)
		assert.True(t, until.Equal(*got.ValidUntil))

		got.Status = store.EntitySuspended
		got.Jurisdictions = append(got.Jurisdictions, "CA")
		require.NoError(t, st.UpdateEntity(ctx, got))

		again, err := st.GetEntity(ctx, store.KindIssuer, "did:web:university.edu")
		require.NoError(t, err)
		assert.Equal(t, store.EntitySuspended, again.Status)
		assert.Equal(t, []string{"US", "CA"}, again.Jurisdictions)

		_, err = st.GetEntity(ctx, store.KindIssuer, "did:web:unknown.example")
		assert.ErrorIs(t, err, store.ErrNotFound)

		err = st.UpdateEntity(ctx, &store.Entity{Kind: store.KindIssuer, DID: "did:web:unknown.example"})
		assert.ErrorIs(t, err, store.ErrNotFound)

		issuers, err := st.ListEntities(ctx, store.KindIssuer, "r-1")
		require.NoError(t, err)
		assert.Len(t, issuers, 1)
	})

	t.Run("delegations", func(t *testing.T) {
		st := newStore(t)

		mk := func(root, delegate string, at time.Time) *store.Delegation {
			return &store.Delegation{
				RootIssuerDID:     root,
				DelegateIssuerDID: delegate,
				Scope:             store.DelegationScope{CredentialTypes: []string{"UniversityDegree"}},
				Proof:             "proof",
				Status:            store.DelegationActive,
				CreatedAt:         at,
			}
		}

		first := mk("did:web:root.example", "did:web:a.example", base)
		require.NoError(t, st.CreateDelegation(ctx, first))
		assert.NotEmpty(t, first.ID)

		err := st.CreateDelegation(ctx, mk("did:web:root.example", "did:web:a.example", base.Add(time.Minute)))
		assert.ErrorIs(t, err, store.ErrConflict)

		require.NoError(t, st.CreateDelegation(ctx, mk("did:web:root.example", "did:web:b.example", base.Add(time.Minute))))
		require.NoError(t, st.CreateDelegation(ctx, mk("did:web:other.example", "did:web:a.example", base.Add(2*time.Minute))))

		found, err := st.FindActiveDelegation(ctx, "did:web:root.example", "did:web:a.example")
		require.NoError(t, err)
		assert.Equal(t, first.ID, found.ID)
		assert.Equal(t, []string{"UniversityDegree"}, found.Scope.CredentialTypes)

		newest, err := st.FindActiveDelegationByDelegate(ctx, "did:web:a.example")
		require.NoError(t, err)
		assert.Equal(t, "did:web:other.example", newest.RootIssuerDID)

		list, total, err := st.ListDelegations(ctx, store.DelegationFilter{RootIssuerDID: "did:web:root.example"}, store.Page{})
		require.NoError(t, err)
		assert.Equal(t, 2, total)
		require.Len(t, list, 2)
		assert.Equal(t, "did:web:b.example", list[0].DelegateIssuerDID, "newest first")

		paged, total, err := st.ListDelegations(ctx, store.DelegationFilter{RootIssuerDID: "did:web:root.example"}, store.Page{Limit: 1, Offset: 1})
		require.NoError(t, err)
		assert.Equal(t, 2, total)
		require.Len(t, paged, 1)
		assert.Equal(t, "did:web:a.example", paged[0].DelegateIssuerDID)

		revokedAt := base.Add(time.Hour)
		found.Status = store.DelegationRevoked
		found.RevokedAt = &revokedAt
		require.NoError(t, st.UpdateDelegation(ctx, found))

		_, err = st.FindActiveDelegation(ctx, "did:web:root.example", "did:web:a.example")
		assert.ErrorIs(t, err, store.ErrNotFound)

		revoked := store.DelegationRevoked
		list, total, err = st.ListDelegations(ctx, store.DelegationFilter{RootIssuerDID: "did:web:root.example", Status: &revoked}, store.Page{})
		require.NoError(t, err)
		assert.Equal(t, 1, total)
		require.Len(t, list, 1)
		require.NotNil(t, list[0].RevokedAt)
		assert.True(t, revokedAt.Equal(*list[0].RevokedAt))

		// a revoked pair may be delegated again
		require.NoError(t, st.CreateDelegation(ctx, mk("did:web:root.example", "did:web:a.example", base.Add(3*time.Minute))))
	})

	t.Run("recognitions", func(t *testing.T) {
		st := newStore(t)
		until := base.Add(time.Hour)

		require.NoError(t, st.CreateRecognition(ctx, &store.Recognition{
			AuthorityRegistryID: "r-1",
			EntityDID:           "did:web:peer-registry.example",
			Action:              "recognize",
			Resource:            "UniversityDegree",
			Recognized:          true,
			ValidUntil:          &until,
			CreatedAt:           base,
		}))

		recs, err := st.ListRecognitions(ctx, "r-1", "did:web:peer-registry.example")
		require.NoError(t, err)
		require.Len(t, recs, 1)
		assert.True(t, recs[0].Recognized)
		require.NotNil(t, recs[0].ValidUntil)
		assert.True(t, until.Equal(*recs[0].ValidUntil))

		recs, err = st.ListRecognitions(ctx, "r-2", "did:web:peer-registry.example")
		require.NoError(t, err)
		assert.Empty(t, recs)
	})
}
