package gormstore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alechenninger/trustreg/internal/store"
	"github.com/alechenninger/trustreg/internal/store/storetest"
)

func TestStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		s, err := Open(":memory:")
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dsn := filepath.Join(t.TempDir(), "trustreg.db")
	until := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	s, err := Open(dsn)
	require.NoError(t, err)
	require.NoError(t, s.CreateEntity(ctx, &store.Entity{
		Kind:            store.KindIssuer,
		DID:             "did:web:university.edu",
		RegistryID:      "reg-edu",
		Status:          store.EntityActive,
		ValidUntil:      &until,
		CredentialTypes: []string{"schema-degree"},
		Accreditation:   map[string]string{"body": "ABET"},
	}))
	require.NoError(t, s.Close())

	reopened, err := Open(dsn)
	require.NoError(t, err)
	defer reopened.Close()

	e, err := reopened.GetEntity(ctx, store.KindIssuer, "did:web:university.edu")
	require.NoError(t, err)
	assert.Equal(t, []string{"schema-degree"}, e.CredentialTypes)
	assert.Equal(t, "ABET", e.Accreditation["body"])
	require.NotNil(t, e.ValidUntil)
	assert.True(t, until.Equal(*e.ValidUntil))
}
