package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alechenninger/trustreg/internal/store"
	"github.com/alechenninger/trustreg/internal/store/storetest"
)

func TestMemory(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		return store.NewMemory()
	})
}

func TestMemory_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()

	e := &store.Entity{Kind: store.KindIssuer, DID: "did:web:a.example", Status: store.EntityActive, Jurisdictions: []string{"US"}}
	require.NoError(t, st.CreateEntity(ctx, e))
	e.Jurisdictions[0] = "mutated"

	got, err := st.GetEntity(ctx, store.KindIssuer, "did:web:a.example")
	require.NoError(t, err)
	assert.Equal(t, []string{"US"}, got.Jurisdictions)

	got.Status = store.EntityRevoked
	again, err := st.GetEntity(ctx, store.KindIssuer, "did:web:a.example")
	require.NoError(t, err)
	assert.Equal(t, store.EntityActive, again.Status)
}

func TestMemory_DelegationsInSameInstantKeepInsertionOrder(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	at := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	for _, delegate := range []string{"did:web:a.example", "did:web:b.example", "did:web:c.example"} {
		require.NoError(t, st.CreateDelegation(ctx, &store.Delegation{
			RootIssuerDID:     "did:web:root.example",
			DelegateIssuerDID: delegate,
			Status:            store.DelegationActive,
			CreatedAt:         at,
		}))
	}

	list, _, err := st.ListDelegations(ctx, store.DelegationFilter{RootIssuerDID: "did:web:root.example"}, store.Page{})
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "did:web:c.example", list[0].DelegateIssuerDID)
	assert.Equal(t, "did:web:a.example", list[2].DelegateIssuerDID)
}

func TestPage_Normalize(t *testing.T) {
	tests := []struct {
		name string
		in   store.Page
		want store.Page
	}{
		{"defaults", store.Page{}, store.Page{Limit: 20}},
		{"caps limit", store.Page{Limit: 500, Offset: 3}, store.Page{Limit: 100, Offset: 3}},
		{"negative offset", store.Page{Limit: 5, Offset: -1}, store.Page{Limit: 5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.in.Normalize())
		})
	}
}

func TestValidityWindow_Contains(t *testing.T) {
	from := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	until := time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		window store.ValidityWindow
		at     time.Time
		want   bool
	}{
		{"unbounded", store.ValidityWindow{}, from, true},
		{"at lower bound", store.ValidityWindow{From: &from, Until: &until}, from, true},
		{"at upper bound", store.ValidityWindow{From: &from, Until: &until}, until, true},
		{"before lower bound", store.ValidityWindow{From: &from, Until: &until}, from.Add(-time.Second), false},
		{"after upper bound", store.ValidityWindow{From: &from, Until: &until}, until.Add(time.Second), false},
		{"open ended upper", store.ValidityWindow{From: &from}, until.AddDate(10, 0, 0), true},
		{"open ended lower", store.ValidityWindow{Until: &until}, from.AddDate(-10, 0, 0), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.window.Contains(tt.at))
		})
	}
}
