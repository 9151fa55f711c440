package keymanager

import (
	"context"
	"crypto"
	"crypto/ed25519"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryKeyManager(t *testing.T) {
	ctx := context.Background()
	km, err := NewInMemoryKeyManager("")
	require.NoError(t, err)

	handle, err := km.GetKeyHandle(ctx, "did:web:registry.example", "signing")
	require.NoError(t, err)

	_, _, err = handle.Metadata(ctx)
	assert.ErrorIs(t, err, ErrKeyNotFound)

	require.NoError(t, handle.Rotate(ctx))

	id, alg, err := handle.Metadata(ctx)
	require.NoError(t, err)
	assert.Equal(t, "did:web:registry.example-signing-1", id)
	assert.Equal(t, "EdDSA", alg)

	pub, err := handle.Public(ctx)
	require.NoError(t, err)

	msg := []byte("hello")
	sig, usedID, err := handle.Sign(ctx, msg, crypto.Hash(0))
	require.NoError(t, err)
	assert.Equal(t, id, usedID)
	assert.True(t, ed25519.Verify(pub.(ed25519.PublicKey), msg, sig))

	t.Run("handles share the key", func(t *testing.T) {
		other, err := km.GetKeyHandle(ctx, "did:web:registry.example", "signing")
		require.NoError(t, err)
		otherID, _, err := other.Metadata(ctx)
		require.NoError(t, err)
		assert.Equal(t, id, otherID)
	})

	t.Run("rotate replaces the key", func(t *testing.T) {
		require.NoError(t, handle.Rotate(ctx))
		newID, _, err := handle.Metadata(ctx)
		require.NoError(t, err)
		assert.NotEqual(t, id, newID)
	})
}

func TestNewInMemoryKeyManager_UnsupportedType(t *testing.T) {
	_, err := NewInMemoryKeyManager(KeyType("RSA-1024"))
	assert.ErrorContains(t, err, "unsupported key type")
}
