package keymanager

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeThumbprint(t *testing.T) {
	edPub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	ecKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	tests := []struct {
		name string
		pub  crypto.PublicKey
	}{
		{"Ed25519", edPub},
		{"EC-P256", ecKey.Public()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			thumbprint, err := ComputeThumbprint(tt.pub)
			require.NoError(t, err)

			// SHA-256, base64url without padding
			assert.Len(t, thumbprint, 43)
			assert.NotContains(t, thumbprint, "+")
			assert.NotContains(t, thumbprint, "/")
			assert.NotContains(t, thumbprint, "=")

			again, err := ComputeThumbprint(tt.pub)
			require.NoError(t, err)
			assert.Equal(t, thumbprint, again, "thumbprint should be deterministic")
		})
	}
}

func TestComputeThumbprint_RFC8037Vector(t *testing.T) {
	x, err := base64.RawURLEncoding.DecodeString("11qYAYKxCrfVS_7TyWQHOg7hcvPapiMlrwIaaPcHURo")
	require.NoError(t, err)

	thumbprint, err := ComputeThumbprint(ed25519.PublicKey(x))
	require.NoError(t, err)
	assert.Equal(t, "kPrK_qmxVWaYVA9wwBF6Iuo3vVzz7TxHCTwXBygrS4k", thumbprint)
}

func TestComputeThumbprint_DifferentKeys(t *testing.T) {
	pub1, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	pub2, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	t1, err := ComputeThumbprint(pub1)
	require.NoError(t, err)
	t2, err := ComputeThumbprint(pub2)
	require.NoError(t, err)

	assert.NotEqual(t, t1, t2, "different keys should have different thumbprints")
}

func TestComputeThumbprint_Unsupported(t *testing.T) {
	_, err := ComputeThumbprint("not a key")
	assert.Error(t, err)
}
