package keymanager

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"fmt"
)

func generateKey(keyType KeyType) (crypto.Signer, error) {
	var (
		signer crypto.Signer
		err    error
	)
	switch keyType {
	case KeyTypeEd25519:
		_, signer, err = ed25519.GenerateKey(rand.Reader)
	case KeyTypeECP256:
		signer, err = ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	default:
		return nil, errUnsupportedKeyType(keyType)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to generate key: %w", err)
	}
	return signer, nil
}
