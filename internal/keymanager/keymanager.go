package keymanager

import (
	"context"
	"crypto"
	"errors"
)

// ErrKeyNotFound is returned by handle operations before the first Rotate
var ErrKeyNotFound = errors.New("key not found")

// KeyManager hands out handles to named keys.
// namespace groups keys belonging to one owner (for example a registry DID);
// keyName identifies the key within it.
type KeyManager interface {
	// GetKeyHandle returns a handle for the key. The key itself need not
	// exist yet; call Rotate on the handle to create it.
	GetKeyHandle(ctx context.Context, namespace string, keyName string) (KeyHandle, error)
}

// KeyHandle is a reference to the current version of a named key.
type KeyHandle interface {
	// Sign signs data. Returns signature and the ID of the key actually used.
	// For Ed25519 keys, digest is the full message and opts must be crypto.Hash(0).
	Sign(ctx context.Context, digest []byte, opts crypto.SignerOpts) (signature []byte, usedKeyID string, err error)

	// Metadata returns the Key ID and Algorithm for this handle.
	Metadata(ctx context.Context) (keyID string, alg string, err error)

	// Public returns the public key.
	Public(ctx context.Context) (crypto.PublicKey, error)

	// Rotate creates a new version of this key, replacing any current one.
	Rotate(ctx context.Context) error
}

// KeyType represents the cryptographic key type
type KeyType string

const (
	KeyTypeEd25519 KeyType = "Ed25519"
	KeyTypeECP256  KeyType = "EC-P256"
)

// algorithmFor returns the JOSE algorithm name for a key type
func algorithmFor(keyType KeyType) (string, error) {
	switch keyType {
	case KeyTypeEd25519:
		return "EdDSA", nil
	case KeyTypeECP256:
		return "ES256", nil
	default:
		return "", errUnsupportedKeyType(keyType)
	}
}

func errUnsupportedKeyType(keyType KeyType) error {
	return errors.New("unsupported key type: " + string(keyType))
}
