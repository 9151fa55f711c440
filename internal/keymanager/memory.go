package keymanager

import (
	"context"
	"crypto"
	"crypto/rand"
	"fmt"
	"sync"
)

// memoryKey represents a private key for signing
type memoryKey struct {
	ID        string
	Algorithm string
	Signer    crypto.Signer
}

// InMemoryKeyManager keeps keys in process memory. Keys do not survive a
// restart, so a registry using it gets a new identity key each run.
type InMemoryKeyManager struct {
	mu         sync.RWMutex
	keyType    KeyType
	algorithm  string
	keys       map[string]*memoryKey // current keys by namespace:keyName
	keyCounter int                   // for unique key IDs
}

// NewInMemoryKeyManager creates a new in-memory key manager
func NewInMemoryKeyManager(keyType KeyType) (*InMemoryKeyManager, error) {
	if keyType == "" {
		keyType = KeyTypeEd25519
	}
	algorithm, err := algorithmFor(keyType)
	if err != nil {
		return nil, err
	}

	return &InMemoryKeyManager{
		keyType:   keyType,
		algorithm: algorithm,
		keys:      make(map[string]*memoryKey),
	}, nil
}

// GetKeyHandle returns a handle for a specific namespace and key name.
func (m *InMemoryKeyManager) GetKeyHandle(ctx context.Context, namespace string, keyName string) (KeyHandle, error) {
	return &memoryKeyHandle{
		manager:   m,
		namespace: namespace,
		keyName:   keyName,
	}, nil
}

func (m *InMemoryKeyManager) rotateKey(namespace, keyName string) error {
	signer, err := generateKey(m.keyType)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.keyCounter++
	m.keys[m.storageKey(namespace, keyName)] = &memoryKey{
		ID:        fmt.Sprintf("%s-%s-%d", namespace, keyName, m.keyCounter),
		Algorithm: m.algorithm,
		Signer:    signer,
	}
	return nil
}

func (m *InMemoryKeyManager) getKey(namespace, keyName string) (*memoryKey, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	key, ok := m.keys[m.storageKey(namespace, keyName)]
	if !ok {
		return nil, fmt.Errorf("%w: %s:%s", ErrKeyNotFound, namespace, keyName)
	}
	return key, nil
}

func (m *InMemoryKeyManager) storageKey(namespace, keyName string) string {
	return namespace + ":" + keyName
}

type memoryKeyHandle struct {
	manager   *InMemoryKeyManager
	namespace string
	keyName   string
}

func (h *memoryKeyHandle) Sign(ctx context.Context, digest []byte, opts crypto.SignerOpts) ([]byte, string, error) {
	key, err := h.manager.getKey(h.namespace, h.keyName)
	if err != nil {
		return nil, "", err
	}

	sig, err := key.Signer.Sign(rand.Reader, digest, opts)
	if err != nil {
		return nil, "", err
	}

	return sig, key.ID, nil
}

func (h *memoryKeyHandle) Metadata(ctx context.Context) (string, string, error) {
	key, err := h.manager.getKey(h.namespace, h.keyName)
	if err != nil {
		return "", "", err
	}
	return key.ID, key.Algorithm, nil
}

func (h *memoryKeyHandle) Public(ctx context.Context) (crypto.PublicKey, error) {
	key, err := h.manager.getKey(h.namespace, h.keyName)
	if err != nil {
		return nil, err
	}
	return key.Signer.Public(), nil
}

func (h *memoryKeyHandle) Rotate(ctx context.Context) error {
	return h.manager.rotateKey(h.namespace, h.keyName)
}
