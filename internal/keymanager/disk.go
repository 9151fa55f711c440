package keymanager

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/alechenninger/trustreg/internal/fs"
)

// DiskKeyManager stores keys on disk as JSON files, one per
// <keys_path>/<namespace>/<keyName>.json. A registry keeps its identity key
// across restarts this way.
type DiskKeyManager struct {
	mu       sync.RWMutex
	keyType  KeyType
	keysPath string
	fs       fs.FileSystem
}

// DiskKeyManagerConfig configures the disk key manager
type DiskKeyManagerConfig struct {
	// KeyType of keys created by Rotate. Default: Ed25519
	KeyType KeyType

	// KeysPath is the directory where key files will be stored
	KeysPath string

	// FileSystem is an optional filesystem abstraction (defaults to OSFileSystem)
	FileSystem fs.FileSystem
}

// keyFileData represents the JSON structure stored on disk
type keyFileData struct {
	ID         string    `json:"id"`
	Algorithm  string    `json:"algorithm"`
	KeyType    string    `json:"key_type"`
	PrivateKey string    `json:"private_key"` // Base64-encoded PKCS8 DER
	CreatedAt  time.Time `json:"created_at"`
}

// NewDiskKeyManager creates a new disk-based key manager
func NewDiskKeyManager(cfg DiskKeyManagerConfig) (*DiskKeyManager, error) {
	if cfg.KeysPath == "" {
		return nil, fmt.Errorf("keys_path is required")
	}
	if cfg.KeyType == "" {
		cfg.KeyType = KeyTypeEd25519
	}
	if _, err := algorithmFor(cfg.KeyType); err != nil {
		return nil, err
	}

	filesystem := cfg.FileSystem
	if filesystem == nil {
		filesystem = fs.NewOSFileSystem()
	}

	if err := filesystem.MkdirAll(cfg.KeysPath, 0700); err != nil {
		return nil, fmt.Errorf("failed to create keys directory: %w", err)
	}

	return &DiskKeyManager{
		keyType:  cfg.KeyType,
		keysPath: cfg.KeysPath,
		fs:       filesystem,
	}, nil
}

// GetKeyHandle returns a handle for a specific namespace and key name.
func (m *DiskKeyManager) GetKeyHandle(ctx context.Context, namespace string, keyName string) (KeyHandle, error) {
	return &diskKeyHandle{
		manager:   m,
		namespace: namespace,
		keyName:   keyName,
	}, nil
}

// rotateKey generates a new key and replaces the key file
func (m *DiskKeyManager) rotateKey(namespace, keyName string) error {
	algorithm, err := algorithmFor(m.keyType)
	if err != nil {
		return err
	}
	signer, err := generateKey(m.keyType)
	if err != nil {
		return err
	}

	privateKeyDER, err := x509.MarshalPKCS8PrivateKey(signer)
	if err != nil {
		return fmt.Errorf("failed to marshal private key: %w", err)
	}

	data := keyFileData{
		ID:         uuid.New().String(),
		Algorithm:  algorithm,
		KeyType:    string(m.keyType),
		PrivateKey: base64.StdEncoding.EncodeToString(privateKeyDER),
		CreatedAt:  time.Now().UTC(),
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.fs.MkdirAll(m.namespacePath(namespace), 0700); err != nil {
		return fmt.Errorf("failed to create namespace directory: %w", err)
	}
	return m.writeKeyFile(namespace, keyName, &data)
}

func (m *DiskKeyManager) getKey(namespace, keyName string) (*memoryKey, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, err := m.readKeyFile(namespace, keyName)
	if err != nil {
		return nil, err
	}

	privateKeyDER, err := base64.StdEncoding.DecodeString(data.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to decode private key: %w", err)
	}

	privateKeyAny, err := x509.ParsePKCS8PrivateKey(privateKeyDER)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}

	signer, ok := privateKeyAny.(crypto.Signer)
	if !ok {
		return nil, fmt.Errorf("private key does not implement crypto.Signer")
	}

	return &memoryKey{
		ID:        data.ID,
		Algorithm: data.Algorithm,
		Signer:    signer,
	}, nil
}

// writeKeyFile atomically writes a key file to disk
func (m *DiskKeyManager) writeKeyFile(namespace, keyName string, data *keyFileData) error {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if err := m.fs.WriteFileAtomic(m.keyFilePath(namespace, keyName), jsonData, 0600); err != nil {
		return fmt.Errorf("failed to write key file: %w", err)
	}
	return nil
}

// readKeyFile reads a key file from disk
func (m *DiskKeyManager) readKeyFile(namespace, keyName string) (*keyFileData, error) {
	jsonData, err := m.fs.ReadFile(m.keyFilePath(namespace, keyName))
	if err != nil {
		if m.fs.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s:%s", ErrKeyNotFound, namespace, keyName)
		}
		return nil, fmt.Errorf("failed to read key file: %w", err)
	}

	var data keyFileData
	if err := json.Unmarshal(jsonData, &data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal key file (corrupted?): %w", err)
	}
	return &data, nil
}

// pathSafe replaces characters DIDs use that are awkward in file names
var pathSafe = strings.NewReplacer(":", "_", "/", "_", "\\", "_")

func (m *DiskKeyManager) namespacePath(namespace string) string {
	return filepath.Join(m.keysPath, pathSafe.Replace(namespace))
}

func (m *DiskKeyManager) keyFilePath(namespace, keyName string) string {
	return filepath.Join(m.namespacePath(namespace), pathSafe.Replace(keyName)+".json")
}

type diskKeyHandle struct {
	manager   *DiskKeyManager
	namespace string
	keyName   string
}

func (h *diskKeyHandle) Sign(ctx context.Context, digest []byte, opts crypto.SignerOpts) ([]byte, string, error) {
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

func (h *diskKeyHandle) Metadata(ctx context.Context) (string, string, error) {
	key, err := h.manager.getKey(h.namespace, h.keyName)
	if err != nil {
		return "", "", err
	}
	return key.ID, key.Algorithm, nil
}

func (h *diskKeyHandle) Public(ctx context.Context) (crypto.PublicKey, error) {
	key, err := h.manager.getKey(h.namespace, h.keyName)
	if err != nil {
		return nil, err
	}
	return key.Signer.Public(), nil
}

func (h *diskKeyHandle) Rotate(ctx context.Context) error {
	return h.manager.rotateKey(h.namespace, h.keyName)
}
