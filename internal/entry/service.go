// Package entry builds, signs, and verifies trust registry entries, and
// publishes the DID document of the registry's signing key.
package entry

import (
	"bytes"
	"context"
	"crypto"
	"crypto/ed25519"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwk"
	mb "github.com/multiformats/go-multibase"

	"github.com/alechenninger/trustreg/internal/clock"
	"github.com/alechenninger/trustreg/internal/did"
	"github.com/alechenninger/trustreg/internal/keymanager"
	"github.com/alechenninger/trustreg/internal/store"
)

const (
	// signingKeyName is the key name under the registry DID's namespace
	signingKeyName = "signing"

	contextEd25519Suite = "https://w3id.org/security/suites/ed25519-2020/v1"
)

// Config configures a Service
type Config struct {
	// RegistryDID identifies this registry and namespaces its key
	RegistryDID string

	Store      store.Store
	KeyManager keymanager.KeyManager
	Clock      clock.Clock
}

// Service signs and verifies entries with the registry's Ed25519 key.
// The key is loaded, or created if absent, on first use.
type Service struct {
	registryDID string
	store       store.Store
	keyManager  keymanager.KeyManager
	clock       clock.Clock

	mu     sync.Mutex
	handle keymanager.KeyHandle
	public ed25519.PublicKey
}

// NewService creates an entry service
func NewService(cfg Config) (*Service, error) {
	if cfg.RegistryDID == "" {
		return nil, fmt.Errorf("registry DID is required")
	}
	if v := did.ValidateFormat(cfg.RegistryDID); !v.Valid {
		return nil, fmt.Errorf("invalid registry DID: %w", v.Err())
	}
	if cfg.KeyManager == nil {
		return nil, fmt.Errorf("key manager is required")
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.NewSystemClock()
	}
	return &Service{
		registryDID: cfg.RegistryDID,
		store:       cfg.Store,
		keyManager:  cfg.KeyManager,
		clock:       cfg.Clock,
	}, nil
}

// RegistryDID returns the DID the service signs as
func (s *Service) RegistryDID() string {
	return s.registryDID
}

// VerificationMethodID is the DID URL of the signing key
func (s *Service) VerificationMethodID() string {
	return s.registryDID + "#key-1"
}

// key returns the signing key handle and public key, creating the key on first use
func (s *Service) key(ctx context.Context) (keymanager.KeyHandle, ed25519.PublicKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.handle != nil {
		return s.handle, s.public, nil
	}

	handle, err := s.keyManager.GetKeyHandle(ctx, s.registryDID, signingKeyName)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get signing key: %w", err)
	}

	pub, err := handle.Public(ctx)
	if errors.Is(err, keymanager.ErrKeyNotFound) {
		if err := handle.Rotate(ctx); err != nil {
			return nil, nil, fmt.Errorf("failed to create signing key: %w", err)
		}
		pub, err = handle.Public(ctx)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load signing key: %w", err)
	}

	edPub, ok := pub.(ed25519.PublicKey)
	if !ok {
		return nil, nil, fmt.Errorf("signing key is %T, not Ed25519", pub)
	}

	s.handle = handle
	s.public = edPub
	return handle, edPub, nil
}

// PublicKey returns the registry's public key
func (s *Service) PublicKey(ctx context.Context) (ed25519.PublicKey, error) {
	_, pub, err := s.key(ctx)
	return pub, err
}

// DIDDocument describes the registry DID and its signing key
func (s *Service) DIDDocument(ctx context.Context) (*did.Document, error) {
	pub, err := s.PublicKey(ctx)
	if err != nil {
		return nil, err
	}

	multibaseKey, err := did.EncodeEd25519Multibase(pub)
	if err != nil {
		return nil, err
	}
	publicJwk, err := publicKeyJwk(pub)
	if err != nil {
		return nil, err
	}

	vmID := s.VerificationMethodID()
	return &did.Document{
		Context: did.StringSet{did.ContextV1, contextEd25519Suite},
		ID:      s.registryDID,
		VerificationMethod: []did.VerificationMethod{{
			ID:                 vmID,
			Type:               did.TypeEd25519VerificationKey2020,
			Controller:         s.registryDID,
			PublicKeyMultibase: multibaseKey,
			PublicKeyJwk:       publicJwk,
		}},
		Authentication:  []did.Reference{did.RefTo(vmID)},
		AssertionMethod: []did.Reference{did.RefTo(vmID)},
	}, nil
}

// publicKeyJwk renders pub as a JWK member map with its thumbprint as kid
func publicKeyJwk(pub ed25519.PublicKey) (map[string]any, error) {
	key, err := jwk.FromRaw(pub)
	if err != nil {
		return nil, fmt.Errorf("failed to create JWK: %w", err)
	}
	kid, err := keymanager.ComputeThumbprint(pub)
	if err != nil {
		return nil, err
	}
	if err := key.Set(jwk.KeyIDKey, kid); err != nil {
		return nil, fmt.Errorf("failed to set kid: %w", err)
	}

	raw, err := json.Marshal(key)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JWK: %w", err)
	}
	var members map[string]any
	if err := json.Unmarshal(raw, &members); err != nil {
		return nil, fmt.Errorf("failed to unmarshal JWK: %w", err)
	}
	return members, nil
}

// Sign signs the canonical form of e. The returned entry is a copy, so
// later changes to e do not affect it.
func (s *Service) Sign(ctx context.Context, e Entry) (*SignedEntry, error) {
	if e == nil {
		return nil, fmt.Errorf("entry is required")
	}

	canonical, err := Canonicalize(e)
	if err != nil {
		return nil, fmt.Errorf("failed to canonicalize entry: %w", err)
	}
	frozen, err := decodeGeneric(canonical)
	if err != nil {
		return nil, err
	}

	handle, _, err := s.key(ctx)
	if err != nil {
		return nil, err
	}

	// Ed25519 signs the message itself, not a digest
	sig, _, err := handle.Sign(ctx, canonical, crypto.Hash(0))
	if err != nil {
		return nil, fmt.Errorf("failed to sign entry: %w", err)
	}

	proofValue, err := mb.Encode(mb.Base58BTC, sig)
	if err != nil {
		return nil, fmt.Errorf("failed to encode signature: %w", err)
	}

	return &SignedEntry{
		Entry: Entry(frozen.(map[string]any)),
		Proof: &Proof{
			Type:               ProofTypeEd25519Signature2020,
			Created:            s.clock.Now().UTC().Format(time.RFC3339),
			VerificationMethod: s.VerificationMethodID(),
			ProofPurpose:       "assertionMethod",
			ProofValue:         proofValue,
		},
	}, nil
}

// Verify checks the proof of signed against the registry's key
func (s *Service) Verify(ctx context.Context, signed *SignedEntry) VerifyResult {
	if signed == nil || signed.Entry == nil {
		return invalid("missing entry")
	}
	if signed.Proof == nil {
		return invalid("missing proof")
	}
	proof := signed.Proof
	if proof.Type != ProofTypeEd25519Signature2020 {
		return invalid(fmt.Sprintf("unsupported proof type %q", proof.Type))
	}
	if proof.VerificationMethod != s.VerificationMethodID() {
		return invalid(fmt.Sprintf("unknown verification method %q", proof.VerificationMethod))
	}

	enc, sig, err := mb.Decode(proof.ProofValue)
	if err != nil {
		return invalid(fmt.Sprintf("malformed proof value: %v", err))
	}
	if enc != mb.Base58BTC {
		return invalid("proof value must be base58btc multibase")
	}

	canonical, err := Canonicalize(signed.Entry)
	if err != nil {
		return invalid(err.Error())
	}

	pub, err := s.PublicKey(ctx)
	if err != nil {
		return invalid(err.Error())
	}
	if !ed25519.Verify(pub, canonical, sig) {
		return invalid("signature verification failed")
	}
	return VerifyResult{Valid: true}
}

// VerifyJSON verifies a signed entry given as raw JSON, checking its shape
// before any cryptography
func (s *Service) VerifyJSON(ctx context.Context, raw []byte) VerifyResult {
	generic, err := decodeGeneric(raw)
	if err != nil {
		return invalid(err.Error())
	}
	obj, ok := generic.(map[string]any)
	if !ok {
		return invalid("signed entry must be a JSON object")
	}

	entryVal, ok := obj["entry"].(map[string]any)
	if !ok {
		return invalid("missing entry")
	}
	proofVal, ok := obj["proof"].(map[string]any)
	if !ok {
		return invalid("missing proof")
	}

	var proof Proof
	for field, dst := range map[string]*string{
		"type":               &proof.Type,
		"created":            &proof.Created,
		"verificationMethod": &proof.VerificationMethod,
		"proofPurpose":       &proof.ProofPurpose,
		"proofValue":         &proof.ProofValue,
	} {
		v, present := proofVal[field]
		if !present {
			continue
		}
		str, ok := v.(string)
		if !ok {
			return invalid(fmt.Sprintf("proof.%s must be a string", field))
		}
		*dst = str
	}
	if proof.ProofValue == "" {
		return invalid("missing proof value")
	}

	return s.Verify(ctx, &SignedEntry{Entry: Entry(entryVal), Proof: &proof})
}

// MarshalIndent renders a signed entry for output
func MarshalIndent(signed *SignedEntry) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(signed); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
