package did

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"strings"

	mb "github.com/multiformats/go-multibase"
	varint "github.com/multiformats/go-varint"
)

const (
	// MulticodecEd25519PubKey is the multicodec code for ed25519-pub
	MulticodecEd25519PubKey = 0xed

	TypeEd25519VerificationKey2020 = "Ed25519VerificationKey2020"
	TypeEd25519VerificationKey2018 = "Ed25519VerificationKey2018"
	TypeMultikey                   = "Multikey"
)

// EncodeEd25519Multibase encodes pub as base58btc multibase of the
// ed25519-pub multicodec, the form used by did:key and publicKeyMultibase.
func EncodeEd25519Multibase(pub ed25519.PublicKey) (string, error) {
	size := varint.UvarintSize(MulticodecEd25519PubKey)
	data := make([]byte, size+len(pub))
	n := varint.PutUvarint(data, MulticodecEd25519PubKey)
	copy(data[n:], pub)
	return mb.Encode(mb.Base58BTC, data)
}

// DecodeEd25519Multibase is the inverse of EncodeEd25519Multibase
func DecodeEd25519Multibase(s string) (ed25519.PublicKey, error) {
	enc, data, err := mb.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("decoding multibase: %w", err)
	}
	if enc != mb.Base58BTC {
		return nil, fmt.Errorf("unexpected multibase encoding: %s", mb.EncodingToStr[enc])
	}
	code, n, err := varint.FromUvarint(data)
	if err != nil {
		return nil, fmt.Errorf("decoding multicodec: %w", err)
	}
	if code != MulticodecEd25519PubKey {
		return nil, fmt.Errorf("unexpected multicodec 0x%x", code)
	}
	if len(data)-n != ed25519.PublicKeySize {
		return nil, fmt.Errorf("invalid ed25519 public key length: %d", len(data)-n)
	}
	return ed25519.PublicKey(data[n:]), nil
}

var errKeyPrefix = errors.New("did:key identifier must start with multibase prefix 'z'")

// resolveKey synthesizes a document from the identifier alone
func (r *MethodResolver) resolveKey(did string, id ID) *ResolutionResult {
	if !strings.HasPrefix(id.Identifier, "z") {
		return r.invalid(did, id.Method, errKeyPrefix)
	}
	return r.resolved(did, id.Method, KeyDocument(did, id.Identifier))
}

// KeyDocument builds the single-key document of a did:key
func KeyDocument(did, multibaseKey string) *Document {
	vmType := TypeMultikey
	if _, err := DecodeEd25519Multibase(multibaseKey); err == nil {
		vmType = TypeEd25519VerificationKey2020
	}

	vmID := did + "#" + multibaseKey
	return &Document{
		Context: StringSet{ContextV1, "https://w3id.org/security/suites/ed25519-2020/v1"},
		ID:      did,
		VerificationMethod: []VerificationMethod{{
			ID:                 vmID,
			Type:               vmType,
			Controller:         did,
			PublicKeyMultibase: multibaseKey,
		}},
		Authentication:  []Reference{RefTo(vmID)},
		AssertionMethod: []Reference{RefTo(vmID)},
	}
}
