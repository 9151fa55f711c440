package entry

// ProofTypeEd25519Signature2020 is the only proof type produced and accepted
const ProofTypeEd25519Signature2020 = "Ed25519Signature2020"

// Entry is a trust registry entry payload
type Entry map[string]any

// Proof is a detached signature over the canonical form of an entry
type Proof struct {
	Type               string `json:"type"`
	Created            string `json:"created"`
	VerificationMethod string `json:"verificationMethod"`
	ProofPurpose       string `json:"proofPurpose"`
	// ProofValue is the multibase (base58btc) encoded signature
	ProofValue string `json:"proofValue"`
}

// SignedEntry pairs an entry with its proof. The entry must not be
// modified after signing; any change requires signing again.
type SignedEntry struct {
	Entry Entry  `json:"entry"`
	Proof *Proof `json:"proof"`
}

// VerifyResult is the outcome of verifying a signed entry.
// Failures are reported here rather than as errors.
type VerifyResult struct {
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

func invalid(reason string) VerifyResult {
	return VerifyResult{Valid: false, Error: reason}
}
