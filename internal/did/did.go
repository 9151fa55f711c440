// Package did parses, validates and resolves decentralized identifiers.
package did

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Supported DID methods
const (
	MethodWeb  = "web"
	MethodKey  = "key"
	MethodIon  = "ion"
	MethodEthr = "ethr"
	MethodSov  = "sov"
	MethodIndy = "indy"
)

// SupportedMethods lists every method ValidateFormat accepts, in display order
var SupportedMethods = []string{MethodWeb, MethodKey, MethodIon, MethodEthr, MethodSov, MethodIndy}

// ErrUnsupportedMethod is wrapped by validation errors for unknown methods
var ErrUnsupportedMethod = errors.New("unsupported DID method")

// FormatError reports a DID string that does not have the did:<method>:<identifier> shape
type FormatError struct {
	DID    string
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("invalid DID %q: %s", e.DID, e.Reason)
}

// ID is a parsed DID. Method is lowercased; Identifier is method specific
// and kept as written.
type ID struct {
	Method     string
	Identifier string
}

func (id ID) String() string {
	return "did:" + id.Method + ":" + id.Identifier
}

// Parse splits a DID into method and identifier
func Parse(s string) (ID, error) {
	scheme, rest, ok := strings.Cut(s, ":")
	if !ok || !strings.EqualFold(scheme, "did") {
		return ID{}, &FormatError{DID: s, Reason: "must start with did:"}
	}
	method, identifier, ok := strings.Cut(rest, ":")
	if !ok {
		return ID{}, &FormatError{DID: s, Reason: "missing method-specific identifier"}
	}
	if method == "" {
		return ID{}, &FormatError{DID: s, Reason: "empty method"}
	}
	for _, r := range method {
		if !isMethodChar(r) {
			return ID{}, &FormatError{DID: s, Reason: fmt.Sprintf("invalid character %q in method", r)}
		}
	}
	if identifier == "" {
		return ID{}, &FormatError{DID: s, Reason: "empty method-specific identifier"}
	}
	return ID{Method: strings.ToLower(method), Identifier: identifier}, nil
}

func isMethodChar(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

// Validation is the outcome of a format check
type Validation struct {
	Valid            bool     `json:"valid"`
	DID              string   `json:"did"`
	Method           string   `json:"method,omitempty"`
	Error            string   `json:"error,omitempty"`
	SupportedMethods []string `json:"supportedMethods,omitempty"`

	err error
}

// Err returns the underlying error of an invalid result, or nil
func (v Validation) Err() error {
	return v.err
}

// ValidateFormat checks that s is a well-formed DID of a supported method.
// It performs no I/O.
func ValidateFormat(s string) Validation {
	id, err := Parse(s)
	if err != nil {
		return Validation{DID: s, Error: err.Error(), err: err}
	}
	if !slices.Contains(SupportedMethods, id.Method) {
		err := fmt.Errorf("%w %q: supported methods are %s", ErrUnsupportedMethod, id.Method, strings.Join(SupportedMethods, ", "))
		return Validation{
			DID:              s,
			Method:           id.Method,
			Error:            err.Error(),
			SupportedMethods: slices.Clone(SupportedMethods),
			err:              err,
		}
	}
	return Validation{Valid: true, DID: s, Method: id.Method}
}
