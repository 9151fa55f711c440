package did

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
)

// ContextV1 is the base JSON-LD context of every DID document
const ContextV1 = "https://www.w3.org/ns/did/v1"

// Document is a DID document. Only the members the registry reads or
// writes are modelled; unknown members are dropped.
type Document struct {
	Context            StringSet            `json:"@context"`
	ID                 string               `json:"id"`
	Controller         StringSet            `json:"controller,omitempty"`
	VerificationMethod []VerificationMethod `json:"verificationMethod"`
	Authentication     []Reference          `json:"authentication"`
	AssertionMethod    []Reference          `json:"assertionMethod,omitempty"`
	Service            []Service            `json:"service,omitempty"`
}

// VerificationMethod describes one public key of a DID subject
type VerificationMethod struct {
	ID                 string         `json:"id"`
	Type               string         `json:"type"`
	Controller         string         `json:"controller"`
	PublicKeyMultibase string         `json:"publicKeyMultibase,omitempty"`
	PublicKeyBase58    string         `json:"publicKeyBase58,omitempty"`
	PublicKeyJwk       map[string]any `json:"publicKeyJwk,omitempty"`
}

// Service is a service endpoint entry
type Service struct {
	ID              string `json:"id"`
	Type            string `json:"type"`
	ServiceEndpoint any    `json:"serviceEndpoint"`
}

// Reference is a verification relationship entry: either the ID of a
// verification method or an embedded method.
type Reference struct {
	ID       string
	Embedded *VerificationMethod
}

// RefTo creates a reference by ID
func RefTo(id string) Reference {
	return Reference{ID: id}
}

func (r Reference) MarshalJSON() ([]byte, error) {
	if r.Embedded != nil {
		return json.Marshal(r.Embedded)
	}
	return json.Marshal(r.ID)
}

func (r *Reference) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &r.ID)
	}
	var vm VerificationMethod
	if err := json.Unmarshal(data, &vm); err != nil {
		return fmt.Errorf("verification relationship must be a string or object: %w", err)
	}
	r.ID = vm.ID
	r.Embedded = &vm
	return nil
}

// StringSet decodes from either a single string or an array of strings
type StringSet []string

func (s *StringSet) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var one string
		if err := json.Unmarshal(data, &one); err != nil {
			return err
		}
		*s = StringSet{one}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("expected string or array of strings: %w", err)
	}
	*s = many
	return nil
}

// PlaceholderDocument is the minimal document returned when a DID is
// well-formed but its real document could not be obtained
func PlaceholderDocument(did string) *Document {
	return &Document{
		Context:            StringSet{ContextV1},
		ID:                 did,
		VerificationMethod: []VerificationMethod{},
		Authentication:     []Reference{},
	}
}

// Clone returns a deep copy of the document
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	c := &Document{
		Context:            slices.Clone(d.Context),
		ID:                 d.ID,
		Controller:         slices.Clone(d.Controller),
		VerificationMethod: cloneMethods(d.VerificationMethod),
		Authentication:     cloneRefs(d.Authentication),
		AssertionMethod:    cloneRefs(d.AssertionMethod),
	}
	if d.Service != nil {
		c.Service = make([]Service, len(d.Service))
		for i, s := range d.Service {
			s.ServiceEndpoint = cloneJSONValue(s.ServiceEndpoint)
			c.Service[i] = s
		}
	}
	return c
}

func (vm VerificationMethod) clone() VerificationMethod {
	if vm.PublicKeyJwk != nil {
		vm.PublicKeyJwk = cloneJSONValue(vm.PublicKeyJwk).(map[string]any)
	}
	return vm
}

func cloneMethods(in []VerificationMethod) []VerificationMethod {
	if in == nil {
		return nil
	}
	out := make([]VerificationMethod, len(in))
	for i, vm := range in {
		out[i] = vm.clone()
	}
	return out
}

func cloneRefs(in []Reference) []Reference {
	if in == nil {
		return nil
	}
	out := make([]Reference, len(in))
	for i, r := range in {
		if r.Embedded != nil {
			vm := r.Embedded.clone()
			r.Embedded = &vm
		}
		out[i] = r
	}
	return out
}

// cloneJSONValue copies the maps and slices of a decoded JSON value
func cloneJSONValue(v any) any {
	switch v := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(v))
		for k, e := range v {
			m[k] = cloneJSONValue(e)
		}
		return m
	case []any:
		s := make([]any, len(v))
		for i, e := range v {
			s[i] = cloneJSONValue(e)
		}
		return s
	default:
		return v
	}
}
