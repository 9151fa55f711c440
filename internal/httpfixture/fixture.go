package httpfixture

import (
	"encoding/json"
	"net/http"
	"time"
)

// Fixture defines an HTTP response to return for requests
type Fixture struct {
	StatusCode int               `json:"status" yaml:"status"`
	Headers    map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
	Body       string            `json:"body" yaml:"body"`
	Delay      *time.Duration    `json:"delay,omitempty" yaml:"delay,omitempty"`
}

// JSONFixture builds a fixture whose body is v encoded as JSON.
// It panics if v cannot be encoded, which only happens for programmer errors in tests.
func JSONFixture(status int, v any) *Fixture {
	body, err := json.Marshal(v)
	if err != nil {
		panic("httpfixture: cannot encode fixture body: " + err.Error())
	}
	return &Fixture{
		StatusCode: status,
		Headers:    map[string]string{"Content-Type": "application/did+json"},
		Body:       string(body),
	}
}

// FixtureProvider returns a fixture for a request, or nil if no fixture applies
type FixtureProvider interface {
	GetFixture(req *http.Request) *Fixture
}

// HTTPFixtureRule defines request criteria and corresponding response (for file-based fixtures)
type HTTPFixtureRule struct {
	Request  FixtureRequest `json:"request" yaml:"request"`
	Response Fixture        `json:"response" yaml:"response"`
}

// FixtureRequest defines request matching criteria (for file-based fixtures)
type FixtureRequest struct {
	Method  string            `json:"method" yaml:"method"`                         // e.g., "GET", "*" for any
	URL     string            `json:"url" yaml:"url"`                               // exact match or pattern
	URLType string            `json:"url_type,omitempty" yaml:"url_type,omitempty"` // "exact" (default) or "pattern"
	Headers map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
}

// FixtureSet is the on-disk shape of a fixture file.
// DIDDocuments is a shorthand mapping a URL to a DID document served
// with status 200, for did:web and did:indy resolver fixtures.
type FixtureSet struct {
	Rules        []HTTPFixtureRule         `json:"fixtures" yaml:"fixtures"`
	DIDDocuments map[string]map[string]any `json:"did_documents,omitempty" yaml:"did_documents,omitempty"`
}

// AllRules returns the explicit rules followed by rules expanded from DIDDocuments
func (s *FixtureSet) AllRules() []HTTPFixtureRule {
	rules := append([]HTTPFixtureRule(nil), s.Rules...)
	for url, doc := range s.DIDDocuments {
		rules = append(rules, HTTPFixtureRule{
			Request:  FixtureRequest{Method: http.MethodGet, URL: url},
			Response: *JSONFixture(http.StatusOK, doc),
		})
	}
	return rules
}
