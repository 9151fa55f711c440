package httpfixture

import (
	"fmt"
	"net/http"
	"regexp"
	"strings"
)

// RuleBasedProvider matches requests against a set of rules, first match wins
type RuleBasedProvider struct {
	rules []compiledRule
}

type compiledRule struct {
	HTTPFixtureRule
	pattern *regexp.Regexp
}

// NewRuleBasedProvider creates a new rule-based fixture provider.
// Pattern rules are compiled up front so a bad regex fails at load time.
func NewRuleBasedProvider(rules []HTTPFixtureRule) (*RuleBasedProvider, error) {
	compiled := make([]compiledRule, 0, len(rules))
	for i, rule := range rules {
		cr := compiledRule{HTTPFixtureRule: rule}
		switch rule.Request.URLType {
		case "", "exact":
		case "pattern":
			re, err := regexp.Compile(rule.Request.URL)
			if err != nil {
				return nil, fmt.Errorf("fixture %d: invalid url pattern %q: %w", i, rule.Request.URL, err)
			}
			cr.pattern = re
		default:
			return nil, fmt.Errorf("fixture %d: unknown url_type %q (supported: exact, pattern)", i, rule.Request.URLType)
		}
		compiled = append(compiled, cr)
	}
	return &RuleBasedProvider{rules: compiled}, nil
}

// Rules returns the provider's rules in match order
func (p *RuleBasedProvider) Rules() []HTTPFixtureRule {
	rules := make([]HTTPFixtureRule, len(p.rules))
	for i, r := range p.rules {
		rules[i] = r.HTTPFixtureRule
	}
	return rules
}

// GetFixture returns a copy of the first matching rule's fixture
func (p *RuleBasedProvider) GetFixture(req *http.Request) *Fixture {
	for _, rule := range p.rules {
		if rule.matches(req) {
			fixture := rule.Response
			return &fixture
		}
	}
	return nil
}

func (r compiledRule) matches(req *http.Request) bool {
	method := r.Request.Method
	if method != "" && method != "*" && !strings.EqualFold(method, req.Method) {
		return false
	}

	url := req.URL.String()
	if r.pattern != nil {
		if !r.pattern.MatchString(url) {
			return false
		}
	} else if url != r.Request.URL {
		return false
	}

	for key, value := range r.Request.Headers {
		if req.Header.Get(key) != value {
			return false
		}
	}
	return true
}

// MapProvider provides fixtures keyed by "METHOD URL"
// (e.g., "GET https://example.com/.well-known/did.json")
type MapProvider struct {
	fixtures map[string]*Fixture
}

// NewMapProvider creates a new map-based fixture provider
func NewMapProvider(fixtures map[string]*Fixture) *MapProvider {
	return &MapProvider{fixtures: fixtures}
}

// GetFixture returns a fixture for the given request based on method+URL key
func (p *MapProvider) GetFixture(req *http.Request) *Fixture {
	return p.fixtures[req.Method+" "+req.URL.String()]
}

// FuncProvider adapts a function to FixtureProvider
type FuncProvider func(*http.Request) *Fixture

// GetFixture calls the function
func (f FuncProvider) GetFixture(req *http.Request) *Fixture {
	return f(req)
}
