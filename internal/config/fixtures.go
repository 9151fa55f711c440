package config

import (
	"github.com/alechenninger/trustreg/internal/httpfixture"
)

// BuildHTTPFixtureProvider creates an HTTP fixture provider from inline
// fixtures and the DID fixture file and directory.
// Returns nil if no fixtures are configured (normal production mode).
func BuildHTTPFixtureProvider(fixtures []FixtureConfig, didCfg DIDConfig) (httpfixture.FixtureProvider, error) {
	var rules []httpfixture.HTTPFixtureRule
	for _, f := range fixtures {
		if f.Type != "http_rule" {
			continue
		}

		rules = append(rules, httpfixture.HTTPFixtureRule{
			Request: httpfixture.FixtureRequest{
				Method:  f.Request.Method,
				URL:     f.Request.URL,
				URLType: f.Request.URLType,
				Headers: f.Request.Headers,
			},
			Response: httpfixture.Fixture{
				StatusCode: f.Response.StatusCode,
				Headers:    f.Response.Headers,
				Body:       f.Response.Body,
			},
		})
	}

	if didCfg.FixturesFile != "" {
		p, err := httpfixture.LoadFixturesFromFile(didCfg.FixturesFile)
		if err != nil {
			return nil, err
		}
		rules = append(rules, p.Rules()...)
	}
	if didCfg.FixturesDir != "" {
		p, err := httpfixture.LoadFixturesFromDir(didCfg.FixturesDir)
		if err != nil {
			return nil, err
		}
		rules = append(rules, p.Rules()...)
	}

	if len(rules) == 0 {
		return nil, nil
	}

	return httpfixture.NewRuleBasedProvider(rules)
}
