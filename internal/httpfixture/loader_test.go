package httpfixture

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadFixturesFromFile_JSON(t *testing.T) {
	path := writeFile(t, t.TempDir(), "fixtures.json", `{
  "fixtures": [
    {
      "request": {"method": "GET", "url": "https://university.edu/.well-known/did.json"},
      "response": {"status": 200, "body": "{\"id\": \"did:web:university.edu\"}"}
    },
    {
      "request": {"method": "GET", "url": "https://down.example/.well-known/did.json"},
      "response": {"status": 503, "body": "unavailable"}
    }
  ]
}`)

	provider, err := LoadFixturesFromFile(path)
	require.NoError(t, err)

	fixture := provider.GetFixture(httptest.NewRequest("GET", "https://university.edu/.well-known/did.json", nil))
	require.NotNil(t, fixture)
	assert.Equal(t, 200, fixture.StatusCode)
	assert.Equal(t, `{"id": "did:web:university.edu"}`, fixture.Body)

	fixture = provider.GetFixture(httptest.NewRequest("GET", "https://down.example/.well-known/did.json", nil))
	require.NotNil(t, fixture)
	assert.Equal(t, 503, fixture.StatusCode)
}

func TestLoadFixturesFromFile_YAML(t *testing.T) {
	path := writeFile(t, t.TempDir(), "fixtures.yaml", `fixtures:
  - request:
      method: GET
      url: https://dev.uniresolver.io/1.0/identifiers/.*
      url_type: pattern
    response:
      status: 404
      body: not found
did_documents:
  https://issuer.example/orgs/acme/did.json:
    id: did:web:issuer.example:orgs:acme
`)

	provider, err := LoadFixturesFromFile(path)
	require.NoError(t, err)

	t.Run("pattern rule", func(t *testing.T) {
		fixture := provider.GetFixture(httptest.NewRequest("GET", "https://dev.uniresolver.io/1.0/identifiers/did:indy:sovrin:abc", nil))
		require.NotNil(t, fixture)
		assert.Equal(t, 404, fixture.StatusCode)
	})

	t.Run("did document shorthand", func(t *testing.T) {
		fixture := provider.GetFixture(httptest.NewRequest("GET", "https://issuer.example/orgs/acme/did.json", nil))
		require.NotNil(t, fixture)
		assert.Equal(t, 200, fixture.StatusCode)

		var doc map[string]any
		require.NoError(t, json.Unmarshal([]byte(fixture.Body), &doc))
		assert.Equal(t, "did:web:issuer.example:orgs:acme", doc["id"])
	})

	t.Run("method mismatch", func(t *testing.T) {
		assert.Nil(t, provider.GetFixture(httptest.NewRequest("POST", "https://issuer.example/orgs/acme/did.json", nil)))
	})
}

func TestLoadFixturesFromFile_Errors(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name string
		path string
	}{
		{"invalid JSON", writeFile(t, dir, "invalid.json", "{invalid json}")},
		{"invalid YAML", writeFile(t, dir, "invalid.yaml", "fixtures: [unclosed")},
		{"invalid pattern", writeFile(t, dir, "pattern.json", `{"fixtures":[{"request":{"url":"(","url_type":"pattern"},"response":{"status":200}}]}`)},
		{"unknown url type", writeFile(t, dir, "urltype.json", `{"fixtures":[{"request":{"url":"x","url_type":"glob"},"response":{"status":200}}]}`)},
		{"missing file", filepath.Join(dir, "missing.json")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFixturesFromFile(tt.path)
			assert.Error(t, err)
		})
	}
}

func TestLoadFixturesFromDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.json", `{"fixtures":[{"request":{"method":"GET","url":"https://a.example/.well-known/did.json"},"response":{"status":200,"body":"a"}}]}`)
	writeFile(t, dir, "b.yml", "fixtures:\n  - request:\n      method: GET\n      url: https://b.example/.well-known/did.json\n    response:\n      status: 200\n      body: b\n")
	writeFile(t, dir, "readme.txt", "ignored")

	provider, err := LoadFixturesFromDir(dir)
	require.NoError(t, err)
	assert.Len(t, provider.Rules(), 2)

	fixture := provider.GetFixture(httptest.NewRequest("GET", "https://b.example/.well-known/did.json", nil))
	require.NotNil(t, fixture)
	assert.Equal(t, "b", fixture.Body)

	_, err = LoadFixturesFromDir(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}

func TestTransport(t *testing.T) {
	provider := NewMapProvider(map[string]*Fixture{
		"GET https://university.edu/.well-known/did.json": JSONFixture(200, map[string]any{"id": "did:web:university.edu"}),
	})

	t.Run("serves fixture", func(t *testing.T) {
		client := &http.Client{Transport: NewTransport(provider)}
		resp, err := client.Get("https://university.edu/.well-known/did.json")
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, 200, resp.StatusCode)
		assert.Equal(t, "application/did+json", resp.Header.Get("Content-Type"))
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.JSONEq(t, `{"id":"did:web:university.edu"}`, string(body))
	})

	t.Run("unmatched request fails without fallback", func(t *testing.T) {
		client := &http.Client{Transport: NewTransport(provider)}
		_, err := client.Get("https://unknown.example/.well-known/did.json")
		assert.Error(t, err)
	})

	t.Run("unmatched request uses fallback", func(t *testing.T) {
		fallback := NewTransport(FuncProvider(func(*http.Request) *Fixture {
			return &Fixture{StatusCode: 404}
		}))
		client := &http.Client{Transport: &Transport{Provider: provider, Fallback: fallback}}
		resp, err := client.Get("https://unknown.example/.well-known/did.json")
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, 404, resp.StatusCode)
	})

	t.Run("delay honours client timeout", func(t *testing.T) {
		delay := time.Second
		slow := NewTransport(FuncProvider(func(*http.Request) *Fixture {
			return &Fixture{StatusCode: 200, Delay: &delay}
		}))
		client := &http.Client{Transport: slow, Timeout: 20 * time.Millisecond}
		_, err := client.Get("https://slow.example/.well-known/did.json")
		assert.Error(t, err)
	})
}
