package config

// Config is the root configuration structure for trustreg
type Config struct {
	// RegistryDID is the ecosystem DID this registry signs entries as
	RegistryDID string `koanf:"registry_did" usage:"DID this registry signs entries as"`

	// Store configuration (record store backend and seed data)
	Store StoreConfig `koanf:"store"`

	// DID resolution configuration
	DID DIDConfig `koanf:"did"`

	// Delegation chain configuration
	Delegation DelegationConfig `koanf:"delegation"`

	// Signing configuration for signed entries
	Signing SigningConfig `koanf:"signing"`

	// Fixtures for hermetic testing (HTTP rules answered instead of the network)
	Fixtures []FixtureConfig `koanf:"fixtures"`

	// Observability configuration (logging)
	Observability *ObservabilityConfig `koanf:"observability"`
}

// StoreConfig selects the record store
type StoreConfig struct {
	// Type selects the store implementation
	// Options: "memory", "sqlite"
	Type string `koanf:"type" usage:"record store type: memory, sqlite"`

	// DSN is the sqlite data source name (file path or ":memory:")
	DSN string `koanf:"dsn" usage:"sqlite data source name"`

	// SeedFile is an optional YAML file of records applied at startup.
	// Applying it again is harmless.
	SeedFile string `koanf:"seed_file" usage:"YAML seed file applied at startup"`
}

// DIDConfig configures the DID resolver
type DIDConfig struct {
	// Timeout bounds each did:web and did:indy fetch
	Timeout string `koanf:"timeout" usage:"DID document fetch timeout (e.g. 2s)"` // Duration string like "2s"

	// Cache configuration for resolution results
	Cache CachingConfig `koanf:"cache"`

	// IndyEndpoints overrides the did:indy namespace to resolver table
	IndyEndpoints map[string]string `koanf:"indy_endpoints"`

	// FixturesFile and FixturesDir load HTTP fixtures for hermetic resolution
	FixturesFile string `koanf:"fixtures_file" usage:"HTTP fixture file for DID resolution"`
	FixturesDir  string `koanf:"fixtures_dir" usage:"directory of HTTP fixture files for DID resolution"`
}

// CachingConfig configures the resolution cache
type CachingConfig struct {
	// Type selects the caching implementation
	// Options: "in_memory", "distributed", "none"
	Type string `koanf:"type" usage:"DID cache type: in_memory, distributed, none"`

	// TTL is the cache time-to-live
	TTL string `koanf:"ttl" usage:"DID cache TTL (e.g. 1h)"` // Duration string like "1h"

	// Distributed caching fields
	GroupName string `koanf:"group_name" usage:"groupcache group name"` // For groupcache
	CacheSize int64  `koanf:"cache_size" usage:"groupcache size in bytes"`
}

// DelegationConfig configures the delegation engine
type DelegationConfig struct {
	// MaxDepth is the maximum number of levels in a delegation chain, root included
	MaxDepth int `koanf:"max_depth" usage:"maximum delegation chain levels"`
}

// SigningConfig configures entry signing
type SigningConfig struct {
	KeyManager KeyManagerConfig `koanf:"key_manager"`
}

// KeyManagerConfig configures a key manager
type KeyManagerConfig struct {
	// Type selects the key manager implementation
	// Options: "memory", "disk"
	Type string `koanf:"type" usage:"key manager type: memory, disk"`

	// Disk fields
	KeysPath string `koanf:"keys_path" usage:"directory for disk key manager"`
}

// FixtureConfig configures a fixture for hermetic testing
type FixtureConfig struct {
	// Type selects the fixture type
	// Options: "http_rule"
	Type string `koanf:"type"`

	Request  FixtureRequest  `koanf:"request"`
	Response FixtureResponse `koanf:"response"`
}

// FixtureRequest defines request matching criteria for HTTP fixtures
type FixtureRequest struct {
	// Method is the HTTP method to match (e.g., "GET", "*" for any)
	Method string `koanf:"method"`

	// URL is the URL to match (exact or pattern based on URLType)
	URL string `koanf:"url"`

	// URLType specifies how to match the URL
	// Options: "exact" (default), "pattern" (regex)
	URLType string `koanf:"url_type"`

	// Headers are optional headers to match
	Headers map[string]string `koanf:"headers"`
}

// FixtureResponse defines the HTTP response to return for a fixture
type FixtureResponse struct {
	// StatusCode is the HTTP status code (e.g., 200, 404)
	StatusCode int `koanf:"status"`

	// Headers are optional response headers
	Headers map[string]string `koanf:"headers"`

	// Body is the response body content
	Body string `koanf:"body"`
}

// ObservabilityConfig configures application observability
type ObservabilityConfig struct {
	// Type selects the observer implementation
	// Options: "logging", "noop"
	Type string `koanf:"type" usage:"observer type: logging, noop"`

	// LogLevel sets the log level for the logging observer
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	LogLevel string `koanf:"log_level" usage:"log level: debug, info, warn, error"`

	// LogFormat sets the log format
	// Options: "json", "text"
	// Default: "json"
	LogFormat string `koanf:"log_format" usage:"log format: json, text"`
}

// Defaults
const (
	DefaultRegistryDID = "did:web:trust-registry.example"
	DefaultDIDTimeout  = "2s"
	DefaultCacheTTL    = "1h"
)

// applyDefaults fills in unset fields
func (c *Config) applyDefaults() {
	if c.RegistryDID == "" {
		c.RegistryDID = DefaultRegistryDID
	}
	if c.Store.Type == "" {
		c.Store.Type = "memory"
	}
	if c.DID.Timeout == "" {
		c.DID.Timeout = DefaultDIDTimeout
	}
	if c.DID.Cache.Type == "" {
		c.DID.Cache.Type = "in_memory"
	}
	if c.DID.Cache.TTL == "" {
		c.DID.Cache.TTL = DefaultCacheTTL
	}
	if c.Signing.KeyManager.Type == "" {
		c.Signing.KeyManager.Type = "memory"
	}
	if c.Observability == nil {
		c.Observability = &ObservabilityConfig{}
	}
	if c.Observability.Type == "" {
		c.Observability.Type = "logging"
	}
	if c.Observability.LogLevel == "" {
		c.Observability.LogLevel = "info"
	}
	if c.Observability.LogFormat == "" {
		c.Observability.LogFormat = "json"
	}
}
