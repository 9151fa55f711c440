package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// EnvPrefix prefixes environment variables read into the config.
// A double underscore separates nesting levels: TRUSTREG_STORE__TYPE is store.type.
const EnvPrefix = "TRUSTREG_"

// Loader merges configuration from a file, the environment, and flags.
// Later sources override earlier ones: flags > env > file.
type Loader struct {
	k *koanf.Koanf
}

// NewLoader loads configuration from a file and the environment
func NewLoader(configPath string) (*Loader, error) {
	return NewLoaderWithFlags(configPath, nil)
}

// NewLoaderWithFlags loads configuration from a file, the environment, and
// any flags in flagSet that were set on the command line. A missing config
// file is not an error.
func NewLoaderWithFlags(configPath string, flagSet *pflag.FlagSet) (*Loader, error) {
	k := koanf.New(".")

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			parser, err := parserFor(configPath)
			if err != nil {
				return nil, err
			}
			if err := k.Load(file.Provider(configPath), parser); err != nil {
				return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to stat config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	if flagSet != nil {
		mapping := GetFlagMapping()
		provider := posflag.ProviderWithFlag(flagSet, ".", k, func(f *pflag.Flag) (string, interface{}) {
			path, ok := mapping[f.Name]
			if !ok || !f.Changed {
				return "", nil
			}
			return path, posflag.FlagVal(flagSet, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	return &Loader{k: k}, nil
}

// Get unmarshals the merged configuration and applies defaults
func (l *Loader) Get() (*Config, error) {
	var cfg Config
	if err := l.k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// envKey maps TRUSTREG_STORE__SEED_FILE to store.seed_file
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

func parserFor(path string) (koanf.Parser, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Parser(), nil
	case ".json":
		return json.Parser(), nil
	case ".toml":
		return toml.Parser(), nil
	default:
		return nil, fmt.Errorf("unsupported config file extension %q (expected .yaml, .yml, .json or .toml)", filepath.Ext(path))
	}
}
