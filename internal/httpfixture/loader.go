package httpfixture

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/goccy/go-yaml"
)

// LoadFixturesFromFile loads fixtures from a JSON or YAML file
func LoadFixturesFromFile(path string) (*RuleBasedProvider, error) {
	set, err := readFixtureSet(path)
	if err != nil {
		return nil, err
	}
	return NewRuleBasedProvider(set.AllRules())
}

// LoadFixturesFromDir loads all .json, .yaml and .yml fixture files from a
// directory, in lexical file order.
func LoadFixturesFromDir(dir string) (*RuleBasedProvider, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture directory: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !isFixtureFile(entry.Name()) {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	var allRules []HTTPFixtureRule
	for _, name := range names {
		set, err := readFixtureSet(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		allRules = append(allRules, set.AllRules()...)
	}

	return NewRuleBasedProvider(allRules)
}

func readFixtureSet(path string) (*FixtureSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture file: %w", err)
	}

	var set FixtureSet
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &set); err != nil {
			return nil, fmt.Errorf("failed to parse YAML fixtures %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(data, &set); err != nil {
			return nil, fmt.Errorf("failed to parse JSON fixtures %s: %w", path, err)
		}
	}
	return &set, nil
}

func isFixtureFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json", ".yaml", ".yml":
		return true
	}
	return false
}
