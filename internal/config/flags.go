package config

import (
	"reflect"
	"strings"

	"github.com/spf13/pflag"
)

// flagField describes one scalar config field exposed as a flag
type flagField struct {
	path  string // e.g., "did.cache.ttl"
	name  string // e.g., "did-cache-ttl"
	usage string
	kind  reflect.Kind
}

// collectFlagFields walks Config and returns every scalar field reachable
// through koanf-tagged structs, in declaration order
func collectFlagFields() []flagField {
	var fields []flagField
	walkConfig(reflect.TypeOf(Config{}), "", &fields)
	return fields
}

func walkConfig(t reflect.Type, parent string, fields *[]flagField) {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}

		tag := field.Tag.Get("koanf")
		if tag == "" || tag == "-" {
			continue
		}
		if strings.Contains(tag, "squash") {
			walkConfig(field.Type, parent, fields)
			continue
		}

		path := tag
		if parent != "" {
			path = parent + "." + tag
		}

		ft := field.Type
		if ft.Kind() == reflect.Pointer {
			ft = ft.Elem()
		}

		switch {
		case ft.Kind() == reflect.Struct:
			walkConfig(ft, path, fields)
		case isScalarKind(ft.Kind()):
			*fields = append(*fields, flagField{
				path:  path,
				name:  configPathToFlagName(path),
				usage: field.Tag.Get("usage"),
				kind:  ft.Kind(),
			})
		}
		// Slices and maps (fixtures, indy endpoints) are file or env only
	}
}

func isScalarKind(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.String, reflect.Bool,
		reflect.Float32, reflect.Float64:
		return true
	default:
		return false
	}
}

// configPathToFlagName converts a config path to a flag name
// Examples:
//   - "did.cache.ttl" -> "did-cache-ttl"
//   - "registry_did" -> "registry-did"
func configPathToFlagName(configPath string) string {
	return strings.NewReplacer(".", "-", "_", "-").Replace(configPath)
}

// RegisterFlags registers command-line flags for all scalar config fields.
// Flags default to zero values so that only flags set on the command line
// override the file and environment.
func RegisterFlags(flagSet *pflag.FlagSet) {
	for _, f := range collectFlagFields() {
		if flagSet.Lookup(f.name) != nil {
			continue
		}

		switch f.kind {
		case reflect.String:
			flagSet.String(f.name, "", f.usage)
		case reflect.Int64:
			flagSet.Int64(f.name, 0, f.usage)
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32:
			flagSet.Int(f.name, 0, f.usage)
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			flagSet.Uint(f.name, 0, f.usage)
		case reflect.Bool:
			flagSet.Bool(f.name, false, f.usage)
		case reflect.Float32, reflect.Float64:
			flagSet.Float64(f.name, 0, f.usage)
		}
	}
}

// GetFlagMapping returns the mapping from flag names to config paths,
// e.g. {"store-seed-file": "store.seed_file"}
func GetFlagMapping() map[string]string {
	fields := collectFlagFields()
	mapping := make(map[string]string, len(fields))
	for _, f := range fields {
		mapping[f.name] = f.path
	}
	return mapping
}
