package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes environment overrides: FLOWEDIT_CLIENT_BASE_URL sets
// "client.base_url".
const EnvPrefix = "FLOWEDIT_"

// FromFile loads configuration from a file, auto-detecting format by extension.
// Supported extensions: .yaml, .yml, .json
func FromFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		return FromYAML(data)
	case ".json":
		return FromJSON(data)
	default:
		return Config{}, fmt.Errorf("unsupported config file extension: %s", ext)
	}
}

// FromYAML parses YAML data into a Config.
func FromYAML(data []byte) (Config, error) {
	var m map[string]any
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Config{}, fmt.Errorf("parse yaml: %w", err)
	}
	return New(m), nil
}

// FromJSON parses JSON data into a Config.
func FromJSON(data []byte) (Config, error) {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return Config{}, fmt.Errorf("parse json: %w", err)
	}
	return New(m), nil
}

// Load reads path when non-empty, expands ${VAR} references in its values
// from the environment, and then applies environment overrides.
func Load(path string) (Config, error) {
	cfg := New(nil)
	if path != "" {
		var err error
		if cfg, err = FromFile(path); err != nil {
			return Config{}, err
		}
		if cfg, err = cfg.Expand(os.LookupEnv); err != nil {
			return Config{}, fmt.Errorf("expand %s: %w", path, err)
		}
	}
	cfg.ApplyEnv(os.Environ())
	return cfg, nil
}

// ApplyEnv overlays KEY=VALUE pairs carrying EnvPrefix. The remainder of
// the name is lowercased and its first underscore becomes a section
// separator when that section already exists: with a "server" section,
// FLOWEDIT_SERVER_ADDR sets "server.addr". FLOWEDIT_BASE_URL is an alias
// for "client.base_url".
func (c Config) ApplyEnv(environ []string) {
	for _, kv := range environ {
		name, value, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		rest, ok := strings.CutPrefix(name, EnvPrefix)
		if !ok || rest == "" {
			continue
		}
		key := strings.ToLower(rest)
		if alias, ok := envAliases[key]; ok {
			c.Set(alias, value)
			continue
		}
		if section, field, ok := strings.Cut(key, "_"); ok {
			if _, isSection := asMap(c.data[section]); isSection || knownSections[section] {
				key = section + "." + field
			}
		}
		c.Set(key, value)
	}
}

// envAliases maps flat override names onto their section keys.
var envAliases = map[string]string{
	"base_url": "client.base_url",
}

// knownSections are treated as sections even when the file omits them.
var knownSections = map[string]bool{
	"client": true,
	"server": true,
}
