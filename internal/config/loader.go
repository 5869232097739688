package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Format is a config file encoding.
type Format string

const (
	FormatTOML Format = "toml"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatOf picks the format from a file extension. Unknown extensions return
// the empty format, which means auto-detect on load and TOML on save.
func FormatOf(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return FormatTOML
	case ".json":
		return FormatJSON
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return ""
	}
}

// Load reads, schema-checks, decodes and validates the config at path.
// Fields missing from the file keep their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data, FormatOf(path), filepath.Dir(path))
}

// Parse decodes data in the given format. dir holds the optional env file
// and resolves a relative log file path; it may be empty.
func Parse(data []byte, format Format, dir string) (*Config, error) {
	if format == "" {
		detected, err := detectFormat(data)
		if err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
		format = detected
	}

	if err := ValidateDocument(data, format); err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	if err := decode(data, format, cfg); err != nil {
		return nil, err
	}

	if dir != "" {
		if err := cfg.ApplyEnvFile(dir); err != nil {
			return nil, err
		}
	} else {
		cfg.ApplyEnvOverrides()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.Logging.FilePath != "" && dir != "" && !filepath.IsAbs(cfg.Logging.FilePath) {
		cfg.Logging.FilePath = filepath.Join(dir, cfg.Logging.FilePath)
	}
	return cfg, nil
}

func decode(data []byte, format Format, cfg *Config) error {
	switch format {
	case FormatTOML:
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return fmt.Errorf("decode TOML: %w", err)
		}
	case FormatJSON:
		if err := json.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("decode JSON: %w", err)
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("decode YAML: %w", err)
		}
	default:
		return fmt.Errorf("unsupported config format %q", format)
	}
	return nil
}

// detectFormat tries TOML, then JSON, then YAML.
func detectFormat(data []byte) (Format, error) {
	var doc map[string]any
	if _, err := toml.Decode(string(data), &doc); err == nil {
		return FormatTOML, nil
	}
	if err := json.Unmarshal(data, &doc); err == nil {
		return FormatJSON, nil
	}
	if err := yaml.Unmarshal(data, &doc); err == nil {
		return FormatYAML, nil
	}
	return "", fmt.Errorf("unable to parse config file (tried TOML, JSON, YAML)")
}

// Save writes cfg to path in the format chosen by its extension.
func Save(cfg *Config, path string) error {
	data, err := Encode(cfg, FormatOf(path))
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Encode renders cfg. The empty format encodes TOML.
func Encode(cfg *Config, format Format) ([]byte, error) {
	switch format {
	case FormatJSON:
		data, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	case FormatYAML:
		return yaml.Marshal(cfg)
	default:
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
}

// LoadOrCreate loads the config at path, writing the default config first
// if the file does not exist. The bool reports whether it was created.
func LoadOrCreate(path string) (*Config, bool, error) {
	if path == "" {
		path = DefaultPath()
	}

	_, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		if err := Save(DefaultConfig(), path); err != nil {
			return nil, false, fmt.Errorf("create default config: %w", err)
		}
		cfg, err := Load(path)
		return cfg, true, err
	}
	if err != nil {
		return nil, false, fmt.Errorf("stat config: %w", err)
	}

	cfg, err := Load(path)
	if err != nil {
		return nil, false, err
	}
	return cfg, false, nil
}
