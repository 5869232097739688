package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

//go:embed schema.json
var schemaJSON string

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

func configSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiledSchema, schemaErr = jsonschema.CompileString("config.schema.json", schemaJSON)
	})
	return compiledSchema, schemaErr
}

// Schema returns the JSON Schema config documents are checked against.
func Schema() string {
	return schemaJSON
}

// ValidateDocument checks the raw document against the config schema before
// it is decoded, so unknown fields and wrong types are reported by location.
// Problems are returned as ValidationErrors.
func ValidateDocument(data []byte, format Format) error {
	schema, err := configSchema()
	if err != nil {
		return fmt.Errorf("compile config schema: %w", err)
	}

	doc, err := genericDocument(data, format)
	if err != nil {
		return err
	}

	err = schema.Validate(doc)
	if err == nil {
		return nil
	}

	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return fmt.Errorf("validate config: %w", err)
	}

	var errs ValidationErrors
	var walk func(*jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) == 0 {
			errs = append(errs, ValidationError{
				Field:   fieldName(e.InstanceLocation),
				Message: e.Message,
			})
			return
		}
		for _, c := range e.Causes {
			walk(c)
		}
	}
	walk(ve)
	return errs
}

// genericDocument decodes data into plain JSON values.
func genericDocument(data []byte, format Format) (any, error) {
	var raw any
	switch format {
	case FormatTOML:
		var m map[string]any
		if _, err := toml.Decode(string(data), &m); err != nil {
			return nil, fmt.Errorf("decode TOML: %w", err)
		}
		raw = m
	case FormatYAML:
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("decode YAML: %w", err)
		}
	case FormatJSON:
		raw = json.RawMessage(data)
	default:
		return nil, fmt.Errorf("unsupported config format %q", format)
	}

	// TOML and YAML produce Go types the validator does not accept, such as
	// []map[string]any. A JSON round trip normalizes them.
	normalized, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("normalize config: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(normalized))
	dec.UseNumber()

	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode JSON: %w", err)
	}
	if doc == nil {
		doc = map[string]any{}
	}
	return doc, nil
}

// fieldName turns "/bindings/0/speed" into "bindings[0].speed".
func fieldName(loc string) string {
	loc = strings.TrimPrefix(loc, "/")
	if loc == "" {
		return "(root)"
	}
	var b strings.Builder
	for i, part := range strings.Split(loc, "/") {
		part = strings.ReplaceAll(strings.ReplaceAll(part, "~1", "/"), "~0", "~")
		if isIndex(part) {
			b.WriteString("[" + part + "]")
			continue
		}
		if i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(part)
	}
	return b.String()
}

func isIndex(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
