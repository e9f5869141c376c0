// Package config loads and validates snag.json configuration files. A
// document is validated against an embedded JSON Schema before use, so a
// malformed config surfaces as a user error with instance locations rather
// than as odd engine behavior later.
package config

import (
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

//go:embed schema/snag.json
var schemaFS embed.FS

// FileName is the configuration file snag looks for.
const FileName = "snag.json"

// Config is the parsed form of a snag.json file. Pointer fields distinguish
// "absent" from an explicit false.
type Config struct {
	// Rules maps rule names to severity overrides: "off", "warn", "error".
	Rules map[string]string `json:"rules,omitempty"`

	Cache       *bool `json:"cache,omitempty"`
	Jobs        int   `json:"jobs,omitempty"`
	ScriptRules *bool `json:"scriptRules,omitempty"`
}

// ValidationError describes one schema violation in a config document.
type ValidationError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

func (e ValidationError) String() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s", e.Path, e.Message)
	}
	return e.Message
}

// compileSchema compiles the embedded configuration schema.
func compileSchema() (*jsonschema.Schema, error) {
	data, err := schemaFS.ReadFile("schema/snag.json")
	if err != nil {
		return nil, fmt.Errorf("read embedded schema: %w", err)
	}
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse embedded schema: %w", err)
	}

	c := jsonschema.NewCompiler()
	if err := c.AddResource("snag.json", doc); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}
	schema, err := c.Compile("snag.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return schema, nil
}

// Load reads, validates, and parses the config file at path. Schema
// violations come back as a single error listing every violation with its
// instance location.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	schema, err := compileSchema()
	if err != nil {
		return nil, err
	}
	if err := schema.Validate(doc); err != nil {
		verrs := collectErrors(err)
		parts := make([]string, len(verrs))
		for i, ve := range verrs {
			parts[i] = ve.String()
		}
		return nil, fmt.Errorf("invalid config %s: %s", path, strings.Join(parts, "; "))
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("decode config %s: %w", path, err)
	}
	return &cfg, nil
}

// collectErrors flattens a jsonschema validation error into leaf violations
// with instance locations.
func collectErrors(err error) []ValidationError {
	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return []ValidationError{{Message: err.Error()}}
	}
	return collectLeaves(ve)
}

func collectLeaves(ve *jsonschema.ValidationError) []ValidationError {
	if len(ve.Causes) == 0 {
		path := "/" + strings.Join(ve.InstanceLocation, "/")
		if len(ve.InstanceLocation) == 0 {
			path = ""
		}
		return []ValidationError{{Path: path, Message: ve.Error()}}
	}
	var errors []ValidationError
	for _, cause := range ve.Causes {
		errors = append(errors, collectLeaves(cause)...)
	}
	return errors
}

// Find walks up from startDir looking for a snag.json file. It returns the
// file's path, or "" when no ancestor carries one.
func Find(startDir string) string {
	dir := startDir
	for {
		candidate := filepath.Join(dir, FileName)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}
