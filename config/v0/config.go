// SPDX-License-Identifier: Apache-2.0
// SPDX-FileCopyrightText: 2025-Present Defense Unicorns

// Package v0 provides the schema for v0 of the system config file for pipa
//
// v0 allows for breaking changes without a major version increase
package v0

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/goccy/go-yaml"
	"github.com/invopop/jsonschema"

	"github.com/defenseunicorns/pipa/config"
	"github.com/defenseunicorns/pipa/schema"
	"github.com/defenseunicorns/pipa/uses"
	"github.com/xeipuuv/gojsonschema"
)

// SchemaVersion is the current schema version for configs
const SchemaVersion = "v0"

// Config is the system configuration file for pipa
type Config struct {
	SchemaVersion string                  `json:"schema-version"`
	Aliases       map[string]config.Alias `json:"aliases"`
	FetchPolicy   uses.FetchPolicy        `json:"fetch-policy"`
	HubURL        string                  `json:"hub-url,omitempty"`
	Address       string                  `json:"address,omitempty"`
	Registry      string                  `json:"registry,omitempty"`
}

// JSONSchemaExtend extends the JSON schema for a config
func (Config) JSONSchemaExtend(jsSchema *jsonschema.Schema) {
	if schemaVersion, ok := jsSchema.Properties.Get("schema-version"); ok && schemaVersion != nil {
		schemaVersion.Description = "Config schema version"
		schemaVersion.Enum = []any{SchemaVersion}
		schemaVersion.AdditionalProperties = jsonschema.FalseSchema
	}

	if hubURL, ok := jsSchema.Properties.Get("hub-url"); ok && hubURL != nil {
		hubURL.Description = "Template for expanding hub:// references, {name} and {tag} are substituted"
	}

	if address, ok := jsSchema.Properties.Get("address"); ok && address != nil {
		address.Description = "Base URL of the pipa API server"
	}

	if registry, ok := jsSchema.Properties.Get("registry"); ok && registry != nil {
		registry.Description = "Default container registry for image enrichment"
	}
}

// LoadConfig loads the configuration from a reader
func LoadConfig(r io.Reader) (*Config, error) {
	cfg := &Config{
		SchemaVersion: SchemaVersion,
		Aliases:       map[string]config.Alias{},
		FetchPolicy:   uses.DefaultFetchPolicy,
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var versioned schema.Versioned
	if err := yaml.Unmarshal(data, &versioned); err != nil {
		return nil, err
	}

	switch version := versioned.SchemaVersion; version {
	case SchemaVersion:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
		return cfg, Validate(cfg)
	// See schema/v1/validate.go for an example on how auto migrations during loading/reading can work for when v1 of config is released
	default:
		return nil, fmt.Errorf("unsupported config schema version: expected %q, got %q", SchemaVersion, version)
	}
}

// LoadDefaultConfig loads the configuration from the default location
//
// If the configuration file does not exist, this function returns a default valid but "empty" config
func LoadDefaultConfig() (*Config, error) {
	configDir, err := config.DefaultDirectory()
	if err != nil {
		return nil, err
	}

	f, err := os.Open(filepath.Join(configDir, config.DefaultFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{
				SchemaVersion: SchemaVersion,
				Aliases:       map[string]config.Alias{},
				FetchPolicy:   uses.DefaultFetchPolicy,
			}, nil
		}
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	cfg, err := LoadConfig(f)
	if err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}
	return cfg, nil
}

// Since every validation operation leverages the same config, only calculate it once to save some compute cycles
//
// This also prevents any schema changes from occuring at runtime
var schemaOnce = sync.OnceValues(func() (string, error) {
	s := Schema()
	b, err := json.Marshal(s)
	return string(b), err
})

// Validate checks if a config adheres to the JSON schema
func Validate(cfg *Config) error {
	docSchema, err := schemaOnce()
	if err != nil {
		return err
	}

	schemaLoader := gojsonschema.NewStringLoader(docSchema)

	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewGoLoader(cfg))
	if err != nil {
		return err
	}

	if result.Valid() {
		return nil
	}

	var resErr error
	for _, err := range result.Errors() {
		resErr = errors.Join(resErr, errors.New(err.String()))
	}

	return resErr
}

// Schema returns the JSON schema for the Config type
func Schema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{DoNotReference: true}
	return reflector.Reflect(&Config{})
}
