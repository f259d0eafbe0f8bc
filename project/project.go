// SPDX-License-Identifier: Apache-2.0
// SPDX-FileCopyrightText: 2025-Present Defense Unicorns

// Package project loads, mutates, and saves pipa project definitions.
//
// A project groups named functions and pipelines so pipeline steps can
// reference functions by name instead of by full URL.
package project

import (
	"errors"
	"fmt"
	"io"
	"maps"
	"path/filepath"
	"slices"
	"sync"

	"github.com/goccy/go-yaml"
	"github.com/invopop/jsonschema"
	"github.com/spf13/afero"
	"github.com/xeipuuv/gojsonschema"

	"github.com/defenseunicorns/pipa/runtimes"
	"github.com/defenseunicorns/pipa/schema"
	v1 "github.com/defenseunicorns/pipa/schema/v1"
)

// DefaultFileName is the location a project definition is loaded from
const DefaultFileName = "project.yaml"

// SchemaVersion is the current project schema version
const SchemaVersion = "v0"

// Function is a named function entry in a project
//
// Either uses or image must be set. A uses entry points at a function
// definition to fetch, an image entry describes the function inline.
type Function struct {
	Uses        string `json:"uses,omitempty"`
	Kind        string `json:"kind,omitempty"`
	Image       string `json:"image,omitempty"`
	Handler     string `json:"handler,omitempty"`
	Description string `json:"description,omitempty"`
}

// JSONSchemaExtend extends the function entry schema
func (Function) JSONSchemaExtend(schema *jsonschema.Schema) {
	if uses, ok := schema.Properties.Get("uses"); ok {
		uses.Description = "Reference to a function definition"
	}
	if kind, ok := schema.Properties.Get("kind"); ok {
		kind.Description = "Runtime kind executing the function"
		for _, name := range runtimes.Names() {
			kind.Enum = append(kind.Enum, name)
		}
	}
	if image, ok := schema.Properties.Get("image"); ok {
		image.Description = "Container image, a leading . is relative to the project registry"
	}
	if handler, ok := schema.Properties.Get("handler"); ok {
		handler.Description = "Entrypoint invoked within the function"
		handler.Pattern = v1.StepNamePattern.String()
	}
}

// Project is a pipa project definition
type Project struct {
	SchemaVersion string              `json:"schema-version"`
	Name          string              `json:"name"`
	Description   string              `json:"description,omitempty"`
	Registry      string              `json:"registry,omitempty"`
	DefaultImage  string              `json:"default-image,omitempty"`
	ArtifactPath  string              `json:"artifact-path,omitempty"`
	Functions     map[string]Function `json:"functions,omitempty"`
	Pipelines     map[string]string   `json:"pipelines,omitempty"`
}

// JSONSchemaExtend extends the project schema
func (Project) JSONSchemaExtend(schema *jsonschema.Schema) {
	if version, ok := schema.Properties.Get("schema-version"); ok {
		version.Enum = []any{SchemaVersion}
	}
	if name, ok := schema.Properties.Get("name"); ok {
		name.Pattern = v1.RunNamePattern.String()
	}
	if registry, ok := schema.Properties.Get("registry"); ok {
		registry.Description = "Container registry relative images are resolved against"
	}
	if artifactPath, ok := schema.Properties.Get("artifact-path"); ok {
		artifactPath.Description = "Default storage location for run outputs, {{project}} is expanded at submission"
	}
	if pipelines, ok := schema.Properties.Get("pipelines"); ok {
		pipelines.Description = "Named pipeline definitions belonging to this project"
	}
}

// New creates an empty project
func New(name string) *Project {
	return &Project{
		SchemaVersion: SchemaVersion,
		Name:          name,
	}
}

// SetFunction adds or replaces a named function entry
func (p *Project) SetFunction(name string, fn Function) error {
	if ok := v1.StepNamePattern.MatchString(name); !ok {
		return fmt.Errorf("function name %q does not satisfy %q", name, v1.StepNamePattern.String())
	}
	if err := validateFunction(name, fn); err != nil {
		return err
	}
	if p.Functions == nil {
		p.Functions = map[string]Function{}
	}
	p.Functions[name] = fn
	return nil
}

// Function returns a named function entry
func (p *Project) Function(name string) (Function, bool) {
	fn, ok := p.Functions[name]
	return fn, ok
}

// ResolveFunction resolves a registry reference against the project
//
// References follow [project/]name[:tag][@uid]. A project segment must match
// this project's name. The registry is unversioned, a tag or uid is accepted
// but resolution is by name, pinning is the orchestrator's concern.
func (p *Project) ResolveFunction(ref string) (string, Function, error) {
	parsed, err := v1.ParseFunctionRef(ref)
	if err != nil {
		return "", Function{}, err
	}
	if parsed.Project != "" && parsed.Project != p.Name {
		return "", Function{}, fmt.Errorf("function %q belongs to project %q, not %q", parsed.Name, parsed.Project, p.Name)
	}
	fn, ok := p.Functions[parsed.Name]
	if !ok {
		return "", Function{}, fmt.Errorf("function %q not found in project %q", parsed.Name, p.Name)
	}
	return parsed.Name, fn, nil
}

// SetPipeline adds or replaces a named pipeline reference
func (p *Project) SetPipeline(name, ref string) error {
	if ok := v1.StepNamePattern.MatchString(name); !ok {
		return fmt.Errorf("pipeline name %q does not satisfy %q", name, v1.StepNamePattern.String())
	}
	if ref == "" {
		return fmt.Errorf("pipeline %q requires a reference", name)
	}
	if p.Pipelines == nil {
		p.Pipelines = map[string]string{}
	}
	p.Pipelines[name] = ref
	return nil
}

// Pipeline returns a named pipeline reference
func (p *Project) Pipeline(name string) (string, bool) {
	ref, ok := p.Pipelines[name]
	return ref, ok
}

func validateFunction(name string, fn Function) error {
	if fn.Uses == "" && fn.Image == "" {
		return fmt.Errorf(".functions.%s requires uses or image", name)
	}
	if fn.Kind != "" && runtimes.Get(fn.Kind) == nil {
		return fmt.Errorf(".functions.%s.kind %q is not one of %v", name, fn.Kind, runtimes.Names())
	}
	if fn.Handler != "" {
		if ok := v1.StepNamePattern.MatchString(fn.Handler); !ok {
			return fmt.Errorf(".functions.%s.handler %q does not satisfy %q", name, fn.Handler, v1.StepNamePattern.String())
		}
	}
	return nil
}

// Validate checks a project definition for structural problems
func (p *Project) Validate() error {
	if p.SchemaVersion != SchemaVersion {
		return fmt.Errorf("unsupported project schema version: expected %q, got %q", SchemaVersion, p.SchemaVersion)
	}

	if ok := v1.RunNamePattern.MatchString(p.Name); !ok {
		return fmt.Errorf(".name %q does not satisfy %q", p.Name, v1.RunNamePattern.String())
	}

	for _, name := range slices.Sorted(maps.Keys(p.Functions)) {
		if ok := v1.StepNamePattern.MatchString(name); !ok {
			return fmt.Errorf(".functions.%s does not satisfy %q", name, v1.StepNamePattern.String())
		}
		if err := validateFunction(name, p.Functions[name]); err != nil {
			return err
		}
	}

	for _, name := range slices.Sorted(maps.Keys(p.Pipelines)) {
		if ok := v1.StepNamePattern.MatchString(name); !ok {
			return fmt.Errorf(".pipelines.%s does not satisfy %q", name, v1.StepNamePattern.String())
		}
		if p.Pipelines[name] == "" {
			return fmt.Errorf(".pipelines.%s requires a reference", name)
		}
	}

	schemaJSON, err := schemaOnce()
	if err != nil {
		return err
	}

	b, err := yaml.Marshal(p)
	if err != nil {
		return err
	}
	var obj map[string]any
	if err := yaml.Unmarshal(b, &obj); err != nil {
		return err
	}

	result, err := gojsonschema.Validate(gojsonschema.NewStringLoader(schemaJSON), gojsonschema.NewGoLoader(obj))
	if err != nil {
		return err
	}

	if !result.Valid() {
		var errs []error
		for _, err := range result.Errors() {
			errs = append(errs, fmt.Errorf("%s", err.String()))
		}
		return errors.Join(errs...)
	}

	return nil
}

var schemaOnce = sync.OnceValues(func() (string, error) {
	b, err := Schema().MarshalJSON()
	return string(b), err
})

// Schema returns the project definition JSON schema
func Schema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{DoNotReference: true, ExpandedStruct: true}
	return reflector.Reflect(&Project{})
}

// Load reads and validates a project definition
func Load(r io.Reader) (*Project, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var versioned schema.Versioned
	if err := yaml.Unmarshal(data, &versioned); err != nil {
		return nil, err
	}
	if versioned.SchemaVersion != SchemaVersion {
		return nil, fmt.Errorf("unsupported project schema version: expected %q, got %q", SchemaVersion, versioned.SchemaVersion)
	}

	var p Project
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	return &p, p.Validate()
}

// LoadFromFile reads and validates a project definition from a path
func LoadFromFile(fsys afero.Fs, path string) (*Project, error) {
	if path == "" {
		path = DefaultFileName
	}
	f, err := fsys.Open(filepath.Clean(path))
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Load(f)
}

// Save validates and writes a project definition
func (p *Project) Save(fsys afero.Fs, path string) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if path == "" {
		path = DefaultFileName
	}

	b, err := yaml.MarshalWithOptions(p,
		yaml.Indent(2),
		yaml.IndentSequence(true),
		yaml.UseLiteralStyleIfMultiline(true),
	)
	if err != nil {
		return err
	}

	return afero.WriteFile(fsys, filepath.Clean(path), b, 0o644)
}
