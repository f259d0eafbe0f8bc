// SPDX-License-Identifier: Apache-2.0
// SPDX-FileCopyrightText: 2025-Present Defense Unicorns

package v1

import (
	"maps"

	"github.com/invopop/jsonschema"
)

// SchemaVersion is the current schema version for pipelines
const SchemaVersion = "v1"

// Pipeline represents a "pipeline.yaml" file
type Pipeline struct {
	SchemaVersion string   `json:"schema-version"`
	Name          string   `json:"name"`
	Description   string   `json:"description,omitempty"`
	Parameters    ParamMap `json:"parameters,omitempty"`
	Steps         Steps    `json:"steps"`
}

// JSONSchemaExtend extends the JSON schema for a pipeline
func (Pipeline) JSONSchemaExtend(schema *jsonschema.Schema) {
	if schemaVersion, ok := schema.Properties.Get("schema-version"); ok && schemaVersion != nil {
		schemaVersion.Description = "Pipeline schema version."
		schemaVersion.Enum = []any{SchemaVersion}
		schemaVersion.AdditionalProperties = jsonschema.FalseSchema
	}
	if name, ok := schema.Properties.Get("name"); ok && name != nil {
		name.Description = "Pipeline name, used as the base for run names"
		name.Pattern = RunNamePattern.String()
	}
	if parameters, ok := schema.Properties.Get("parameters"); ok && parameters != nil {
		parameters.Description = "Parameters resolved at submission time from runtime arguments"
	}
	if steps, ok := schema.Properties.Get("steps"); ok && steps != nil {
		steps.Description = `Pipeline steps in dependency order

Later steps may reference the outputs of earlier steps with ${{ from "step" "output" }}`
	}
}

// Clone returns a deep copy of the pipeline
//
// Mutating the copy does not affect the original, built pipelines stay
// immutable even when a caller re-renders their steps
func (p Pipeline) Clone() Pipeline {
	clone := p
	clone.Parameters = maps.Clone(p.Parameters)
	clone.Steps = make(Steps, len(p.Steps))
	for i, step := range p.Steps {
		clone.Steps[i] = step.Clone()
	}
	return clone
}

// PipelineSchema returns a JSON schema for a pipa pipeline
func PipelineSchema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{DoNotReference: true, ExpandedStruct: true}
	schema := reflector.Reflect(&Pipeline{})

	schema.ID = "https://raw.githubusercontent.com/defenseunicorns/pipa/main/schema/v1/schema.json"

	return schema
}
