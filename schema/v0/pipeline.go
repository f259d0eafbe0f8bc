// SPDX-License-Identifier: Apache-2.0
// SPDX-FileCopyrightText: 2025-Present Defense Unicorns

package v0

import (
	"github.com/invopop/jsonschema"
)

// SchemaVersion is the schema version for legacy pipelines
const SchemaVersion = "v0"

// Pipeline represents a legacy "pipeline.yaml" file
//
// v0 pipelines have no declared outputs and no parameter declarations, both
// are reconstructed during migration to v1
type Pipeline struct {
	SchemaVersion string `json:"schema-version"`
	Name          string `json:"pipeline"`
	Steps         []Step `json:"steps"`
}

// JSONSchemaExtend extends the JSON schema for a pipeline
func (Pipeline) JSONSchemaExtend(schema *jsonschema.Schema) {
	if schemaVersion, ok := schema.Properties.Get("schema-version"); ok && schemaVersion != nil {
		schemaVersion.Description = "Pipeline schema version. For v0 breaking changes can be expected without any migration pathway."
		schemaVersion.Enum = []any{SchemaVersion}
		schemaVersion.AdditionalProperties = jsonschema.FalseSchema
	}

	if name, ok := schema.Properties.Get("pipeline"); ok && name != nil {
		name.Description = "Pipeline name"
		name.Pattern = RunNamePattern.String()
	}

	if steps, ok := schema.Properties.Get("steps"); ok && steps != nil {
		steps.Description = "Pipeline steps in dependency order"
	}
}

// PipelineSchema returns a JSON schema for a legacy pipa pipeline
func PipelineSchema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{ExpandedStruct: true}
	schema := reflector.Reflect(&Pipeline{})

	schema.ID = "https://raw.githubusercontent.com/defenseunicorns/pipa/main/schema/v0/schema.json"

	return schema
}
