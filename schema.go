// SPDX-License-Identifier: Apache-2.0
// SPDX-FileCopyrightText: 2025-Present Defense Unicorns

package pipa

import (
	"bytes"
	"fmt"
	"io"

	goyaml "github.com/goccy/go-yaml"
	"github.com/invopop/jsonschema"

	"github.com/defenseunicorns/pipa/schema"
	v0 "github.com/defenseunicorns/pipa/schema/v0"
	v1 "github.com/defenseunicorns/pipa/schema/v1"
)

// DefaultPipelineFile is the location a pipeline definition is loaded from
const DefaultPipelineFile = "pipeline.yaml"

// PipelineSchema generates the schema for either a given version, or all versions in one meta schema
func PipelineSchema(version string) *jsonschema.Schema {
	var metaSchema *jsonschema.Schema

	switch version {
	case v0.SchemaVersion:
		metaSchema = v0.PipelineSchema()
	case v1.SchemaVersion:
		metaSchema = v1.PipelineSchema()
	default:
		metaSchema = &jsonschema.Schema{
			ID:      "https://raw.githubusercontent.com/defenseunicorns/pipa/main/pipa.schema.json",
			Version: jsonschema.Version,
		}

		for _, branch := range []struct {
			version string
			schema  *jsonschema.Schema
		}{
			{v0.SchemaVersion, v0.PipelineSchema()},
			{v1.SchemaVersion, v1.PipelineSchema()},
		} {
			cond := &jsonschema.Schema{
				If: &jsonschema.Schema{
					Properties: jsonschema.NewProperties(),
				},
				Then: branch.schema,
			}
			cond.If.Properties.Set("schema-version", &jsonschema.Schema{
				Type: "string",
				Enum: []any{branch.version},
			})
			metaSchema.AllOf = append(metaSchema.AllOf, cond)
		}
	}

	return metaSchema
}

// ReadAndValidate reads a pipeline document of any supported schema version
//
// v0 documents are migrated to v1 before validation, callers always receive
// the current schema.
func ReadAndValidate(r io.Reader) (v1.Pipeline, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return v1.Pipeline{}, err
	}

	var versioned schema.Versioned
	if err := goyaml.Unmarshal(data, &versioned); err != nil {
		return v1.Pipeline{}, err
	}

	switch versioned.SchemaVersion {
	case v1.SchemaVersion:
		return v1.ReadAndValidate(bytes.NewReader(data))
	case v0.SchemaVersion:
		old, err := v0.ReadAndValidate(bytes.NewReader(data))
		if err != nil {
			return v1.Pipeline{}, err
		}
		migrated, err := v1.Migrate(old)
		if err != nil {
			return v1.Pipeline{}, err
		}
		return migrated, v1.Validate(migrated)
	default:
		return v1.Pipeline{}, fmt.Errorf("unsupported schema version: %q (supported: %q, %q)", versioned.SchemaVersion, v0.SchemaVersion, v1.SchemaVersion)
	}
}
