// SPDX-License-Identifier: Apache-2.0
// SPDX-FileCopyrightText: 2025-Present Defense Unicorns

package v1

import (
	"cmp"
	"iter"
	"slices"

	"github.com/invopop/jsonschema"
)

// ParamMap declares the parameters a pipeline accepts at submission time
//
// Maps parameter names to their definitions including validation, defaults, and documentation
type ParamMap map[string]Parameter

// JSONSchemaExtend restricts parameter names to valid patterns
func (ParamMap) JSONSchemaExtend(schema *jsonschema.Schema) {
	schema.PropertyNames = &jsonschema.Schema{
		Pattern: ParamNamePattern.String(),
	}
}

// OrderedSeq returns an iterator over parameter names and values in alphabetical order by name
func (pm ParamMap) OrderedSeq() iter.Seq2[string, Parameter] {
	names := make([]string, 0, len(pm))
	for name := range pm {
		names = append(names, name)
	}
	slices.SortStableFunc(names, cmp.Compare)
	return func(yield func(string, Parameter) bool) {
		for _, name := range names {
			param := pm[name]
			if !yield(name, param) {
				return
			}
		}
	}
}

// Parameter defines a single submission-time parameter for a pipeline
//
// Supports validation, default values from environment variables,
// deprecation warnings, and required/optional configuration
type Parameter struct {
	// Description of the parameter
	Description string `json:"description"`
	// Message to display when the parameter is deprecated
	DeprecatedMessage string `json:"deprecated-message,omitempty"`
	// Whether the parameter is required, defaults to true
	Required *bool `json:"required,omitempty"`
	// Default value for the parameter, can be a string or a primitive type
	Default any `json:"default,omitempty"`
	// Environment variable to use as default value for the parameter
	DefaultFromEnv string `json:"default-from-env,omitempty"`
	// Regular expression to validate the value of the parameter
	Validate string `json:"validate,omitempty"`
}

// JSONSchemaExtend generates detailed schema documentation for parameters
func (Parameter) JSONSchemaExtend(schema *jsonschema.Schema) {
	schema.Description = "Submission-time parameter for the pipeline"

	schema.Properties.Set("description", &jsonschema.Schema{
		Type:        "string",
		Description: "Description of the parameter",
	})

	schema.Properties.Set("deprecated-message", &jsonschema.Schema{
		Type:        "string",
		Description: "Message to display when the parameter is deprecated",
	})

	schema.Properties.Set("required", &jsonschema.Schema{
		Type:        "boolean",
		Description: "Whether the parameter is required",
		Default:     true,
	})

	schema.Properties.Set("validate", &jsonschema.Schema{
		Type: "string",
		Description: `Regular expression to validate the value of the parameter

See https://github.com/defenseunicorns/pipa/blob/main/docs/syntax.md#parameter-validation`,
	})

	schema.Properties.Set("default", &jsonschema.Schema{
		Description: "Default value for the parameter, can be a string or a primitive type",
		OneOf: []*jsonschema.Schema{
			{
				Type: "string",
			},
			{
				Type: "boolean",
			},
			{
				Type: "integer",
			},
			{
				Type: "number",
			},
		},
	})
	schema.Properties.Set("default-from-env", &jsonschema.Schema{
		Type: "string",
		Description: `Environment variable to use as default value for the parameter

See https://github.com/defenseunicorns/pipa/blob/main/docs/syntax.md#default-values-from-environment-variables`,
		Pattern: EnvVariablePattern.String(),
	})
}
