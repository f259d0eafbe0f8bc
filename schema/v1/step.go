// SPDX-License-Identifier: Apache-2.0
// SPDX-FileCopyrightText: 2025-Present Defense Unicorns

package v1

import (
	"fmt"
	"maps"
	"slices"

	"github.com/invopop/jsonschema"

	"github.com/defenseunicorns/pipa/runtimes"
	"github.com/defenseunicorns/pipa/schema"
)

// Step is a single unit of work within a pipeline
//
// It names a function to run, the scalar params and data inputs passed to it,
// and the outputs it makes available to later steps.
type Step struct {
	// Name is the unique identifier for the step within its pipeline
	Name string `json:"name"`
	// Uses references the function this step runs
	Uses string `json:"uses"`
	// Handler is the entrypoint within the function, when the function exposes more than one
	Handler string `json:"handler,omitempty"`
	// Params are scalar configuration values passed to the handler
	Params schema.Args `json:"params,omitempty"`
	// Inputs are data inputs: literal values or references to outputs of earlier steps
	Inputs map[string]string `json:"inputs,omitempty"`
	// Outputs declares the named outputs this step produces
	Outputs []string `json:"outputs,omitempty"`
	// When controls whether the orchestrator runs the step
	When string `json:"when,omitempty"`
	// Image overrides the function's container image
	Image string `json:"image,omitempty"`
	// Timeout bounds how long the orchestrator lets the step run
	Timeout string `json:"timeout,omitempty"`
}

// Clone returns a deep copy of the step
func (s Step) Clone() Step {
	clone := s
	clone.Params = maps.Clone(s.Params)
	clone.Inputs = maps.Clone(s.Inputs)
	clone.Outputs = slices.Clone(s.Outputs)
	return clone
}

// Steps is the ordered collection of steps forming a pipeline's graph
type Steps []Step

// Find returns a step by name
func (s Steps) Find(name string) (Step, bool) {
	for _, step := range s {
		if step.Name == name {
			return step, true
		}
	}
	return Step{}, false
}

// Names returns step names in document order
func (s Steps) Names() []string {
	names := make([]string, 0, len(s))
	for _, step := range s {
		names = append(names, step.Name)
	}
	return names
}

// JSONSchemaExtend extends the JSON schema for a step
func (Step) JSONSchemaExtend(stepSchema *jsonschema.Schema) {
	props := jsonschema.NewProperties()
	props.Set("name", &jsonschema.Schema{
		Type:        "string",
		Pattern:     StepNamePattern.String(),
		Description: "Unique identifier for the step, used in ${{ from \"step\" \"output\" }} references",
	})
	props.Set("uses", &jsonschema.Schema{
		Type: "string",
		Description: `Function the step runs

Either the name of a function registered in the project, or a location to fetch one from`,
		Examples: []any{
			"trainer",
			"analytics/describe:v2",
			"hub://gen-data",
			"hub://auto-trainer:main",
			"file:functions/trainer.yaml",
			"pkg:github/defenseunicorns/pipa-functions@main#gen-data/function.yaml",
			"oci://ghcr.io/defenseunicorns/functions/trainer:latest",
			"builtin:nop",
		},
	})
	props.Set("handler", &jsonschema.Schema{
		Type:        "string",
		Description: "Entrypoint within the function, defaults to the function's own default handler",
	})
	props.Set("params", &jsonschema.Schema{Type: "object"})
	props.Set("inputs", &jsonschema.Schema{
		Type: "object",
		Description: `Data inputs for the step

Values are either literals (e.g. an object store URI) or references to the
outputs of earlier steps: ${{ from "step" "output" }}`,
		PropertyNames: &jsonschema.Schema{
			Pattern: ParamNamePattern.String(),
		},
		AdditionalProperties: &jsonschema.Schema{Type: "string"},
	})
	props.Set("outputs", &jsonschema.Schema{
		Type:        "array",
		Description: "Named outputs the step produces, the only names later steps may reference",
		Items: &jsonschema.Schema{
			Type:    "string",
			Pattern: OutputNamePattern.String(),
		},
	})
	props.Set("when", &jsonschema.Schema{
		Type:        "string",
		Description: "Expression that controls whether the orchestrator runs the step",
	})
	props.Set("image", &jsonschema.Schema{
		Type:        "string",
		Description: "Container image override for the step, subject to registry enrichment",
	})
	props.Set("timeout", &jsonschema.Schema{
		Type: "string",
		Description: `Set how long the step may run before the orchestrator cancels it (e.g., "30s", "1m30s", "1h")

See https://pkg.go.dev/time#ParseDuration for more information.`,
	})

	// Steps running a builtin runtime get that runtime's spec as their params
	// schema, while every other step accepts free-form scalar params.
	var allRuntimeSchemas []*jsonschema.Schema
	reflector := jsonschema.Reflector{DoNotReference: true}

	for _, name := range runtimes.Names() {
		empty := runtimes.Get(name)

		runtimeSchema := &jsonschema.Schema{
			If: &jsonschema.Schema{
				Properties: jsonschema.NewProperties(),
			},
			Then: &jsonschema.Schema{
				Properties: jsonschema.NewProperties(),
			},
		}

		runtimeSchema.If.Properties.Set("uses", &jsonschema.Schema{
			Type:    "string",
			Pattern: "^builtin:" + name + "$",
		})

		paramsSchema := reflector.Reflect(empty)
		paramsSchema.Version = ""

		if paramsSchema != nil {
			paramsSchema.Description = fmt.Sprintf("Configuration for builtin:%s", name)

			// processSchema allows schema types to be either string or their original type for templating
			var processSchema func(schema *jsonschema.Schema)
			processSchema = func(schema *jsonschema.Schema) {
				if schema.Type == "string" {
					return
				}

				if schema.Type != "array" && schema.Type != "object" {
					schema.OneOf = []*jsonschema.Schema{
						{Type: "string"},
						{Type: schema.Type},
					}
					schema.Type = ""
					return
				}

				if schema.Type == "array" && schema.Items != nil {
					processSchema(schema.Items)
					return
				}
				if schema.Type == "object" && schema.Properties != nil {
					for nestedPair := schema.Properties.Oldest(); nestedPair != nil; nestedPair = nestedPair.Next() {
						processSchema(nestedPair.Value)
					}
				}
			}

			for pair := paramsSchema.Properties.Oldest(); pair != nil; pair = pair.Next() {
				if pair.Value.Type == "string" {
					continue
				}

				switch pair.Value.Type {
				case "array":
					if pair.Value.Items != nil {
						processSchema(pair.Value.Items)
					}

				case "object":
					if pair.Value.AdditionalProperties != nil && pair.Value.AdditionalProperties != jsonschema.FalseSchema {
						if pair.Value.AdditionalProperties.Type != "string" {
							processSchema(pair.Value.AdditionalProperties)
						}
					} else {
						objectSchema := *pair.Value

						if objectSchema.Properties != nil {
							for nestedPair := objectSchema.Properties.Oldest(); nestedPair != nil; nestedPair = nestedPair.Next() {
								processSchema(nestedPair.Value)
							}
						}

						pair.Value.OneOf = []*jsonschema.Schema{
							{Type: "string"},
							&objectSchema,
						}
						pair.Value.Type = ""
						pair.Value.Properties = nil
						pair.Value.PatternProperties = nil
						pair.Value.AdditionalProperties = nil
					}

				default:
					pair.Value.OneOf = []*jsonschema.Schema{
						{Type: "string"},
						{Type: pair.Value.Type},
					}
					pair.Value.Type = ""
				}
			}

			paramsSchema.ID = jsonschema.EmptyID
			paramsSchema.Type = "object"
			paramsSchema.AdditionalProperties = jsonschema.FalseSchema

			runtimeSchema.Then.Properties.Set("params", paramsSchema)

			if len(paramsSchema.Required) > 0 {
				runtimeSchema.Then.Required = []string{"params"}
			}

			allRuntimeSchemas = append(allRuntimeSchemas, runtimeSchema)
		}
	}

	genericParams := &jsonschema.Schema{
		If: &jsonschema.Schema{
			Properties: jsonschema.NewProperties(),
		},
		Then: &jsonschema.Schema{
			Properties: jsonschema.NewProperties(),
		},
	}

	genericParams.If.Properties.Set("uses", &jsonschema.Schema{
		Type: "string",
		Not:  &jsonschema.Schema{Pattern: "^builtin:.*$"},
	})

	var single uint64 = 1

	genericParams.Then.Properties.Set("params", &jsonschema.Schema{
		Type:        "object",
		Description: "Scalar configuration values passed to the handler",
		MinItems:    &single,
		PatternProperties: map[string]*jsonschema.Schema{
			ParamNamePattern.String(): {
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
			},
		},
		AdditionalProperties: jsonschema.FalseSchema,
	})

	allRuntimeSchemas = append(allRuntimeSchemas, genericParams)

	stepSchema.Properties = props
	stepSchema.Required = []string{"name", "uses"}
	stepSchema.AllOf = allRuntimeSchemas
	stepSchema.Description = "A single unit of work within a pipeline"
}
