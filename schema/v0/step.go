// SPDX-License-Identifier: Apache-2.0
// SPDX-FileCopyrightText: 2025-Present Defense Unicorns

package v0

import (
	"github.com/invopop/jsonschema"
)

// With is the single bag of values a v0 step passes to its function
//
// v1 splits this into params (scalars) and inputs (data references)
type With = map[string]any

// Step is a single unit of work within a legacy pipeline
type Step struct {
	// Name is the unique identifier for the step within its pipeline
	Name string `json:"name"`
	// Function references the function this step runs
	Function string `json:"function"`
	// Handler is the entrypoint within the function
	Handler string `json:"handler,omitempty"`
	// With is a map of values passed to the function
	With With `json:"with,omitempty"`
	// If controls whether the orchestrator runs the step
	If string `json:"if,omitempty"`
	// Image overrides the function's container image
	Image string `json:"image,omitempty"`
	// Timeout bounds how long the orchestrator lets the step run
	Timeout string `json:"timeout,omitempty"`
}

// JSONSchemaExtend extends the JSON schema for a step
func (Step) JSONSchemaExtend(schema *jsonschema.Schema) {
	if name, ok := schema.Properties.Get("name"); ok && name != nil {
		name.Description = "Unique identifier for the step"
		name.Pattern = StepNamePattern.String()
	}
	if function, ok := schema.Properties.Get("function"); ok && function != nil {
		function.Description = "Function the step runs, a registered name or a location to fetch one from"
	}
	if handler, ok := schema.Properties.Get("handler"); ok && handler != nil {
		handler.Description = "Entrypoint within the function"
	}
	if with, ok := schema.Properties.Get("with"); ok && with != nil {
		with.Description = "Values passed to the function, literals or ${{ from \"step\" \"output\" }} references"
		with.PropertyNames = &jsonschema.Schema{
			Pattern: StepNamePattern.String(),
		}
	}
	if ifProp, ok := schema.Properties.Get("if"); ok && ifProp != nil {
		ifProp.Description = "Expression that controls whether the orchestrator runs the step"
	}
	if image, ok := schema.Properties.Get("image"); ok && image != nil {
		image.Description = "Container image override for the step"
	}
	if timeout, ok := schema.Properties.Get("timeout"); ok && timeout != nil {
		timeout.Description = "Set how long the step may run before the orchestrator cancels it"
	}
}
