// SPDX-License-Identifier: Apache-2.0
// SPDX-FileCopyrightText: 2025-Present Defense Unicorns

package v1

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// Explain renders the pipeline as markdown
//
// With no names every step is included along with a usage section,
// otherwise only the named steps.
func (p Pipeline) Explain(stepNames ...string) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("# Pipeline (%s)\n\n", p.SchemaVersion))

	if p.Name != "" {
		sb.WriteString(fmt.Sprintf("**Name:** `%s`\n\n", p.Name))
	}
	if p.Description != "" {
		sb.WriteString(p.Description)
		sb.WriteString("\n\n")
	}

	if len(p.Parameters) > 0 {
		sb.WriteString("## Parameters\n\n")
		sb.WriteString("| Name | Description | Required | Default | Validation | Notes |\n")
		sb.WriteString("|------|-------------|----------|---------|------------|-------|\n")
		for name, param := range p.Parameters.OrderedSeq() {
			sb.WriteString(explainParameter(name, param))
		}
		sb.WriteString("\n")
	}

	sb.WriteString("## Steps\n\n")

	steps := p.Steps
	if len(stepNames) > 0 {
		steps = Steps{}
		for _, step := range p.Steps {
			if slices.Contains(stepNames, step.Name) {
				steps = append(steps, step)
			}
		}
	}

	if len(steps) == 0 {
		sb.WriteString("No steps found.\n")
		return sb.String()
	}

	for _, step := range steps {
		sb.WriteString(explainStep(step))
	}

	if len(stepNames) == 0 {
		sb.WriteString("## Usage\n\n")
		sb.WriteString("```shell\n")
		sb.WriteString("pipa                     # Submit pipeline.yaml and watch the run\n")
		sb.WriteString("pipa --dry-run           # Render the pipeline without submitting\n")
		sb.WriteString("pipa -a key=value        # Set a submission-time parameter\n")
		sb.WriteString("```\n")
	}

	return sb.String()
}

func explainParameter(name string, param Parameter) string {
	description := param.Description
	if description == "" {
		description = "-"
	}

	// required defaults to true
	required := "Yes"
	if param.Required != nil && !*param.Required {
		required = "No"
	}

	defaultValue := "-"
	if param.Default != nil {
		defaultValue = fmt.Sprintf("`%v`", param.Default)
	}
	if param.DefaultFromEnv != "" {
		defaultValue += fmt.Sprintf(" (`$%s`)", param.DefaultFromEnv)
	}

	validation := "-"
	if param.Validate != "" {
		validation = fmt.Sprintf("`%s`", param.Validate)
	}

	notes := "-"
	if param.DeprecatedMessage != "" {
		notes = fmt.Sprintf("⚠️ **Deprecated**: %s", param.DeprecatedMessage)
	}

	return fmt.Sprintf("| `%s` | %s | %s | %s | %s | %s |\n", name, description, required, defaultValue, validation, notes)
}

func explainStep(step Step) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("### `%s`\n\n", step.Name))

	sb.WriteString(fmt.Sprintf("Uses: `%s`", step.Uses))
	if step.Handler != "" {
		sb.WriteString(fmt.Sprintf(" (handler: `%s`)", step.Handler))
	}
	sb.WriteString("\n\n")

	if len(step.Params) > 0 {
		sb.WriteString("**Params:**\n\n")
		for _, name := range slices.Sorted(maps.Keys(step.Params)) {
			sb.WriteString(fmt.Sprintf("- `%s`: `%v`\n", name, step.Params[name]))
		}
		sb.WriteString("\n")
	}

	if len(step.Inputs) > 0 {
		sb.WriteString("**Inputs:**\n\n")
		for _, name := range slices.Sorted(maps.Keys(step.Inputs)) {
			sb.WriteString(fmt.Sprintf("- `%s`: `%s`\n", name, step.Inputs[name]))
		}
		sb.WriteString("\n")
	}

	if len(step.Outputs) > 0 {
		outputs := make([]string, 0, len(step.Outputs))
		for _, output := range step.Outputs {
			outputs = append(outputs, fmt.Sprintf("`%s`", output))
		}
		sb.WriteString(fmt.Sprintf("Outputs: %s\n\n", strings.Join(outputs, ", ")))
	}

	var config []string
	if step.Image != "" {
		config = append(config, fmt.Sprintf("Image: `%s`", step.Image))
	}
	if step.Timeout != "" {
		config = append(config, fmt.Sprintf("Timeout: `%s`", step.Timeout))
	}
	if step.When != "" {
		config = append(config, fmt.Sprintf("Condition: `%s`", step.When))
	}
	if len(config) > 0 {
		sb.WriteString(fmt.Sprintf("*Configuration:* %s\n\n", strings.Join(config, " • ")))
	}

	return sb.String()
}
