// SPDX-License-Identifier: Apache-2.0
// SPDX-FileCopyrightText: 2025-Present Defense Unicorns

package pipa

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"text/template"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/defenseunicorns/pipa/schema"
	v1 "github.com/defenseunicorns/pipa/schema/v1"
)

// TemplateString resolves ${{ param "name" }} expressions against merged
// submission arguments
//
// ${{ from "step" "output" }} references are re-emitted in canonical form:
// outputs do not exist until the orchestrator has run the producing step, so
// they travel with the document and are resolved server-side.
func TemplateString(ctx context.Context, args schema.Args, str string, dry bool) (string, error) {
	var tmpl *template.Template

	argKeys := make([]string, 0, len(args))
	for k := range args {
		argKeys = append(argKeys, k)
	}
	slices.Sort(argKeys)

	logger := log.FromContext(ctx)

	from := func(step, output string) string {
		return v1.Reference{Step: step, Output: output}.String()
	}

	if dry {
		style := lipgloss.NewStyle().Foreground(lipgloss.Color("#FFBF00")) // amber

		fm := template.FuncMap{
			"param": func(name string) (any, error) {
				v, ok := args[name]
				if !ok {
					logger.Warnf("parameter %q was not provided, available: %s", name, argKeys)
					return style.Render(fmt.Sprintf("❯ param %s ❮", name)), nil
				}
				return v, nil
			},
			"from": from,
		}
		tmpl = template.New("dry-run expression evaluator").Funcs(fm)
	} else {
		fm := template.FuncMap{
			"param": func(name string) (any, error) {
				v, ok := args[name]
				if !ok {
					return "", fmt.Errorf("parameter %q does not exist in %s", name, argKeys)
				}
				return v, nil
			},
			"from": from,
		}
		tmpl = template.New("expression evaluator").Funcs(fm)
	}

	var err error
	tmpl, err = tmpl.Option("missingkey=error").Delims("${{", "}}").Parse(str)
	if err != nil {
		return "", err
	}

	var result strings.Builder

	if err := tmpl.Execute(&result, nil); err != nil {
		return "", err
	}

	return result.String(), nil
}

// TemplateArgs recursively processes an args map and templates all string values
func TemplateArgs(ctx context.Context, args schema.Args, values schema.Args, dry bool) (schema.Args, error) {
	if len(values) == 0 {
		return nil, nil
	}

	result := make(schema.Args, len(values))
	for k, v := range values {
		switch val := v.(type) {
		case string:
			templated, err := TemplateString(ctx, args, val, dry)
			if err != nil {
				return nil, err
			}
			result[k] = templated
		case map[string]any:
			nestedMap, err := TemplateArgs(ctx, args, val, dry)
			if err != nil {
				return nil, err
			}
			result[k] = nestedMap
		case []any:
			templatedSlice, err := templateSlice(ctx, args, val, dry)
			if err != nil {
				return nil, err
			}
			result[k] = templatedSlice
		default:
			result[k] = v
		}
	}
	return result, nil
}

// TemplateInputs templates the string values of a step's inputs map
func TemplateInputs(ctx context.Context, args schema.Args, inputs map[string]string, dry bool) (map[string]string, error) {
	if len(inputs) == 0 {
		return nil, nil
	}

	result := make(map[string]string, len(inputs))
	for k, v := range inputs {
		templated, err := TemplateString(ctx, args, v, dry)
		if err != nil {
			return nil, err
		}
		result[k] = templated
	}
	return result, nil
}

// templateSlice recursively processes a slice and templates all string values
func templateSlice(ctx context.Context, args schema.Args, slice []any, dry bool) ([]any, error) {
	result := make([]any, len(slice))
	for i, v := range slice {
		switch val := v.(type) {
		case string:
			templated, err := TemplateString(ctx, args, val, dry)
			if err != nil {
				return nil, err
			}
			result[i] = templated
		case map[string]any:
			nestedMap, err := TemplateArgs(ctx, args, val, dry)
			if err != nil {
				return nil, err
			}
			result[i] = nestedMap
		case []any:
			templatedSlice, err := templateSlice(ctx, args, val, dry)
			if err != nil {
				return nil, err
			}
			result[i] = templatedSlice
		default:
			result[i] = v
		}
	}
	return result, nil
}

// TemplatePipeline resolves parameter expressions across every step of a
// pipeline, returning a copy ready for submission
func TemplatePipeline(ctx context.Context, p v1.Pipeline, args schema.Args, dry bool) (v1.Pipeline, error) {
	rendered := p.Clone()

	for i, step := range rendered.Steps {
		params, err := TemplateArgs(ctx, args, step.Params, dry)
		if err != nil {
			return v1.Pipeline{}, fmt.Errorf(".steps.%s.params: %w", step.Name, err)
		}
		inputs, err := TemplateInputs(ctx, args, step.Inputs, dry)
		if err != nil {
			return v1.Pipeline{}, fmt.Errorf(".steps.%s.inputs: %w", step.Name, err)
		}
		rendered.Steps[i].Params = params
		rendered.Steps[i].Inputs = inputs
	}

	return rendered, nil
}
