// SPDX-License-Identifier: Apache-2.0
// SPDX-FileCopyrightText: 2025-Present Defense Unicorns

package v1

import (
	"fmt"
	"slices"
	"strings"

	"github.com/defenseunicorns/pipa/schema"
	v0 "github.com/defenseunicorns/pipa/schema/v0"
)

// Migrate converts a v0 pipeline to v1 format
//
// v0 steps carry a single "with" bag and declare no outputs. Migration splits
// the bag into params and inputs, reconstructs each step's outputs from the
// references other steps make to it, and declares a pipeline parameter for
// every ${{ param "name" }} usage.
func Migrate(old any) (Pipeline, error) {
	v0Pipeline, ok := old.(v0.Pipeline)
	if !ok {
		return Pipeline{}, fmt.Errorf("expected v0.Pipeline, got %T", old)
	}

	v1Pipeline := Pipeline{
		SchemaVersion: SchemaVersion,
		Name:          v0Pipeline.Name,
	}

	// referenced outputs and parameters across the whole document
	outputsByStep := make(map[string][]string)
	var paramNames []string

	for _, v0Step := range v0Pipeline.Steps {
		refs, params, err := ExtractRefs(v0Step.With)
		if err != nil {
			return Pipeline{}, fmt.Errorf(".steps.%s.with: %w", v0Step.Name, err)
		}
		for _, ref := range refs {
			if !slices.Contains(outputsByStep[ref.Step], ref.Output) {
				outputsByStep[ref.Step] = append(outputsByStep[ref.Step], ref.Output)
			}
		}
		for _, param := range params {
			if !slices.Contains(paramNames, param) {
				paramNames = append(paramNames, param)
			}
		}
	}

	if len(paramNames) > 0 {
		v1Pipeline.Parameters = make(ParamMap, len(paramNames))
		for _, name := range paramNames {
			v1Pipeline.Parameters[name] = Parameter{}
		}
	}

	v1Steps := make(Steps, len(v0Pipeline.Steps))
	for i, v0Step := range v0Pipeline.Steps {
		var params schema.Args
		var inputs map[string]string

		for name, value := range v0Step.With {
			if s, ok := value.(string); ok && isDataInput(s) {
				if inputs == nil {
					inputs = make(map[string]string)
				}
				inputs[name] = s
				continue
			}
			if params == nil {
				params = make(schema.Args)
			}
			params[name] = value
		}

		outputs := slices.Clone(outputsByStep[v0Step.Name])
		slices.Sort(outputs)

		v1Steps[i] = Step{
			Name:    v0Step.Name,
			Uses:    v0Step.Function,
			Handler: v0Step.Handler,
			Params:  params,
			Inputs:  inputs,
			Outputs: outputs,
			When:    v0Step.If,
			Image:   v0Step.Image,
			Timeout: v0Step.Timeout,
		}
	}
	v1Pipeline.Steps = v1Steps

	return v1Pipeline, nil
}

// isDataInput reports whether a v0 with value belongs in v1 inputs
//
// References to other steps' outputs are always data, as are literal
// locations with a scheme (s3://, store://, https://, ...). Everything else
// stays a param.
func isDataInput(s string) bool {
	refs, _, err := ExtractRefs(s)
	if err == nil && len(refs) > 0 {
		return true
	}

	return strings.Contains(s, "://")
}
