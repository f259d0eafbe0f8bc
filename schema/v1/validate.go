// SPDX-License-Identifier: Apache-2.0
// SPDX-FileCopyrightText: 2025-Present Defense Unicorns

package v1

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"regexp"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/xeipuuv/gojsonschema"

	"github.com/defenseunicorns/pipa/schema"
)

// Read reads a pipeline from a file
func Read(r io.Reader) (Pipeline, error) {
	if rs, ok := r.(io.Seeker); ok {
		_, err := rs.Seek(0, io.SeekStart)
		if err != nil {
			return Pipeline{}, err
		}
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return Pipeline{}, err
	}

	var versioned schema.Versioned
	if err := yaml.Unmarshal(data, &versioned); err != nil {
		return Pipeline{}, err
	}

	switch version := versioned.SchemaVersion; version {
	case SchemaVersion:
		var p Pipeline
		return p, yaml.Unmarshal(data, &p)
	default:
		return Pipeline{}, fmt.Errorf("unsupported schema version: expected %q, got %q", SchemaVersion, version)
	}
}

var schemaOnce = sync.OnceValues(func() (string, error) {
	s := PipelineSchema()
	b, err := json.Marshal(s)
	return string(b), err
})

// Validate validates a pipeline
//
// Structural checks run first with path-style errors, then the induced graph
// is checked for unknown references and cycles, then the document is checked
// against the JSON schema.
func Validate(p Pipeline) error {
	if ok := RunNamePattern.MatchString(p.Name); !ok {
		return fmt.Errorf("pipeline name %q does not satisfy %q", p.Name, RunNamePattern.String())
	}

	if len(p.Steps) == 0 {
		return errors.New("no steps available")
	}

	declared := make([]string, 0, len(p.Parameters))
	for name, param := range p.Parameters {
		if ok := ParamNamePattern.MatchString(name); !ok {
			return fmt.Errorf(".parameters.%s %q does not satisfy %q", name, name, ParamNamePattern.String())
		}
		if param.Validate != "" {
			_, err := regexp.Compile(param.Validate)
			if err != nil {
				return fmt.Errorf(".parameters.%s: %v", name, err)
			}
		}
		declared = append(declared, name)
	}
	slices.Sort(declared)

	names := make(map[string]int, len(p.Steps))

	for idx, step := range p.Steps {
		if ok := StepNamePattern.MatchString(step.Name); !ok {
			return fmt.Errorf(".steps[%d].name %q does not satisfy %q", idx, step.Name, StepNamePattern.String())
		}

		if _, ok := names[step.Name]; ok {
			return &DuplicateStepError{Name: step.Name}
		}
		names[step.Name] = idx

		if step.Uses == "" {
			return fmt.Errorf(".steps.%s.uses is required", step.Name)
		}

		// hub refs allow a :tag after the item name, which url.Parse rejects as a port
		if strings.HasPrefix(step.Uses, "hub:") {
			if _, _, err := ParseHubRef(step.Uses); err != nil {
				return fmt.Errorf(".steps.%s.uses: %w", step.Name, err)
			}
		} else {
			u, err := url.Parse(step.Uses)
			if err != nil {
				return fmt.Errorf(".steps.%s.uses %w", step.Name, err)
			}

			if u.Scheme != "" {
				schemes := append(SupportedSchemes(), "builtin")

				if !slices.Contains(schemes, u.Scheme) {
					return fmt.Errorf(".steps.%s.uses %q is not one of [%s]", step.Name, u.Scheme, strings.Join(schemes, ", "))
				}
			} else {
				if _, err := ParseFunctionRef(step.Uses); err != nil {
					return fmt.Errorf(".steps.%s.uses: %w", step.Name, err)
				}
			}
		}

		if step.Handler != "" {
			if ok := StepNamePattern.MatchString(step.Handler); !ok {
				return fmt.Errorf(".steps.%s.handler %q does not satisfy %q", step.Name, step.Handler, StepNamePattern.String())
			}
		}

		outputs := make(map[string]bool, len(step.Outputs))
		for _, output := range step.Outputs {
			if ok := OutputNamePattern.MatchString(output); !ok {
				return fmt.Errorf(".steps.%s.outputs %q does not satisfy %q", step.Name, output, OutputNamePattern.String())
			}
			if outputs[output] {
				return fmt.Errorf(".steps.%s.outputs declares %q more than once", step.Name, output)
			}
			outputs[output] = true
		}

		if step.Timeout != "" {
			_, err := time.ParseDuration(step.Timeout)
			if err != nil {
				return fmt.Errorf(".steps.%s.timeout %q is not a valid time duration", step.Name, step.Timeout)
			}
		}

		if err := When(step.When).Compile(); err != nil {
			return fmt.Errorf(".steps.%s.when: %w", step.Name, err)
		}

		refs, params, err := ExtractRefs(step.Params)
		if err != nil {
			return fmt.Errorf(".steps.%s.params: %w", step.Name, err)
		}
		if len(refs) > 0 {
			return fmt.Errorf(".steps.%s.params may not reference step outputs, move %s to inputs", step.Name, refs[0])
		}
		for _, param := range params {
			if _, ok := p.Parameters[param]; !ok {
				return fmt.Errorf(".steps.%s.params references undeclared parameter %q, available: %s", step.Name, param, declared)
			}
		}

		_, params, err = ExtractRefs(step.Inputs)
		if err != nil {
			return fmt.Errorf(".steps.%s.inputs: %w", step.Name, err)
		}
		for _, param := range params {
			if _, ok := p.Parameters[param]; !ok {
				return fmt.Errorf(".steps.%s.inputs references undeclared parameter %q, available: %s", step.Name, param, declared)
			}
		}
	}

	g, err := NewGraph(p)
	if err != nil {
		return err
	}
	if issues := g.Cycles(); len(issues) > 0 {
		return errors.Join(issues...)
	}

	docSchema, err := schemaOnce()
	if err != nil {
		return err
	}

	schemaLoader := gojsonschema.NewStringLoader(docSchema)

	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewGoLoader(p))
	if err != nil {
		return err
	}

	if result.Valid() {
		return nil
	}

	var resErr error
	for _, err := range result.Errors() {
		resErr = errors.Join(resErr, errors.New(err.String()))
	}

	return resErr
}

// ReadAndValidate reads and validates a pipeline
func ReadAndValidate(r io.Reader) (Pipeline, error) {
	p, err := Read(r)
	if err != nil {
		return Pipeline{}, err
	}
	return p, Validate(p)
}
