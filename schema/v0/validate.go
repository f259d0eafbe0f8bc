// SPDX-License-Identifier: Apache-2.0
// SPDX-FileCopyrightText: 2025-Present Defense Unicorns

package v0

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/xeipuuv/gojsonschema"

	"github.com/defenseunicorns/pipa/schema"
)

// Read reads a legacy pipeline from a file
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

// supportedSchemes are the function reference schemes the v0 era understood
func supportedSchemes() []string {
	return []string{"file", "http", "https", "pkg", "oci"}
}

// Validate validates a legacy pipeline
func Validate(p Pipeline) error {
	if ok := RunNamePattern.MatchString(p.Name); !ok {
		return fmt.Errorf("pipeline name %q does not satisfy %q", p.Name, RunNamePattern.String())
	}

	if len(p.Steps) == 0 {
		return errors.New("no steps available")
	}

	names := make(map[string]int, len(p.Steps))

	for idx, step := range p.Steps {
		if ok := StepNamePattern.MatchString(step.Name); !ok {
			return fmt.Errorf(".steps[%d].name %q does not satisfy %q", idx, step.Name, StepNamePattern.String())
		}

		if _, ok := names[step.Name]; ok {
			return fmt.Errorf(".steps[%d] and .steps[%d] have the same name %q", names[step.Name], idx, step.Name)
		}
		names[step.Name] = idx

		if step.Function == "" {
			return fmt.Errorf(".steps.%s.function is required", step.Name)
		}

		u, err := url.Parse(step.Function)
		if err != nil {
			return fmt.Errorf(".steps.%s.function %w", step.Name, err)
		}

		if u.Scheme != "" {
			schemes := append(supportedSchemes(), "builtin")

			if !slices.Contains(schemes, u.Scheme) {
				return fmt.Errorf(".steps.%s.function %q is not one of [%s]", step.Name, u.Scheme, strings.Join(schemes, ", "))
			}
		}

		for key := range step.With {
			if ok := StepNamePattern.MatchString(key); !ok {
				return fmt.Errorf(".steps.%s.with %q does not satisfy %q", step.Name, key, StepNamePattern.String())
			}
		}

		if step.Timeout != "" {
			_, err := time.ParseDuration(step.Timeout)
			if err != nil {
				return fmt.Errorf(".steps.%s.timeout %q is not a valid time duration", step.Name, step.Timeout)
			}
		}
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

// ReadAndValidate reads and validates a legacy pipeline
func ReadAndValidate(r io.Reader) (Pipeline, error) {
	p, err := Read(r)
	if err != nil {
		return Pipeline{}, err
	}
	return p, Validate(p)
}
