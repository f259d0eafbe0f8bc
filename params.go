// SPDX-License-Identifier: Apache-2.0
// SPDX-FileCopyrightText: 2025-Present Defense Unicorns

package pipa

import (
	"context"
	"fmt"
	"io"
	"maps"
	"os"
	"regexp"

	"github.com/charmbracelet/log"
	"github.com/goccy/go-yaml"
	"github.com/spf13/cast"

	"github.com/defenseunicorns/pipa/schema"
	v1 "github.com/defenseunicorns/pipa/schema/v1"
)

// MergeArgsAndParams merges submission arguments into a pipeline's declared
// parameters, handling defaults, logging warnings on deprecations, etc...
func MergeArgsAndParams(ctx context.Context, args schema.Args, params v1.ParamMap) (schema.Args, error) {
	logger := log.FromContext(ctx)
	merged := maps.Clone(args)

	for name, param := range params {
		// the default behavior is that a parameter is required, this is reflected in the json schema "default" value field
		required := param.Required == nil || (param.Required != nil && *param.Required)

		// provided > default from env > default > dne
		if _, ok := merged[name]; !ok {
			if required && merged[name] == nil && param.Default == nil && param.DefaultFromEnv == "" {
				return nil, fmt.Errorf("missing required parameter: %q", name)
			}
			if merged == nil {
				merged = make(schema.Args)
			}
			if merged[name] == nil && param.DefaultFromEnv != "" {
				if val, ok := os.LookupEnv(param.DefaultFromEnv); ok {
					merged[name] = val
				}
			}
			if merged[name] == nil && param.Default != nil {
				merged[name] = param.Default
			}
		}
		// If the parameter is deprecated AND provided, log a warning
		if param.DeprecatedMessage != "" && args[name] != nil {
			logger.Warnf("parameter %q is deprecated: %s", name, param.DeprecatedMessage)
		}

		// If the parameter is provided, and the default is set, ensure the types match, cast otherwise
		if param.Default != nil && args[name] != nil {
			switch param.Default.(type) {
			case bool:
				casted, err := cast.ToE[bool](args[name])
				if err != nil {
					return nil, err
				}
				merged[name] = casted
			case string:
				casted, err := cast.ToE[string](args[name])
				if err != nil {
					return nil, err
				}
				merged[name] = casted
			case int:
				casted, err := cast.ToE[int](args[name])
				if err != nil {
					return nil, err
				}
				merged[name] = casted
			case float64:
				casted, err := cast.ToE[float64](args[name])
				if err != nil {
					return nil, err
				}
				merged[name] = casted
			case uint64:
				casted, err := cast.ToE[uint64](args[name])
				if err != nil {
					return nil, err
				}
				merged[name] = casted
			default:
				return nil, fmt.Errorf("unable to cast parameter %q from %T to %T", name, args[name], param.Default)
			}
		}

		if param.Validate != "" {
			stringified, err := cast.ToE[string](merged[name])
			if err != nil {
				return nil, err
			}

			expr, err := regexp.Compile(param.Validate)
			if err != nil {
				return nil, err
			}

			ok := expr.MatchString(stringified)
			if !ok {
				return nil, fmt.Errorf("failed to validate: parameter=%s, value=%s, regexp=%s", name, merged[name], param.Validate)
			}
		}
	}

	return merged, nil
}

// ParseArgsFile reads submission arguments from a YAML document
//
// The document must be a flat map of scalar values.
func ParseArgsFile(r io.Reader) (schema.Args, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var args schema.Args
	if err := yaml.Unmarshal(data, &args); err != nil {
		return nil, err
	}

	for name, value := range args {
		switch value.(type) {
		case string, bool, int, int64, uint64, float64, nil:
		default:
			return nil, fmt.Errorf("argument %q must be a scalar, got %T", name, value)
		}
	}

	return args, nil
}
