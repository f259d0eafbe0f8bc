// SPDX-License-Identifier: Apache-2.0
// SPDX-FileCopyrightText: 2025-Present Defense Unicorns

package pipa

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/go-viper/mapstructure/v2"

	"github.com/defenseunicorns/pipa/runtimes"
	"github.com/defenseunicorns/pipa/schema"
	v1 "github.com/defenseunicorns/pipa/schema/v1"
)

// DecodeBuiltin determines which runtime a step targets based upon the uses string,
// renders the params, then converts them to the runtime's typed spec
func DecodeBuiltin(ctx context.Context, step v1.Step, args schema.Args, dry bool) (runtimes.Runtime, error) {
	name := strings.TrimPrefix(step.Uses, "builtin:")
	logger := log.FromContext(ctx)

	runtime := runtimes.Get(name)
	if runtime == nil {
		return nil, fmt.Errorf("%s not found", step.Uses)
	}

	var rendered schema.Args
	if step.Params != nil {
		var err error
		rendered, err = TemplateArgs(ctx, args, step.Params, dry)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", step.Uses, err)
		}
	}

	if dry {
		logger.Info("dry run", "runtime", name)
		printRuntime(logger, rendered)
		return runtime, nil
	}

	if rendered != nil {
		config := &mapstructure.DecoderConfig{
			WeaklyTypedInput: true,
			Result:           &runtime,
		}
		decoder, err := mapstructure.NewDecoder(config)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", step.Uses, err)
		}
		if err := decoder.Decode(rendered); err != nil {
			return nil, fmt.Errorf("%s: %w", step.Uses, err)
		}
	}

	if err := runtime.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", step.Uses, err)
	}

	logger.Debug(">", "runtime", name, "params", runtime)

	return runtime, nil
}
