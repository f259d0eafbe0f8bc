// SPDX-License-Identifier: Apache-2.0
// SPDX-FileCopyrightText: 2025-Present Defense Unicorns

package v1

import (
	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/defenseunicorns/pipa/schema"
)

// When controls whether the orchestrator runs a step
//
// Conditions are expr expressions evaluating to a boolean, with access to
// submission-time params, upstream outputs via from, and the helper
// functions failure() and always()
type When string

// String implements fmt.Stringer
func (w When) String() string {
	return string(w)
}

func (w When) compile(hasFailed bool, alwaysTriggered *bool) (*vm.Program, error) {
	failure := expr.Function(
		"failure",
		func(_ ...any) (any, error) {
			return hasFailed, nil
		},
		new(func() bool),
	)

	always := expr.Function(
		"always",
		func(_ ...any) (any, error) {
			if alwaysTriggered != nil {
				*alwaysTriggered = true
			}
			return true, nil
		},
		new(func() bool),
	)

	return expr.Compile(w.String(), expr.AsBool(), failure, always)
}

// Compile checks that the condition is a well-formed boolean expression
func (w When) Compile() error {
	if w == "" {
		return nil
	}
	_, err := w.compile(false, nil)
	return err
}

// Evaluate runs the condition against submission-time params and any
// already-known upstream outputs
//
// The orchestrator is the authority at run time, this exists so dry runs can
// report which steps a given set of arguments would skip
func (w When) Evaluate(params schema.Args, from map[string]map[string]string, hasFailed bool) (bool, error) {
	if w == "" {
		return !hasFailed, nil
	}

	var alwaysTriggered bool
	program, err := w.compile(hasFailed, &alwaysTriggered)
	if err != nil {
		return false, err
	}

	env := map[string]any{
		"params": params,
		"from":   from,
	}

	out, err := expr.Run(program, env)
	if err != nil {
		return false, err
	}

	if alwaysTriggered { // always short circuits any other logic
		return true, nil
	}

	return out.(bool), nil // this is safe due to expr.AsBool()
}
