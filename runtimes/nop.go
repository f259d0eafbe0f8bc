// SPDX-License-Identifier: Apache-2.0
// SPDX-FileCopyrightText: 2025-Present Defense Unicorns

package runtimes

// nop is a step that does nothing, useful for wiring graph structure in tests
// and for pipelines under construction
type nop struct {
	Message string `json:"message,omitempty" jsonschema:"description=Message recorded when the step runs"`
}

// Kind implements Runtime
func (n *nop) Kind() string { return "nop" }

// Validate implements Runtime
func (n *nop) Validate() error { return nil }
