// SPDX-License-Identifier: Apache-2.0
// SPDX-FileCopyrightText: 2025-Present Defense Unicorns

// Package schema provides the shared envelope types for pipa pipeline documents
package schema

// Args is a map of string keys to values used for step params and for runtime
// arguments supplied at submission
type Args = map[string]any

// DefaultPipelineName is the pipeline submitted when no name is specified
const DefaultPipelineName = "default"
