// SPDX-License-Identifier: Apache-2.0
// SPDX-FileCopyrightText: 2025-Present Defense Unicorns

package v1

import "regexp"

// StepNamePattern is a regular expression for valid step and function names
var StepNamePattern = regexp.MustCompile("^[_a-zA-Z][a-zA-Z0-9_-]*$")

// ParamNamePattern is a regular expression for valid parameter names
var ParamNamePattern = StepNamePattern

// OutputNamePattern is a regular expression for valid step output names
var OutputNamePattern = StepNamePattern

// EnvVariablePattern is a regular expression for valid environment variable names
var EnvVariablePattern = regexp.MustCompile("^[a-zA-Z_]+[a-zA-Z0-9_]*$")

// TagPattern is a regular expression for valid function version tags
var TagPattern = regexp.MustCompile(`^[a-zA-Z0-9_][a-zA-Z0-9_.-]*$`)

// UIDPattern is a regular expression for valid function version uids
var UIDPattern = regexp.MustCompile("^[a-zA-Z0-9]+$")

// RunNamePattern is a regular expression for valid pipeline and run names
//
// The orchestrator uses these as resource labels: at most 63 characters,
// alphanumeric first and last characters, [a-zA-Z0-9_.-] in between
var RunNamePattern = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9_.-]{0,61}[a-zA-Z0-9])?$`)
