// SPDX-License-Identifier: Apache-2.0
// SPDX-FileCopyrightText: 2025-Present Defense Unicorns

package runtimes

import (
	"fmt"
	"regexp"
)

var envVariablePattern = regexp.MustCompile("^[a-zA-Z_]+[a-zA-Z0-9_]*$")

// job is a batch workload run to completion by the orchestrator
type job struct {
	Image   string            `json:"image,omitempty"   jsonschema:"description=Container image the job runs in"`
	Command string            `json:"command,omitempty" jsonschema:"description=Command executed in the container"`
	Args    []string          `json:"args,omitempty"    jsonschema:"description=Arguments appended to the command"`
	Env     map[string]string `json:"env,omitempty"     jsonschema:"description=Environment variables for the job"`
}

// Kind implements Runtime
func (j *job) Kind() string { return "job" }

// Validate implements Runtime
func (j *job) Validate() error {
	for name := range j.Env {
		if ok := envVariablePattern.MatchString(name); !ok {
			return fmt.Errorf("env %q does not satisfy %q", name, envVariablePattern.String())
		}
	}
	if j.Command == "" && len(j.Args) > 0 {
		return fmt.Errorf("args require a command")
	}
	return nil
}
