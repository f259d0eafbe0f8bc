// SPDX-License-Identifier: Apache-2.0
// SPDX-FileCopyrightText: 2025-Present Defense Unicorns

package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/defenseunicorns/pipa/schema"
	v1 "github.com/defenseunicorns/pipa/schema/v1"
)

// DefaultProject is the project runs are submitted to when none is set
const DefaultProject = "default"

// MaxRunNameLength caps generated and user supplied run names
//
// Run names end up as resource labels on the server, which limits them
// to 63 characters.
const MaxRunNameLength = 63

const defaultWatchInterval = 3 * time.Second

// State is the lifecycle state of a run
type State string

// All possible run states
const (
	StatePending   State = "pending"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateError     State = "error"
	StateAborted   State = "aborted"
)

// Terminal reports whether a run in this state is finished
func (s State) Terminal() bool {
	switch s {
	case StateCompleted, StateError, StateAborted:
		return true
	}
	return false
}

// RunSpec is a request to execute a pipeline
type RunSpec struct {
	// Pipeline is the full definition to execute
	Pipeline v1.Pipeline `json:"pipeline"`
	// Arguments are merged against the pipeline's declared parameters
	Arguments schema.Args `json:"arguments,omitempty"`
	// ArtifactPath is the storage location step outputs are written under
	ArtifactPath string `json:"artifact-path,omitempty"`
	// Project scopes the run
	Project string `json:"project,omitempty"`
	// RunName identifies the run, generated when empty
	RunName string `json:"run-name,omitempty"`
	// Dependencies maps each step to the steps it consumes outputs from
	Dependencies map[string][]string `json:"dependencies,omitempty"`
}

// Validate checks a RunSpec before submission
func (s RunSpec) Validate() error {
	if err := v1.Validate(s.Pipeline); err != nil {
		return err
	}
	if s.Project != "" && !v1.RunNamePattern.MatchString(s.Project) {
		return fmt.Errorf("project %q does not satisfy %q", s.Project, v1.RunNamePattern.String())
	}
	if s.RunName != "" {
		if len(s.RunName) > MaxRunNameLength {
			return fmt.Errorf("run name %q is longer than %d characters", s.RunName, MaxRunNameLength)
		}
		if !v1.RunNamePattern.MatchString(s.RunName) {
			return fmt.Errorf("run name %q does not satisfy %q", s.RunName, v1.RunNamePattern.String())
		}
	}
	return nil
}

// Run is the server side record of a pipeline execution
type Run struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Project      string    `json:"project"`
	State        State     `json:"state"`
	ArtifactPath string    `json:"artifact-path,omitempty"`
	Error        string    `json:"error,omitempty"`
	StartedAt    time.Time `json:"started-at,omitempty"`
	FinishedAt   time.Time `json:"finished-at,omitempty"`
	// Outputs maps step names to their produced output locations
	Outputs map[string]map[string]string `json:"outputs,omitempty"`
}

// Submit sends a RunSpec to the API server and returns the created run
func (c *Client) Submit(ctx context.Context, spec RunSpec) (*Run, error) {
	if spec.Project == "" {
		spec.Project = DefaultProject
	}
	if spec.RunName == "" {
		spec.RunName = generateRunName(spec.Pipeline.Name)
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	logger := log.FromContext(ctx)
	logger.Debug("submitting run", "project", spec.Project, "name", spec.RunName)

	var run Run
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/projects/%s/runs", url.PathEscape(spec.Project)), spec, &run); err != nil {
		return nil, err
	}

	logger.Info("submitted", "run", run.ID, "state", run.State)

	return &run, nil
}

// Status fetches the current state of a run
func (c *Client) Status(ctx context.Context, project, id string) (*Run, error) {
	if project == "" {
		project = DefaultProject
	}
	if id == "" {
		return nil, fmt.Errorf("run id cannot be empty")
	}

	var run Run
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/projects/%s/runs/%s", url.PathEscape(project), url.PathEscape(id)), nil, &run); err != nil {
		return nil, err
	}
	return &run, nil
}

// Abort requests cancellation of a run
func (c *Client) Abort(ctx context.Context, project, id string) error {
	if project == "" {
		project = DefaultProject
	}
	if id == "" {
		return fmt.Errorf("run id cannot be empty")
	}

	return c.do(ctx, http.MethodPost, fmt.Sprintf("/projects/%s/runs/%s/abort", url.PathEscape(project), url.PathEscape(id)), nil, nil)
}

// Watch polls a run until it reaches a terminal state
//
// A zero interval polls every three seconds. Watch returns the final
// run record, or the context's error if it is canceled first.
func (c *Client) Watch(ctx context.Context, project, id string, interval time.Duration) (*Run, error) {
	if interval <= 0 {
		interval = defaultWatchInterval
	}

	logger := log.FromContext(ctx)

	var last State
	for {
		run, err := c.Status(ctx, project, id)
		if err != nil {
			return nil, err
		}

		if run.State != last {
			logger.Info("run state", "run", run.ID, "state", run.State)
			last = run.State
		}

		if run.State.Terminal() {
			return run, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(interval):
		}
	}
}

// generateRunName derives a unique run name from a pipeline name
func generateRunName(pipeline string) string {
	if pipeline == "" {
		pipeline = schema.DefaultPipelineName
	}
	suffix := "-" + uuid.NewString()[:8]
	if len(pipeline)+len(suffix) > MaxRunNameLength {
		pipeline = pipeline[:MaxRunNameLength-len(suffix)]
	}
	return pipeline + suffix
}
