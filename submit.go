// SPDX-License-Identifier: Apache-2.0
// SPDX-FileCopyrightText: 2025-Present Defense Unicorns

package pipa

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/defenseunicorns/pipa/client"
	"github.com/defenseunicorns/pipa/schema"
	v1 "github.com/defenseunicorns/pipa/schema/v1"
)

// SubmitOptions control how a pipeline is submitted for execution
type SubmitOptions struct {
	// Project scopes the run, defaulting to the client's default project
	Project string
	// RunName names the run, generated from the pipeline name when empty
	RunName string
	// ArtifactPath is the storage location for step outputs, with
	// {{project}} expanded before submission
	ArtifactPath string
	// Watch blocks until the run reaches a terminal state
	Watch bool
	// Interval is the watch polling interval
	Interval time.Duration
	// DryRun renders the pipeline and prints it instead of submitting
	DryRun bool
}

// Submit validates a pipeline, merges runtime arguments against its
// declared parameters, and submits it to the API server
//
// Step dependencies are derived from input references and sent with the
// run so the server schedules steps against them. With opts.Watch the
// call blocks until the run finishes and returns the final record, with
// opts.DryRun nothing is submitted and the returned run is nil.
func Submit(ctx context.Context, c *client.Client, p v1.Pipeline, args schema.Args, opts SubmitOptions) (*client.Run, error) {
	if err := v1.Validate(p); err != nil {
		return nil, err
	}

	merged, err := MergeArgsAndParams(ctx, args, p.Parameters)
	if err != nil {
		return nil, err
	}

	if opts.DryRun {
		rendered, err := TemplatePipeline(ctx, p, merged, true)
		if err != nil {
			return nil, err
		}
		printDocument(log.FromContext(ctx), rendered)
		return nil, nil
	}

	g, err := v1.NewGraph(p)
	if err != nil {
		return nil, err
	}

	project := opts.Project
	if project == "" {
		project = client.DefaultProject
	}

	artifactPath, err := client.FillArtifactPath(opts.ArtifactPath, project)
	if err != nil {
		return nil, err
	}

	run, err := c.Submit(ctx, client.RunSpec{
		Pipeline:     p,
		Arguments:    merged,
		ArtifactPath: artifactPath,
		Project:      project,
		RunName:      opts.RunName,
		Dependencies: g.Deps(),
	})
	if err != nil {
		return nil, err
	}

	if !opts.Watch {
		return run, nil
	}

	return c.Watch(ctx, run.Project, run.ID, opts.Interval)
}
