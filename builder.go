// SPDX-License-Identifier: Apache-2.0
// SPDX-FileCopyrightText: 2025-Present Defense Unicorns

package pipa

import (
	"fmt"
	"slices"

	v1 "github.com/defenseunicorns/pipa/schema/v1"
)

// Builder assembles a pipeline step by step
//
// Steps are added in dependency order: a step may only reference outputs of
// steps added before it. Build returns an immutable, validated pipeline.
// The zero Builder is not usable, construct with New.
type Builder struct {
	pipeline     v1.Pipeline
	defaultImage string
}

// Option configures a Builder
type Option func(*Builder)

// WithDescription sets the pipeline description
func WithDescription(description string) Option {
	return func(b *Builder) {
		b.pipeline.Description = description
	}
}

// WithParameters declares the parameters the pipeline accepts at submission
func WithParameters(params v1.ParamMap) Option {
	return func(b *Builder) {
		b.pipeline.Parameters = params
	}
}

// WithDefaultImage sets the image applied to steps that do not set their own
func WithDefaultImage(image string) Option {
	return func(b *Builder) {
		b.defaultImage = image
	}
}

// New creates a pipeline builder
func New(name string, opts ...Option) *Builder {
	b := &Builder{
		pipeline: v1.Pipeline{
			SchemaVersion: v1.SchemaVersion,
			Name:          name,
		},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// AddStep registers a step
//
// Fails with *v1.DuplicateStepError when the name is already registered and
// with *v1.UnknownReferenceError when an input references a step or output
// that has not been added yet, forward references are not allowed. On
// failure the builder is unchanged.
func (b *Builder) AddStep(step v1.Step) error {
	if ok := v1.StepNamePattern.MatchString(step.Name); !ok {
		return fmt.Errorf("step name %q does not satisfy %q", step.Name, v1.StepNamePattern.String())
	}

	if _, ok := b.pipeline.Steps.Find(step.Name); ok {
		return &v1.DuplicateStepError{Name: step.Name}
	}

	if step.Uses == "" {
		return fmt.Errorf(".steps.%s.uses is required", step.Name)
	}

	refs, params, err := v1.ExtractRefs(step.Params)
	if err != nil {
		return fmt.Errorf(".steps.%s.params: %w", step.Name, err)
	}
	if len(refs) > 0 {
		return fmt.Errorf(".steps.%s.params may not reference step outputs, move %s to inputs", step.Name, refs[0])
	}
	if err := b.checkParams(step.Name, params); err != nil {
		return err
	}

	refs, params, err = v1.ExtractRefs(step.Inputs)
	if err != nil {
		return fmt.Errorf(".steps.%s.inputs: %w", step.Name, err)
	}
	if err := b.checkParams(step.Name, params); err != nil {
		return err
	}

	for _, ref := range refs {
		producer, ok := b.pipeline.Steps.Find(ref.Step)
		if !ok {
			return &v1.UnknownReferenceError{Step: step.Name, Ref: ref}
		}
		if !slices.Contains(producer.Outputs, ref.Output) {
			return &v1.UnknownReferenceError{Step: step.Name, Ref: ref}
		}
	}

	step = step.Clone()
	if step.Image == "" {
		step.Image = b.defaultImage
	}

	b.pipeline.Steps = append(b.pipeline.Steps, step)
	return nil
}

func (b *Builder) checkParams(stepName string, params []string) error {
	for _, param := range params {
		if _, ok := b.pipeline.Parameters[param]; !ok {
			return fmt.Errorf(".steps.%s references undeclared parameter %q", stepName, param)
		}
	}
	return nil
}

// Build validates the assembled pipeline and returns it
//
// The returned pipeline is a deep copy, further builder mutations do not
// affect it. Build may be called more than once.
func (b *Builder) Build() (v1.Pipeline, error) {
	p := b.pipeline.Clone()

	if err := v1.Validate(p); err != nil {
		return v1.Pipeline{}, err
	}

	return p, nil
}
