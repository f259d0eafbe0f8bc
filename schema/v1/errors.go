// SPDX-License-Identifier: Apache-2.0
// SPDX-FileCopyrightText: 2025-Present Defense Unicorns

package v1

import "fmt"

// DuplicateStepError is returned when a step name is registered more than once
// within the same pipeline
type DuplicateStepError struct {
	Name string
}

func (e *DuplicateStepError) Error() string {
	return fmt.Sprintf("duplicate step name %q", e.Name)
}

// UnknownReferenceError is returned when a step's inputs reference a step or
// output that does not exist at the point of use
type UnknownReferenceError struct {
	// Step is the step whose inputs contain the reference
	Step string
	// Ref is the reference as written
	Ref Reference
}

func (e *UnknownReferenceError) Error() string {
	return fmt.Sprintf(".steps.%s references %s which does not exist", e.Step, e.Ref)
}
