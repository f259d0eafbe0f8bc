// SPDX-License-Identifier: Apache-2.0
// SPDX-FileCopyrightText: 2025-Present Defense Unicorns

package pipa

import "errors"

// TraceError is an error with a logical stack trace
//
// Frames record the chain of locations a pipeline or function definition was
// resolved through before the failure surfaced.
type TraceError struct {
	err   error    // The original error
	Trace []string // Logical stack trace
}

var _ error = &TraceError{}

// Error returns the original error message
func (e *TraceError) Error() string {
	return e.err.Error()
}

// Unwrap returns the underlying error
func (e *TraceError) Unwrap() error {
	return e.err
}

// addTrace adds a new frame and returns a new TraceError
func addTrace(err error, frame string) error {
	var tErr *TraceError
	if errors.As(err, &tErr) {
		tErr.Trace = append([]string{frame}, tErr.Trace...)
		return tErr
	}

	return &TraceError{
		err:   err,
		Trace: []string{frame},
	}
}
