// SPDX-License-Identifier: Apache-2.0
// SPDX-FileCopyrightText: 2025-Present Defense Unicorns

package client

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/log"
)

const defaultRetryBackoff = time.Second

// FatalError wraps an error that must not be retried
type FatalError struct {
	Err error
}

// Error implements the error interface
func (e *FatalError) Error() string {
	return e.Err.Error()
}

// Unwrap returns the wrapped error
func (e *FatalError) Unwrap() error {
	return e.Err
}

var _ error = &FatalError{}

// RetryUntilSuccessful calls fn until it succeeds, returns a FatalError,
// or the attempts run out
//
// retries is the number of attempts after the first, so a zero value
// calls fn exactly once. A zero backoff pauses one second between
// attempts. The wrapped error is returned when fn gives up with a
// FatalError.
func RetryUntilSuccessful(ctx context.Context, backoff time.Duration, retries int, fn func() error) error {
	if backoff <= 0 {
		backoff = defaultRetryBackoff
	}

	logger := log.FromContext(ctx)

	var err error
	for attempt := 0; attempt <= retries; attempt++ {
		err = fn()
		if err == nil {
			return nil
		}

		var fatal *FatalError
		if errors.As(err, &fatal) {
			return fatal.Err
		}

		if attempt == retries {
			break
		}

		logger.Debug("retrying", "attempt", attempt+1, "of", retries, "err", err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
	return err
}
