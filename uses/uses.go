// SPDX-License-Identifier: Apache-2.0
// SPDX-FileCopyrightText: 2025-Present Defense Unicorns

// Package uses provides clients for resolving remote function definitions.
package uses

import (
	"context"
	"io"
	"net/url"
)

// DefaultFileName is the default file name to use when a path resolves to "."
const DefaultFileName = "function.yaml"

// DefaultVersion is the default version to use when a version is not specified
const DefaultVersion = "main"

// QualifierTokenFromEnv is the qualifier for the token to use when resolving a package
const QualifierTokenFromEnv = "token-from-env"

// QualifierBaseURL is the qualifier for the base URL to use when resolving a package
const QualifierBaseURL = "base"

// Resolver resolves a function definition from a location.
type Resolver interface {
	Resolve(context.Context, *url.URL) (io.ReadCloser, error)
}

// Storage is a resolver that can also persist and verify function definitions.
type Storage interface {
	Resolver
	Store(io.Reader, *url.URL) error
	Exists(*url.URL) (bool, error)
}
