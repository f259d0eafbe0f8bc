// SPDX-License-Identifier: Apache-2.0
// SPDX-FileCopyrightText: 2025-Present Defense Unicorns

package runtimes

import (
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"time"
)

// remote is an already-deployed endpoint invoked over HTTP
type remote struct {
	URL        string            `json:"url"                   jsonschema:"description=Endpoint URL to invoke"`
	Method     string            `json:"method,omitempty"      jsonschema:"description=HTTP method to use"`
	Subpath    string            `json:"subpath,omitempty"     jsonschema:"description=Path appended to the endpoint URL"`
	Headers    map[string]string `json:"headers,omitempty"     jsonschema:"description=HTTP headers to send"`
	ReturnJSON *bool             `json:"return-json,omitempty" jsonschema:"description=Decode the response body as JSON, defaults to true"`
	Timeout    string            `json:"timeout,omitempty"     jsonschema:"description=Timeout for the request"`
}

// Kind implements Runtime
func (r *remote) Kind() string { return "remote" }

// Validate implements Runtime
func (r *remote) Validate() error {
	if r.URL == "" {
		return fmt.Errorf("url is required")
	}
	u, err := url.Parse(r.URL)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("url scheme %q is not one of [http, https]", u.Scheme)
	}

	if r.Method != "" {
		methods := []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete}
		if !slices.Contains(methods, r.Method) {
			return fmt.Errorf("method %q is not one of %v", r.Method, methods)
		}
	}

	if r.Timeout != "" {
		if _, err := time.ParseDuration(r.Timeout); err != nil {
			return fmt.Errorf("invalid timeout: %w", err)
		}
	}

	return nil
}
