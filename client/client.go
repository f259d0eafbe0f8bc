// SPDX-License-Identifier: Apache-2.0
// SPDX-FileCopyrightText: 2025-Present Defense Unicorns

// Package client submits and manages pipeline runs against a pipa API server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/defenseunicorns/pipa/tracing"
)

// DefaultAddress is the API server address used when none is configured
const DefaultAddress = "http://localhost:8080"

// EnvAddress is the environment variable overriding the API server address
const EnvAddress = "PIPA_ADDRESS"

// EnvToken is the environment variable holding the API token
const EnvToken = "PIPA_TOKEN"

const apiPrefix = "/api/v1"

// Client talks to a pipa API server
type Client struct {
	address    string
	httpClient *http.Client
	token      string
	trace      bool
}

// Option is a function that configures a Client
type Option func(*Client)

// WithAddress sets the API server address
func WithAddress(address string) Option {
	return func(c *Client) {
		if address != "" {
			c.address = address
		}
	}
}

// WithHTTPClient sets the HTTP client used for all requests
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithToken sets the bearer token sent on all requests
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

// WithTracing enables OpenTelemetry spans around every request
func WithTracing(enabled bool) Option {
	return func(c *Client) {
		c.trace = enabled
	}
}

// New creates a Client
//
// Configuration precedence is default < environment < options.
func New(opts ...Option) (*Client, error) {
	c := &Client{
		address: DefaultAddress,
		token:   os.Getenv(EnvToken),
	}

	if address := os.Getenv(EnvAddress); address != "" {
		c.address = address
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	u, err := url.Parse(c.address)
	if err != nil {
		return nil, fmt.Errorf("invalid address: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid address: scheme must be http(s), got %q", c.address)
	}
	c.address = strings.TrimSuffix(c.address, "/")

	return c, nil
}

// APIError is a non-2xx response from the API server
type APIError struct {
	StatusCode int
	Message    string
}

// Error implements the error interface
func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api error: %s", http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("api error: %s: %s", http.StatusText(e.StatusCode), e.Message)
}

// do performs a JSON request against the API server
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var span *tracing.Span
	if c.trace {
		ctx, span = tracing.StartSpan(ctx, method+" "+path, "CLIENT")
	}

	err := c.roundTrip(ctx, method, path, body, out, span)
	if span != nil {
		tracing.EndSpan(span, err)
	}
	return err
}

func (c *Client) roundTrip(ctx context.Context, method, path string, body, out any, span *tracing.Span) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.address+apiPrefix+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", "pipa")
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	span.SetStatusFromHTTPCode(resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}

		var payload struct {
			Error string `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&payload); err == nil {
			apiErr.Message = payload.Error
		}
		return apiErr
	}

	if out == nil {
		return nil
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
