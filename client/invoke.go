// SPDX-License-Identifier: Apache-2.0
// SPDX-FileCopyrightText: 2025-Present Defense Unicorns

package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/defenseunicorns/pipa/tracing"
)

// Event headers attached to every endpoint invocation
const (
	HeaderEventID   = "X-Pipa-Event-Id"
	HeaderEventPath = "X-Pipa-Event-Path"
)

// InvokeOptions control a single call to a deployed endpoint
type InvokeOptions struct {
	// Method defaults to GET without a body and POST with one
	Method string
	// Subpath is appended to the endpoint URL
	Subpath string
	// Headers are set on the request verbatim
	Headers map[string]string
	// Body is the raw request payload
	Body []byte
	// EventID is sent as X-Pipa-Event-Id, generated when empty
	EventID string
	// Retries is the number of additional attempts on retryable failures
	Retries int
	// Backoff is the pause between attempts
	Backoff time.Duration
}

// InvokeResult is the response from a deployed endpoint
type InvokeResult struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// JSON reports whether the response body is a JSON document
func (r *InvokeResult) JSON() bool {
	mt, _, err := mime.ParseMediaType(r.ContentType)
	if err != nil {
		return false
	}
	return mt == "application/json" || strings.HasSuffix(mt, "+json")
}

// Invoke calls a deployed endpoint over HTTP
//
// The endpoint is the externally reachable URL of a deployed function,
// not the API server. Connection failures and 5xx responses are retried
// up to opts.Retries times, 4xx responses are not.
func (c *Client) Invoke(ctx context.Context, endpoint string, opts InvokeOptions) (*InvokeResult, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid endpoint: scheme must be http(s), got %q", endpoint)
	}
	if opts.Subpath != "" {
		u.Path = strings.TrimSuffix(u.Path, "/") + "/" + strings.TrimPrefix(opts.Subpath, "/")
	}

	method := opts.Method
	if method == "" {
		method = http.MethodGet
		if len(opts.Body) > 0 {
			method = http.MethodPost
		}
	}

	eventID := opts.EventID
	if eventID == "" {
		eventID = newEventID()
	}

	var span *tracing.Span
	if c.trace {
		ctx, span = tracing.StartSpan(ctx, method+" "+u.String(), "CLIENT")
		span.WithAttributes(map[string]string{"event.id": eventID})
	}

	var result *InvokeResult
	err = RetryUntilSuccessful(ctx, opts.Backoff, opts.Retries, func() error {
		var innerErr error
		result, innerErr = c.invokeOnce(ctx, method, u, eventID, opts)
		return innerErr
	})
	if span != nil {
		if result != nil {
			span.SetStatusFromHTTPCode(result.StatusCode)
		}
		tracing.EndSpan(span, err)
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Client) invokeOnce(ctx context.Context, method string, u *url.URL, eventID string, opts InvokeOptions) (*InvokeResult, error) {
	var reader io.Reader
	if len(opts.Body) > 0 {
		reader = bytes.NewReader(opts.Body)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return nil, &FatalError{Err: err}
	}
	req.Header.Set("User-Agent", "pipa")
	req.Header.Set(HeaderEventID, eventID)
	req.Header.Set(HeaderEventPath, "/"+strings.TrimPrefix(opts.Subpath, "/"))
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	for k, v := range opts.Headers {
		req.Header.Set(k, v)
	}

	logger := log.FromContext(ctx)
	logger.Debug("invoking", "method", method, "url", u.String(), "event", eventID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	result := &InvokeResult{
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}

	if resp.StatusCode >= 500 {
		return result, fmt.Errorf("endpoint returned %s", resp.Status)
	}
	if resp.StatusCode >= 400 {
		return result, &FatalError{Err: fmt.Errorf("endpoint returned %s", resp.Status)}
	}

	return result, nil
}

// newEventID generates an identifier for a single invocation
func newEventID() string {
	return uuid.NewString()
}
