// SPDX-License-Identifier: Apache-2.0
// SPDX-FileCopyrightText: 2025-Present Defense Unicorns

package uses

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// HTTPResolver resolves a function definition from a remote HTTP server
type HTTPResolver struct {
	client *http.Client
}

// NewHTTPResolver returns a new HTTPResolver
func NewHTTPResolver(client *http.Client) *HTTPResolver {
	return &HTTPResolver{client: client}
}

// Resolve performs a GET request against the provided URL and returns the response body
func (f *HTTPResolver) Resolve(ctx context.Context, uri *url.URL) (io.ReadCloser, error) {
	if uri == nil {
		return nil, fmt.Errorf("uri is nil")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "pipa")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("failed to fetch %s: %s", uri, resp.Status)
	}
	return resp.Body, nil
}
