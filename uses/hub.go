// SPDX-License-Identifier: Apache-2.0
// SPDX-FileCopyrightText: 2025-Present Defense Unicorns

package uses

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	v1 "github.com/defenseunicorns/pipa/schema/v1"
)

// DefaultHubURL is the default template for expanding hub references
//
// {name} and {tag} are replaced by the hub item name and tag
const DefaultHubURL = "https://raw.githubusercontent.com/defenseunicorns/pipa-hub/main/functions/{name}/{tag}/" + DefaultFileName

// HubResolver resolves hub:// marketplace references by expanding them
// against a URL template and fetching the result over HTTP
type HubResolver struct {
	hubURL string
	http   *HTTPResolver
}

// NewHubResolver returns a new HubResolver, an empty hubURL selects DefaultHubURL
func NewHubResolver(client *http.Client, hubURL string) *HubResolver {
	if hubURL == "" {
		hubURL = DefaultHubURL
	}
	return &HubResolver{hubURL: hubURL, http: NewHTTPResolver(client)}
}

// ExpandHubRef converts a hub reference into a fetchable location
//
// Dashes in the item name map to underscores on disk, mirroring how hub
// directories are laid out. Templates without placeholders get
// /{name}/{tag}/function.yaml appended.
func ExpandHubRef(ref, hubURL string) (*url.URL, error) {
	name, tag, err := v1.ParseHubRef(ref)
	if err != nil {
		return nil, err
	}

	name = strings.ReplaceAll(name, "-", "_")
	if tag == "" {
		tag = DefaultVersion
	}

	if hubURL == "" {
		hubURL = DefaultHubURL
	}

	if !strings.Contains(hubURL, "{name}") && !strings.Contains(hubURL, "{tag}") {
		hubURL = strings.TrimSuffix(hubURL, "/") + "/{name}/{tag}/" + DefaultFileName
	}

	expanded := strings.ReplaceAll(hubURL, "{name}", name)
	expanded = strings.ReplaceAll(expanded, "{tag}", tag)

	uri, err := url.Parse(expanded)
	if err != nil {
		return nil, err
	}
	if uri.Scheme != "http" && uri.Scheme != "https" {
		return nil, fmt.Errorf("hub url must expand to http(s), got %q", expanded)
	}

	return uri, nil
}

// Resolve expands the hub reference and fetches the function definition
func (f *HubResolver) Resolve(ctx context.Context, uri *url.URL) (io.ReadCloser, error) {
	if uri == nil {
		return nil, fmt.Errorf("uri is nil")
	}

	expanded, err := ExpandHubRef(uri.String(), f.hubURL)
	if err != nil {
		return nil, err
	}

	return f.http.Resolve(ctx, expanded)
}
