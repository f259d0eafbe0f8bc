// SPDX-License-Identifier: Apache-2.0
// SPDX-FileCopyrightText: 2025-Present Defense Unicorns

package project

import (
	"fmt"
	"strings"

	"oras.land/oras-go/v2/registry"
)

// ParseRegistry splits a registry setting into its host and repository
//
// "ghcr.io/acme" becomes ("ghcr.io", "acme"), a bare host has an empty
// repository.
func ParseRegistry(s string) (string, string) {
	host, repository, ok := strings.Cut(s, "/")
	if !ok {
		return s, ""
	}
	return host, repository
}

// EnrichImage expands a relative image reference against a registry
//
// Images beginning with "." are relative to the project registry, so
// ".trainer" with registry "ghcr.io/acme" becomes "ghcr.io/acme/trainer".
// Absolute images pass through untouched.
func EnrichImage(image, reg string) (string, error) {
	if !strings.HasPrefix(image, ".") {
		return image, nil
	}
	if reg == "" {
		return "", fmt.Errorf("image %q requires a registry", image)
	}

	enriched := strings.TrimSuffix(reg, "/") + "/" + strings.TrimPrefix(image, ".")
	if _, err := registry.ParseReference(enriched); err != nil {
		return "", fmt.Errorf("invalid image %q: %w", enriched, err)
	}
	return enriched, nil
}

// ResolveImage resolves a function's image against the project
//
// The function's own image wins, falling back to the project default,
// with relative references expanded against the project registry.
func (p *Project) ResolveImage(name string) (string, error) {
	fn, ok := p.Functions[name]
	if !ok {
		return "", fmt.Errorf("function %q not found in project %q", name, p.Name)
	}

	image := fn.Image
	if image == "" {
		image = p.DefaultImage
	}
	if image == "" {
		return "", fmt.Errorf("function %q has no image and project %q has no default", name, p.Name)
	}

	return EnrichImage(image, p.Registry)
}
