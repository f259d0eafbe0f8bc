// SPDX-License-Identifier: Apache-2.0
// SPDX-FileCopyrightText: 2025-Present Defense Unicorns

package pipa

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"slices"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/afero"

	"github.com/defenseunicorns/pipa/config"
	"github.com/defenseunicorns/pipa/project"
	v1 "github.com/defenseunicorns/pipa/schema/v1"
	"github.com/defenseunicorns/pipa/uses"
)

func openRef(ctx context.Context, svc *uses.ResolverService, uri *url.URL) (io.ReadCloser, error) {
	logger := log.FromContext(ctx)

	resolver, err := svc.GetResolver(uri)
	if err != nil {
		return nil, err
	}

	resolverType := fmt.Sprintf("%T", resolver)
	if sr, ok := resolver.(*uses.StoreResolver); ok {
		resolverType = fmt.Sprintf("%T|%T", sr.Store, sr.Source)
	}

	logger.Debug("fetching", "url", uri, "resolver", resolverType)

	return resolver.Resolve(ctx, uri)
}

// Fetch fetches a pipeline from a given URL.
//
// Older schema versions are migrated on the way in.
func Fetch(ctx context.Context, svc *uses.ResolverService, uri *url.URL) (v1.Pipeline, error) {
	rc, err := openRef(ctx, svc, uri)
	if err != nil {
		return v1.Pipeline{}, addTrace(err, uri.String())
	}
	defer rc.Close()

	p, err := ReadAndValidate(rc)
	if err != nil {
		return v1.Pipeline{}, addTrace(err, uri.String())
	}

	return p, nil
}

// FetchFunction fetches a function definition from a given URL.
func FetchFunction(ctx context.Context, svc *uses.ResolverService, uri *url.URL) (uses.FunctionDoc, error) {
	rc, err := openRef(ctx, svc, uri)
	if err != nil {
		return uses.FunctionDoc{}, addTrace(err, uri.String())
	}
	defer rc.Close()

	doc, err := uses.ReadAndValidateDoc(rc)
	if err != nil {
		return uses.FunctionDoc{}, addTrace(err, uri.String())
	}

	return doc, nil
}

// remoteRefs collects the distinct fetchable function references in a pipeline
//
// builtin: runtimes and scheme-less registry references resolve elsewhere.
func remoteRefs(p v1.Pipeline) []string {
	refs := []string{}

	for _, step := range p.Steps {
		if strings.HasPrefix(step.Uses, "builtin:") {
			continue
		}

		if !strings.HasPrefix(step.Uses, "hub:") {
			uri, err := url.Parse(step.Uses)
			if err != nil || uri.Scheme == "" {
				continue
			}
		}

		if slices.Contains(refs, step.Uses) {
			continue
		}

		refs = append(refs, step.Uses)
	}

	return refs
}

// RegisteredRefs collects the distinct registry references in a pipeline
func RegisteredRefs(p v1.Pipeline) []string {
	refs := []string{}
	for _, step := range p.Steps {
		if !v1.IsRegistered(step.Uses) {
			continue
		}
		if slices.Contains(refs, step.Uses) {
			continue
		}
		refs = append(refs, step.Uses)
	}
	return refs
}

// ResolveRegistered resolves registry references against a project definition
//
// Steps keep their reference in the returned document, the registry is the
// orchestrator's authority and tags or uids pin versions there. Resolution
// validates that every referenced function is registered and fills the step
// handler and image from inline function entries. A pipeline without registry
// references needs no project.
func ResolveRegistered(p v1.Pipeline, proj *project.Project) (v1.Pipeline, error) {
	out := p.Clone()
	for i, step := range out.Steps {
		if !v1.IsRegistered(step.Uses) {
			continue
		}
		if proj == nil {
			return v1.Pipeline{}, fmt.Errorf(".steps.%s.uses %q: no project definition found", step.Name, step.Uses)
		}

		name, fn, err := proj.ResolveFunction(step.Uses)
		if err != nil {
			return v1.Pipeline{}, fmt.Errorf(".steps.%s.uses: %w", step.Name, err)
		}

		if step.Handler == "" {
			out.Steps[i].Handler = fn.Handler
		}
		if step.Image == "" && fn.Uses == "" {
			image, err := proj.ResolveImage(name)
			if err != nil {
				return v1.Pipeline{}, fmt.Errorf(".steps.%s: %w", step.Name, err)
			}
			out.Steps[i].Image = image
		}
	}
	return out, nil
}

// FetchAll fetches every remote function definition a pipeline references.
func FetchAll(ctx context.Context, svc *uses.ResolverService, p v1.Pipeline, src *url.URL, aliases map[string]config.Alias) error {
	for _, ref := range remoteRefs(p) {
		resolved, err := uses.ResolveRelative(src, ref, aliases)
		if err != nil {
			return fmt.Errorf("failed to resolve %q: %w", ref, err)
		}
		if _, err := FetchFunction(ctx, svc, resolved); err != nil {
			return err
		}
	}

	return nil
}

// ListAllLocal discovers the local files a pipeline depends upon
//
// The returned slice starts with the pipeline itself, followed by every
// file: function definition it references. Non-file sources are skipped.
func ListAllLocal(ctx context.Context, src *url.URL, fs afero.Fs) ([]string, error) {
	if src.Scheme != "file" {
		return nil, nil
	}

	rc, err := uses.NewLocalResolver(fs).Resolve(ctx, src)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	p, err := ReadAndValidate(rc)
	if err != nil {
		return nil, err
	}

	clone := *src
	clone.RawQuery = ""
	fullRefs := []string{clone.String()}

	for _, ref := range remoteRefs(p) {
		uri, err := url.Parse(ref)
		if err != nil || uri.Scheme != "file" {
			continue
		}

		resolved, err := uses.ResolveRelative(src, ref, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve %q: %w", ref, err)
		}

		// strip query params
		resolved.RawQuery = ""

		rc, err := uses.NewLocalResolver(fs).Resolve(ctx, resolved)
		if err != nil {
			return nil, err
		}
		defer rc.Close()

		if _, err := uses.ReadAndValidateDoc(rc); err != nil {
			return nil, addTrace(err, resolved.String())
		}

		// now we know its a valid function definition, we can save the location
		fullRefs = append(fullRefs, resolved.String())
	}

	return slices.Compact(fullRefs), nil
}
