// SPDX-License-Identifier: Apache-2.0
// SPDX-FileCopyrightText: 2025-Present Defense Unicorns

package uses

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/package-url/packageurl-go"

	"github.com/defenseunicorns/pipa/config"
	v1 "github.com/defenseunicorns/pipa/schema/v1"
)

// ResolveRelative resolves a function reference relative to a previous location.
//
// It handles different schemes (file, http, https, pkg, oci, hub, store),
// resolves relative paths, applies package URL aliases, and fills in default
// versions and file names.
//
// A nil previous location treats schemeless references as local files, any
// other location requires the reference to carry a scheme.
func ResolveRelative(previous *url.URL, ref string, aliases map[string]config.Alias) (*url.URL, error) {
	// hub refs allow a :tag after the item name, which url.Parse rejects as a port
	if strings.HasPrefix(ref, "hub:") {
		name, tag, err := v1.ParseHubRef(ref)
		if err != nil {
			return nil, err
		}
		if tag == "" {
			tag = DefaultVersion
		}
		return &url.URL{Scheme: "hub", Opaque: name + ":" + tag}, nil
	}

	uri, err := url.Parse(ref)
	if err != nil {
		return nil, err
	}

	if uri.Scheme == "" {
		if previous == nil {
			return url.Parse("file:" + ref)
		}
		return nil, fmt.Errorf("unsupported scheme: %q in %q", uri.Scheme, ref)
	}

	switch uri.Scheme {
	case "http", "https", "oci", "store":
		return uri, nil
	case "pkg":
		pURL, err := packageurl.FromString(ref)
		if err != nil {
			return nil, err
		}

		// inside an OCI artifact every reference was vendored at publish
		// time under its original name, so the ref stays a layer title
		if previous != nil && previous.Scheme == "oci" {
			next := *previous
			next.Fragment = filepath.Join(filepath.Dir(previous.Fragment), ref)
			return &next, nil
		}

		if resolved, isAlias := MapBasedResolver(aliases).ResolveAlias(pURL); isAlias {
			pURL = resolved
		}

		if pURL.Version == "" {
			pURL.Version = DefaultVersion
		}
		if pURL.Subpath == "" {
			pURL.Subpath = DefaultFileName
		}

		return url.Parse(pURL.String())
	case "file":
		if uri.Opaque == "" {
			// rooted path, nothing to resolve against
			return uri, nil
		}

		if previous == nil || previous.Scheme == "file" {
			if previous != nil {
				dir := filepath.Dir(previous.Opaque)
				if dir != "." {
					next := &url.URL{
						Scheme:   "file",
						Opaque:   filepath.Join(dir, uri.Opaque),
						RawQuery: uri.RawQuery,
					}
					if next.Opaque == "." {
						next.Opaque = DefaultFileName
					}
					return next, nil
				}
			}
			return uri, nil
		}

		switch previous.Scheme {
		case "http", "https":
			next := *previous // https://github.com/golang/go/issues/38351
			next.Path = filepath.Join(filepath.Dir(previous.Path), uri.Opaque)
			if next.Path == "." || next.Path == "/" {
				next.Path = "/" + DefaultFileName
			}
			next.RawQuery = uri.RawQuery
			return &next, nil
		case "pkg":
			pURL, err := packageurl.FromString(previous.String())
			if err != nil {
				return nil, err
			}

			if resolved, isAlias := MapBasedResolver(aliases).ResolveAlias(pURL); isAlias {
				pURL = resolved
			}

			qualifiers := pURL.Qualifiers.Map()
			for k, v := range uri.Query() {
				if len(v) > 0 && qualifiers[k] == "" {
					qualifiers[k] = v[0]
				}
			}
			pURL.Qualifiers = packageurl.QualifiersFromMap(qualifiers)

			pURL.Subpath = filepath.Join(filepath.Dir(pURL.Subpath), uri.Opaque)
			if pURL.Subpath == "." {
				pURL.Subpath = DefaultFileName
			}
			if pURL.Version == "" {
				pURL.Version = DefaultVersion
			}
			return url.Parse(pURL.String())
		case "oci":
			// vendored at publish time under its cwd-relative path, the
			// "file:" prefix is part of the layer title
			next := *previous
			prev := strings.TrimPrefix(previous.Fragment, "file:")
			next.Fragment = "file:" + filepath.Join(filepath.Dir(prev), uri.Opaque)
			return &next, nil
		default:
			return nil, fmt.Errorf("unsupported scheme: %q in %q", previous.Scheme, previous.String())
		}
	default:
		return nil, fmt.Errorf("unsupported scheme: %q in %q", uri.Scheme, ref)
	}
}
