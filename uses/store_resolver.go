// SPDX-License-Identifier: Apache-2.0
// SPDX-FileCopyrightText: 2025-Present Defense Unicorns

package uses

import (
	"context"
	"fmt"
	"io"
	"net/url"
)

// StoreResolver is a resolver that wraps another resolver and caches the results
// in a store according to the fetch policy.
type StoreResolver struct {
	Source Resolver
	Store  Storage
	Policy FetchPolicy
}

// Resolve implements the Resolver interface
func (f *StoreResolver) Resolve(ctx context.Context, uri *url.URL) (io.ReadCloser, error) {
	switch f.Policy {
	case FetchPolicyNever:
		return f.Store.Resolve(ctx, uri)
	case FetchPolicyIfNotPresent:
		// a failed existence check counts as a miss, refetching repairs the cache
		exists, err := f.Store.Exists(uri)
		if err == nil && exists {
			return f.Store.Resolve(ctx, uri)
		}
		fallthrough
	case FetchPolicyAlways:
		rc, err := f.Source.Resolve(ctx, uri)
		if err != nil {
			return nil, err
		}
		defer rc.Close()

		if err := f.Store.Store(rc, uri); err != nil {
			return nil, err
		}

		return f.Store.Resolve(ctx, uri)
	default:
		return nil, fmt.Errorf("unsupported fetch policy: %s", f.Policy)
	}
}
