// SPDX-License-Identifier: Apache-2.0
// SPDX-FileCopyrightText: 2025-Present Defense Unicorns

package uses

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockResolver implements the Resolver interface for testing
type mockResolver struct {
	resolveFunc  func(ctx context.Context, uri *url.URL) (io.ReadCloser, error)
	resolveCalls int
}

func (m *mockResolver) Resolve(ctx context.Context, uri *url.URL) (io.ReadCloser, error) {
	m.resolveCalls++
	if m.resolveFunc == nil {
		return nil, fmt.Errorf("resolveFunc not implemented")
	}
	return m.resolveFunc(ctx, uri)
}

// mockStorage implements the Storage interface for testing
type mockStorage struct {
	resolveFunc  func(ctx context.Context, uri *url.URL) (io.ReadCloser, error)
	existsFunc   func(uri *url.URL) (bool, error)
	storeFunc    func(r io.Reader, uri *url.URL) error
	resolveCalls int
	existsCalls  int
	storeCalls   int
}

func (m *mockStorage) Resolve(ctx context.Context, uri *url.URL) (io.ReadCloser, error) {
	m.resolveCalls++
	if m.resolveFunc == nil {
		return nil, fmt.Errorf("resolveFunc not implemented")
	}
	return m.resolveFunc(ctx, uri)
}

func (m *mockStorage) Exists(uri *url.URL) (bool, error) {
	m.existsCalls++
	if m.existsFunc == nil {
		return false, fmt.Errorf("existsFunc not implemented")
	}
	return m.existsFunc(uri)
}

func (m *mockStorage) Store(r io.Reader, uri *url.URL) error {
	m.storeCalls++
	if m.storeFunc == nil {
		return fmt.Errorf("storeFunc not implemented")
	}
	return m.storeFunc(r, uri)
}

func TestStoreResolver(t *testing.T) {
	testCases := []struct {
		name            string
		policy          FetchPolicy
		setup           func(source *mockResolver, store *mockStorage)
		uri             string
		expected        string
		expectedErr     string
		verifyCallCount func(t *testing.T, source *mockResolver, store *mockStorage)
	}{
		{
			name:   "FetchPolicyNever: always resolve from store",
			policy: FetchPolicyNever,
			setup: func(_ *mockResolver, store *mockStorage) {
				store.resolveFunc = func(_ context.Context, _ *url.URL) (io.ReadCloser, error) {
					return io.NopCloser(strings.NewReader("from store")), nil
				}
			},
			uri:      "https://example.com/trainer",
			expected: "from store",
			verifyCallCount: func(t *testing.T, source *mockResolver, store *mockStorage) {
				assert.Equal(t, 0, source.resolveCalls)
				assert.Equal(t, 1, store.resolveCalls)
				assert.Equal(t, 0, store.existsCalls)
				assert.Equal(t, 0, store.storeCalls)
			},
		},
		{
			name:   "FetchPolicyNever: store resolve error",
			policy: FetchPolicyNever,
			setup: func(_ *mockResolver, store *mockStorage) {
				store.resolveFunc = func(_ context.Context, _ *url.URL) (io.ReadCloser, error) {
					return nil, errors.New("store resolve error")
				}
			},
			uri:         "https://example.com/trainer",
			expectedErr: "store resolve error",
			verifyCallCount: func(t *testing.T, source *mockResolver, store *mockStorage) {
				assert.Equal(t, 0, source.resolveCalls)
				assert.Equal(t, 1, store.resolveCalls)
				assert.Equal(t, 0, store.existsCalls)
				assert.Equal(t, 0, store.storeCalls)
			},
		},
		{
			name:   "FetchPolicyIfNotPresent: exists in store",
			policy: FetchPolicyIfNotPresent,
			setup: func(source *mockResolver, store *mockStorage) {
				source.resolveFunc = func(_ context.Context, _ *url.URL) (io.ReadCloser, error) {
					return io.NopCloser(strings.NewReader("from source")), nil
				}
				store.existsFunc = func(_ *url.URL) (bool, error) {
					return true, nil
				}
				store.resolveFunc = func(_ context.Context, _ *url.URL) (io.ReadCloser, error) {
					return io.NopCloser(strings.NewReader("from store")), nil
				}
			},
			uri:      "https://example.com/trainer",
			expected: "from store",
			verifyCallCount: func(t *testing.T, source *mockResolver, store *mockStorage) {
				assert.Equal(t, 0, source.resolveCalls)
				assert.Equal(t, 1, store.resolveCalls)
				assert.Equal(t, 1, store.existsCalls)
				assert.Equal(t, 0, store.storeCalls)
			},
		},
		{
			name:   "FetchPolicyIfNotPresent: store exists check error",
			policy: FetchPolicyIfNotPresent,
			setup: func(source *mockResolver, store *mockStorage) {
				source.resolveFunc = func(_ context.Context, _ *url.URL) (io.ReadCloser, error) {
					return io.NopCloser(strings.NewReader("from source")), nil
				}
				store.existsFunc = func(_ *url.URL) (bool, error) {
					return false, errors.New("exists error")
				}
				store.storeFunc = func(_ io.Reader, _ *url.URL) error {
					return nil
				}
				store.resolveFunc = func(_ context.Context, _ *url.URL) (io.ReadCloser, error) {
					return io.NopCloser(strings.NewReader("from store after fetch")), nil
				}
			},
			uri:      "https://example.com/trainer",
			expected: "from store after fetch",
			verifyCallCount: func(t *testing.T, source *mockResolver, store *mockStorage) {
				assert.Equal(t, 1, source.resolveCalls)
				assert.Equal(t, 1, store.resolveCalls)
				assert.Equal(t, 1, store.existsCalls)
				assert.Equal(t, 1, store.storeCalls)
			},
		},
		{
			name:   "FetchPolicyIfNotPresent: exists but resolve from store fails",
			policy: FetchPolicyIfNotPresent,
			setup: func(source *mockResolver, store *mockStorage) {
				source.resolveFunc = func(_ context.Context, _ *url.URL) (io.ReadCloser, error) {
					return io.NopCloser(strings.NewReader("from source")), nil
				}
				store.existsFunc = func(_ *url.URL) (bool, error) {
					return true, nil
				}
				store.resolveFunc = func(_ context.Context, _ *url.URL) (io.ReadCloser, error) {
					return nil, errors.New("store resolve error")
				}
				store.storeFunc = func(_ io.Reader, _ *url.URL) error {
					return nil
				}
			},
			uri:         "https://example.com/trainer",
			expectedErr: "store resolve error",
			verifyCallCount: func(t *testing.T, source *mockResolver, store *mockStorage) {
				assert.Equal(t, 0, source.resolveCalls)
				assert.Equal(t, 1, store.resolveCalls)
				assert.Equal(t, 1, store.existsCalls)
				assert.Equal(t, 0, store.storeCalls)
			},
		},
		{
			name:   "FetchPolicyIfNotPresent: not in store",
			policy: FetchPolicyIfNotPresent,
			setup: func(source *mockResolver, store *mockStorage) {
				source.resolveFunc = func(_ context.Context, _ *url.URL) (io.ReadCloser, error) {
					return io.NopCloser(strings.NewReader("from source")), nil
				}
				store.existsFunc = func(_ *url.URL) (bool, error) {
					return false, nil
				}
				store.storeFunc = func(_ io.Reader, _ *url.URL) error {
					return nil
				}
				store.resolveFunc = func(_ context.Context, _ *url.URL) (io.ReadCloser, error) {
					return io.NopCloser(strings.NewReader("from store after fetch")), nil
				}
			},
			uri:      "https://example.com/trainer",
			expected: "from store after fetch",
			verifyCallCount: func(t *testing.T, source *mockResolver, store *mockStorage) {
				assert.Equal(t, 1, source.resolveCalls)
				assert.Equal(t, 1, store.resolveCalls)
				assert.Equal(t, 1, store.existsCalls)
				assert.Equal(t, 1, store.storeCalls)
			},
		},
		{
			name:   "FetchPolicyAlways: always resolve from source and update store",
			policy: FetchPolicyAlways,
			setup: func(source *mockResolver, store *mockStorage) {
				source.resolveFunc = func(_ context.Context, _ *url.URL) (io.ReadCloser, error) {
					return io.NopCloser(strings.NewReader("from source")), nil
				}
				store.storeFunc = func(_ io.Reader, _ *url.URL) error {
					return nil
				}
				store.resolveFunc = func(_ context.Context, _ *url.URL) (io.ReadCloser, error) {
					return io.NopCloser(strings.NewReader("from store after fetch")), nil
				}
			},
			uri:      "https://example.com/trainer",
			expected: "from store after fetch",
			verifyCallCount: func(t *testing.T, source *mockResolver, store *mockStorage) {
				assert.Equal(t, 1, source.resolveCalls)
				assert.Equal(t, 1, store.resolveCalls)
				assert.Equal(t, 0, store.existsCalls)
				assert.Equal(t, 1, store.storeCalls)
			},
		},
		{
			name:   "FetchPolicyAlways: source resolve error",
			policy: FetchPolicyAlways,
			setup: func(source *mockResolver, _ *mockStorage) {
				source.resolveFunc = func(_ context.Context, _ *url.URL) (io.ReadCloser, error) {
					return nil, errors.New("source resolve error")
				}
			},
			uri:         "https://example.com/trainer",
			expectedErr: "source resolve error",
			verifyCallCount: func(t *testing.T, source *mockResolver, store *mockStorage) {
				assert.Equal(t, 1, source.resolveCalls)
				assert.Equal(t, 0, store.resolveCalls)
				assert.Equal(t, 0, store.existsCalls)
				assert.Equal(t, 0, store.storeCalls)
			},
		},
		{
			name:   "FetchPolicyAlways: store error",
			policy: FetchPolicyAlways,
			setup: func(source *mockResolver, store *mockStorage) {
				source.resolveFunc = func(_ context.Context, _ *url.URL) (io.ReadCloser, error) {
					return io.NopCloser(strings.NewReader("from source")), nil
				}
				store.storeFunc = func(_ io.Reader, _ *url.URL) error {
					return errors.New("store error")
				}
			},
			uri:         "https://example.com/trainer",
			expectedErr: "store error",
			verifyCallCount: func(t *testing.T, source *mockResolver, store *mockStorage) {
				assert.Equal(t, 1, source.resolveCalls)
				assert.Equal(t, 0, store.resolveCalls)
				assert.Equal(t, 0, store.existsCalls)
				assert.Equal(t, 1, store.storeCalls)
			},
		},
		{
			name:   "FetchPolicyAlways: store resolve error after store",
			policy: FetchPolicyAlways,
			setup: func(source *mockResolver, store *mockStorage) {
				source.resolveFunc = func(_ context.Context, _ *url.URL) (io.ReadCloser, error) {
					return io.NopCloser(strings.NewReader("from source")), nil
				}
				store.storeFunc = func(_ io.Reader, _ *url.URL) error {
					return nil
				}
				store.resolveFunc = func(_ context.Context, _ *url.URL) (io.ReadCloser, error) {
					return nil, errors.New("store resolve error")
				}
			},
			uri:         "https://example.com/trainer",
			expectedErr: "store resolve error",
			verifyCallCount: func(t *testing.T, source *mockResolver, store *mockStorage) {
				assert.Equal(t, 1, source.resolveCalls)
				assert.Equal(t, 1, store.resolveCalls)
				assert.Equal(t, 0, store.existsCalls)
				assert.Equal(t, 1, store.storeCalls)
			},
		},
		{
			name:        "unsupported fetch policy",
			policy:      "invalid",
			uri:         "https://example.com/trainer",
			expectedErr: "unsupported fetch policy: invalid",
			verifyCallCount: func(t *testing.T, source *mockResolver, store *mockStorage) {
				assert.Equal(t, 0, source.resolveCalls)
				assert.Equal(t, 0, store.resolveCalls)
				assert.Equal(t, 0, store.existsCalls)
				assert.Equal(t, 0, store.storeCalls)
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			source := &mockResolver{}
			store := &mockStorage{}

			if tc.setup != nil {
				tc.setup(source, store)
			}

			resolver := &StoreResolver{
				Source: source,
				Store:  store,
				Policy: tc.policy,
			}

			uri, err := url.Parse(tc.uri)
			require.NoError(t, err)

			rc, err := resolver.Resolve(t.Context(), uri)

			if tc.expectedErr != "" {
				require.EqualError(t, err, tc.expectedErr)
				assert.Nil(t, rc)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, rc)

			content, err := io.ReadAll(rc)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, string(content))

			if tc.verifyCallCount != nil {
				tc.verifyCallCount(t, source, store)
			}
		})
	}
}
