// SPDX-License-Identifier: Apache-2.0
// SPDX-FileCopyrightText: 2025-Present Defense Unicorns

package uses

import (
	"fmt"
	"net/http"
	"net/url"
	"sync"

	"github.com/package-url/packageurl-go"
	"github.com/spf13/afero"
)

// ResolverService creates and manages resolvers
type ResolverService struct {
	client        *http.Client
	fsys          afero.Fs
	resolverCache map[string]Resolver
	storage       Storage
	policy        FetchPolicy
	hubURL        string
	mu            sync.RWMutex
}

// ResolverServiceOption is a function that configures a ResolverService
type ResolverServiceOption func(*ResolverService)

// WithFS sets the filesystem to be used by the resolver service
func WithFS(fs afero.Fs) ResolverServiceOption {
	return func(s *ResolverService) {
		s.fsys = fs
	}
}

// WithClient sets the HTTP client to be used by the resolver service
func WithClient(client *http.Client) ResolverServiceOption {
	return func(s *ResolverService) {
		s.client = client
	}
}

// WithStorage sets the store to be used by the resolver service
func WithStorage(store Storage) ResolverServiceOption {
	return func(s *ResolverService) {
		s.storage = store
	}
}

// WithFetchPolicy sets the fetch policy to be used by the resolver service
func WithFetchPolicy(policy FetchPolicy) ResolverServiceOption {
	return func(s *ResolverService) {
		s.policy = policy
	}
}

// WithHubURL sets the template used when expanding hub references
func WithHubURL(hubURL string) ResolverServiceOption {
	return func(s *ResolverService) {
		if hubURL != "" {
			s.hubURL = hubURL
		}
	}
}

// NewResolverService creates a new ResolverService with custom storage and filesystem
func NewResolverService(opts ...ResolverServiceOption) (*ResolverService, error) {
	svc := &ResolverService{
		resolverCache: make(map[string]Resolver),
		policy:        DefaultFetchPolicy,
		hubURL:        DefaultHubURL,
	}

	for _, opt := range opts {
		opt(svc)
	}

	if svc.fsys == nil {
		svc.fsys = afero.NewOsFs()
	}

	if svc.client == nil {
		svc.client = &http.Client{}
	}

	if svc.policy == FetchPolicyNever && svc.storage == nil {
		return nil, fmt.Errorf("store is not initialized")
	}

	// check the policy is valid
	if err := svc.policy.Set(svc.policy.String()); err != nil {
		return nil, err
	}

	return svc, nil
}

// GetResolver returns a resolver for the given URL
func (s *ResolverService) GetResolver(uri *url.URL) (Resolver, error) {
	if uri == nil {
		return nil, fmt.Errorf("uri cannot be nil")
	}

	if s.policy == FetchPolicyNever {
		return s.storage, nil
	}

	s.mu.RLock()
	resolver, exists := s.resolverCache[uri.String()]
	s.mu.RUnlock()
	if exists && resolver != nil {
		return resolver, nil
	}

	resolver, err := s.createResolver(uri)
	if err != nil {
		return nil, err
	}

	if s.storage != nil && uri.Scheme != "file" && uri.Scheme != "store" {
		resolver = &StoreResolver{
			Source: resolver,
			Store:  s.storage,
			Policy: s.policy,
		}
	}

	s.mu.Lock()
	s.resolverCache[uri.String()] = resolver
	s.mu.Unlock()

	return resolver, nil
}

// createResolver creates a new resolver for the given URI
func (s *ResolverService) createResolver(uri *url.URL) (Resolver, error) {
	var resolver Resolver

	switch uri.Scheme {
	case "http", "https":
		resolver = NewHTTPResolver(s.client)
	case "hub":
		resolver = NewHubResolver(s.client, s.hubURL)
	case "pkg":
		pURL, err := packageurl.FromString(uri.String())
		if err != nil {
			return nil, err
		}

		qualifiers := pURL.Qualifiers.Map()
		tokenEnv := qualifiers[QualifierTokenFromEnv]
		base := qualifiers[QualifierBaseURL]

		switch pURL.Type {
		case packageurl.TypeGithub:
			resolver, err = NewGitHubClient(s.client, base, tokenEnv)
		case packageurl.TypeGitlab:
			resolver, err = NewGitLabClient(s.client, base, tokenEnv)
		default:
			return nil, fmt.Errorf("unsupported package type: %q", pURL.Type)
		}

		if err != nil {
			return nil, err
		}

	case "file":
		resolver = NewLocalResolver(s.fsys)
	case "store":
		if s.storage == nil {
			return nil, fmt.Errorf("store is not initialized")
		}
		resolver = s.storage
	case "oci":
		var err error
		insecureSkipTLSVerify := uri.Query().Get(OCIQueryParamInsecureSkipTLSVerify) == "true"
		plainHTTP := uri.Query().Get(OCIQueryParamPlainHTTP) == "true"
		resolver, err = NewOCIClient(s.client, insecureSkipTLSVerify, plainHTTP)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported scheme: %q", uri.Scheme)
	}

	return resolver, nil
}
