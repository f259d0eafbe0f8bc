// SPDX-License-Identifier: Apache-2.0
// SPDX-FileCopyrightText: 2025-Present Defense Unicorns

package pipa

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/goccy/go-yaml"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/defenseunicorns/pipa/project"
	"github.com/defenseunicorns/pipa/schema"
	v1 "github.com/defenseunicorns/pipa/schema/v1"
	"github.com/defenseunicorns/pipa/uses"
)

func TestFetch(t *testing.T) {
	nightly := v1.Pipeline{
		SchemaVersion: v1.SchemaVersion,
		Name:          "nightly",
		Parameters:    v1.ParamMap{"subject": {Default: "haiku"}},
		Steps: v1.Steps{
			{
				Name:    "gen",
				Uses:    "file:functions/text-gen.yaml",
				Params:  schema.Args{"prompt": `write a ${{ param "subject" }}`},
				Outputs: []string{"text"},
			},
			{
				Name:   "publish",
				Uses:   "builtin:nop",
				Inputs: map[string]string{"text": `${{ from "gen" "text" }}`},
			},
		},
	}

	data, err := yaml.Marshal(nightly)
	require.NoError(t, err)

	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "pipeline.yaml", data, 0o644))

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/pipeline.yaml":
			_, _ = w.Write(data)
		case "/invalid.yaml":
			_, _ = w.Write([]byte("not a valid pipeline definition"))
		case "/error.yaml":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(server.Close)

	svc, err := uses.NewResolverService(uses.WithFS(fsys), uses.WithClient(server.Client()))
	require.NoError(t, err)

	testCases := []struct {
		name        string
		ref         string
		expectedErr string
	}{
		{
			name: "from the local filesystem",
			ref:  "file:pipeline.yaml",
		},
		{
			name: "over http",
			ref:  server.URL + "/pipeline.yaml",
		},
		{
			name:        "missing local file",
			ref:         "file:missing.yaml",
			expectedErr: "open missing.yaml: file does not exist",
		},
		{
			name:        "server error",
			ref:         server.URL + "/error.yaml",
			expectedErr: "failed to fetch " + server.URL + "/error.yaml: 500 Internal Server Error",
		},
		{
			name:        "not found",
			ref:         server.URL + "/missing.yaml",
			expectedErr: "failed to fetch " + server.URL + "/missing.yaml: 404 Not Found",
		},
		{
			name: "not a pipeline document",
			ref:  server.URL + "/invalid.yaml",
			expectedErr: `[1:1] string was used where mapping is expected
>  1 | not a valid pipeline definition
       ^
`,
		},
		{
			name:        "unsupported scheme",
			ref:         "ftp://example.com/pipeline.yaml",
			expectedErr: `unsupported scheme: "ftp"`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ctx := log.WithContext(t.Context(), log.New(io.Discard))

			uri, err := url.Parse(tc.ref)
			require.NoError(t, err)

			p, err := Fetch(ctx, svc, uri)
			if tc.expectedErr != "" {
				require.EqualError(t, err, tc.expectedErr)

				var tErr *TraceError
				require.ErrorAs(t, err, &tErr)
				assert.Equal(t, []string{tc.ref}, tErr.Trace)
				assert.Equal(t, v1.Pipeline{}, p)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, nightly, p)
		})
	}
}

func TestFetchFunction(t *testing.T) {
	textGen := uses.FunctionDoc{
		Name:        "text-gen",
		Kind:        "job",
		Description: "Generates text from a prompt",
		Image:       "ghcr.io/acme/text-gen:v1",
		Outputs:     []string{"text"},
		Spec:        schema.Args{"gpu": false},
	}

	data, err := yaml.Marshal(textGen)
	require.NoError(t, err)

	dragon, err := yaml.Marshal(uses.FunctionDoc{Name: "dragon", Kind: "dragon"})
	require.NoError(t, err)

	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "functions/text-gen.yaml", data, 0o644))
	require.NoError(t, afero.WriteFile(fsys, "functions/dragon.yaml", dragon, 0o644))

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/function.yaml":
			_, _ = w.Write(data)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(server.Close)

	svc, err := uses.NewResolverService(uses.WithFS(fsys), uses.WithClient(server.Client()))
	require.NoError(t, err)

	testCases := []struct {
		name        string
		ref         string
		expectedErr string
	}{
		{
			name: "from the local filesystem",
			ref:  "file:functions/text-gen.yaml",
		},
		{
			name: "over http",
			ref:  server.URL + "/function.yaml",
		},
		{
			name:        "unknown runtime kind",
			ref:         "file:functions/dragon.yaml",
			expectedErr: `.kind "dragon" is not one of [job nop remote serving]`,
		},
		{
			name:        "not found",
			ref:         server.URL + "/missing.yaml",
			expectedErr: "failed to fetch " + server.URL + "/missing.yaml: 404 Not Found",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ctx := log.WithContext(t.Context(), log.New(io.Discard))

			uri, err := url.Parse(tc.ref)
			require.NoError(t, err)

			doc, err := FetchFunction(ctx, svc, uri)
			if tc.expectedErr != "" {
				require.EqualError(t, err, tc.expectedErr)

				var tErr *TraceError
				require.ErrorAs(t, err, &tErr)
				assert.Equal(t, []string{tc.ref}, tErr.Trace)
				assert.Equal(t, uses.FunctionDoc{}, doc)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, textGen, doc)
		})
	}
}

func TestFetchAll(t *testing.T) {
	trainer := uses.FunctionDoc{Name: "trainer", Outputs: []string{"model"}}

	trainerData, err := yaml.Marshal(trainer)
	require.NoError(t, err)

	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "pipelines/trainer.yaml", trainerData, 0o644))

	var requests []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests = append(requests, r.URL.Path)
		switch r.URL.Path {
		case "/functions/gen-data.yaml", "/hub/gen_data/main/function.yaml":
			_, _ = w.Write(trainerData)
		case "/invalid.yaml":
			_, _ = w.Write([]byte("not a valid function definition"))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(server.Close)

	svc, err := uses.NewResolverService(
		uses.WithFS(fsys),
		uses.WithClient(server.Client()),
		uses.WithHubURL(server.URL+"/hub"),
	)
	require.NoError(t, err)

	testCases := []struct {
		name             string
		steps            v1.Steps
		src              string
		expectedErr      string
		expectedRequests []string
	}{
		{
			name: "builtin and registry references are skipped",
			steps: v1.Steps{
				{Name: "noop", Uses: "builtin:nop"},
				{Name: "train", Uses: "trainer"},
				{Name: "describe", Uses: "analytics/describe:v2"},
			},
		},
		{
			name: "file references resolve relative to the source",
			steps: v1.Steps{
				{Name: "train", Uses: "file:trainer.yaml"},
			},
			src: "file:pipelines/nightly.yaml",
		},
		{
			name: "duplicate references fetch once",
			steps: v1.Steps{
				{Name: "gen", Uses: server.URL + "/functions/gen-data.yaml"},
				{Name: "gen-again", Uses: server.URL + "/functions/gen-data.yaml"},
			},
			expectedRequests: []string{"/functions/gen-data.yaml"},
		},
		{
			name: "hub references expand against the hub url",
			steps: v1.Steps{
				{Name: "gen", Uses: "hub:gen-data"},
			},
			expectedRequests: []string{"/hub/gen_data/main/function.yaml"},
		},
		{
			name: "unresolvable references fail",
			steps: v1.Steps{
				{Name: "train", Uses: "ftp://example.com/fn.yaml"},
			},
			expectedErr: `failed to resolve "ftp://example.com/fn.yaml": unsupported scheme: "ftp" in "ftp://example.com/fn.yaml"`,
		},
		{
			name: "fetch failures carry the resolved location",
			steps: v1.Steps{
				{Name: "train", Uses: server.URL + "/missing.yaml"},
			},
			expectedErr:      "failed to fetch " + server.URL + "/missing.yaml: 404 Not Found",
			expectedRequests: []string{"/missing.yaml"},
		},
		{
			name: "invalid function definitions fail",
			steps: v1.Steps{
				{Name: "train", Uses: server.URL + "/invalid.yaml"},
			},
			expectedErr: `[1:1] string was used where mapping is expected
>  1 | not a valid function definition
       ^
`,
			expectedRequests: []string{"/invalid.yaml"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := log.WithContext(t.Context(), log.New(io.Discard))

			requests = nil

			var src *url.URL
			if tc.src != "" {
				u, err := url.Parse(tc.src)
				require.NoError(t, err)
				src = u
			}

			p := v1.Pipeline{SchemaVersion: v1.SchemaVersion, Name: "nightly", Steps: tc.steps}

			err := FetchAll(ctx, svc, p, src, nil)
			if tc.expectedErr != "" {
				require.EqualError(t, err, tc.expectedErr)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tc.expectedRequests, requests)
		})
	}
}

func TestRegisteredRefs(t *testing.T) {
	t.Parallel()

	p := v1.Pipeline{
		SchemaVersion: v1.SchemaVersion,
		Name:          "nightly",
		Steps: v1.Steps{
			{Name: "gen", Uses: "file:functions/text-gen.yaml"},
			{Name: "train", Uses: "trainer"},
			{Name: "describe", Uses: "analytics/describe:v2@abc123"},
			{Name: "train-again", Uses: "trainer"},
			{Name: "noop", Uses: "builtin:nop"},
			{Name: "enrich", Uses: "hub:gen-data"},
		},
	}

	assert.Equal(t, []string{"trainer", "analytics/describe:v2@abc123"}, RegisteredRefs(p))
	assert.Empty(t, RegisteredRefs(v1.Pipeline{}))
}

func TestResolveRegistered(t *testing.T) {
	proj := project.New("acme-ml")
	proj.Registry = "ghcr.io/acme"
	require.NoError(t, proj.SetFunction("trainer", project.Function{Kind: "job", Image: ".trainer:v3", Handler: "train"}))
	require.NoError(t, proj.SetFunction("gen-data", project.Function{Uses: "file:functions/gen-data.yaml"}))

	unregistered := project.New("acme-ml")
	require.NoError(t, unregistered.SetFunction("trainer", project.Function{Image: ".trainer"}))

	testCases := []struct {
		name          string
		steps         v1.Steps
		proj          *project.Project
		expectedSteps v1.Steps
		expectedErr   string
	}{
		{
			name:  "inline entries fill the handler and image",
			steps: v1.Steps{{Name: "train", Uses: "trainer"}},
			proj:  proj,
			expectedSteps: v1.Steps{{
				Name:    "train",
				Uses:    "trainer",
				Handler: "train",
				Image:   "ghcr.io/acme/trainer:v3",
			}},
		},
		{
			name: "step settings win over the registry",
			steps: v1.Steps{{
				Name:    "train",
				Uses:    "acme-ml/trainer:v2@abc123",
				Handler: "evaluate",
				Image:   "ghcr.io/acme/custom:v1",
			}},
			proj: proj,
			expectedSteps: v1.Steps{{
				Name:    "train",
				Uses:    "acme-ml/trainer:v2@abc123",
				Handler: "evaluate",
				Image:   "ghcr.io/acme/custom:v1",
			}},
		},
		{
			name:          "uses entries keep the image from their definition",
			steps:         v1.Steps{{Name: "gen", Uses: "gen-data"}},
			proj:          proj,
			expectedSteps: v1.Steps{{Name: "gen", Uses: "gen-data"}},
		},
		{
			name: "pipelines without registry references need no project",
			steps: v1.Steps{
				{Name: "noop", Uses: "builtin:nop"},
				{Name: "gen", Uses: "file:functions/text-gen.yaml"},
			},
			expectedSteps: v1.Steps{
				{Name: "noop", Uses: "builtin:nop"},
				{Name: "gen", Uses: "file:functions/text-gen.yaml"},
			},
		},
		{
			name:        "registry references without a project fail",
			steps:       v1.Steps{{Name: "train", Uses: "trainer"}},
			expectedErr: `.steps.train.uses "trainer": no project definition found`,
		},
		{
			name:        "unknown functions fail",
			steps:       v1.Steps{{Name: "describe", Uses: "describe"}},
			proj:        proj,
			expectedErr: `.steps.describe.uses: function "describe" not found in project "acme-ml"`,
		},
		{
			name:        "references to another project fail",
			steps:       v1.Steps{{Name: "train", Uses: "analytics/trainer"}},
			proj:        proj,
			expectedErr: `.steps.train.uses: function "trainer" belongs to project "analytics", not "acme-ml"`,
		},
		{
			name:        "relative images require a registry",
			steps:       v1.Steps{{Name: "train", Uses: "trainer"}},
			proj:        unregistered,
			expectedErr: `.steps.train: image ".trainer" requires a registry`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			p := v1.Pipeline{SchemaVersion: v1.SchemaVersion, Name: "nightly", Steps: tc.steps}
			original := p.Clone()

			resolved, err := ResolveRegistered(p, tc.proj)
			if tc.expectedErr != "" {
				require.EqualError(t, err, tc.expectedErr)
				assert.Equal(t, v1.Pipeline{}, resolved)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expectedSteps, resolved.Steps)
			assert.Equal(t, original, p)
		})
	}
}

func TestListAllLocal(t *testing.T) {
	nightly := v1.Pipeline{
		SchemaVersion: v1.SchemaVersion,
		Name:          "nightly",
		Steps: v1.Steps{
			{
				Name:    "gen",
				Uses:    "file:functions/text-gen.yaml?policy=always",
				Outputs: []string{"text"},
			},
			{
				Name: "describe",
				Uses: "https://models.acme.dev/describe/function.yaml",
			},
			{
				Name:   "publish",
				Uses:   "builtin:nop",
				Inputs: map[string]string{"text": `${{ from "gen" "text" }}`},
			},
		},
	}

	broken := v1.Pipeline{
		SchemaVersion: v1.SchemaVersion,
		Name:          "broken",
		Steps:         v1.Steps{{Name: "gen", Uses: "file:dragon.yaml"}},
	}

	dangling := v1.Pipeline{
		SchemaVersion: v1.SchemaVersion,
		Name:          "dangling",
		Steps:         v1.Steps{{Name: "train", Uses: "file:nope.yaml"}},
	}

	fsys := afero.NewMemMapFs()
	for path, doc := range map[string]any{
		"pipeline.yaml":           nightly,
		"functions/text-gen.yaml": uses.FunctionDoc{Name: "text-gen", Outputs: []string{"text"}},
		"broken/pipeline.yaml":    broken,
		"broken/dragon.yaml":      uses.FunctionDoc{Name: "dragon", Kind: "dragon"},
		"dangling/pipeline.yaml":  dangling,
	} {
		data, err := yaml.Marshal(doc)
		require.NoError(t, err)
		require.NoError(t, afero.WriteFile(fsys, path, data, 0o644))
	}
	require.NoError(t, afero.WriteFile(fsys, "garbled.yaml", []byte("not a valid pipeline definition"), 0o644))

	testCases := []struct {
		name          string
		src           string
		expectedRefs  []string
		expectedErr   string
		expectedTrace []string
	}{
		{
			name:         "collects the pipeline and its file functions",
			src:          "file:pipeline.yaml",
			expectedRefs: []string{"file:pipeline.yaml", "file:functions/text-gen.yaml"},
		},
		{
			name:         "query parameters are stripped",
			src:          "file:pipeline.yaml?policy=never",
			expectedRefs: []string{"file:pipeline.yaml", "file:functions/text-gen.yaml"},
		},
		{
			name: "non file sources are skipped",
			src:  "https://example.com/pipeline.yaml",
		},
		{
			name:        "missing pipeline",
			src:         "file:missing.yaml",
			expectedErr: "open missing.yaml: file does not exist",
		},
		{
			name: "documents that are not pipelines fail",
			src:  "file:garbled.yaml",
			expectedErr: `[1:1] string was used where mapping is expected
>  1 | not a valid pipeline definition
       ^
`,
		},
		{
			name:        "missing function definitions fail",
			src:         "file:dangling/pipeline.yaml",
			expectedErr: "open dangling/nope.yaml: file does not exist",
		},
		{
			name:          "invalid function definitions fail",
			src:           "file:broken/pipeline.yaml",
			expectedErr:   `.kind "dragon" is not one of [job nop remote serving]`,
			expectedTrace: []string{"file:broken/dragon.yaml"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			src, err := url.Parse(tc.src)
			require.NoError(t, err)

			refs, err := ListAllLocal(t.Context(), src, fsys)
			if tc.expectedErr != "" {
				require.EqualError(t, err, tc.expectedErr)
				if tc.expectedTrace != nil {
					var tErr *TraceError
					require.ErrorAs(t, err, &tErr)
					assert.Equal(t, tc.expectedTrace, tErr.Trace)
				}
				assert.Nil(t, refs)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expectedRefs, refs)
		})
	}
}
