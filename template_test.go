// SPDX-License-Identifier: Apache-2.0
// SPDX-FileCopyrightText: 2025-Present Defense Unicorns

package pipa

import (
	"io"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/defenseunicorns/pipa/schema"
	v1 "github.com/defenseunicorns/pipa/schema/v1"
)

func TestTemplateString(t *testing.T) {
	ctx := log.WithContext(t.Context(), log.New(io.Discard))

	testCases := []struct {
		name        string
		args        schema.Args
		str         string
		dry         bool
		expected    string
		expectedErr string
	}{
		{
			name:     "no expressions",
			str:      "write a haiku",
			expected: "write a haiku",
		},
		{
			name:     "parameter",
			args:     schema.Args{"subject": "the sea"},
			str:      `write a haiku about ${{ param "subject" }}`,
			expected: "write a haiku about the sea",
		},
		{
			name:     "output references re-emit canonically",
			args:     schema.Args{},
			str:      `${{from "gen" "text"}}`,
			expected: `${{ from "gen" "text" }}`,
		},
		{
			name:     "mixed parameter and reference",
			args:     schema.Args{"suffix": "trimmed"},
			str:      `${{ from "gen" "text" }}-${{ param "suffix" }}`,
			expected: `${{ from "gen" "text" }}-trimmed`,
		},
		{
			name:        "missing parameter",
			args:        schema.Args{"subject": "the sea"},
			str:         `${{ param "oops" }}`,
			expectedErr: `parameter "oops" does not exist in [subject]`,
		},
		{
			name:        "parse error",
			str:         `${{ param "oops"`,
			expectedErr: "unclosed action",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			result, err := TemplateString(ctx, tc.args, tc.str, tc.dry)
			if tc.expectedErr != "" {
				require.ErrorContains(t, err, tc.expectedErr)
				assert.Empty(t, result)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, result)
		})
	}

	t.Run("missing parameter during dry run", func(t *testing.T) {
		t.Parallel()

		result, err := TemplateString(ctx, schema.Args{}, `${{ param "oops" }}`, true)
		require.NoError(t, err)
		assert.Contains(t, result, "param oops")
	})
}

func TestTemplateArgs(t *testing.T) {
	ctx := log.WithContext(t.Context(), log.New(io.Discard))

	t.Run("empty values", func(t *testing.T) {
		t.Parallel()

		result, err := TemplateArgs(ctx, schema.Args{"subject": "the sea"}, nil, false)
		require.NoError(t, err)
		assert.Nil(t, result)
	})

	t.Run("templates nested structures", func(t *testing.T) {
		t.Parallel()

		args := schema.Args{"subject": "the sea"}
		values := schema.Args{
			"prompt": `a haiku about ${{ param "subject" }}`,
			"nested": map[string]any{
				"inner": `${{ param "subject" }}`,
			},
			"list":    []any{`${{ param "subject" }}`, true, []any{`${{ param "subject" }}`}},
			"literal": true,
		}

		result, err := TemplateArgs(ctx, args, values, false)
		require.NoError(t, err)
		assert.Equal(t, schema.Args{
			"prompt": "a haiku about the sea",
			"nested": map[string]any{
				"inner": "the sea",
			},
			"list":    []any{"the sea", true, []any{"the sea"}},
			"literal": true,
		}, result)
	})

	t.Run("errors propagate from nested values", func(t *testing.T) {
		t.Parallel()

		values := schema.Args{
			"nested": map[string]any{"inner": `${{ param "oops" }}`},
		}
		_, err := TemplateArgs(ctx, schema.Args{}, values, false)
		require.ErrorContains(t, err, `parameter "oops" does not exist`)
	})
}

func TestTemplateInputs(t *testing.T) {
	ctx := log.WithContext(t.Context(), log.New(io.Discard))

	t.Run("empty inputs", func(t *testing.T) {
		t.Parallel()

		result, err := TemplateInputs(ctx, nil, nil, false)
		require.NoError(t, err)
		assert.Nil(t, result)
	})

	t.Run("templates every value", func(t *testing.T) {
		t.Parallel()

		inputs := map[string]string{
			"text":    `${{ from "gen" "text" }}`,
			"dataset": `s3://datasets/${{ param "name" }}`,
		}

		result, err := TemplateInputs(ctx, schema.Args{"name": "haikus"}, inputs, false)
		require.NoError(t, err)
		assert.Equal(t, map[string]string{
			"text":    `${{ from "gen" "text" }}`,
			"dataset": "s3://datasets/haikus",
		}, result)
	})
}

func TestTemplatePipeline(t *testing.T) {
	ctx := log.WithContext(t.Context(), log.New(io.Discard))

	p := v1.Pipeline{
		SchemaVersion: v1.SchemaVersion,
		Name:          "text-gen-pipeline",
		Steps: v1.Steps{
			{
				Name:    "gen",
				Uses:    "builtin:nop",
				Params:  schema.Args{"prompt": `a haiku about ${{ param "subject" }}`},
				Outputs: []string{"text"},
			},
			{
				Name:   "consume",
				Uses:   "builtin:nop",
				Inputs: map[string]string{"text": `${{ from "gen" "text" }}`},
			},
		},
	}

	rendered, err := TemplatePipeline(ctx, p, schema.Args{"subject": "the sea"}, false)
	require.NoError(t, err)

	assert.Equal(t, schema.Args{"prompt": "a haiku about the sea"}, rendered.Steps[0].Params)
	assert.Equal(t, map[string]string{"text": `${{ from "gen" "text" }}`}, rendered.Steps[1].Inputs)

	// the original is untouched
	assert.Equal(t, schema.Args{"prompt": `a haiku about ${{ param "subject" }}`}, p.Steps[0].Params)

	_, err = TemplatePipeline(ctx, p, nil, false)
	require.ErrorContains(t, err, ".steps.gen.params:")
}
