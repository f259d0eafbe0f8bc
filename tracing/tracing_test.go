// SPDX-License-Identifier: Apache-2.0
// SPDX-FileCopyrightText: 2025-Present Defense Unicorns

package tracing

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpanNilSafety(t *testing.T) {
	var sp *Span
	assert.Nil(t, sp.WithAttributes(map[string]string{"k": "v"}))
	sp.SetStatus(assert.AnError)
	sp.SetStatusFromHTTPCode(200)
	EndSpan(nil, assert.AnError)

	ctx := t.Context()
	assert.Equal(t, ctx, WithSpan(ctx, nil))
}

func TestStartSpan(t *testing.T) {
	for _, kind := range []string{"SERVER", "CLIENT", "PRODUCER", "CONSUMER", "INTERNAL", ""} {
		ctx, sp := StartSpan(t.Context(), "op", kind)
		require.NotNil(t, sp)

		got, ok := SpanFromContext(ctx)
		assert.True(t, ok)
		assert.NotNil(t, got)

		sp.WithAttributes(map[string]string{"step": "gen"})
		sp.SetStatusFromHTTPCode(404)
		sp.SetStatusFromHTTPCode(500)
		sp.SetStatusFromHTTPCode(42)
		EndSpan(sp, nil)
	}
}

func TestWithSpan(t *testing.T) {
	_, sp := StartSpan(t.Context(), "op", "CLIENT")

	ctx := WithSpan(t.Context(), sp)
	got, ok := SpanFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, sp.span, got.span)
}

func TestInit(t *testing.T) {
	t.Run("invalid output file", func(t *testing.T) {
		err := Init("pipa", "v0.0.0", filepath.Join(t.TempDir(), "missing", "trace.json"))
		require.ErrorContains(t, err, "no such file or directory")
	})

	t.Run("writes spans to the output file", func(t *testing.T) {
		output := filepath.Join(t.TempDir(), "trace.json")
		require.NoError(t, Init("pipa", "v0.0.0", output))

		_, sp := StartSpan(t.Context(), "submit-run", "CLIENT")
		sp.WithAttributes(map[string]string{"project": "acme-ml"})
		sp.SetStatus(nil)
		EndSpan(sp, nil)

		data, err := os.ReadFile(output)
		require.NoError(t, err)
		assert.Contains(t, string(data), "submit-run")
		assert.Contains(t, string(data), "acme-ml")
	})

	t.Run("first initialisation wins", func(t *testing.T) {
		require.NoError(t, Init("pipa", "v0.0.0", ""))
	})

	t.Run("nil exporter is ignored", func(t *testing.T) {
		require.NoError(t, InitWithExporter("pipa", "v0.0.0", nil))
	})
}
