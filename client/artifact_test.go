// SPDX-License-Identifier: Apache-2.0
// SPDX-FileCopyrightText: 2025-Present Defense Unicorns

package client

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFillArtifactPath(t *testing.T) {
	testCases := []struct {
		name        string
		path        string
		project     string
		expected    string
		expectedErr string
	}{
		{
			name:     "no keys",
			path:     "s3://artifacts/runs",
			project:  "acme-ml",
			expected: "s3://artifacts/runs",
		},
		{
			name:     "project key",
			path:     "s3://artifacts/{{project}}/runs",
			project:  "acme-ml",
			expected: "s3://artifacts/acme-ml/runs",
		},
		{
			name:     "run project key with spaces",
			path:     "s3://artifacts/{{ run.project }}/runs",
			project:  "acme-ml",
			expected: "s3://artifacts/acme-ml/runs",
		},
		{
			name:     "repeated keys",
			path:     "s3://{{project}}/runs/{{project}}",
			project:  "acme-ml",
			expected: "s3://acme-ml/runs/acme-ml",
		},
		{
			name:        "missing project",
			path:        "s3://artifacts/{{project}}/runs",
			expectedErr: `artifact path "s3://artifacts/{{project}}/runs" requires a project`,
		},
		{
			name:        "unsupported key",
			path:        "s3://artifacts/{{cluster}}/runs",
			project:     "acme-ml",
			expectedErr: `unsupported artifact path key "cluster" in "s3://artifacts/{{cluster}}/runs"`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			filled, err := FillArtifactPath(tc.path, tc.project)
			if tc.expectedErr != "" {
				require.EqualError(t, err, tc.expectedErr)
				assert.Empty(t, filled)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, filled)
		})
	}
}
