// SPDX-License-Identifier: Apache-2.0
// SPDX-FileCopyrightText: 2025-Present Defense Unicorns

package v1

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/defenseunicorns/pipa/schema"
)

func TestWhenCompile(t *testing.T) {
	testCases := []struct {
		name          string
		when          When
		expectedError string
	}{
		{
			name: "empty condition",
			when: "",
		},
		{
			name: "boolean literal",
			when: "true",
		},
		{
			name: "parameter comparison",
			when: `params.epochs > 10`,
		},
		{
			name: "failure helper",
			when: "failure()",
		},
		{
			name: "always helper",
			when: "always()",
		},
		{
			name: "combined helpers",
			when: `failure() || params.cleanup == "force"`,
		},
		{
			name:          "syntax error",
			when:          "1 +",
			expectedError: "unexpected token EOF",
		},
		{
			name:          "non boolean result",
			when:          `"just a string"`,
			expectedError: "expected bool, but got string",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			err := When(tc.when).Compile()
			if tc.expectedError == "" {
				require.NoError(t, err)
			} else {
				require.ErrorContains(t, err, tc.expectedError)
			}
		})
	}
}

func TestWhenEvaluate(t *testing.T) {
	testCases := []struct {
		name      string
		when      When
		params    schema.Args
		from      map[string]map[string]string
		hasFailed bool
		expected  bool
	}{
		{
			name:     "empty condition runs",
			when:     "",
			expected: true,
		},
		{
			name:      "empty condition skips after failure",
			when:      "",
			hasFailed: true,
			expected:  false,
		},
		{
			name:     "parameter comparison",
			when:     `params.epochs == 10`,
			params:   schema.Args{"epochs": 10},
			expected: true,
		},
		{
			name:     "upstream output comparison",
			when:     `from.train.accuracy == "0.98"`,
			from:     map[string]map[string]string{"train": {"accuracy": "0.98"}},
			expected: true,
		},
		{
			name:      "failure helper without failure",
			when:      "failure()",
			hasFailed: false,
			expected:  false,
		},
		{
			name:      "failure helper after failure",
			when:      "failure()",
			hasFailed: true,
			expected:  true,
		},
		{
			name:      "always runs even after failure",
			when:      "always()",
			hasFailed: true,
			expected:  true,
		},
		{
			name:      "always short circuits other logic",
			when:      "always() && false",
			hasFailed: false,
			expected:  true,
		},
		{
			name:     "false condition",
			when:     `params.debug == true`,
			params:   schema.Args{"debug": false},
			expected: false,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, err := When(tc.when).Evaluate(tc.params, tc.from, tc.hasFailed)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, got)
		})
	}
}

func TestWhenEvaluateError(t *testing.T) {
	_, err := When("1 +").Evaluate(nil, nil, false)
	require.ErrorContains(t, err, "unexpected token EOF")
}

func TestWhenString(t *testing.T) {
	assert.Equal(t, "failure()", When("failure()").String())
}
