// SPDX-License-Identifier: Apache-2.0
// SPDX-FileCopyrightText: 2025-Present Defense Unicorns

package v1

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/defenseunicorns/pipa/schema"
)

func TestPipelineExplain(t *testing.T) {
	boolPtr := func(b bool) *bool { return &b }

	complexPipeline := Pipeline{
		SchemaVersion: SchemaVersion,
		Name:          "training-flow",
		Description:   "Generate data, train a model, then evaluate it",
		Parameters: ParamMap{
			"epochs": Parameter{
				Description:    "Number of training epochs",
				Required:       boolPtr(true),
				Default:        "10",
				DefaultFromEnv: "EPOCHS",
				Validate:       `^\d+$`,
			},
			"debug": Parameter{
				Description:       "Enable debug output",
				Required:          boolPtr(false),
				Default:           false,
				DeprecatedMessage: "Use log-level instead",
			},
		},
		Steps: Steps{
			{
				Name:    "gen",
				Uses:    "hub://gen-data",
				Outputs: []string{"dataset"},
			},
			{
				Name:    "train",
				Uses:    "trainer",
				Handler: "train",
				Params:  schema.Args{"epochs": `${{ param "epochs" }}`},
				Inputs:  map[string]string{"dataset": `${{ from "gen" "dataset" }}`},
				Outputs: []string{"model"},
				When:    `params.debug == false`,
				Image:   ".training/train:latest",
				Timeout: "30m",
			},
		},
	}

	simplePipeline := Pipeline{
		SchemaVersion: SchemaVersion,
		Name:          "simple",
		Steps: Steps{
			{Name: "train", Uses: "trainer"},
			{Name: "eval", Uses: "evaluator"},
		},
	}

	testCases := []struct {
		name        string
		pipeline    Pipeline
		stepNames   []string
		contains    []string
		notContains []string
	}{
		{
			name:     "simple pipeline - all steps",
			pipeline: simplePipeline,
			contains: []string{
				"# Pipeline (v1)",
				"**Name:** `simple`",
				"## Steps",
				"### `train`",
				"### `eval`",
				"Uses: `trainer`",
				"Uses: `evaluator`",
				"## Usage",
				"pipa                     # Submit pipeline.yaml and watch the run",
			},
		},
		{
			name:      "simple pipeline - specific step",
			pipeline:  simplePipeline,
			stepNames: []string{"train"},
			contains: []string{
				"# Pipeline (v1)",
				"### `train`",
			},
			notContains: []string{
				"### `eval`",
				"## Usage",
			},
		},
		{
			name:     "complex pipeline with all features",
			pipeline: complexPipeline,
			contains: []string{
				"# Pipeline (v1)",
				"**Name:** `training-flow`",
				"Generate data, train a model, then evaluate it",
				"## Parameters",
				"| Name | Description | Required | Default | Validation | Notes |",
				"|------|-------------|----------|---------|------------|-------|",
				"| `debug` | Enable debug output | No | `false` | - | ⚠️ **Deprecated**: Use log-level instead |",
				"| `epochs` | Number of training epochs | Yes | `10` (`$EPOCHS`) | `^\\d+$` | - |",
				"## Steps",
				"### `gen`",
				"Uses: `hub://gen-data`",
				"Outputs: `dataset`",
				"### `train`",
				"Uses: `trainer` (handler: `train`)",
				"**Params:**",
				"- `epochs`: `${{ param \"epochs\" }}`",
				"**Inputs:**",
				"- `dataset`: `${{ from \"gen\" \"dataset\" }}`",
				"Outputs: `model`",
				"*Configuration:* Image: `.training/train:latest` • Timeout: `30m` • Condition: `params.debug == false`",
			},
		},
		{
			name:      "non-existent step",
			pipeline:  simplePipeline,
			stepNames: []string{"missing"},
			contains: []string{
				"# Pipeline (v1)",
				"## Steps",
				"No steps found.",
			},
			notContains: []string{
				"### `train`",
				"## Usage",
			},
		},
		{
			name: "empty pipeline",
			pipeline: Pipeline{
				SchemaVersion: SchemaVersion,
			},
			contains: []string{
				"# Pipeline (v1)",
				"## Steps",
				"No steps found.",
			},
			notContains: []string{
				"**Name:**",
				"## Parameters",
				"## Usage",
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			result := tc.pipeline.Explain(tc.stepNames...)

			for _, expected := range tc.contains {
				assert.Contains(t, result, expected, "Expected to find: %s", expected)
			}

			for _, unexpected := range tc.notContains {
				assert.NotContains(t, result, unexpected, "Expected NOT to find: %s", unexpected)
			}
		})
	}
}
