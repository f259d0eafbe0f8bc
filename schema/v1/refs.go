// SPDX-License-Identifier: Apache-2.0
// SPDX-FileCopyrightText: 2025-Present Defense Unicorns

package v1

import (
	"fmt"
	"io"
	"slices"
	"strings"
	"text/template"
)

// Reference is a parsed ${{ from "step" "output" }} expression
type Reference struct {
	Step   string
	Output string
}

func (r Reference) String() string {
	return fmt.Sprintf("${{ from %q %q }}", r.Step, r.Output)
}

// ExtractRefs walks v and collects every output reference and every parameter
// reference used in its string values
//
// Strings without expressions are skipped, malformed expressions are returned
// as errors. Map keys are visited in sorted order so results are deterministic.
func ExtractRefs(v any) (refs []Reference, params []string, err error) {
	err = extractValue(v, &refs, &params)
	return refs, params, err
}

func extractValue(v any, refs *[]Reference, params *[]string) error {
	switch val := v.(type) {
	case string:
		return extractString(val, refs, params)
	case map[string]string:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for _, k := range keys {
			if err := extractString(val[k], refs, params); err != nil {
				return fmt.Errorf("%s: %w", k, err)
			}
		}
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for _, k := range keys {
			if err := extractValue(val[k], refs, params); err != nil {
				return fmt.Errorf("%s: %w", k, err)
			}
		}
	case []string:
		for _, s := range val {
			if err := extractString(s, refs, params); err != nil {
				return err
			}
		}
	case []any:
		for _, e := range val {
			if err := extractValue(e, refs, params); err != nil {
				return err
			}
		}
	}
	return nil
}

func extractString(s string, refs *[]Reference, params *[]string) error {
	if !strings.Contains(s, "${{") {
		return nil
	}

	fm := template.FuncMap{
		"from": func(step, output string) string {
			*refs = append(*refs, Reference{Step: step, Output: output})
			return ""
		},
		"param": func(name string) string {
			*params = append(*params, name)
			return ""
		},
	}

	tmpl, err := template.New("reference extractor").
		Funcs(fm).
		Option("missingkey=error").
		Delims("${{", "}}").
		Parse(s)
	if err != nil {
		return err
	}

	return tmpl.Execute(io.Discard, nil)
}
