// SPDX-License-Identifier: Apache-2.0
// SPDX-FileCopyrightText: 2025-Present Defense Unicorns

package runtimes

import (
	"fmt"
)

// serving is a model server deployed behind an HTTP endpoint
type serving struct {
	Models map[string]string `json:"models,omitempty" jsonschema:"description=Model name to model artifact location"`
	Router string            `json:"router,omitempty" jsonschema:"description=Class handling request routing between models"`
	Image  string            `json:"image,omitempty"  jsonschema:"description=Container image the server runs in"`
}

// Kind implements Runtime
func (s *serving) Kind() string { return "serving" }

// Validate implements Runtime
func (s *serving) Validate() error {
	for name, location := range s.Models {
		if location == "" {
			return fmt.Errorf("model %q has no location", name)
		}
	}
	return nil
}
