// SPDX-License-Identifier: Apache-2.0
// SPDX-FileCopyrightText: 2025-Present Defense Unicorns

package uses

import (
	"fmt"
	"io"

	"github.com/goccy/go-yaml"

	"github.com/defenseunicorns/pipa/runtimes"
	"github.com/defenseunicorns/pipa/schema"
	v1 "github.com/defenseunicorns/pipa/schema/v1"
)

// DefaultKind is the runtime kind assumed when a function definition does not declare one
const DefaultKind = "job"

// FunctionDoc is a resolved function definition
//
// The spec holds runtime specific configuration and is validated against the
// runtime the kind selects.
type FunctionDoc struct {
	Name        string      `json:"name"`
	Kind        string      `json:"kind,omitempty"`
	Description string      `json:"description,omitempty"`
	Image       string      `json:"image,omitempty"`
	Handler     string      `json:"handler,omitempty"`
	Outputs     []string    `json:"outputs,omitempty"`
	Spec        schema.Args `json:"spec,omitempty"`
}

// ReadDoc reads a function definition
func ReadDoc(r io.Reader) (FunctionDoc, error) {
	if rs, ok := r.(io.Seeker); ok {
		_, err := rs.Seek(0, io.SeekStart)
		if err != nil {
			return FunctionDoc{}, err
		}
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return FunctionDoc{}, err
	}

	var doc FunctionDoc
	return doc, yaml.Unmarshal(data, &doc)
}

// Validate checks a function definition for structural problems
func (d FunctionDoc) Validate() error {
	if ok := v1.StepNamePattern.MatchString(d.Name); !ok {
		return fmt.Errorf(".name %q does not satisfy %q", d.Name, v1.StepNamePattern.String())
	}

	kind := d.Kind
	if kind == "" {
		kind = DefaultKind
	}
	if runtimes.Get(kind) == nil {
		return fmt.Errorf(".kind %q is not one of %v", kind, runtimes.Names())
	}

	if d.Handler != "" {
		if ok := v1.StepNamePattern.MatchString(d.Handler); !ok {
			return fmt.Errorf(".handler %q does not satisfy %q", d.Handler, v1.StepNamePattern.String())
		}
	}

	for _, output := range d.Outputs {
		if ok := v1.OutputNamePattern.MatchString(output); !ok {
			return fmt.Errorf(".outputs %q does not satisfy %q", output, v1.OutputNamePattern.String())
		}
	}

	return nil
}

// ReadAndValidateDoc reads and validates a function definition
func ReadAndValidateDoc(r io.Reader) (FunctionDoc, error) {
	doc, err := ReadDoc(r)
	if err != nil {
		return FunctionDoc{}, err
	}
	return doc, doc.Validate()
}
