// SPDX-License-Identifier: Apache-2.0
// SPDX-FileCopyrightText: 2025-Present Defense Unicorns

package v1

import (
	"fmt"
	"net/url"
	"strings"
)

// SupportedSchemes returns a list of supported schemes for function references
func SupportedSchemes() []string {
	return []string{"file", "http", "https", "pkg", "oci", "hub", "store"}
}

// IsRegistered reports whether a uses reference names a project-registered
// function rather than a fetchable location or a builtin runtime
func IsRegistered(s string) bool {
	if s == "" || strings.HasPrefix(s, "hub:") {
		return false
	}
	u, err := url.Parse(s)
	return err == nil && u.Scheme == ""
}

// FunctionRef is a scheme-less reference to a function registered in a project
//
// Written as [project/]name[:tag][@uid], where @uid pins an exact version
type FunctionRef struct {
	Project string
	Name    string
	Tag     string
	UID     string
}

// String reassembles the reference in its canonical form
func (r FunctionRef) String() string {
	var b strings.Builder
	if r.Project != "" {
		b.WriteString(r.Project)
		b.WriteString("/")
	}
	b.WriteString(r.Name)
	if r.Tag != "" {
		b.WriteString(":")
		b.WriteString(r.Tag)
	}
	if r.UID != "" {
		b.WriteString("@")
		b.WriteString(r.UID)
	}
	return b.String()
}

// ParseHubRef parses a hub://name[:tag] marketplace reference
//
// Accepts both the hub://name and hub:name forms. The tag is empty when
// unspecified, callers apply their own default.
func ParseHubRef(s string) (string, string, error) {
	rest, ok := strings.CutPrefix(s, "hub://")
	if !ok {
		rest, ok = strings.CutPrefix(s, "hub:")
	}
	if !ok {
		return "", "", fmt.Errorf("not a hub reference: %q", s)
	}

	name, tag, _ := strings.Cut(rest, ":")
	if ok := StepNamePattern.MatchString(name); !ok {
		return "", "", fmt.Errorf("hub item %q does not satisfy %q", name, StepNamePattern.String())
	}
	if tag != "" {
		if ok := TagPattern.MatchString(tag); !ok {
			return "", "", fmt.Errorf("tag %q does not satisfy %q", tag, TagPattern.String())
		}
	}

	return name, tag, nil
}

// ParseFunctionRef parses a [project/]name[:tag][@uid] reference
//
// The project segment splits on the first "/", the uid on the first "@",
// then the tag on the first ":"
func ParseFunctionRef(s string) (FunctionRef, error) {
	if s == "" {
		return FunctionRef{}, fmt.Errorf("empty function reference")
	}

	var ref FunctionRef
	rest := s

	if project, remainder, ok := strings.Cut(rest, "/"); ok {
		ref.Project = project
		rest = remainder
	}
	if remainder, uid, ok := strings.Cut(rest, "@"); ok {
		ref.UID = uid
		rest = remainder
	}
	if name, tag, ok := strings.Cut(rest, ":"); ok {
		ref.Tag = tag
		rest = name
	}
	ref.Name = rest

	if ok := StepNamePattern.MatchString(ref.Name); !ok {
		return FunctionRef{}, fmt.Errorf("function name %q does not satisfy %q", ref.Name, StepNamePattern.String())
	}
	if ref.Project != "" {
		if ok := RunNamePattern.MatchString(ref.Project); !ok {
			return FunctionRef{}, fmt.Errorf("project %q does not satisfy %q", ref.Project, RunNamePattern.String())
		}
	}
	if ref.Tag != "" {
		if ok := TagPattern.MatchString(ref.Tag); !ok {
			return FunctionRef{}, fmt.Errorf("tag %q does not satisfy %q", ref.Tag, TagPattern.String())
		}
	}
	if ref.UID != "" {
		if ok := UIDPattern.MatchString(ref.UID); !ok {
			return FunctionRef{}, fmt.Errorf("uid %q does not satisfy %q", ref.UID, UIDPattern.String())
		}
	}

	return ref, nil
}
