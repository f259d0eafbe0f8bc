// SPDX-License-Identifier: Apache-2.0
// SPDX-FileCopyrightText: 2025-Present Defense Unicorns

package client

import (
	"fmt"
	"regexp"
	"strings"
)

var artifactKeyPattern = regexp.MustCompile(`\{\{\s*([a-zA-Z0-9_.]+)\s*\}\}`)

// FillArtifactPath substitutes template keys in an artifact path
//
// Supported keys are {{project}} and {{run.project}}. Any other key is
// an error, as is a project key with no project to fill it with.
func FillArtifactPath(path, project string) (string, error) {
	matches := artifactKeyPattern.FindAllStringSubmatch(path, -1)
	if len(matches) == 0 {
		return path, nil
	}

	for _, match := range matches {
		switch match[1] {
		case "project", "run.project":
			if project == "" {
				return "", fmt.Errorf("artifact path %q requires a project", path)
			}
			path = strings.ReplaceAll(path, match[0], project)
		default:
			return "", fmt.Errorf("unsupported artifact path key %q in %q", match[1], path)
		}
	}

	return path, nil
}
