// SPDX-License-Identifier: Apache-2.0
// SPDX-FileCopyrightText: 2025-Present Defense Unicorns

package pipa

import (
	"context"
	"net/url"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/charmbracelet/x/ansi"
	"golang.org/x/term"

	"github.com/defenseunicorns/pipa/config"
	"github.com/defenseunicorns/pipa/project"
	v1 "github.com/defenseunicorns/pipa/schema/v1"
	"github.com/defenseunicorns/pipa/uses"
)

// NewDetailedStepList renders a table of a pipeline's steps
//
// Function descriptions are resolved best effort, registry references read
// the project definition and steps whose definition cannot be resolved
// render without one.
func NewDetailedStepList(ctx context.Context, svc *uses.ResolverService, src *url.URL, p v1.Pipeline, aliases map[string]config.Alias, proj *project.Project) (string, error) {
	width := 120
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		width = w
	}

	rows := make([][]string, 0, len(p.Steps))
	for _, step := range p.Steps {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		var description string
		switch {
		case strings.HasPrefix(step.Uses, "builtin:"):
			description = "builtin runtime"
		case v1.IsRegistered(step.Uses):
			if proj != nil {
				if _, fn, err := proj.ResolveFunction(step.Uses); err == nil {
					description = fn.Description
				}
			}
		default:
			if next, err := uses.ResolveRelative(src, step.Uses, aliases); err == nil {
				if doc, err := FetchFunction(ctx, svc, next); err == nil {
					description = doc.Description
				}
			}
		}

		rows = append(rows, []string{
			step.Name,
			ansi.Truncate(step.Uses, width/3, "…"),
			strings.Join(step.Outputs, ", "),
			ansi.Truncate(description, width/3, "…"),
		})
	}

	t := table.New().
		Headers("NAME", "USES", "OUTPUTS", "DESCRIPTION").
		Width(width).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return lipgloss.NewStyle().Bold(true)
			}
			return lipgloss.NewStyle().PaddingRight(1)
		}).
		Rows(rows...)

	return t.String(), nil
}
