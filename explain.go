// SPDX-License-Identifier: Apache-2.0
// SPDX-FileCopyrightText: 2025-Present Defense Unicorns

package pipa

import (
	"os"

	"github.com/charmbracelet/glamour"
	"github.com/muesli/termenv"
	"golang.org/x/term"

	v1 "github.com/defenseunicorns/pipa/schema/v1"
)

// Explain renders a markdown description of a pipeline for terminal display
//
// Plain markdown comes back when stdout is not a terminal or color is
// disabled.
func Explain(p v1.Pipeline, stepNames ...string) (string, error) {
	md := p.Explain(stepNames...)

	if termenv.EnvNoColor() || !term.IsTerminal(int(os.Stdout.Fd())) {
		return md, nil
	}

	width := 120
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		width = w
	}

	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", err
	}

	return renderer.Render(md)
}
