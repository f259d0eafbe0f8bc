// SPDX-License-Identifier: Apache-2.0
// SPDX-FileCopyrightText: 2025-Present Defense Unicorns

package pipa

import (
	"strings"

	"github.com/alecthomas/chroma/v2/quick"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/goccy/go-yaml"
	"github.com/muesli/termenv"

	"github.com/defenseunicorns/pipa/schema"
)

func printDocument(logger *log.Logger, doc any) {
	b, err := yaml.MarshalWithOptions(doc, yaml.Indent(2), yaml.IndentSequence(true))
	if err != nil {
		logger.Debugf("failed to marshal document: %v", err)
		return
	}

	if termenv.EnvNoColor() {
		logger.Print(strings.TrimSpace(string(b)))
		return
	}

	style := "tokyonight-day"
	if lipgloss.HasDarkBackground() {
		style = "tokyonight-moon"
	}

	var buf strings.Builder

	if err := quick.Highlight(&buf, string(b), "yaml", "terminal256", style); err != nil {
		logger.Debugf("failed to highlight: %v", err)
		logger.Printf("%s", string(b))
		return
	}

	color := lipgloss.AdaptiveColor{
		Light: "#c5c6bC",
		Dark:  "#3a3943",
	}
	gray := lipgloss.NewStyle().Background(color)

	prefix := gray.Render(" ")

	for line := range strings.SplitSeq(strings.TrimSpace(buf.String()), "\n") {
		logger.Printf("%s %s", prefix, line)
	}
}

func printRuntime(logger *log.Logger, params schema.Args) {
	b, err := yaml.MarshalWithOptions(map[string]any{"params": params}, yaml.Indent(2), yaml.IndentSequence(true))
	if err != nil {
		logger.Debugf("failed to marshal params: %v", err)
		return
	}

	if termenv.EnvNoColor() {
		logger.Printf("%s", strings.TrimSpace(string(b)))
		return
	}

	style := "tokyonight-day"
	if lipgloss.HasDarkBackground() {
		style = "tokyonight-moon"
	}

	var buf strings.Builder

	if err := quick.Highlight(&buf, string(b), "yaml", "terminal256", style); err != nil {
		logger.Debugf("failed to highlight: %v", err)
		logger.Printf("%s", string(b))
		return
	}

	logger.Printf("%s", strings.TrimSpace(buf.String()))
}
