// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package card

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/muesli/termenv"
)

// TerminalRenderer draws cards as bordered boxes for a terminal.
type TerminalRenderer struct {
	renderer *lipgloss.Renderer
	width    int
}

// NewTerminalRenderer returns a renderer for output, detecting its
// colour support. width is the total box width, minimum 30.
func NewTerminalRenderer(output io.Writer, width int) *TerminalRenderer {
	return &TerminalRenderer{
		renderer: lipgloss.NewRenderer(output),
		width:    max(width, 30),
	}
}

// WithProfile forces a colour profile, e.g. termenv.Ascii for output
// that is piped or compared in tests.
func (t *TerminalRenderer) WithProfile(profile termenv.Profile) *TerminalRenderer {
	t.renderer.SetColorProfile(profile)
	return t
}

// Render draws card.
func (t *TerminalRenderer) Render(card Card) string {
	accent := lipgloss.Color(fmt.Sprintf("#%06x", Accent))
	titleStyle := t.renderer.NewStyle().Bold(true).Foreground(accent)
	labelStyle := t.renderer.NewStyle().Faint(true)
	footerStyle := t.renderer.NewStyle().Italic(true).Faint(true)

	// Border and padding take four columns.
	inner := t.width - 4

	var lines []string
	lines = append(lines, titleStyle.Render(card.Title))
	if card.Description != "" {
		lines = append(lines, ansi.Wrap(card.Description, inner, " "))
	}
	if card.List != nil {
		lines = append(lines, "", labelStyle.Render(card.List.Heading))
		for _, item := range card.List.Items {
			lines = append(lines, "  • "+item)
		}
	}
	if len(card.Fields) > 0 || card.Thumbnail != "" || card.Image != "" {
		lines = append(lines, "")
	}
	field := func(name, value string) {
		lines = append(lines, ansi.Wrap(labelStyle.Render(name+":")+" "+value, inner, " /"))
	}
	for _, f := range card.Fields {
		field(f.Name, f.Value)
	}
	if card.Thumbnail != "" {
		field("Avatar", card.Thumbnail)
	}
	if card.Image != "" {
		field("Skin", card.Image)
	}
	if card.Footer != "" {
		lines = append(lines, "", footerStyle.Render(ansi.Wrap(card.Footer, inner, " ")))
	}

	box := t.renderer.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(accent).
		Padding(0, 1).
		Width(t.width - 2)
	return box.Render(strings.Join(lines, "\n"))
}
