// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package card builds the bot's rich messages. A Card is a titled
// block with fields, the chat counterpart of an embed; it renders as
// plain text for the Matrix body, as Markdown converted to HTML for the
// formatted_body, and as styled text for the operator's terminal.
package card

import (
	"bytes"
	"fmt"
	"strings"
	"sync"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// Accent is the card colour.
const Accent = 0x00c9ff

// Field is one labelled value.
type Field struct {
	Name  string
	Value string

	// Link, when set, makes Value a link in rich renderings.
	Link string
}

// List is a headed bullet list shown under the description.
type List struct {
	Heading string
	Items   []string
}

// Card is a rich message. All text is literal; renderers escape it.
type Card struct {
	Title       string
	Description string
	List        *List
	Fields      []Field

	// Thumbnail and Image are shown as links: Matrix clients only
	// display images hosted on the homeserver.
	Thumbnail string
	Image     string

	Footer string
}

// Plain renders the card as the plain-text message body.
func (c Card) Plain() string {
	var builder strings.Builder
	builder.WriteString(c.Title)
	if c.Description != "" {
		builder.WriteString("\n" + c.Description)
	}
	if c.List != nil {
		builder.WriteString("\n" + c.List.Heading)
		for _, item := range c.List.Items {
			builder.WriteString("\n- " + item)
		}
	}
	for _, field := range c.Fields {
		fmt.Fprintf(&builder, "\n%s: %s", field.Name, field.Value)
	}
	if c.Thumbnail != "" {
		builder.WriteString("\nAvatar: " + c.Thumbnail)
	}
	if c.Image != "" {
		builder.WriteString("\nSkin: " + c.Image)
	}
	if c.Footer != "" {
		builder.WriteString("\n" + c.Footer)
	}
	return builder.String()
}

// Markdown renders the card as Markdown with the title in the accent
// colour.
func (c Card) Markdown() string {
	var builder strings.Builder
	fmt.Fprintf(&builder, "#### <font data-mx-color=\"#%06x\">%s</font>\n\n", Accent, Escape(c.Title))
	if c.Description != "" {
		builder.WriteString(Escape(c.Description) + "\n\n")
	}
	if c.List != nil {
		builder.WriteString("**" + Escape(c.List.Heading) + "**\n\n")
		for _, item := range c.List.Items {
			builder.WriteString("- " + Escape(item) + "\n")
		}
		builder.WriteString("\n")
	}
	for _, field := range c.Fields {
		value := Escape(field.Value)
		if field.Link != "" {
			value = fmt.Sprintf("[%s](<%s>)", value, field.Link)
		}
		fmt.Fprintf(&builder, "- **%s:** %s\n", Escape(field.Name), value)
	}
	if c.Thumbnail != "" {
		fmt.Fprintf(&builder, "- **Avatar:** [head render](<%s>)\n", c.Thumbnail)
	}
	if c.Image != "" {
		fmt.Fprintf(&builder, "- **Skin:** [body render](<%s>)\n", c.Image)
	}
	if c.Footer != "" {
		builder.WriteString("\n_" + Escape(c.Footer) + "_\n")
	}
	return builder.String()
}

// HTML renders the card for a Matrix formatted_body.
func (c Card) HTML() (string, error) {
	return MarkdownToHTML(c.Markdown())
}

var (
	markdownInstance goldmark.Markdown
	markdownOnce     sync.Once
)

// markdown returns the shared converter. Raw HTML is passed through so
// cards can use Matrix's data-mx-color attribute; card text is escaped
// before it reaches the converter.
func markdown() goldmark.Markdown {
	markdownOnce.Do(func() {
		markdownInstance = goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(html.WithUnsafe()),
		)
	})
	return markdownInstance
}

// MarkdownToHTML converts Markdown to an HTML fragment.
func MarkdownToHTML(source string) (string, error) {
	var buffer bytes.Buffer
	if err := markdown().Convert([]byte(source), &buffer); err != nil {
		return "", fmt.Errorf("rendering markdown: %w", err)
	}
	return strings.TrimRight(buffer.String(), "\n"), nil
}

// markdownSpecial are the characters Escape backslash-escapes: every
// ASCII punctuation mark that can start Markdown syntax or raw HTML.
const markdownSpecial = "\\`*_{}[]()<>#+-.!|~&"

// Escape makes text render literally in Markdown.
func Escape(text string) string {
	var builder strings.Builder
	builder.Grow(len(text))
	for _, r := range text {
		if r < 0x80 && strings.ContainsRune(markdownSpecial, r) {
			builder.WriteByte('\\')
		}
		builder.WriteRune(r)
	}
	return builder.String()
}
