// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

// markdown renders bot replies, rebuilding the renderer when the wrap width
// changes.
type markdown struct {
	style    string
	width    int
	renderer *glamour.TermRenderer
}

func newMarkdown(style string) *markdown {
	return &markdown{style: style}
}

// Render returns text as terminal markdown, or text itself when rendering
// fails.
func (md *markdown) Render(text string, width int) string {
	if width < 20 {
		width = 20
	}
	if md.renderer == nil || md.width != width {
		r, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle(md.style),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			return text
		}
		md.renderer = r
		md.width = width
	}
	out, err := md.renderer.Render(text)
	if err != nil {
		return text
	}
	return strings.Trim(out, "\n")
}
