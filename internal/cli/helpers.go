// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"strings"
	"time"

	"github.com/charmbracelet/glamour"

	"github.com/jeranaias/vachat/internal/controller"
	"github.com/jeranaias/vachat/internal/form"
	"github.com/jeranaias/vachat/internal/locale"
	"github.com/jeranaias/vachat/internal/model"
)

func timeoutOf(secs int) time.Duration {
	return time.Duration(secs) * time.Second
}

func millis(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

// =============================================================================
// MARKDOWN RENDERING
// =============================================================================

// renderMarkdown renders a reply for terminal display, or returns content
// unchanged when rendering fails.
func renderMarkdown(content string, width int) string {
	if width <= 0 {
		width = 80
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return content
	}
	out, err := r.Render(content)
	if err != nil {
		return content
	}
	return strings.TrimRight(out, "\n")
}

// replyText formats a bot message for line output.
func replyText(msg *model.Message, raw bool) string {
	if msg == nil {
		return ""
	}
	text := msg.Text
	if !raw {
		text = renderMarkdown(text, 80)
	}
	for _, u := range msg.Attachments.ImageURLs {
		text += "\n" + infoStyle.Render("image: "+u)
	}
	return text
}

// lifecycleNotice returns the localized notice for a terminal phase.
func lifecycleNotice(strs *locale.Strings, lang string, phase controller.Phase) string {
	switch phase {
	case controller.PhaseExpired:
		return strs.Get(locale.KeyExpiredText, lang) + " " + strs.Get(locale.KeyExpiredSubText, lang)
	case controller.PhaseEnded:
		return strs.Get(locale.KeyEndedText, lang) + " " + strs.Get(locale.KeyEndedSubText, lang)
	}
	return ""
}

// describeForm lists the fields of a pending form for headless output.
func describeForm(f *form.Form) string {
	var b strings.Builder
	tmpl := f.Template()
	if tmpl.Title != "" {
		b.WriteString(tmpl.Title + "\n")
	}
	for _, field := range tmpl.Fields() {
		b.WriteString("  - " + field.Title())
		if field.Type.HasOptions() {
			labels := make([]string, len(field.Options))
			for i, o := range field.Options {
				labels[i] = o.Label
			}
			b.WriteString(" (" + strings.Join(labels, ", ") + ")")
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
