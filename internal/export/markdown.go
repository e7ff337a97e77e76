// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/jeranaias/vachat/internal/form"
	"github.com/jeranaias/vachat/internal/model"
)

// =============================================================================
// MARKDOWN EXPORTER
// =============================================================================

// MarkdownExporter writes a readable transcript with YAML front matter.
type MarkdownExporter struct {
	options *Options
}

// NewMarkdownExporter creates a Markdown exporter.
func NewMarkdownExporter(opts *Options) *MarkdownExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &MarkdownExporter{options: opts}
}

// Export renders t as Markdown.
func (e *MarkdownExporter) Export(t *Transcript) ([]byte, error) {
	if t == nil {
		return nil, fmt.Errorf("transcript is nil")
	}
	msgs := t.visible()
	if len(msgs) == 0 {
		return nil, ErrEmpty
	}

	var sb strings.Builder
	sb.WriteString("---\n")
	fmt.Fprintf(&sb, "title: %s\n", escapeYAML(t.Title))
	if t.Plugin != "" {
		fmt.Fprintf(&sb, "plugin: %s\n", escapeYAML(t.Plugin))
	}
	if t.Language != "" {
		fmt.Fprintf(&sb, "language: %s\n", t.Language)
	}
	if t.SessionID != "" {
		fmt.Fprintf(&sb, "session: %s\n", escapeYAML(t.SessionID))
	}
	fmt.Fprintf(&sb, "exported: %s\n", t.Exported.Format(time.RFC3339))
	fmt.Fprintf(&sb, "messages: %d\n", len(msgs))
	sb.WriteString("generator: vachat\n")
	sb.WriteString("---\n\n")

	fmt.Fprintf(&sb, "# %s\n\n", escapeMarkdown(t.Title))

	for _, msg := range msgs {
		if msg.Sender == model.SenderDebug && !e.options.IncludeDebug {
			continue
		}
		name := msg.Sender.DisplayName()
		if msg.IsStatus() && msg.Agent != "" {
			name += " (" + escapeMarkdown(msg.Agent) + ")"
		}
		if e.options.IncludeTimestamps {
			fmt.Fprintf(&sb, "### %s <sub>%s</sub>\n\n", name, msg.Timestamp.Format("15:04:05"))
		} else {
			fmt.Fprintf(&sb, "### %s\n\n", name)
		}
		sb.WriteString(e.body(msg))
		sb.WriteString("\n\n")
	}

	fmt.Fprintf(&sb, "---\n\n*Exported from vachat on %s*\n", t.Exported.Format("January 2, 2006 at 3:04 PM"))
	return []byte(sb.String()), nil
}

func (e *MarkdownExporter) body(msg model.Message) string {
	var parts []string
	switch {
	case len(msg.FormAnswers) > 0:
		for _, line := range strings.Split(form.FormatAnswers(msg.FormAnswers), "\n") {
			parts = append(parts, "- "+line)
		}
	case msg.Sender == model.SenderDebug:
		parts = append(parts, "```\n"+strings.TrimSpace(msg.Text)+"\n```")
	case strings.TrimSpace(msg.Text) != "":
		parts = append(parts, strings.TrimSpace(msg.Text))
	}

	verb := "Attached"
	if msg.IsBot() {
		verb = "Processed"
	}
	for _, f := range msg.Attachments.Files {
		parts = append(parts, fmt.Sprintf("*%s: %s (%s)*", verb, escapeMarkdown(f.Name), humanize.Bytes(uint64(f.Size))))
	}
	if n := len(msg.Attachments.ImagePreviews); n > 0 {
		parts = append(parts, fmt.Sprintf("*Attached: %d image(s)*", n))
	}
	for _, u := range msg.Attachments.ImageURLs {
		parts = append(parts, fmt.Sprintf("![image](%s)", u))
	}
	return strings.Join(parts, "\n\n")
}

// FileExtension returns ".md".
func (e *MarkdownExporter) FileExtension() string {
	return ".md"
}

// =============================================================================
// ESCAPING HELPERS
// =============================================================================

// escapeMarkdown escapes characters that would break headings.
func escapeMarkdown(s string) string {
	r := strings.NewReplacer("#", `\#`, "*", `\*`, "_", `\_`, "[", `\[`, "]", `\]`)
	return r.Replace(s)
}

// escapeYAML quotes values carrying YAML syntax.
func escapeYAML(s string) string {
	if strings.ContainsAny(s, ":#|>@`\"'[]{}!%&*\n\r\\") || strings.HasPrefix(s, " ") || strings.HasSuffix(s, " ") {
		r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`, "\r", `\r`)
		return `"` + r.Replace(s) + `"`
	}
	return s
}
