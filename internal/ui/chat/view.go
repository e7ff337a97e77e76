// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/jeranaias/vachat/internal/config"
	"github.com/jeranaias/vachat/internal/controller"
	"github.com/jeranaias/vachat/internal/feedback"
	"github.com/jeranaias/vachat/internal/form"
	"github.com/jeranaias/vachat/internal/locale"
	"github.com/jeranaias/vachat/internal/model"
	"github.com/jeranaias/vachat/internal/util"
)

// =============================================================================
// LAYOUT
// =============================================================================

func (m *Model) resize(width, height int) {
	m.width, m.height = width, height
	m.ready = true
	m.lifecycle.SetSize(width, height)
	m.langPicker.SetWidth(width)
	m.plugPicker.SetWidth(width)
	m.input.Width = width - 6
	if m.form != nil {
		m.form = newFormEditor(m.form.form, width)
	}
	m.rendered = make(map[string]string)
	m.layout()
	m.refresh()
}

// layout sizes the viewport to what the header and footer leave over.
func (m *Model) layout() {
	if !m.ready {
		return
	}
	used := lipgloss.Height(m.headerView()) + lipgloss.Height(m.footerView())
	h := m.height - used
	if h < 3 {
		h = 3
	}
	m.viewport.Width = m.width
	m.viewport.Height = h
}

// refresh re-renders the log into the viewport and follows the bottom.
func (m *Model) refresh() {
	atBottom := m.viewport.AtBottom() || m.viewport.TotalLineCount() <= m.viewport.Height
	m.viewport.SetContent(m.logView())
	if atBottom {
		m.viewport.GotoBottom()
	}
}

// =============================================================================
// VIEW
// =============================================================================

// View renders the current screen.
func (m *Model) View() string {
	if m.quitting {
		return ""
	}
	switch m.screen {
	case screenLanguage:
		return m.pad(m.langPicker.View(m.theme))
	case screenPlugins:
		return m.pad(m.headerView() + "\n" + m.plugPicker.View(m.theme))
	}
	if m.lifecycle.ModalVisible() {
		return m.lifecycle.Modal(m.theme)
	}
	return lipgloss.JoinVertical(lipgloss.Left, m.headerView(), m.viewport.View(), m.footerView())
}

func (m *Model) pad(s string) string {
	return lipgloss.NewStyle().Padding(1, 2).Render(s)
}

func (m *Model) headerView() string {
	title := m.doc.Title
	if title == "" {
		title = m.doc.TabText
	}
	if title == "" {
		title = "vachat"
	}
	parts := []string{m.theme.Title.Render(title)}
	if p, ok := m.ctrl.Plugin(); ok && p.Title != "" {
		parts = append(parts, m.theme.Subtitle.Render(p.Title))
	}
	parts = append(parts, m.theme.Muted.Render(m.ctrl.Language()))
	if m.flags.EnableNewChat {
		parts = append(parts, m.theme.Muted.Render("C-n "+config.Label(m.doc.NewChatButton, m.ctrl.Language(), "New chat")))
	}
	if m.flags.EnableDarkMode {
		label := config.Label(m.doc.DarkModeButton, m.ctrl.Language(), "Dark mode")
		if m.theme.IsDark {
			label = config.Label(m.doc.LightModeButton, m.ctrl.Language(), "Light mode")
		}
		parts = append(parts, m.theme.Muted.Render("C-t "+label))
	}
	return strings.Join(parts, "  ")
}

func (m *Model) footerView() string {
	var lines []string

	if banner := m.lifecycle.Banner(m.theme); banner != "" {
		lines = append(lines, banner)
	}
	if m.flash != "" {
		if m.flashErr {
			lines = append(lines, m.theme.Error.Render(m.flash))
		} else {
			lines = append(lines, m.theme.Success.Render(m.flash))
		}
	}
	if chips := m.stagedView(); chips != "" {
		lines = append(lines, chips)
	}

	phase := m.ctrl.Phase()
	switch {
	case m.form != nil && phase == controller.PhaseForm:
		lines = append(lines, m.form.view(m.theme, m.text(locale.KeyFormSubmit), m.text(locale.KeyFormIncomplete)))
	case m.ctrl.FreeText() || m.filesMode():
		box := m.theme.Input
		if !phase.InputEnabled() {
			box = m.theme.InputLocked
		}
		in := m.input.View()
		if m.listening {
			in += "  " + m.theme.Success.Render(m.text(locale.KeyListeningText))
		}
		lines = append(lines, box.Width(maxInt(m.width-2, 10)).Render(in))
	}

	h := help.New()
	h.ShowAll = m.showHelp
	h.Width = m.width
	helpView := h.View(m.keys)
	if m.showHelp {
		helpView += "\n" + m.commandsHelp()
	}
	lines = append(lines, m.theme.Help.Render(helpView))
	return strings.Join(lines, "\n")
}

func (m *Model) commandsHelp() string {
	var b strings.Builder
	for _, c := range Commands {
		fmt.Fprintf(&b, "%-9s %-16s %s\n", c.Name, c.Args, c.Description)
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m *Model) stagedView() string {
	staged := m.ctrl.Attachments().Snapshot()
	if staged.Empty() {
		return ""
	}
	chips := []string{m.theme.Muted.Render(m.text(locale.KeyUploadFilesText) + ":")}
	for _, f := range staged.Files {
		chips = append(chips, m.theme.Chip.Render(util.TruncateWidth(f.Name, 24)+" "+f.HumanSize()))
	}
	for _, img := range staged.Images {
		chips = append(chips, m.theme.Chip.Render("img "+util.TruncateWidth(img.Name, 20)+" "+img.HumanSize()))
	}
	return strings.Join(chips, " ")
}

// =============================================================================
// MESSAGE LOG
// =============================================================================

func (m *Model) logView() string {
	msgs := m.ctrl.Messages()
	if len(msgs) == 0 {
		return ""
	}
	phase := m.ctrl.Phase()
	width := maxInt(m.width-4, 20)

	var blocks []string
	var agents []model.Message
	botN := 0
	for _, msg := range msgs {
		if msg.IsStatus() {
			agents = append(agents, msg)
			continue
		}
		botIdx := 0
		if msg.Sender == model.SenderBot && !msg.Pending {
			botN++
			botIdx = botN
		}
		block := m.messageView(msg, botIdx, width, phase)
		if block != "" {
			blocks = append(blocks, block)
		}
	}
	if m.flags.DisplayAgents && len(agents) > 0 {
		blocks = append(blocks, m.agentsView(agents, width))
	}
	return strings.Join(blocks, "\n\n")
}

// agentsView is the collapsible agents' conversation panel.
func (m *Model) agentsView(msgs []model.Message, width int) string {
	hint := m.keys.Agents.Help().Key
	if !m.showAgents {
		return m.theme.Muted.Render(fmt.Sprintf("+ %s (%d)  [%s]", m.text(locale.KeyShowAgentsText), len(msgs), hint))
	}
	lines := []string{m.theme.Muted.Render(fmt.Sprintf("- %s  [%s]", m.text(locale.KeyHideAgentsText), hint))}
	for _, msg := range msgs {
		line := msg.Text
		if msg.Agent != "" {
			line = msg.Agent + ": " + line
		}
		lines = append(lines, m.theme.StatusText.Width(width).Render(line))
	}
	return strings.Join(lines, "\n")
}

func (m *Model) messageView(msg model.Message, botIdx, width int, phase controller.Phase) string {
	ts := m.theme.Timestamp.Render(msg.Timestamp.Format("15:04"))

	switch msg.Sender {
	case model.SenderUser:
		body := msg.Text
		if len(msg.FormAnswers) > 0 {
			body = form.FormatAnswers(msg.FormAnswers)
		}
		var extra []string
		for _, f := range msg.Attachments.Files {
			extra = append(extra, m.theme.Chip.Render(util.TruncateWidth(f.Name, 28)+" "+humanize.Bytes(uint64(f.Size))))
		}
		if n := len(msg.Attachments.ImagePreviews); n > 0 {
			extra = append(extra, m.theme.Chip.Render(fmt.Sprintf("%d image(s)", n)))
		}
		if len(extra) > 0 {
			if body != "" {
				body += "\n"
			}
			body += strings.Join(extra, " ")
		}
		return m.theme.UserLabel.Render(msg.Sender.DisplayName()) + " " + ts + "\n" +
			m.theme.UserBody.Width(width).Render(body)

	case model.SenderBot:
		if msg.Pending {
			if phase == controller.PhaseAwaiting {
				return m.theme.BotLabel.Render(msg.Sender.DisplayName()) + " " + m.spinner.View()
			}
			return ""
		}
		return m.botView(msg, botIdx, width, ts)

	case model.SenderDebug:
		return m.theme.DebugText.Render("debug: " + msg.Text)

	default:
		return m.theme.StatusText.Render(msg.Text)
	}
}

func (m *Model) botView(msg model.Message, botIdx, width int, ts string) string {
	label := m.theme.BotLabel.Render(fmt.Sprintf("%s #%d", msg.Sender.DisplayName(), botIdx))
	if m.selected == botIdx-1 {
		label = m.theme.Selected.Render("> ") + label
	}

	var body string
	if msg.Revealing {
		body = msg.VisibleText()
	} else if cached, ok := m.rendered[msg.ID]; ok {
		body = cached
	} else {
		body = m.renderer.Render(msg.Text, width-2)
		m.rendered[msg.ID] = body
	}
	if msg.Attachments.Files != nil {
		// Reply of a file-processing plugin.
		listing := m.processedView(msg.Attachments.Files)
		if strings.TrimSpace(msg.Text) == "" {
			body = listing
		} else {
			body += "\n" + listing
		}
	}
	for _, u := range msg.Attachments.ImageURLs {
		body += "\n" + m.theme.Muted.Render("image: "+u)
	}
	if m.flags.EnableAnalysis && m.analysisID == msg.ID {
		body += "\n" + m.analysisView(msg.Analysis, width-2)
	}

	var actions []string
	if m.flags.EnableFeedback && m.deps.Feedback != nil {
		like, dislike := "[+]", "[-]"
		switch m.deps.Feedback.Get(msg.ID) {
		case feedback.Like:
			like = m.theme.Liked.Render(like)
		case feedback.Dislike:
			dislike = m.theme.Disliked.Render(dislike)
		}
		actions = append(actions, like+" "+dislike)
	}
	if m.flags.EnableAudio && m.deps.Playback != nil {
		if m.playingID == msg.ID {
			actions = append(actions, m.theme.Success.Render(m.text(locale.KeyAudioPauseButton)))
		} else {
			actions = append(actions, m.theme.Muted.Render(m.text(locale.KeyAudioPlayButton)))
		}
	}
	if m.flags.EnableCopy {
		actions = append(actions, m.theme.Muted.Render(m.text(locale.KeyCopyButton)))
	}
	if m.flags.EnableAnalysis && !msg.Analysis.Empty() {
		actions = append(actions, m.theme.Muted.Render(m.text(locale.KeyThoughtProcess)))
	}

	out := label + " " + ts + "\n" + m.theme.BotBody.Width(width).Render(body)
	if len(actions) > 0 {
		out += "\n  " + strings.Join(actions, "  ")
	}
	return out
}

func (m *Model) processedView(files []model.FileRef) string {
	if len(files) == 0 {
		return m.theme.Muted.Render(m.text(locale.KeyNoProcessText))
	}
	lines := []string{m.text(locale.KeyProcessedFilesText) + ":"}
	for _, f := range files {
		line := "  " + util.TruncateWidth(f.Name, 48)
		if f.Size > 0 {
			line += " " + humanize.Bytes(uint64(f.Size))
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

// analysisView renders the reasoning sections of a reply. Empty sections
// say so.
func (m *Model) analysisView(a *model.Analysis, width int) string {
	if a == nil {
		a = &model.Analysis{}
	}
	indent := lipgloss.NewStyle().PaddingLeft(2).Width(maxInt(width, 10))
	none := indent.Render(m.theme.Muted.Render(m.text(locale.KeyNoContentFound)))

	var sections []string
	lines := []string{m.theme.Subtitle.Render(m.text(locale.KeyThoughtProcess))}
	for i, t := range a.Thoughts {
		title := t.Title
		if title == "" {
			title = "No title"
		}
		lines = append(lines, indent.Render(fmt.Sprintf("%d. %s", i+1, title)))
		if len(t.Props) > 0 {
			var props []string
			for _, k := range slices.Sorted(maps.Keys(t.Props)) {
				props = append(props, k+": "+t.Props[k])
			}
			lines = append(lines, indent.Render(m.theme.Chip.Render(strings.Join(props, "  "))))
		}
		if t.Description != "" {
			lines = append(lines, indent.Render(m.theme.Muted.Render(t.Description)))
		}
	}
	if len(a.Thoughts) == 0 {
		lines = append(lines, none)
	}
	sections = append(sections, strings.Join(lines, "\n"))

	lines = []string{m.theme.Subtitle.Render(m.text(locale.KeySupportingContent))}
	for _, item := range a.Support {
		title, content := "Info", item
		if i := strings.Index(item, ": "); i >= 0 {
			title, content = item[:i], item[i+2:]
		}
		lines = append(lines, indent.Render(title+"\n"+m.theme.Muted.Render(content)))
	}
	if len(a.Support) == 0 {
		lines = append(lines, none)
	}
	sections = append(sections, strings.Join(lines, "\n"))

	lines = []string{m.theme.Subtitle.Render(m.text(locale.KeyCitations))}
	for i, c := range a.Citations {
		lines = append(lines, indent.Render(fmt.Sprintf("%s %d: %s", m.text(locale.KeyCitationDocument), i+1, c)))
	}
	if len(a.Citations) == 0 {
		lines = append(lines, none)
	}
	sections = append(sections, strings.Join(lines, "\n"))

	return strings.Join(sections, "\n")
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
