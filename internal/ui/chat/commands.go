// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/vachat/internal/attachments"
	"github.com/jeranaias/vachat/internal/export"
	"github.com/jeranaias/vachat/internal/feedback"
	"github.com/jeranaias/vachat/internal/locale"
	"github.com/jeranaias/vachat/internal/util"
)

// Command is one slash command.
type Command struct {
	Name        string
	Args        string
	Description string
}

// Commands lists the slash commands for /help.
var Commands = []Command{
	{"/attach", "<path>", "stage a file or image"},
	{"/files", "", "list staged attachments"},
	{"/remove", "file|image <n>", "unstage one attachment"},
	{"/clear", "", "unstage everything"},
	{"/like", "[n]", "like reply n (default: selected or newest)"},
	{"/dislike", "[n]", "dislike reply n"},
	{"/copy", "[n]", "copy reply n to the clipboard"},
	{"/play", "[n]", "play or stop reply n"},
	{"/dictate", "", "start or stop speech input"},
	{"/agents", "", "show or hide the agents' conversation"},
	{"/analysis", "[n]", "show the reasoning behind reply n"},
	{"/export", "[md|json]", "save the conversation to a file"},
	{"/theme", "", "switch dark/light"},
	{"/lang", "[code]", "change language"},
	{"/new", "", "start a new conversation"},
	{"/help", "", "show keys and commands"},
	{"/quit", "", "leave"},
}

// runCommand executes a slash command line.
func (m *Model) runCommand(line string) tea.Cmd {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	name, args := strings.ToLower(fields[0]), fields[1:]

	switch name {
	case "/attach", "/a":
		if len(args) == 0 {
			return m.setFlash("usage: /attach <path>", true)
		}
		return m.attach(strings.Join(args, " "))
	case "/files":
		return m.setFlash(m.stagedSummary(), false)
	case "/remove", "/rm":
		return m.removeStaged(args)
	case "/clear":
		m.ctrl.Attachments().Clear()
		return m.setFlash(m.text(locale.KeyDeleteAllButton), false)
	case "/like":
		return m.rate(feedback.Like, argIndex(args))
	case "/dislike":
		return m.rate(feedback.Dislike, argIndex(args))
	case "/copy":
		return m.copyMessage(argIndex(args))
	case "/play", "/stop":
		return m.togglePlay(argIndex(args))
	case "/dictate", "/mic":
		return m.toggleDictation()
	case "/agents":
		m.toggleAgents()
		return nil
	case "/analysis", "/why":
		return m.toggleAnalysis(argIndex(args))
	case "/export":
		format := ""
		if len(args) > 0 {
			format = args[0]
		}
		return m.exportConversation(format)
	case "/theme":
		if m.flags.EnableDarkMode {
			m.toggleTheme()
		}
		return nil
	case "/lang", "/language":
		if len(args) == 0 {
			return m.openLanguagePicker()
		}
		return m.handlePickedLanguage(args[0])
	case "/new", "/reload":
		return m.reload()
	case "/help", "/?":
		m.showHelp = !m.showHelp
		m.layout()
		return nil
	case "/quit", "/exit":
		m.shutdown()
		m.quitting = true
		return tea.Quit
	}
	return m.setFlash(fmt.Sprintf("unknown command %s (try /help)", name), true)
}

func (m *Model) attach(path string) tea.Cmd {
	store := m.ctrl.Attachments()
	kind, err := store.AddPath(path)
	switch {
	case errors.Is(err, attachments.ErrFilesDisabled), errors.Is(err, attachments.ErrImagesDisabled):
		return m.setFlash("attachments are disabled", true)
	case err != nil:
		return m.setFlash(err.Error(), true)
	}
	m.layout()
	return m.setFlash(fmt.Sprintf("%s %s: %s", m.text(locale.KeyUploadedFilesText), kind, path), false)
}

func (m *Model) removeStaged(args []string) tea.Cmd {
	if len(args) != 2 {
		return m.setFlash("usage: /remove file|image <n>", true)
	}
	n, err := strconv.Atoi(args[1])
	if err != nil || n < 1 {
		return m.setFlash("usage: /remove file|image <n>", true)
	}
	store := m.ctrl.Attachments()
	switch strings.ToLower(args[0]) {
	case "file", "f":
		err = store.RemoveFile(n - 1)
	case "image", "img", "i":
		err = store.RemoveImage(n - 1)
	default:
		return m.setFlash("usage: /remove file|image <n>", true)
	}
	if err != nil {
		return m.setFlash(err.Error(), true)
	}
	m.layout()
	return nil
}

func (m *Model) stagedSummary() string {
	staged := m.ctrl.Attachments().Snapshot()
	if staged.Empty() {
		return "nothing staged"
	}
	var parts []string
	for i, f := range staged.Files {
		parts = append(parts, fmt.Sprintf("file %d: %s (%s)", i+1, util.TruncateWidth(f.Name, 32), f.HumanSize()))
	}
	for i, img := range staged.Images {
		parts = append(parts, fmt.Sprintf("image %d: %s (%s)", i+1, util.TruncateWidth(img.Name, 32), img.HumanSize()))
	}
	return strings.Join(parts, "; ")
}

func (m *Model) exportConversation(format string) tea.Cmd {
	opts := export.DefaultOptions()
	if m.deps.ExportDir != "" {
		opts.OutputDir = m.deps.ExportDir
	}
	exporter, err := export.ForFormat(format, opts)
	if err != nil {
		return m.setFlash(err.Error(), true)
	}

	t := &export.Transcript{
		Title:     m.doc.Title,
		Language:  m.ctrl.Language(),
		SessionID: m.ctrl.Session().SessionID,
		Messages:  m.ctrl.Messages(),
	}
	if p, ok := m.ctrl.Plugin(); ok {
		t.Plugin = p.Title
		if t.Title == "" {
			t.Title = p.Title
		}
	}
	path, err := export.ToFile(t, exporter, opts)
	if err != nil {
		return m.setFlash(err.Error(), true)
	}
	m.log.WithField("path", path).Info("conversation exported")
	return m.setFlash("exported to "+path, false)
}

func (m *Model) handlePickedLanguage(code string) tea.Cmd {
	if !m.flags.EnableLanguages {
		return nil
	}
	if !m.doc.HasLanguage(code) {
		return m.setFlash("unknown language "+code, true)
	}
	m.ctrl.SetLanguage(code)
	m.applyLanguage()
	m.rendered = make(map[string]string)
	if m.deps.SaveLanguage != nil {
		if err := m.deps.SaveLanguage(code); err != nil {
			m.log.WithError(err).Warn("failed to save language")
		}
	}
	m.refresh()
	return nil
}

func argIndex(args []string) int {
	if len(args) == 0 {
		return 0
	}
	n, err := strconv.Atoi(strings.TrimPrefix(args[0], "#"))
	if err != nil || n < 1 {
		return 0
	}
	return n
}
