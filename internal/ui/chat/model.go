// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"

	"github.com/jeranaias/vachat/internal/config"
	"github.com/jeranaias/vachat/internal/controller"
	"github.com/jeranaias/vachat/internal/feedback"
	"github.com/jeranaias/vachat/internal/locale"
	"github.com/jeranaias/vachat/internal/logging"
	"github.com/jeranaias/vachat/internal/plugin"
	"github.com/jeranaias/vachat/internal/speech"
	"github.com/jeranaias/vachat/internal/ui/components"
	"github.com/jeranaias/vachat/internal/ui/styles"
)

// =============================================================================
// DEPENDENCIES
// =============================================================================

// Deps is everything the chat program needs. Optional members may be nil;
// the matching feature is then unavailable regardless of its flag.
type Deps struct {
	Controller *controller.Controller
	Document   *config.ClientDocument
	Strings    *locale.Strings
	Theme      *styles.Theme
	Logger     logrus.FieldLogger

	// Catalog lists the plugins; nil or empty means Plugin must be set.
	Catalog *plugin.Catalog
	// Plugin preselects a plugin and skips the picker.
	Plugin *plugin.Plugin
	// NewExchanger builds the orchestrator client for a plugin.
	NewExchanger func(plugin.Plugin) controller.Exchanger

	// Language holds the outcome of language selection.
	Language locale.Choice
	// SaveLanguage persists a picked language; errors are logged.
	SaveLanguage func(code string) error

	Feedback   *feedback.Tracker
	Playback   *speech.Playback
	AutoPlayer *speech.AutoPlayer
	Dictation  *speech.Dictation

	// Clipboard defaults to the system clipboard.
	Clipboard func(string) error
	// ExportDir receives /export files. Default: current directory.
	ExportDir string

	ExchangeTimeout time.Duration
	RevealRunes     int
	RevealTick      time.Duration
}

// =============================================================================
// MODEL
// =============================================================================

type screen int

const (
	screenLanguage screen = iota
	screenPlugins
	screenChat
)

// Model is the root Bubble Tea model.
type Model struct {
	deps  Deps
	ctrl  *controller.Controller
	doc   *config.ClientDocument
	flags config.FeatureFlags
	theme *styles.Theme
	log   logrus.FieldLogger
	keys  KeyMap

	screen     screen
	langPicker components.Picker
	plugPicker components.Picker
	lifecycle  components.Lifecycle

	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model
	form     *formEditor

	events chan tea.Msg

	// Display state
	width     int
	height    int
	ready     bool
	showHelp  bool
	flash     string
	flashErr  bool
	flashID   int
	listening bool
	playingID string
	selected  int

	// showAgents expands the agents' conversation panel.
	showAgents bool
	// analysisID is the reply whose analysis panel is open.
	analysisID string

	// rendered caches glamour output per message id.
	rendered map[string]string
	renderer *markdown

	quitting bool
}

// New creates the model.
func New(deps Deps) *Model {
	if deps.Theme == nil {
		deps.Theme = styles.NewTheme(styles.ModeAuto)
	}
	if deps.Document == nil {
		deps.Document = config.DefaultClientDocument()
	}
	if deps.Strings == nil {
		deps.Strings = locale.New(nil)
	}
	if deps.Clipboard == nil {
		deps.Clipboard = clipboard.WriteAll
	}
	if deps.ExchangeTimeout <= 0 {
		deps.ExchangeTimeout = 60 * time.Second
	}
	if deps.RevealRunes <= 0 {
		deps.RevealRunes = 3
	}
	if deps.RevealTick <= 0 {
		deps.RevealTick = 20 * time.Millisecond
	}

	m := &Model{
		deps:      deps,
		ctrl:      deps.Controller,
		doc:       deps.Document,
		flags:     deps.Document.Features,
		theme:     deps.Theme,
		log:       logging.OrDiscard(deps.Logger),
		keys:      DefaultKeyMap(),
		lifecycle: components.NewLifecycle(),
		events:    make(chan tea.Msg, 32),
		rendered:  make(map[string]string),
		selected:  -1,
	}
	m.renderer = newMarkdown(m.theme.GlamourStyle())

	m.input = textinput.New()
	m.input.Prompt = "> "
	m.input.CharLimit = 4000
	m.input.Focus()

	m.spinner = spinner.New()
	m.spinner.Spinner = spinner.Dot
	m.spinner.Style = m.theme.Muted

	m.viewport = viewport.New(80, 20)

	m.wireCallbacks()
	m.chooseStartScreen()
	m.applyLanguage()
	return m
}

// wireCallbacks routes audio and dictation callbacks into the event channel.
func (m *Model) wireCallbacks() {
	if m.deps.Playback != nil {
		m.deps.Playback.OnChange(func(id string, playing bool) {
			m.emit(playbackMsg{ID: id, Playing: playing})
		})
	}
}

func (m *Model) emit(msg tea.Msg) {
	select {
	case m.events <- msg:
	default:
		m.log.Debug("ui event dropped")
	}
}

func (m *Model) chooseStartScreen() {
	if m.deps.Language.ShowPicker && len(m.doc.Languages) > 0 {
		items := make([]components.PickerItem, len(m.doc.Languages))
		for i, l := range m.doc.Languages {
			title := l.Label
			if l.Flag != "" {
				title = l.Flag + " " + title
			}
			items[i] = components.PickerItem{ID: l.Code, Title: title}
		}
		title := config.Label(m.doc.AvailableLanguagesTitle, m.ctrl.Language(), "Choose a language")
		m.langPicker = components.NewPicker(pickerLanguage, title, items)
		m.screen = screenLanguage
		return
	}
	if m.deps.Language.Language != "" {
		m.ctrl.SetLanguage(m.deps.Language.Language)
	}
	m.afterLanguage()
}

// afterLanguage moves to plugin selection or straight into the chat.
func (m *Model) afterLanguage() {
	if m.deps.Plugin != nil {
		m.activate(*m.deps.Plugin)
		return
	}
	if p, ok := m.deps.Catalog.AutoSelect(); ok {
		m.activate(p)
		return
	}
	if m.deps.Catalog != nil && len(m.deps.Catalog.Plugins) > 0 {
		items := make([]components.PickerItem, len(m.deps.Catalog.Plugins))
		for i, p := range m.deps.Catalog.Plugins {
			items[i] = components.PickerItem{ID: p.Title, Title: p.Title, Description: p.Description}
		}
		title := ""
		if m.flags.PluginsTitleOption {
			title = m.doc.PluginsTitle
		}
		m.plugPicker = components.NewPicker(pickerPlugin, title, items)
		m.screen = screenPlugins
		return
	}
	m.screen = screenChat
}

func (m *Model) activate(p plugin.Plugin) {
	var ex controller.Exchanger
	if m.deps.NewExchanger != nil {
		ex = m.deps.NewExchanger(p)
	}
	m.ctrl.SetPlugin(p, ex)
	m.screen = screenChat
	m.applyLanguage()
}

// filesMode reports whether the active plugin processes uploads instead of
// chatting. Enter then sends the staged files.
func (m *Model) filesMode() bool {
	p, ok := m.ctrl.Plugin()
	return ok && p.ProcessesFiles()
}

func (m *Model) applyLanguage() {
	if m.filesMode() {
		m.input.Placeholder = m.text(locale.KeyUploadFilesText) + ": /attach <path>"
		return
	}
	m.input.Placeholder = m.text(locale.KeyChatPlaceholder)
}

// text looks up a localized string in the display language.
func (m *Model) text(key string) string {
	return m.deps.Strings.Get(key, m.ctrl.Language())
}

// Init starts the spinner, the event pump and, when a plugin is active, the
// bootstrap call.
func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{textinput.Blink, waitForEvent(m.events)}
	if m.screen == screenChat {
		cmds = append(cmds, m.bootstrap())
	}
	return tea.Batch(cmds...)
}

// Quitting reports whether the user asked to leave.
func (m *Model) Quitting() bool {
	return m.quitting
}
