// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/vachat/internal/config"
	"github.com/jeranaias/vachat/internal/controller"
	"github.com/jeranaias/vachat/internal/feedback"
	"github.com/jeranaias/vachat/internal/locale"
	"github.com/jeranaias/vachat/internal/model"
	"github.com/jeranaias/vachat/internal/session"
	"github.com/jeranaias/vachat/internal/speech"
	"github.com/jeranaias/vachat/internal/ui/components"
)

// Update handles one event.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		return m, m.handleKey(msg)

	case components.PickedMsg:
		return m, m.handlePicked(msg)

	case components.PickerCancelledMsg:
		m.screen = screenChat
		return m, nil

	case components.ReloadRequestedMsg:
		return m, m.reload()

	case exchangeDoneMsg:
		return m, m.handleExchange(msg)

	case revealTickMsg:
		return m, m.handleReveal()

	case playbackMsg:
		if msg.Playing {
			m.playingID = msg.ID
		} else if m.playingID == msg.ID {
			m.playingID = ""
		}
		m.refresh()
		return m, waitForEvent(m.events)

	case dictationTextMsg:
		m.input.SetValue(speech.AppendTranscript(m.input.Value(), msg.Text))
		m.input.CursorEnd()
		return m, waitForEvent(m.events)

	case dictationStoppedMsg:
		m.listening = false
		var cmd tea.Cmd
		if msg.Err != nil {
			cmd = m.setFlash(msg.Err.Error(), true)
		}
		return m, tea.Batch(cmd, waitForEvent(m.events))

	case flashMsg:
		return m, m.setFlash(msg.Text, msg.Error)

	case flashExpiredMsg:
		if msg.ID == m.flashID {
			m.flash = ""
		}
		return m, nil

	case copiedMsg:
		if msg.Err != nil {
			m.log.WithError(msg.Err).Warn("clipboard write failed")
			return m, m.setFlash(msg.Err.Error(), true)
		}
		return m, m.setFlash(m.text(locale.KeyCopiedText), false)

	case spinner.TickMsg:
		if !m.ctrl.Phase().Loading() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		m.refresh()
		return m, cmd
	}
	return m, nil
}

// =============================================================================
// KEYS
// =============================================================================

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	if key.Matches(msg, m.keys.Quit) {
		m.shutdown()
		m.quitting = true
		return tea.Quit
	}

	switch m.screen {
	case screenLanguage:
		var cmd tea.Cmd
		m.langPicker, cmd = m.langPicker.Update(msg)
		return cmd
	case screenPlugins:
		var cmd tea.Cmd
		m.plugPicker, cmd = m.plugPicker.Update(msg)
		return cmd
	}

	if m.lifecycle.ModalVisible() {
		var cmd tea.Cmd
		m.lifecycle, cmd = m.lifecycle.Update(msg)
		return cmd
	}

	switch {
	case key.Matches(msg, m.keys.Reload):
		return m.reload()
	case key.Matches(msg, m.keys.NewChat) && m.flags.EnableNewChat:
		return m.reload()
	case key.Matches(msg, m.keys.Theme) && m.flags.EnableDarkMode:
		m.toggleTheme()
		return nil
	case key.Matches(msg, m.keys.Language):
		return m.openLanguagePicker()
	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
		m.layout()
		return nil
	case key.Matches(msg, m.keys.PageUp):
		m.viewport.HalfViewUp()
		return nil
	case key.Matches(msg, m.keys.PageDown):
		m.viewport.HalfViewDown()
		return nil
	case key.Matches(msg, m.keys.SelectPrev):
		m.moveSelection(-1)
		return nil
	case key.Matches(msg, m.keys.SelectNext):
		m.moveSelection(1)
		return nil
	case key.Matches(msg, m.keys.Like):
		return m.rate(feedback.Like, 0)
	case key.Matches(msg, m.keys.Dislike):
		return m.rate(feedback.Dislike, 0)
	case key.Matches(msg, m.keys.Copy):
		return m.copyMessage(0)
	case key.Matches(msg, m.keys.Play):
		return m.togglePlay(0)
	case key.Matches(msg, m.keys.Dictate):
		return m.toggleDictation()
	case key.Matches(msg, m.keys.Agents):
		m.toggleAgents()
		return nil
	case key.Matches(msg, m.keys.Analysis):
		return m.toggleAnalysis(0)
	}

	phase := m.ctrl.Phase()
	if phase.Terminal() {
		var cmd tea.Cmd
		m.lifecycle, cmd = m.lifecycle.Update(msg)
		return cmd
	}

	if m.form != nil && phase == controller.PhaseForm {
		submit, cmd := m.form.handleKey(msg, m.keys)
		if submit {
			return m.submitForm()
		}
		m.layout()
		return cmd
	}

	if key.Matches(msg, m.keys.Submit) {
		return m.send()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return cmd
}

// =============================================================================
// TURNS
// =============================================================================

func (m *Model) bootstrap() tea.Cmd {
	if m.filesMode() {
		// File-processing plugins open no session up front.
		return nil
	}
	turn, err := m.ctrl.BeginBootstrap()
	if err != nil {
		m.log.WithError(err).Debug("bootstrap skipped")
		return nil
	}
	m.refresh()
	return tea.Batch(exchangeCmd(m.ctrl, turn, m.deps.ExchangeTimeout), m.spinner.Tick)
}

func (m *Model) send() tea.Cmd {
	text := m.input.Value()
	if strings.HasPrefix(strings.TrimSpace(text), "/") {
		m.input.Reset()
		return m.runCommand(strings.TrimSpace(text))
	}
	if m.filesMode() {
		return m.upload()
	}

	turn, err := m.ctrl.BeginSend(text)
	switch {
	case errors.Is(err, controller.ErrEmptyMessage), errors.Is(err, controller.ErrInputDisabled):
		return nil
	case err != nil:
		return m.setFlash(err.Error(), true)
	}

	m.input.Reset()
	if m.listening && m.deps.Dictation != nil {
		m.deps.Dictation.Stop()
	}
	m.selected = -1
	m.refresh()
	return tea.Batch(exchangeCmd(m.ctrl, turn, m.deps.ExchangeTimeout), m.spinner.Tick)
}

func (m *Model) upload() tea.Cmd {
	turn, err := m.ctrl.BeginUpload()
	switch {
	case errors.Is(err, controller.ErrNoFiles):
		return m.setFlash(m.text(locale.KeyNoUploadText), true)
	case errors.Is(err, controller.ErrInputDisabled):
		return nil
	case err != nil:
		return m.setFlash(err.Error(), true)
	}
	m.input.Reset()
	m.layout()
	m.refresh()
	return tea.Batch(exchangeCmd(m.ctrl, turn, m.deps.ExchangeTimeout), m.spinner.Tick)
}

func (m *Model) submitForm() tea.Cmd {
	turn, err := m.ctrl.BeginFormSubmit()
	switch {
	case errors.Is(err, controller.ErrFormIncomplete):
		m.layout()
		return nil
	case errors.Is(err, controller.ErrInputDisabled):
		return nil
	case err != nil:
		return m.setFlash(err.Error(), true)
	}
	m.form = nil
	m.layout()
	m.refresh()
	return tea.Batch(exchangeCmd(m.ctrl, turn, m.deps.ExchangeTimeout), m.spinner.Tick)
}

func (m *Model) handleExchange(msg exchangeDoneMsg) tea.Cmd {
	out := m.ctrl.Complete(msg.Turn, msg.Response, msg.Err)
	if out.Stale {
		return nil
	}

	var cmds []tea.Cmd
	if out.Err != nil {
		m.flash = m.text(locale.KeyConnectionError)
		m.flashErr = true
	}
	m.syncForm()
	m.syncLifecycle()

	if out.Phase == controller.PhaseRevealing {
		cmds = append(cmds, revealTick(m.deps.RevealTick))
	} else if out.Reply != nil {
		m.observeForAutoPlay(*out.Reply)
	}
	m.layout()
	m.refresh()
	return tea.Batch(cmds...)
}

func (m *Model) handleReveal() tea.Cmd {
	done := m.ctrl.Advance(m.deps.RevealRunes)
	m.refresh()
	if !done {
		return revealTick(m.deps.RevealTick)
	}
	m.syncForm()
	m.syncLifecycle()
	m.layout()
	if last, ok := m.ctrl.LastReply(); ok {
		m.observeForAutoPlay(last)
	}
	return nil
}

func (m *Model) observeForAutoPlay(msg model.Message) {
	if m.deps.AutoPlayer == nil || !m.flags.EnableAudio || !m.flags.EnableAutoPlay {
		return
	}
	if m.ctrl.Phase().Terminal() {
		return
	}
	m.deps.AutoPlayer.Observe(msg)
}

// syncForm keeps the editor aligned with the controller's active form.
func (m *Model) syncForm() {
	f := m.ctrl.Form()
	switch {
	case f == nil:
		m.form = nil
	case m.form == nil || m.form.form != f:
		if m.ctrl.Phase() == controller.PhaseForm {
			m.form = newFormEditor(f, m.width)
		}
	}
}

// syncLifecycle shows the expired/ended notice once the phase is terminal.
func (m *Model) syncLifecycle() {
	phase := m.ctrl.Phase()
	if !phase.Terminal() || m.lifecycle.State() != components.LifecycleNone {
		return
	}
	button := m.text(locale.KeyUpdateButton)
	length := fmt.Sprintf(" (%s: %s)", m.text(locale.KeySessionLengthText),
		session.FormatDuration(m.ctrl.Session().Duration))
	if phase == controller.PhaseExpired {
		m.lifecycle.Show(components.LifecycleExpired, components.LifecycleText{
			Title:    m.text(locale.KeyExpiredText),
			Subtitle: m.text(locale.KeyExpiredSubText) + length,
			Button:   button,
		}, m.flags.EnableExpiredNotification, m.flags.EnableExpiredPopup)
	} else {
		m.lifecycle.Show(components.LifecycleEnded, components.LifecycleText{
			Title:    m.text(locale.KeyEndedText),
			Subtitle: m.text(locale.KeyEndedSubText) + length,
			Button:   button,
		}, m.flags.EnableEndedNotification, m.flags.EnableEndedPopup)
	}
	m.stopAudio()
	m.input.Blur()
}

// reload throws away the conversation and bootstraps again.
func (m *Model) reload() tea.Cmd {
	m.stopAudio()
	m.ctrl.Reload()
	if m.deps.Feedback != nil {
		m.deps.Feedback.Reset()
	}
	if m.deps.AutoPlayer != nil {
		m.deps.AutoPlayer.Reset()
	}
	m.form = nil
	m.lifecycle.Hide()
	m.rendered = make(map[string]string)
	m.selected = -1
	m.analysisID = ""
	m.flash = ""
	m.input.Reset()
	m.input.Focus()
	m.layout()
	m.refresh()
	return m.bootstrap()
}

func (m *Model) stopAudio() {
	if m.deps.Playback != nil {
		m.deps.Playback.Stop()
	}
	if m.listening && m.deps.Dictation != nil {
		m.deps.Dictation.Stop()
	}
}

func (m *Model) shutdown() {
	m.stopAudio()
	if m.deps.Feedback != nil {
		m.deps.Feedback.Wait()
	}
}

// =============================================================================
// PICKERS
// =============================================================================

func (m *Model) handlePicked(msg components.PickedMsg) tea.Cmd {
	switch msg.Picker {
	case pickerLanguage:
		m.ctrl.SetLanguage(msg.Item.ID)
		m.applyLanguage()
		m.rendered = make(map[string]string)
		if m.deps.SaveLanguage != nil {
			if err := m.deps.SaveLanguage(msg.Item.ID); err != nil {
				m.log.WithError(err).Warn("failed to save language")
			}
		}
		if _, active := m.ctrl.Plugin(); !active {
			m.afterLanguage()
			if m.screen == screenChat {
				return m.bootstrap()
			}
			return nil
		}
		m.screen = screenChat
		m.refresh()
		return nil

	case pickerPlugin:
		if msg.Index < 0 || msg.Index >= len(m.deps.Catalog.Plugins) {
			return nil
		}
		m.activate(m.deps.Catalog.Plugins[msg.Index])
		m.layout()
		return m.bootstrap()
	}
	return nil
}

func (m *Model) openLanguagePicker() tea.Cmd {
	if !m.flags.EnableLanguages || len(m.doc.Languages) == 0 {
		return nil
	}
	items := make([]components.PickerItem, len(m.doc.Languages))
	for i, l := range m.doc.Languages {
		items[i] = components.PickerItem{ID: l.Code, Title: strings.TrimSpace(l.Flag + " " + l.Label)}
	}
	title := config.Label(m.doc.AvailableLanguagesTitle, m.ctrl.Language(), "Choose a language")
	m.langPicker = components.NewPicker(pickerLanguage, title, items)
	m.langPicker.SetCancellable(true)
	m.langPicker.SetCursorID(m.ctrl.Language())
	m.screen = screenLanguage
	return nil
}

// =============================================================================
// MESSAGE ACTIONS
// =============================================================================

// targetBot resolves the bot message an action applies to: number n
// (1-based among replies), else the selection, else the newest reply.
func (m *Model) targetBot(n int) (model.Message, bool) {
	bots := botMessages(m.ctrl.Messages())
	if len(bots) == 0 {
		return model.Message{}, false
	}
	idx := len(bots) - 1
	switch {
	case n > 0:
		if n > len(bots) {
			return model.Message{}, false
		}
		idx = n - 1
	case m.selected >= 0 && m.selected < len(bots):
		idx = m.selected
	}
	return bots[idx], true
}

func (m *Model) moveSelection(delta int) {
	bots := botMessages(m.ctrl.Messages())
	if len(bots) == 0 {
		return
	}
	if m.selected < 0 {
		m.selected = len(bots) - 1
	} else {
		m.selected += delta
	}
	if m.selected < 0 {
		m.selected = 0
	}
	if m.selected >= len(bots) {
		m.selected = len(bots) - 1
	}
	m.refresh()
}

func (m *Model) rate(v feedback.Value, n int) tea.Cmd {
	if !m.flags.EnableFeedback || m.deps.Feedback == nil {
		return nil
	}
	msg, ok := m.targetBot(n)
	if !ok {
		return nil
	}
	m.deps.Feedback.Toggle(msg.ID, v)
	m.refresh()
	return nil
}

func (m *Model) copyMessage(n int) tea.Cmd {
	if !m.flags.EnableCopy {
		return nil
	}
	msg, ok := m.targetBot(n)
	if !ok {
		return nil
	}
	return copyCmd(m.deps.Clipboard, msg.Text)
}

func (m *Model) togglePlay(n int) tea.Cmd {
	if !m.flags.EnableAudio || m.deps.Playback == nil {
		return nil
	}
	msg, ok := m.targetBot(n)
	if !ok {
		return nil
	}
	if m.deps.AutoPlayer != nil {
		m.deps.AutoPlayer.MarkPlayed(msg.ID)
	}
	m.deps.Playback.Toggle(msg.ID, msg.Text, m.ctrl.Language())
	return nil
}

func (m *Model) toggleDictation() tea.Cmd {
	if !m.flags.EnableSpeechInput || m.deps.Dictation == nil {
		return nil
	}
	if m.listening {
		m.deps.Dictation.Stop()
		m.listening = false
		return nil
	}
	if !m.ctrl.InputEnabled() || m.ctrl.Phase() == controller.PhaseForm {
		return nil
	}
	err := m.deps.Dictation.Start(m.ctrl.Language(),
		func(text string) { m.emit(dictationTextMsg{Text: text}) },
		func(err error) { m.emit(dictationStoppedMsg{Err: err}) },
	)
	if err != nil {
		return m.setFlash(err.Error(), true)
	}
	m.listening = true
	return nil
}

func (m *Model) toggleAgents() {
	if !m.flags.DisplayAgents {
		return
	}
	m.showAgents = !m.showAgents
	m.refresh()
}

// toggleAnalysis opens the analysis panel of reply n, or closes it when it
// is already open.
func (m *Model) toggleAnalysis(n int) tea.Cmd {
	if !m.flags.EnableAnalysis {
		return nil
	}
	msg, ok := m.targetBot(n)
	if !ok {
		return nil
	}
	if m.analysisID == msg.ID {
		m.analysisID = ""
		m.refresh()
		return nil
	}
	if msg.Analysis.Empty() {
		return m.setFlash(m.text(locale.KeyNoContentFound), false)
	}
	m.analysisID = msg.ID
	m.refresh()
	return nil
}

func (m *Model) toggleTheme() {
	m.theme.Toggle()
	m.renderer = newMarkdown(m.theme.GlamourStyle())
	m.spinner.Style = m.theme.Muted
	m.rendered = make(map[string]string)
	m.refresh()
}

func (m *Model) setFlash(text string, isErr bool) tea.Cmd {
	m.flashID++
	m.flash = text
	m.flashErr = isErr
	return flashExpire(m.flashID)
}

func botMessages(msgs []model.Message) []model.Message {
	var out []model.Message
	for _, msg := range msgs {
		if msg.Sender == model.SenderBot && !msg.Pending {
			out = append(out, msg)
		}
	}
	return out
}
