// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/vachat/internal/controller"
	"github.com/jeranaias/vachat/internal/orchestrator"
)

const (
	pickerLanguage = "language"
	pickerPlugin   = "plugin"

	flashDuration = 3 * time.Second
)

// =============================================================================
// MESSAGES
// =============================================================================

// exchangeDoneMsg carries an orchestrator reply back into Update.
type exchangeDoneMsg struct {
	Turn     *controller.Turn
	Response *orchestrator.Response
	Err      error
}

// revealTickMsg advances an incremental reply.
type revealTickMsg struct{}

// playbackMsg reports a stream starting or stopping.
type playbackMsg struct {
	ID      string
	Playing bool
}

// dictationTextMsg delivers one cleaned utterance.
type dictationTextMsg struct {
	Text string
}

// dictationStoppedMsg reports the end of capture.
type dictationStoppedMsg struct {
	Err error
}

// flashMsg shows a transient status line.
type flashMsg struct {
	Text  string
	Error bool
}

// flashExpiredMsg clears a flash if it is still the one shown.
type flashExpiredMsg struct {
	ID int
}

// copiedMsg reports a clipboard write.
type copiedMsg struct {
	Err error
}

// =============================================================================
// COMMANDS
// =============================================================================

// exchangeCmd runs the network step of a turn off the update loop.
func exchangeCmd(ctrl *controller.Controller, turn *controller.Turn, timeout time.Duration) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		resp, err := ctrl.Exchange(ctx, turn)
		return exchangeDoneMsg{Turn: turn, Response: resp, Err: err}
	}
}

func revealTick(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg { return revealTickMsg{} })
}

// waitForEvent relays one callback event; Update re-arms it.
func waitForEvent(ch <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		return <-ch
	}
}

func flashExpire(id int) tea.Cmd {
	return tea.Tick(flashDuration, func(time.Time) tea.Msg { return flashExpiredMsg{ID: id} })
}

func copyCmd(write func(string) error, text string) tea.Cmd {
	return func() tea.Msg {
		return copiedMsg{Err: write(text)}
	}
}
