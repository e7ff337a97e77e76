// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the chat key bindings.
type KeyMap struct {
	Submit     key.Binding
	Quit       key.Binding
	Reload     key.Binding
	NewChat    key.Binding
	Theme      key.Binding
	Language   key.Binding
	Dictate    key.Binding
	Play       key.Binding
	Copy       key.Binding
	Like       key.Binding
	Dislike    key.Binding
	SelectPrev key.Binding
	SelectNext key.Binding
	PageUp     key.Binding
	PageDown   key.Binding
	Agents     key.Binding
	Analysis   key.Binding
	Help       key.Binding

	// Form navigation
	NextField  key.Binding
	PrevField  key.Binding
	NextOption key.Binding
	PrevOption key.Binding
	Toggle     key.Binding
	SubmitForm key.Binding
}

// DefaultKeyMap returns the default bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Submit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("Enter", "send"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c", "ctrl+q"),
			key.WithHelp("C-c", "quit"),
		),
		Reload: key.NewBinding(
			key.WithKeys("ctrl+r"),
			key.WithHelp("C-r", "reload"),
		),
		NewChat: key.NewBinding(
			key.WithKeys("ctrl+n"),
			key.WithHelp("C-n", "new chat"),
		),
		Theme: key.NewBinding(
			key.WithKeys("ctrl+t"),
			key.WithHelp("C-t", "dark/light"),
		),
		Language: key.NewBinding(
			key.WithKeys("ctrl+g"),
			key.WithHelp("C-g", "language"),
		),
		Dictate: key.NewBinding(
			key.WithKeys("ctrl+o"),
			key.WithHelp("C-o", "dictate"),
		),
		Play: key.NewBinding(
			key.WithKeys("ctrl+p"),
			key.WithHelp("C-p", "play/stop"),
		),
		Copy: key.NewBinding(
			key.WithKeys("ctrl+y"),
			key.WithHelp("C-y", "copy"),
		),
		Like: key.NewBinding(
			key.WithKeys("alt+l"),
			key.WithHelp("M-l", "like"),
		),
		Dislike: key.NewBinding(
			key.WithKeys("alt+d"),
			key.WithHelp("M-d", "dislike"),
		),
		SelectPrev: key.NewBinding(
			key.WithKeys("alt+up", "ctrl+k"),
			key.WithHelp("M-up", "previous reply"),
		),
		SelectNext: key.NewBinding(
			key.WithKeys("alt+down", "ctrl+j"),
			key.WithHelp("M-down", "next reply"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("pgup"),
			key.WithHelp("PgUp", "scroll up"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("pgdown"),
			key.WithHelp("PgDn", "scroll down"),
		),
		Agents: key.NewBinding(
			key.WithKeys("alt+a"),
			key.WithHelp("M-a", "agents"),
		),
		Analysis: key.NewBinding(
			key.WithKeys("alt+i"),
			key.WithHelp("M-i", "analysis"),
		),
		Help: key.NewBinding(
			key.WithKeys("f1"),
			key.WithHelp("F1", "help"),
		),
		NextField: key.NewBinding(
			key.WithKeys("tab", "down"),
			key.WithHelp("Tab", "next field"),
		),
		PrevField: key.NewBinding(
			key.WithKeys("shift+tab", "up"),
			key.WithHelp("S-Tab", "previous field"),
		),
		NextOption: key.NewBinding(
			key.WithKeys("right"),
			key.WithHelp("right", "next option"),
		),
		PrevOption: key.NewBinding(
			key.WithKeys("left"),
			key.WithHelp("left", "previous option"),
		),
		Toggle: key.NewBinding(
			key.WithKeys(" "),
			key.WithHelp("Space", "toggle"),
		),
		SubmitForm: key.NewBinding(
			key.WithKeys("ctrl+s"),
			key.WithHelp("C-s", "submit form"),
		),
	}
}

// ShortHelp returns the bindings shown in the footer.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Submit, k.Play, k.Copy, k.Reload, k.Help, k.Quit}
}

// FullHelp returns every chat binding, grouped.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Submit, k.PageUp, k.PageDown, k.SelectPrev, k.SelectNext},
		{k.Like, k.Dislike, k.Copy, k.Play, k.Dictate},
		{k.Agents, k.Analysis},
		{k.NewChat, k.Reload, k.Theme, k.Language, k.Quit},
		{k.NextField, k.PrevField, k.NextOption, k.Toggle, k.SubmitForm},
	}
}
