// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/vachat/internal/ui/styles"
)

// =============================================================================
// LIFECYCLE NOTICE
// =============================================================================

// LifecycleState is the terminal session state being announced.
type LifecycleState int

const (
	LifecycleNone LifecycleState = iota
	LifecycleExpired
	LifecycleEnded
)

// LifecycleText holds the localized strings for one state.
type LifecycleText struct {
	Title    string
	Subtitle string
	Button   string
}

// ReloadRequestedMsg is emitted when the user picks reload.
type ReloadRequestedMsg struct{}

// Lifecycle renders the expired/ended notice as an inline banner, a modal,
// or both. Reload is the only action offered.
type Lifecycle struct {
	state LifecycleState
	text  LifecycleText

	banner bool
	modal  bool

	width  int
	height int

	reload key.Binding
}

// NewLifecycle creates a hidden notice.
func NewLifecycle() Lifecycle {
	return Lifecycle{
		reload: key.NewBinding(
			key.WithKeys("enter", "r", "ctrl+r"),
			key.WithHelp("enter", "reload"),
		),
	}
}

// Show announces state. banner and modal select the presentations.
func (l *Lifecycle) Show(state LifecycleState, text LifecycleText, banner, modal bool) {
	l.state = state
	l.text = text
	l.banner = banner
	l.modal = modal
}

// Hide clears the notice (after a reload).
func (l *Lifecycle) Hide() {
	l.state = LifecycleNone
	l.banner = false
	l.modal = false
}

// SetSize sets the area the modal is centred in.
func (l *Lifecycle) SetSize(width, height int) {
	l.width = width
	l.height = height
}

// State returns the announced state.
func (l Lifecycle) State() LifecycleState {
	return l.state
}

// ModalVisible reports whether the modal is covering the view.
func (l Lifecycle) ModalVisible() bool {
	return l.state != LifecycleNone && l.modal
}

// BannerVisible reports whether the inline banner is shown.
func (l Lifecycle) BannerVisible() bool {
	return l.state != LifecycleNone && l.banner
}

// Update handles the reload key while the notice is shown.
func (l Lifecycle) Update(msg tea.Msg) (Lifecycle, tea.Cmd) {
	if l.state == LifecycleNone {
		return l, nil
	}
	if k, ok := msg.(tea.KeyMsg); ok && key.Matches(k, l.reload) {
		return l, func() tea.Msg { return ReloadRequestedMsg{} }
	}
	return l, nil
}

// Banner renders the inline banner, or "".
func (l Lifecycle) Banner(theme *styles.Theme) string {
	if !l.BannerVisible() {
		return ""
	}
	style := theme.Ended
	marker := styles.StatusIndicators.Info
	if l.state == LifecycleExpired {
		style = theme.Expired
		marker = styles.StatusIndicators.Warning
	}
	line := marker + " " + l.text.Title
	if l.text.Subtitle != "" {
		line += "  " + l.text.Subtitle
	}
	line += "  [" + l.text.Button + ": enter]"
	if l.width > 0 {
		style = style.Width(l.width)
	}
	return style.Render(line)
}

// Modal renders the centred dialog, or "".
func (l Lifecycle) Modal(theme *styles.Theme) string {
	if !l.ModalVisible() {
		return ""
	}
	width, height := l.width, l.height
	if width == 0 {
		width = 60
	}
	if height == 0 {
		height = 24
	}
	maxWidth := width - 8
	if maxWidth < 30 {
		maxWidth = 30
	}
	if maxWidth > 60 {
		maxWidth = 60
	}

	accent := styles.Cyan
	marker := styles.StatusIndicators.Info
	if l.state == LifecycleExpired {
		accent = styles.Amber
		marker = styles.StatusIndicators.Warning
	}

	title := lipgloss.NewStyle().Foreground(accent).Bold(true).Render(marker + " " + l.text.Title)
	body := lipgloss.NewStyle().
		Foreground(styles.TextPrimary).
		Width(maxWidth - 8).
		Align(lipgloss.Center).
		Render(l.text.Subtitle)
	button := lipgloss.NewStyle().
		Foreground(styles.TextInverse).
		Background(accent).
		Padding(0, 2).
		Render(l.text.Button)
	hint := theme.Help.Render("enter")

	content := lipgloss.JoinVertical(lipgloss.Center, title, "", body, "", button, hint)
	box := theme.Modal.
		BorderForeground(accent).
		Width(maxWidth).
		Align(lipgloss.Center).
		Render(content)

	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, box,
		lipgloss.WithWhitespaceBackground(styles.SurfaceDim))
}
