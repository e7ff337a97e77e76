// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme modes accepted by NewTheme.
const (
	ModeAuto  = "auto"
	ModeDark  = "dark"
	ModeLight = "light"
)

// Theme holds the resolved background side and the styles built on it.
type Theme struct {
	IsDark       bool
	HasTrueColor bool
	ColorProfile termenv.Profile

	Title       lipgloss.Style
	Subtitle    lipgloss.Style
	UserLabel   lipgloss.Style
	BotLabel    lipgloss.Style
	DebugText   lipgloss.Style
	StatusText  lipgloss.Style
	Timestamp   lipgloss.Style
	UserBody    lipgloss.Style
	BotBody     lipgloss.Style
	Chip        lipgloss.Style
	Selected    lipgloss.Style
	Muted       lipgloss.Style
	Error       lipgloss.Style
	Success     lipgloss.Style
	Liked       lipgloss.Style
	Disliked    lipgloss.Style
	Expired     lipgloss.Style
	Ended       lipgloss.Style
	Modal       lipgloss.Style
	Input       lipgloss.Style
	InputLocked lipgloss.Style
	Help        lipgloss.Style
}

// NewTheme resolves mode against the terminal and builds the styles.
func NewTheme(mode string) *Theme {
	profile := termenv.ColorProfile()
	t := &Theme{
		ColorProfile: profile,
		HasTrueColor: profile == termenv.TrueColor,
	}
	switch mode {
	case ModeDark:
		t.IsDark = true
	case ModeLight:
		t.IsDark = false
	default:
		t.IsDark = termenv.HasDarkBackground()
	}
	t.apply()
	return t
}

// Toggle flips between dark and light.
func (t *Theme) Toggle() {
	t.IsDark = !t.IsDark
	t.apply()
}

// Mode returns "dark" or "light".
func (t *Theme) Mode() string {
	if t.IsDark {
		return ModeDark
	}
	return ModeLight
}

func (t *Theme) apply() {
	lipgloss.SetHasDarkBackground(t.IsDark)
	t.initStyles()
}

func (t *Theme) initStyles() {
	t.Title = lipgloss.NewStyle().Foreground(Purple).Bold(true)
	t.Subtitle = lipgloss.NewStyle().Foreground(TextSecondary)

	t.UserLabel = lipgloss.NewStyle().Foreground(Cyan).Bold(true)
	t.BotLabel = lipgloss.NewStyle().Foreground(Purple).Bold(true)
	t.DebugText = lipgloss.NewStyle().Foreground(DebugFg).Italic(true)
	t.StatusText = lipgloss.NewStyle().Foreground(TextSecondary).Italic(true)
	t.Timestamp = lipgloss.NewStyle().Foreground(TextMuted)

	t.UserBody = lipgloss.NewStyle().
		Foreground(UserBubbleFg).
		BorderStyle(lipgloss.NormalBorder()).
		BorderLeft(true).
		BorderForeground(UserBubbleBorder).
		PaddingLeft(1)
	t.BotBody = lipgloss.NewStyle().
		Foreground(AssistantBubbleFg).
		BorderStyle(lipgloss.NormalBorder()).
		BorderLeft(true).
		BorderForeground(AssistantBubbleBorder).
		PaddingLeft(1)

	t.Chip = lipgloss.NewStyle().
		Foreground(TextPrimary).
		Background(Overlay).
		Padding(0, 1)
	t.Selected = lipgloss.NewStyle().Foreground(Cyan).Bold(true)
	t.Muted = lipgloss.NewStyle().Foreground(TextMuted)
	t.Error = lipgloss.NewStyle().Foreground(Rose).Bold(true)
	t.Success = lipgloss.NewStyle().Foreground(Emerald)
	t.Liked = lipgloss.NewStyle().Foreground(Emerald).Bold(true)
	t.Disliked = lipgloss.NewStyle().Foreground(Rose).Bold(true)

	t.Expired = lipgloss.NewStyle().
		Foreground(BannerExpiredFg).
		Background(BannerExpiredBg).
		Padding(0, 1)
	t.Ended = lipgloss.NewStyle().
		Foreground(BannerEndedFg).
		Background(BannerEndedBg).
		Padding(0, 1)
	t.Modal = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Amber).
		Padding(1, 3)

	t.Input = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Cyan).
		Padding(0, 1)
	t.InputLocked = t.Input.BorderForeground(TextMuted)
	t.Help = lipgloss.NewStyle().Foreground(TextMuted)
}

// GlamourStyle returns the glamour standard style name for the theme.
func (t *Theme) GlamourStyle() string {
	if t.IsDark {
		return "dark"
	}
	return "light"
}
