// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package styles provides the visual styling system for the vachat TUI.

All colors use Lip Gloss AdaptiveColor. The Theme decides whether the dark or
light variant applies: "auto" follows the terminal background as reported by
termenv, "dark" and "light" force a side, and Toggle flips it at runtime for
the dark mode button.

# Color System (colors.go)

	UserBubble*      - user turns
	AssistantBubble* - bot turns
	DebugFg          - orchestrator trail
	Banner*          - expired/ended notices

# Usage Example

	theme := styles.NewTheme("auto")
	theme.Toggle()
	out := theme.UserLabel.Render("You")
*/
package styles
