// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/vachat/internal/ui/styles"
	"github.com/jeranaias/vachat/internal/util"
)

// PickerItem is one selectable row.
type PickerItem struct {
	ID          string
	Title       string
	Description string
}

// PickedMsg is emitted when a row is chosen.
type PickedMsg struct {
	Picker string
	Item   PickerItem
	Index  int
}

// PickerCancelledMsg is emitted on escape when the picker is cancellable.
type PickerCancelledMsg struct {
	Picker string
}

// Picker is a vertical list with keyboard selection.
type Picker struct {
	name        string
	title       string
	items       []PickerItem
	cursor      int
	width       int
	cancellable bool

	up, down, choose, cancel key.Binding
}

// NewPicker creates a picker. name is echoed in PickedMsg so one model can
// host several pickers.
func NewPicker(name, title string, items []PickerItem) Picker {
	return Picker{
		name:   name,
		title:  title,
		items:  items,
		up:     key.NewBinding(key.WithKeys("up", "k", "shift+tab")),
		down:   key.NewBinding(key.WithKeys("down", "j", "tab")),
		choose: key.NewBinding(key.WithKeys("enter")),
		cancel: key.NewBinding(key.WithKeys("esc")),
	}
}

// SetCancellable lets esc close the picker.
func (p *Picker) SetCancellable(on bool) {
	p.cancellable = on
}

// SetWidth caps the rendered row width.
func (p *Picker) SetWidth(w int) {
	p.width = w
}

// SetCursorID moves the cursor to the item with id, if present.
func (p *Picker) SetCursorID(id string) {
	for i, it := range p.items {
		if it.ID == id {
			p.cursor = i
			return
		}
	}
}

// Cursor returns the highlighted index.
func (p Picker) Cursor() int {
	return p.cursor
}

// Len returns the number of items.
func (p Picker) Len() int {
	return len(p.items)
}

// Update handles navigation keys.
func (p Picker) Update(msg tea.Msg) (Picker, tea.Cmd) {
	k, ok := msg.(tea.KeyMsg)
	if !ok || len(p.items) == 0 {
		return p, nil
	}
	switch {
	case key.Matches(k, p.up):
		p.cursor = (p.cursor - 1 + len(p.items)) % len(p.items)
	case key.Matches(k, p.down):
		p.cursor = (p.cursor + 1) % len(p.items)
	case key.Matches(k, p.choose):
		picked := PickedMsg{Picker: p.name, Item: p.items[p.cursor], Index: p.cursor}
		return p, func() tea.Msg { return picked }
	case key.Matches(k, p.cancel):
		if p.cancellable {
			name := p.name
			return p, func() tea.Msg { return PickerCancelledMsg{Picker: name} }
		}
	default:
		// Digits jump straight to a row.
		if s := k.String(); len(s) == 1 && s[0] >= '1' && s[0] <= '9' {
			if i := int(s[0] - '1'); i < len(p.items) {
				p.cursor = i
			}
		}
	}
	return p, nil
}

// View renders the list.
func (p Picker) View(theme *styles.Theme) string {
	var b strings.Builder
	if p.title != "" {
		b.WriteString(theme.Title.Render(p.title))
		b.WriteString("\n\n")
	}
	for i, it := range p.items {
		line := it.Title
		if p.width > 6 {
			line = util.TruncateWidth(line, p.width-4)
		}
		if i == p.cursor {
			b.WriteString(theme.Selected.Render("> " + line))
		} else {
			b.WriteString("  " + line)
		}
		b.WriteString("\n")
		if it.Description != "" {
			desc := it.Description
			if p.width > 8 {
				desc = util.TruncateWidth(desc, p.width-6)
			}
			b.WriteString("    " + theme.Muted.Render(desc) + "\n")
		}
	}
	return b.String()
}
