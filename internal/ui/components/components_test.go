// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/vachat/internal/ui/styles"
)

func TestLifecycle_Presentations(t *testing.T) {
	theme := styles.NewTheme(styles.ModeDark)
	text := LifecycleText{Title: "Session expired", Subtitle: "Start again", Button: "Reload"}

	tests := []struct {
		name          string
		banner, modal bool
	}{
		{"banner only", true, false},
		{"modal only", false, true},
		{"both", true, true},
		{"neither", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NewLifecycle()
			l.Show(LifecycleExpired, text, tt.banner, tt.modal)
			if got := l.Banner(theme) != ""; got != tt.banner {
				t.Errorf("banner rendered = %v, want %v", got, tt.banner)
			}
			if got := l.Modal(theme) != ""; got != tt.modal {
				t.Errorf("modal rendered = %v, want %v", got, tt.modal)
			}
		})
	}
}

func TestLifecycle_ReloadKey(t *testing.T) {
	l := NewLifecycle()
	if _, cmd := l.Update(tea.KeyMsg{Type: tea.KeyEnter}); cmd != nil {
		t.Error("hidden notice must ignore keys")
	}

	l.Show(LifecycleEnded, LifecycleText{Title: "Ended", Button: "Reload"}, true, false)
	_, cmd := l.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Fatal("enter should request reload")
	}
	if _, ok := cmd().(ReloadRequestedMsg); !ok {
		t.Error("expected ReloadRequestedMsg")
	}

	_, cmd = l.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("x")})
	if cmd != nil {
		t.Error("only reload is offered")
	}
}

func TestPicker_Navigation(t *testing.T) {
	p := NewPicker("plugins", "Pick one", []PickerItem{
		{ID: "a", Title: "Alpha"},
		{ID: "b", Title: "Beta", Description: "second"},
		{ID: "c", Title: "Gamma"},
	})

	p, _ = p.Update(tea.KeyMsg{Type: tea.KeyDown})
	p, _ = p.Update(tea.KeyMsg{Type: tea.KeyDown})
	if p.Cursor() != 2 {
		t.Fatalf("Cursor() = %d, want 2", p.Cursor())
	}
	p, _ = p.Update(tea.KeyMsg{Type: tea.KeyDown})
	if p.Cursor() != 0 {
		t.Fatalf("cursor should wrap, got %d", p.Cursor())
	}

	p, _ = p.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("2")})
	_, cmd := p.Update(tea.KeyMsg{Type: tea.KeyEnter})
	msg, ok := cmd().(PickedMsg)
	if !ok || msg.Item.ID != "b" || msg.Picker != "plugins" {
		t.Errorf("picked = %+v", msg)
	}

	view := p.View(styles.NewTheme(styles.ModeLight))
	if !strings.Contains(view, "Beta") || !strings.Contains(view, "second") {
		t.Errorf("View() missing items:\n%s", view)
	}
}

func TestPicker_Cancel(t *testing.T) {
	p := NewPicker("lang", "", []PickerItem{{ID: "en", Title: "English"}})
	if _, cmd := p.Update(tea.KeyMsg{Type: tea.KeyEsc}); cmd != nil {
		t.Error("non-cancellable picker ignored esc")
	}
	p.SetCancellable(true)
	_, cmd := p.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if _, ok := cmd().(PickerCancelledMsg); !ok {
		t.Error("expected PickerCancelledMsg")
	}
}
