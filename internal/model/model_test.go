// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"errors"
	"sort"
	"testing"
)

// =============================================================================
// MESSAGE TESTS
// =============================================================================

func TestNewID_Ordered(t *testing.T) {
	ids := make([]string, 50)
	for i := range ids {
		ids[i] = NewID()
	}
	if !sort.StringsAreSorted(ids) {
		t.Error("NewID() should produce time-ordered ids")
	}
	seen := make(map[string]bool)
	for _, id := range ids {
		if seen[id] {
			t.Fatalf("duplicate id %s", id)
		}
		seen[id] = true
	}
}

func TestSender_DisplayName(t *testing.T) {
	tests := []struct {
		sender Sender
		want   string
	}{
		{SenderUser, "You"},
		{SenderBot, "Assistant"},
		{SenderDebug, "Debug"},
		{Sender("agent"), "agent"},
	}
	for _, tt := range tests {
		if got := tt.sender.DisplayName(); got != tt.want {
			t.Errorf("%s.DisplayName() = %q, want %q", tt.sender, got, tt.want)
		}
	}
}

func TestMessage_VisibleText(t *testing.T) {
	msg := NewMessage(SenderBot, "héllo", Binding{})
	if got := msg.VisibleText(); got != "héllo" {
		t.Errorf("VisibleText() = %q, want full text", got)
	}

	msg.Revealing = true
	msg.Revealed = 2
	if got := msg.VisibleText(); got != "hé" {
		t.Errorf("VisibleText() while revealing = %q, want %q", got, "hé")
	}
}

func TestMessage_CloneIsDeep(t *testing.T) {
	msg := NewMessage(SenderUser, "files", Binding{})
	msg.Attachments.Files = []FileRef{{Name: "a.pdf", Size: 10}}
	msg.FormAnswers = []AnswerField{{Name: "topic", Values: []string{"x"}}}

	c := msg.Clone()
	c.Attachments.Files[0].Name = "changed"
	c.FormAnswers[0].Values[0] = "changed"

	if msg.Attachments.Files[0].Name != "a.pdf" || msg.FormAnswers[0].Values[0] != "x" {
		t.Error("Clone() shares slices with the original")
	}
}

// =============================================================================
// LOG TESTS
// =============================================================================

func TestLog_PendingLifecycle(t *testing.T) {
	log := NewLog()
	binding := Binding{ConfigID: "c1", ConfigKey: "k1"}

	if err := log.Append(NewUserMessage("Hello", binding)); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	pending, err := log.BeginPending(binding, "en")
	if err != nil {
		t.Fatalf("BeginPending() error = %v", err)
	}
	if !log.HasPending() || log.Pending().ID != pending.ID {
		t.Fatal("pending message not tracked")
	}

	if _, err := log.BeginPending(binding, "en"); !errors.Is(err, ErrPendingExists) {
		t.Errorf("second BeginPending() error = %v, want ErrPendingExists", err)
	}

	resolved, err := log.ResolvePending("Hi!", []string{"https://img.test/a.png"})
	if err != nil {
		t.Fatalf("ResolvePending() error = %v", err)
	}
	if resolved.ID != pending.ID {
		t.Error("ResolvePending() should overwrite the pending message in place")
	}
	if resolved.Text != "Hi!" || resolved.Sender != SenderBot || resolved.Pending {
		t.Errorf("resolved = %+v", resolved)
	}
	if log.Len() != 2 {
		t.Errorf("Len() = %d, want 2", log.Len())
	}
	if log.HasPending() {
		t.Error("pending slot should be cleared")
	}
}

func TestLog_ResolveTargetsPendingNotLast(t *testing.T) {
	log := NewLog()
	pending, _ := log.BeginPending(Binding{}, "en")
	// A status line arriving after the pending bot message must not be
	// overwritten.
	status := NewStatusMessage("Planner", "note")
	if err := log.Append(status); err != nil {
		t.Fatal(err)
	}

	if _, err := log.ResolvePending("answer", nil); err != nil {
		t.Fatal(err)
	}
	if log.Get(pending.ID).Text != "answer" {
		t.Error("pending message not resolved")
	}
	if log.Get(status.ID).Text != "note" {
		t.Error("status message was overwritten")
	}
}

func TestLog_ResolveWithoutPending(t *testing.T) {
	if _, err := NewLog().ResolvePending("x", nil); !errors.Is(err, ErrNoPending) {
		t.Errorf("ResolvePending() error = %v, want ErrNoPending", err)
	}
}

func TestLog_AllReturnsCopies(t *testing.T) {
	log := NewLog()
	log.Append(NewUserMessage("one", Binding{}))

	all := log.All()
	all[0].Text = "mutated"
	if log.Get(all[0].ID).Text != "one" {
		t.Error("All() must not expose internal messages")
	}
}

func TestLog_Reveal(t *testing.T) {
	log := NewLog()
	msg := NewMessage(SenderBot, "abcdef", Binding{})
	log.Append(msg)
	log.StartReveal(msg.ID)

	if done := log.Reveal(msg.ID, 4); done {
		t.Fatal("Reveal() finished early")
	}
	if got := log.Get(msg.ID).VisibleText(); got != "abcd" {
		t.Errorf("VisibleText() = %q, want %q", got, "abcd")
	}
	if done := log.Reveal(msg.ID, 4); !done {
		t.Fatal("Reveal() should finish")
	}
	if got := log.Get(msg.ID).VisibleText(); got != "abcdef" {
		t.Errorf("VisibleText() = %q, want full text", got)
	}
}

func TestLog_LastBot(t *testing.T) {
	log := NewLog()
	if log.LastBot() != nil {
		t.Error("LastBot() on empty log should be nil")
	}
	bot := NewMessage(SenderBot, "a", Binding{})
	log.Append(bot)
	log.Append(NewUserMessage("b", Binding{}))
	if log.LastBot().ID != bot.ID {
		t.Error("LastBot() returned wrong message")
	}
	if _, err := log.BeginPending(Binding{}, "en"); err != nil {
		t.Fatal(err)
	}
	if log.LastBot().ID != bot.ID {
		t.Error("LastBot() must skip the pending message")
	}
}

func TestStatusMessage(t *testing.T) {
	msg := NewStatusMessage("Planner", "thinking")
	if msg.Sender != "system-status" || !msg.IsStatus() || msg.IsBot() {
		t.Errorf("sender = %q", msg.Sender)
	}
	if msg.Agent != "Planner" {
		t.Errorf("Agent = %q, want Planner", msg.Agent)
	}
}

func TestClone_CopiesAnalysis(t *testing.T) {
	msg := NewMessage(SenderBot, "a", Binding{})
	msg.Analysis = &Analysis{
		Thoughts:  []Thought{{Title: "t", Props: map[string]string{"k": "v"}}},
		Citations: []string{"https://docs.test/a"},
	}
	c := msg.Clone()
	c.Analysis.Thoughts[0].Props["k"] = "changed"
	c.Analysis.Citations[0] = "changed"
	if msg.Analysis.Thoughts[0].Props["k"] != "v" || msg.Analysis.Citations[0] != "https://docs.test/a" {
		t.Error("Clone() must not share analysis data")
	}
	if !(&Analysis{}).Empty() || msg.Analysis.Empty() {
		t.Error("Empty() wrong")
	}
}
