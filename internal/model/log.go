// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"errors"
	"unicode/utf8"
)

var (
	// ErrPendingExists is returned when a second pending bot message is added.
	ErrPendingExists = errors.New("a bot message is already pending")
	// ErrNoPending is returned when resolving without a pending message.
	ErrNoPending = errors.New("no pending bot message")
)

// Log is an ordered, append-only message log. Messages are never reordered
// or deleted. Log is not safe for concurrent use; the controller serializes
// access.
type Log struct {
	messages  []*Message
	index     map[string]*Message
	pendingID string
}

// NewLog creates an empty log.
func NewLog() *Log {
	return &Log{index: make(map[string]*Message)}
}

// Append adds msg at the end. A pending msg is rejected while another
// pending message exists.
func (l *Log) Append(msg *Message) error {
	if msg.Pending {
		if l.pendingID != "" {
			return ErrPendingExists
		}
		l.pendingID = msg.ID
	}
	l.messages = append(l.messages, msg)
	l.index[msg.ID] = msg
	return nil
}

// BeginPending appends an empty pending bot message.
func (l *Log) BeginPending(binding Binding, language string) (*Message, error) {
	msg := NewMessage(SenderBot, "", binding)
	msg.Pending = true
	msg.Language = language
	if err := l.Append(msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// ResolvePending overwrites the pending bot message in place with the
// response text and images, and clears the pending slot.
func (l *Log) ResolvePending(text string, imageURLs []string) (*Message, error) {
	msg := l.Pending()
	if msg == nil {
		return nil, ErrNoPending
	}
	msg.Text = text
	msg.Attachments.ImageURLs = append([]string(nil), imageURLs...)
	msg.Pending = false
	l.pendingID = ""
	return msg, nil
}

// Pending returns the pending bot message, or nil.
func (l *Log) Pending() *Message {
	if l.pendingID == "" {
		return nil
	}
	return l.index[l.pendingID]
}

// HasPending reports whether a bot message is pending.
func (l *Log) HasPending() bool {
	return l.pendingID != ""
}

// Get returns the message with id, or nil.
func (l *Log) Get(id string) *Message {
	return l.index[id]
}

// LastBot returns the most recent resolved bot message, or nil.
func (l *Log) LastBot() *Message {
	for i := len(l.messages) - 1; i >= 0; i-- {
		if l.messages[i].Sender == SenderBot && !l.messages[i].Pending {
			return l.messages[i]
		}
	}
	return nil
}

// Len returns the number of messages.
func (l *Log) Len() int {
	return len(l.messages)
}

// All returns copies of every message in order.
func (l *Log) All() []Message {
	out := make([]Message, len(l.messages))
	for i, m := range l.messages {
		out[i] = m.Clone()
	}
	return out
}

// StartReveal marks the message for incremental display from zero runes.
func (l *Log) StartReveal(id string) {
	if msg := l.index[id]; msg != nil {
		msg.Revealing = true
		msg.Revealed = 0
	}
}

// Reveal shows n more runes of the revealing message and reports whether
// the full text is now visible.
func (l *Log) Reveal(id string, n int) bool {
	msg := l.index[id]
	if msg == nil || !msg.Revealing {
		return true
	}
	msg.Revealed += n
	if msg.Revealed >= utf8.RuneCountInString(msg.Text) {
		msg.Revealing = false
		msg.Revealed = 0
		return true
	}
	return false
}
