// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// SENDER TYPE
// =============================================================================

// Sender identifies who produced a message.
type Sender string

const (
	SenderUser   Sender = "user"
	SenderBot    Sender = "bot"
	SenderDebug  Sender = "debug"
	SenderStatus Sender = "system-status"
)

// String returns the string representation of the sender.
func (s Sender) String() string {
	return string(s)
}

// DisplayName returns a human-readable name for the sender.
func (s Sender) DisplayName() string {
	switch s {
	case SenderUser:
		return "You"
	case SenderBot:
		return "Assistant"
	case SenderDebug:
		return "Debug"
	case SenderStatus:
		return "Status"
	default:
		return string(s)
	}
}

// =============================================================================
// ATTACHMENTS AND ANSWERS
// =============================================================================

// FileRef describes an uploaded file. Content is not retained in the log.
type FileRef struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
}

// Attachments groups everything attached to a message.
type Attachments struct {
	// Files on a bot message are what a file-processing plugin accepted.
	Files []FileRef `json:"files,omitempty"`
	// ImagePreviews are data URIs of images the user attached.
	ImagePreviews []string `json:"image_previews,omitempty"`
	// ImageURLs are backend-supplied image links on bot messages.
	ImageURLs []string `json:"image_urls,omitempty"`
}

// Empty reports whether there are no attachments.
func (a Attachments) Empty() bool {
	return len(a.Files) == 0 && len(a.ImagePreviews) == 0 && len(a.ImageURLs) == 0
}

// Thought is one step of the assistant's reasoning trail.
type Thought struct {
	Title string `json:"title"`
	// Description is plain text, or indented JSON when the backend sent a
	// structured value.
	Description string            `json:"description"`
	Props       map[string]string `json:"props,omitempty"`
}

// Analysis is the reasoning context attached to a bot reply.
type Analysis struct {
	Thoughts []Thought `json:"thoughts,omitempty"`
	// Support items are "title: content" strings.
	Support []string `json:"support,omitempty"`
	// Citations are document links.
	Citations []string `json:"citations,omitempty"`
}

// Empty reports whether there is nothing to show.
func (a *Analysis) Empty() bool {
	return a == nil || (len(a.Thoughts) == 0 && len(a.Support) == 0 && len(a.Citations) == 0)
}

// Clone returns a deep copy, or nil for nil.
func (a *Analysis) Clone() *Analysis {
	if a == nil {
		return nil
	}
	c := &Analysis{
		Support:   append([]string(nil), a.Support...),
		Citations: append([]string(nil), a.Citations...),
	}
	for _, t := range a.Thoughts {
		if t.Props != nil {
			props := make(map[string]string, len(t.Props))
			for k, v := range t.Props {
				props[k] = v
			}
			t.Props = props
		}
		c.Thoughts = append(c.Thoughts, t)
	}
	return c
}

// AnswerField is one submitted form field, in form order.
type AnswerField struct {
	Name   string   `json:"name"`
	Label  string   `json:"label"`
	Values []string `json:"values"`
	// Display holds option labels for Values, used only for rendering.
	Display []string `json:"display"`
}

// Binding records the orchestrator configuration a message belongs to.
type Binding struct {
	ConfigID  string `json:"orch_config_id"`
	ConfigKey string `json:"orch_config_key"`
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message represents a single conversational turn.
type Message struct {
	// Identity
	ID        string    `json:"id"`
	Sender    Sender    `json:"sender"`
	Timestamp time.Time `json:"timestamp"`

	// Content
	Text        string        `json:"text"`
	Attachments Attachments   `json:"attachments"`
	FormAnswers []AnswerField `json:"form_answers,omitempty"`
	Analysis    *Analysis     `json:"analysis,omitempty"`

	// Agent names the orchestrator agent behind a status message.
	Agent string `json:"agent,omitempty"`

	Binding  Binding `json:"binding"`
	Language string  `json:"language,omitempty"`

	// Pending is true for a bot message awaiting its response.
	Pending bool `json:"-"`

	// Typing effect state. Revealed counts visible runes while Revealing.
	Revealing bool `json:"-"`
	Revealed  int  `json:"-"`
}

// NewMessage creates a message with a time-ordered id.
func NewMessage(sender Sender, text string, binding Binding) *Message {
	return &Message{
		ID:        NewID(),
		Sender:    sender,
		Text:      text,
		Binding:   binding,
		Timestamp: time.Now(),
	}
}

// NewUserMessage creates a new user message.
func NewUserMessage(text string, binding Binding) *Message {
	return NewMessage(SenderUser, text, binding)
}

// NewStatusMessage creates a line of the agents' conversation.
func NewStatusMessage(agent, text string) *Message {
	m := NewMessage(SenderStatus, text, Binding{})
	m.Agent = agent
	return m
}

// NewID returns a UUIDv7 string. v7 ids sort by creation time.
func NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		// Entropy failure; v4 keeps ids unique even if unordered.
		return uuid.NewString()
	}
	return id.String()
}

// VisibleText returns the text currently shown for the message.
func (m *Message) VisibleText() string {
	if !m.Revealing {
		return m.Text
	}
	runes := []rune(m.Text)
	if m.Revealed >= len(runes) {
		return m.Text
	}
	if m.Revealed <= 0 {
		return ""
	}
	return string(runes[:m.Revealed])
}

// IsBot reports whether the message came from the orchestrator.
func (m *Message) IsBot() bool {
	return m.Sender == SenderBot
}

// IsStatus reports whether the message belongs to the agents' conversation.
func (m *Message) IsStatus() bool {
	return m.Sender == SenderStatus
}

// Clone returns a deep copy of the message.
func (m *Message) Clone() Message {
	c := *m
	c.Analysis = m.Analysis.Clone()
	if m.Attachments.Files != nil {
		// An empty non-nil list is a processed-files result with no entries.
		c.Attachments.Files = append([]FileRef{}, m.Attachments.Files...)
	}
	c.Attachments.ImagePreviews = append([]string(nil), m.Attachments.ImagePreviews...)
	c.Attachments.ImageURLs = append([]string(nil), m.Attachments.ImageURLs...)
	if m.FormAnswers != nil {
		c.FormAnswers = make([]AnswerField, len(m.FormAnswers))
		for i, f := range m.FormAnswers {
			f.Values = append([]string(nil), f.Values...)
			f.Display = append([]string(nil), f.Display...)
			c.FormAnswers[i] = f
		}
	}
	return c
}
