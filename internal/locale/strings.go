// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package locale

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jeranaias/vachat/internal/config"
)

// Keys used by the chat surface.
const (
	KeyExpiredText          = "expiredText"
	KeyExpiredSubText       = "expiredSubText"
	KeyEndedText            = "endedText"
	KeyEndedSubText         = "endedSubText"
	KeyUpdateButton         = "updateButton"
	KeyChatPlaceholder      = "chatPlaceholder"
	KeyAudioRecordingButton = "audioRecordingButton"
	KeyAudioPlayButton      = "audioPlayButton"
	KeyAudioPauseButton     = "audioPauseButton"
	KeyUploadFilesText      = "uploadFilesText"
	KeyUploadedFilesText    = "uploadedFilesText"
	KeyDeleteAllButton      = "deleteAllButton"
	KeyNoPreviewText        = "noPreviewText"
	KeyFormSubmit           = "formSubmitButton"
	KeyFormIncomplete       = "formIncompleteText"
	KeyCopyButton           = "copyButton"
	KeyCopiedText           = "copiedText"
	KeyConnectionError      = "connectionErrorText"
	KeyListeningText        = "listeningText"
	KeyProcessedFilesText   = "processedFilesText"
	KeyNoUploadText         = "noUploadText"
	KeyNoProcessText        = "noProcessText"
	KeyShowAgentsText       = "showAgentsText"
	KeyHideAgentsText       = "hideAgentsText"
	KeyThoughtProcess       = "thoughtProcess"
	KeySupportingContent    = "supportingContent"
	KeyCitations            = "citations"
	KeyCitationDocument     = "citationDocument"
	KeyNoContentFound       = "noContentFound"
	KeySessionLengthText    = "sessionLengthText"
)

// builtin carries English text for keys a deployment may not translate.
var builtin = map[string]string{
	KeyExpiredText:          "Your session has expired",
	KeyExpiredSubText:       "Start a new conversation to continue.",
	KeyEndedText:            "This conversation has ended",
	KeyEndedSubText:         "Start a new conversation if you need anything else.",
	KeyUpdateButton:         "New conversation",
	KeyChatPlaceholder:      "Type a message...",
	KeyAudioRecordingButton: "Dictate",
	KeyAudioPlayButton:      "Play",
	KeyAudioPauseButton:     "Stop",
	KeyUploadFilesText:      "Attach files",
	KeyUploadedFilesText:    "Attached",
	KeyDeleteAllButton:      "Remove all",
	KeyNoPreviewText:        "No preview available",
	KeyFormSubmit:           "Submit",
	KeyFormIncomplete:       "Please fill in every field.",
	KeyCopyButton:           "Copy",
	KeyCopiedText:           "Copied to clipboard",
	KeyConnectionError:      "The assistant could not be reached.",
	KeyListeningText:        "Listening...",
	KeyProcessedFilesText:   "Processed Files",
	KeyNoUploadText:         "No files uploaded",
	KeyNoProcessText:        "No files processed",
	KeyShowAgentsText:       "Show agents' conversation",
	KeyHideAgentsText:       "Hide agents' conversation",
	KeyThoughtProcess:       "Thought process",
	KeySupportingContent:    "Supporting content",
	KeyCitations:            "Citations",
	KeyCitationDocument:     "Document",
	KeyNoContentFound:       "No content found",
	KeySessionLengthText:    "Session length",
}

// Strings is a language strings table.
type Strings struct {
	entries map[string]map[string]string
}

// New wraps a raw key -> language -> text map.
func New(entries map[string]map[string]string) *Strings {
	if entries == nil {
		entries = map[string]map[string]string{}
	}
	return &Strings{entries: entries}
}

// Parse decodes a strings document.
func Parse(data []byte) (*Strings, error) {
	var entries map[string]map[string]string
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decode strings document: %w", err)
	}
	return New(entries), nil
}

// Load reads a strings document from a file or URL. Failures return an empty
// table (built-in text only) together with the error.
func Load(ctx context.Context, source string) (*Strings, error) {
	data, err := config.ReadSource(ctx, source)
	if err != nil {
		return New(nil), err
	}
	tbl, err := Parse(data)
	if err != nil {
		return New(nil), err
	}
	return tbl, nil
}

// Get returns the text for key in lang.
func (s *Strings) Get(key, lang string) string {
	if s != nil {
		if byLang := s.entries[key]; byLang != nil {
			for _, l := range []string{lang, "en-US", "en"} {
				if v := byLang[l]; v != "" {
					return v
				}
			}
		}
	}
	if v, ok := builtin[key]; ok {
		return v
	}
	return key
}
