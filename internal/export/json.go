// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"fmt"

	"github.com/jeranaias/vachat/internal/model"
)

// JSONExporter writes the transcript as indented JSON. Image previews and
// plugin credentials are dropped.
type JSONExporter struct {
	options *Options
}

// NewJSONExporter creates a JSON exporter.
func NewJSONExporter(opts *Options) *JSONExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &JSONExporter{options: opts}
}

// Export renders t as JSON.
func (e *JSONExporter) Export(t *Transcript) ([]byte, error) {
	if t == nil {
		return nil, fmt.Errorf("transcript is nil")
	}
	msgs := t.visible()
	if len(msgs) == 0 {
		return nil, ErrEmpty
	}

	out := *t
	out.Messages = make([]model.Message, 0, len(msgs))
	for _, m := range msgs {
		if m.Sender == model.SenderDebug && !e.options.IncludeDebug {
			continue
		}
		c := m.Clone()
		c.Attachments.ImagePreviews = nil
		c.Binding = model.Binding{}
		out.Messages = append(out.Messages, c)
	}
	return json.MarshalIndent(out, "", "  ")
}

// FileExtension returns ".json".
func (e *JSONExporter) FileExtension() string {
	return ".json"
}
