// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package orchestrator

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/textproto"
	"strings"
)

// Upload is a file or image part.
type Upload struct {
	Name string
	MIME string
	Data []byte
}

// Request is one turn sent to the orchestrator.
type Request struct {
	UserInput string
	// Timestamp is local wall-clock time, "YYYY-MM-DDTHH:MM:SS".
	Timestamp string
	MessageID string
	SessionID string
	Token     string
	Language  string
	ConfigID  string
	ConfigKey string

	// TemplateFields carries serialized form answers; empty omits the part.
	TemplateFields string

	Files  []Upload
	Images []Upload
}

// Encode renders the request as multipart/form-data. The body part is
// always sent empty; older orchestrators expect it.
func (r *Request) Encode() ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fields := []struct{ name, value string }{
		{"user_input", r.UserInput},
		{"timestamp", r.Timestamp},
		{"messageId", r.MessageID},
		{"session_id", r.SessionID},
		{"token", r.Token},
		{"language", r.Language},
		{"body", ""},
		{"orch_config_id", r.ConfigID},
		{"orch_config_key", r.ConfigKey},
	}
	if r.TemplateFields != "" {
		fields = append(fields, struct{ name, value string }{"template_fields", r.TemplateFields})
	}
	for _, f := range fields {
		if err := w.WriteField(f.name, f.value); err != nil {
			return nil, "", fmt.Errorf("write field %s: %w", f.name, err)
		}
	}

	for _, part := range []struct {
		field   string
		uploads []Upload
	}{
		{"files", r.Files},
		{"images", r.Images},
	} {
		for _, u := range part.uploads {
			if err := writeUpload(w, part.field, u); err != nil {
				return nil, "", err
			}
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart: %w", err)
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func writeUpload(w *multipart.Writer, field string, u Upload) error {
	mime := u.MIME
	if mime == "" {
		mime = "application/octet-stream"
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		quoteEscaper.Replace(field), quoteEscaper.Replace(u.Name)))
	h.Set("Content-Type", mime)
	pw, err := w.CreatePart(h)
	if err != nil {
		return fmt.Errorf("create %s part: %w", field, err)
	}
	if _, err := pw.Write(u.Data); err != nil {
		return fmt.Errorf("write %s part: %w", field, err)
	}
	return nil
}
