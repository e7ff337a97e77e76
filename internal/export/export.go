// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/jeranaias/vachat/internal/model"
	"github.com/jeranaias/vachat/internal/util"
)

// ErrEmpty is returned for a transcript without messages.
var ErrEmpty = errors.New("conversation has no messages")

// =============================================================================
// TRANSCRIPT
// =============================================================================

// Transcript is what gets exported.
type Transcript struct {
	Title     string          `json:"title"`
	Plugin    string          `json:"plugin,omitempty"`
	Language  string          `json:"language,omitempty"`
	SessionID string          `json:"session_id,omitempty"`
	Exported  time.Time       `json:"exported"`
	Messages  []model.Message `json:"messages"`
}

// visible drops messages that never completed.
func (t *Transcript) visible() []model.Message {
	out := make([]model.Message, 0, len(t.Messages))
	for _, m := range t.Messages {
		if m.Pending {
			continue
		}
		out = append(out, m)
	}
	return out
}

// =============================================================================
// EXPORT INTERFACE
// =============================================================================

// Exporter converts a transcript to one format.
type Exporter interface {
	Export(t *Transcript) ([]byte, error)
	FileExtension() string
}

// Options configures export behavior.
type Options struct {
	// OutputDir is where files are written. Default: current directory.
	OutputDir string
	// IncludeTimestamps adds per-message times.
	IncludeTimestamps bool
	// IncludeDebug keeps debug trail messages.
	IncludeDebug bool
}

// DefaultOptions returns the default export options.
func DefaultOptions() *Options {
	return &Options{OutputDir: ".", IncludeTimestamps: true}
}

// ForFormat returns the exporter for "md"/"markdown" or "json".
func ForFormat(format string, opts *Options) (Exporter, error) {
	switch strings.ToLower(strings.TrimPrefix(format, ".")) {
	case "", "md", "markdown":
		return NewMarkdownExporter(opts), nil
	case "json":
		return NewJSONExporter(opts), nil
	}
	return nil, fmt.Errorf("unknown export format %q (md or json)", format)
}

// ToFile exports t into opts.OutputDir and returns the file path.
func ToFile(t *Transcript, exporter Exporter, opts *Options) (string, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	if t.Exported.IsZero() {
		t.Exported = time.Now()
	}

	content, err := exporter.Export(t)
	if err != nil {
		return "", fmt.Errorf("export failed: %w", err)
	}

	dir := opts.OutputDir
	if dir == "" {
		dir = "."
	}
	name := fmt.Sprintf("conversation_%s_%s%s",
		sanitizeFilename(t.Title),
		t.Exported.Format("20060102_150405"),
		exporter.FileExtension(),
	)
	path := filepath.Join(dir, name)
	// Transcripts can carry personal data.
	if err := util.AtomicWriteFile(path, content, 0600); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}
	return path, nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// sanitizeFilename replaces characters that are invalid in file names.
func sanitizeFilename(s string) string {
	s = util.TruncateRunes(strings.TrimSpace(s), 50)
	var b strings.Builder
	for _, r := range s {
		switch {
		case strings.ContainsRune(`/\:*?"<>|`, r):
			b.WriteRune('-')
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			b.WriteRune('_')
		case r < 32 || r == 127:
			b.WriteRune('-')
		default:
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "conversation"
	}
	return b.String()
}
