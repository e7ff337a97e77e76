// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export saves a conversation transcript to disk.
//
// # Key Types
//
//   - Transcript: snapshot of a conversation with its session metadata
//   - Exporter: format interface (Markdown, JSON)
//   - Options: output directory and content switches
//
// # Usage
//
//	t := export.Transcript{Title: "Helpdesk", Messages: ctrl.Messages()}
//	path, err := export.ToFile(&t, export.NewMarkdownExporter(nil), nil)
package export
