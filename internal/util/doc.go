// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared across vachat.
//
// # Key Functions
//
// Time:
//   - FormatTimestamp: local "YYYY-MM-DDTHH:MM:SS" form sent to the orchestrator
//   - EpochMillis: millisecond epoch string used as a request message id
//
// Strings:
//   - TruncateRunes: UTF-8 safe truncation with ellipsis
//   - TruncateWidth: display-width truncation for terminal cells
//
// Files:
//   - AtomicWriteFile: crash-safe file writing with fsync
//
// # Usage
//
//	ts := util.FormatTimestamp(time.Now())
//	label := util.TruncateWidth(fileName, 24)
//	err := util.AtomicWriteFile(path, data, 0600)
package util
