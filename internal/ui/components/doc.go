// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package components provides reusable UI pieces for the vachat TUI.
//
// # Key Types
//
//   - Lifecycle: expired/ended banner and modal offering only reload
//   - Picker: keyboard list selection for plugins and languages
package components
