// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the Bubble Tea program for vachat.
//
// The model walks through up to three screens: language selection, plugin
// selection and the conversation itself. All controller mutations happen in
// Update; orchestrator calls run inside tea.Cmds and come back as
// exchangeDoneMsg. Audio and dictation callbacks arrive on an event channel
// that the model drains with waitForEvent.
//
// File layout:
//   - model.go: Model, Deps and construction
//   - messages.go: tea message types and commands
//   - keys.go: key bindings
//   - update.go: event handling
//   - form.go: dynamic form editing
//   - commands.go: slash commands
//   - view.go: rendering
package chat
