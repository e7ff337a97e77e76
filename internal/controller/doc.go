// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package controller runs the conversation: it owns the message log, the
// session, staged attachments and the active form, and drives one request
// cycle at a time against the orchestrator.
//
// # Request Cycle
//
// Each turn is split in three so an event loop can keep state changes on
// one goroutine while the network call runs elsewhere:
//
//	turn, err := c.BeginSend(text)     // validate, append, disable input
//	resp, err := c.Exchange(ctx, turn) // network only, no state touched
//	out := c.Complete(turn, resp, err) // apply credentials, reply, lifecycle
//
// Send, Bootstrap, SubmitForm and Upload chain the three for headless
// callers. Upload is the only turn a file-processing plugin takes.
//
// # Phases
//
//	Idle -> Awaiting -> (Revealing) -> Idle | Form | Expired | Ended
//	Awaiting -> Stalled on transport failure
//
// Input is accepted only in Idle (free text) and Form (answers). Expired and
// Ended are terminal until Reload.
package controller
