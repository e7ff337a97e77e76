// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the conversation data structures.
//
// # Key Types
//
//   - Message: one conversational turn with sender, text and attachments
//   - Sender: message origin (user, bot, debug, system-status)
//   - Analysis: reasoning context attached to a bot reply
//   - Log: ordered, append-only message log with a single pending bot slot
//
// # Pending Messages
//
// A bot message is appended as pending right before an orchestrator call and
// resolved in place when the response arrives. The log tracks it by id, so
// messages appended in between never get overwritten.
//
// # Usage
//
//	log := model.NewLog()
//	log.Append(model.NewUserMessage("Hello", binding))
//	pending, _ := log.BeginPending(binding)
//	log.ResolvePending("Hi!", nil)
package model
