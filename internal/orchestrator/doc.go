// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package orchestrator is the HTTP client for the virtual-assistant
// orchestrator backend.
//
// # Key Types
//
//   - Client: multipart POST {host}/message exchanges
//   - Request: one turn's form fields and uploads
//   - Response: parsed reply with session, form and lifecycle signals
//   - FeedbackClient: rate-limited like/dislike posts
//   - HTTPError: non-success status from the backend
//
// # Wire Contract
//
// Requests are multipart/form-data with user_input, timestamp, messageId,
// session_id, token, language, body, orch_config_id, orch_config_key, an
// optional template_fields JSON string, and repeated files / images parts.
// Responses are JSON with session_id, token, response and optional
// bot_image, template_fields, end_chat, authentication, session,
// showAllMessages, agents and context (thoughts, support, citations).
// File-processing plugins answer with a bare array of {name} entries.
//
// Requests are never retried.
//
// # Usage
//
//	client := orchestrator.NewClient(orchestrator.NormalizeHost(plugin.Host)).
//	    WithTimeout(60 * time.Second)
//	resp, err := client.Message(ctx, &orchestrator.Request{UserInput: "Hello"})
package orchestrator
