// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session tracks the orchestrator session and its lifecycle.
//
// A session starts active with empty credentials. The orchestrator issues a
// session id and token on the first response; both are echoed on every
// later request. The session can move to expired or ended exactly once and
// never comes back: recovery means starting a new Session.
//
// # Key Types
//
//   - Session: credentials plus lifecycle status, safe for concurrent use
//   - Status: active, expired or ended
//   - Snapshot: point-in-time copy for display
//
// # Usage
//
//	s := session.New()
//	s.UpdateCredentials(resp.SessionID, resp.Token)
//	if s.Expire() {
//	    // show the expired banner
//	}
package session
