// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package controller

// Phase is the conversation's input state.
type Phase int

const (
	// PhaseIdle accepts free text.
	PhaseIdle Phase = iota
	// PhaseAwaiting has a request in flight.
	PhaseAwaiting
	// PhaseRevealing is typing out the latest reply.
	PhaseRevealing
	// PhaseForm accepts answers to a backend form.
	PhaseForm
	// PhaseStalled follows a transport failure; input stays disabled.
	PhaseStalled
	// PhaseExpired follows an authentication failure or session expiry.
	PhaseExpired
	// PhaseEnded follows an end-of-chat signal.
	PhaseEnded
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseAwaiting:
		return "awaiting"
	case PhaseRevealing:
		return "revealing"
	case PhaseForm:
		return "form"
	case PhaseStalled:
		return "stalled"
	case PhaseExpired:
		return "expired"
	case PhaseEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// InputEnabled reports whether the user may submit anything.
func (p Phase) InputEnabled() bool {
	return p == PhaseIdle || p == PhaseForm
}

// Loading reports whether a spinner should be shown.
func (p Phase) Loading() bool {
	return p == PhaseAwaiting
}

// Terminal reports whether only a reload can leave this phase.
func (p Phase) Terminal() bool {
	return p == PhaseExpired || p == PhaseEnded
}
