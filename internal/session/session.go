// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"strconv"
	"sync"
	"time"
)

// =============================================================================
// STATUS
// =============================================================================

// Status is the session lifecycle state.
type Status int

const (
	StatusActive Status = iota
	StatusExpired
	StatusEnded
)

// String returns the string representation of the status.
func (s Status) String() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusExpired:
		return "expired"
	case StatusEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further turns are possible.
func (s Status) Terminal() bool {
	return s == StatusExpired || s == StatusEnded
}

// =============================================================================
// SESSION
// =============================================================================

// Session holds orchestrator credentials and lifecycle status.
type Session struct {
	mu sync.Mutex

	sessionID string
	token     string
	status    Status

	startTime time.Time
	closedAt  time.Time

	onTransition func(Status)
}

// New creates an active session with no credentials.
func New() *Session {
	return &Session{startTime: time.Now()}
}

// ID returns the orchestrator session id ("" before the first response).
func (s *Session) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessionID
}

// Token returns the orchestrator token ("" before the first response).
func (s *Session) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// Credentials returns the session id and token together.
func (s *Session) Credentials() (string, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessionID, s.token
}

// Status returns the lifecycle status.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Active reports whether the session accepts further turns.
func (s *Session) Active() bool {
	return s.Status() == StatusActive
}

// UpdateCredentials stores the id and token from a response. Empty values
// keep what was stored before.
func (s *Session) UpdateCredentials(sessionID, token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sessionID != "" {
		s.sessionID = sessionID
	}
	if token != "" {
		s.token = token
	}
}

// SetTransitionCallback registers fn to run after a lifecycle transition.
// fn runs without the session lock held.
func (s *Session) SetTransitionCallback(fn func(Status)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onTransition = fn
}

// Expire moves an active session to expired. It reports whether the
// transition happened; a closed session is left unchanged.
func (s *Session) Expire() bool {
	return s.transition(StatusExpired)
}

// End moves an active session to ended. It reports whether the transition
// happened; a closed session is left unchanged.
func (s *Session) End() bool {
	return s.transition(StatusEnded)
}

func (s *Session) transition(to Status) bool {
	s.mu.Lock()
	if s.status != StatusActive {
		s.mu.Unlock()
		return false
	}
	s.status = to
	s.closedAt = time.Now()
	cb := s.onTransition
	s.mu.Unlock()

	if cb != nil {
		cb(to)
	}
	return true
}

// =============================================================================
// SNAPSHOT
// =============================================================================

// Snapshot is a point-in-time view of the session.
type Snapshot struct {
	SessionID string
	HasToken  bool
	Status    Status
	StartTime time.Time
	Duration  time.Duration
}

// Snapshot returns the current state. The token itself is not copied.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	end := time.Now()
	if !s.closedAt.IsZero() {
		end = s.closedAt
	}
	return Snapshot{
		SessionID: s.sessionID,
		HasToken:  s.token != "",
		Status:    s.status,
		StartTime: s.startTime,
		Duration:  end.Sub(s.startTime),
	}
}

// FormatDuration returns a human-readable duration string.
func FormatDuration(d time.Duration) string {
	if d < time.Minute {
		return strconv.Itoa(int(d.Seconds())) + "s"
	}
	mins := int(d.Minutes())
	secs := int(d.Seconds()) % 60
	if secs == 0 {
		return strconv.Itoa(mins) + "m"
	}
	return strconv.Itoa(mins) + "m " + strconv.Itoa(secs) + "s"
}
