// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"sync"
	"testing"
	"time"
)

func TestNew_Active(t *testing.T) {
	s := New()
	if !s.Active() {
		t.Error("new session should be active")
	}
	if id, token := s.Credentials(); id != "" || token != "" {
		t.Errorf("new session credentials = %q/%q, want empty", id, token)
	}
}

func TestUpdateCredentials_KeepsPrevious(t *testing.T) {
	s := New()
	s.UpdateCredentials("s1", "t1")
	s.UpdateCredentials("", "")
	if s.ID() != "s1" || s.Token() != "t1" {
		t.Errorf("credentials = %q/%q, want s1/t1", s.ID(), s.Token())
	}
	s.UpdateCredentials("s2", "")
	if s.ID() != "s2" || s.Token() != "t1" {
		t.Errorf("credentials = %q/%q, want s2/t1", s.ID(), s.Token())
	}
}

func TestTransitions_OneWay(t *testing.T) {
	tests := []struct {
		name  string
		first func(*Session) bool
		then  func(*Session) bool
		want  Status
	}{
		{"expire then end", (*Session).Expire, (*Session).End, StatusExpired},
		{"end then expire", (*Session).End, (*Session).Expire, StatusEnded},
		{"expire twice", (*Session).Expire, (*Session).Expire, StatusExpired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New()
			if !tt.first(s) {
				t.Fatal("first transition should succeed")
			}
			if tt.then(s) {
				t.Error("second transition should be rejected")
			}
			if s.Status() != tt.want {
				t.Errorf("Status() = %v, want %v", s.Status(), tt.want)
			}
			if !s.Status().Terminal() {
				t.Error("status should be terminal")
			}
		})
	}
}

func TestTransitionCallback(t *testing.T) {
	s := New()
	var got []Status
	s.SetTransitionCallback(func(st Status) {
		// Callback runs unlocked, so reading state here must not deadlock.
		_ = s.Status()
		got = append(got, st)
	})
	s.End()
	s.Expire()
	if len(got) != 1 || got[0] != StatusEnded {
		t.Errorf("callback calls = %v, want [ended]", got)
	}
}

func TestConcurrentExpireEnd(t *testing.T) {
	s := New()
	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			var ok bool
			if i%2 == 0 {
				ok = s.Expire()
			} else {
				ok = s.End()
			}
			if ok {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()
	if wins != 1 {
		t.Errorf("%d transitions succeeded, want exactly 1", wins)
	}
}

func TestSnapshot(t *testing.T) {
	s := New()
	s.UpdateCredentials("abc", "secret")
	snap := s.Snapshot()
	if snap.SessionID != "abc" || !snap.HasToken || snap.Status != StatusActive {
		t.Errorf("Snapshot() = %+v", snap)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{45 * time.Second, "45s"},
		{2 * time.Minute, "2m"},
		{2*time.Minute + 5*time.Second, "2m 5s"},
	}
	for _, tt := range tests {
		if got := FormatDuration(tt.d); got != tt.want {
			t.Errorf("FormatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestStatus_String(t *testing.T) {
	if StatusExpired.String() != "expired" || StatusEnded.String() != "ended" || StatusActive.String() != "active" {
		t.Error("unexpected Status.String() values")
	}
}
