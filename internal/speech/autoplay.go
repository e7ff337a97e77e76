// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package speech

import (
	"strings"
	"sync"
	"time"

	"github.com/jeranaias/vachat/internal/model"
)

// DefaultAutoPlayDelay is the quiet period before the newest reply plays.
const DefaultAutoPlayDelay = 500 * time.Millisecond

// PlayFunc starts playback of one message.
type PlayFunc func(id, text string)

// AutoPlayer plays each new bot reply once, after its text has stopped
// changing for the debounce delay.
type AutoPlayer struct {
	delay time.Duration
	play  PlayFunc

	mu      sync.Mutex
	timer   *time.Timer
	played  map[string]bool
	enabled bool
}

// NewAutoPlayer creates an auto-player. A non-positive delay uses
// DefaultAutoPlayDelay.
func NewAutoPlayer(delay time.Duration, play PlayFunc) *AutoPlayer {
	if delay <= 0 {
		delay = DefaultAutoPlayDelay
	}
	return &AutoPlayer{
		delay:   delay,
		play:    play,
		played:  make(map[string]bool),
		enabled: true,
	}
}

// SetEnabled turns auto-play on or off. Disabling cancels a scheduled play.
func (a *AutoPlayer) SetEnabled(on bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.enabled = on
	if !on {
		a.stopTimerLocked()
	}
}

// Enabled reports the current setting.
func (a *AutoPlayer) Enabled() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.enabled
}

// Observe is called whenever the newest message changes. Each call restarts
// the debounce window.
func (a *AutoPlayer) Observe(msg model.Message) {
	if msg.Sender != model.SenderBot || msg.Pending || msg.Revealing {
		return
	}
	if strings.TrimSpace(msg.Text) == "" {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.enabled || a.played[msg.ID] {
		return
	}
	a.stopTimerLocked()

	id, text := msg.ID, msg.Text
	a.timer = time.AfterFunc(a.delay, func() {
		a.mu.Lock()
		if !a.enabled || a.played[id] {
			a.mu.Unlock()
			return
		}
		a.played[id] = true
		a.timer = nil
		a.mu.Unlock()
		a.play(id, text)
	})
}

// MarkPlayed records id as already heard, e.g. after a manual play.
func (a *AutoPlayer) MarkPlayed(id string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.played[id] = true
}

// Reset cancels any scheduled play and forgets history.
func (a *AutoPlayer) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stopTimerLocked()
	a.played = make(map[string]bool)
}

func (a *AutoPlayer) stopTimerLocked() {
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
}
