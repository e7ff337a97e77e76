// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package speech

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/jeranaias/vachat/internal/logging"
)

// =============================================================================
// PLAYBACK
// =============================================================================

// Playback plays at most one message at a time. Starting a message stops the
// current one first; toggling the playing message stops it.
type Playback struct {
	synth  Synthesizer
	player Player
	log    logrus.FieldLogger

	mu      sync.Mutex
	current string
	gen     uint64
	cancel  context.CancelFunc
	done    chan struct{}

	onChange func(id string, playing bool)
}

// NewPlayback creates a controller. A nil synthesizer or player makes every
// play attempt a logged no-op.
func NewPlayback(synth Synthesizer, player Player, log logrus.FieldLogger) *Playback {
	return &Playback{synth: synth, player: player, log: logging.OrDiscard(log)}
}

// OnChange registers a callback fired when a stream starts or ends. It runs
// on the playback goroutine.
func (p *Playback) OnChange(fn func(id string, playing bool)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onChange = fn
}

// Current returns the id being played, or "".
func (p *Playback) Current() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// Playing reports whether id is the active stream.
func (p *Playback) Playing(id string) bool {
	return id != "" && p.Current() == id
}

// Toggle stops id if it is playing, otherwise plays it. Returns whether id
// is playing afterwards.
func (p *Playback) Toggle(id, text, language string) bool {
	p.mu.Lock()
	if p.current == id && id != "" {
		prevCancel, prevDone := p.stopLocked()
		p.mu.Unlock()
		wait(prevCancel, prevDone)
		p.notify(id, false)
		return false
	}
	p.mu.Unlock()
	return p.Play(id, text, language)
}

// Play starts id unless it is already playing. Any other stream is stopped
// and has fully exited before the new one starts.
func (p *Playback) Play(id, text, language string) bool {
	if id == "" {
		return false
	}
	p.mu.Lock()
	if p.current == id {
		p.mu.Unlock()
		return true
	}
	prevID := p.current
	prevCancel, prevDone := p.stopLocked()

	p.gen++
	gen := p.gen
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	p.current = id
	p.cancel = cancel
	p.done = done
	p.mu.Unlock()

	if prevID != "" {
		p.log.WithField("message_id", prevID).Debug("playback interrupted")
	}

	go func() {
		defer close(done)
		wait(prevCancel, prevDone)
		if prevID != "" {
			p.notify(prevID, false)
		}
		p.run(ctx, gen, id, text, language)
	}()
	return true
}

// Stop ends the active stream, if any, and waits for it to exit.
func (p *Playback) Stop() {
	p.mu.Lock()
	id := p.current
	cancel, done := p.stopLocked()
	p.mu.Unlock()
	wait(cancel, done)
	if id != "" {
		p.notify(id, false)
	}
}

func (p *Playback) stopLocked() (context.CancelFunc, chan struct{}) {
	cancel, done := p.cancel, p.done
	p.current = ""
	p.cancel = nil
	p.done = nil
	p.gen++
	return cancel, done
}

func (p *Playback) run(ctx context.Context, gen uint64, id, text, language string) {
	if ctx.Err() != nil {
		return
	}
	p.notify(id, true)

	err := p.stream(ctx, text, language)
	if err != nil && ctx.Err() == nil {
		p.log.WithError(err).WithField("message_id", id).Warn("playback failed")
	}

	// A newer Play or Stop owns the state; leave it alone.
	p.mu.Lock()
	if p.gen != gen {
		p.mu.Unlock()
		return
	}
	p.current = ""
	p.cancel = nil
	p.done = nil
	p.mu.Unlock()
	p.notify(id, false)
}

func (p *Playback) stream(ctx context.Context, text, language string) error {
	if p.synth == nil || p.player == nil {
		return ErrNoCommand
	}
	audio, err := p.synth.Synthesize(ctx, text, language)
	if err != nil {
		return err
	}
	return p.player.Play(ctx, audio)
}

func (p *Playback) notify(id string, playing bool) {
	p.mu.Lock()
	fn := p.onChange
	p.mu.Unlock()
	if fn != nil {
		fn(id, playing)
	}
}

func wait(cancel context.CancelFunc, done chan struct{}) {
	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}
