// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package feedback tracks like/dislike ratings on bot messages and reports
// each change to the backend without blocking the caller.
package feedback

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jeranaias/vachat/internal/logging"
)

// Value is a rating. The zero value means no rating.
type Value string

const (
	None    Value = ""
	Like    Value = "like"
	Dislike Value = "dislike"
)

// Poster delivers a rating change. An empty value clears the rating.
type Poster interface {
	Post(ctx context.Context, messageID, value string) error
}

// Tracker holds ratings per message id. Safe for concurrent use.
//
// Posts for one message id go out one at a time, in click order. Clicks
// that land while a post is in flight collapse into the latest value, so
// the backend always ends on the rating shown locally.
type Tracker struct {
	mu      sync.Mutex
	ratings map[string]Value
	pending map[string]Value
	posting map[string]bool

	poster  Poster
	timeout time.Duration
	log     logrus.FieldLogger
	wg      sync.WaitGroup
}

// NewTracker creates a tracker. A nil poster keeps ratings local.
func NewTracker(poster Poster, log logrus.FieldLogger) *Tracker {
	return &Tracker{
		ratings: make(map[string]Value),
		pending: make(map[string]Value),
		posting: make(map[string]bool),
		poster:  poster,
		timeout: 10 * time.Second,
		log:     logging.OrDiscard(log),
	}
}

// Toggle applies a click on v for messageID and returns the new rating.
// Clicking the active rating clears it; clicking the other switches.
func (t *Tracker) Toggle(messageID string, v Value) Value {
	t.mu.Lock()
	defer t.mu.Unlock()
	next := v
	if t.ratings[messageID] == v {
		next = None
	}
	if next == None {
		delete(t.ratings, messageID)
	} else {
		t.ratings[messageID] = next
	}
	t.enqueueLocked(messageID, next)
	return next
}

// Get returns the rating for messageID.
func (t *Tracker) Get(messageID string) Value {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ratings[messageID]
}

// Reset drops all ratings (new conversation).
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.ratings = make(map[string]Value)
}

// Wait blocks until in-flight posts finish. Used on shutdown and in tests.
func (t *Tracker) Wait() {
	t.wg.Wait()
}

// enqueueLocked records v as the next value to send for messageID and
// starts a sender for that id unless one is already running.
func (t *Tracker) enqueueLocked(messageID string, v Value) {
	if t.poster == nil {
		return
	}
	t.pending[messageID] = v
	if t.posting[messageID] {
		return
	}
	t.posting[messageID] = true
	t.wg.Add(1)
	go t.drain(messageID)
}

// drain posts the latest pending value for messageID until none is left.
// Posting is fire-and-forget: failures are logged, never returned.
func (t *Tracker) drain(messageID string) {
	defer t.wg.Done()
	for {
		t.mu.Lock()
		v, ok := t.pending[messageID]
		if !ok {
			delete(t.posting, messageID)
			t.mu.Unlock()
			return
		}
		delete(t.pending, messageID)
		t.mu.Unlock()

		t.send(messageID, v)
	}
}

func (t *Tracker) send(messageID string, v Value) {
	ctx, cancel := context.WithTimeout(context.Background(), t.timeout)
	defer cancel()
	if err := t.poster.Post(ctx, messageID, string(v)); err != nil {
		t.log.WithError(err).WithField("message_id", messageID).Warn("feedback post failed")
	}
}
