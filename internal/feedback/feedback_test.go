// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package feedback

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

type recordingPoster struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (p *recordingPoster) Post(_ context.Context, id, value string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, id+"="+value)
	return p.err
}

func TestToggle_Semantics(t *testing.T) {
	tests := []struct {
		name   string
		clicks []Value
		want   Value
	}{
		{"like", []Value{Like}, Like},
		{"like twice clears", []Value{Like, Like}, None},
		{"dislike replaces like", []Value{Like, Dislike}, Dislike},
		{"like replaces dislike", []Value{Dislike, Like}, Like},
		{"dislike twice clears", []Value{Dislike, Dislike}, None},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := NewTracker(nil, nil)
			var got Value
			for _, c := range tt.clicks {
				got = tr.Toggle("m1", c)
			}
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.want, tr.Get("m1"))
		})
	}
}

func TestToggle_PostsEveryChange(t *testing.T) {
	p := &recordingPoster{}
	tr := NewTracker(p, nil)
	tr.Toggle("m1", Like)
	tr.Wait()
	tr.Toggle("m1", Like)
	tr.Wait()
	tr.Toggle("m1", Dislike)
	tr.Wait()

	assert.Equal(t, []string{"m1=like", "m1=", "m1=dislike"}, p.calls)
}

// gatedPoster holds its first call until release is closed.
type gatedPoster struct {
	recordingPoster
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (p *gatedPoster) Post(ctx context.Context, id, value string) error {
	err := p.recordingPoster.Post(ctx, id, value)
	first := false
	p.once.Do(func() { first = true })
	if first {
		close(p.started)
		<-p.release
	}
	return err
}

func TestToggle_SlowPostKeepsLatest(t *testing.T) {
	p := &gatedPoster{started: make(chan struct{}), release: make(chan struct{})}
	tr := NewTracker(p, nil)

	tr.Toggle("m1", Like)
	<-p.started
	tr.Toggle("m1", Like)
	tr.Toggle("m1", Dislike)
	tr.Toggle("m1", Dislike)
	close(p.release)
	tr.Wait()

	assert.Equal(t, None, tr.Get("m1"))
	assert.Equal(t, []string{"m1=like", "m1="}, p.calls, "backend ends on the local rating")
}

func TestToggle_IndependentMessages(t *testing.T) {
	p := &recordingPoster{}
	tr := NewTracker(p, nil)
	tr.Toggle("a", Like)
	tr.Toggle("b", Dislike)
	tr.Wait()

	assert.ElementsMatch(t, []string{"a=like", "b=dislike"}, p.calls)
}

func TestToggle_PostFailureSwallowed(t *testing.T) {
	p := &recordingPoster{err: errors.New("backend down")}
	tr := NewTracker(p, nil)
	assert.Equal(t, Like, tr.Toggle("m1", Like))
	tr.Wait()
	assert.Equal(t, Like, tr.Get("m1"), "local state survives post failure")
}

func TestReset(t *testing.T) {
	tr := NewTracker(nil, nil)
	tr.Toggle("a", Like)
	tr.Reset()
	assert.Equal(t, None, tr.Get("a"))
}
