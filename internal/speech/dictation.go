// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package speech

import (
	"context"
	"errors"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/jeranaias/vachat/internal/logging"
)

// ErrAlreadyListening is returned by Start while a capture is running.
var ErrAlreadyListening = errors.New("dictation already active")

// Dictation owns one speech capture at a time.
type Dictation struct {
	recognizer Recognizer
	playback   *Playback
	log        logrus.FieldLogger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewDictation creates a dictation controller. playback may be nil.
func NewDictation(r Recognizer, playback *Playback, log logrus.FieldLogger) *Dictation {
	return &Dictation{recognizer: r, playback: playback, log: logging.OrDiscard(log)}
}

// Listening reports whether a capture is active.
func (d *Dictation) Listening() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cancel != nil
}

// Start stops any playback and begins capture. onText receives each cleaned
// utterance; onStop fires once when capture ends for any reason. Both run on
// the capture goroutine.
func (d *Dictation) Start(language string, onText func(string), onStop func(error)) error {
	if d.recognizer == nil {
		return ErrNoCommand
	}
	d.mu.Lock()
	if d.cancel != nil {
		d.mu.Unlock()
		return ErrAlreadyListening
	}
	ctx, cancel := context.WithCancel(context.Background())
	d.cancel = cancel
	d.done = make(chan struct{})
	done := d.done
	d.mu.Unlock()

	if d.playback != nil {
		d.playback.Stop()
	}

	utterances, errs, err := d.recognizer.Recognize(ctx, language)
	if err != nil {
		d.finish(done)
		cancel()
		return err
	}

	go func() {
		var runErr error
		defer func() {
			d.finish(done)
			cancel()
			if onStop != nil {
				onStop(runErr)
			}
		}()
		for text := range utterances {
			cleaned := CleanTranscript(text)
			if cleaned == "" {
				continue
			}
			d.log.WithField("chars", len(cleaned)).Debug("utterance recognized")
			if onText != nil {
				onText(cleaned)
			}
		}
		runErr = <-errs
		if runErr != nil {
			d.log.WithError(runErr).Warn("speech recognition stopped")
		}
	}()
	return nil
}

// Stop ends the capture and waits for it to wind down.
func (d *Dictation) Stop() {
	d.mu.Lock()
	cancel, done := d.cancel, d.done
	d.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (d *Dictation) finish(done chan struct{}) {
	d.mu.Lock()
	if d.done == done {
		d.cancel = nil
		d.done = nil
	}
	d.mu.Unlock()
	close(done)
}
