// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package speech

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// ErrNoCommand is returned when a command-backed device has no command line.
var ErrNoCommand = errors.New("no command configured")

// Player plays encoded audio. Play blocks until playback finishes or ctx is
// cancelled; cancellation is not an error.
type Player interface {
	Play(ctx context.Context, audio []byte) error
}

// CommandPlayer pipes audio into an external program's stdin.
type CommandPlayer struct {
	argv []string
}

// NewCommandPlayer parses a whitespace separated command line such as
// "ffplay -nodisp -autoexit -loglevel quiet -".
func NewCommandPlayer(command string) *CommandPlayer {
	return &CommandPlayer{argv: strings.Fields(command)}
}

// Play runs the command with audio on stdin.
func (p *CommandPlayer) Play(ctx context.Context, audio []byte) error {
	if len(p.argv) == 0 {
		return ErrNoCommand
	}
	cmd := exec.CommandContext(ctx, p.argv[0], p.argv[1:]...)
	cmd.Stdin = bytes.NewReader(audio)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err := cmd.Run()
	if ctx.Err() != nil {
		return nil
	}
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("%s: %w: %s", p.argv[0], err, msg)
		}
		return fmt.Errorf("%s: %w", p.argv[0], err)
	}
	return nil
}
