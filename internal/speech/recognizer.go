// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package speech

import (
	"bufio"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Recognizer streams recognized utterances until ctx is cancelled or the
// source ends. The returned channel is closed when recognition stops; a
// non-nil error is delivered on errs before it closes.
type Recognizer interface {
	Recognize(ctx context.Context, language string) (utterances <-chan string, errs <-chan error, err error)
}

// CommandRecognizer runs an external program that prints one utterance per
// line on stdout. The literal {lang} in the command is replaced with the
// recognition language.
type CommandRecognizer struct {
	argv []string
}

// NewCommandRecognizer parses a whitespace separated command line.
func NewCommandRecognizer(command string) *CommandRecognizer {
	return &CommandRecognizer{argv: strings.Fields(command)}
}

// Recognize starts the command.
func (r *CommandRecognizer) Recognize(ctx context.Context, language string) (<-chan string, <-chan error, error) {
	if len(r.argv) == 0 {
		return nil, nil, ErrNoCommand
	}
	argv := make([]string, len(r.argv))
	for i, a := range r.argv {
		argv[i] = strings.ReplaceAll(a, "{lang}", language)
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, nil, fmt.Errorf("recognizer stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, nil, fmt.Errorf("start recognizer: %w", err)
	}

	out := make(chan string)
	errs := make(chan error, 1)
	go func() {
		defer close(out)
		defer close(errs)

		scanner := bufio.NewScanner(stdout)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			select {
			case out <- line:
			case <-ctx.Done():
				_ = cmd.Wait()
				return
			}
		}
		scanErr := scanner.Err()
		waitErr := cmd.Wait()
		if ctx.Err() != nil {
			return
		}
		if scanErr != nil {
			errs <- fmt.Errorf("read recognizer: %w", scanErr)
		} else if waitErr != nil {
			errs <- fmt.Errorf("recognizer exited: %w", waitErr)
		}
	}()
	return out, errs, nil
}
