// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat.go - line-based REPL for vachat.
//
// Command: chat
// Short:   Chat in a plain line REPL
//
// Interactive commands (during chat):
//
//	/attach <path>   stage a file or image
//	/upload          send staged files (file-processing assistants)
//	/like, /dislike  rate the newest reply
//	/export [md|json] save the conversation
//	/new             start over
//	/help            show commands
//	/quit            exit
//	Ctrl+D           exit
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/jeranaias/vachat/internal/config"
	"github.com/jeranaias/vachat/internal/controller"
	"github.com/jeranaias/vachat/internal/export"
	"github.com/jeranaias/vachat/internal/feedback"
	"github.com/jeranaias/vachat/internal/form"
	"github.com/jeranaias/vachat/internal/locale"
	"github.com/jeranaias/vachat/internal/model"
)

func newChatCmd(flags *globalFlags) *cobra.Command {
	var raw bool
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat in a plain line REPL",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, flags, true, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			p, err := a.pickPlugin(ctx, flags.pluginRef)
			if err != nil {
				return err
			}
			lang := a.language(flags.language).Language
			if lang == "" {
				lang = a.doc.PreferredLanguage
			}
			ctrl := a.newController(lang)
			ctrl.SetPlugin(p, a.newExchanger(p))

			input := NewChatCLI()
			defer input.Close()

			s := &replSession{
				ctrl:      ctrl,
				in:        input,
				out:       cmd.OutOrStdout(),
				strings:   a.strings,
				feedback:  a.newFeedback(),
				raw:       raw,
				agents:    a.doc.Features.DisplayAgents,
				exportDir: a.cfg.UI.ExportDir,
			}
			fmt.Fprintln(s.out, welcomeStyle.Render("vachat")+" "+infoStyle.Render(p.Title+" ("+ctrl.Language()+") - /help for commands"))
			return s.run(ctx)
		},
	}
	cmd.Flags().BoolVar(&raw, "raw", false, "print replies without markdown rendering")
	return cmd
}

// =============================================================================
// INPUT HISTORY
// =============================================================================

// lineReader reads one line of user input.
type lineReader interface {
	ReadInput(prompt string) (string, error)
}

// ChatCLI provides line editing and persistent history.
type ChatCLI struct {
	line        *liner.State
	historyFile string
}

// NewChatCLI creates a ChatCLI and loads saved history.
func NewChatCLI() *ChatCLI {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	dir, err := config.ConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	c := &ChatCLI{line: line, historyFile: filepath.Join(dir, "chat_history")}
	if f, err := os.Open(c.historyFile); err == nil {
		c.line.ReadHistory(f)
		f.Close()
	}
	return c
}

// ReadInput reads a line, adding non-empty input to history.
func (c *ChatCLI) ReadInput(prompt string) (string, error) {
	input, err := c.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		c.line.AppendHistory(input)
	}
	return input, nil
}

// Close saves history with owner-only permissions and restores the terminal.
func (c *ChatCLI) Close() {
	if err := os.MkdirAll(filepath.Dir(c.historyFile), 0700); err == nil {
		if f, err := os.OpenFile(c.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600); err == nil {
			c.line.WriteHistory(f)
			f.Close()
		}
	}
	c.line.Close()
}

// =============================================================================
// REPL
// =============================================================================

type replSession struct {
	ctrl     *controller.Controller
	in       lineReader
	out      io.Writer
	strings  *locale.Strings
	feedback *feedback.Tracker
	raw      bool
	// agents echoes the agents' conversation after each reply.
	agents bool
	// exportDir receives /export files.
	exportDir string

	// printed is how much of the log has been echoed.
	printed int
}

func (s *replSession) text(key string) string {
	return s.strings.Get(key, s.ctrl.Language())
}

// run bootstraps and then loops until EOF, /quit or a closed session.
func (s *replSession) run(ctx context.Context) error {
	defer func() {
		if s.feedback != nil {
			s.feedback.Wait()
		}
	}()

	if err := s.bootstrap(ctx); err != nil {
		return err
	}

	for {
		if s.ctrl.Phase() == controller.PhaseForm {
			if err := s.fillForm(ctx); err != nil {
				if isEOF(err) {
					return nil
				}
				s.printErr(err)
			}
			continue
		}

		input, err := s.in.ReadInput(promptStyle.Render("you> "))
		if err != nil {
			if isEOF(err) {
				fmt.Fprintln(s.out)
				return nil
			}
			return err
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			if !s.command(ctx, input) {
				return nil
			}
			continue
		}

		if s.ctrl.Phase().Terminal() {
			fmt.Fprintln(s.out, warningStyle.Render(lifecycleNotice(s.strings, s.ctrl.Language(), s.ctrl.Phase())+"  (/new)"))
			continue
		}
		if s.filesMode() {
			out, err := s.ctrl.Upload(ctx)
			s.report(out, err)
			continue
		}
		out, err := s.ctrl.Send(ctx, input)
		s.report(out, err)
	}
}

func (s *replSession) filesMode() bool {
	p, ok := s.ctrl.Plugin()
	return ok && p.ProcessesFiles()
}

func (s *replSession) bootstrap(ctx context.Context) error {
	if s.filesMode() {
		fmt.Fprintln(s.out, infoStyle.Render(s.text(locale.KeyUploadFilesText)+": /attach <path>, then /upload"))
		return nil
	}
	out, err := s.ctrl.Bootstrap(ctx)
	if errors.Is(err, controller.ErrAlreadyBootstrapped) {
		return nil
	}
	s.report(out, err)
	return nil
}

// report prints the outcome of a turn.
func (s *replSession) report(out controller.Outcome, err error) {
	switch {
	case errors.Is(err, controller.ErrEmptyMessage):
		return
	case errors.Is(err, controller.ErrInputDisabled):
		fmt.Fprintln(s.out, warningStyle.Render("[!] free text is disabled for this assistant"))
		return
	case errors.Is(err, controller.ErrNoFiles):
		fmt.Fprintln(s.out, warningStyle.Render("[!] "+s.text(locale.KeyNoUploadText)))
		return
	case err != nil:
		s.printErr(err)
		return
	}
	if out.Err != nil {
		s.printErr(fmt.Errorf("%s: %w", s.text(locale.KeyConnectionError), out.Err))
		return
	}
	if out.Reply != nil && out.Reply.Text != "" {
		fmt.Fprintln(s.out, replyText(out.Reply, s.raw))
	}
	if out.Reply != nil && out.Reply.Attachments.Files != nil {
		s.printProcessed(out.Reply.Attachments.Files)
	}
	msgs := s.ctrl.Messages()
	if s.printed > len(msgs) {
		s.printed = 0
	}
	for _, msg := range msgs[s.printed:] {
		switch {
		case msg.Sender == model.SenderDebug:
			fmt.Fprintln(s.out, infoStyle.Render("debug: "+msg.Text))
		case msg.IsStatus() && s.agents:
			line := msg.Text
			if msg.Agent != "" {
				line = msg.Agent + ": " + line
			}
			fmt.Fprintln(s.out, infoStyle.Render("  | "+line))
		}
	}
	s.printed = len(msgs)
	if notice := lifecycleNotice(s.strings, s.ctrl.Language(), out.Phase); notice != "" {
		fmt.Fprintln(s.out, warningStyle.Render("[!] "+notice))
	}
}

func (s *replSession) printProcessed(files []model.FileRef) {
	if len(files) == 0 {
		fmt.Fprintln(s.out, warningStyle.Render(s.text(locale.KeyNoProcessText)))
		return
	}
	fmt.Fprintln(s.out, labelStyle.Render(s.text(locale.KeyProcessedFilesText)+":"))
	for _, f := range files {
		fmt.Fprintln(s.out, "  "+f.Name)
	}
}

func (s *replSession) printErr(err error) {
	fmt.Fprintf(s.out, "%s %v\n", errorStyle.Render("[Error]"), err)
}

// command runs a slash command and reports whether the REPL continues.
func (s *replSession) command(ctx context.Context, input string) bool {
	fields := strings.Fields(input)
	name, args := strings.ToLower(fields[0]), fields[1:]

	switch name {
	case "/quit", "/q", "/exit":
		return false
	case "/help", "/h":
		for _, line := range []string{
			"/attach <path>   stage a file or image",
			"/upload          send staged files for processing",
			"/like, /dislike  rate the newest reply",
			"/export [md|json] save the conversation",
			"/new             start a new conversation",
			"/quit            exit",
		} {
			fmt.Fprintln(s.out, commandStyle.Render(line))
		}
	case "/attach":
		if len(args) == 0 {
			s.printErr(errors.New("usage: /attach <path>"))
			break
		}
		kind, err := s.ctrl.Attachments().AddPath(strings.Join(args, " "))
		if err != nil {
			s.printErr(err)
			break
		}
		next := "your next message"
		if s.filesMode() {
			next = "/upload"
		}
		fmt.Fprintln(s.out, infoStyle.Render("staged "+kind.String()+", sent with "+next))
	case "/upload":
		if !s.filesMode() {
			s.printErr(errors.New("this assistant does not process files"))
			break
		}
		out, err := s.ctrl.Upload(ctx)
		s.report(out, err)
	case "/like", "/dislike":
		s.rate(name == "/like")
	case "/export":
		format := ""
		if len(args) > 0 {
			format = args[0]
		}
		path, err := s.export(format)
		if err != nil {
			s.printErr(err)
			break
		}
		fmt.Fprintln(s.out, infoStyle.Render("exported to "+path))
	case "/new", "/reload":
		s.ctrl.Reload()
		s.printed = 0
		if s.feedback != nil {
			s.feedback.Reset()
		}
		_ = s.bootstrap(ctx)
	default:
		s.printErr(fmt.Errorf("unknown command %s", name))
	}
	return true
}

func (s *replSession) export(format string) (string, error) {
	opts := export.DefaultOptions()
	if s.exportDir != "" {
		opts.OutputDir = s.exportDir
	}
	exporter, err := export.ForFormat(format, opts)
	if err != nil {
		return "", err
	}
	t := &export.Transcript{
		Language:  s.ctrl.Language(),
		SessionID: s.ctrl.Session().SessionID,
		Messages:  s.ctrl.Messages(),
	}
	if p, ok := s.ctrl.Plugin(); ok {
		t.Title, t.Plugin = p.Title, p.Title
	}
	return export.ToFile(t, exporter, opts)
}

func (s *replSession) rate(like bool) {
	if s.feedback == nil {
		s.printErr(errors.New("feedback is not available"))
		return
	}
	msgs := s.ctrl.Messages()
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].IsBot() && !msgs[i].Pending {
			v := feedback.Dislike
			if like {
				v = feedback.Like
			}
			got := s.feedback.Toggle(msgs[i].ID, v)
			if got == feedback.None {
				got = "cleared"
			}
			fmt.Fprintln(s.out, infoStyle.Render("feedback: "+string(got)))
			return
		}
	}
}

// =============================================================================
// FORMS
// =============================================================================

// fillForm prompts for every field of the active form, then submits. Fields
// with options accept numbers ("2", or "1,3" for a multiselect).
func (s *replSession) fillForm(ctx context.Context) error {
	f := s.ctrl.Form()
	if f == nil {
		return controller.ErrNoForm
	}
	if title := f.Template().Title; title != "" {
		fmt.Fprintln(s.out, welcomeStyle.Render(title))
	}
	for _, field := range f.Template().Fields() {
		if len(f.Values(field.Name)) > 0 && !f.IsMissing(field.Name) {
			continue
		}
		if err := s.askField(f, field); err != nil {
			return err
		}
	}

	out, err := s.ctrl.SubmitForm(ctx)
	if errors.Is(err, controller.ErrFormIncomplete) {
		fmt.Fprintln(s.out, warningStyle.Render("[!] "+s.text(locale.KeyFormIncomplete)))
		return nil
	}
	s.report(out, err)
	return nil
}

func (s *replSession) askField(f *form.Form, field *form.Field) error {
	if field.Type.HasOptions() {
		for i, o := range field.Options {
			fmt.Fprintf(s.out, "  %s %s\n", commandStyle.Render(strconv.Itoa(i+1)+")"), o.Label)
		}
	}
	line, err := s.in.ReadInput(labelStyle.Render(field.Title()) + " ")
	if err != nil {
		return err
	}
	line = strings.TrimSpace(line)
	if !field.Type.HasOptions() {
		return f.Set(field.Name, line)
	}

	for _, part := range strings.FieldsFunc(line, func(r rune) bool { return r == ',' || r == ' ' }) {
		n, err := strconv.Atoi(part)
		if err != nil || n < 1 || n > len(field.Options) {
			return fmt.Errorf("%q is not an option number", part)
		}
		value := field.Options[n-1].Value
		if field.Type == form.TypeMultiselect {
			if !f.Selected(field.Name, value) {
				_ = f.Toggle(field.Name, value)
			}
		} else {
			_ = f.Set(field.Name, value)
		}
	}
	return nil
}

func isEOF(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, liner.ErrPromptAborted)
}
