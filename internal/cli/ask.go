// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeranaias/vachat/internal/controller"
	"github.com/jeranaias/vachat/internal/locale"
)

// newAskCmd builds the one-shot command: open a session, send one message,
// print the reply.
func newAskCmd(flags *globalFlags) *cobra.Command {
	var (
		raw     bool
		attach  []string
		noGreet bool
	)
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Send one message and print the reply",
		Example: `  vachat ask "How do I reset my password?"
  vachat ask --plugin Helpdesk --attach invoice.pdf "Is this paid?"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, flags, false, cmd.ErrOrStderr())
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
			out := cmd.OutOrStdout()

			boot, err := ctrl.Bootstrap(ctx)
			if err != nil {
				return fmt.Errorf("open session: %w", err)
			}
			if boot.Err != nil {
				return fmt.Errorf("%s: %w", a.strings.Get(locale.KeyConnectionError, lang), boot.Err)
			}
			if notice := lifecycleNotice(a.strings, ctrl.Language(), boot.Phase); notice != "" {
				return errors.New(notice)
			}
			if !noGreet && boot.Reply != nil && boot.Reply.Text != "" {
				fmt.Fprintln(out, infoStyle.Render(replyText(boot.Reply, true)))
			}

			for _, path := range attach {
				if _, err := ctrl.Attachments().AddPath(path); err != nil {
					return err
				}
			}

			res, err := ctrl.Send(ctx, strings.Join(args, " "))
			if err != nil {
				return err
			}
			if res.Err != nil {
				return fmt.Errorf("%s: %w", a.strings.Get(locale.KeyConnectionError, lang), res.Err)
			}
			fmt.Fprintln(out, replyText(res.Reply, raw))

			if res.Phase == controller.PhaseForm && ctrl.Form() != nil {
				fmt.Fprintln(out, warningStyle.Render("[!] the assistant asks for a form; use `vachat chat` to answer:"))
				fmt.Fprintln(out, describeForm(ctrl.Form()))
			}
			if notice := lifecycleNotice(a.strings, ctrl.Language(), res.Phase); notice != "" {
				fmt.Fprintln(out, warningStyle.Render("[!] "+notice))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&raw, "raw", false, "print the reply without markdown rendering")
	cmd.Flags().StringArrayVarP(&attach, "attach", "a", nil, "file or image to send (repeatable)")
	cmd.Flags().BoolVar(&noGreet, "quiet-greeting", false, "do not print the session greeting")
	return cmd
}
