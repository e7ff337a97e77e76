// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jeranaias/vachat/internal/util"
)

func newPluginsCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "plugins",
		Short: "List the assistants this deployment offers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, flags, false, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			cat, err := a.loadCatalog(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if a.doc.Features.PluginsTitleOption && a.doc.PluginsTitle != "" {
				fmt.Fprintln(out, welcomeStyle.Render(a.doc.PluginsTitle))
			}
			for i, p := range cat.Plugins {
				kind := p.Type
				if kind == "" {
					kind = "chat"
				}
				fmt.Fprintf(out, "%s %s %s\n",
					commandStyle.Render(fmt.Sprintf("%2d.", i+1)),
					labelStyle.Render(util.TruncateWidth(p.Title, 19)),
					infoStyle.Render("["+kind+"] "+p.Description))
			}
			return nil
		},
	}
}
