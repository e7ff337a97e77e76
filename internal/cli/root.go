// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/jeranaias/vachat/internal/plugin"
	"github.com/jeranaias/vachat/internal/ui/chat"
	"github.com/jeranaias/vachat/internal/ui/styles"
)

// newRootCmd builds the command tree. The root command runs the TUI.
func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:           "vachat",
		Short:         "Terminal client for virtual-assistant orchestrators",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd.Context(), flags, cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "config file (default ~/.vachat/config.toml)")
	pf.StringVar(&flags.clientConfig, "client-config", "", "client document path or URL")
	pf.StringVar(&flags.stringsPath, "strings", "", "language strings path or URL")
	pf.StringVarP(&flags.pluginRef, "plugin", "p", "", "plugin title to use")
	pf.StringVarP(&flags.language, "lang", "l", "", "display language code")
	pf.StringVar(&flags.theme, "theme", "", "theme: auto, dark or light")
	pf.BoolVar(&flags.debug, "debug", false, "show the orchestrator's debug trail")
	pf.BoolVar(&flags.incremental, "typing", false, "reveal replies with a typing effect")

	root.AddCommand(
		newChatCmd(flags),
		newAskCmd(flags),
		newPluginsCmd(flags),
		newConfigCmd(flags),
		newVersionCmd(),
	)
	return root
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", errorStyle.Render("[Error]"), err)
		return 1
	}
	return 0
}

// =============================================================================
// FULL-SCREEN CHAT
// =============================================================================

func runTUI(ctx context.Context, flags *globalFlags, cmd *cobra.Command) error {
	a, err := newApp(ctx, flags, true, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()

	deps := chat.Deps{
		Document:     a.doc,
		Strings:      a.strings,
		Theme:        styles.NewTheme(a.cfg.UI.Theme),
		Logger:       a.log,
		NewExchanger: a.newExchanger,
		SaveLanguage: a.saveLanguage,
		Feedback:     a.newFeedback(),
		ExportDir:    a.cfg.UI.ExportDir,

		ExchangeTimeout: timeoutOf(a.cfg.Orchestrator.TimeoutSecs),
		RevealRunes:     a.cfg.UI.RevealRunesPerTick,
		RevealTick:      millis(a.cfg.UI.RevealTickMs),
	}

	if flags.pluginRef != "" {
		p, err := a.pickPlugin(ctx, flags.pluginRef)
		if err != nil {
			return err
		}
		deps.Plugin = &p
	} else {
		cat, err := a.loadCatalog(ctx)
		if err != nil {
			return fmt.Errorf("load plugins: %w", err)
		}
		deps.Catalog = cat
	}
	if deps.Plugin == nil && (deps.Catalog == nil || len(deps.Catalog.Plugins) == 0) {
		return fmt.Errorf("load plugins: %w", plugin.ErrEmptyCatalog)
	}

	deps.Language = a.language(flags.language)
	ctrl := a.newController(deps.Language.Language)
	deps.Controller = ctrl

	au := a.newAudio(ctrl.Language)
	deps.Playback, deps.AutoPlayer, deps.Dictation = au.playback, au.autoPlayer, au.dictation

	m := chat.New(deps)
	program := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := program.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("chat: %w", err)
	}
	a.log.Info("chat closed")
	return nil
}
