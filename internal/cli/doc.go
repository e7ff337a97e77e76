// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli provides the vachat command tree.
//
// The root command runs the full-screen chat. Subcommands cover a line-based
// REPL, one-shot questions and configuration housekeeping.
//
// # Commands Overview
//
//   - (root): full-screen chat
//   - chat: interactive line REPL with history
//   - ask: single question, reply printed as markdown
//   - plugins: list the deployment's plugins
//   - config show|init: inspect or create ~/.vachat/config.toml
//   - version: print the build version
//
// # Usage
//
//	func main() {
//	    os.Exit(cli.Execute())
//	}
package cli
