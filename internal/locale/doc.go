// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package locale provides translated UI strings and display-language
// selection.
//
// # Key Types
//
//   - Strings: key -> language -> text table with fallback
//   - Choice: the outcome of display-language selection
//
// # Fallback
//
// Lookups try the requested language, then "en-US", then "en", then a
// built-in English table, and finally return the key itself.
//
// # Usage
//
//	tbl, err := locale.Load(ctx, cfg.Client.StringsSource)
//	choice := locale.Select(doc, cfg.Language, locale.EnvironmentLanguage())
//	title := tbl.Get(locale.KeyExpiredText, choice.Language)
package locale
