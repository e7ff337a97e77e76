// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading for vachat.
//
// Supports TOML and JSON application configs with defaults, .env files,
// environment variable overrides and validation, plus the deployment's
// client document.
//
// # Key Types
//
//   - Config: local application settings (sources, transport, speech, UI, logging)
//   - ClientDocument: deployment settings (endpoints, languages, branding, speech)
//   - FeatureFlags: resolved feature switches with documented defaults
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (VACHAT_*), including those from .env files
//   - ~/.vachat/config.toml
//   - ~/.vachat/config.json
//   - Built-in defaults
//
// # Usage
//
//	_ = config.LoadDotEnv()
//	cfg, err := config.Load()
//	doc, err := config.LoadClientDocument(ctx, cfg.Client.ConfigSource)
//	if doc.Features.EnableFiles { ... }
package config
