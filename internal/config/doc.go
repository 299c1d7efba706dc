// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for procubot.
//
// Supports TOML and YAML configuration files, .env files, sensible defaults,
// environment variable overrides, validation and live reload.
//
// # Key Types
//
//   - Config: Main configuration structure
//   - ProviderConfig: Chat backend, model, search and timeouts
//   - UIConfig: Language, theme and rendering settings
//   - Watcher: fsnotify-based reload of the active config file
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (PROCUBOT_*), including those from .env files
//   - ~/.procubot/config.toml, or ~/.procubot/config.yaml
//   - Built-in defaults
//
// The API key is resolved separately at session creation time:
// PROCUBOT_API_KEY, API_KEY, GEMINI_API_KEY or OPENROUTER_API_KEY, then
// provider.api_key.
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	sessCfg := cfg.ProviderConfig()
package config
