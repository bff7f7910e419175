// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and live management for
// rigrun-chat.
//
// Supports TOML, YAML and JSON configuration formats, with sensible
// defaults, environment variable overrides, and validation.
//
// # Key Types
//
//   - Config: Main configuration structure with all settings
//   - Holder: Live, thread-safe configuration with change subscriptions
//   - Watcher: Reloads the configuration file into a Holder on change
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (RIGRUN_CHAT_*)
//   - ~/.rigrun-chat/config.toml
//   - ~/.rigrun-chat/config.yaml
//   - ~/.rigrun-chat/config.json
//   - Built-in defaults
//
// # Usage
//
// Load configuration:
//
//	cfg, path, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Share it and react to changes:
//
//	holder := config.NewHolder(cfg, path)
//	unsubscribe := holder.Subscribe(func(old, new *config.Config) { ... })
//	err = holder.Update(func(c *config.Config) error { c.Provider.Model = "llama3"; return nil })
package config
