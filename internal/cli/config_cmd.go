// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/jeranaias/rigrun-chat/internal/config"
)

// =============================================================================
// CONFIG COMMAND
// =============================================================================

// HandleConfig runs the config subcommands.
func (a *App) HandleConfig(args Args) error {
	sub := args.Sub
	switch sub.Subcommand() {
	case "", "show":
		return a.configShow(args.JSON)
	case "path":
		return printResult(a.Out, args.JSON, "config path", map[string]string{"path": a.Holder.Path()}, func() {
			fmt.Fprintln(a.Out, a.Holder.Path())
		})
	case "set":
		key, value := sub.Positional(1), JoinPositionalArgs(sub, 2)
		if key == "" || sub.PositionalCount() < 3 {
			return ErrMissingArgument("key and value", "rigrun-chat config set provider.endpoint http://localhost:11434")
		}
		return a.configSet(key, value, args.JSON)
	case "keys":
		keys := config.GetAllKeys()
		return printResult(a.Out, args.JSON, "config keys", keys, func() {
			fmt.Fprintln(a.Out, strings.Join(keys, "\n"))
		})
	default:
		return ErrUnknownSubcommand("config", sub.Subcommand())
	}
}

func (a *App) configShow(jsonMode bool) error {
	cfg := a.Holder.Get().Redacted()
	return printResult(a.Out, jsonMode, "config show", cfg, func() {
		fmt.Fprintf(a.Out, "# %s\n", a.Holder.Path())
		fmt.Fprint(a.Out, cfg.String())
	})
}

func (a *App) configSet(key, value string, jsonMode bool) error {
	err := a.Holder.Update(func(c *config.Config) error {
		return c.Set(key, value)
	})
	if err != nil {
		return NewCommandError("config", "set", err)
	}
	a.Logger.Info("config updated", zap.String("key", key), zap.String("path", a.Holder.Path()))

	shown := value
	if isSecretKey(key) {
		shown = config.RedactedValue
	}
	return printResult(a.Out, jsonMode, "config set", map[string]string{"key": key, "value": shown}, func() {
		fmt.Fprintf(a.Out, "Set %s = %s\n", key, shown)
	})
}

func isSecretKey(key string) bool {
	lower := strings.ToLower(key)
	return strings.Contains(lower, "key") || strings.Contains(lower, "secret") || strings.Contains(lower, "token")
}
