// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"os"
	"os/signal"

	"go.uber.org/zap"

	"github.com/jeranaias/rigrun-chat/internal/config"
	"github.com/jeranaias/rigrun-chat/internal/server"
)

// =============================================================================
// SERVE COMMAND
// =============================================================================

// HandleServe runs the HTTP API until ctx is cancelled or Ctrl+C. The catalog
// follows configuration changes, including edits to the config file.
// Server settings are read once at start.
func (a *App) HandleServe(ctx context.Context, args Args) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	cfg := a.Holder.Get().Server
	if addr := args.Sub.Flag("addr"); addr != "" {
		cfg.Addr = addr
	}

	stopCatalog := a.Catalog.Start(ctx)
	defer stopCatalog()

	if err := a.Manager.Refresh(ctx); err != nil {
		a.Logger.Warn("session listing unavailable", zap.Error(err))
	}

	if a.Holder.Path() != "" {
		watcher, err := config.NewWatcher(a.Holder, config.DefaultDebounce, a.Logger)
		if err != nil {
			a.Logger.Warn("config hot reload disabled", zap.String("path", a.Holder.Path()), zap.Error(err))
		} else {
			go watcher.Run(ctx)
		}
	}

	srv, err := server.New(cfg, server.Deps{
		Manager: a.Manager,
		Catalog: a.Catalog,
		Holder:  a.Holder,
		Store:   a.Store,
		Logger:  a.Logger,
		Version: Version,
	})
	if err != nil {
		return NewCommandError("serve", "start", err)
	}
	return srv.Run(ctx)
}
