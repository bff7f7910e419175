// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/jeranaias/rigrun-chat/internal/catalog"
	"github.com/jeranaias/rigrun-chat/internal/config"
	"github.com/jeranaias/rigrun-chat/internal/logging"
	"github.com/jeranaias/rigrun-chat/internal/session"
	"github.com/jeranaias/rigrun-chat/internal/storage"
)

// =============================================================================
// APP
// =============================================================================

// App wires the core services for one command run.
type App struct {
	Holder  *config.Holder
	Logger  *zap.Logger
	Store   storage.Store
	Fetcher *catalog.Fetcher
	Catalog *catalog.Service
	Manager *session.Manager

	// Out receives command output, Err diagnostics.
	Out io.Writer
	Err io.Writer
}

// NewApp builds the services around an already opened store. Settings
// changes are saved to path when it is non-empty.
func NewApp(cfg *config.Config, path string, store storage.Store, logger *zap.Logger) *App {
	logger = logging.OrNop(logger)
	holder := config.NewHolder(cfg, path)
	fetcher := catalog.NewFetcher(nil, logger)
	svc := catalog.NewService(fetcher, holder, logger)

	return &App{
		Holder:  holder,
		Logger:  logger,
		Store:   store,
		Fetcher: fetcher,
		Catalog: svc,
		Manager: session.NewManager(session.Config{
			Store:     store,
			Holder:    holder,
			Reasoning: svc.SupportsReasoning,
			Logger:    logger,
		}),
		Out: os.Stdout,
		Err: os.Stderr,
	}
}

// Bootstrap loads the configuration named by --config (or the default
// location), builds the logger and opens the session store. Commands
// other than serve log at warn level unless --verbose is given.
func Bootstrap(args Args) (*App, error) {
	cfg, path, err := loadConfig(args.ConfigPath)
	if err != nil {
		return nil, err
	}

	logCfg := cfg.Logging
	if args.Verbose {
		logCfg.Level = "debug"
	} else if args.Command != CmdServe && logging.ParseLevel(logCfg.Level) < zap.WarnLevel {
		logCfg.Level = "warn"
	}
	logger, err := logging.New(logCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	store, err := storage.Open(cfg.Storage.Backend, cfg.Storage.Path)
	if err != nil {
		logger.Sync()
		return nil, fmt.Errorf("failed to open session store: %w", err)
	}
	logger.Debug("session store opened",
		zap.String("backend", cfg.Storage.Backend),
		zap.String("path", cfg.Storage.Path),
		zap.String("config", path))

	return NewApp(cfg, path, store, logger), nil
}

func loadConfig(explicit string) (*config.Config, string, error) {
	if explicit == "" {
		return config.Load()
	}
	if _, err := os.Stat(explicit); os.IsNotExist(err) {
		// A missing explicit file is created on the first save.
		cfg := config.Default()
		cfg.ApplyEnvOverrides()
		cfg.SetDefaults()
		return cfg, explicit, cfg.Validate()
	}
	cfg, err := config.LoadFromPath(explicit)
	return cfg, explicit, err
}

// Close releases the store and flushes the logger.
func (a *App) Close() error {
	err := a.Store.Close()
	a.Logger.Sync()
	return err
}
