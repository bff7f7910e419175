// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the rigrun-chat command line.
//
// Commands: chat (the default), serve, models, sessions, config, version
// and help. Each run loads the configuration, opens the session store and
// wires the catalog and the conversation manager into an App; the
// commands are methods on App writing to App.Out.
//
// # Key Types
//
//   - App: the wired services for one run
//   - ArgParser: flag and positional parsing shared by all commands
//   - LineReader: chat input, from the line editor or piped stdin
//   - JSONResponse: the envelope of --json output
//
// # Usage
//
//	os.Exit(cli.Run(ctx, os.Args[1:], os.Stdout, os.Stderr))
package cli
