// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"io"
)

// Run parses argv, executes the command and returns the exit code.
func Run(ctx context.Context, argv []string, stdout, stderr io.Writer) int {
	cmd, args := Parse(argv)

	err := dispatch(ctx, cmd, args, stdout, stderr)
	if err != nil {
		if args.JSON {
			DisplayError(stdout, args.Name, err, true)
		} else {
			DisplayError(stderr, args.Name, err, false)
		}
	}
	return GetExitCode(err)
}

func dispatch(ctx context.Context, cmd Command, args Args, stdout, stderr io.Writer) error {
	switch cmd {
	case CmdHelp:
		HandleHelp(stdout)
		return nil
	case CmdVersion:
		return HandleVersion(stdout, args)
	case CmdUnknown:
		return &UsageError{Reason: "unknown command: " + args.Name, Example: "rigrun-chat help"}
	}

	app, err := Bootstrap(args)
	if err != nil {
		return err
	}
	defer app.Close()
	app.Out, app.Err = stdout, stderr

	switch cmd {
	case CmdServe:
		return app.HandleServe(ctx, args)
	case CmdModels:
		return app.HandleModels(ctx, args)
	case CmdSessions:
		return app.HandleSessions(ctx, args)
	case CmdConfig:
		return app.HandleConfig(args)
	default:
		return app.HandleChat(ctx, args)
	}
}
