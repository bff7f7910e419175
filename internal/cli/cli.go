// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"runtime"
	"strings"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command is the CLI command to execute.
type Command int

const (
	CmdChat Command = iota
	CmdServe
	CmdModels
	CmdSessions
	CmdConfig
	CmdVersion
	CmdHelp
	CmdUnknown
)

// Args holds parsed CLI arguments.
type Args struct {
	Command Command

	// Global flags
	JSON       bool
	Verbose    bool
	ConfigPath string

	// Name is the command word as typed; used for CmdUnknown.
	Name string

	// Sub holds the command's own arguments.
	Sub *ArgParser
}

// Flags that never take a value, for every command.
var boolFlagNames = []string{"json", "verbose", "v", "force", "f", "once", "help", "h"}

const usageText = `rigrun-chat - chat with local and hosted LLM providers

Usage:
  rigrun-chat [global flags] <command> [arguments]

Commands:
  chat                        Interactive chat (default)
    --once "message"          Send one message and print the reply
    --session ID              Continue an existing session
  serve                       Start the HTTP API and provider proxy
    --addr HOST:PORT          Listen address (overrides server.addr)
  models                      List the models of the configured provider
  models use ID               Select a model
  sessions [list]             List saved sessions, newest first
  sessions show ID|N          Print a session
  sessions delete ID|N        Delete a session
  sessions export ID|N        Write a session to a file
    --format md|json          Export format (default md)
    --output DIR              Output directory (default: current)
  config [show]               Show the configuration (API key redacted)
  config path                 Print the config file path
  config set KEY VALUE        Set a value, e.g. provider.endpoint
  config keys                 List settable keys
  version                     Show version information
  help                        Show this help

Global flags:
  --config PATH               Config file (default ~/.rigrun-chat/config.toml)
  --json                      Machine-readable output
  -v, --verbose               Debug logging
  -V, --version               Same as the version command

Sessions can be addressed by id or by their position N in "sessions list".

Environment:
  RIGRUN_CHAT_PROVIDER, RIGRUN_CHAT_ENDPOINT, RIGRUN_CHAT_API_KEY,
  RIGRUN_CHAT_MODEL, RIGRUN_CHAT_STORAGE_PATH, RIGRUN_CHAT_ADDR,
  RIGRUN_CHAT_LOG_LEVEL

Version: %s
`

// PrintUsage writes the help text.
func PrintUsage(w io.Writer) {
	fmt.Fprintf(w, usageText, Version)
}

// Parse splits argv (without the program name) into the command and its
// arguments. Global flags may appear anywhere. No command means chat.
func Parse(argv []string) (Command, Args) {
	var args Args
	var remaining []string

	for i := 0; i < len(argv); i++ {
		arg := argv[i]
		switch {
		case arg == "--json":
			args.JSON = true
		case arg == "-v" || arg == "--verbose":
			args.Verbose = true
		case arg == "--config" && i+1 < len(argv):
			i++
			args.ConfigPath = argv[i]
		case strings.HasPrefix(arg, "--config="):
			args.ConfigPath = strings.TrimPrefix(arg, "--config=")
		default:
			remaining = append(remaining, arg)
		}
	}

	cmd := CmdChat
	if len(remaining) > 0 && (remaining[0] == "--version" || remaining[0] == "-V") {
		args.Name = "version"
		remaining = remaining[1:]
		cmd = CmdVersion
	} else if len(remaining) > 0 && !strings.HasPrefix(remaining[0], "-") {
		args.Name = strings.ToLower(remaining[0])
		remaining = remaining[1:]
		cmd = commandFor(args.Name)
	}
	if cmd != CmdHelp && len(remaining) > 0 && (remaining[0] == "--help" || remaining[0] == "-h") {
		cmd = CmdHelp
	}

	args.Command = cmd
	args.Sub = NewArgParser(remaining, boolFlagNames...)
	return cmd, args
}

func commandFor(name string) Command {
	switch name {
	case "chat":
		return CmdChat
	case "serve", "server":
		return CmdServe
	case "models", "model":
		return CmdModels
	case "sessions", "session":
		return CmdSessions
	case "config":
		return CmdConfig
	case "version":
		return CmdVersion
	case "help":
		return CmdHelp
	default:
		return CmdUnknown
	}
}

// =============================================================================
// VERSION AND HELP
// =============================================================================

// VersionData is the --json form of the version command.
type VersionData struct {
	Version   string `json:"version"`
	GitCommit string `json:"gitCommit"`
	BuildDate string `json:"buildDate"`
	GoVersion string `json:"goVersion"`
}

// HandleVersion prints version information.
func HandleVersion(w io.Writer, args Args) error {
	data := VersionData{
		Version:   Version,
		GitCommit: GitCommit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
	}
	return printResult(w, args.JSON, "version", data, func() {
		fmt.Fprintf(w, "rigrun-chat version %s\n", data.Version)
		fmt.Fprintf(w, "  Git commit: %s\n", data.GitCommit)
		fmt.Fprintf(w, "  Build date: %s\n", data.BuildDate)
		fmt.Fprintf(w, "  Go:         %s\n", data.GoVersion)
	})
}

// HandleHelp prints the help text.
func HandleHelp(w io.Writer) {
	PrintUsage(w)
}
