// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/jeranaias/rigrun-chat/internal/config"
	"github.com/jeranaias/rigrun-chat/internal/model"
	"github.com/jeranaias/rigrun-chat/internal/provider"
	"github.com/jeranaias/rigrun-chat/internal/session"
	"github.com/jeranaias/rigrun-chat/internal/storage"
)

// =============================================================================
// ARG PARSER TESTS
// =============================================================================

func TestArgParser_BasicParsing(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantSub  string
		validate func(*testing.T, *ArgParser)
	}{
		{
			name:    "simple subcommand",
			args:    []string{"list"},
			wantSub: "list",
		},
		{
			name:    "flag with value",
			args:    []string{"export", "abc", "--format", "json"},
			wantSub: "export",
			validate: func(t *testing.T, p *ArgParser) {
				if p.Flag("format") != "json" {
					t.Errorf("Flag(format) = %q, want %q", p.Flag("format"), "json")
				}
				if p.Positional(1) != "abc" {
					t.Errorf("Positional(1) = %q, want %q", p.Positional(1), "abc")
				}
			},
		},
		{
			name:    "flag with equals",
			args:    []string{"export", "--output=/tmp/out"},
			wantSub: "export",
			validate: func(t *testing.T, p *ArgParser) {
				if p.Flag("output", "o") != "/tmp/out" {
					t.Errorf("Flag(output) = %q, want %q", p.Flag("output", "o"), "/tmp/out")
				}
			},
		},
		{
			name:    "short alias",
			args:    []string{"export", "-o", "dir"},
			wantSub: "export",
			validate: func(t *testing.T, p *ArgParser) {
				if p.Flag("output", "o") != "dir" {
					t.Errorf("Flag(output, o) = %q, want %q", p.Flag("output", "o"), "dir")
				}
			},
		},
		{
			name:    "known boolean does not swallow positional",
			args:    []string{"--force", "use", "llama3"},
			wantSub: "use",
			validate: func(t *testing.T, p *ArgParser) {
				if !p.BoolFlag("force", "f") {
					t.Error("BoolFlag(force) should be true")
				}
				if p.Positional(1) != "llama3" {
					t.Errorf("Positional(1) = %q, want llama3", p.Positional(1))
				}
			},
		},
		{
			name:    "explicit false",
			args:    []string{"--force=false"},
			wantSub: "",
			validate: func(t *testing.T, p *ArgParser) {
				if p.BoolFlag("force") {
					t.Error("BoolFlag(force) should be false")
				}
				if !p.HasFlag("force") {
					t.Error("HasFlag(force) should be true")
				}
			},
		},
		{
			name:    "double dash ends flags",
			args:    []string{"--once", "--", "--not-a-flag", "text"},
			wantSub: "--not-a-flag",
			validate: func(t *testing.T, p *ArgParser) {
				if got := JoinPositionalArgs(p, 0); got != "--not-a-flag text" {
					t.Errorf("JoinPositionalArgs = %q", got)
				}
			},
		},
		{
			name:    "trailing unknown flag is boolean",
			args:    []string{"list", "--all"},
			wantSub: "list",
			validate: func(t *testing.T, p *ArgParser) {
				if !p.BoolFlag("all") {
					t.Error("BoolFlag(all) should be true")
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewArgParser(tt.args, boolFlagNames...)
			if got := p.Subcommand(); got != tt.wantSub {
				t.Errorf("Subcommand() = %q, want %q", got, tt.wantSub)
			}
			if tt.validate != nil {
				tt.validate(t, p)
			}
		})
	}
}

func TestArgParser_OutOfRange(t *testing.T) {
	p := NewArgParser(nil)
	if p.Positional(3) != "" || p.Positional(-1) != "" {
		t.Error("out of range Positional should be empty")
	}
	if p.PositionalFrom(1) != nil {
		t.Error("out of range PositionalFrom should be nil")
	}
	if p.FlagOrDefault("format", "md") != "md" {
		t.Error("FlagOrDefault should fall back")
	}
}

// =============================================================================
// PARSE TESTS
// =============================================================================

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		argv     []string
		wantCmd  Command
		validate func(*testing.T, Args)
	}{
		{name: "no arguments starts chat", argv: nil, wantCmd: CmdChat},
		{
			name:    "chat once",
			argv:    []string{"chat", "--once", "hello", "there"},
			wantCmd: CmdChat,
			validate: func(t *testing.T, a Args) {
				if !a.Sub.HasFlag("once") {
					t.Error("expected --once")
				}
				if got := JoinPositionalArgs(a.Sub, 0); got != "hello there" {
					t.Errorf("message = %q", got)
				}
			},
		},
		{
			name:    "flags before the command",
			argv:    []string{"--json", "-v", "--config", "/etc/rc.toml", "sessions", "list"},
			wantCmd: CmdSessions,
			validate: func(t *testing.T, a Args) {
				if !a.JSON || !a.Verbose || a.ConfigPath != "/etc/rc.toml" {
					t.Errorf("globals = %+v", a)
				}
				if a.Sub.Subcommand() != "list" {
					t.Errorf("Subcommand() = %q", a.Sub.Subcommand())
				}
			},
		},
		{
			name:    "global flags after the command",
			argv:    []string{"config", "path", "--config=/x.toml", "--json"},
			wantCmd: CmdConfig,
			validate: func(t *testing.T, a Args) {
				if !a.JSON || a.ConfigPath != "/x.toml" {
					t.Errorf("globals = %+v", a)
				}
			},
		},
		{
			name:    "serve addr",
			argv:    []string{"serve", "--addr", ":9000"},
			wantCmd: CmdServe,
			validate: func(t *testing.T, a Args) {
				if a.Sub.Flag("addr") != ":9000" {
					t.Errorf("addr = %q", a.Sub.Flag("addr"))
				}
			},
		},
		{name: "alias", argv: []string{"session"}, wantCmd: CmdSessions},
		{name: "case insensitive", argv: []string{"MODELS"}, wantCmd: CmdModels},
		{name: "command help flag", argv: []string{"sessions", "--help"}, wantCmd: CmdHelp},
		{name: "version flag", argv: []string{"--version"}, wantCmd: CmdVersion},
		{name: "version short flag", argv: []string{"-V"}, wantCmd: CmdVersion},
		{name: "version flag after global", argv: []string{"--json", "--version"}, wantCmd: CmdVersion},
		{
			name:    "unknown",
			argv:    []string{"frobnicate"},
			wantCmd: CmdUnknown,
			validate: func(t *testing.T, a Args) {
				if a.Name != "frobnicate" {
					t.Errorf("Name = %q", a.Name)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, args := Parse(tt.argv)
			if cmd != tt.wantCmd {
				t.Fatalf("Parse(%v) = %v, want %v", tt.argv, cmd, tt.wantCmd)
			}
			if args.Command != cmd {
				t.Errorf("Args.Command = %v, want %v", args.Command, cmd)
			}
			if tt.validate != nil {
				tt.validate(t, args)
			}
		})
	}
}

// =============================================================================
// RUN TESTS
// =============================================================================

func TestRun_HelpVersionUnknown(t *testing.T) {
	var out, errOut bytes.Buffer

	if code := Run(t.Context(), []string{"help"}, &out, &errOut); code != ExitSuccess {
		t.Errorf("help exit code = %d", code)
	}
	if !strings.Contains(out.String(), "sessions export") {
		t.Error("help should list commands")
	}

	out.Reset()
	if code := Run(t.Context(), []string{"version", "--json"}, &out, &errOut); code != ExitSuccess {
		t.Errorf("version exit code = %d", code)
	}
	if !strings.Contains(out.String(), `"version": "`+Version+`"`) {
		t.Errorf("version json = %s", out.String())
	}

	out.Reset()
	if code := Run(t.Context(), []string{"--version"}, &out, &errOut); code != ExitSuccess {
		t.Errorf("--version exit code = %d", code)
	}
	if !strings.HasPrefix(out.String(), "rigrun-chat version "+Version) {
		t.Errorf("--version output = %q", out.String())
	}

	out.Reset()
	errOut.Reset()
	if code := Run(t.Context(), []string{"frobnicate"}, &out, &errOut); code != ExitUsageError {
		t.Errorf("unknown command exit code = %d", code)
	}
	if !strings.Contains(errOut.String(), "unknown command: frobnicate") {
		t.Errorf("stderr = %q", errOut.String())
	}
}

// =============================================================================
// ERROR TESTS
// =============================================================================

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"usage", ErrMissingArgument("id", ""), ExitUsageError},
		{"not found", &NotFoundError{Resource: "session", ID: "x"}, ExitNotFoundError},
		{"session not found", fmt.Errorf("open: %w", session.ErrNotFound), ExitNotFoundError},
		{"invalid config", NewCommandError("config", "set", config.ValidateErrors{{Field: "f", Message: "m"}}), ExitConfigError},
		{"not configured", session.ErrNotConfigured, ExitConfigError},
		{"storage", &storage.StoreError{Op: "list", Err: errors.New("disk")}, ExitStorageError},
		{"provider", markReported(fmt.Errorf("send failed: %w", &provider.HTTPError{Status: 500, Body: "x"})), ExitNetworkError},
		{"other", errors.New("boom"), ExitGeneralError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetExitCode(tt.err); got != tt.want {
				t.Errorf("GetExitCode(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestDisplayError(t *testing.T) {
	var buf bytes.Buffer
	DisplayError(&buf, "sessions", &NotFoundError{Resource: "session", ID: "x"}, false)
	if buf.String() != "Error: session not found: x\n" {
		t.Errorf("text = %q", buf.String())
	}

	buf.Reset()
	DisplayError(&buf, "sessions", errors.New("boom"), true)
	if !strings.Contains(buf.String(), `"success": false`) || !strings.Contains(buf.String(), `"error": "boom"`) {
		t.Errorf("json = %s", buf.String())
	}

	buf.Reset()
	DisplayError(&buf, "chat", markReported(errors.New("shown")), false)
	if buf.Len() != 0 {
		t.Errorf("reported error was repeated: %q", buf.String())
	}
}

// =============================================================================
// FORMAT TESTS
// =============================================================================

func TestWrapText(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		width int
		want  string
	}{
		{"fits", "hello world", 20, "hello world"},
		{"wraps at words", "aaa bbb ccc", 7, "aaa bbb\nccc"},
		{"keeps newlines", "a\nb", 10, "a\nb"},
		{"long word alone", "x supercalifragilistic y", 5, "x\nsupercalifragilistic\ny"},
		{"wide characters", "你好 世界 再见", 9, "你好 世界\n再见"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := WrapText(tt.text, tt.width); got != tt.want {
				t.Errorf("WrapText(%q, %d) = %q, want %q", tt.text, tt.width, got, tt.want)
			}
		})
	}
}

func TestFormatSessionList(t *testing.T) {
	if got := FormatSessionList(nil, 80); got != "No saved sessions.\n" {
		t.Errorf("empty list = %q", got)
	}

	sessions := []model.ChatSession{
		{ID: "a", Title: "A very long title that will certainly not fit in the column", UpdatedAt: 1, Messages: []model.Message{
			{Role: model.RoleUser, Content: "first question"},
		}},
		{ID: "b", Title: "中文标题", UpdatedAt: 0},
	}
	out := FormatSessionList(sessions, 80)
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines:\n%s", len(lines), out)
	}
	if !strings.HasPrefix(lines[0], "#") || !strings.Contains(lines[0], "TITLE") {
		t.Errorf("header = %q", lines[0])
	}
	if !strings.Contains(lines[1], "...") {
		t.Errorf("long title should be cut: %q", lines[1])
	}
	if !strings.Contains(lines[1], "first question") {
		t.Errorf("preview missing: %q", lines[1])
	}
	if !strings.HasPrefix(lines[2], "2") || !strings.Contains(lines[2], "中文标题") {
		t.Errorf("second row = %q", lines[2])
	}
}

func TestFormatMessage(t *testing.T) {
	rate := 12.5
	msg := model.Message{
		Role:            model.RoleAssistant,
		Content:         "hi",
		Model:           "o3-mini",
		Provider:        "openai",
		ReasoningEffort: "high",
		TokensPerSecond: &rate,
	}
	got := FormatMessage(msg, 80)
	want := "Assistant:\nhi\n  [o3-mini | openai | effort high | 12.5 tok/s]\n"
	if got != want {
		t.Errorf("FormatMessage = %q, want %q", got, want)
	}

	user := FormatMessage(model.Message{Role: model.RoleUser, Content: "q"}, 80)
	if user != "You:\nq\n" {
		t.Errorf("user turn = %q", user)
	}
}
