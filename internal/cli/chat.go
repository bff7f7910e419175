// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
	"go.uber.org/zap"

	"github.com/jeranaias/rigrun-chat/internal/config"
	"github.com/jeranaias/rigrun-chat/internal/model"
	"github.com/jeranaias/rigrun-chat/internal/session"
	"github.com/jeranaias/rigrun-chat/internal/util"
)

// =============================================================================
// INPUT
// =============================================================================

// LineReader supplies chat input one line at a time. ReadLine returns
// io.EOF when input ends.
type LineReader interface {
	ReadLine(prompt string) (string, error)
	Close() error
}

// linerReader edits input with history, persisted in the config directory.
type linerReader struct {
	line        *liner.State
	historyFile string
}

func newLinerReader() *linerReader {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	dir, err := config.ConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	r := &linerReader{line: line, historyFile: filepath.Join(dir, "chat_history")}
	if f, err := os.Open(r.historyFile); err == nil {
		line.ReadHistory(f)
		f.Close()
	}
	return r
}

func (r *linerReader) ReadLine(prompt string) (string, error) {
	for {
		input, err := r.line.Prompt(prompt)
		if errors.Is(err, liner.ErrPromptAborted) {
			// Ctrl+C clears the line; Ctrl+D exits.
			continue
		}
		if err != nil {
			return "", err
		}
		if strings.TrimSpace(input) != "" {
			r.line.AppendHistory(input)
		}
		return input, nil
	}
}

func (r *linerReader) Close() error {
	var buf bytes.Buffer
	if _, err := r.line.WriteHistory(&buf); err == nil {
		util.AtomicWriteFileWithDir(r.historyFile, buf.Bytes(), 0600, 0700)
	}
	return r.line.Close()
}

// scanReader reads plain lines, for piped input.
type scanReader struct {
	scanner *bufio.Scanner
}

func newScanReader(in io.Reader) *scanReader {
	return &scanReader{scanner: bufio.NewScanner(in)}
}

func (r *scanReader) ReadLine(string) (string, error) {
	if r.scanner.Scan() {
		return r.scanner.Text(), nil
	}
	if err := r.scanner.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}

func (r *scanReader) Close() error { return nil }

// =============================================================================
// CHAT COMMAND
// =============================================================================

// HandleChat runs the chat command. With --once it sends a single message;
// otherwise it starts the interactive loop, using the line editor when
// stdin is a terminal.
func (a *App) HandleChat(ctx context.Context, args Args) error {
	stopCatalog := a.Catalog.Start(ctx)
	defer stopCatalog()

	if err := a.Manager.Refresh(ctx); err != nil {
		a.Logger.Warn("session listing unavailable", zap.Error(err))
	}
	if ref := args.Sub.Flag("session", "s"); ref != "" {
		sess, err := a.resolveSession(ctx, ref)
		if err != nil {
			return err
		}
		if _, err := a.Manager.Open(ctx, sess.ID); err != nil {
			return err
		}
	}

	if args.Sub.HasFlag("once") {
		message := JoinPositionalArgs(args.Sub, 0)
		if message == "" {
			return ErrMissingArgument("message", `rigrun-chat chat --once "hello"`)
		}
		return a.chatOnce(ctx, message, args.JSON)
	}

	var reader LineReader
	if IsTTY() {
		reader = newLinerReader()
	} else {
		reader = newScanReader(os.Stdin)
	}
	defer reader.Close()
	return a.ChatLoop(ctx, reader)
}

func (a *App) chatOnce(ctx context.Context, message string, jsonMode bool) error {
	reply, err := a.send(ctx, message)
	if errors.Is(err, session.ErrNotConfigured) || errors.Is(err, session.ErrEmptyInput) {
		return err
	}

	if jsonMode {
		resp := NewJSONResponse("chat", reply)
		if err != nil {
			msg := err.Error()
			resp.Success, resp.Error = false, &msg
		}
		resp.Print(a.Out)
		return markReported(err)
	}

	// A failed exchange prints its "Error: ..." turn like any reply.
	fmt.Fprint(a.Out, WrapText(reply.Content, GetTerminalWidth()))
	fmt.Fprintln(a.Out)
	return markReported(err)
}

// send runs one exchange. Ctrl+C during the request cancels it.
func (a *App) send(ctx context.Context, input string) (model.Message, error) {
	sendCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()
	return a.Manager.Send(sendCtx, input)
}

// ChatLoop reads input until EOF or /quit. Lines starting with "/" are
// commands; everything else is sent to the model.
func (a *App) ChatLoop(ctx context.Context, reader LineReader) error {
	a.printWelcome()

	for {
		if ctx.Err() != nil {
			return nil
		}
		input, err := reader.ReadLine("> ")
		if errors.Is(err, io.EOF) {
			fmt.Fprintln(a.Out)
			return nil
		}
		if err != nil {
			return err
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		if strings.HasPrefix(input, "/") {
			quit, err := a.handleSlashCommand(ctx, input)
			if err != nil {
				fmt.Fprintf(a.Out, "Error: %v\n", err)
			}
			if quit {
				return nil
			}
			continue
		}

		reply, err := a.send(ctx, input)
		switch {
		case errors.Is(err, session.ErrNotConfigured):
			fmt.Fprintln(a.Out, "No endpoint configured. Use: rigrun-chat config set provider.endpoint URL")
			continue
		case errors.Is(err, session.ErrBusy):
			fmt.Fprintln(a.Out, "A message is already being sent.")
			continue
		}
		fmt.Fprintln(a.Out)
		fmt.Fprint(a.Out, FormatMessage(reply, GetTerminalWidth()))
		fmt.Fprintln(a.Out)
	}
}

func (a *App) printWelcome() {
	settings := a.Holder.Settings()
	fmt.Fprintf(a.Out, "rigrun-chat %s  provider: %s  model: %s\n",
		Version, settings.Kind, settings.ModelOrDefault())
	if !settings.Configured() {
		fmt.Fprintln(a.Out, "No endpoint configured. Use: rigrun-chat config set provider.endpoint URL")
	}
	fmt.Fprintln(a.Out, "Type /help for commands, /quit to exit.")
	fmt.Fprintln(a.Out)
}

// =============================================================================
// SLASH COMMANDS
// =============================================================================

const chatHelp = `Commands:
  /new                Start a new chat
  /sessions           List saved sessions
  /open ID|N          Continue a saved session
  /delete ID|N        Delete a saved session
  /models             List the provider's models
  /model [ID]         Show or select the model
  /effort [LEVEL]     Show or set the reasoning effort (low, medium, high)
  /system [PROMPT]    Show or set the system prompt ("/system -" clears it)
  /export [md|json]   Export the current chat to the current directory
  /help               Show this help
  /quit               Exit
`

// handleSlashCommand runs one "/" command and reports whether to exit.
func (a *App) handleSlashCommand(ctx context.Context, input string) (bool, error) {
	name, rest, _ := strings.Cut(strings.TrimPrefix(input, "/"), " ")
	rest = strings.TrimSpace(rest)

	switch strings.ToLower(name) {
	case "quit", "q", "exit":
		return true, nil

	case "help", "h", "?":
		fmt.Fprint(a.Out, chatHelp)

	case "new", "clear":
		if _, err := a.Manager.NewChat(); err != nil {
			return false, err
		}
		fmt.Fprintln(a.Out, "Started a new chat.")

	case "sessions":
		if err := a.Manager.Refresh(ctx); err != nil {
			return false, err
		}
		fmt.Fprint(a.Out, FormatSessionList(a.Manager.Sessions(), GetTerminalWidth()))

	case "open":
		sess, err := a.resolveSession(ctx, rest)
		if err != nil {
			return false, err
		}
		opened, err := a.Manager.Open(ctx, sess.ID)
		if err != nil {
			return false, err
		}
		fmt.Fprint(a.Out, FormatSession(opened, GetTerminalWidth()))

	case "delete":
		sess, err := a.resolveSession(ctx, rest)
		if err != nil {
			return false, err
		}
		if err := a.Manager.Delete(ctx, sess.ID); err != nil {
			return false, err
		}
		fmt.Fprintf(a.Out, "Deleted %s\n", sess.Title)

	case "models":
		return false, a.modelsList(ctx, false)

	case "model":
		if rest == "" {
			fmt.Fprintf(a.Out, "Model: %s\n", a.Holder.Settings().ModelOrDefault())
			return false, nil
		}
		if err := a.Holder.SetModel(rest); err != nil {
			return false, err
		}
		fmt.Fprintf(a.Out, "Model: %s\n", rest)

	case "effort":
		settings := a.Holder.Settings()
		if rest == "" {
			fmt.Fprintf(a.Out, "Reasoning effort: %s\n", settings.ReasoningEffort)
			return false, nil
		}
		settings.ReasoningEffort = strings.ToLower(rest)
		if err := a.Manager.SetSettings(settings); err != nil {
			return false, err
		}
		fmt.Fprintf(a.Out, "Reasoning effort: %s\n", settings.ReasoningEffort)

	case "system":
		if rest == "" {
			fmt.Fprintf(a.Out, "System prompt: %q\n", a.Holder.SystemPrompt())
			return false, nil
		}
		if rest == "-" {
			rest = ""
		}
		if err := a.Manager.SetSystemPrompt(rest); err != nil {
			return false, err
		}
		fmt.Fprintln(a.Out, "System prompt updated.")

	case "export":
		snap := a.Manager.Snapshot()
		if len(snap.Messages) == 0 {
			return false, errors.New("nothing to export yet")
		}
		return false, a.sessionsExport(ctx, snap.SessionID, rest, "", false)

	default:
		return false, fmt.Errorf("unknown command /%s (try /help)", name)
	}
	return false, nil
}
