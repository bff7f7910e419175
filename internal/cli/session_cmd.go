// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/jeranaias/rigrun-chat/internal/export"
	"github.com/jeranaias/rigrun-chat/internal/model"
)

// =============================================================================
// SESSIONS COMMAND
// =============================================================================

// SessionInfo is one row of "sessions list --json".
type SessionInfo struct {
	Index     int    `json:"index"`
	ID        string `json:"id"`
	Title     string `json:"title"`
	Preview   string `json:"preview"`
	Messages  int    `json:"messages"`
	CreatedAt int64  `json:"createdAt"`
	UpdatedAt int64  `json:"updatedAt"`
}

// HandleSessions runs the sessions subcommands.
func (a *App) HandleSessions(ctx context.Context, args Args) error {
	sub := args.Sub
	switch sub.Subcommand() {
	case "", "list", "ls":
		return a.sessionsList(ctx, args.JSON)
	case "show":
		return a.sessionsShow(ctx, sub.Positional(1), args.JSON)
	case "delete", "rm":
		return a.sessionsDelete(ctx, sub.Positional(1), args.JSON)
	case "export":
		return a.sessionsExport(ctx, sub.Positional(1), sub.FlagOrDefault("format", export.FormatMarkdown), sub.Flag("output", "o"), args.JSON)
	default:
		return ErrUnknownSubcommand("sessions", sub.Subcommand())
	}
}

func (a *App) listSessions(ctx context.Context) ([]model.ChatSession, error) {
	sessions, err := a.Store.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	model.SortByRecency(sessions)
	return sessions, nil
}

func (a *App) sessionsList(ctx context.Context, jsonMode bool) error {
	sessions, err := a.listSessions(ctx)
	if err != nil {
		return NewCommandError("sessions", "list", err)
	}

	infos := make([]SessionInfo, len(sessions))
	for i, sess := range sessions {
		infos[i] = SessionInfo{
			Index:     i + 1,
			ID:        sess.ID,
			Title:     sess.Title,
			Preview:   sess.Preview(80),
			Messages:  len(sess.Messages),
			CreatedAt: sess.CreatedAt,
			UpdatedAt: sess.UpdatedAt,
		}
	}
	return printResult(a.Out, jsonMode, "sessions list", infos, func() {
		fmt.Fprint(a.Out, FormatSessionList(sessions, GetTerminalWidth()))
	})
}

// resolveSession finds a session by id, or by its 1-based position in
// the recency-ordered listing.
func (a *App) resolveSession(ctx context.Context, ref string) (*model.ChatSession, error) {
	if ref == "" {
		return nil, ErrMissingArgument("session", "rigrun-chat sessions show 1")
	}

	sess, err := a.Store.Get(ctx, ref)
	if err != nil {
		return nil, err
	}
	if sess != nil {
		return sess, nil
	}

	if n, err := strconv.Atoi(ref); err == nil && n > 0 {
		sessions, err := a.listSessions(ctx)
		if err != nil {
			return nil, err
		}
		if n <= len(sessions) {
			return &sessions[n-1], nil
		}
	}
	return nil, &NotFoundError{Resource: "session", ID: ref}
}

func (a *App) sessionsShow(ctx context.Context, ref string, jsonMode bool) error {
	sess, err := a.resolveSession(ctx, ref)
	if err != nil {
		return err
	}
	return printResult(a.Out, jsonMode, "sessions show", sess, func() {
		fmt.Fprint(a.Out, FormatSession(sess, GetTerminalWidth()))
	})
}

func (a *App) sessionsDelete(ctx context.Context, ref string, jsonMode bool) error {
	sess, err := a.resolveSession(ctx, ref)
	if err != nil {
		return err
	}
	if err := a.Store.Delete(ctx, sess.ID); err != nil {
		return NewCommandError("sessions", "delete", err)
	}
	a.Logger.Info("session deleted", zap.String("session_id", sess.ID))

	return printResult(a.Out, jsonMode, "sessions delete", map[string]string{"id": sess.ID}, func() {
		fmt.Fprintf(a.Out, "Deleted session %s (%s)\n", sess.ID, sess.Title)
	})
}

func (a *App) sessionsExport(ctx context.Context, ref, format, outputDir string, jsonMode bool) error {
	opts := export.DefaultOptions()
	if outputDir != "" {
		opts.OutputDir = outputDir
	}
	exporter, err := export.ForFormat(format, opts)
	if err != nil {
		return &UsageError{Reason: err.Error(), Example: "rigrun-chat sessions export 1 --format json"}
	}

	sess, err := a.resolveSession(ctx, ref)
	if err != nil {
		return err
	}
	path, err := export.ToFile(sess, exporter, opts)
	if err != nil {
		return NewCommandError("sessions", "export", err)
	}

	return printResult(a.Out, jsonMode, "sessions export", map[string]string{"id": sess.ID, "path": path}, func() {
		fmt.Fprintf(a.Out, "Exported %s to %s\n", sess.ID, path)
	})
}
