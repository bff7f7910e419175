// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/jeranaias/rigrun-chat/internal/model"
	"github.com/jeranaias/rigrun-chat/internal/util"
)

// =============================================================================
// SESSION TABLE
// =============================================================================

const (
	indexColWidth   = 4
	updatedColWidth = 16
	countColWidth   = 5
	minTitleWidth   = 12
)

// FormatSessionList renders sessions as a table fitting width columns.
// Titles and previews are cut by display width, so wide characters keep
// the columns aligned.
func FormatSessionList(sessions []model.ChatSession, width int) string {
	if len(sessions) == 0 {
		return "No saved sessions.\n"
	}
	if width < MinTerminalWidth {
		width = MinTerminalWidth
	}

	// Remaining space is split between title and preview.
	rest := width - indexColWidth - updatedColWidth - countColWidth - 4
	titleWidth := max(rest*2/5, minTitleWidth)
	previewWidth := max(rest-titleWidth-1, 0)

	var b strings.Builder
	writeRow := func(idx, updated, count, title, preview string) {
		b.WriteString(util.PadWidth(idx, indexColWidth))
		b.WriteByte(' ')
		b.WriteString(util.PadWidth(updated, updatedColWidth))
		b.WriteByte(' ')
		b.WriteString(util.PadWidth(count, countColWidth))
		b.WriteByte(' ')
		b.WriteString(util.PadWidth(util.TruncateWidth(title, titleWidth), titleWidth))
		if previewWidth > 0 && preview != "" {
			b.WriteByte(' ')
			b.WriteString(util.TruncateWidth(preview, previewWidth))
		}
		b.WriteString("\n")
	}

	writeRow("#", "UPDATED", "MSGS", "TITLE", "PREVIEW")
	for i, sess := range sessions {
		writeRow(
			fmt.Sprintf("%d", i+1),
			formatMillis(sess.UpdatedAt),
			fmt.Sprintf("%d", len(sess.Messages)),
			util.SingleLine(sess.Title),
			sess.Preview(previewWidth),
		)
	}
	return b.String()
}

// formatMillis renders a Unix-millisecond timestamp in local time.
func formatMillis(ms int64) string {
	if ms <= 0 {
		return "-"
	}
	return time.UnixMilli(ms).Local().Format("2006-01-02 15:04")
}

// =============================================================================
// MESSAGES
// =============================================================================

// FormatMessage renders one turn for the terminal: a role header, the
// wrapped content and, for assistant turns, a metadata line.
func FormatMessage(msg model.Message, width int) string {
	var b strings.Builder

	header := "You"
	if msg.Role == model.RoleAssistant {
		header = "Assistant"
	}
	if msg.Timestamp > 0 {
		header += " (" + formatMillis(msg.Timestamp) + ")"
	}
	b.WriteString(header)
	b.WriteString(":\n")
	b.WriteString(WrapText(msg.Content, width))
	b.WriteString("\n")

	if meta := messageMeta(msg); meta != "" {
		b.WriteString("  [")
		b.WriteString(meta)
		b.WriteString("]\n")
	}
	return b.String()
}

func messageMeta(msg model.Message) string {
	if msg.Role != model.RoleAssistant {
		return ""
	}
	var parts []string
	if msg.Model != "" {
		parts = append(parts, msg.Model)
	}
	if msg.Provider != "" {
		parts = append(parts, msg.Provider)
	}
	if msg.ReasoningEffort != "" {
		parts = append(parts, "effort "+msg.ReasoningEffort)
	}
	if msg.HasRate() {
		parts = append(parts, fmt.Sprintf("%.1f tok/s", msg.Rate()))
	}
	return strings.Join(parts, " | ")
}

// FormatSession renders a whole session for "sessions show".
func FormatSession(sess *model.ChatSession, width int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", sess.Title)
	fmt.Fprintf(&b, "ID: %s  Created: %s  Updated: %s\n\n",
		sess.ID, formatMillis(sess.CreatedAt), formatMillis(sess.UpdatedAt))
	for _, msg := range sess.Messages {
		b.WriteString(FormatMessage(msg, width))
		b.WriteString("\n")
	}
	return b.String()
}
