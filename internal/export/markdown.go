// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jeranaias/rigrun-chat/internal/model"
)

// =============================================================================
// MARKDOWN EXPORTER
// =============================================================================

// MarkdownExporter exports sessions to Markdown.
type MarkdownExporter struct {
	options *Options
}

// NewMarkdownExporter creates a new Markdown exporter.
func NewMarkdownExporter(opts *Options) *MarkdownExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &MarkdownExporter{options: opts}
}

// frontmatter is the YAML header of a Markdown export.
type frontmatter struct {
	Title     string   `yaml:"title"`
	ID        string   `yaml:"id"`
	Date      string   `yaml:"date"`
	Updated   string   `yaml:"updated"`
	Messages  int      `yaml:"messages"`
	Models    []string `yaml:"models,omitempty"`
	Exported  string   `yaml:"exported"`
	Generator string   `yaml:"generator"`
}

// Export converts a session to Markdown.
func (e *MarkdownExporter) Export(sess *model.ChatSession) ([]byte, error) {
	if err := validate(sess); err != nil {
		return nil, err
	}
	title := sess.Title
	if title == "" {
		title = model.DefaultTitle
	}

	var sb strings.Builder

	if e.options.IncludeMetadata {
		header, err := yaml.Marshal(frontmatter{
			Title:     title,
			ID:        sess.ID,
			Date:      formatMillis(sess.CreatedAt, time.RFC3339),
			Updated:   formatMillis(sess.UpdatedAt, time.RFC3339),
			Messages:  len(sess.Messages),
			Models:    modelsUsed(sess.Messages),
			Exported:  e.options.now().Format(time.RFC3339),
			Generator: "rigrun-chat",
		})
		if err != nil {
			return nil, fmt.Errorf("frontmatter: %w", err)
		}
		sb.WriteString("---\n")
		sb.Write(header)
		sb.WriteString("---\n\n")
	}

	fmt.Fprintf(&sb, "# %s\n\n", escapeMarkdown(title))

	for i, msg := range sess.Messages {
		if e.options.IncludeTimestamps && msg.Timestamp > 0 {
			fmt.Fprintf(&sb, "### %s <sub>%s</sub>\n\n", roleLabel(msg.Role), formatMillis(msg.Timestamp, "Jan 2 15:04:05"))
		} else {
			fmt.Fprintf(&sb, "### %s\n\n", roleLabel(msg.Role))
		}

		sb.WriteString(strings.TrimSpace(msg.Content))
		sb.WriteString("\n\n")

		if msg.Role == model.RoleAssistant && e.options.IncludeMetadata {
			if stats := messageStats(msg); stats != "" {
				sb.WriteString(stats)
				sb.WriteString("\n\n")
			}
		}

		if i < len(sess.Messages)-1 {
			sb.WriteString("---\n\n")
		}
	}

	return []byte(sb.String()), nil
}

// FileExtension returns the file extension for Markdown.
func (e *MarkdownExporter) FileExtension() string {
	return ".md"
}

// MimeType returns the MIME type for Markdown.
func (e *MarkdownExporter) MimeType() string {
	return "text/markdown"
}

// =============================================================================
// FORMATTING HELPERS
// =============================================================================

func roleLabel(role model.Role) string {
	switch role {
	case model.RoleUser:
		return "[User]"
	case model.RoleAssistant:
		return "[Assistant]"
	case model.RoleSystem:
		return "[System]"
	case "":
		return "Unknown"
	default:
		r := []rune(string(role))
		return strings.ToUpper(string(r[0])) + string(r[1:])
	}
}

// messageStats renders the generation details of an assistant reply.
func messageStats(msg model.Message) string {
	var parts []string
	if msg.Model != "" {
		parts = append(parts, "Model: "+msg.Model)
	}
	if msg.Provider != "" {
		parts = append(parts, "Provider: "+msg.Provider)
	}
	if msg.ReasoningEffort != "" {
		parts = append(parts, "Reasoning: "+msg.ReasoningEffort)
	}
	if msg.HasRate() {
		parts = append(parts, fmt.Sprintf("Speed: %.1f tok/s", msg.Rate()))
	}
	if len(parts) == 0 {
		return ""
	}
	return fmt.Sprintf("<sub>%s</sub>", strings.Join(parts, " | "))
}

// modelsUsed lists the distinct reply models in first-use order.
func modelsUsed(msgs []model.Message) []string {
	seen := make(map[string]bool)
	var out []string
	for _, m := range msgs {
		if m.Model == "" || seen[m.Model] {
			continue
		}
		seen[m.Model] = true
		out = append(out, m.Model)
	}
	return out
}

func formatMillis(ms int64, layout string) string {
	if ms <= 0 {
		return ""
	}
	return time.UnixMilli(ms).Format(layout)
}

// escapeMarkdown escapes characters that would break a heading.
func escapeMarkdown(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	for _, c := range []string{"#", "*", "_", "[", "]"} {
		s = strings.ReplaceAll(s, c, "\\"+c)
	}
	return s
}
