// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"sort"

	"github.com/jeranaias/rigrun-chat/internal/util"
)

const (
	// TitleMaxRunes bounds a derived session title.
	TitleMaxRunes = 50

	// DefaultTitle is used when a session has no user turn yet.
	DefaultTitle = "New Chat"
)

// ChatSession is one persisted conversation thread.
type ChatSession struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Messages  []Message `json:"messages"`
	CreatedAt int64     `json:"createdAt"`
	UpdatedAt int64     `json:"updatedAt"`
}

// DeriveTitle returns the first TitleMaxRunes characters of the first
// non-empty user message, or DefaultTitle.
func DeriveTitle(msgs []Message) string {
	for _, m := range msgs {
		if m.Role == RoleUser && m.Content != "" {
			return util.FirstRunes(m.Content, TitleMaxRunes)
		}
	}
	return DefaultTitle
}

// Clone returns a deep copy of the session.
func (s ChatSession) Clone() ChatSession {
	s.Messages = CloneMessages(s.Messages)
	return s
}

// Preview returns a one-line excerpt of the first user message.
func (s ChatSession) Preview(maxRunes int) string {
	for _, m := range s.Messages {
		if m.Role == RoleUser && m.Content != "" {
			return util.TruncateRunes(util.SingleLine(m.Content), maxRunes)
		}
	}
	return ""
}

// SortByRecency orders sessions by UpdatedAt descending. Ties fall back to
// ID so listings are stable.
func SortByRecency(sessions []ChatSession) {
	sort.SliceStable(sessions, func(i, j int) bool {
		if sessions[i].UpdatedAt != sessions[j].UpdatedAt {
			return sessions[i].UpdatedAt > sessions[j].UpdatedAt
		}
		return sessions[i].ID < sessions[j].ID
	})
}
