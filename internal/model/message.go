// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import "time"

// NoResponseText replaces assistant content that a server returned empty.
const NoResponseText = "(no response)"

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	}
	return false
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message is a single conversational turn. Messages are never edited after
// they are appended to a session.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`

	// Generation metadata, set on assistant turns.
	Model           string   `json:"model,omitempty"`
	Provider        string   `json:"provider,omitempty"`
	ReasoningEffort string   `json:"reasoningEffort,omitempty"`
	TokensPerSecond *float64 `json:"tokensPerSecond,omitempty"`

	// Timestamp is epoch milliseconds; zero means unknown.
	Timestamp int64 `json:"timestamp,omitempty"`
}

// NewUserMessage creates a user turn stamped at ts.
func NewUserMessage(content string, ts int64) Message {
	return Message{Role: RoleUser, Content: content, Timestamp: ts}
}

// NewSystemMessage creates a system turn.
func NewSystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// HasRate reports whether a tokens/sec figure was computed for the turn.
func (m Message) HasRate() bool {
	return m.TokensPerSecond != nil
}

// Rate returns the tokens/sec figure or 0 when unset.
func (m Message) Rate() float64 {
	if m.TokensPerSecond == nil {
		return 0
	}
	return *m.TokensPerSecond
}

// Clone returns a copy that shares no pointers with m.
func (m Message) Clone() Message {
	if m.TokensPerSecond != nil {
		v := *m.TokensPerSecond
		m.TokensPerSecond = &v
	}
	return m
}

// Time converts the epoch-millis timestamp to a time.Time.
func (m Message) Time() time.Time {
	return time.UnixMilli(m.Timestamp)
}

// CloneMessages deep-copies a message slice.
func CloneMessages(msgs []Message) []Message {
	if msgs == nil {
		return nil
	}
	out := make([]Message, len(msgs))
	for i, m := range msgs {
		out[i] = m.Clone()
	}
	return out
}

// NowMillis returns the current time in epoch milliseconds.
func NowMillis() int64 {
	return time.Now().UnixMilli()
}
