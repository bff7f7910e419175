// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures shared by the chat core:
// conversational turns, persisted chat sessions and catalog entries.
//
// # Key Types
//
//   - Message: One turn with role, content and optional generation metadata
//   - ChatSession: A persisted conversation thread (the unit of storage)
//   - ModelInfo: A catalog entry annotated with reasoning capability
//   - Role: Message role enumeration (user, assistant, system)
//
// Timestamps are integer epoch milliseconds so that persisted records stay
// byte-compatible across storage backends.
//
// # Usage
//
//	sess := model.ChatSession{ID: id, CreatedAt: model.NowMillis()}
//	sess.Messages = append(sess.Messages, model.NewUserMessage("Hello!", model.NowMillis()))
//	sess.Title = model.DeriveTitle(sess.Messages)
package model
