// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides durable chat session persistence.
//
// Sessions are stored whole: an upsert replaces the full record at its id.
// Every backend implements Store, and every failure wraps ErrUnavailable
// so callers can treat storage as best-effort without inspecting backends.
//
// # Key Types
//
//   - Store: Session persistence interface
//   - SQLiteStore: One "sessions" table in a local SQLite file (default)
//   - FileStore: One JSON file per session
//   - MemoryStore: In-process map, used by tests
//
// # Usage
//
//	store, err := storage.Open(storage.BackendSQLite, "~/.rigrun-chat/sessions.db")
//	err = store.Upsert(ctx, session)
//	sessions, err := store.ListAll(ctx)
//
// # Storage Location
//
// The SQLite database lives at ~/.rigrun-chat/sessions.db unless
// [storage].path says otherwise. The SQLite store opens the database for
// each operation and closes it afterwards.
package storage
