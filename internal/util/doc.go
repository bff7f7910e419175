// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared by the storage, config and CLI
// packages.
//
// # Key Functions
//
// File Operations:
//   - AtomicWriteFile: Crash-safe file writing with fsync and rename
//
// String Utilities:
//   - FirstRunes: UTF-8 safe prefix without ellipsis
//   - TruncateRunes: UTF-8 safe truncation with ellipsis
//   - SingleLine: Collapses line breaks for one-line previews
//   - PadWidth, TruncateWidth: Display-width aware column helpers
package util
