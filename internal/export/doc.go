// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export writes stored chat sessions to shareable files.
//
// # Key Types
//
//   - Exporter: Converts a session to bytes in one format
//   - Options: Export configuration options
//
// # Supported Formats
//
//   - JSON: The stored record, re-importable
//   - Markdown: Human-readable, with YAML frontmatter
//
// # Usage
//
//	exporter, err := export.ForFormat("markdown", nil)
//	path, err := export.ToFile(session, exporter, &export.Options{OutputDir: "."})
package export
