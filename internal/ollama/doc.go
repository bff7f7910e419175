// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ollama provides the wire types and a small HTTP client for the
// native Ollama API.
//
// Chat requests are built and executed by the provider package; this
// package owns the record shapes and the catalog endpoints (/api/tags and
// /api/show) used to enumerate installed models and read their metadata.
//
// # Key Types
//
//   - Client: HTTP client for the catalog endpoints
//   - ChatRequest: Request body for /api/chat (non-streaming, optional think)
//   - ChatResponse: Response body with message and eval_count
//   - ShowResponse: Model metadata returned by /api/show
//
// # Usage
//
//	client := ollama.NewClientWithConfig(&ollama.ClientConfig{
//	    BaseURL: "http://127.0.0.1:11434",
//	    ShowURL: "http://127.0.0.1:11434/api/show",
//	})
//	names, err := client.ListModels(ctx)
//	details, err := client.Show(ctx, names[0])
package ollama
