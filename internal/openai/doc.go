// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package openai provides the wire types and model-listing client for
// OpenAI-compatible servers.
//
// The same record shapes serve OpenAI itself, LM Studio and GPT4ALL; the
// servers differ only in the paths they are reached at and in whether they
// accept the reasoning_effort field.
//
// # Key Types
//
//   - ChatRequest: Body for /v1/chat/completions
//   - ChatResponse: Completion with choices and usage
//   - Client: Lists model identifiers from a /v1/models endpoint
//   - APIError: Non-2xx response with status and body text
//
// # Usage
//
//	client := openai.NewClient(openai.ClientConfig{
//	    ModelsURL: "https://api.openai.com/v1/models",
//	    APIKey:    key,
//	})
//	ids, err := client.ListModels(ctx)
package openai
