// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package provider normalizes the four supported inference backends
// (OpenAI, LM Studio, GPT4ALL and Ollama) into one conversational model.
//
// A Kind is a tagged variant over the backends. Each Kind has an Adapter
// that builds the provider-specific request and parses the provider-specific
// response; callers never branch on the provider themselves.
//
// # Key Types
//
//   - Kind: Backend enumeration (openai, lmstudio, gpt4all, ollama)
//   - Settings: Connection settings (endpoint, key, model, reasoning effort)
//   - Adapter: Request builder and response parser for one Kind
//   - Request: Endpoint, JSON body and headers ready to send
//   - Client: HTTP transport that times the exchange
//   - HTTPError: Non-2xx response carrying status and body text
//
// # Capability Detection
//
// IsReasoningModel classifies a model identifier by keyword. The extended
// IsReasoningWithDetails also inspects Ollama model metadata.
//
// # Usage
//
//	adapter := provider.For(settings.Kind, nil)
//	req, err := adapter.BuildRequest(settings, history, systemPrompt, input)
//	resp, err := client.Do(ctx, settings, req)
//	msg, err := adapter.ParseResponse(req, resp.Status, resp.Body, resp.Elapsed)
package provider
