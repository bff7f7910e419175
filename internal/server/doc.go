// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package server exposes the chat core over HTTP.
//
// It serves a JSON API for a browser shell and the same-origin proxy
// paths the provider adapters rely on to reach local GPT4ALL and Ollama
// servers without cross-origin restrictions.
//
// # Endpoints
//
//   - GET    /health                   - Health check
//   - GET    /api/config               - Current configuration (key redacted)
//   - PUT    /api/config               - Replace provider settings
//   - PUT    /api/system-prompt        - Replace the system prompt
//   - GET    /api/models               - Model catalog
//   - POST   /api/models/refresh       - Refetch the model catalog
//   - GET    /api/sessions             - Stored sessions, most recent first
//   - POST   /api/sessions             - Start a new chat
//   - GET    /api/sessions/{id}        - Open a stored session
//   - DELETE /api/sessions/{id}        - Delete a stored session
//   - GET    /api/sessions/{id}/export - Download as markdown or json
//   - GET    /api/chat                 - Active conversation
//   - POST   /api/chat                 - Send a message (409 while sending)
//   - ANY    /api/gpt4all/*            - Proxy to the GPT4ALL server
//   - POST   /api/ollama/api/show      - Proxy to Ollama's model details
//
// # Key Types
//
//   - Server: HTTP server with router and middleware
//   - Deps: Core services the handlers call into
//
// # Usage
//
//	srv, err := server.New(cfg.Server, server.Deps{
//		Manager: mgr,
//		Catalog: catalogService,
//		Holder:  holder,
//		Store:   store,
//		Logger:  logger,
//	})
//	if err := srv.Run(ctx); err != nil {
//		return err
//	}
package server
