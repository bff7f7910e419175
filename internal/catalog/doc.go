// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package catalog enumerates the models a configured backend offers and
// classifies each one as reasoning-capable or not.
//
// # Key Types
//
//   - Fetcher: One catalog fetch for a set of provider settings
//   - Service: The shown catalog state, refreshed on configuration change
//   - State: Models, error text and loading flag
//
// Ollama catalogs are enriched with one /api/show lookup per model. The
// lookups run concurrently; a failed lookup degrades that one model to
// identifier-only classification and never fails the fetch.
//
// # Usage
//
//	svc := catalog.NewService(catalog.NewFetcher(nil, logger), holder, logger)
//	stop := svc.Start(ctx)
//	defer stop()
//	state := svc.RefreshAndWait(ctx)
package catalog
