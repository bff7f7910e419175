// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"strings"

	"github.com/jeranaias/rigrun-chat/internal/ollama"
)

// reasoningKeywords mark a model identifier as reasoning-capable.
var reasoningKeywords = []string{"o1", "reasoning", "gpt-oss", "deepseek-r1"}

// IsReasoningModel reports whether a model identifier names a model that
// accepts a reasoning effort parameter. Matching is a case-insensitive
// substring test; an empty identifier is never reasoning-capable.
func IsReasoningModel(id string) bool {
	if id == "" {
		return false
	}
	lower := strings.ToLower(id)
	for _, kw := range reasoningKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// IsReasoningWithDetails extends IsReasoningModel with Ollama model metadata:
// any free-text field mentioning "reasoning" marks the model capable. Nil
// details fall back to the identifier check.
func IsReasoningWithDetails(id string, details *ollama.ShowResponse) bool {
	for _, text := range details.MetadataText() {
		if strings.Contains(strings.ToLower(text), "reasoning") {
			return true
		}
	}
	return IsReasoningModel(id)
}

// Capability reports whether a model identifier is reasoning-capable.
type Capability func(modelID string) bool
