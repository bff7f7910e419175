// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"fmt"
	"strings"
)

// =============================================================================
// KIND
// =============================================================================

// Kind identifies an inference backend.
type Kind string

const (
	KindOpenAI   Kind = "openai"
	KindLMStudio Kind = "lmstudio"
	KindGPT4All  Kind = "gpt4all"
	KindOllama   Kind = "ollama"
)

// Kinds lists every supported backend.
var Kinds = []Kind{KindOpenAI, KindLMStudio, KindGPT4All, KindOllama}

// String returns the string representation of the kind.
func (k Kind) String() string {
	return string(k)
}

// Valid reports whether k is a supported backend.
func (k Kind) Valid() bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

// ParseKind parses a backend name case-insensitively.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if !k.Valid() {
		return "", fmt.Errorf("unknown provider %q (valid: openai, lmstudio, gpt4all, ollama)", s)
	}
	return k, nil
}

// DefaultModel returns the model used when none is selected.
func (k Kind) DefaultModel() string {
	if k == KindOllama {
		return "llama2"
	}
	return "gpt-3.5-turbo"
}

// =============================================================================
// REASONING EFFORT
// =============================================================================

// Reasoning effort levels.
const (
	EffortLow    = "low"
	EffortMedium = "medium"
	EffortHigh   = "high"
)

// ValidEffort reports whether s is empty or a known effort level.
func ValidEffort(s string) bool {
	switch s {
	case "", EffortLow, EffortMedium, EffortHigh:
		return true
	}
	return false
}

// =============================================================================
// SETTINGS
// =============================================================================

// Settings is the connection configuration for one backend.
type Settings struct {
	Kind            Kind   `toml:"provider" yaml:"provider" json:"provider"`
	Endpoint        string `toml:"endpoint" yaml:"endpoint" json:"endpoint"`
	APIKey          string `toml:"api_key" yaml:"api_key" json:"apiKey"`
	Model           string `toml:"model" yaml:"model" json:"model,omitempty"`
	ReasoningEffort string `toml:"reasoning_effort" yaml:"reasoning_effort" json:"reasoningEffort,omitempty"`

	// ProxyOrigin is the origin that serves the same-origin proxy paths.
	// Empty means proxy paths are rewritten onto Endpoint directly.
	ProxyOrigin string `toml:"proxy_origin" yaml:"proxy_origin" json:"proxyOrigin,omitempty"`
}

// Configured reports whether a network call may be attempted.
func (s Settings) Configured() bool {
	return strings.TrimSpace(s.Endpoint) != ""
}

// NeedsAPIKey reports whether the backend requires a key that is missing.
func (s Settings) NeedsAPIKey() bool {
	return s.Kind == KindOpenAI && s.APIKey == ""
}

// ModelOrDefault returns the selected model or the backend default.
func (s Settings) ModelOrDefault() string {
	if s.Model != "" {
		return s.Model
	}
	return s.Kind.DefaultModel()
}

// BaseURL returns the endpoint without trailing slashes.
func (s Settings) BaseURL() string {
	return strings.TrimRight(strings.TrimSpace(s.Endpoint), "/")
}

// ConnectionEqual reports whether two settings reach the same catalog.
func (s Settings) ConnectionEqual(o Settings) bool {
	return s.Kind == o.Kind && s.Endpoint == o.Endpoint && s.APIKey == o.APIKey &&
		s.ProxyOrigin == o.ProxyOrigin
}
