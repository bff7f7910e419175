// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"net/http"
	"time"

	"github.com/jeranaias/rigrun-chat/internal/model"
)

// Same-origin proxy prefixes. Requests to these paths are forwarded to the
// local GPT4ALL and Ollama servers with the prefix removed.
const (
	GPT4AllProxyPrefix = "/api/gpt4all"
	OllamaProxyPrefix  = "/api/ollama"
)

// Fixed proxy paths used by the adapters and the catalog.
const (
	GPT4AllChatPath   = GPT4AllProxyPrefix + "/v1/chat/completions"
	GPT4AllModelsPath = GPT4AllProxyPrefix + "/v1/models"
	OllamaShowPath    = OllamaProxyPrefix + "/api/show"
)

// Request is a provider request ready to send.
type Request struct {
	// Endpoint is absolute, or a same-origin proxy path starting with "/".
	Endpoint string
	Body     []byte
	Headers  http.Header

	Kind  Kind
	Model string

	// ReasoningEffort is non-empty only when the request carries a
	// reasoning parameter.
	ReasoningEffort string
}

// Adapter builds requests for and parses responses from one backend.
type Adapter interface {
	// BuildRequest composes [system] + history + user input into a request.
	BuildRequest(settings Settings, history []model.Message, systemPrompt, input string) (*Request, error)

	// ParseResponse turns a raw response into an assistant Message. Non-2xx
	// statuses return *HTTPError. A 2xx body without content yields
	// model.NoResponseText rather than an error.
	ParseResponse(req *Request, status int, body []byte, elapsed time.Duration) (model.Message, error)
}

// For returns the adapter for kind. A nil capability uses IsReasoningModel.
func For(kind Kind, reasoning Capability) Adapter {
	if reasoning == nil {
		reasoning = IsReasoningModel
	}
	switch kind {
	case KindOllama:
		return &ollamaAdapter{reasoning: reasoning}
	case KindGPT4All:
		return &openAIAdapter{kind: kind, reasoning: reasoning, proxied: true}
	case KindLMStudio:
		return &openAIAdapter{kind: kind, reasoning: reasoning}
	default:
		return &openAIAdapter{kind: KindOpenAI, reasoning: reasoning}
	}
}

// =============================================================================
// SHARED HELPERS
// =============================================================================

type wireMessage struct {
	Role    string
	Content string
}

// composeMessages returns [system] + history + user input, order preserved.
func composeMessages(history []model.Message, systemPrompt, input string) []wireMessage {
	out := make([]wireMessage, 0, len(history)+2)
	if systemPrompt != "" {
		out = append(out, wireMessage{Role: string(model.RoleSystem), Content: systemPrompt})
	}
	for _, m := range history {
		out = append(out, wireMessage{Role: string(m.Role), Content: m.Content})
	}
	out = append(out, wireMessage{Role: string(model.RoleUser), Content: input})
	return out
}

// effortFor returns the effort to send, or "" when the model is not
// reasoning-capable or no effort is set.
func effortFor(settings Settings, modelID string, reasoning Capability) string {
	if settings.ReasoningEffort == "" || !reasoning(modelID) {
		return ""
	}
	return settings.ReasoningEffort
}

func requestHeaders(apiKey string) http.Header {
	h := http.Header{}
	h.Set("Content-Type", "application/json")
	if apiKey != "" {
		h.Set("Authorization", "Bearer "+apiKey)
	}
	return h
}

// assistantMessage stamps generation metadata onto an assistant turn.
func assistantMessage(req *Request, content string, tokens int, hasTokens bool, elapsed time.Duration) model.Message {
	msg := model.Message{
		Role:      model.RoleAssistant,
		Content:   content,
		Model:     req.Model,
		Provider:  string(req.Kind),
		Timestamp: model.NowMillis(),
	}
	if req.ReasoningEffort != "" {
		msg.ReasoningEffort = req.ReasoningEffort
	}
	if rate, ok := TokensPerSecond(tokens, hasTokens, elapsed); ok {
		msg.TokensPerSecond = &rate
	}
	return msg
}

// TokensPerSecond returns tokens / elapsed seconds. It reports false when
// the token count is absent or non-positive, or elapsed is not positive.
func TokensPerSecond(tokens int, present bool, elapsed time.Duration) (float64, bool) {
	if !present || tokens <= 0 || elapsed <= 0 {
		return 0, false
	}
	return float64(tokens) / elapsed.Seconds(), true
}

func isSuccess(status int) bool {
	return status >= 200 && status <= 299
}
