// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/jeranaias/rigrun-chat/internal/model"
	"github.com/jeranaias/rigrun-chat/internal/ollama"
)

// ollamaAdapter speaks the native /api/chat protocol without streaming.
type ollamaAdapter struct {
	reasoning Capability
}

func (a *ollamaAdapter) BuildRequest(settings Settings, history []model.Message, systemPrompt, input string) (*Request, error) {
	modelID := settings.ModelOrDefault()

	body := ollama.ChatRequest{
		Model:  modelID,
		Stream: false,
		Think:  effortFor(settings, modelID, a.reasoning),
	}
	for _, m := range composeMessages(history, systemPrompt, input) {
		body.Messages = append(body.Messages, ollama.Message{Role: m.Role, Content: m.Content})
	}

	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode ollama request: %w", err)
	}

	return &Request{
		Endpoint:        settings.BaseURL() + "/api/chat",
		Body:            data,
		Headers:         requestHeaders(settings.APIKey),
		Kind:            KindOllama,
		Model:           modelID,
		ReasoningEffort: body.Think,
	}, nil
}

func (a *ollamaAdapter) ParseResponse(req *Request, status int, body []byte, elapsed time.Duration) (model.Message, error) {
	if !isSuccess(status) {
		return model.Message{}, NewHTTPError(status, body)
	}

	var resp ollama.ChatResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return assistantMessage(req, model.NoResponseText, 0, false, elapsed), nil
	}

	content := model.NoResponseText
	if resp.Message != nil && resp.Message.Content != nil && *resp.Message.Content != "" {
		content = *resp.Message.Content
	}

	tokens, hasTokens := 0, resp.EvalCount != nil
	if hasTokens {
		tokens = *resp.EvalCount
	}
	return assistantMessage(req, content, tokens, hasTokens, elapsed), nil
}
