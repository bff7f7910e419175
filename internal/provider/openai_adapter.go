// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/jeranaias/rigrun-chat/internal/model"
	"github.com/jeranaias/rigrun-chat/internal/openai"
)

// openAIAdapter serves every OpenAI-compatible backend. GPT4ALL is reached
// through the same-origin proxy and never receives a reasoning parameter.
type openAIAdapter struct {
	kind      Kind
	reasoning Capability
	proxied   bool
}

func (a *openAIAdapter) BuildRequest(settings Settings, history []model.Message, systemPrompt, input string) (*Request, error) {
	modelID := settings.ModelOrDefault()

	body := openai.ChatRequest{Model: modelID}
	for _, m := range composeMessages(history, systemPrompt, input) {
		body.Messages = append(body.Messages, openai.ChatMessage{Role: m.Role, Content: m.Content})
	}

	endpoint := GPT4AllChatPath
	if !a.proxied {
		endpoint = settings.BaseURL() + "/v1/chat/completions"
		body.ReasoningEffort = effortFor(settings, modelID, a.reasoning)
	}

	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode %s request: %w", a.kind, err)
	}

	return &Request{
		Endpoint:        endpoint,
		Body:            data,
		Headers:         requestHeaders(settings.APIKey),
		Kind:            a.kind,
		Model:           modelID,
		ReasoningEffort: body.ReasoningEffort,
	}, nil
}

func (a *openAIAdapter) ParseResponse(req *Request, status int, body []byte, elapsed time.Duration) (model.Message, error) {
	if !isSuccess(status) {
		return model.Message{}, NewHTTPError(status, body)
	}

	var resp openai.ChatResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return assistantMessage(req, model.NoResponseText, 0, false, elapsed), nil
	}

	content, ok := resp.GetContent()
	if !ok {
		content = model.NoResponseText
	}
	tokens, hasTokens := resp.TotalTokens()
	return assistantMessage(req, content, tokens, hasTokens, elapsed), nil
}
