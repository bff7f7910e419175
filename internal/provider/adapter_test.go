// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/rigrun-chat/internal/model"
)

func decodeBody(t *testing.T, req *Request) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(req.Body, &body))
	return body
}

// =============================================================================
// REQUEST ADAPTER TESTS
// =============================================================================

func TestBuildRequest_MessageComposition(t *testing.T) {
	history := []model.Message{
		{Role: model.RoleUser, Content: "one", Model: "ignored"},
		{Role: model.RoleAssistant, Content: "two"},
	}
	settings := Settings{Kind: KindOpenAI, Endpoint: "https://api.openai.com/", APIKey: "sk"}

	req, err := For(KindOpenAI, nil).BuildRequest(settings, history, "be brief", "three")
	require.NoError(t, err)

	body := decodeBody(t, req)
	msgs := body["messages"].([]any)
	require.Len(t, msgs, 4)

	want := [][2]string{{"system", "be brief"}, {"user", "one"}, {"assistant", "two"}, {"user", "three"}}
	for i, w := range want {
		m := msgs[i].(map[string]any)
		assert.Equal(t, w[0], m["role"])
		assert.Equal(t, w[1], m["content"])
		assert.Len(t, m, 2, "only role and content are sent")
	}
}

func TestBuildRequest_NoSystemPrompt(t *testing.T) {
	req, err := For(KindOllama, nil).BuildRequest(Settings{Kind: KindOllama, Endpoint: "http://h"}, nil, "", "hi")
	require.NoError(t, err)

	msgs := decodeBody(t, req)["messages"].([]any)
	require.Len(t, msgs, 1)
	assert.Equal(t, "user", msgs[0].(map[string]any)["role"])
}

func TestBuildRequest_Endpoints(t *testing.T) {
	tests := []struct {
		kind Kind
		want string
	}{
		{KindOllama, "http://host:1234/api/chat"},
		{KindOpenAI, "http://host:1234/v1/chat/completions"},
		{KindLMStudio, "http://host:1234/v1/chat/completions"},
		{KindGPT4All, "/api/gpt4all/v1/chat/completions"},
	}

	for _, tc := range tests {
		t.Run(string(tc.kind), func(t *testing.T) {
			settings := Settings{Kind: tc.kind, Endpoint: "http://host:1234/"}
			req, err := For(tc.kind, nil).BuildRequest(settings, nil, "", "x")
			require.NoError(t, err)
			assert.Equal(t, tc.want, req.Endpoint)
			assert.Equal(t, tc.kind, req.Kind)
		})
	}
}

func TestBuildRequest_DefaultModel(t *testing.T) {
	req, err := For(KindOllama, nil).BuildRequest(Settings{Kind: KindOllama, Endpoint: "http://h"}, nil, "", "x")
	require.NoError(t, err)
	assert.Equal(t, "llama2", decodeBody(t, req)["model"])

	req, err = For(KindLMStudio, nil).BuildRequest(Settings{Kind: KindLMStudio, Endpoint: "http://h"}, nil, "", "x")
	require.NoError(t, err)
	assert.Equal(t, "gpt-3.5-turbo", decodeBody(t, req)["model"])
}

func TestBuildRequest_OllamaThink(t *testing.T) {
	settings := Settings{Kind: KindOllama, Endpoint: "http://h", Model: "deepseek-r1:8b", ReasoningEffort: "high"}

	req, err := For(KindOllama, nil).BuildRequest(settings, nil, "", "x")
	require.NoError(t, err)
	body := decodeBody(t, req)
	assert.Equal(t, "high", body["think"])
	assert.Equal(t, false, body["stream"])
	assert.Equal(t, "high", req.ReasoningEffort)

	settings.ReasoningEffort = ""
	req, err = For(KindOllama, nil).BuildRequest(settings, nil, "", "x")
	require.NoError(t, err)
	body = decodeBody(t, req)
	assert.NotContains(t, body, "think")
	assert.Empty(t, req.ReasoningEffort)

	settings = Settings{Kind: KindOllama, Endpoint: "http://h", Model: "llama3", ReasoningEffort: "high"}
	req, err = For(KindOllama, nil).BuildRequest(settings, nil, "", "x")
	require.NoError(t, err)
	assert.NotContains(t, decodeBody(t, req), "think")
}

func TestBuildRequest_OpenAIReasoningEffort(t *testing.T) {
	settings := Settings{Kind: KindOpenAI, Endpoint: "http://h", APIKey: "k", Model: "o1-mini", ReasoningEffort: "medium"}

	req, err := For(KindOpenAI, nil).BuildRequest(settings, nil, "", "x")
	require.NoError(t, err)
	assert.Equal(t, "medium", decodeBody(t, req)["reasoning_effort"])

	settings.Model = "gpt-4o"
	req, err = For(KindOpenAI, nil).BuildRequest(settings, nil, "", "x")
	require.NoError(t, err)
	assert.NotContains(t, decodeBody(t, req), "reasoning_effort")
}

func TestBuildRequest_CapabilityOverride(t *testing.T) {
	always := func(string) bool { return true }
	settings := Settings{Kind: KindOllama, Endpoint: "http://h", Model: "qwq", ReasoningEffort: "low"}

	req, err := For(KindOllama, always).BuildRequest(settings, nil, "", "x")
	require.NoError(t, err)
	assert.Equal(t, "low", decodeBody(t, req)["think"])
}

func TestBuildRequest_GPT4AllNeverReasons(t *testing.T) {
	always := func(string) bool { return true }
	for _, modelID := range []string{"o1", "deepseek-r1", "llama3"} {
		for _, effort := range []string{"", "low", "high"} {
			settings := Settings{Kind: KindGPT4All, Endpoint: "http://h", Model: modelID, ReasoningEffort: effort}
			req, err := For(KindGPT4All, always).BuildRequest(settings, nil, "", "x")
			require.NoError(t, err)

			body := decodeBody(t, req)
			assert.NotContains(t, body, "reasoning_effort")
			assert.NotContains(t, body, "think")
			assert.Empty(t, req.ReasoningEffort)
		}
	}
}

func TestBuildRequest_Authorization(t *testing.T) {
	req, err := For(KindLMStudio, nil).BuildRequest(Settings{Kind: KindLMStudio, Endpoint: "http://h"}, nil, "", "x")
	require.NoError(t, err)
	assert.Empty(t, req.Headers.Get("Authorization"))

	req, err = For(KindOpenAI, nil).BuildRequest(Settings{Kind: KindOpenAI, Endpoint: "http://h", APIKey: "sk-1"}, nil, "", "x")
	require.NoError(t, err)
	assert.Equal(t, "Bearer sk-1", req.Headers.Get("Authorization"))
	assert.Equal(t, "application/json", req.Headers.Get("Content-Type"))
}

// =============================================================================
// RESPONSE ADAPTER TESTS
// =============================================================================

func TestParseResponse_OllamaTokensPerSecond(t *testing.T) {
	req := &Request{Kind: KindOllama, Model: "llama3"}
	body := []byte(`{"message":{"role":"assistant","content":"hi"},"eval_count":20}`)

	msg, err := For(KindOllama, nil).ParseResponse(req, http.StatusOK, body, 2*time.Second)
	require.NoError(t, err)

	assert.Equal(t, model.RoleAssistant, msg.Role)
	assert.Equal(t, "hi", msg.Content)
	require.NotNil(t, msg.TokensPerSecond)
	assert.InDelta(t, 10.0, *msg.TokensPerSecond, 1e-9)
	assert.Equal(t, "llama3", msg.Model)
	assert.Equal(t, "ollama", msg.Provider)
	assert.NotZero(t, msg.Timestamp)
	assert.Empty(t, msg.ReasoningEffort)
}

func TestParseResponse_OpenAI(t *testing.T) {
	req := &Request{Kind: KindOpenAI, Model: "o1", ReasoningEffort: "high"}
	body := []byte(`{"choices":[{"message":{"role":"assistant","content":"answer"}}],"usage":{"total_tokens":50}}`)

	msg, err := For(KindOpenAI, nil).ParseResponse(req, http.StatusOK, body, 500*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, "answer", msg.Content)
	assert.InDelta(t, 100.0, msg.Rate(), 1e-9)
	assert.Equal(t, "high", msg.ReasoningEffort)
}

func TestParseResponse_NoContent(t *testing.T) {
	tests := []struct {
		name string
		kind Kind
		body string
	}{
		{"ollama missing message", KindOllama, `{"done":true}`},
		{"ollama empty content", KindOllama, `{"message":{"content":""}}`},
		{"openai no choices", KindOpenAI, `{"choices":[]}`},
		{"openai null content", KindLMStudio, `{"choices":[{"message":{"content":null}}]}`},
		{"malformed json", KindGPT4All, `<html>oops`},
		{"empty body", KindOllama, ``},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			msg, err := For(tc.kind, nil).ParseResponse(&Request{Kind: tc.kind}, http.StatusOK, []byte(tc.body), time.Second)
			require.NoError(t, err)
			assert.Equal(t, model.NoResponseText, msg.Content)
			assert.Nil(t, msg.TokensPerSecond)
		})
	}
}

func TestParseResponse_TokenRateGuards(t *testing.T) {
	a := For(KindOllama, nil)
	req := &Request{Kind: KindOllama}

	msg, err := a.ParseResponse(req, 200, []byte(`{"message":{"content":"x"},"eval_count":20}`), 0)
	require.NoError(t, err)
	assert.Nil(t, msg.TokensPerSecond, "zero elapsed")

	msg, err = a.ParseResponse(req, 200, []byte(`{"message":{"content":"x"}}`), time.Second)
	require.NoError(t, err)
	assert.Nil(t, msg.TokensPerSecond, "no eval_count")

	msg, err = For(KindOpenAI, nil).ParseResponse(&Request{Kind: KindOpenAI}, 200,
		[]byte(`{"choices":[{"message":{"content":"x"}}],"usage":{}}`), time.Second)
	require.NoError(t, err)
	assert.Nil(t, msg.TokensPerSecond, "no total_tokens")
}

func TestParseResponse_HTTPError(t *testing.T) {
	_, err := For(KindOpenAI, nil).ParseResponse(&Request{}, http.StatusUnauthorized, []byte(`invalid key`), time.Second)

	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusUnauthorized, httpErr.Status)
	assert.Equal(t, "invalid key", httpErr.Body)

	_, err = For(KindOllama, nil).ParseResponse(&Request{}, http.StatusInternalServerError, nil, time.Second)
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, "Internal Server Error", httpErr.Body)
	assert.True(t, IsHTTPError(err))
}

func TestTokensPerSecond(t *testing.T) {
	rate, ok := TokensPerSecond(20, true, 2*time.Second)
	assert.True(t, ok)
	assert.Equal(t, 10.0, rate)

	_, ok = TokensPerSecond(20, false, time.Second)
	assert.False(t, ok)
	_, ok = TokensPerSecond(0, true, time.Second)
	assert.False(t, ok)
	_, ok = TokensPerSecond(5, true, -time.Second)
	assert.False(t, ok)
}
