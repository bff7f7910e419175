// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/jeranaias/rigrun-chat/internal/ollama"
	"github.com/jeranaias/rigrun-chat/internal/openai"
)

func TestResolveURL(t *testing.T) {
	tests := []struct {
		name     string
		settings Settings
		endpoint string
		want     string
	}{
		{"absolute unchanged", Settings{Endpoint: "http://x"}, "http://y/v1/models", "http://y/v1/models"},
		{"proxy origin", Settings{Endpoint: "http://x", ProxyOrigin: "http://app:8080/"}, GPT4AllChatPath, "http://app:8080/api/gpt4all/v1/chat/completions"},
		{"gpt4all direct", Settings{Endpoint: "http://localhost:4891/"}, GPT4AllChatPath, "http://localhost:4891/v1/chat/completions"},
		{"ollama show direct", Settings{Endpoint: "http://localhost:11434"}, OllamaShowPath, "http://localhost:11434/api/show"},
		{"other path", Settings{Endpoint: "http://h"}, "/v1/x", "http://h/v1/x"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ResolveURL(tc.settings, tc.endpoint)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	_, err := ResolveURL(Settings{}, GPT4AllChatPath)
	assert.Error(t, err)
}

func TestClientDo(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer k", r.Header.Get("Authorization"))
		data, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"model":"m","messages":[]}`, string(data))
		time.Sleep(10 * time.Millisecond)
		w.WriteHeader(http.StatusTeapot)
		w.Write([]byte(`short and stout`))
	}))
	defer srv.Close()

	client := NewClientWithConfig(&ClientConfig{Logger: zaptest.NewLogger(t)})
	settings := Settings{Kind: KindGPT4All, Endpoint: srv.URL, APIKey: "k"}
	req := &Request{
		Endpoint: GPT4AllChatPath,
		Body:     []byte(`{"model":"m","messages":[]}`),
		Headers:  requestHeaders("k"),
		Kind:     KindGPT4All,
	}

	resp, err := client.Do(t.Context(), settings, req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusTeapot, resp.Status)
	assert.Equal(t, "short and stout", string(resp.Body))
	assert.GreaterOrEqual(t, resp.Elapsed, 10*time.Millisecond)
}

func TestClientDo_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	client := NewClientWithConfig(&ClientConfig{Timeout: 20 * time.Millisecond})
	_, err := client.Do(t.Context(), Settings{Endpoint: srv.URL}, &Request{Endpoint: srv.URL, Kind: KindOllama})
	assert.Error(t, err)
}

func TestNormalizeError(t *testing.T) {
	var httpErr *HTTPError

	err := NormalizeError(&openai.APIError{Status: 401, Body: "nope"})
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, 401, httpErr.Status)

	err = NormalizeError(&ollama.ClientError{Type: ollama.ErrTypeHTTPStatus, Status: 500, Body: "boom"})
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, "boom", httpErr.Body)

	plain := errors.New("dial tcp: refused")
	assert.Equal(t, plain, NormalizeError(plain))
	assert.NoError(t, NormalizeError(nil))
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind(" Ollama ")
	require.NoError(t, err)
	assert.Equal(t, KindOllama, k)

	_, err = ParseKind("anthropic")
	assert.Error(t, err)
}

func TestSettings(t *testing.T) {
	assert.False(t, Settings{}.Configured())
	assert.True(t, Settings{Endpoint: "http://x"}.Configured())
	assert.True(t, Settings{Kind: KindOpenAI}.NeedsAPIKey())
	assert.False(t, Settings{Kind: KindOllama}.NeedsAPIKey())
	assert.True(t, ValidEffort(""))
	assert.True(t, ValidEffort("high"))
	assert.False(t, ValidEffort("max"))
}
