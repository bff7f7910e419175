// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ollama

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

// =============================================================================
// CLIENT TESTS
// =============================================================================

func TestListModels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			t.Errorf("path = %q, want /api/tags", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "" {
			t.Errorf("Authorization = %q, want empty", got)
		}
		w.Write([]byte(`{"models":[{"name":"llama2:latest"},{"name":"deepseek-r1:7b"}]}`))
	}))
	defer srv.Close()

	client := NewClientWithConfig(&ClientConfig{BaseURL: srv.URL + "/"})
	names, err := client.ListModels(t.Context())
	if err != nil {
		t.Fatalf("ListModels() error = %v", err)
	}
	if len(names) != 2 || names[0] != "llama2:latest" || names[1] != "deepseek-r1:7b" {
		t.Errorf("names = %v", names)
	}
}

func TestListModels_HTTPStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewClientWithConfig(&ClientConfig{BaseURL: srv.URL})
	_, err := client.ListModels(t.Context())

	var clientErr *ClientError
	if !errors.As(err, &clientErr) {
		t.Fatalf("error = %v, want *ClientError", err)
	}
	if clientErr.Status != http.StatusBadGateway {
		t.Errorf("Status = %d", clientErr.Status)
	}
	if clientErr.Body != "Bad Gateway" {
		t.Errorf("Body = %q, want status text", clientErr.Body)
	}
}

func TestShow_PostsNameToShowURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/ollama/api/show" {
			t.Errorf("got %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer k" {
			t.Errorf("Authorization = %q", got)
		}
		var req ShowRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name != "qwq" {
			t.Errorf("request = %+v, err = %v", req, err)
		}
		w.Write([]byte(`{"license":"MIT","capabilities":["completion","thinking"],"details":{"family":"qwen2"}}`))
	}))
	defer srv.Close()

	client := NewClientWithConfig(&ClientConfig{
		BaseURL: "http://unused.invalid",
		ShowURL: srv.URL + "/api/ollama/api/show",
		APIKey:  "k",
	})
	resp, err := client.Show(t.Context(), "qwq")
	if err != nil {
		t.Fatalf("Show() error = %v", err)
	}
	if resp.Details.Family != "qwen2" || len(resp.Capabilities) != 2 {
		t.Errorf("resp = %+v", resp)
	}
}

func TestShow_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{not json`))
	}))
	defer srv.Close()

	client := NewClientWithConfig(&ClientConfig{BaseURL: srv.URL})
	_, err := client.Show(t.Context(), "x")

	var clientErr *ClientError
	if !errors.As(err, &clientErr) || clientErr.Type != ErrTypeInvalidResponse {
		t.Errorf("error = %v, want invalid response", err)
	}
}

func TestListModels_NotRunning(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client := NewClientWithConfig(&ClientConfig{BaseURL: url})
	_, err := client.ListModels(t.Context())
	if !IsNotRunning(err) {
		t.Errorf("IsNotRunning(%v) = false", err)
	}
}

// =============================================================================
// TYPE TESTS
// =============================================================================

func TestChatRequest_ThinkOmittedWhenEmpty(t *testing.T) {
	data, err := json.Marshal(ChatRequest{Model: "m", Messages: []Message{{Role: "user", Content: "hi"}}})
	if err != nil {
		t.Fatal(err)
	}
	var raw map[string]any
	json.Unmarshal(data, &raw)
	if _, ok := raw["think"]; ok {
		t.Errorf("think present in %s", data)
	}
	if raw["stream"] != false {
		t.Errorf("stream = %v, want false", raw["stream"])
	}
}

func TestShowResponse_MetadataText(t *testing.T) {
	var nilResp *ShowResponse
	if got := nilResp.MetadataText(); got != nil {
		t.Errorf("nil MetadataText() = %v", got)
	}

	resp := &ShowResponse{
		Template:     "{{ .Prompt }}",
		Details:      ModelDetails{Family: "llama", Families: []string{"llama", "clip"}},
		Capabilities: []string{"completion"},
	}
	got := resp.MetadataText()
	want := []string{"{{ .Prompt }}", "llama", "llama", "clip", "completion"}
	if len(got) != len(want) {
		t.Fatalf("MetadataText() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("MetadataText()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
