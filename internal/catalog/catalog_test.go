// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package catalog

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/jeranaias/rigrun-chat/internal/config"
	"github.com/jeranaias/rigrun-chat/internal/model"
	"github.com/jeranaias/rigrun-chat/internal/ollama"
	"github.com/jeranaias/rigrun-chat/internal/provider"
)

// =============================================================================
// FETCHER TESTS
// =============================================================================

func TestFetch_NotConfigured(t *testing.T) {
	f := NewFetcher(nil, zaptest.NewLogger(t))

	models, err := f.Fetch(t.Context(), provider.Settings{Kind: provider.KindOllama})
	require.NoError(t, err)
	assert.Empty(t, models)

	models, err = f.Fetch(t.Context(), provider.Settings{Kind: provider.KindOpenAI, Endpoint: "http://unreachable.invalid"})
	require.NoError(t, err, "openai without a key is not configured, not an error")
	assert.Empty(t, models)
}

func TestFetch_OpenAICompatible(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/models", r.URL.Path)
		w.Write([]byte(`{"data":[{"id":"gpt-4o"},{"id":"o1-preview"},{"id":"gpt-oss-20b"}]}`))
	}))
	defer srv.Close()

	f := NewFetcher(nil, zaptest.NewLogger(t))
	for _, kind := range []provider.Kind{provider.KindOpenAI, provider.KindLMStudio} {
		models, err := f.Fetch(t.Context(), provider.Settings{Kind: kind, Endpoint: srv.URL + "/", APIKey: "k"})
		require.NoError(t, err)
		assert.Equal(t, []model.ModelInfo{
			{ID: "gpt-4o"},
			{ID: "o1-preview", SupportsReasoning: true},
			{ID: "gpt-oss-20b", SupportsReasoning: true},
		}, models)
	}
}

func TestFetch_GPT4AllThroughProxyPath(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(`{"data":[{"id":"Llama 3 8B Instruct"}]}`))
	}))
	defer srv.Close()

	f := NewFetcher(nil, zaptest.NewLogger(t))

	models, err := f.Fetch(t.Context(), provider.Settings{Kind: provider.KindGPT4All, Endpoint: "http://ignored", ProxyOrigin: srv.URL})
	require.NoError(t, err)
	assert.Equal(t, "/api/gpt4all/v1/models", gotPath)
	require.Len(t, models, 1)

	_, err = f.Fetch(t.Context(), provider.Settings{Kind: provider.KindGPT4All, Endpoint: srv.URL})
	require.NoError(t, err)
	assert.Equal(t, "/v1/models", gotPath, "without a proxy origin the prefix is stripped")
}

func TestFetch_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid api key", http.StatusUnauthorized)
	}))
	defer srv.Close()

	f := NewFetcher(nil, zaptest.NewLogger(t))
	for _, kind := range []provider.Kind{provider.KindOpenAI, provider.KindOllama} {
		_, err := f.Fetch(t.Context(), provider.Settings{Kind: kind, Endpoint: srv.URL, APIKey: "bad"})

		var httpErr *provider.HTTPError
		require.ErrorAs(t, err, &httpErr, string(kind))
		assert.Equal(t, http.StatusUnauthorized, httpErr.Status)
		assert.Equal(t, "invalid api key", httpErr.Body)
	}
}

// ollamaServer serves /api/tags and /api/show. Show requests for names in
// failing return 500; names in malformed return invalid JSON.
func ollamaServer(t *testing.T, names []string, details map[string]string, failing, malformed map[string]bool) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/tags":
			var resp ollama.TagsResponse
			for _, n := range names {
				resp.Models = append(resp.Models, ollama.TagModel{Name: n})
			}
			json.NewEncoder(w).Encode(resp)
		case "/api/show":
			var req ollama.ShowRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			switch {
			case failing[req.Name]:
				w.WriteHeader(http.StatusInternalServerError)
			case malformed[req.Name]:
				w.Write([]byte(`{"license": `))
			default:
				json.NewEncoder(w).Encode(ollama.ShowResponse{License: details[req.Name]})
			}
		default:
			http.NotFound(w, r)
		}
	}))
}

func TestFetch_OllamaEnrichment(t *testing.T) {
	srv := ollamaServer(t,
		[]string{"llama3", "qwq", "deepseek-r1:8b", "broken-reasoner", "garbled"},
		map[string]string{"qwq": "Qwen reasoning model license"},
		map[string]bool{"deepseek-r1:8b": true, "broken-reasoner": true},
		map[string]bool{"garbled": true},
	)
	defer srv.Close()

	f := NewFetcher(nil, zaptest.NewLogger(t))
	models, err := f.Fetch(t.Context(), provider.Settings{Kind: provider.KindOllama, Endpoint: srv.URL})
	require.NoError(t, err)

	// Order follows /api/tags; failed lookups fall back to the name check.
	assert.Equal(t, []model.ModelInfo{
		{ID: "llama3"},
		{ID: "qwq", SupportsReasoning: true},
		{ID: "deepseek-r1:8b", SupportsReasoning: true},
		{ID: "broken-reasoner", SupportsReasoning: false},
		{ID: "garbled"},
	}, models)
}

func TestFetch_OllamaShowUsesProxyOrigin(t *testing.T) {
	var showPaths atomic.Int32
	proxy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/ollama/api/show" {
			showPaths.Add(1)
			w.Write([]byte(`{"template":"<reasoning>"}`))
			return
		}
		http.NotFound(w, r)
	}))
	defer proxy.Close()
	direct := ollamaServer(t, []string{"a", "b"}, nil, nil, nil)
	defer direct.Close()

	f := NewFetcher(nil, zaptest.NewLogger(t))
	models, err := f.Fetch(t.Context(), provider.Settings{Kind: provider.KindOllama, Endpoint: direct.URL, ProxyOrigin: proxy.URL})
	require.NoError(t, err)
	assert.Equal(t, int32(2), showPaths.Load())
	assert.True(t, models[0].SupportsReasoning)
	assert.True(t, models[1].SupportsReasoning)
}

// =============================================================================
// RECONCILE TESTS
// =============================================================================

func TestReconcile(t *testing.T) {
	models := []model.ModelInfo{{ID: "b"}, {ID: "a"}, {ID: "c"}}

	tests := []struct {
		name        string
		models      []model.ModelInfo
		current     string
		want        string
		wantChanged bool
	}{
		{"unset picks first in catalog order", models, "", "b", true},
		{"absent picks first", models, "gone", "b", true},
		{"present is untouched", models, "c", "c", false},
		{"current is first", models, "b", "b", false},
		{"empty catalog untouched", nil, "x", "x", false},
		{"empty catalog unset", nil, "", "", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, changed := Reconcile(tc.models, tc.current)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, tc.wantChanged, changed)
		})
	}
}

// =============================================================================
// SERVICE TESTS
// =============================================================================

func newHolder(settings provider.Settings) *config.Holder {
	cfg := config.Default()
	cfg.Provider = settings
	return config.NewHolder(cfg, "")
}

func TestService_ReassignsAbsentModel(t *testing.T) {
	srv := ollamaServer(t, []string{"llama3", "phi3"}, nil, nil, nil)
	defer srv.Close()

	holder := newHolder(provider.Settings{Kind: provider.KindOllama, Endpoint: srv.URL, Model: "removed-model"})
	svc := NewService(NewFetcher(nil, nil), holder, zaptest.NewLogger(t))

	state := svc.RefreshAndWait(t.Context())
	require.Empty(t, state.Error)
	assert.False(t, state.Loading)
	assert.Equal(t, "llama3", holder.Settings().Model)
}

func TestService_KeepsPresentModel(t *testing.T) {
	srv := ollamaServer(t, []string{"llama3", "phi3"}, nil, nil, nil)
	defer srv.Close()

	holder := newHolder(provider.Settings{Kind: provider.KindOllama, Endpoint: srv.URL, Model: "phi3"})
	svc := NewService(NewFetcher(nil, nil), holder, zaptest.NewLogger(t))

	svc.RefreshAndWait(t.Context())
	assert.Equal(t, "phi3", holder.Settings().Model)
}

func TestService_FailureClearsModels(t *testing.T) {
	var unhealthy atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if unhealthy.Load() {
			http.Error(w, "", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"data":[{"id":"m1"}]}`))
	}))
	defer srv.Close()

	holder := newHolder(provider.Settings{Kind: provider.KindLMStudio, Endpoint: srv.URL})
	svc := NewService(NewFetcher(nil, nil), holder, zaptest.NewLogger(t))

	state := svc.RefreshAndWait(t.Context())
	require.Len(t, state.Models, 1)

	unhealthy.Store(true)
	state = svc.RefreshAndWait(t.Context())
	assert.Empty(t, state.Models)
	assert.Equal(t, "HTTP 503: Service Unavailable", state.Error)
}

func TestService_SupersededFetchIsDiscarded(t *testing.T) {
	release := make(chan struct{})
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
			return
		}
		w.Write([]byte(`{"data":[{"id":"stale"}]}`))
	}))
	defer slow.Close()
	defer close(release)

	fast := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[{"id":"fresh"}]}`))
	}))
	defer fast.Close()

	holder := newHolder(provider.Settings{Kind: provider.KindLMStudio, Endpoint: slow.URL})
	svc := NewService(NewFetcher(nil, nil), holder, zaptest.NewLogger(t))

	first := svc.Refresh()

	require.NoError(t, holder.Update(func(c *config.Config) error {
		c.Provider.Endpoint = fast.URL
		return nil
	}))
	second := svc.Refresh()

	<-second
	<-first

	state := svc.State()
	require.Len(t, state.Models, 1)
	assert.Equal(t, "fresh", state.Models[0].ID)
	assert.Empty(t, state.Error, "cancellation of the superseded fetch must not surface")
	assert.Equal(t, "fresh", holder.Settings().Model)
}

func TestService_StaleGenerationKeepsNewerSelection(t *testing.T) {
	holder := newHolder(provider.Settings{Kind: provider.KindLMStudio, Endpoint: "http://127.0.0.1:1", Model: "fresh"})
	svc := NewService(NewFetcher(nil, nil), holder, zaptest.NewLogger(t))

	// Generation 2 has been applied with "fresh"; generation 1 arrives late.
	svc.mu.Lock()
	svc.gen = 2
	svc.mu.Unlock()

	svc.selectModel(1, []model.ModelInfo{{ID: "stale"}})
	assert.Equal(t, "fresh", holder.Settings().Model)

	svc.selectModel(2, []model.ModelInfo{{ID: "other"}})
	assert.Equal(t, "other", holder.Settings().Model)
}

func TestService_RefreshesOnConnectionChange(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte(`{"data":[{"id":"m1"}]}`))
	}))
	defer srv.Close()

	holder := newHolder(provider.Settings{Kind: provider.KindLMStudio})
	svc := NewService(NewFetcher(nil, nil), holder, zaptest.NewLogger(t))

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()
	stop := svc.Start(ctx)
	defer stop()
	svc.Wait(ctx)
	assert.Equal(t, int32(0), hits.Load(), "no endpoint, no request")

	require.NoError(t, holder.Update(func(c *config.Config) error {
		c.Provider.Endpoint = srv.URL
		return nil
	}))

	require.Eventually(t, func() bool {
		return holder.Settings().Model == "m1"
	}, 5*time.Second, 10*time.Millisecond)

	// Selecting a model is not a connection change.
	before := hits.Load()
	require.NoError(t, holder.SetModel("other"))
	svc.Wait(ctx)
	assert.Equal(t, before, hits.Load())
}

func TestService_SupportsReasoning(t *testing.T) {
	srv := ollamaServer(t, []string{"qwq"}, map[string]string{"qwq": "reasoning"}, nil, nil)
	defer srv.Close()

	holder := newHolder(provider.Settings{Kind: provider.KindOllama, Endpoint: srv.URL})
	svc := NewService(NewFetcher(nil, nil), holder, zaptest.NewLogger(t))
	svc.RefreshAndWait(t.Context())

	assert.True(t, svc.SupportsReasoning("qwq"), "from catalog metadata")
	assert.True(t, svc.SupportsReasoning("o1-mini"), "identifier fallback")
	assert.False(t, svc.SupportsReasoning("llama3"))
	assert.Empty(t, svc.State().Error)
}
