// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package catalog

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jeranaias/rigrun-chat/internal/logging"
	"github.com/jeranaias/rigrun-chat/internal/model"
	"github.com/jeranaias/rigrun-chat/internal/ollama"
	"github.com/jeranaias/rigrun-chat/internal/openai"
	"github.com/jeranaias/rigrun-chat/internal/provider"
)

// maxDetailLookups bounds concurrent /api/show requests.
const maxDetailLookups = 8

// Fetcher retrieves model catalogs. It is safe for concurrent use.
type Fetcher struct {
	httpClient *http.Client
	logger     *zap.Logger
}

// NewFetcher creates a fetcher. A nil client uses a 30 second timeout.
func NewFetcher(httpClient *http.Client, logger *zap.Logger) *Fetcher {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Fetcher{httpClient: httpClient, logger: logging.OrNop(logger)}
}

// Fetch returns the catalog in server order. Unconfigured settings (no
// endpoint, or openai without a key) yield an empty catalog and no error.
// Non-2xx listing responses return *provider.HTTPError.
func (f *Fetcher) Fetch(ctx context.Context, settings provider.Settings) ([]model.ModelInfo, error) {
	if !settings.Configured() || settings.NeedsAPIKey() {
		return []model.ModelInfo{}, nil
	}

	switch settings.Kind {
	case provider.KindOllama:
		return f.fetchOllama(ctx, settings)
	case provider.KindGPT4All:
		url, err := provider.ResolveURL(settings, provider.GPT4AllModelsPath)
		if err != nil {
			return nil, err
		}
		return f.fetchOpenAI(ctx, url, settings.APIKey)
	default:
		return f.fetchOpenAI(ctx, settings.BaseURL()+"/v1/models", settings.APIKey)
	}
}

func (f *Fetcher) fetchOpenAI(ctx context.Context, modelsURL, apiKey string) ([]model.ModelInfo, error) {
	client := openai.NewClient(openai.ClientConfig{
		ModelsURL:  modelsURL,
		APIKey:     apiKey,
		HTTPClient: f.httpClient,
	})
	ids, err := client.ListModels(ctx)
	if err != nil {
		return nil, provider.NormalizeError(err)
	}

	models := make([]model.ModelInfo, len(ids))
	for i, id := range ids {
		models[i] = model.ModelInfo{ID: id, SupportsReasoning: provider.IsReasoningModel(id)}
	}
	return models, nil
}

func (f *Fetcher) fetchOllama(ctx context.Context, settings provider.Settings) ([]model.ModelInfo, error) {
	showURL, err := provider.ResolveURL(settings, provider.OllamaShowPath)
	if err != nil {
		return nil, err
	}
	client := ollama.NewClientWithConfig(&ollama.ClientConfig{
		BaseURL:    settings.BaseURL(),
		ShowURL:    showURL,
		APIKey:     settings.APIKey,
		HTTPClient: f.httpClient,
	})

	names, err := client.ListModels(ctx)
	if err != nil {
		return nil, provider.NormalizeError(err)
	}

	models := make([]model.ModelInfo, len(names))

	// Lookups never return an error, so one failure cannot cancel siblings.
	var g errgroup.Group
	g.SetLimit(maxDetailLookups)
	for i, name := range names {
		g.Go(func() error {
			details, err := client.Show(ctx, name)
			if err != nil {
				f.logger.Debug("model details unavailable, classifying by name",
					zap.String("model", name), zap.Error(err))
				details = nil
			}
			models[i] = model.ModelInfo{
				ID:                name,
				SupportsReasoning: provider.IsReasoningWithDetails(name, details),
			}
			return nil
		})
	}
	_ = g.Wait()

	return models, nil
}

// Reconcile picks the model to select after a fetch. An unset or absent
// current model becomes the first catalog entry; a present one is kept.
// An empty catalog changes nothing.
func Reconcile(models []model.ModelInfo, current string) (next string, changed bool) {
	if len(models) == 0 {
		return current, false
	}
	if current != "" && model.ContainsModel(models, current) {
		return current, false
	}
	return models[0].ID, models[0].ID != current
}
