// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jeranaias/rigrun-chat/internal/openai"
)

// =============================================================================
// PROXY RESOLUTION
// =============================================================================

// ResolveURL turns a request endpoint into an absolute URL. Absolute
// endpoints are returned unchanged. Same-origin proxy paths are resolved
// against settings.ProxyOrigin when set; otherwise the proxy prefix is
// stripped and the rest is appended to settings.Endpoint, which is what the
// reverse proxy itself would do.
func ResolveURL(settings Settings, endpoint string) (string, error) {
	if !strings.HasPrefix(endpoint, "/") {
		return endpoint, nil
	}
	if origin := strings.TrimRight(settings.ProxyOrigin, "/"); origin != "" {
		return origin + endpoint, nil
	}

	base := settings.BaseURL()
	if base == "" {
		return "", fmt.Errorf("cannot resolve %s: endpoint not configured", endpoint)
	}
	for _, prefix := range []string{GPT4AllProxyPrefix, OllamaProxyPrefix} {
		if rest, ok := strings.CutPrefix(endpoint, prefix); ok {
			return base + rest, nil
		}
	}
	return base + endpoint, nil
}

// =============================================================================
// CLIENT
// =============================================================================

// Response is a raw provider response with the measured exchange time.
type Response struct {
	Status  int
	Body    []byte
	Elapsed time.Duration
}

// ClientConfig holds configuration options for the transport.
type ClientConfig struct {
	// Timeout bounds one exchange. Zero means no client-side timeout.
	Timeout time.Duration

	// HTTPClient overrides the default http.Client.
	HTTPClient *http.Client

	Logger *zap.Logger
}

// DefaultConfig returns a transport with no client-side timeout.
func DefaultConfig() *ClientConfig {
	return &ClientConfig{}
}

// Client executes adapter requests. It is safe for concurrent use.
type Client struct {
	httpClient *http.Client
	timeout    time.Duration
	logger     *zap.Logger
}

// NewClient creates a transport with default configuration.
func NewClient() *Client {
	return NewClientWithConfig(DefaultConfig())
}

// NewClientWithConfig creates a transport with custom configuration.
func NewClientWithConfig(config *ClientConfig) *Client {
	if config == nil {
		config = DefaultConfig()
	}
	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{httpClient: httpClient, timeout: config.Timeout, logger: logger}
}

// Do sends req and returns the raw response. Elapsed covers the interval
// from just before the call to just after the body is read. Transport
// failures are returned as errors; HTTP statuses are left to the adapter.
func (c *Client) Do(ctx context.Context, settings Settings, req *Request) (*Response, error) {
	url, err := ResolveURL(settings, req.Endpoint)
	if err != nil {
		return nil, err
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(req.Body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for k, vs := range req.Headers {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}

	// Never log headers; they may carry the API key.
	c.logger.Debug("provider request",
		zap.String("provider", string(req.Kind)),
		zap.String("model", req.Model),
		zap.String("url", url),
		zap.String("key_fingerprint", openai.KeyFingerprint(settings.APIKey)))

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", req.Kind, err)
	}
	defer resp.Body.Close()

	body, err := openai.ReadResponse(resp.Body)
	elapsed := time.Since(start)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("provider response",
		zap.String("provider", string(req.Kind)),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", elapsed))

	return &Response{Status: resp.StatusCode, Body: body, Elapsed: elapsed}, nil
}
