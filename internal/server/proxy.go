// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"

	"go.uber.org/zap"
)

// newProxy forwards requests to target with prefix removed from the path.
// The Origin header is dropped so upstreams that reject cross-origin
// requests see a plain same-host call.
func newProxy(rawTarget, prefix string, logger *zap.Logger) (*httputil.ReverseProxy, error) {
	target, err := url.Parse(rawTarget)
	if err != nil {
		return nil, fmt.Errorf("invalid proxy target %q: %w", rawTarget, err)
	}
	if target.Scheme != "http" && target.Scheme != "https" || target.Host == "" {
		return nil, fmt.Errorf("invalid proxy target %q: must be an http(s) URL", rawTarget)
	}

	return &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.Out.URL.Path = strings.TrimPrefix(pr.In.URL.Path, prefix)
			pr.Out.URL.RawPath = ""
			pr.SetURL(target)
			pr.SetXForwarded()
			pr.Out.Header.Del("Origin")
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			logger.Warn("proxy upstream failed",
				zap.String("path", r.URL.Path),
				zap.String("upstream", target.Host),
				zap.Error(err))
			writeError(w, http.StatusBadGateway, "upstream unavailable: "+target.Host)
		},
	}, nil
}
