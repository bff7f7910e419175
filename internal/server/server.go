// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/jeranaias/rigrun-chat/internal/catalog"
	"github.com/jeranaias/rigrun-chat/internal/config"
	"github.com/jeranaias/rigrun-chat/internal/logging"
	"github.com/jeranaias/rigrun-chat/internal/provider"
	"github.com/jeranaias/rigrun-chat/internal/session"
	"github.com/jeranaias/rigrun-chat/internal/storage"
)

// ============================================================================
// CONSTANTS
// ============================================================================

const (
	// MaxRequestBodySize bounds JSON request bodies (1MB).
	MaxRequestBodySize = 1 * 1024 * 1024

	// shutdownTimeout bounds graceful shutdown in Run.
	shutdownTimeout = 10 * time.Second
)

// ============================================================================
// SERVER
// ============================================================================

// Deps are the core services behind the API.
type Deps struct {
	Manager *session.Manager
	Catalog *catalog.Service
	Holder  *config.Holder
	Store   storage.Store
	Logger  *zap.Logger

	// Version is reported by /health.
	Version string
}

// Server is the HTTP API and proxy server.
type Server struct {
	cfg    config.ServerConfig
	deps   Deps
	logger *zap.Logger
	router chi.Router
	server *http.Server
}

// New builds the router. Proxy routes are mounted only for configured
// upstreams.
func New(cfg config.ServerConfig, deps Deps) (*Server, error) {
	if deps.Manager == nil || deps.Catalog == nil || deps.Holder == nil || deps.Store == nil {
		return nil, errors.New("server: manager, catalog, holder and store are required")
	}
	s := &Server{
		cfg:    cfg,
		deps:   deps,
		logger: logging.OrNop(deps.Logger).Named("server"),
	}
	if err := s.setupRoutes(); err != nil {
		return nil, err
	}
	s.server = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s, nil
}

// Handler returns the root handler with all middleware applied.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ============================================================================
// ROUTES
// ============================================================================

func (s *Server) setupRoutes() error {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(RecoveryMiddleware(s.logger))
	r.Use(LoggingMiddleware(s.logger))
	if len(s.cfg.CORSOrigins) > 0 {
		r.Use(CORSMiddleware(DefaultCORSConfig(s.cfg.CORSOrigins)))
	}
	if s.cfg.RateLimitRPS > 0 {
		r.Use(RateLimitMiddleware(NewRateLimiter(s.cfg.RateLimitRPS, s.cfg.RateLimitBurst), s.logger))
	}

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/config", s.handleGetConfig)
		r.Put("/config", s.handlePutConfig)
		r.Put("/system-prompt", s.handlePutSystemPrompt)

		r.Get("/models", s.handleModels)
		r.Post("/models/refresh", s.handleRefreshModels)

		r.Route("/sessions", func(r chi.Router) {
			r.Get("/", s.handleListSessions)
			r.Post("/", s.handleNewSession)
			r.Get("/{id}", s.handleOpenSession)
			r.Delete("/{id}", s.handleDeleteSession)
			r.Get("/{id}/export", s.handleExportSession)
		})

		r.Get("/chat", s.handleGetChat)
		r.Post("/chat", s.handleSend)
	})

	if s.cfg.GPT4AllURL != "" {
		proxy, err := newProxy(s.cfg.GPT4AllURL, provider.GPT4AllProxyPrefix, s.logger)
		if err != nil {
			return err
		}
		r.Handle(provider.GPT4AllProxyPrefix+"/*", proxy)
	}
	if s.cfg.OllamaURL != "" {
		proxy, err := newProxy(s.cfg.OllamaURL, provider.OllamaProxyPrefix, s.logger)
		if err != nil {
			return err
		}
		r.Post(provider.OllamaShowPath, proxy.ServeHTTP)
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	s.router = r
	return nil
}

// ============================================================================
// SERVER LIFECYCLE
// ============================================================================

// Start listens on the configured address and serves until Shutdown.
// It returns http.ErrServerClosed after a clean shutdown.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ln)
}

// Serve serves on ln until Shutdown.
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info("server started",
		zap.String("addr", ln.Addr().String()),
		zap.String("version", s.deps.Version),
		zap.Bool("gpt4all_proxy", s.cfg.GPT4AllURL != ""),
		zap.Bool("ollama_proxy", s.cfg.OllamaURL != ""))
	return s.server.Serve(ln)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server shutting down")
	return s.server.Shutdown(ctx)
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() { errCh <- s.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := s.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// ============================================================================
// HELPERS
// ============================================================================

// errorResponse is the body of every non-2xx API response.
type errorResponse struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Message string `json:"message"`
	Code    int    `json:"code"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: errorBody{Message: message, Code: status}})
}

// decodeJSON reads a size-limited JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodySize)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}
