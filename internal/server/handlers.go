// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/jeranaias/rigrun-chat/internal/catalog"
	"github.com/jeranaias/rigrun-chat/internal/config"
	"github.com/jeranaias/rigrun-chat/internal/export"
	"github.com/jeranaias/rigrun-chat/internal/model"
	"github.com/jeranaias/rigrun-chat/internal/provider"
	"github.com/jeranaias/rigrun-chat/internal/session"
	"github.com/jeranaias/rigrun-chat/internal/storage"
)

// ============================================================================
// HEALTH
// ============================================================================

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status     string `json:"status"`
	Version    string `json:"version,omitempty"`
	Provider   string `json:"provider"`
	Configured bool   `json:"configured"`
	Models     int    `json:"models"`
	CatalogErr string `json:"catalogError,omitempty"`
}

// handleHealth handles GET /health. A failing catalog reports "degraded".
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	settings := s.deps.Holder.Settings()
	state := s.deps.Catalog.State()

	health := HealthResponse{
		Status:     "ok",
		Version:    s.deps.Version,
		Provider:   string(settings.Kind),
		Configured: settings.Configured() && !settings.NeedsAPIKey(),
		Models:     len(state.Models),
		CatalogErr: state.Error,
	}
	if state.Error != "" {
		health.Status = "degraded"
	}
	writeJSON(w, http.StatusOK, health)
}

// ============================================================================
// CONFIGURATION
// ============================================================================

// handleGetConfig handles GET /api/config. The API key is redacted.
func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Holder.Get().Redacted())
}

// handlePutConfig handles PUT /api/config with a provider settings body.
// Sending the redacted placeholder back keeps the stored key.
func (s *Server) handlePutConfig(w http.ResponseWriter, r *http.Request) {
	var settings provider.Settings
	if err := decodeJSON(w, r, &settings); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if settings.APIKey == config.RedactedValue {
		settings.APIKey = s.deps.Holder.Settings().APIKey
	}

	if err := s.deps.Manager.SetSettings(settings); err != nil {
		s.writeUpdateError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.deps.Holder.Get().Redacted())
}

// SystemPromptRequest is the body of PUT /api/system-prompt.
type SystemPromptRequest struct {
	Prompt string `json:"prompt"`
}

// handlePutSystemPrompt handles PUT /api/system-prompt.
func (s *Server) handlePutSystemPrompt(w http.ResponseWriter, r *http.Request) {
	var req SystemPromptRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.deps.Manager.SetSystemPrompt(req.Prompt); err != nil {
		s.writeUpdateError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

func (s *Server) writeUpdateError(w http.ResponseWriter, err error) {
	var verrs config.ValidateErrors
	if errors.As(err, &verrs) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.logger.Error("failed to update configuration", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "failed to save configuration")
}

// ============================================================================
// MODELS
// ============================================================================

// ModelsResponse lists the catalog and the selected model.
type ModelsResponse struct {
	catalog.State
	Selected string `json:"selected"`
}

// handleModels handles GET /api/models.
func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, ModelsResponse{
		State:    s.deps.Catalog.State(),
		Selected: s.deps.Holder.Settings().Model,
	})
}

// handleRefreshModels handles POST /api/models/refresh. It waits for the
// fetch so the response carries the new catalog.
func (s *Server) handleRefreshModels(w http.ResponseWriter, r *http.Request) {
	state := s.deps.Catalog.RefreshAndWait(r.Context())
	writeJSON(w, http.StatusOK, ModelsResponse{
		State:    state,
		Selected: s.deps.Holder.Settings().Model,
	})
}

// ============================================================================
// SESSIONS
// ============================================================================

// SessionSummary is one row of the session listing.
type SessionSummary struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Preview   string `json:"preview"`
	Messages  int    `json:"messages"`
	CreatedAt int64  `json:"createdAt"`
	UpdatedAt int64  `json:"updatedAt"`
}

func summarize(sessions []model.ChatSession) []SessionSummary {
	out := make([]SessionSummary, len(sessions))
	for i, sess := range sessions {
		out[i] = SessionSummary{
			ID:        sess.ID,
			Title:     sess.Title,
			Preview:   sess.Preview(80),
			Messages:  len(sess.Messages),
			CreatedAt: sess.CreatedAt,
			UpdatedAt: sess.UpdatedAt,
		}
	}
	return out
}

// handleListSessions handles GET /api/sessions. It reloads the listing so
// sessions written by another process show up.
func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Manager.Refresh(r.Context()); err != nil {
		s.writeStorageError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summarize(s.deps.Manager.Sessions()))
}

// handleNewSession handles POST /api/sessions.
func (s *Server) handleNewSession(w http.ResponseWriter, r *http.Request) {
	id, err := s.deps.Manager.NewChat()
	if err != nil {
		s.writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

// handleOpenSession handles GET /api/sessions/{id} and makes it active.
func (s *Server) handleOpenSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.deps.Manager.Open(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// handleDeleteSession handles DELETE /api/sessions/{id}.
func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Manager.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeSessionError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleExportSession handles GET /api/sessions/{id}/export?format=md|json.
func (s *Server) handleExportSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	exporter, err := export.ForFormat(r.URL.Query().Get("format"), nil)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	sess, err := s.deps.Store.Get(r.Context(), id)
	if err != nil {
		s.writeStorageError(w, err)
		return
	}
	if sess == nil {
		writeError(w, http.StatusNotFound, "session not found: "+id)
		return
	}

	body, err := exporter.Export(sess)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", exporter.MimeType())
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="chat_%s%s"`, sess.ID, exporter.FileExtension()))
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

func (s *Server) writeSessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrBusy):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, session.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		s.writeStorageError(w, err)
	}
}

func (s *Server) writeStorageError(w http.ResponseWriter, err error) {
	if errors.Is(err, storage.ErrUnavailable) {
		s.logger.Error("storage unavailable", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	s.logger.Error("request failed", zap.Error(err))
	writeError(w, http.StatusInternalServerError, err.Error())
}

// ============================================================================
// CHAT
// ============================================================================

// SendRequest is the body of POST /api/chat.
type SendRequest struct {
	Input string `json:"input"`
}

// SendResponse carries the appended reply and the resulting conversation.
// Error is set when the provider exchange failed; Reply then holds the
// appended error turn.
type SendResponse struct {
	Reply    model.Message    `json:"reply"`
	Error    string           `json:"error,omitempty"`
	Status   int              `json:"status,omitempty"`
	Snapshot session.Snapshot `json:"snapshot"`
}

// handleGetChat handles GET /api/chat.
func (s *Server) handleGetChat(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Manager.Snapshot())
}

// handleSend handles POST /api/chat. Rejected sends do not change the
// conversation: empty input is 400, a send in flight 409 and a missing
// endpoint 412. A failed provider exchange is still 200, because the
// error turn is part of the conversation.
func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	var req SendRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	reply, err := s.deps.Manager.Send(r.Context(), req.Input)
	switch {
	case errors.Is(err, session.ErrEmptyInput):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, session.ErrBusy):
		writeError(w, http.StatusConflict, err.Error())
		return
	case errors.Is(err, session.ErrNotConfigured):
		writeError(w, http.StatusPreconditionFailed, err.Error())
		return
	}

	resp := SendResponse{Reply: reply, Snapshot: s.deps.Manager.Snapshot()}
	if err != nil {
		resp.Error = err.Error()
		var httpErr *provider.HTTPError
		if errors.As(err, &httpErr) {
			resp.Status = httpErr.Status
		}
	}
	writeJSON(w, http.StatusOK, resp)
}
