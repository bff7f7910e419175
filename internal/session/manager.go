// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jeranaias/rigrun-chat/internal/config"
	"github.com/jeranaias/rigrun-chat/internal/logging"
	"github.com/jeranaias/rigrun-chat/internal/model"
	"github.com/jeranaias/rigrun-chat/internal/provider"
	"github.com/jeranaias/rigrun-chat/internal/storage"
)

// =============================================================================
// CONFIGURATION
// =============================================================================

// Config holds the manager's collaborators.
type Config struct {
	// Store persists sessions. Required.
	Store storage.Store

	// Holder supplies provider settings and the system prompt. Required.
	Holder *config.Holder

	// Client performs provider requests. Defaults to provider.NewClient().
	Client *provider.Client

	// Reasoning decides whether the selected model takes an effort
	// parameter. Defaults to provider.IsReasoningModel.
	Reasoning provider.Capability

	Logger *zap.Logger

	// NewID and Now are replaced in tests.
	NewID func() string
	Now   func() int64
}

// =============================================================================
// SNAPSHOT
// =============================================================================

// Snapshot is a copy of the conversation state.
type Snapshot struct {
	SessionID string          `json:"sessionId"`
	Title     string          `json:"title"`
	Messages  []model.Message `json:"messages"`
	Sending   bool            `json:"sending"`
	LastError string          `json:"lastError,omitempty"`
}

// =============================================================================
// MANAGER
// =============================================================================

// Manager is the conversation controller. It is safe for concurrent use;
// only one send runs at a time.
type Manager struct {
	store     storage.Store
	holder    *config.Holder
	client    *provider.Client
	reasoning provider.Capability
	logger    *zap.Logger
	newID     func() string
	now       func() int64

	mu        sync.Mutex
	sessionID string
	createdAt int64
	messages  []model.Message
	sending   bool
	lastError string
	sessions  []model.ChatSession
}

// NewManager creates a manager with no active session.
func NewManager(cfg Config) *Manager {
	m := &Manager{
		store:     cfg.Store,
		holder:    cfg.Holder,
		client:    cfg.Client,
		reasoning: cfg.Reasoning,
		logger:    logging.OrNop(cfg.Logger),
		newID:     cfg.NewID,
		now:       cfg.Now,
		sessions:  []model.ChatSession{},
	}
	if m.client == nil {
		m.client = provider.NewClient()
	}
	if m.reasoning == nil {
		m.reasoning = provider.IsReasoningModel
	}
	if m.newID == nil {
		m.newID = uuid.NewString
	}
	if m.now == nil {
		m.now = model.NowMillis
	}
	return m
}

// =============================================================================
// SENDING
// =============================================================================

// Send appends input as a user turn, asks the configured provider for a
// reply and appends it. It returns the appended assistant turn.
//
// ErrEmptyInput, ErrBusy and ErrNotConfigured reject the send without
// touching the conversation. Any other error means the provider exchange
// failed; the returned message is the "Error: ..." turn that was appended
// in place of a reply.
func (m *Manager) Send(ctx context.Context, input string) (model.Message, error) {
	content := strings.TrimSpace(input)
	if content == "" {
		return model.Message{}, ErrEmptyInput
	}
	settings := m.holder.Settings()
	systemPrompt := m.holder.SystemPrompt()
	timeout := time.Duration(m.holder.Get().Chat.RequestTimeoutSecs) * time.Second

	m.mu.Lock()
	if m.sending {
		m.mu.Unlock()
		return model.Message{}, ErrBusy
	}
	if !settings.Configured() {
		m.mu.Unlock()
		return model.Message{}, ErrNotConfigured
	}
	history := model.CloneMessages(m.messages)
	if m.sessionID == "" {
		m.startSessionLocked()
	}
	m.messages = append(m.messages, model.NewUserMessage(content, m.now()))
	m.sending = true
	m.lastError = ""
	record := m.recordLocked()
	m.mu.Unlock()

	// Persistence outlives a caller that goes away mid-send.
	storeCtx := context.WithoutCancel(ctx)
	m.persist(storeCtx, record)

	reply, err := m.exchange(ctx, settings, history, systemPrompt, content, timeout)
	if err != nil {
		m.logger.Warn("send failed",
			zap.String("provider", string(settings.Kind)),
			zap.String("model", settings.ModelOrDefault()),
			zap.Error(err))
		reply = model.Message{
			Role:      model.RoleAssistant,
			Content:   ErrorPrefix + err.Error(),
			Timestamp: m.now(),
		}
	}

	m.mu.Lock()
	m.messages = append(m.messages, reply)
	m.sending = false
	if err != nil {
		m.lastError = err.Error()
	}
	record = m.recordLocked()
	m.mu.Unlock()

	m.persist(storeCtx, record)

	if err != nil {
		return reply, fmt.Errorf("send failed: %w", err)
	}
	return reply, nil
}

func (m *Manager) exchange(ctx context.Context, settings provider.Settings, history []model.Message, systemPrompt, input string, timeout time.Duration) (model.Message, error) {
	adapter := provider.For(settings.Kind, m.reasoning)
	req, err := adapter.BuildRequest(settings, history, systemPrompt, input)
	if err != nil {
		return model.Message{}, err
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	resp, err := m.client.Do(ctx, settings, req)
	if err != nil {
		return model.Message{}, err
	}
	return adapter.ParseResponse(req, resp.Status, resp.Body, resp.Elapsed)
}

// =============================================================================
// SESSION LIFECYCLE
// =============================================================================

// NewChat starts a new empty session. The session is stored once its
// first message is appended.
func (m *Manager) NewChat() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sending {
		return "", ErrBusy
	}
	m.startSessionLocked()
	m.messages = nil
	m.lastError = ""
	return m.sessionID, nil
}

// Open makes a stored session the active one.
func (m *Manager) Open(ctx context.Context, id string) (*model.ChatSession, error) {
	m.mu.Lock()
	busy := m.sending
	m.mu.Unlock()
	if busy {
		return nil, ErrBusy
	}

	sess, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sending {
		return nil, ErrBusy
	}
	m.sessionID = sess.ID
	m.createdAt = sess.CreatedAt
	m.messages = model.CloneMessages(sess.Messages)
	m.lastError = ""
	return sess, nil
}

// Delete removes a stored session. Deleting the active session clears the
// conversation; deleting an unknown id is not an error.
func (m *Manager) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	if m.sending && id == m.sessionID {
		m.mu.Unlock()
		return ErrBusy
	}
	m.mu.Unlock()

	if err := m.store.Delete(ctx, id); err != nil {
		return err
	}

	m.mu.Lock()
	if id == m.sessionID && !m.sending {
		m.sessionID = ""
		m.createdAt = 0
		m.messages = nil
		m.lastError = ""
	}
	m.mu.Unlock()

	m.refresh(ctx)
	return nil
}

// Refresh reloads the session listing from the store.
func (m *Manager) Refresh(ctx context.Context) error {
	sessions, err := m.store.ListAll(ctx)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.sessions = sessions
	m.mu.Unlock()
	return nil
}

// Sessions returns the last loaded listing, most recently updated first.
func (m *Manager) Sessions() []model.ChatSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.ChatSession, len(m.sessions))
	for i, s := range m.sessions {
		out[i] = s.Clone()
	}
	return out
}

// Snapshot returns a copy of the conversation state.
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Snapshot{
		SessionID: m.sessionID,
		Title:     model.DeriveTitle(m.messages),
		Messages:  model.CloneMessages(m.messages),
		Sending:   m.sending,
		LastError: m.lastError,
	}
}

// SetSystemPrompt replaces the prompt sent ahead of every conversation.
func (m *Manager) SetSystemPrompt(prompt string) error {
	return m.holder.SetSystemPrompt(prompt)
}

// SetSettings replaces the provider settings. A connection change makes a
// subscribed catalog refetch.
func (m *Manager) SetSettings(settings provider.Settings) error {
	return m.holder.SetSettings(settings)
}

// =============================================================================
// PERSISTENCE
// =============================================================================

func (m *Manager) startSessionLocked() {
	m.sessionID = m.newID()
	m.createdAt = m.now()
}

// recordLocked builds the stored form of the active session.
func (m *Manager) recordLocked() model.ChatSession {
	return model.ChatSession{
		ID:        m.sessionID,
		Title:     model.DeriveTitle(m.messages),
		Messages:  model.CloneMessages(m.messages),
		CreatedAt: m.createdAt,
		UpdatedAt: m.now(),
	}
}

// persist writes the session and reloads the listing. Failures are logged.
func (m *Manager) persist(ctx context.Context, record model.ChatSession) {
	if err := m.store.Upsert(ctx, record); err != nil {
		m.logger.Error("failed to save session",
			zap.String("session", record.ID), zap.Error(err))
		return
	}
	m.refresh(ctx)
}

func (m *Manager) refresh(ctx context.Context) {
	if err := m.Refresh(ctx); err != nil {
		m.logger.Error("failed to list sessions", zap.Error(err))
	}
}
