// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"sync"

	"github.com/jeranaias/rigrun-chat/internal/model"
)

// MemoryStore keeps sessions in process memory. Records are deep-copied on
// the way in and out.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]model.ChatSession

	// FailWith, when set, is returned (wrapped) by every operation.
	FailWith error
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]model.ChatSession)}
}

func (s *MemoryStore) Upsert(ctx context.Context, sess model.ChatSession) error {
	if err := s.check(ctx, "upsert"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = sess.Clone()
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*model.ChatSession, error) {
	if err := s.check(ctx, "get"); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, nil
	}
	cp := sess.Clone()
	return &cp, nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	if err := s.check(ctx, "delete"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

func (s *MemoryStore) ListAll(ctx context.Context) ([]model.ChatSession, error) {
	if err := s.check(ctx, "list"); err != nil {
		return nil, err
	}
	s.mu.RLock()
	out := make([]model.ChatSession, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, sess.Clone())
	}
	s.mu.RUnlock()

	model.SortByRecency(out)
	return out, nil
}

func (s *MemoryStore) Close() error {
	return nil
}

func (s *MemoryStore) check(ctx context.Context, op string) error {
	if s.FailWith != nil {
		return unavailable(op, s.FailWith)
	}
	return unavailable(op, ctx.Err())
}
