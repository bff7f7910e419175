// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jeranaias/rigrun-chat/internal/model"
	"github.com/jeranaias/rigrun-chat/internal/util"
)

// FileStore keeps one JSON file per session under BaseDir.
type FileStore struct {
	// BaseDir is the directory for storing sessions
	// Default: ~/.rigrun-chat/sessions/
	BaseDir string
}

// NewFileStore creates a store in baseDir, creating it if needed.
func NewFileStore(baseDir string) (*FileStore, error) {
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, unavailable("open", err)
	}
	return &FileStore{BaseDir: baseDir}, nil
}

// =============================================================================
// SAVE OPERATIONS
// =============================================================================

func (s *FileStore) Upsert(ctx context.Context, sess model.ChatSession) error {
	if err := ctx.Err(); err != nil {
		return unavailable("upsert", err)
	}
	path, err := s.filePath(sess.ID)
	if err != nil {
		return unavailable("upsert", err)
	}

	data, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return unavailable("upsert", err)
	}
	return unavailable("upsert", util.AtomicWriteFile(path, data, 0600))
}

// =============================================================================
// LOAD OPERATIONS
// =============================================================================

func (s *FileStore) Get(ctx context.Context, id string) (*model.ChatSession, error) {
	if err := ctx.Err(); err != nil {
		return nil, unavailable("get", err)
	}
	path, err := s.filePath(id)
	if err != nil {
		// An id that cannot name a file cannot have been stored.
		return nil, nil
	}

	sess, err := readSessionFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, unavailable("get", err)
	}
	return sess, nil
}

// ListAll returns every readable session, most recent first. Corrupted
// files are skipped.
func (s *FileStore) ListAll(ctx context.Context) ([]model.ChatSession, error) {
	if err := ctx.Err(); err != nil {
		return nil, unavailable("list", err)
	}
	entries, err := os.ReadDir(s.BaseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []model.ChatSession{}, nil
		}
		return nil, unavailable("list", err)
	}

	sessions := make([]model.ChatSession, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		sess, err := readSessionFile(filepath.Join(s.BaseDir, entry.Name()))
		if err != nil {
			continue // Skip corrupted files
		}
		sessions = append(sessions, *sess)
	}

	model.SortByRecency(sessions)
	return sessions, nil
}

// =============================================================================
// DELETE OPERATIONS
// =============================================================================

func (s *FileStore) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return unavailable("delete", err)
	}
	path, err := s.filePath(id)
	if err != nil {
		return nil
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return unavailable("delete", err)
	}
	return nil
}

func (s *FileStore) Close() error {
	return nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// filePath returns the file path for a session ID. IDs that would escape
// BaseDir are rejected.
func (s *FileStore) filePath(id string) (string, error) {
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, `/\`) {
		return "", fmt.Errorf("invalid session id %q", id)
	}
	return filepath.Join(s.BaseDir, id+".json"), nil
}

func readSessionFile(path string) (*model.ChatSession, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var sess model.ChatSession
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return &sess, nil
}
