// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jeranaias/rigrun-chat/internal/model"
)

// Store is a durable mapping from session id to ChatSession.
type Store interface {
	// Upsert inserts or fully replaces the record at s.ID.
	Upsert(ctx context.Context, s model.ChatSession) error

	// Get returns the record, or nil and no error when id is unknown.
	Get(ctx context.Context, id string) (*model.ChatSession, error)

	// Delete removes the record. Deleting an unknown id is not an error.
	Delete(ctx context.Context, id string) error

	// ListAll returns every record, most recently updated first.
	ListAll(ctx context.Context) ([]model.ChatSession, error)

	// Close releases any resources held by the store.
	Close() error
}

// Backend names accepted by Open.
const (
	BackendSQLite = "sqlite"
	BackendFile   = "file"
	BackendMemory = "memory"
)

// Open creates the store for backend at path. A leading "~" in path is
// expanded to the user's home directory.
func Open(backend, path string) (Store, error) {
	expanded, err := ExpandHome(path)
	if err != nil {
		return nil, unavailable("open", err)
	}

	switch backend {
	case BackendSQLite, "":
		return NewSQLiteStore(expanded)
	case BackendFile:
		return NewFileStore(expanded)
	case BackendMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", backend)
	}
}

// ExpandHome replaces a leading "~" with the user's home directory.
func ExpandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrUnavailable is wrapped by every storage failure.
// Use errors.Is(err, ErrUnavailable) to check for it.
var ErrUnavailable = errors.New("storage unavailable")

// StoreError records the failed operation and its cause.
type StoreError struct {
	Op  string
	Err error
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	return "storage unavailable: " + e.Op + ": " + e.Err.Error()
}

// Unwrap returns the underlying cause.
func (e *StoreError) Unwrap() error {
	return e.Err
}

// Is makes every StoreError match ErrUnavailable.
func (e *StoreError) Is(target error) bool {
	return target == ErrUnavailable
}

func unavailable(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, Err: err}
}
