// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	// Register the modernc sqlite driver under the name "sqlite"
	_ "modernc.org/sqlite"

	"github.com/jeranaias/rigrun-chat/internal/model"
)

// SchemaVersion is the user_version written by the latest upgrade step.
const SchemaVersion = 1

// upgradeSteps[i] moves the schema from version i to i+1.
var upgradeSteps = []string{
	`CREATE TABLE IF NOT EXISTS sessions (
		id         TEXT PRIMARY KEY,
		title      TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL,
		record     TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_sessions_updated_at ON sessions(updated_at DESC);`,
}

// SQLiteStore keeps sessions in a single "sessions" table. The database is
// opened for each operation and closed when it returns.
type SQLiteStore struct {
	path string
}

// NewSQLiteStore creates a store backed by the database file at path,
// creating the parent directory and upgrading the schema if needed.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, unavailable("open", err)
	}
	s := &SQLiteStore{path: path}

	// Open once up front so schema problems surface at startup.
	err := s.withDB(context.Background(), "open", func(*sql.DB) error { return nil })
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the database file location.
func (s *SQLiteStore) Path() string {
	return s.path
}

func (s *SQLiteStore) Upsert(ctx context.Context, sess model.ChatSession) error {
	record, err := json.Marshal(sess)
	if err != nil {
		return unavailable("upsert", err)
	}
	return s.withDB(ctx, "upsert", func(db *sql.DB) error {
		_, err := db.ExecContext(ctx,
			`INSERT INTO sessions (id, title, created_at, updated_at, record)
			 VALUES (?, ?, ?, ?, ?)
			 ON CONFLICT(id) DO UPDATE SET
				title = excluded.title,
				created_at = excluded.created_at,
				updated_at = excluded.updated_at,
				record = excluded.record`,
			sess.ID, sess.Title, sess.CreatedAt, sess.UpdatedAt, string(record))
		return err
	})
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (*model.ChatSession, error) {
	var found *model.ChatSession
	err := s.withDB(ctx, "get", func(db *sql.DB) error {
		var record string
		err := db.QueryRowContext(ctx, `SELECT record FROM sessions WHERE id = ?`, id).Scan(&record)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}
		var sess model.ChatSession
		if err := json.Unmarshal([]byte(record), &sess); err != nil {
			return fmt.Errorf("decode session %s: %w", id, err)
		}
		found = &sess
		return nil
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	return s.withDB(ctx, "delete", func(db *sql.DB) error {
		_, err := db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
		return err
	})
}

func (s *SQLiteStore) ListAll(ctx context.Context) ([]model.ChatSession, error) {
	var out []model.ChatSession
	err := s.withDB(ctx, "list", func(db *sql.DB) error {
		rows, err := db.QueryContext(ctx,
			`SELECT record FROM sessions ORDER BY updated_at DESC, id ASC`)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var record string
			if err := rows.Scan(&record); err != nil {
				return err
			}
			var sess model.ChatSession
			if err := json.Unmarshal([]byte(record), &sess); err != nil {
				return fmt.Errorf("decode session: %w", err)
			}
			out = append(out, sess)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Close is a no-op; no connection outlives an operation.
func (s *SQLiteStore) Close() error {
	return nil
}

// =============================================================================
// SCOPED ACQUISITION
// =============================================================================

// withDB opens the database, upgrades the schema, runs fn and closes the
// database again. Any failure is wrapped as unavailable.
func (s *SQLiteStore) withDB(ctx context.Context, op string, fn func(*sql.DB) error) (err error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return unavailable(op, ctxErr)
	}

	db, err := openDB(s.path)
	if err != nil {
		return unavailable(op, err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil && err == nil {
			err = unavailable(op, closeErr)
		}
	}()

	if err := upgrade(ctx, db); err != nil {
		return unavailable(op, err)
	}
	return unavailable(op, fn(db))
}

// openDB opens path with pragmas applied at connection time.
func openDB(path string) (*sql.DB, error) {
	dsn := path +
		"?_pragma=journal_mode(WAL)" +
		"&_pragma=busy_timeout(5000)" +
		"&_pragma=synchronous(NORMAL)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %q: %w", path, err)
	}
	return db, nil
}

// SchemaVersionOf reads PRAGMA user_version.
func SchemaVersionOf(ctx context.Context, db *sql.DB) (int, error) {
	var version int
	if err := db.QueryRowContext(ctx, `PRAGMA user_version`).Scan(&version); err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return version, nil
}

// upgrade applies every step above the current user_version, each in its
// own transaction.
func upgrade(ctx context.Context, db *sql.DB) error {
	version, err := SchemaVersionOf(ctx, db)
	if err != nil {
		return err
	}
	if version > SchemaVersion {
		return fmt.Errorf("schema version %d is newer than supported %d", version, SchemaVersion)
	}

	for v := version; v < SchemaVersion; v++ {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin upgrade %d: %w", v+1, err)
		}
		if _, err := tx.ExecContext(ctx, upgradeSteps[v]); err != nil {
			tx.Rollback()
			return fmt.Errorf("upgrade to %d: %w", v+1, err)
		}
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", v+1)); err != nil {
			tx.Rollback()
			return fmt.Errorf("set schema version %d: %w", v+1, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit upgrade %d: %w", v+1, err)
		}
	}
	return nil
}
