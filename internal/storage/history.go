// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides conversation persistence for nemoshell.
//
// Chat sessions and their messages are kept in a SQLite database under the
// config directory, so `chat` can show history across runs and prune old
// sessions by age.
package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	ErrSessionNotFound = errors.New("session not found")
)

// =============================================================================
// TYPES
// =============================================================================

// Session is one chat conversation.
type Session struct {
	ID        string
	Model     string
	Backend   string
	Summary   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// StoredMessage is one persisted conversation turn.
type StoredMessage struct {
	ID        int64
	SessionID string
	Role      string // "user", "assistant", "system", "tool"
	Content   string
	CreatedAt time.Time
}

// =============================================================================
// HISTORY STORE
// =============================================================================

// Timestamps are unix seconds; integer comparison keeps pruning independent
// of driver time formatting.
const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id         TEXT PRIMARY KEY,
	model      TEXT NOT NULL,
	backend    TEXT NOT NULL,
	summary    TEXT NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS messages (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
	role       TEXT NOT NULL,
	content    TEXT NOT NULL,
	created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_messages_session ON messages(session_id);
CREATE INDEX IF NOT EXISTS idx_sessions_updated ON sessions(updated_at);
`

// HistoryStore persists chat sessions in SQLite.
type HistoryStore struct {
	db *sql.DB
}

// Open opens (creating if needed) the history database at the given path.
func Open(path string) (*HistoryStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &HistoryStore{db: db}, nil
}

// Close closes the underlying database.
func (s *HistoryStore) Close() error {
	return s.db.Close()
}

// =============================================================================
// SESSION OPERATIONS
// =============================================================================

// CreateSession starts a new session and returns it.
func (s *HistoryStore) CreateSession(model, backendName string) (*Session, error) {
	now := time.Now().UTC().Truncate(time.Second)
	sess := &Session{
		ID:        uuid.NewString(),
		Model:     model,
		Backend:   backendName,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err := s.db.Exec(
		`INSERT INTO sessions (id, model, backend, summary, created_at, updated_at) VALUES (?, ?, ?, '', ?, ?)`,
		sess.ID, sess.Model, sess.Backend, now.Unix(), now.Unix(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return sess, nil
}

// GetSession loads one session by ID.
func (s *HistoryStore) GetSession(id string) (*Session, error) {
	row := s.db.QueryRow(
		`SELECT id, model, backend, summary, created_at, updated_at FROM sessions WHERE id = ?`, id,
	)
	return scanSession(row)
}

func scanSession(row *sql.Row) (*Session, error) {
	var sess Session
	var created, updated int64
	err := row.Scan(&sess.ID, &sess.Model, &sess.Backend, &sess.Summary, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	sess.CreatedAt = time.Unix(created, 0).UTC()
	sess.UpdatedAt = time.Unix(updated, 0).UTC()
	return &sess, nil
}

// ListSessions returns sessions newest first, up to limit (0 = all).
// Ties break on creation order via rowid so listings stay deterministic.
func (s *HistoryStore) ListSessions(limit int) ([]Session, error) {
	query := `SELECT id, model, backend, summary, created_at, updated_at FROM sessions ORDER BY updated_at DESC, rowid DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var sess Session
		var created, updated int64
		if err := rows.Scan(&sess.ID, &sess.Model, &sess.Backend, &sess.Summary, &created, &updated); err != nil {
			return nil, err
		}
		sess.CreatedAt = time.Unix(created, 0).UTC()
		sess.UpdatedAt = time.Unix(updated, 0).UTC()
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

// SetSummary records a short human-readable summary for listing.
func (s *HistoryStore) SetSummary(sessionID, summary string) error {
	_, err := s.db.Exec(`UPDATE sessions SET summary = ? WHERE id = ?`, summary, sessionID)
	return err
}

// DeleteSession removes a session and its messages.
func (s *HistoryStore) DeleteSession(id string) error {
	res, err := s.db.Exec(`DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// =============================================================================
// MESSAGE OPERATIONS
// =============================================================================

// AppendMessage adds one turn to a session and bumps its updated time.
func (s *HistoryStore) AppendMessage(sessionID, role, content string) error {
	now := time.Now().UTC().Unix()

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`INSERT INTO messages (session_id, role, content, created_at) VALUES (?, ?, ?, ?)`,
		sessionID, role, content, now,
	); err != nil {
		return fmt.Errorf("failed to append message: %w", err)
	}

	if _, err := tx.Exec(`UPDATE sessions SET updated_at = ? WHERE id = ?`, now, sessionID); err != nil {
		return fmt.Errorf("failed to touch session: %w", err)
	}

	return tx.Commit()
}

// Messages returns a session's messages oldest first.
func (s *HistoryStore) Messages(sessionID string) ([]StoredMessage, error) {
	rows, err := s.db.Query(
		`SELECT id, session_id, role, content, created_at FROM messages WHERE session_id = ? ORDER BY id`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load messages: %w", err)
	}
	defer rows.Close()

	var msgs []StoredMessage
	for rows.Next() {
		var m StoredMessage
		var created int64
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Role, &m.Content, &created); err != nil {
			return nil, err
		}
		m.CreatedAt = time.Unix(created, 0).UTC()
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// =============================================================================
// MAINTENANCE
// =============================================================================

// PruneOlderThan deletes sessions not updated within the retention window
// and returns how many were removed.
func (s *HistoryStore) PruneOlderThan(days int) (int64, error) {
	if days <= 0 {
		return 0, nil
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -days).Unix()

	res, err := s.db.Exec(`DELETE FROM sessions WHERE updated_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune sessions: %w", err)
	}
	return res.RowsAffected()
}
