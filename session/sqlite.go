package session

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// ============================================================================
// SQLITE STORE — the default persistent backend
// ============================================================================
// One file on disk holds every session. Writes are serialized through a
// mutex: sqlite handles concurrent readers fine but concurrent writers
// on one connection trip SQLITE_BUSY.
// ============================================================================

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS sessions (
	session_id  TEXT PRIMARY KEY,
	created_at  TIMESTAMP NOT NULL,
	last_active TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS conversations (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT NOT NULL,
	question   TEXT NOT NULL,
	answer     TEXT NOT NULL,
	action     TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_conversations_session ON conversations(session_id, created_at);

CREATE TABLE IF NOT EXISTS context_store (
	session_id TEXT NOT NULL,
	key        TEXT NOT NULL,
	value      TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL,
	PRIMARY KEY (session_id, key)
);
CREATE INDEX IF NOT EXISTS idx_context_session ON context_store(session_id);
`

// SQLiteStore persists session context in a local sqlite database.
type SQLiteStore struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteStore opens (and migrates) the database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open context database: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate context database: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) touchSession(ctx context.Context, sessionID string, now time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (session_id, created_at, last_active) VALUES (?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET last_active = excluded.last_active`,
		sessionID, now, now)
	return err
}

func (s *SQLiteStore) Get(ctx context.Context, sessionID string) (Context, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key, value FROM context_store WHERE session_id = ?`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load context: %w", err)
	}
	defer rows.Close()

	c := Context{}
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		c[k] = v
	}
	return c, rows.Err()
}

func (s *SQLiteStore) Merge(ctx context.Context, sessionID string, updates Context) error {
	if len(updates) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	if err := s.touchSession(ctx, sessionID, now); err != nil {
		return err
	}
	for k, v := range updates {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO context_store (session_id, key, value, updated_at) VALUES (?, ?, ?, ?)
			ON CONFLICT(session_id, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
			sessionID, k, v, now)
		if err != nil {
			return fmt.Errorf("failed to store context key %s: %w", k, err)
		}
	}
	return nil
}

func (s *SQLiteStore) Clear(ctx context.Context, sessionID string, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(keys) == 0 {
		_, err := s.db.ExecContext(ctx,
			`DELETE FROM context_store WHERE session_id = ?`, sessionID)
		return err
	}
	for _, k := range keys {
		if _, err := s.db.ExecContext(ctx,
			`DELETE FROM context_store WHERE session_id = ? AND key = ?`, sessionID, k); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStore) LogTurn(ctx context.Context, sessionID string, turn Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	at := turn.At
	if at.IsZero() {
		at = time.Now().UTC()
	}
	if err := s.touchSession(ctx, sessionID, at); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO conversations (session_id, question, answer, action, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		sessionID, turn.Question, turn.Answer, turn.Action, at)
	return err
}

func (s *SQLiteStore) History(ctx context.Context, sessionID string, limit int) ([]Turn, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT question, answer, action, created_at FROM conversations
		WHERE session_id = ? ORDER BY id DESC LIMIT ?`, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	defer rows.Close()

	var out []Turn
	for rows.Next() {
		var t Turn
		if err := rows.Scan(&t.Question, &t.Answer, &t.Action, &t.At); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Close() error { return s.db.Close() }
