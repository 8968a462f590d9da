package outbox

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Entry is a backend request that could not be delivered yet.
type Entry struct {
	ID        string
	Action    string
	Payload   []byte
	Attempts  int
	LastError string
	CreatedAt time.Time
}

// Store persists undelivered requests.
type Store interface {
	Enqueue(ctx context.Context, action, id string, payload []byte) error
	Pending(ctx context.Context, limit int) ([]Entry, error)
	MarkSent(ctx context.Context, id string) error
	RecordFailure(ctx context.Context, id string, cause error) error
	Discard(ctx context.Context, id string, cause error) error
	Close() error
}

const schema = `
CREATE TABLE IF NOT EXISTS outbox (
	id         TEXT PRIMARY KEY,
	action     TEXT NOT NULL,
	payload    BLOB NOT NULL,
	attempts   INTEGER NOT NULL DEFAULT 0,
	last_error TEXT NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_outbox_created_at ON outbox(created_at);
CREATE TABLE IF NOT EXISTS outbox_dead (
	id           TEXT PRIMARY KEY,
	action       TEXT NOT NULL,
	payload      BLOB NOT NULL,
	attempts     INTEGER NOT NULL,
	last_error   TEXT NOT NULL,
	created_at   INTEGER NOT NULL,
	discarded_at INTEGER NOT NULL
);
`

// SQLiteStore keeps the outbox in a local SQLite database.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// OpenSQLiteStore opens (creating if needed) the outbox database at path.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create outbox directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open outbox database: %w", err)
	}
	// SQLite allows a single writer
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping outbox database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create outbox schema: %w", err)
	}

	return &SQLiteStore{db: db, now: time.Now}, nil
}

// Enqueue adds a request. Enqueueing an ID that is already queued is a no-op.
func (s *SQLiteStore) Enqueue(ctx context.Context, action, id string, payload []byte) error {
	if id == "" || action == "" {
		return errors.New("outbox entry requires an id and an action")
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO outbox (id, action, payload, created_at) VALUES (?, ?, ?, ?)`,
		id, action, payload, s.now().UnixNano())
	if err != nil {
		return fmt.Errorf("failed to enqueue %s: %w", id, err)
	}
	return nil
}

// Pending returns up to limit queued entries, least attempted first and oldest first among equals.
func (s *SQLiteStore) Pending(ctx context.Context, limit int) ([]Entry, error) {
	return s.query(ctx,
		`SELECT id, action, payload, attempts, last_error, created_at FROM outbox
		ORDER BY attempts, created_at, rowid LIMIT ?`, limit)
}

// Discarded returns up to limit entries that were given up on, most recent first.
func (s *SQLiteStore) Discarded(ctx context.Context, limit int) ([]Entry, error) {
	return s.query(ctx,
		`SELECT id, action, payload, attempts, last_error, created_at FROM outbox_dead
		ORDER BY discarded_at DESC, rowid DESC LIMIT ?`, limit)
}

func (s *SQLiteStore) query(ctx context.Context, query string, limit int) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query outbox: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e       Entry
			created int64
		)
		if err := rows.Scan(&e.ID, &e.Action, &e.Payload, &e.Attempts, &e.LastError, &created); err != nil {
			return nil, fmt.Errorf("failed to scan outbox entry: %w", err)
		}
		e.CreatedAt = time.Unix(0, created)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// MarkSent removes a delivered entry.
func (s *SQLiteStore) MarkSent(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM outbox WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to remove %s from outbox: %w", id, err)
	}
	return nil
}

// RecordFailure bumps the attempt counter and remembers the last error.
func (s *SQLiteStore) RecordFailure(ctx context.Context, id string, cause error) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	if _, err := s.db.ExecContext(ctx,
		`UPDATE outbox SET attempts = attempts + 1, last_error = ? WHERE id = ?`, msg, id); err != nil {
		return fmt.Errorf("failed to record failure for %s: %w", id, err)
	}
	return nil
}

// Discard moves an entry to the dead-letter table so it is never retried again.
func (s *SQLiteStore) Discard(ctx context.Context, id string, cause error) (err error) {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to discard %s: %w", id, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO outbox_dead (id, action, payload, attempts, last_error, created_at, discarded_at)
		SELECT id, action, payload, attempts + 1, ?, created_at, ? FROM outbox WHERE id = ?`,
		msg, s.now().UnixNano(), id); err != nil {
		return fmt.Errorf("failed to discard %s: %w", id, err)
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM outbox WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to discard %s: %w", id, err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to discard %s: %w", id, err)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
