package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS sync_state (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL,
	expires_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_sync_state_expiry
ON sync_state(expires_at);
`

// SQLiteStore is a SQLite-backed implementation of Store. Expiry is lazy:
// reads treat stale rows as absent and writes sweep them out, so all work
// stays request-scoped and no janitor goroutine is needed.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

func OpenSQLite(path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, errors.New("sqlite path is required")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	return &SQLiteStore{db: db, now: time.Now}, nil
}

func (s *SQLiteStore) Init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "PRAGMA journal_mode = WAL;"); err != nil {
		return fmt.Errorf("enable wal: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value string
	var expiresAt int64
	row := s.db.QueryRowContext(ctx, `
		SELECT value, expires_at FROM sync_state WHERE key = ?
	`, key)
	if err := row.Scan(&value, &expiresAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("get sync state: %w", err)
	}
	now := s.now().Unix()
	if expiresAt <= now {
		// An expired row must look exactly like a missing one.
		_, _ = s.db.ExecContext(ctx, "DELETE FROM sync_state WHERE key = ? AND expires_at <= ?", key, now)
		return nil, false, nil
	}
	return []byte(value), true, nil
}

func (s *SQLiteStore) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if key == "" {
		return errors.New("key is required")
	}
	if ttl <= 0 {
		return fmt.Errorf("ttl must be positive, got %s", ttl)
	}
	now := s.now()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sync_state (key, value, expires_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			expires_at = excluded.expires_at
	`, key, string(value), now.Add(ttl).Unix())
	if err != nil {
		return fmt.Errorf("put sync state: %w", err)
	}
	// Opportunistic sweep keeps the table bounded without a background job.
	_, _ = s.db.ExecContext(ctx, "DELETE FROM sync_state WHERE expires_at <= ?", now.Unix())
	return nil
}
