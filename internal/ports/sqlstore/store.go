package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"navalwar/internal/ports"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS match_snapshots (
	match_id   TEXT PRIMARY KEY,
	data       TEXT NOT NULL,
	updated_at INTEGER NOT NULL
);`

// Store keeps match records in a single sqlite table.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (or creates) the sqlite database at path. Use ":memory:" for a throwaway store.
func Open(path string) (*Store, error) {
	dsn := path + "?_journal_mode=WAL&_busy_timeout=5000"
	if path == ":memory:" {
		dsn = path
	} else if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create snapshot dir: %w", err)
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open snapshot db: %w", err)
	}
	// A :memory: database exists per connection.
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping snapshot db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create snapshot schema: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Save replaces the record of matchID.
func (s *Store) Save(ctx context.Context, matchID string, data []byte) error {
	if matchID == "" {
		return fmt.Errorf("matchID is required")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO match_snapshots (match_id, data, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(match_id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		matchID, string(data), s.now().UnixMilli())
	if err != nil {
		return fmt.Errorf("save match %s: %w", matchID, err)
	}
	return nil
}

// Load returns the record of matchID or ports.ErrSnapshotNotFound.
func (s *Store) Load(ctx context.Context, matchID string) ([]byte, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM match_snapshots WHERE match_id = ?`, matchID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ports.ErrSnapshotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load match %s: %w", matchID, err)
	}
	return []byte(data), nil
}

// MatchIDs lists stored matches, most recently updated first.
func (s *Store) MatchIDs(ctx context.Context, limit int) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT match_id FROM match_snapshots ORDER BY updated_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list matches: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

var _ ports.SnapshotStore = (*Store)(nil)
