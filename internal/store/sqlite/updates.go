// Package sqlite is a single-file UpdateStore for deployments without Postgres.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS processed_updates (
	update_id    INTEGER PRIMARY KEY,
	processed_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_processed_updates_at ON processed_updates(processed_at);
`

// UpdateStore implements store.UpdateStore on a local SQLite file.
type UpdateStore struct {
	db *sql.DB
}

// Open creates (or reuses) the ledger database at path.
func Open(path string) (*UpdateStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("create ledger dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// Single writer; SQLite serializes anyway.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA busy_timeout = 5000`); err != nil {
		db.Close()
		return nil, fmt.Errorf("configure sqlite: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create ledger schema: %w", err)
	}
	return &UpdateStore{db: db}, nil
}

func (s *UpdateStore) MarkProcessed(ctx context.Context, updateID int64) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO processed_updates (update_id, processed_at) VALUES (?, ?)`,
		updateID, time.Now().UnixMilli(),
	)
	if err != nil {
		return false, fmt.Errorf("record update %d: %w", updateID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("record update %d: %w", updateID, err)
	}
	return n == 1, nil
}

func (s *UpdateStore) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM processed_updates WHERE processed_at < ?`, cutoff.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("prune processed updates: %w", err)
	}
	return res.RowsAffected()
}

func (s *UpdateStore) Close() error {
	return s.db.Close()
}
