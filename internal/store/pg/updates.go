package pg

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// PGUpdateStore implements store.UpdateStore backed by Postgres.
type PGUpdateStore struct {
	db *sql.DB
}

func (s *PGUpdateStore) MarkProcessed(ctx context.Context, updateID int64) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO processed_updates (update_id, processed_at)
		 VALUES ($1, $2) ON CONFLICT (update_id) DO NOTHING`,
		updateID, time.Now().UTC(),
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

func (s *PGUpdateStore) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM processed_updates WHERE processed_at < $1`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("prune processed updates: %w", err)
	}
	return res.RowsAffected()
}

func (s *PGUpdateStore) Close() error {
	return s.db.Close()
}
