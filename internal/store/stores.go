package store

import (
	"context"
	"time"
)

// UpdateStore records which Telegram update_ids have been processed so a
// redelivered webhook is acknowledged without running the pipeline again.
type UpdateStore interface {
	// MarkProcessed records updateID. It returns false when the id was
	// already recorded.
	MarkProcessed(ctx context.Context, updateID int64) (bool, error)

	// Prune removes entries recorded before cutoff and returns how many
	// were removed.
	Prune(ctx context.Context, cutoff time.Time) (int64, error)

	Close() error
}
