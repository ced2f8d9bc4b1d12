package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// RequiredSchemaVersion is the highest migration embedded in this binary.
const RequiredSchemaVersion uint = 1

// SchemaStatus is the ledger schema compared against RequiredSchemaVersion.
type SchemaStatus struct {
	CurrentVersion  uint
	RequiredVersion uint
	Dirty           bool
	Compatible      bool
	NeedsMigration  bool
}

// CheckSchema reads golang-migrate's bookkeeping table. A missing table or
// row is reported as NeedsMigration rather than an error.
func CheckSchema(ctx context.Context, db *sql.DB) (*SchemaStatus, error) {
	var version uint
	var dirty bool

	err := db.QueryRowContext(ctx, "SELECT version, dirty FROM schema_migrations LIMIT 1").Scan(&version, &dirty)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, fmt.Errorf("check schema: %w", err)
		}
		return &SchemaStatus{RequiredVersion: RequiredSchemaVersion, NeedsMigration: true}, nil
	}
	return evaluateSchema(version, dirty), nil
}

func evaluateSchema(version uint, dirty bool) *SchemaStatus {
	s := &SchemaStatus{
		CurrentVersion:  version,
		RequiredVersion: RequiredSchemaVersion,
		Dirty:           dirty,
	}
	if dirty {
		return s
	}
	switch {
	case version == RequiredSchemaVersion:
		s.Compatible = true
	case version < RequiredSchemaVersion:
		s.NeedsMigration = true
	}
	return s
}

// String is a one-line summary with the fix, if any.
func (s *SchemaStatus) String() string {
	switch {
	case s.Dirty:
		return fmt.Sprintf("v%d (DIRTY, run: relay migrate force %d)", s.CurrentVersion, s.CurrentVersion-1)
	case s.Compatible:
		return fmt.Sprintf("v%d (up to date)", s.CurrentVersion)
	case s.CurrentVersion > s.RequiredVersion:
		return fmt.Sprintf("v%d (binary too old, requires v%d)", s.CurrentVersion, s.RequiredVersion)
	default:
		return fmt.Sprintf("v%d (run: relay migrate up)", s.CurrentVersion)
	}
}
