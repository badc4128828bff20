package firmware

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// flagUpdatePending is the firmware_flags row written by the trigger.
const flagUpdatePending = "update_pending"

// FlagStore is the durable storage behind the update-pending flag.
type FlagStore interface {
	// SetPending stores the flag. It returns only after the write is durable.
	SetPending(ctx context.Context, source string) error

	// Pending reports whether an update is pending.
	Pending(ctx context.Context) (bool, error)

	// Clear removes the flag after the update was applied.
	Clear(ctx context.Context) error
}

// SQLiteStore keeps flags in the firmware_flags table.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteStore returns a store backed by db. The firmware_flags migration
// must already be applied.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db, now: time.Now}
}

// SetPending upserts the flag inside a transaction and checks the commit.
func (s *SQLiteStore) SetPending(ctx context.Context, source string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback is no-op after commit

	_, err = tx.ExecContext(ctx, `
		INSERT INTO firmware_flags (name, value, source, updated_at)
		VALUES (?, 1, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			value = excluded.value,
			source = excluded.source,
			updated_at = excluded.updated_at
	`, flagUpdatePending, source, s.now().Unix())
	if err != nil {
		return fmt.Errorf("writing %s flag: %w", flagUpdatePending, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing %s flag: %w", flagUpdatePending, err)
	}
	return nil
}

// Pending reports whether the flag is set.
func (s *SQLiteStore) Pending(ctx context.Context) (bool, error) {
	var value int
	err := s.db.QueryRowContext(ctx,
		"SELECT value FROM firmware_flags WHERE name = ?", flagUpdatePending,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("reading %s flag: %w", flagUpdatePending, err)
	}
	return value != 0, nil
}

// Clear deletes the flag. Clearing an unset flag is not an error.
func (s *SQLiteStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx,
		"DELETE FROM firmware_flags WHERE name = ?", flagUpdatePending,
	); err != nil {
		return fmt.Errorf("clearing %s flag: %w", flagUpdatePending, err)
	}
	return nil
}
