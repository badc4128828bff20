// Package audit records firmware update activity in the audit_logs table.
//
// Entries survive restarts, so the trail shows when an update was
// requested over MQTT, whether the flag was stored, and how the boot-time
// hand-off went.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Actions written by the firmware trigger and boot hand-off.
const (
	ActionUpdateRequested = "update_requested"
	ActionPersistFailed   = "persist_failed"
	ActionUpdateApplied   = "update_applied"
	ActionUpdateFailed    = "update_failed"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200

	// timeLayout is fixed-width so created_at sorts as text.
	timeLayout = "2006-01-02T15:04:05.000000Z"
)

// Entry is a single audit trail entry.
type Entry struct {
	ID        string         `json:"id"`
	Action    string         `json:"action"`
	Source    string         `json:"source"`
	Details   map[string]any `json:"details,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// Filter controls which entries List returns.
type Filter struct {
	Action string // optional: filter by action
	Limit  int    // default 50, max 200
}

// Repository defines the audit trail operations.
type Repository interface {
	Create(ctx context.Context, entry *Entry) error
	List(ctx context.Context, filter Filter) ([]Entry, error)
}

// SQLiteRepository stores entries in SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new audit repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Create inserts an entry. The ID and CreatedAt are generated if empty.
func (r *SQLiteRepository) Create(ctx context.Context, entry *Entry) error {
	if entry.ID == "" {
		entry.ID = "aud-" + uuid.NewString()[:8]
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	var detailsJSON *string
	if entry.Details != nil {
		b, err := json.Marshal(entry.Details)
		if err != nil {
			return fmt.Errorf("marshalling audit details: %w", err)
		}
		s := string(b)
		detailsJSON = &s
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO audit_logs (id, action, source, details, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		entry.ID, entry.Action, entry.Source, detailsJSON,
		entry.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("inserting audit log: %w", err)
	}
	return nil
}

// List returns entries matching the filter, most recent first.
func (r *SQLiteRepository) List(ctx context.Context, filter Filter) ([]Entry, error) {
	if filter.Limit <= 0 {
		filter.Limit = defaultListLimit
	}
	if filter.Limit > maxListLimit {
		filter.Limit = maxListLimit
	}

	query := "SELECT id, action, source, details, created_at FROM audit_logs"
	var args []any
	if filter.Action != "" {
		query += " WHERE action = ?"
		args = append(args, filter.Action)
	}
	query += " ORDER BY created_at DESC LIMIT ?"
	args = append(args, filter.Limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying audit logs: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		var detailsJSON sql.NullString
		var createdAt string

		if err := rows.Scan(&e.ID, &e.Action, &e.Source, &detailsJSON, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning audit log: %w", err)
		}

		if detailsJSON.Valid && detailsJSON.String != "" {
			var details map[string]any
			if json.Unmarshal([]byte(detailsJSON.String), &details) == nil {
				e.Details = details
			}
		}

		t, err := time.Parse(timeLayout, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing audit log timestamp %q: %w", createdAt, err)
		}
		e.CreatedAt = t

		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating audit logs: %w", err)
	}
	return entries, nil
}
