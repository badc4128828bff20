package audit

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/nerrad567/windowsensor/internal/infrastructure/database"
	_ "github.com/nerrad567/windowsensor/migrations" // registers embedded migrations
)

func openTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	ctx := context.Background()

	db, err := database.Open(ctx, database.Config{
		Path:        filepath.Join(t.TempDir(), "audit.db"),
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("database.Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // Test cleanup

	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return NewSQLiteRepository(db.DB)
}

func TestCreate_GeneratesIDAndTime(t *testing.T) {
	repo := openTestRepo(t)

	e := &Entry{Action: ActionUpdateRequested, Source: "mqtt"}
	if err := repo.Create(context.Background(), e); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if len(e.ID) != len("aud-")+8 {
		t.Errorf("ID = %q, want aud- plus 8 chars", e.ID)
	}
	if e.CreatedAt.IsZero() {
		t.Error("CreatedAt not set")
	}
}

func TestList_FilterAndOrder(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()
	base := time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)

	entries := []*Entry{
		{Action: ActionUpdateRequested, Source: "mqtt", CreatedAt: base, Details: map[string]any{"bytes": 1}},
		{Action: ActionPersistFailed, Source: "mqtt", CreatedAt: base.Add(time.Second)},
		{Action: ActionUpdateRequested, Source: "mqtt", CreatedAt: base.Add(2 * time.Second)},
	}
	for _, e := range entries {
		if err := repo.Create(ctx, e); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	all, err := repo.List(ctx, Filter{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("List() returned %d entries, want 3", len(all))
	}
	if all[0].ID != entries[2].ID {
		t.Errorf("first entry = %s, want most recent %s", all[0].ID, entries[2].ID)
	}

	requested, err := repo.List(ctx, Filter{Action: ActionUpdateRequested})
	if err != nil {
		t.Fatalf("List(filter) error = %v", err)
	}
	if len(requested) != 2 {
		t.Fatalf("List(filter) returned %d entries, want 2", len(requested))
	}
	// JSON numbers decode as float64.
	if got := requested[1].Details["bytes"]; got != float64(1) {
		t.Errorf("details bytes = %v, want 1", got)
	}

	limited, err := repo.List(ctx, Filter{Limit: 1})
	if err != nil {
		t.Fatalf("List(limit) error = %v", err)
	}
	if len(limited) != 1 {
		t.Errorf("List(limit) returned %d entries, want 1", len(limited))
	}
}

func TestList_Empty(t *testing.T) {
	repo := openTestRepo(t)

	got, err := repo.List(context.Background(), Filter{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("List() = %v, want empty non-nil slice", got)
	}
}
