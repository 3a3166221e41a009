package audit

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/nerrad567/fertigate-core/internal/infrastructure/database"
)

func newTestRecorder(t *testing.T) *Recorder {
	t.Helper()

	db, err := database.Open(database.Config{
		Path:        filepath.Join(t.TempDir(), "audit.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.ExecContext(context.Background(), `
		CREATE TABLE audit_log (
			id          TEXT PRIMARY KEY,
			action      TEXT NOT NULL,
			resource    TEXT NOT NULL,
			resource_id TEXT,
			username    TEXT,
			source      TEXT NOT NULL,
			details     TEXT,
			created_at  TEXT NOT NULL
		)
	`)
	if err != nil {
		t.Fatalf("creating audit_log table: %v", err)
	}

	return NewRecorder(db.DB)
}

func TestRecorder_RecordAndList(t *testing.T) {
	r := newTestRecorder(t)
	ctx := context.Background()

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	entries := []Entry{
		{Action: ActionLogin, Resource: "session", Username: "grower", Source: "api", CreatedAt: base},
		{Action: ActionCreate, Resource: "schedule", ResourceID: "Feed_1700000000", Username: "grower",
			Source: "api", Details: map[string]any{"scheduleName": "Feed"}, CreatedAt: base.Add(time.Minute)},
		{Action: ActionOutputCommand, Resource: "output", ResourceID: "RLY3", Username: "grower",
			Source: "mqtt", CreatedAt: base.Add(2 * time.Minute)},
	}
	for _, e := range entries {
		if err := r.Record(ctx, e); err != nil {
			t.Fatalf("Record(%s) error = %v", e.Action, err)
		}
	}

	res, err := r.List(ctx, Filter{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if res.Total != 3 || len(res.Entries) != 3 {
		t.Fatalf("List() total = %d, entries = %d; want 3, 3", res.Total, len(res.Entries))
	}
	// Newest first.
	if res.Entries[0].Action != ActionOutputCommand {
		t.Errorf("first entry action = %q, want output_command", res.Entries[0].Action)
	}
	if res.Entries[0].ID == "" {
		t.Error("Record() left ID empty")
	}

	got := res.Entries[1]
	if got.Details["scheduleName"] != "Feed" {
		t.Errorf("details round trip = %v", got.Details)
	}
	if !got.CreatedAt.Equal(base.Add(time.Minute)) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, base.Add(time.Minute))
	}
}

func TestRecorder_ListFilters(t *testing.T) {
	r := newTestRecorder(t)
	ctx := context.Background()

	seed := []Entry{
		{Action: ActionLogin, Resource: "session", Username: "alice", Source: "api"},
		{Action: ActionLogin, Resource: "session", Username: "bob", Source: "api"},
		{Action: ActionDelete, Resource: "schedule", ResourceID: "x_1", Username: "alice", Source: "api"},
	}
	for _, e := range seed {
		if err := r.Record(ctx, e); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}

	res, err := r.List(ctx, Filter{Action: ActionLogin})
	if err != nil {
		t.Fatalf("List(action) error = %v", err)
	}
	if res.Total != 2 {
		t.Errorf("action filter total = %d, want 2", res.Total)
	}

	res, err = r.List(ctx, Filter{Username: "alice"})
	if err != nil {
		t.Fatalf("List(username) error = %v", err)
	}
	if res.Total != 2 {
		t.Errorf("username filter total = %d, want 2", res.Total)
	}

	res, err = r.List(ctx, Filter{Resource: "schedule", Username: "alice"})
	if err != nil {
		t.Fatalf("List(combined) error = %v", err)
	}
	if res.Total != 1 || res.Entries[0].ResourceID != "x_1" {
		t.Errorf("combined filter = %+v", res)
	}
}

func TestRecorder_ListPagination(t *testing.T) {
	r := newTestRecorder(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		e := Entry{
			Action: ActionUpdate, Resource: "schedule", Source: "api",
			CreatedAt: time.Date(2026, 8, 1, 12, i, 0, 0, time.UTC),
		}
		if err := r.Record(ctx, e); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}

	res, err := r.List(ctx, Filter{Limit: 2, Offset: 2})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if res.Total != 5 || len(res.Entries) != 2 {
		t.Errorf("page total = %d, entries = %d; want 5, 2", res.Total, len(res.Entries))
	}

	// Limit clamps at 200.
	res, err = r.List(ctx, Filter{Limit: 1000})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if res.Limit != 200 {
		t.Errorf("clamped limit = %d, want 200", res.Limit)
	}
}
