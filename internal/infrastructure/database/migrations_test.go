package database

import (
	"context"
	"embed"
	"testing"
	"time"
)

//go:embed testdata/*
var testMigrationsFS embed.FS

// useTestMigrations points the loader at the testdata files for the
// duration of one test.
func useTestMigrations(t *testing.T) {
	t.Helper()
	origFS, origDir := MigrationsFS, MigrationsDir
	t.Cleanup(func() {
		MigrationsFS = origFS
		MigrationsDir = origDir
	})
	MigrationsFS = testMigrationsFS
	MigrationsDir = "testdata"
}

func TestMigrate(t *testing.T) {
	useTestMigrations(t)
	db := openTestDB(t)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	for _, table := range []string{"first_table", "second_table"} {
		var name string
		err := db.QueryRowContext(ctx,
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %s not created: %v", table, err)
		}
	}

	pending, err := db.PendingMigrations(ctx)
	if err != nil {
		t.Fatalf("PendingMigrations() error = %v", err)
	}
	if pending != 0 {
		t.Errorf("pending = %d, want 0", pending)
	}

	// Re-running is idempotent.
	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("second Migrate() error = %v", err)
	}
}

func TestMigrate_NoEmbeddedFiles(t *testing.T) {
	origFS, origDir := MigrationsFS, MigrationsDir
	t.Cleanup(func() {
		MigrationsFS = origFS
		MigrationsDir = origDir
	})
	MigrationsFS = embed.FS{}

	db := openTestDB(t)
	if err := db.Migrate(context.Background()); err != nil {
		t.Errorf("Migrate() with no embedded files error = %v", err)
	}
}

func TestParseMigrationFilename(t *testing.T) {
	tests := []struct {
		in          string
		wantVersion string
		wantDesc    string
		wantOK      bool
	}{
		{"20260801_120000_audit_log.up.sql", "20260801_120000", "audit_log", true},
		{"20260801_120100_input_samples.up.sql", "20260801_120100", "input_samples", true},
		{"notes.txt", "", "", false},
		{"20260801_120000.up.sql", "", "", false},
		{"20260801_120000_x.down.sql", "", "", false},
	}

	for _, tt := range tests {
		version, desc, ok := parseMigrationFilename(tt.in)
		if version != tt.wantVersion || desc != tt.wantDesc || ok != tt.wantOK {
			t.Errorf("parseMigrationFilename(%q) = (%q, %q, %v), want (%q, %q, %v)",
				tt.in, version, desc, ok, tt.wantVersion, tt.wantDesc, tt.wantOK)
		}
	}
}
