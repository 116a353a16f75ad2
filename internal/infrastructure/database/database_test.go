package database

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/meimefarm/greenhouse-core/internal/infrastructure/config"
)

func testDBConfig(t *testing.T) config.DatabaseConfig {
	t.Helper()
	return config.DatabaseConfig{
		Path:        filepath.Join(t.TempDir(), "greenhouse.db"),
		WALMode:     true,
		BusyTimeout: 5,
	}
}

func TestOpen(t *testing.T) {
	cfg := testDBConfig(t)

	db, err := Open(cfg)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer db.Close()

	if db.Path() != cfg.Path {
		t.Errorf("Path() = %q, want %q", db.Path(), cfg.Path)
	}
	if _, err := os.Stat(filepath.Dir(cfg.Path)); err != nil {
		t.Errorf("database directory not created: %v", err)
	}
}

func TestOpen_CreatesNestedDirectory(t *testing.T) {
	cfg := config.DatabaseConfig{
		Path:        filepath.Join(t.TempDir(), "nested", "dir", "greenhouse.db"),
		BusyTimeout: 5,
	}

	db, err := Open(cfg)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	db.Close()
}

func TestHealthCheck(t *testing.T) {
	db, err := Open(testDBConfig(t))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	if err := db.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
}

func TestClose_Idempotent(t *testing.T) {
	db := &DB{}
	if err := db.Close(); err != nil {
		t.Errorf("Close() on zero DB error = %v, want nil", err)
	}
}

func TestMigrate_NoEmbeddedFS(t *testing.T) {
	db, err := Open(testDBConfig(t))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	// With no migrations registered, Migrate still creates the tracking
	// table and succeeds.
	if err := db.Migrate(context.Background()); err != nil {
		t.Errorf("Migrate() error = %v", err)
	}

	var count int
	err = db.QueryRowContext(context.Background(),
		"SELECT COUNT(*) FROM schema_migrations").Scan(&count)
	if err != nil {
		t.Fatalf("schema_migrations table missing: %v", err)
	}
	if count != 0 {
		t.Errorf("applied migrations = %d, want 0", count)
	}
}

func TestParseMigrationFilename(t *testing.T) {
	tests := []struct {
		filename    string
		wantVersion string
		wantName    string
		wantOK      bool
	}{
		{"20260301_100000_alert_history.up.sql", "20260301_100000", "alert_history", true},
		{"20260301_100000_alert_history.down.sql", "", "", false},
		{"readme.md", "", "", false},
		{"malformed.up.sql", "", "", false},
	}

	for _, tt := range tests {
		version, name, ok := parseMigrationFilename(tt.filename)
		if ok != tt.wantOK || version != tt.wantVersion || name != tt.wantName {
			t.Errorf("parseMigrationFilename(%q) = (%q, %q, %v), want (%q, %q, %v)",
				tt.filename, version, name, ok, tt.wantVersion, tt.wantName, tt.wantOK)
		}
	}
}
