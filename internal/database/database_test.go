package database

import (
	"context"
	"path/filepath"
	"testing"
)

func TestOpen_InMemoryMigrates(t *testing.T) {
	db, err := Open(context.Background(), MemoryPath)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close() //nolint:errcheck

	for _, table := range []string{"settings", "shortcut_usage"} {
		var name string
		err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&name)
		if err != nil {
			t.Errorf("table %s missing: %v", table, err)
		}
	}
}

func TestOpen_CreatesParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "menubarmaid.db")
	db, err := Open(context.Background(), path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close() //nolint:errcheck

	if _, err := db.Exec(`INSERT INTO settings (key, value, updated_at) VALUES ('a', 'b', 'now')`); err != nil {
		t.Fatalf("insert: %v", err)
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	db, err := Open(context.Background(), MemoryPath)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close() //nolint:errcheck

	if err := Migrate(db); err != nil {
		t.Fatalf("second Migrate: %v", err)
	}
}
