package dbtest

import (
	"database/sql"
	"path/filepath"
	"testing"

	"propertyhub/pkg/database"
)

// Open returns a migrated database in a fresh temp dir, closed on cleanup.
func Open(t testing.TB) *sql.DB {
	t.Helper()

	db, err := database.Open(database.Config{Path: filepath.Join(t.TempDir(), "test.db")})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}
