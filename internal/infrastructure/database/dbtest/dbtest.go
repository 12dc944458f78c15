// Package dbtest opens migrated SQLite databases for tests.
package dbtest

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/eslsoft/vidya/internal/infrastructure/config"
	"github.com/eslsoft/vidya/internal/infrastructure/database"
)

// RequireSQLite skips the test when the cgo sqlite driver is unusable.
func RequireSQLite(t testing.TB) {
	t.Helper()
	db, err := sql.Open(config.DriverSQLite, "file::memory:?cache=shared")
	if err != nil {
		t.Skipf("sqlite driver not available: %v", err)
		return
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		t.Skipf("skipping sqlite-dependent tests: %v", err)
	}
}

// DSN returns a file DSN inside a fresh temp dir.
func DSN(t testing.TB, name string) string {
	t.Helper()
	return "file:" + filepath.Join(t.TempDir(), name+".db") + "?_fk=1"
}

// Open returns a migrated database at dsn, closed on cleanup.
func Open(t testing.TB, dsn string) *sql.DB {
	t.Helper()
	RequireSQLite(t)

	ctx := context.Background()
	db, err := database.OpenSQL(ctx, config.DriverSQLite, dsn)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := database.Migrate(ctx, config.DriverSQLite, db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}
