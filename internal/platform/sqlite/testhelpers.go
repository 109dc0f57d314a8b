package sqlite

import (
	"context"
	"database/sql"
	"io/fs"
	"testing"
)

// TestDB is an in-memory database bound to a test's lifetime.
type TestDB struct {
	DB       *sql.DB
	TxRunner *TxRunner
}

// NewTestDBInMemory opens an in-memory database, optionally migrated from
// dir of fsys, and closes it when the test ends.
func NewTestDBInMemory(t testing.TB, fsys fs.FS, dir string) *TestDB {
	t.Helper()

	db, err := NewInMemoryDB(context.Background())
	if err != nil {
		t.Fatalf("failed to create in-memory test DB: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if fsys != nil {
		if _, err := ApplyMigrationsFromFS(db, fsys, dir); err != nil {
			t.Fatalf("failed to apply test migrations: %v", err)
		}
	}

	return &TestDB{DB: db, TxRunner: NewTxRunner(db)}
}

// Exec runs query and fails the test on error.
func (tdb *TestDB) Exec(t testing.TB, query string, args ...any) sql.Result {
	t.Helper()

	res, err := tdb.DB.ExecContext(context.Background(), query, args...)
	if err != nil {
		t.Fatalf("failed to execute query: %v", err)
	}
	return res
}

// CountRows returns the number of rows in table.
func (tdb *TestDB) CountRows(t testing.TB, table string) int {
	t.Helper()

	var n int
	if err := tdb.DB.QueryRowContext(context.Background(), "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
		t.Fatalf("failed to count rows in %s: %v", table, err)
	}
	return n
}
