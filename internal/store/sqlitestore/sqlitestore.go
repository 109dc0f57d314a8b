// Package sqlitestore implements store.Store over the embedded SQLite
// database.
package sqlitestore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"invoicing/internal/platform/sqlite"
	"invoicing/internal/store"
)

const timeLayout = time.RFC3339Nano

// Store is the SQLite implementation of store.Store.
type Store struct {
	db  *sql.DB
	tx  *sqlite.TxRunner
	now func() time.Time
}

var _ store.Store = (*Store)(nil)

// New wraps an already migrated database.
func New(db *sql.DB) *Store {
	return &Store{db: db, tx: sqlite.NewTxRunner(db), now: time.Now}
}

// Open opens the database at path and applies the embedded migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sqlite.NewDB(ctx, path)
	if err != nil {
		return nil, err
	}
	if _, err := sqlite.ApplyMigrationsFromFS(db, store.Migrations, store.SQLiteMigrations); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate sqlite: %w", err)
	}
	return New(db), nil
}

func (s *Store) Ping(ctx context.Context) error {
	return store.Translate("ping", s.db.PingContext(ctx))
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) q(ctx context.Context) sqlite.Querier { return s.tx.GetQuerier(ctx) }

func (s *Store) stamp() string { return s.now().UTC().Format(timeLayout) }

func parseTime(v string) time.Time {
	t, err := time.Parse(timeLayout, v)
	if err != nil {
		return time.Time{}
	}
	return t
}
