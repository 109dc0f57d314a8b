// Package pgstore implements store.Store over PostgreSQL with pgx.
package pgstore

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"invoicing/internal/platform/pg"
	"invoicing/internal/store"
)

// Store is the Postgres implementation of store.Store.
type Store struct {
	pool *pgxpool.Pool
	tx   *pg.TxRunner
}

var _ store.Store = (*Store)(nil)

// New wraps a pool whose schema is already migrated.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool, tx: pg.NewTxRunner(pool)}
}

func (s *Store) Ping(ctx context.Context) error {
	return store.Translate("ping", pg.HealthCheckPool(ctx, s.pool))
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func (s *Store) q(ctx context.Context) pg.Querier { return s.tx.GetQuerier(ctx) }

type scanner interface {
	Scan(dest ...any) error
}
