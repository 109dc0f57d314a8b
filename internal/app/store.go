package app

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"invoicing/internal/adapter/jobs"
	"invoicing/internal/apperr"
	"invoicing/internal/config"
	"invoicing/internal/platform/pg"
	"invoicing/internal/store"
	"invoicing/internal/store/pgstore"
	"invoicing/internal/store/sqlitestore"
	"invoicing/pkg/retry"
)

type openedStore struct {
	store store.Store
	pool  *pgxpool.Pool // nil for sqlite
}

// openStore connects to the configured database and migrates it. Postgres
// connections are retried while the server comes up.
func openStore(ctx context.Context, cfg config.Config, log *slog.Logger) (openedStore, error) {
	if cfg.DB.Driver != config.DriverPostgres {
		s, err := sqlitestore.Open(ctx, cfg.DB.SQLitePath)
		if err != nil {
			return openedStore{}, apperr.NewDatabase("open", err.Error(), apperr.WithCause(err))
		}
		log.Info("sqlite ready", slog.String("path", cfg.DB.SQLitePath))
		return openedStore{store: s}, nil
	}

	rc := retry.DefaultConfig()
	rc.MaxElapsedTime = time.Minute
	rc.OnRetry = func(attempt int, err error, next time.Duration) {
		log.Warn("postgres not ready", slog.Int("attempt", attempt),
			slog.Duration("retry_in", next), slog.Any("err", err))
	}
	var pool *pgxpool.Pool
	err := retry.DoWithRetryable(ctx, rc, func(ctx context.Context) error {
		var err error
		pool, err = pg.NewPool(ctx, cfg.DB.URL)
		return err
	}, postgresRetryable)
	if err != nil {
		return openedStore{}, apperr.NewDatabase("connect", err.Error(), apperr.WithCause(err))
	}

	info, err := pg.ApplyMigrationsFromFS(cfg.DB.URL, store.Migrations, store.PostgresMigrations)
	if err != nil {
		pool.Close()
		return openedStore{}, apperr.NewDatabase("migrate", err.Error(), apperr.WithCause(err))
	}
	log.Info("postgres ready",
		slog.Bool("migrated", info.Applied),
		slog.Uint64("schema_version", uint64(info.FinalVersion)))

	return openedStore{store: pgstore.New(pool), pool: pool}, nil
}

// SQLSTATEs a starting or overloaded server answers with.
var transientStates = map[string]struct{}{
	"57P03": {}, // cannot_connect_now
	"53300": {}, // too_many_connections
	"57P01": {}, // admin_shutdown
}

// postgresRetryable retries network failures and transient server states.
// Any other server error (bad credentials, unknown database) is final.
func postgresRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		_, ok := transientStates[pgErr.Code]
		return ok
	}
	return retry.DefaultRetryable(err)
}

// poolStatsJob logs pool usage and warns when the pool is nearly exhausted.
func poolStatsJob(pool *pgxpool.Pool, log *slog.Logger) jobs.JobFunc {
	return func(ctx context.Context) error {
		st := pg.PoolStats(pool)
		attrs := []any{
			slog.Int("max", int(st.MaxConns)),
			slog.Int("open", int(st.OpenConns)),
			slog.Int("in_use", int(st.InUse)),
			slog.Int("idle", int(st.Idle)),
			slog.Int64("waits", st.WaitCount),
		}
		if st.Saturated() {
			log.WarnContext(ctx, "postgres pool saturated", attrs...)
			return nil
		}
		log.DebugContext(ctx, "postgres pool", attrs...)
		return nil
	}
}
