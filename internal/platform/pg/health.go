package pg

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const healthTimeout = 5 * time.Second

// HealthCheckPool pings the pool and runs a trivial query through it.
func HealthCheckPool(ctx context.Context, pool *pgxpool.Pool) error {
	if pool == nil {
		return errors.New("pool is nil")
	}

	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()

	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("pool ping failed: %w", err)
	}

	var result int
	if err := pool.QueryRow(ctx, "SELECT 1").Scan(&result); err != nil {
		return fmt.Errorf("simple query failed: %w", err)
	}
	if result != 1 {
		return fmt.Errorf("unexpected query result: got %d, want 1", result)
	}
	return nil
}

// Stats is a snapshot of pool usage.
type Stats struct {
	MaxConns  int32
	OpenConns int32
	InUse     int32
	Idle      int32
	WaitCount int64
}

// PoolStats snapshots pool counters. A nil pool yields zero stats.
func PoolStats(pool *pgxpool.Pool) Stats {
	if pool == nil {
		return Stats{}
	}
	s := pool.Stat()
	return Stats{
		MaxConns:  s.MaxConns(),
		OpenConns: s.TotalConns(),
		InUse:     s.AcquiredConns(),
		Idle:      s.IdleConns(),
		WaitCount: s.EmptyAcquireCount(),
	}
}

// Saturated reports whether more than 90% of the pool is checked out.
func (s Stats) Saturated() bool {
	if s.MaxConns == 0 {
		return false
	}
	return float64(s.InUse)/float64(s.MaxConns) > 0.9
}
