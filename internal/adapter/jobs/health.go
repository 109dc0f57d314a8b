package jobs

import (
	"context"
	"log/slog"
)

// Pinger is anything with a connectivity check, such as store.Store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthProbe returns a job that pings p. Errors are returned to the
// scheduler, which classifies and logs them.
func HealthProbe(p Pinger, log *slog.Logger) JobFunc {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return func(ctx context.Context) error {
		if err := p.Ping(ctx); err != nil {
			return err
		}
		log.DebugContext(ctx, "database healthy")
		return nil
	}
}
