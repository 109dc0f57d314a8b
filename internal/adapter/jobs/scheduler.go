// Package jobs runs background work on cron schedules. Job failures are
// classified and logged with the same severity policy as request failures.
package jobs

import (
	"context"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"invoicing/internal/adapter/http/middleware"
	"invoicing/internal/apperr"
)

// JobFunc is one run of a job.
type JobFunc func(ctx context.Context) error

// RunRecorder records job outcomes. Optional.
type RunRecorder interface {
	RecordJobRun(ctx context.Context, job, result string)
}

// Config configures a Scheduler.
type Config struct {
	Logger  *slog.Logger
	Metrics RunRecorder
}

// Scheduler wraps robfig/cron. Jobs never overlap with themselves.
type Scheduler struct {
	cron    *cron.Cron
	log     *slog.Logger
	metrics RunRecorder

	ctx      context.Context
	cancel   context.CancelFunc
	stopOnce sync.Once
}

// New creates a stopped scheduler whose jobs receive contexts derived from
// parent.
func New(parent context.Context, cfg Config) *Scheduler {
	log := cfg.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	ctx, cancel := context.WithCancel(parent)
	cl := cronLogger{logger: log.With("component", "cron")}

	return &Scheduler{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithLogger(cl),
			cron.WithChain(cron.SkipIfStillRunning(cl)),
		),
		log:     log,
		metrics: cfg.Metrics,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Add schedules job under name. Descriptors such as "@every 1m" are
// accepted along with six-field cron specs.
func (s *Scheduler) Add(name, schedule string, timeout time.Duration, job JobFunc) error {
	_, err := s.cron.AddFunc(schedule, func() { s.Run(name, timeout, job) })
	if err != nil {
		return apperr.NewConfiguration("schedule:"+name, "invalid schedule "+schedule,
			apperr.WithCause(err))
	}
	s.log.Info("job scheduled", "name", name, "schedule", schedule)
	return nil
}

// Start starts the cron loop.
func (s *Scheduler) Start() {
	s.log.Info("starting scheduler")
	s.cron.Start()
}

// Stop cancels running jobs and waits for them, or for ctx.
func (s *Scheduler) Stop(ctx context.Context) error {
	var err error
	s.stopOnce.Do(func() {
		s.cancel()
		done := s.cron.Stop().Done()
		select {
		case <-done:
			s.log.Info("scheduler stopped")
		case <-ctx.Done():
			s.log.Warn("scheduler stop deadline exceeded")
			err = ctx.Err()
		}
	})
	return err
}

// Run executes job once with panic recovery, timeout and outcome logging.
func (s *Scheduler) Run(name string, timeout time.Duration, job JobFunc) {
	ctx := s.ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	err := s.call(ctx, job)
	dur := time.Since(start)

	result := "ok"
	if err != nil {
		result = "error"
		s.logFailure(ctx, name, err, dur)
	} else {
		s.log.DebugContext(ctx, "job completed", "name", name, "duration", dur)
	}
	if s.metrics != nil {
		s.metrics.RecordJobRun(ctx, name, result)
	}
}

func (s *Scheduler) call(ctx context.Context, job JobFunc) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = apperr.FromPanic(r, debug.Stack())
		}
	}()
	return job(ctx)
}

func (s *Scheduler) logFailure(ctx context.Context, name string, err error, dur time.Duration) {
	ae := apperr.Classify(err)
	level := middleware.Severity(ae)

	attrs := []slog.Attr{
		slog.String("name", name),
		slog.String("error_code", ae.Code()),
		slog.String("kind", ae.Kind().String()),
		slog.String("internal_error", ae.Error()),
		slog.Duration("duration", dur),
	}
	if ge, ok := ae.(*apperr.GenericError); ok && level >= slog.LevelError {
		attrs = append(attrs, slog.String("stack", ge.StackTrace()))
	}
	s.log.LogAttrs(ctx, level, "job failed", attrs...)
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, append([]any{"error", err}, keysAndValues...)...)
}
