// Package app wires configuration, storage, services and the HTTP server.
package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"invoicing/internal/adapter/external/exchange"
	"invoicing/internal/adapter/http/handlers"
	"invoicing/internal/adapter/http/middleware"
	"invoicing/internal/adapter/images"
	"invoicing/internal/adapter/jobs"
	"invoicing/internal/apperr"
	"invoicing/internal/catalog"
	"invoicing/internal/config"
	"invoicing/internal/envelope"
	"invoicing/internal/invoicing"
	"invoicing/internal/platform/httpclient"
	"invoicing/internal/platform/logger"
	"invoicing/internal/platform/telemetry"
)

const (
	serviceName     = "invoicing"
	shutdownTimeout = 10 * time.Second
	healthTimeout   = 5 * time.Second
	// Room for multipart headers around an image of the maximum size.
	multipartOverhead = 64 << 10
)

// App wires application components.
type App struct {
	cfg config.Config
	log *slog.Logger
}

// New loads configuration and builds the logger.
func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log := logger.New(logger.Options{
		Env:          cfg.Env,
		ConsoleLevel: cfg.Log.ConsoleLevel,
		FileLevel:    cfg.Log.FileLevel,
		File:         cfg.Log.File,
		App:          serviceName,
	})
	return &App{cfg: cfg, log: log}, nil
}

// Run serves HTTP until SIGINT or SIGTERM. Startup failures are logged with
// the same severity policy as request failures and returned.
func (a *App) Run() (err error) {
	defer func() { _ = logger.Close(a.log) }()
	defer func() {
		if err != nil {
			ae := apperr.Classify(err)
			a.log.Log(context.Background(), middleware.Severity(ae), "service stopped",
				slog.String("error_code", ae.Code()),
				slog.String("kind", ae.Kind().String()),
				slog.String("internal_error", ae.InternalMessage()))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a.log.Info("starting", slog.String("addr", a.cfg.HTTP.Addr), slog.String("db_driver", a.cfg.DB.Driver))

	tel, err := telemetry.Setup(ctx, serviceName)
	if err != nil {
		return apperr.NewConfiguration("telemetry", err.Error(), apperr.WithCause(err))
	}
	defer func() { _ = tel.Shutdown(context.Background()) }()
	metrics, err := telemetry.NewMetrics(tel.Meter())
	if err != nil {
		return apperr.NewConfiguration("telemetry", err.Error(), apperr.WithCause(err))
	}

	db, err := openStore(ctx, a.cfg, a.log)
	if err != nil {
		return err
	}
	defer func() { _ = db.store.Close() }()

	var rates invoicing.RateSource
	if a.cfg.Exchange.URL != "" {
		client := httpclient.New(
			httpclient.WithTimeout(a.cfg.Exchange.Timeout),
			httpclient.WithLogger(a.log),
			httpclient.WithRetries(2, 200*time.Millisecond),
		)
		rates = exchange.New(a.cfg.Exchange.URL, client, metrics)
	}

	h := handlers.New(
		catalog.New(db.store, images.New(a.cfg.Uploads.Dir, a.cfg.Uploads.MaxBytes)),
		invoicing.New(db.store, invoicing.Config{BaseCurrency: a.cfg.Exchange.BaseCurrency, Rates: rates}),
		a.cfg.Uploads.MaxBytes,
	)

	router := NewRouter(RouterConfig{
		Logger:         a.log,
		Metrics:        metrics,
		MetricsHandler: tel.Handler(),
		Health:         db.store,
		Handlers:       h,
		Builder:        envelope.NewBuilder(a.cfg.HelpBaseURL),
		Development:    a.cfg.Development(),
		Auth:           middleware.AuthConfig{Secret: []byte(a.cfg.Auth.Secret), Issuer: a.cfg.Auth.Issuer},
		RateLimit:      a.cfg.Auth.RateLimit,
		MaxBodyBytes:   a.cfg.Uploads.MaxBytes + multipartOverhead,
	})

	sched := jobs.New(ctx, jobs.Config{Logger: a.log, Metrics: metrics})
	if err := sched.Add("db-health", a.cfg.HealthCron, healthTimeout, jobs.HealthProbe(db.store, a.log)); err != nil {
		return err
	}
	if db.pool != nil {
		if err := sched.Add("pg-pool-stats", a.cfg.HealthCron, healthTimeout, poolStatsJob(db.pool, a.log)); err != nil {
			return err
		}
	}
	sched.Start()

	srv := &http.Server{
		Addr:              a.cfg.HTTP.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			_ = sched.Stop(context.Background())
			return apperr.NewConfiguration("HTTP_ADDR", "http server: "+err.Error(), apperr.WithCause(err))
		}
	}

	a.log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := sched.Stop(shutdownCtx); err != nil {
		a.log.Warn("scheduler stop", slog.Any("err", err))
	}
	return srv.Shutdown(shutdownCtx)
}
