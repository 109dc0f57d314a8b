package app

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"invoicing/internal/adapter/http/handlers"
	"invoicing/internal/adapter/http/middleware"
	"invoicing/internal/adapter/jobs"
	"invoicing/internal/envelope"
)

// Recorder is the metrics surface the router feeds.
type Recorder interface {
	middleware.RequestRecorder
	middleware.ErrorRecorder
}

// RouterConfig holds the router dependencies. Metrics and MetricsHandler
// may be nil.
type RouterConfig struct {
	Logger         *slog.Logger
	Metrics        Recorder
	MetricsHandler http.Handler
	Health         jobs.Pinger
	Handlers       *handlers.Handlers
	Builder        *envelope.Builder
	Development    bool
	Auth           middleware.AuthConfig
	// RateLimit is the minimum interval between guarded requests of one
	// caller; zero disables the limiter.
	RateLimit time.Duration
	// MaxBodyBytes caps request bodies; zero means no cap.
	MaxBodyBytes int64
}

// NewRouter builds the engine. Middleware runs in the order RequestID,
// AccessLog, Metrics, ErrorBoundary; Auth and the rate limiter are applied
// per route group.
func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true

	var requests middleware.RequestRecorder
	var errs middleware.ErrorRecorder
	if cfg.Metrics != nil {
		requests, errs = cfg.Metrics, cfg.Metrics
	}

	r.Use(
		middleware.RequestID(),
		middleware.AccessLog(cfg.Logger),
		middleware.Metrics(requests),
		middleware.ErrorBoundary(middleware.BoundaryConfig{
			Logger:      cfg.Logger,
			Builder:     cfg.Builder,
			Development: cfg.Development,
			Metrics:     errs,
		}),
	)
	if cfg.MaxBodyBytes > 0 {
		r.Use(middleware.MaxBodySize(cfg.MaxBodyBytes))
	}
	r.NoRoute(middleware.NoRoute())
	r.NoMethod(middleware.NoMethod())

	r.GET("/healthz", middleware.Handle(func(c *gin.Context) error {
		if err := cfg.Health.Ping(c.Request.Context()); err != nil {
			return err
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
		return nil
	}))
	if cfg.MetricsHandler != nil {
		r.GET("/metrics", gin.WrapH(cfg.MetricsHandler))
	}

	guard := []gin.HandlerFunc{middleware.Auth(cfg.Auth)}
	if cfg.RateLimit > 0 {
		guard = append(guard, middleware.NewRateLimiter(cfg.RateLimit).Middleware())
	}
	cfg.Handlers.Register(r, guard...)
	return r
}
