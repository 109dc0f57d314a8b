package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"invoicing/internal/apperr"
	"invoicing/internal/envelope"
	"invoicing/internal/platform/logger"
)

const contentTypeJSON = "application/json; charset=utf-8"

// fallbackBody is written when the envelope itself can not be produced.
var fallbackBody = []byte(`{"errorCode":"INTERNAL_SERVER_ERROR","message":"Ha ocurrido un error interno en el servidor","details":[],"timestamp":null,"traceId":null,"helpUrl":null}`)

// ErrorRecorder counts failed requests. Optional.
type ErrorRecorder interface {
	RecordError(ctx context.Context, code, kind, severity string)
}

// BoundaryConfig configures ErrorBoundary.
type BoundaryConfig struct {
	Logger      *slog.Logger
	Builder     *envelope.Builder
	Development bool
	Metrics     ErrorRecorder
}

type boundary struct {
	log     *slog.Logger
	builder *envelope.Builder
	dev     bool
	metrics ErrorRecorder
}

// ErrorBoundary is the single place where request failures are turned into
// responses. Handlers report failures with c.Error (the last one wins) or by
// panicking. The boundary logs once per failure and writes exactly one
// envelope. It never panics itself.
func ErrorBoundary(cfg BoundaryConfig) gin.HandlerFunc {
	b := &boundary{log: cfg.Logger, builder: cfg.Builder, dev: cfg.Development, metrics: cfg.Metrics}
	if b.log == nil {
		b.log = slog.New(slog.DiscardHandler)
	}
	if b.builder == nil {
		b.builder = envelope.NewBuilder("")
	}

	return func(c *gin.Context) {
		traceID := TraceID(c)

		if panicked := b.next(c); panicked != nil {
			b.handle(c, panicked, traceID)
			return
		}
		if last := c.Errors.Last(); last != nil {
			b.handle(c, apperr.Classify(last.Err), traceID)
		}
	}
}

func (b *boundary) next(c *gin.Context) (panicked apperr.Error) {
	defer func() {
		if r := recover(); r != nil {
			panicked = apperr.FromPanic(r, debug.Stack())
		}
	}()
	c.Next()
	return nil
}

func (b *boundary) handle(c *gin.Context, err apperr.Error, traceID string) {
	defer func() {
		if r := recover(); r != nil {
			quietly(func() {
				b.log.Error("error boundary failed", slog.Any("panic", r), slog.String("trace_id", traceID))
			})
			if !c.Writer.Written() {
				c.Data(http.StatusInternalServerError, contentTypeJSON, fallbackBody)
			}
			c.Abort()
		}
	}()

	ctx := c.Request.Context()
	level := Severity(err)
	quietly(func() { b.logFailure(c, err, level, traceID) })
	if b.metrics != nil {
		quietly(func() { b.metrics.RecordError(ctx, err.Code(), err.Kind().String(), SeverityName(level)) })
	}

	if c.Writer.Written() || ctx.Err() != nil {
		c.Abort()
		return
	}

	status, body := b.render(err, traceID)
	c.Data(status, contentTypeJSON, body)
	c.Abort()
}

// quietly runs fn and drops any panic it raises.
func quietly(fn func()) {
	defer func() { _ = recover() }()
	fn()
}

func (b *boundary) render(err apperr.Error, traceID string) (status int, body []byte) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("error envelope construction panicked",
				slog.Any("panic", r),
				slog.String("error_code", err.Code()),
				slog.String("trace_id", traceID),
			)
			status, body = http.StatusInternalServerError, fallbackBody
		}
	}()

	env := b.builder.Build(err, b.dev, traceID)
	data, mErr := envelope.Marshal(env)
	if mErr != nil {
		b.log.Error("error envelope serialization failed",
			slog.String("error", mErr.Error()),
			slog.String("error_code", err.Code()),
			slog.String("trace_id", traceID),
		)
		return http.StatusInternalServerError, fallbackBody
	}
	return err.HTTPStatus(), data
}

func (b *boundary) logFailure(c *gin.Context, err apperr.Error, level slog.Level, traceID string) {
	attrs := []slog.Attr{
		slog.String("error_code", err.Code()),
		slog.String("path", c.Request.URL.Path),
		slog.String("method", c.Request.Method),
		slog.String("message", err.UserMessage()),
		slog.String("trace_id", traceID),
		slog.Int("status", err.HTTPStatus()),
		slog.String("kind", err.Kind().String()),
		slog.String("internal_error", err.Error()),
	}
	if data := err.AdditionalData(); data != nil {
		attrs = append(attrs, slog.Any("data", data))
	}
	if g, ok := err.(*apperr.GenericError); ok && level >= slog.LevelError && g.StackTrace() != "" {
		attrs = append(attrs, slog.String("stack", g.StackTrace()))
	}
	b.log.LogAttrs(c.Request.Context(), level, "request failed", attrs...)
}

// Severity selects the log level of a failure from its kind alone.
func Severity(err apperr.Error) slog.Level {
	switch e := err.(type) {
	case *apperr.ValidationError, *apperr.BusinessRuleError, *apperr.ConflictError,
		*apperr.UnauthorizedError, *apperr.ForbiddenError, *apperr.ImageProcessingError:
		return slog.LevelWarn
	case *apperr.NotFoundError:
		return slog.LevelInfo
	case *apperr.DatabaseError, *apperr.ExternalServiceError, *apperr.FileOperationError:
		return slog.LevelError
	case *apperr.ConfigurationError:
		return logger.LevelCritical
	case *apperr.GenericError:
		if e.SubKind() != apperr.SubKindUnclassified {
			return slog.LevelWarn
		}
		return slog.LevelError
	}
	return slog.LevelError
}

// SeverityName renders a level for metric labels.
func SeverityName(level slog.Level) string {
	if level >= logger.LevelCritical {
		return "CRITICAL"
	}
	return level.String()
}

// Handle adapts an error-returning handler. A returned error is recorded
// on the context for the boundary and the chain is aborted.
func Handle(fn func(*gin.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := fn(c); err != nil {
			_ = c.Error(err)
			c.Abort()
		}
	}
}

// NoRoute reports unknown paths as a missing Route resource.
func NoRoute() gin.HandlerFunc {
	return func(c *gin.Context) {
		_ = c.Error(apperr.NewNotFound("Route", c.Request.URL.Path,
			apperr.WithUserMessage("La ruta solicitada no existe")))
	}
}

// NoMethod reports a known path called with the wrong method.
func NoMethod() gin.HandlerFunc {
	return func(c *gin.Context) {
		_ = c.Error(apperr.NewInvalidOperation(
			fmt.Sprintf("method %s not allowed on %s", c.Request.Method, c.Request.URL.Path),
			apperr.WithUserMessage("El método no está permitido para este recurso")))
	}
}
