package middleware

import (
	"context"
	"unicode"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Correlation headers, checked in this order.
const (
	HeaderCorrelationID = "X-Correlation-ID"
	HeaderRequestID     = "X-Request-ID"
)

const (
	traceIDKey    = "trace_id"
	maxTraceIDLen = 128
)

type traceIDCtxKey struct{}

// TraceIDFromContext extracts the trace id from a request context.
func TraceIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(traceIDCtxKey{}).(string)
	return id
}

// ContextWithTraceID stores the trace id in the context.
func ContextWithTraceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, traceIDCtxKey{}, id)
}

// RequestID assigns a trace id to each request. An incoming correlation id
// is reused when it looks sane; otherwise a UUID is generated. The id is
// echoed in X-Request-ID.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := resolveTraceID(c)
		c.Header(HeaderRequestID, id)
		c.Next()
	}
}

// TraceID returns the trace id of the request, assigning one if RequestID
// did not run.
func TraceID(c *gin.Context) string {
	if v, ok := c.Get(traceIDKey); ok {
		if id, ok := v.(string); ok && id != "" {
			return id
		}
	}
	return resolveTraceID(c)
}

func resolveTraceID(c *gin.Context) string {
	id := incomingID(c.GetHeader(HeaderCorrelationID))
	if id == "" {
		id = incomingID(c.GetHeader(HeaderRequestID))
	}
	if id == "" {
		id = uuid.New().String()
	}
	c.Set(traceIDKey, id)
	c.Request = c.Request.WithContext(ContextWithTraceID(c.Request.Context(), id))
	return id
}

func incomingID(v string) string {
	if v == "" || len(v) > maxTraceIDLen {
		return ""
	}
	for _, r := range v {
		if !unicode.IsPrint(r) || unicode.IsSpace(r) {
			return ""
		}
	}
	return v
}
