package middleware

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
)

// RequestRecorder records HTTP request metrics.
type RequestRecorder interface {
	RecordHTTPRequest(ctx context.Context, method, route string, status int, durationSec float64)
}

// Metrics records one observation per request, labelled by route template.
// A nil recorder disables it.
func Metrics(m RequestRecorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		if m != nil {
			m.RecordHTTPRequest(c.Request.Context(), c.Request.Method, c.FullPath(), c.Writer.Status(),
				time.Since(start).Seconds())
		}
	}
}
