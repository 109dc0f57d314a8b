package middleware

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"invoicing/internal/apperr"
)

// RuleRateLimited is raised when a caller sends requests too quickly.
const RuleRateLimited = "RATE_LIMITED"

const pruneThreshold = 10000

// RateLimiter enforces a minimum interval between requests of one caller.
type RateLimiter struct {
	mu       sync.Mutex
	last     map[string]time.Time
	interval time.Duration
	now      func() time.Time
}

// NewRateLimiter creates a limiter allowing one request per interval.
func NewRateLimiter(interval time.Duration) *RateLimiter {
	return &RateLimiter{last: make(map[string]time.Time), interval: interval, now: time.Now}
}

// Allow returns false if key was seen less than one interval ago.
func (r *RateLimiter) Allow(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if t, ok := r.last[key]; ok && now.Sub(t) < r.interval {
		return false
	}
	r.last[key] = now

	if len(r.last) > pruneThreshold {
		for k, t := range r.last {
			if now.Sub(t) >= r.interval {
				delete(r.last, k)
			}
		}
	}
	return true
}

// Middleware limits authenticated callers by subject and anonymous ones by
// client IP. It belongs after Auth.
func (r *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := "ip:" + c.ClientIP()
		if p, ok := PrincipalFromContext(c.Request.Context()); ok {
			key = "sub:" + p.Subject
		}
		if !r.Allow(key) {
			abortWith(c, apperr.NewBusinessRule(RuleRateLimited, "too many requests from "+key,
				apperr.WithUserMessage("Demasiadas solicitudes. Intente nuevamente en unos instantes"),
				apperr.WithData(map[string]any{"retryAfterMs": r.interval.Milliseconds()})))
			return
		}
		c.Next()
	}
}
