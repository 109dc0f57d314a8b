package middleware

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"invoicing/internal/apperr"
)

const (
	principalKey  = "principal"
	maxClockSkew  = 30 * time.Second
	signingMethod = "HS256"
)

// Principal is the authenticated caller.
type Principal struct {
	Subject     string
	Permissions []string
}

// Has reports whether the principal holds perm.
func (p Principal) Has(perm string) bool {
	return slices.Contains(p.Permissions, perm)
}

// Claims are the token claims understood by Auth.
type Claims struct {
	Permissions []string `json:"permissions"`
	jwt.RegisteredClaims
}

type principalCtxKey struct{}

// PrincipalFromContext extracts the authenticated principal from a request context.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalCtxKey{}).(Principal)
	return p, ok
}

// AuthConfig configures Auth.
type AuthConfig struct {
	Secret []byte
	Issuer string // optional
}

// Auth validates HS256 Bearer tokens. Failures are reported to the error
// boundary as Unauthorized errors.
func Auth(cfg AuthConfig) gin.HandlerFunc {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{signingMethod}),
		jwt.WithLeeway(maxClockSkew),
		jwt.WithExpirationRequired(),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	parser := jwt.NewParser(opts...)

	return func(c *gin.Context) {
		tokenStr, ok := extractBearerToken(c.GetHeader("Authorization"))
		if !ok {
			abortWith(c, apperr.NewUnauthorized("missing or malformed authorization header"))
			return
		}

		claims := &Claims{}
		token, err := parser.ParseWithClaims(tokenStr, claims, func(*jwt.Token) (any, error) {
			return cfg.Secret, nil
		})
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			abortWith(c, apperr.NewUnauthorized("token expired", apperr.WithCause(err),
				apperr.WithUserMessage("La sesión ha expirado. Inicie sesión nuevamente")))
			return
		case err != nil:
			abortWith(c, apperr.NewUnauthorized("invalid token", apperr.WithCause(err)))
			return
		case !token.Valid:
			abortWith(c, apperr.NewUnauthorized("invalid token"))
			return
		}

		sub, _ := claims.GetSubject()
		if sub == "" {
			abortWith(c, apperr.NewUnauthorized("token without subject"))
			return
		}

		p := Principal{Subject: sub, Permissions: claims.Permissions}
		c.Set(principalKey, p)
		c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), principalCtxKey{}, p))
		c.Next()
	}
}

// RequirePermission rejects principals that lack perm with a Forbidden
// error. It must run after Auth.
func RequirePermission(perm string) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := PrincipalFromContext(c.Request.Context())
		if !ok {
			abortWith(c, apperr.NewUnauthorized("no authenticated principal"))
			return
		}
		if !p.Has(perm) {
			abortWith(c, apperr.NewForbidden(perm, apperr.WithData(map[string]any{"subject": p.Subject})))
			return
		}
		c.Next()
	}
}

func abortWith(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

func extractBearerToken(header string) (string, bool) {
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", false
	}
	return strings.TrimSpace(parts[1]), true
}
