package auth

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// RequireAuth verifies a Bearer JWT (HS256) and injects "username" into the context.
// It returns 401 on missing/invalid token; 403 on claim validation failure.
func RequireAuth(cfg Config) gin.HandlerFunc {
	if cfg.Secret == "" {
		// Fail fast at startup: misconfiguration.
		panic("auth secret is required for RequireAuth middleware")
	}

	return func(c *gin.Context) {
		// 1) Extract Bearer token
		authz := c.GetHeader("Authorization")
		if !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		raw := strings.TrimSpace(authz[len("Bearer "):])
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "empty bearer token"})
			return
		}

		// 2) Parse + verify signature (HS256 only) and validate registered claims
		claims := &jwt.RegisteredClaims{}
		token, err := jwt.ParseWithClaims(
			raw,
			claims,
			func(t *jwt.Token) (any, error) {
				// Enforce HS256
				if t.Method != jwt.SigningMethodHS256 {
					return nil, errors.New("unexpected signing method")
				}
				return []byte(cfg.Secret), nil
			},
			jwt.WithLeeway(30*time.Second),
			jwt.WithIssuer(cfg.Issuer),
			jwt.WithAudience(cfg.Audience),
		)
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		// 3) Subject carries the authenticated API username
		if claims.Subject == "" {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "invalid subject"})
			return
		}

		// 4) Propagate identity to handlers
		c.Set("username", claims.Subject)

		// Continue to the handler
		c.Next()
	}
}
