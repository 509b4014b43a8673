// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements bearer-token authentication and role gating. The
// Authenticate middleware verifies the JWT from the Authorization header,
// stores the caller's identity in the Gin context, and best-effort bumps
// their session rows for the active-sessions view. RequireAdmin gates the
// admin surface on the role claim.
package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/barinakhq/shelter-backend/internal/auth"
	"github.com/barinakhq/shelter-backend/internal/repo"
)

// Gin context keys set by Authenticate.
const (
	ctxKeyUserID   = "userID"
	ctxKeyUsername = "username"
	ctxKeyRole     = "role"
)

// UserID returns the authenticated user's id from the Gin context, or 0
// when the request is anonymous.
func UserID(c *gin.Context) uint {
	if v, ok := c.Get(ctxKeyUserID); ok {
		if id, ok := v.(uint); ok {
			return id
		}
	}
	return 0
}

// Role returns the authenticated user's role, or "" for anonymous requests.
func Role(c *gin.Context) string {
	if v, ok := c.Get(ctxKeyRole); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// Authenticate verifies the Bearer token on every request and aborts with
// 401 on a missing or invalid one. On success the user's id, username, and
// role are stored in the context and their session rows are touched
// asynchronously; session bookkeeping never delays or fails the request.
func Authenticate(m *auth.Manager, db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			unauthorized(c, "missing bearer token")
			return
		}

		claims, err := m.Verify(token)
		if err != nil {
			unauthorized(c, "invalid or expired token")
			return
		}

		c.Set(ctxKeyUserID, claims.UserID)
		c.Set(ctxKeyUsername, claims.Username)
		c.Set(ctxKeyRole, claims.Role)

		if db != nil {
			go func(userID uint) {
				ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				defer cancel()
				_ = repo.TouchSessions(ctx, db, userID)
			}(claims.UserID)
		}

		c.Next()
	}
}

// AuthenticateOptional verifies a Bearer token when one is present and
// stores the identity, but lets anonymous requests through. Used on public
// read endpoints that personalize (e.g. recording browsing history) without
// requiring login.
func AuthenticateOptional(m *auth.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token := bearerToken(c); token != "" {
			if claims, err := m.Verify(token); err == nil {
				c.Set(ctxKeyUserID, claims.UserID)
				c.Set(ctxKeyUsername, claims.Username)
				c.Set(ctxKeyRole, claims.Role)
			}
		}
		c.Next()
	}
}

// RequireAdmin aborts with 403 unless the authenticated caller is an admin.
// Must run after Authenticate.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if Role(c) != "admin" {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"request_id": c.Writer.Header().Get(requestIDHeader),
				"code":       "forbidden",
				"message":    "admin privileges required",
			})
			return
		}
		c.Next()
	}
}

// bearerToken extracts the token from "Authorization: Bearer <token>".
func bearerToken(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	if h == "" {
		return ""
	}
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// unauthorized aborts with a standard 401 envelope.
func unauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"request_id": c.Writer.Header().Get(requestIDHeader),
		"code":       "unauthorized",
		"message":    msg,
	})
}
