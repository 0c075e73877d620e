package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yashrajoria/pawmart/backend/services/common/auth"
	apperrors "github.com/yashrajoria/pawmart/backend/services/common/errors"
	"github.com/yashrajoria/pawmart/backend/services/storefront/models"
)

// Context keys set by the auth middleware.
const (
	UserIDKey = "userID"
	EmailKey  = "email"
	RoleKey   = "role"

	// TokenCookie carries the access token for browser clients.
	TokenCookie = "token"
)

// TokenParser validates access tokens.
type TokenParser interface {
	Parse(tokenStr, expectedType string) (*auth.Identity, error)
}

func bearerToken(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	if token, err := c.Cookie(TokenCookie); err == nil {
		return token
	}
	return ""
}

func setIdentity(c *gin.Context, id *auth.Identity) {
	c.Set(UserIDKey, id.UserID)
	c.Set(EmailKey, id.Email)
	c.Set(RoleKey, id.Role)
}

// RequireAuth rejects requests without a valid access token.
func RequireAuth(tokens TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearerToken(c)
		if raw == "" {
			apperrors.Respond(c, apperrors.Unauthorized("Authentication required"))
			return
		}
		id, err := tokens.Parse(raw, auth.TypeAccess)
		if err != nil {
			apperrors.Respond(c, apperrors.ErrInvalidToken)
			return
		}
		setIdentity(c, id)
		c.Next()
	}
}

// OptionalAuth identifies the caller when a valid token is present and lets
// guests through otherwise. An invalid token is treated as no token.
func OptionalAuth(tokens TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		if raw := bearerToken(c); raw != "" {
			if id, err := tokens.Parse(raw, auth.TypeAccess); err == nil {
				setIdentity(c, id)
			}
		}
		c.Next()
	}
}

// AdminOnly must run after RequireAuth.
func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		if Role(c) != models.RoleAdmin {
			apperrors.Respond(c, apperrors.Forbidden("Admin access required"))
			return
		}
		c.Next()
	}
}

// UserID returns the authenticated user's id, "" for guests.
func UserID(c *gin.Context) string { return c.GetString(UserIDKey) }

func Email(c *gin.Context) string { return c.GetString(EmailKey) }

func Role(c *gin.Context) string { return c.GetString(RoleKey) }

func IsAdmin(c *gin.Context) bool { return Role(c) == models.RoleAdmin }
