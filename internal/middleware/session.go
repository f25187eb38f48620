package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/chilahati-archive-api/internal/models"
	appErrors "github.com/noah-isme/chilahati-archive-api/pkg/errors"
	"github.com/noah-isme/chilahati-archive-api/pkg/logger"
	"github.com/noah-isme/chilahati-archive-api/pkg/response"
)

// ContextUserKey is the gin context key storing session claims.
const ContextUserKey = "currentUser"

// DefaultSessionCookie is the cookie carrying the session token.
const DefaultSessionCookie = "session-token"

// TokenValidator verifies a session token.
type TokenValidator interface {
	ValidateToken(token string) (*models.JWTClaims, error)
}

// Session requires a valid session cookie or bearer token.
func Session(validator TokenValidator, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, malformed := sessionToken(c, cookieName)
		if malformed {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "invalid authorization header"))
			c.Abort()
			return
		}
		if token == "" {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		claims, err := validator.ValidateToken(token)
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		c.Set(ContextUserKey, claims)
		c.Set(logger.ContextUserIDKey, claims.UserID)
		c.Next()
	}
}

// OptionalSession attaches claims when present but does not block.
func OptionalSession(validator TokenValidator, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if claims := CurrentUser(c, validator, cookieName); claims != nil {
			c.Set(ContextUserKey, claims)
			c.Set(logger.ContextUserIDKey, claims.UserID)
		}
		c.Next()
	}
}

// CurrentUser resolves the session without touching the response.
func CurrentUser(c *gin.Context, validator TokenValidator, cookieName string) *models.JWTClaims {
	token, malformed := sessionToken(c, cookieName)
	if malformed || token == "" || validator == nil {
		return nil
	}
	claims, err := validator.ValidateToken(token)
	if err != nil {
		return nil
	}
	return claims
}

// sessionToken prefers the cookie and falls back to an Authorization bearer.
func sessionToken(c *gin.Context, cookieName string) (string, bool) {
	if cookieName == "" {
		cookieName = DefaultSessionCookie
	}
	if cookie, err := c.Cookie(cookieName); err == nil && cookie != "" {
		return cookie, false
	}
	header := c.GetHeader("Authorization")
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", true
	}
	return strings.TrimSpace(parts[1]), false
}
