package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/eduhire-api/internal/models"
	appErrors "github.com/noah-isme/eduhire-api/pkg/errors"
	"github.com/noah-isme/eduhire-api/pkg/response"
)

// ContextSessionKey is the gin context key storing the caller's models.SessionContext.
const ContextSessionKey = "session"

// SessionValidator verifies an access token and returns the caller.
type SessionValidator interface {
	ValidateSession(ctx context.Context, token string) (models.SessionContext, error)
}

// JWT protects routes by requiring a valid, non-revoked access token.
func JWT(validator SessionValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Error(c, appErrors.Clone(appErrors.ErrAuth, "sign in required"))
			c.Abort()
			return
		}

		token, ok := bearerToken(header)
		if !ok {
			response.Error(c, appErrors.Clone(appErrors.ErrAuth, "invalid authorization header"))
			c.Abort()
			return
		}

		session, err := validator.ValidateSession(c.Request.Context(), token)
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		c.Set(ContextSessionKey, session)
		c.Next()
	}
}

// OptionalJWT attaches the session when a valid token is present but does not block.
func OptionalJWT(validator SessionValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			c.Next()
			return
		}

		session, err := validator.ValidateSession(c.Request.Context(), token)
		if err != nil {
			c.Next()
			return
		}

		c.Set(ContextSessionKey, session)
		c.Next()
	}
}

// SessionFrom returns the session attached by JWT. Guests yield a zero value.
func SessionFrom(c *gin.Context) (models.SessionContext, bool) {
	value, exists := c.Get(ContextSessionKey)
	if !exists {
		return models.SessionContext{}, false
	}
	session, ok := value.(models.SessionContext)
	if !ok || session.UserID == "" {
		return models.SessionContext{}, false
	}
	return session, true
}

func bearerToken(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}
