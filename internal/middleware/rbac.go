package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/eduhire-api/internal/models"
	appErrors "github.com/noah-isme/eduhire-api/pkg/errors"
	"github.com/noah-isme/eduhire-api/pkg/response"
)

// RBAC enforces role-based access control for routes. "SELF" admits a
// caller whose id matches the :id route parameter.
func RBAC(allowed ...string) gin.HandlerFunc {
	allowSelf := false
	allowedRoles := make(map[models.UserRole]struct{})
	for _, a := range allowed {
		if a == "SELF" {
			allowSelf = true
			continue
		}
		allowedRoles[models.UserRole(a)] = struct{}{}
	}

	return func(c *gin.Context) {
		session, ok := SessionFrom(c)
		if !ok {
			response.Error(c, appErrors.Clone(appErrors.ErrAuth, "sign in required"))
			c.Abort()
			return
		}

		if _, ok := allowedRoles[session.Role]; ok {
			c.Next()
			return
		}

		if allowSelf && session.Is(c.Param("id")) {
			c.Next()
			return
		}

		response.Error(c, appErrors.ErrForbidden)
		c.Abort()
	}
}

// RequireRoles is a helper that accepts a list of roles.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	allowed := make([]string, len(roles))
	for i, r := range roles {
		allowed[i] = string(r)
	}
	return RBAC(allowed...)
}
