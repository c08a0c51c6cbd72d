package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/eduhire-api/internal/middleware"
	"github.com/noah-isme/eduhire-api/internal/models"
	appErrors "github.com/noah-isme/eduhire-api/pkg/errors"
	"github.com/noah-isme/eduhire-api/pkg/response"
)

// sessionFromContext returns the caller's session. A guest yields a zero
// session, which every service rejects with an AuthError.
func sessionFromContext(c *gin.Context) models.SessionContext {
	session, _ := middleware.SessionFrom(c)
	return session
}

func requireSession(c *gin.Context) (models.SessionContext, bool) {
	session, ok := middleware.SessionFrom(c)
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrAuth, "sign in required"))
		return models.SessionContext{}, false
	}
	return session, true
}

func bindJSON(c *gin.Context, dest interface{}, message string) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		response.Error(c, appErrors.Validation(err, message))
		return false
	}
	return true
}
