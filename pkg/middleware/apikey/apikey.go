package apikey

import (
	"crypto/subtle"
	"strings"

	"github.com/gin-gonic/gin"

	appErrors "github.com/noah-isme/eduhire-api/pkg/errors"
	"github.com/noah-isme/eduhire-api/pkg/response"
)

const (
	headerKey    = "apikey"
	altHeaderKey = "X-API-Key"
)

// Middleware rejects requests that do not present the public API key.
func Middleware(key string) gin.HandlerFunc {
	expected := []byte(key)
	return func(c *gin.Context) {
		provided := strings.TrimSpace(c.GetHeader(headerKey))
		if provided == "" {
			provided = strings.TrimSpace(c.GetHeader(altHeaderKey))
		}
		if provided == "" || subtle.ConstantTimeCompare([]byte(provided), expected) != 1 {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "invalid api key"))
			c.Abort()
			return
		}
		c.Next()
	}
}
