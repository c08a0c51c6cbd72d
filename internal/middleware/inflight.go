package middleware

import (
	"context"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	appErrors "github.com/noah-isme/eduhire-api/pkg/errors"
	"github.com/noah-isme/eduhire-api/pkg/response"
)

// InflightLocker grants short-lived exclusive locks.
type InflightLocker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (token string, ok bool, err error)
	Release(ctx context.Context, key, token string) error
}

// Inflight rejects a duplicate submission of the same mutating request while
// the first one is still being processed. Requests without a session pass
// through; lock store failures fail open.
func Inflight(locker InflightLocker, ttl time.Duration, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		session, ok := SessionFrom(c)
		if locker == nil || !ok {
			c.Next()
			return
		}

		key := inflightKey(session.UserID, c)
		token, acquired, err := locker.Acquire(c.Request.Context(), key, ttl)
		if err != nil {
			logger.Warn("inflight guard unavailable", zap.String("key", key), zap.Error(err))
			c.Next()
			return
		}
		if !acquired {
			response.Error(c, appErrors.Clone(appErrors.ErrConflict, "request already in progress"))
			c.Abort()
			return
		}

		defer func() {
			// The request context may already be cancelled.
			if err := locker.Release(context.Background(), key, token); err != nil {
				logger.Warn("failed to release inflight lock", zap.String("key", key), zap.Error(err))
			}
		}()
		c.Next()
	}
}

func inflightKey(userID string, c *gin.Context) string {
	route := c.FullPath()
	if route == "" {
		route = c.Request.URL.Path
	}
	parts := []string{userID, c.Request.Method, route}
	if id := c.Param("id"); id != "" {
		parts = append(parts, id)
	}
	return strings.Join(parts, ":")
}
