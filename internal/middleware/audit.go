package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/chapterhub/event-gallery/internal/models"
	"github.com/chapterhub/event-gallery/pkg/middleware/requestid"
)

// Audit writes an audit entry for every successful request through the route,
// naming the acting token holder when one is known.
func Audit(logger *zap.Logger, action string) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		if status >= 400 {
			return
		}

		actor := "anonymous"
		if value, ok := c.Get(ContextUserKey); ok {
			if claims, ok := value.(*models.JWTClaims); ok && claims.Name != "" {
				actor = claims.Name
			}
		}

		logger.Info("audit",
			zap.String("action", action),
			zap.String("event_id", c.Param("id")),
			zap.String("actor", actor),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.ClientIP()),
			zap.String("request_id", requestid.Value(c)),
		)
	}
}
