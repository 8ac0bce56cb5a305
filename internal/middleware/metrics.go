package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/chapterhub/event-gallery/internal/service"
)

// Metrics records latency and status per route template. Unmatched routes share
// the "unmatched" label and websocket upgrades are not timed.
func Metrics(metricsSvc *service.MetricsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if metricsSvc == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()
		duration := time.Since(start)
		status := c.Writer.Status()
		if c.IsWebsocket() {
			return
		}
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		metricsSvc.ObserveHTTPRequest(c.Request.Method, path, status, duration)
	}
}
