package middleware

import (
	"strconv"
	"time"

	"audit-webhook-engine/internal/metrics"

	"github.com/gin-gonic/gin"
)

// Metrics records per-request counters and latency histograms. The route
// template (not the raw URL) is used as the path label to keep cardinality
// bounded.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())

		metrics.HTTPRequests.WithLabelValues(c.Request.Method, path, status).Inc()
		metrics.HTTPDuration.WithLabelValues(c.Request.Method, path, status).Observe(time.Since(start).Seconds())
	}
}
