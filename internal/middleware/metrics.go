package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/chilahati-archive-api/internal/service"
)

// unmatchedRoute labels requests that fell through to NoRoute so SPA page
// paths do not each become a metric series.
const unmatchedRoute = "unmatched"

// Metrics observes latency and status per registered route.
func Metrics(metricsSvc *service.MetricsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if metricsSvc == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = unmatchedRoute
		}
		metricsSvc.ObserveHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
