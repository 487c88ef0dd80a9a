package middlewares

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/moyoez/tunshare/metrics"
)

// RecordMetrics observes every browse interface request.
func RecordMetrics(c *gin.Context) {
	started := time.Now()
	c.Next()
	metrics.RecordHTTPRequest(c.Request.Method, c.Writer.Status(), time.Since(started))
}
