package middleware

import (
	"log"
	"time"

	"github.com/gin-gonic/gin"
)

// Logger writes one access line per request. The request id is always set
// because RequestID runs earlier in the chain.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		size := c.Writer.Size()
		if size < 0 {
			size = 0
		}
		log.Printf("[HTTP] request_id=%s %s %s status=%d bytes=%d latency_ms=%.3f ip=%s",
			GetRequestID(c),
			c.Request.Method,
			c.Request.URL.Path,
			c.Writer.Status(),
			size,
			float64(time.Since(start).Microseconds())/1000.0,
			c.ClientIP(),
		)
	}
}
