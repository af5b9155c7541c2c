package status

import (
	"log"
	"time"

	"github.com/gin-gonic/gin"
)

// LoggingMiddleware logs each request with its status and latency.
// Scrapes and probes that succeed are not logged.
func LoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()

		c.Next()

		statusCode := c.Writer.Status()
		if statusCode < 300 {
			return
		}

		marker := "⚠️ "
		if statusCode >= 500 {
			marker = "❌"
		}
		log.Printf("%s [status] %d | %s | %s %s | %v",
			marker,
			statusCode,
			c.ClientIP(),
			c.Request.Method,
			c.Request.URL.Path,
			time.Since(startTime),
		)
	}
}
