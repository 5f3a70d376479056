package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
)

type httpObserver interface {
	ObserveHTTPRequest(method, path string, status int, duration time.Duration)
}

// Metrics records request duration and count per route. The route template
// (not the raw URL) is used as the path label to keep cardinality bounded.
func Metrics(observer httpObserver) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		observer.ObserveHTTPRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}
