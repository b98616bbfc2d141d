package middleware

import (
	"strconv"
	"time"

	"github.com/Dzhud/issue-tracker/pkg/logger"
	"github.com/Dzhud/issue-tracker/pkg/metrics"
	"github.com/gin-gonic/gin"
)

// RequestLogger writes one access line per request and records its latency.
// Server errors log at error level, client errors at warn, the rest at debug.
func RequestLogger(component string) gin.HandlerFunc {
	log := logger.Named(component)
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		elapsed := time.Since(start)

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		metrics.RequestDuration.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Observe(elapsed.Seconds())

		line := "%s %s -> %d (%s) %s"
		args := []interface{}{c.Request.Method, c.Request.URL.RequestURI(), status, elapsed.Round(time.Microsecond), c.ClientIP()}
		switch {
		case status >= 500:
			log.Errorf(line, args...)
		case status >= 400:
			log.Warnf(line, args...)
		default:
			log.Debugf(line, args...)
		}
	}
}
