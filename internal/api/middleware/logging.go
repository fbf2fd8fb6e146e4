package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/frostdev-ops/home-panel-go/pkg/logger"
)

// LoggingMiddleware logs every request through the batch logger. Successful
// requests are folded into periodic summaries.
func LoggingMiddleware(log *logger.BatchLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		fields := logrus.Fields{
			"client_ip":  c.ClientIP(),
			"user_agent": c.Request.UserAgent(),
		}
		if id, ok := c.Get("user_id"); ok {
			fields["user_id"] = id
		}
		if len(c.Errors) > 0 {
			fields["error_message"] = c.Errors.String()
		}
		log.LogRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start), fields)
	}
}
