package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/frostdev-ops/home-panel-go/pkg/utils"
)

// ErrorHandlingMiddleware recovers from panics, logs the stack and answers
// with a 500 error envelope
func ErrorHandlingMiddleware(logger *logrus.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logger.WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"user_id": c.GetString("user_id"),
			"panic":   fmt.Sprintf("%v", recovered),
			"stack":   string(debug.Stack()),
		}).Error("Panic recovered")

		if !c.Writer.Written() {
			utils.SendError(c, http.StatusInternalServerError, "An unexpected error occurred. Please try again.")
		}
		c.Abort()
	})
}
