package errors

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"lovink/backend/pkg/logger"

	"github.com/gin-gonic/gin"
)

// RecoveryWithLogger turns a panic into a 500 and logs it with the stack
func RecoveryWithLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			stack := string(debug.Stack())
			logger.FromGin(c).Error("panic recovered",
				"panic", fmt.Sprintf("%v", r),
				"stack", stack,
				"path", c.Request.URL.Path,
				"method", c.Request.Method,
			)

			var details any
			if gin.Mode() == gin.DebugMode {
				details = fmt.Sprintf("panic: %v", r)
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error": gin.H{
					"code":    "SERVER_ERROR",
					"message": "the server encountered an unexpected error",
					"details": details,
				},
			})
		}()
		c.Next()
	}
}
