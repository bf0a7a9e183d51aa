package logger

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
)

const ginKey = "logger"

// Middleware stores a request-scoped logger on the gin context and logs
// every finished request. It expects the request ID middleware to run first.
func Middleware(base *Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		reqLogger := base.
			WithRequestID(c.GetString("requestId")).
			WithContext(c.Request.Context())
		if roomID := c.Param("roomId"); roomID != "" {
			reqLogger = reqLogger.WithRoom(roomID)
		}
		c.Set(ginKey, reqLogger)

		start := time.Now()
		c.Next()

		// auth runs after this middleware, so the user is known only now
		if userID, ok := c.Get("userId"); ok {
			reqLogger = reqLogger.WithUserID(fmt.Sprintf("%v", userID))
		}
		reqLogger.LogRequest(c.Request.Method, c.FullPath(), c.Writer.Status(), time.Since(start))
		for _, e := range c.Errors {
			reqLogger.LogError(e.Err, "request error", "error_type", e.Type)
		}
	}
}

// FromGin returns the request logger, falling back to the global one
func FromGin(c *gin.Context) *Logger {
	if v, ok := c.Get(ginKey); ok {
		if l, ok := v.(*Logger); ok {
			return l
		}
	}
	if g := GetGlobal(); g != nil {
		return g
	}
	return New(DefaultConfig())
}
