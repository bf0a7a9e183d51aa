package errors

import (
	"lovink/backend/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Response writes err as the standard error envelope
func Response(c *gin.Context, err error) {
	appErr := FromError(err)
	c.AbortWithStatusJSON(appErr.StatusCode, gin.H{
		"error": gin.H{
			"code":    appErr.Code,
			"message": appErr.Message,
			"details": appErr.Details,
		},
	})
}

// ErrorHandler renders the first error a handler attached with c.Error
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		appErr := FromError(c.Errors[0].Err)
		log := logger.FromGin(c)
		if appErr.StatusCode >= 500 {
			log.LogError(c.Errors[0].Err, "request failed",
				"status_code", appErr.StatusCode,
				"error_code", appErr.Code,
			)
		} else {
			log.Debug("request rejected",
				"status_code", appErr.StatusCode,
				"error_code", appErr.Code,
				"message", appErr.Message,
			)
		}
		Response(c, appErr)
	}
}
