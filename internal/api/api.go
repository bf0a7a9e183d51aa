// Package api holds the HTTP controllers of the v1 API
package api

import (
	"strconv"

	"github.com/gin-gonic/gin"

	apperrors "lovink/backend/pkg/errors"
	"lovink/backend/pkg/middleware"
)

// HeaderViewportWidth carries the client's viewport width in CSS pixels
const HeaderViewportWidth = "X-Viewport-Width"

func userID(c *gin.Context) string {
	return c.GetString(middleware.UserIDGinKey)
}

func viewportWidth(c *gin.Context) int {
	raw := c.Query("width")
	if raw == "" {
		raw = c.GetHeader(HeaderViewportWidth)
	}
	w, _ := strconv.Atoi(raw)
	return w
}

func badRequest(c *gin.Context, err error) {
	_ = c.Error(apperrors.NewBadRequestError("INVALID_REQUEST", "invalid request body").WithDetails(err.Error()))
}
