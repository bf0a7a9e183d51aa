package middleware

import (
	"context"
	stderrors "errors"
	"strings"

	"github.com/gin-gonic/gin"

	"lovink/backend/pkg/errors"
	"lovink/backend/pkg/jwt"
)

// TokenValidator verifies a bearer token
type TokenValidator interface {
	ValidateToken(token string) (*jwt.Claims, error)
}

// JWTAuth requires a valid bearer token. Browsers cannot set headers on a
// websocket upgrade, so the token query parameter is accepted too.
func JWTAuth(v TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearer(c.GetHeader("Authorization"))
		if token == "" {
			token = c.Query("token")
		}
		if token == "" {
			errors.Response(c, errors.NewUnauthorizedError("MISSING_TOKEN", "authorization required"))
			return
		}

		claims, err := v.ValidateToken(token)
		if err != nil {
			code := "INVALID_TOKEN"
			if stderrors.Is(err, jwt.ErrExpiredToken) {
				code = "TOKEN_EXPIRED"
			}
			errors.Response(c, errors.NewUnauthorizedError(code, err.Error()))
			return
		}

		c.Set(UserIDGinKey, claims.UserID)
		c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), userIDKey, claims.UserID))
		c.Next()
	}
}

func bearer(header string) string {
	const prefix = "bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}
