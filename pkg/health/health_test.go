package health

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lovink/backend/pkg/logger"
)

func newChecker() *Checker {
	return NewChecker(logger.New(logger.Config{Level: "error", Output: io.Discard}), time.Minute)
}

func TestCriticalDownIsUnhealthy(t *testing.T) {
	c := newChecker()
	c.RegisterPing("database", true, func(context.Context) error { return nil })
	c.RegisterPing("redis", false, func(context.Context) error { return errors.New("refused") })

	var last *bool
	c.OnChange(func(h bool) { last = &h })
	c.RunChecks(context.Background())

	assert.True(t, c.IsSystemHealthy())
	require.NotNil(t, last)
	assert.True(t, *last)
	assert.Equal(t, StatusDown, c.GetStatus()["redis"].Status)

	c.RegisterPing("database", true, func(context.Context) error { return errors.New("gone") })
	c.RunChecks(context.Background())
	assert.False(t, c.IsSystemHealthy())
	assert.False(t, *last)
}

func TestHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c := newChecker()
	c.RegisterPing("database", true, func(context.Context) error { return errors.New("down") })

	r := gin.New()
	r.GET("/health", c.Handler())

	// not checked yet counts as down
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	var body struct {
		Status     string               `json:"status"`
		Components map[string]Component `json:"components"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "unavailable", body.Status)
	assert.Contains(t, body.Components, "database")
}
