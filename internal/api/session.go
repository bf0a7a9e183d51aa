package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"lovink/backend/internal/models"
)

// SessionService starts sessions and reads profiles
type SessionService interface {
	StartSession(ctx context.Context, req *models.SessionRequest) (*models.SessionResponse, error)
	GetProfile(ctx context.Context, id string) (*models.UserProfile, error)
}

// SessionHandler handles onboarding and the current profile
type SessionHandler struct {
	users SessionService
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(users SessionService) *SessionHandler {
	return &SessionHandler{users: users}
}

// StartSession handles POST /api/v1/session
func (h *SessionHandler) StartSession(c *gin.Context) {
	var req models.SessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	res, err := h.users.StartSession(c.Request.Context(), &req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Me handles GET /api/v1/me
func (h *SessionHandler) Me(c *gin.Context) {
	profile, err := h.users.GetProfile(c.Request.Context(), userID(c))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"profile": profile,
		"roomId":  models.CommunityRoomID(profile.ID),
	})
}
