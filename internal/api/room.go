package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"lovink/backend/internal/community"
	"lovink/backend/internal/models"
	"lovink/backend/pkg/logger"
)

// RoomProvider hands out the room of a user. Acquire keeps the room alive
// until done is called.
type RoomProvider interface {
	Room(ctx context.Context, userID, roomID string, viewportWidth int) (*community.Room, error)
	Acquire(ctx context.Context, userID, roomID string, viewportWidth int) (room *community.Room, done func(), err error)
}

// RoomController handles the community room endpoints
type RoomController struct {
	rooms RoomProvider
}

// NewRoomController creates a new room controller
func NewRoomController(rooms RoomProvider) *RoomController {
	return &RoomController{rooms: rooms}
}

// RoomResponse is the room snapshot
type RoomResponse struct {
	RoomID     string              `json:"roomId"`
	Personas   []community.Persona `json:"personas"`
	Messages   []community.Message `json:"messages"`
	Autonomous bool                `json:"autonomous"`
	Generating bool                `json:"generating"`
}

// SendResponse is the outcome of a human send
type SendResponse struct {
	UserMessage   community.Message     `json:"userMessage"`
	Replies       []community.Message   `json:"replies"`
	Mode          community.AddressMode `json:"mode"`
	PrimaryFailed bool                  `json:"primaryFailed"`
}

// RegisterRoutes registers the room routes on an authenticated group
func (rc *RoomController) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/rooms/:roomId/messages", rc.GetMessages)
	rg.POST("/rooms/:roomId/messages", rc.SendMessage)
}

// GetMessages returns the full ordered log of the room
func (rc *RoomController) GetMessages(c *gin.Context) {
	room, err := rc.rooms.Room(c.Request.Context(), userID(c), c.Param("roomId"), viewportWidth(c))
	if err != nil {
		_ = c.Error(err)
		return
	}
	messages, err := room.Messages(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, RoomResponse{
		RoomID:     room.ID(),
		Personas:   room.Roster(),
		Messages:   messages,
		Autonomous: room.Autonomous(),
		Generating: room.Generating(),
	})
}

// SendMessage appends the human message and waits for the responder round
func (rc *RoomController) SendMessage(c *gin.Context) {
	var req models.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	room, done, err := rc.rooms.Acquire(c.Request.Context(), userID(c), c.Param("roomId"), viewportWidth(c))
	if err != nil {
		_ = c.Error(err)
		return
	}
	defer done()
	res, err := room.Send(c.Request.Context(), req.Text)
	if err != nil {
		_ = c.Error(err)
		return
	}
	if res.PrimaryFailed {
		logger.FromGin(c).Debug("primary responder failed", "mode", string(res.Mode))
	}
	replies := res.Replies
	if replies == nil {
		replies = []community.Message{}
	}
	c.JSON(http.StatusCreated, SendResponse{
		UserMessage:   res.UserMessage,
		Replies:       replies,
		Mode:          res.Mode,
		PrimaryFailed: res.PrimaryFailed,
	})
}
