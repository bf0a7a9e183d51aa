package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"lovink/backend/internal/models"
)

// ChatService runs the one-to-one partner chats
type ChatService interface {
	Chats(ctx context.Context, userID string) ([]models.ChatSummary, error)
	History(ctx context.Context, userID, personaID string) (*models.ChatHistory, error)
	Send(ctx context.Context, userID, personaID, text string) (*models.ChatExchange, error)
}

// ChatController handles the one-to-one chat endpoints
type ChatController struct {
	chats ChatService
}

// NewChatController creates a new chat controller
func NewChatController(chats ChatService) *ChatController {
	return &ChatController{chats: chats}
}

// RegisterRoutes registers the chat routes on an authenticated group
func (cc *ChatController) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/chats", cc.ListChats)
	rg.GET("/chats/:personaId/messages", cc.GetMessages)
	rg.POST("/chats/:personaId/messages", cc.SendMessage)
}

func (cc *ChatController) ListChats(c *gin.Context) {
	chats, err := cc.chats.Chats(c.Request.Context(), userID(c))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"chats": chats})
}

// GetMessages returns the chat; the partner opens an empty one
func (cc *ChatController) GetMessages(c *gin.Context) {
	history, err := cc.chats.History(c.Request.Context(), userID(c), c.Param("personaId"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, history)
}

func (cc *ChatController) SendMessage(c *gin.Context) {
	var req models.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	exchange, err := cc.chats.Send(c.Request.Context(), userID(c), c.Param("personaId"), req.Text)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, exchange)
}
