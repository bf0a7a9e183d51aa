package ws

import (
	"context"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"lovink/backend/internal/community"
	apperrors "lovink/backend/pkg/errors"
	"lovink/backend/pkg/logger"
	"lovink/backend/pkg/middleware"
)

// RoomOpener hands out a running room for a subscriber
type RoomOpener interface {
	Open(ctx context.Context, userID, roomID string, viewportWidth int) (*community.Room, func(), error)
}

// Handler upgrades room subscriptions to websockets
type Handler struct {
	hub      *Hub
	rooms    RoomOpener
	upgrader websocket.Upgrader
}

// NewHandler creates the handler. An empty allowedOrigins list or "*"
// accepts any origin.
func NewHandler(hub *Hub, rooms RoomOpener, allowedOrigins []string) *Handler {
	anyOrigin := len(allowedOrigins) == 0 || slices.Contains(allowedOrigins, "*")
	return &Handler{
		hub:   hub,
		rooms: rooms,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return anyOrigin || slices.Contains(allowedOrigins, r.Header.Get("Origin"))
			},
			HandshakeTimeout: 10 * time.Second,
			ReadBufferSize:   1024,
			WriteBufferSize:  1024,
		},
	}
}

// ServeWS handles GET /ws/rooms/:roomId?width=<viewport px>
func (h *Handler) ServeWS(c *gin.Context) {
	userID := c.GetString(middleware.UserIDGinKey)
	roomID := c.Param("roomId")
	width, _ := strconv.Atoi(c.Query("width"))
	log := logger.FromGin(c).WithRoom(roomID)

	room, release, err := h.rooms.Open(c.Request.Context(), userID, roomID, width)
	if err != nil {
		apperrors.Response(c, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		release()
		log.Debug("websocket upgrade failed", "error", err.Error())
		return
	}

	client := &Client{
		id:     uuid.NewString(),
		roomID: roomID,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		hub:    h.hub,
		room:   room,
		log:    log,
	}

	if !h.hub.join(client) {
		release()
		conn.Close()
		return
	}

	// the request context ends when this handler returns
	ctx, cancel := context.WithCancel(context.Background())
	unsubscribe := room.Subscribe(client.onAppend)
	if err := client.sendHistory(ctx); err != nil {
		client.log.LogError(err, "load room history")
	}

	go client.writePump()
	go func() {
		defer func() {
			cancel()
			unsubscribe()
			release()
			h.hub.leave(client)
			conn.Close()
		}()
		client.readPump(ctx)
	}()
}
