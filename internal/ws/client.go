package ws

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"lovink/backend/internal/community"
	apperrors "lovink/backend/pkg/errors"
	"lovink/backend/pkg/logger"
)

// Client is one socket subscribed to one room
type Client struct {
	id     string
	roomID string
	conn   *websocket.Conn
	send   chan []byte
	hub    *Hub
	room   *community.Room
	log    *logger.Logger

	// room messages that arrive before the history frame is queued wait in
	// pending so the client sees history first and nothing twice
	mu      sync.Mutex
	ready   bool
	pending []community.Message
}

type chatContent struct {
	Text string `json:"text"`
}

type historyContent struct {
	RoomID     string              `json:"roomId"`
	Personas   []community.Persona `json:"personas"`
	Messages   []community.Message `json:"messages"`
	Autonomous bool                `json:"autonomous"`
	Generating bool                `json:"generating"`
}

type messageContent struct {
	RoomID  string            `json:"roomId"`
	Message community.Message `json:"message"`
}

type sendResultContent struct {
	Mode          community.AddressMode `json:"mode"`
	Replies       int                   `json:"replies"`
	PrimaryFailed bool                  `json:"primaryFailed"`
}

type errorContent struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (c *Client) emit(typ string, content any) {
	data, err := encodeEvent(typ, content)
	if err != nil {
		c.log.LogError(err, "encode event", "type", typ)
		return
	}
	c.hub.enqueue(frame{roomID: c.roomID, client: c, data: data})
}

// onAppend is the room subscription
func (c *Client) onAppend(msg community.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.ready {
		c.pending = append(c.pending, msg)
		return
	}
	c.emit(EventCommunityMessage, messageContent{RoomID: c.roomID, Message: msg})
}

// sendHistory queues the log snapshot followed by anything appended since
func (c *Client) sendHistory(ctx context.Context) error {
	history, err := c.room.Messages(ctx)
	if err != nil {
		return err
	}
	seen := make(map[string]bool, len(history))
	for _, m := range history {
		seen[m.ID] = true
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.emit(EventRoomHistory, historyContent{
		RoomID:     c.roomID,
		Personas:   c.room.Roster(),
		Messages:   history,
		Autonomous: c.room.Autonomous(),
		Generating: c.room.Generating(),
	})
	for _, m := range c.pending {
		if !seen[m.ID] {
			c.emit(EventCommunityMessage, messageContent{RoomID: c.roomID, Message: m})
		}
	}
	c.pending = nil
	c.ready = true
	return nil
}

func (c *Client) readPump(ctx context.Context) {
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.Debug("websocket closed", "error", err.Error())
			}
			return
		}

		var event Event
		if err := json.Unmarshal(data, &event); err != nil {
			c.emit(EventError, errorContent{Code: "INVALID_EVENT", Message: "event must be JSON"})
			continue
		}
		switch event.Type {
		case EventChat:
			var chat chatContent
			if err := json.Unmarshal(event.Content, &chat); err != nil {
				c.emit(EventError, errorContent{Code: "INVALID_EVENT", Message: "chat content must be {\"text\": string}"})
				continue
			}
			go c.handleChat(ctx, chat.Text)
		case EventPing:
			c.emit(EventPong, nil)
		default:
			c.emit(EventError, errorContent{Code: "UNKNOWN_EVENT", Message: "unknown event type " + event.Type})
		}
	}
}

func (c *Client) handleChat(ctx context.Context, text string) {
	res, err := c.room.Send(ctx, strings.TrimSpace(text))
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		appErr := apperrors.FromError(err)
		if appErr.StatusCode >= 500 {
			c.log.LogError(err, "chat send failed")
		}
		c.emit(EventError, errorContent{Code: appErr.Code, Message: appErr.Message})
		return
	}
	c.emit(EventSendResult, sendResultContent{
		Mode:          res.Mode,
		Replies:       len(res.Replies),
		PrimaryFailed: res.PrimaryFailed,
	})
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
