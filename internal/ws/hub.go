package ws

import (
	"context"
	"encoding/json"
	"time"

	"lovink/backend/pkg/logger"
	"lovink/backend/shared/observability"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 16 * 1024

	sendBuffer = 64
)

// Event types
const (
	EventRoomHistory      = "room_history"
	EventCommunityMessage = "community_message"
	EventTyping           = "typing"
	EventSendResult       = "send_result"
	EventError            = "error"
	EventPong             = "pong"

	EventChat = "chat"
	EventPing = "ping"
)

// Event is one frame on the socket in either direction
type Event struct {
	Type    string          `json:"type"`
	Content json.RawMessage `json:"content,omitempty"`
}

func encodeEvent(typ string, content any) ([]byte, error) {
	raw, err := json.Marshal(content)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Event{Type: typ, Content: raw})
}

// frame goes to one client, or to every client of roomID when client is nil
type frame struct {
	roomID string
	client *Client
	data   []byte
}

// Hub owns the set of connected clients. Every write to a client's send
// channel happens on the hub goroutine.
type Hub struct {
	clients    map[*Client]bool
	frames     chan frame
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	log        *logger.Logger
}

// NewHub creates a hub. Call Run to start it.
func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		frames:     make(chan frame, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		log:        log,
	}
}

// Run serves the hub until ctx is done, then closes every client
func (h *Hub) Run(ctx context.Context) error {
	defer func() {
		close(h.done)
		for client := range h.clients {
			h.drop(client)
		}
	}()
	for {
		select {
		case <-ctx.Done():
			return nil

		case client := <-h.register:
			h.clients[client] = true
			observability.WSConnections.Inc()
			h.log.WithRoom(client.roomID).Debug("client registered", "client", client.id)

		case client := <-h.unregister:
			if h.clients[client] {
				h.drop(client)
				h.log.WithRoom(client.roomID).Debug("client unregistered", "client", client.id)
			}

		case f := <-h.frames:
			if f.client != nil {
				if h.clients[f.client] {
					h.deliver(f.client, f.data)
				}
				continue
			}
			for client := range h.clients {
				if client.roomID == f.roomID {
					h.deliver(client, f.data)
				}
			}
		}
	}
}

func (h *Hub) deliver(client *Client, data []byte) {
	select {
	case client.send <- data:
	default:
		h.drop(client)
		h.log.WithRoom(client.roomID).Warn("client removed due to blocked channel", "client", client.id)
	}
}

func (h *Hub) drop(client *Client) {
	delete(h.clients, client)
	close(client.send)
	observability.WSConnections.Dec()
}

func (h *Hub) enqueue(f frame) {
	select {
	case h.frames <- f:
	case <-h.done:
	}
}

// Typing tells every client of roomID that a round started or ended
func (h *Hub) Typing(roomID string, active bool) {
	h.publish(roomID, EventTyping, map[string]any{"roomId": roomID, "active": active})
}

func (h *Hub) publish(roomID, typ string, content any) {
	data, err := encodeEvent(typ, content)
	if err != nil {
		h.log.LogError(err, "encode event", "type", typ)
		return
	}
	h.enqueue(frame{roomID: roomID, data: data})
}

func (h *Hub) join(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) leave(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}
