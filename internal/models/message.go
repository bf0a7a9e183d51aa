package models

import (
	"time"

	"lovink/backend/internal/community"
)

// CommunityMessage is the durable row of one room log entry. Seq fixes
// append order across writers.
type CommunityMessage struct {
	Seq        uint      `json:"-" gorm:"primaryKey;autoIncrement"`
	ExternalID string    `json:"id" gorm:"uniqueIndex;size:26"`
	RoomID     string    `json:"roomId" gorm:"index;size:128;not null"`
	SenderType string    `json:"senderType" gorm:"size:16;not null"`
	SenderID   string    `json:"senderId" gorm:"size:64"`
	Text       string    `json:"text" gorm:"type:text"`
	Timestamp  int64     `json:"timestamp"`
	CreatedAt  time.Time `json:"createdAt"`
}

// SendMessageRequest is the body of POST /api/v1/rooms/:roomId/messages
type SendMessageRequest struct {
	Text string `json:"text" binding:"required"`
}

// NewCommunityMessage builds the row for msg in room
func NewCommunityMessage(roomID string, msg community.Message) *CommunityMessage {
	return &CommunityMessage{
		ExternalID: msg.ID,
		RoomID:     roomID,
		SenderType: string(msg.SenderKind),
		SenderID:   msg.SenderID,
		Text:       msg.Text,
		Timestamp:  msg.Timestamp,
	}
}

// ToCommunity converts the row back to a log entry
func (m CommunityMessage) ToCommunity() community.Message {
	return community.Message{
		ID:         m.ExternalID,
		SenderKind: community.SenderKind(m.SenderType),
		SenderID:   m.SenderID,
		Text:       m.Text,
		Timestamp:  m.Timestamp,
	}
}

// ChatHistory is the one-to-one conversation with a partner
type ChatHistory struct {
	Partner  community.Persona   `json:"partner"`
	Messages []community.Message `json:"messages"`
}

// ChatExchange is the outcome of a one-to-one send. Reply is nil when the
// partner could not answer.
type ChatExchange struct {
	UserMessage community.Message  `json:"userMessage"`
	Reply       *community.Message `json:"reply"`
	ReplyFailed bool               `json:"replyFailed"`
}

// ChatSummary is one entry of the chat list
type ChatSummary struct {
	Partner     community.Persona  `json:"partner"`
	LastMessage *community.Message `json:"lastMessage"`
}
