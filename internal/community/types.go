package community

import (
	"context"
	"errors"
	"time"

	"github.com/oklog/ulid/v2"
)

// SenderKind tells who authored a message
type SenderKind string

const (
	SenderUser    SenderKind = "user"
	SenderPersona SenderKind = "persona"
)

// UserSenderID is the sender id recorded for the human in the room
const UserSenderID = "user"

// Persona is an immutable roster entry. Tags and the style fields are only
// read by the reply generator.
type Persona struct {
	ID          string   `json:"id"`
	DisplayName string   `json:"displayName"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Tone        string   `json:"tone,omitempty"`
	EmojiUsage  string   `json:"emojiUsage,omitempty"`
	Clinginess  string   `json:"clinginess,omitempty"`
	Interests   []string `json:"interests,omitempty"`
}

// Message is one entry of the conversation log
type Message struct {
	ID         string     `json:"id"`
	SenderKind SenderKind `json:"senderType"`
	SenderID   string     `json:"senderId"`
	Text       string     `json:"text"`
	// Timestamp is unix milliseconds. Display only; log order is append order.
	Timestamp int64 `json:"timestamp"`
}

// Time returns the message timestamp as a time.Time
func (m Message) Time() time.Time {
	return time.UnixMilli(m.Timestamp)
}

// FromUser reports whether the human wrote the message
func (m Message) FromUser() bool {
	return m.SenderKind == SenderUser
}

// NewMessageID returns a collision-resistant, lexically sortable id
func NewMessageID() string {
	return ulid.Make().String()
}

// ReplyRequest is everything a generator needs to speak as one persona
type ReplyRequest struct {
	RoomID  string
	Speaker Persona
	Roster  []Persona
	History []Message
}

// ReplyGenerator produces one candidate reply for the speaking persona.
// Implementations perform network I/O and may block until ctx is done.
type ReplyGenerator interface {
	GenerateReply(ctx context.Context, req ReplyRequest) (string, error)
}

// GeneratorFunc adapts a function to ReplyGenerator
type GeneratorFunc func(ctx context.Context, req ReplyRequest) (string, error)

// GenerateReply calls f
func (f GeneratorFunc) GenerateReply(ctx context.Context, req ReplyRequest) (string, error) {
	return f(ctx, req)
}

var (
	// ErrEmptyMessage is returned by Send for blank input
	ErrEmptyMessage = errors.New("message text is empty")
	// ErrBlankReply marks a generator result with no text
	ErrBlankReply = errors.New("generator returned a blank reply")
	// ErrFilteredEmpty marks a reply rejected by the filter
	ErrFilteredEmpty = errors.New("reply was empty or glyph-only after filtering")
	// ErrRoomClosed is returned when a room has been stopped
	ErrRoomClosed = errors.New("room is closed")
)
