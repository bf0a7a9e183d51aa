package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"

	"lovink/backend/ai"
	"lovink/backend/internal/community"
	"lovink/backend/internal/models"
	"lovink/backend/internal/store"
	"lovink/backend/pkg/logger"
)

// ChatService runs the one-to-one chats between a user and an active
// partner. Each chat is a log keyed by models.DirectRoomID and holds at most
// one pending reply.
type ChatService struct {
	db   *gorm.DB
	logs store.LogFactory
	gen  ai.DirectGenerator
	log  *logger.Logger
	now  func() time.Time

	mu      sync.Mutex
	pending map[string]bool
}

// NewChatService creates the one-to-one chat service
func NewChatService(db *gorm.DB, logs store.LogFactory, gen ai.DirectGenerator, log *logger.Logger) *ChatService {
	return &ChatService{
		db:      db,
		logs:    logs,
		gen:     gen,
		log:     log,
		now:     time.Now,
		pending: make(map[string]bool),
	}
}

type chatParties struct {
	key     string
	user    ai.UserInfo
	partner community.Persona
}

func (s *ChatService) parties(ctx context.Context, userID, personaID string) (chatParties, error) {
	var profile models.UserProfile
	err := s.db.WithContext(ctx).Where("id = ?", userID).First(&profile).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return chatParties{}, ErrProfileNotFound
	}
	if err != nil {
		return chatParties{}, err
	}

	var partner models.Partner
	err = s.db.WithContext(ctx).
		Preload("Persona").
		Where("user_id = ? AND persona_id = ?", userID, personaID).
		First(&partner).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return chatParties{}, ErrPartnerNotFound
	}
	if err != nil {
		return chatParties{}, err
	}

	return chatParties{
		key:     models.DirectRoomID(userID, personaID),
		user:    ai.UserInfo{Name: profile.Username, Age: profile.Age, About: profile.AboutMe},
		partner: partner.ToCommunity(),
	}, nil
}

func (s *ChatService) begin(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending[key] {
		return false
	}
	s.pending[key] = true
	return true
}

func (s *ChatService) end(key string) {
	s.mu.Lock()
	delete(s.pending, key)
	s.mu.Unlock()
}

// Chats lists the user's partners with the last line of each chat
func (s *ChatService) Chats(ctx context.Context, userID string) ([]models.ChatSummary, error) {
	var partners []models.Partner
	err := s.db.WithContext(ctx).
		Preload("Persona").
		Where("user_id = ?", userID).
		Order("position, created_at").
		Find(&partners).Error
	if err != nil {
		return nil, err
	}

	out := make([]models.ChatSummary, 0, len(partners))
	for _, p := range partners {
		summary := models.ChatSummary{Partner: p.ToCommunity()}
		last, ok, err := s.logs(models.DirectRoomID(userID, p.PersonaID)).Tail(ctx)
		if err != nil {
			return nil, fmt.Errorf("chat tail: %w", err)
		}
		if ok {
			summary.LastMessage = &last
		}
		out = append(out, summary)
	}
	return out, nil
}

// History returns the chat with a partner. An empty chat is opened by the
// partner first, as long as no other reply is pending.
func (s *ChatService) History(ctx context.Context, userID, personaID string) (*models.ChatHistory, error) {
	p, err := s.parties(ctx, userID, personaID)
	if err != nil {
		return nil, err
	}
	chatLog := s.logs(p.key)
	messages, err := chatLog.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	if len(messages) == 0 && s.begin(p.key) {
		defer s.end(p.key)
		if messages, err = chatLog.Snapshot(ctx); err != nil {
			return nil, err
		}
		if len(messages) == 0 {
			opener, err := s.reply(ctx, chatLog, p, nil)
			if err != nil {
				s.log.WithUserID(userID).WithPersona(personaID).Warn("chat opener failed", "error", err.Error())
			} else {
				messages = append(messages, opener)
			}
		}
	}
	return &models.ChatHistory{Partner: p.partner, Messages: messages}, nil
}

// Send appends the user's message and the partner's answer. A generator
// failure leaves only the user's message and sets ReplyFailed.
func (s *ChatService) Send(ctx context.Context, userID, personaID, text string) (*models.ChatExchange, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, community.ErrEmptyMessage
	}
	p, err := s.parties(ctx, userID, personaID)
	if err != nil {
		return nil, err
	}
	if !s.begin(p.key) {
		return nil, ErrChatBusy
	}
	defer s.end(p.key)

	chatLog := s.logs(p.key)
	userMsg := community.Message{
		ID:         community.NewMessageID(),
		SenderKind: community.SenderUser,
		SenderID:   community.UserSenderID,
		Text:       text,
		Timestamp:  s.now().UnixMilli(),
	}
	if err := chatLog.Append(ctx, userMsg); err != nil {
		return nil, fmt.Errorf("append user message: %w", err)
	}
	history, err := chatLog.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	exchange := &models.ChatExchange{UserMessage: userMsg}
	reply, err := s.reply(ctx, chatLog, p, history)
	if err != nil {
		s.log.WithUserID(userID).WithPersona(personaID).Warn("partner reply failed", "error", err.Error())
		exchange.ReplyFailed = true
		return exchange, nil
	}
	exchange.Reply = &reply
	return exchange, nil
}

// reply is kept once generation starts, even if the caller goes away
func (s *ChatService) reply(ctx context.Context, chatLog community.Log, p chatParties, history []community.Message) (community.Message, error) {
	ctx = context.WithoutCancel(ctx)
	raw, err := s.gen.GenerateDirect(ctx, ai.DirectRequest{
		User:    p.user,
		Partner: p.partner,
		History: history,
	})
	if err != nil {
		return community.Message{}, err
	}
	text := strings.TrimSpace(raw)
	if text == "" {
		text = ai.DirectFallbackReply
	}

	msg := community.Message{
		ID:         community.NewMessageID(),
		SenderKind: community.SenderPersona,
		SenderID:   p.partner.ID,
		Text:       text,
		Timestamp:  s.now().UnixMilli(),
	}
	if err := chatLog.Append(ctx, msg); err != nil {
		return community.Message{}, fmt.Errorf("append reply: %w", err)
	}
	return msg, nil
}
