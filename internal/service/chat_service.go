package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/vedran77/huddle/internal/domain"
	"github.com/vedran77/huddle/internal/repository"
)

const (
	DefaultMessageLimit = 50
	MaxMessageLimit     = 200
)

// Notifier broadcasts real-time events to connected clients.
type Notifier interface {
	NotifyChatMessage(msg *domain.ChatMessage)
}

type ChatService struct {
	messages repository.MessageRepository
	users    repository.UserRepository
	notifier Notifier
}

func NewChatService(messages repository.MessageRepository, users repository.UserRepository) *ChatService {
	return &ChatService{messages: messages, users: users}
}

// SetNotifier sets the real-time notifier (optional dependency).
func (s *ChatService) SetNotifier(n Notifier) {
	s.notifier = n
}

type SendMessageInput struct {
	Text string `json:"text"`
}

func (s *ChatService) Send(ctx context.Context, sess domain.Session, input SendMessageInput) (*domain.ChatMessage, error) {
	sender, err := s.users.GetByID(ctx, sess.UserID)
	if err != nil {
		return nil, fmt.Errorf("loading profile: %w", err)
	}
	if sender == nil {
		return nil, ErrUserNotFound
	}

	msg := &domain.ChatMessage{
		ID:         ulid.Make().String(),
		SenderID:   sess.UserID,
		SenderName: sender.DisplayName,
		Text:       strings.TrimSpace(input.Text),
		CreatedAt:  time.Now(),
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, fmt.Errorf("creating message: %w", err)
	}

	if s.notifier != nil {
		s.notifier.NotifyChatMessage(msg)
	}
	return msg, nil
}

// List returns the most recent messages, oldest first.
func (s *ChatService) List(ctx context.Context, limit int) ([]domain.ChatMessage, error) {
	if limit <= 0 {
		limit = DefaultMessageLimit
	}
	if limit > MaxMessageLimit {
		limit = MaxMessageLimit
	}

	msgs, err := s.messages.ListRecent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("listing messages: %w", err)
	}
	return msgs, nil
}
